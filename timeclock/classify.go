package timeclock

import "strings"

// Contexts are the four filtered views of a punch set that the status rules
// are written against.
type Contexts struct {
	Attendance     []RawPunchRecord
	ShopFloor      []RawPunchRecord
	OpenAttendance []RawPunchRecord
	OpenShopFloor  []RawPunchRecord
}

// BuildContexts splits records into attendance vs shop-floor and open vs
// closed. Kind matching is case-insensitive; rows of any other kind are
// ignored. Pure filter over the input slice.
func BuildContexts(records []RawPunchRecord) Contexts {
	var ctx Contexts
	for _, r := range records {
		switch {
		case strings.EqualFold(r.Kind, KindAttendance):
			ctx.Attendance = append(ctx.Attendance, r)
			if r.Open() {
				ctx.OpenAttendance = append(ctx.OpenAttendance, r)
			}
		case strings.EqualFold(r.Kind, KindShopFloor):
			ctx.ShopFloor = append(ctx.ShopFloor, r)
			if r.Open() {
				ctx.OpenShopFloor = append(ctx.OpenShopFloor, r)
			}
		}
	}
	return ctx
}
