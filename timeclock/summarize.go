package timeclock

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Engine runs the per-technician status computation. Now supplies the
// evaluation instant for a run; the default from New subtracts a fixed hour
// offset from UTC rather than doing calendar-aware timezone math, matching
// the shop's single-timezone deployment. Swap Now to change that.
type Engine struct {
	Now func() time.Time
}

// New returns an Engine whose evaluation instant is UTC minus offsetHours.
func New(offsetHours int) *Engine {
	return &Engine{
		Now: func() time.Time {
			return time.Now().UTC().Add(-time.Duration(offsetHours) * time.Hour)
		},
	}
}

// Run merges the roster with today's punches and produces one status row per
// roster entry. branch optionally restricts both inputs to one branch id.
// The evaluation instant is taken once, so every row in the result is
// consistent with the same "now".
func (e *Engine) Run(roster []TechnicianRosterEntry, punches []RawPunchRecord, branch string) []TechnicianStatus {
	now := e.Now()
	merged := MergeRoster(roster, punches, branch)

	statuses := make([]TechnicianStatus, 0, len(merged))
	for _, tech := range merged {
		statuses = append(statuses, summarizeTechnician(tech, now))
	}
	return statuses
}

// summarizeTechnician computes one board row. A panic while computing one
// technician must not blank the whole board, so it is recovered here and the
// technician falls back to a bare off-clock row.
func summarizeTechnician(tech TechnicianDay, now time.Time) (status TechnicianStatus) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("technician summary failed", "emp_id", tech.EmpID, "panic", r)
			status = offClockStatus(tech)
		}
	}()

	ctx := BuildContexts(tech.Punches)
	status = offClockStatus(tech)

	if len(ctx.OpenAttendance) > 0 {
		status.ClockStatus = ClockedIn
	}

	current := currentOpenShopFloor(ctx.OpenShopFloor)
	if current != nil {
		status.OnWorkOrder = OnOrder
		status.CurrentRO = current.SlsID
		status.Job = current.OpsID
		status.CurrentCustomer = truncateName(current.CusName, 20)
		start := current.DateStart.Format("3:04 PM")
		status.ROStartTime = &start
		elapsed := formatHHMM(now.Sub(current.DateStart))
		status.TimeElapsed = &elapsed
		status.TimeElapsedText = elapsed
	}

	for _, r := range ctx.OpenShopFloor {
		status.HrsActual += r.HrsActual
		status.HrsBill += r.HrsBill
	}
	status.HrsActual = round2(status.HrsActual)
	status.HrsBill = round2(status.HrsBill)

	status.CurrentIdle = currentIdle(ctx, current != nil, now)
	status.TotalIdle = totalIdle(ctx, now)

	return status
}

// offClockStatus is the row for a technician with nothing going on: off the
// clock, not on an order, every nullable field null.
func offClockStatus(tech TechnicianDay) TechnicianStatus {
	return TechnicianStatus{
		EmpID:           tech.EmpID,
		EmpName:         tech.EmpName,
		BrnID:           tech.BrnID,
		ClockStatus:     OffClock,
		OnWorkOrder:     NotOnOrder,
		TimeElapsedText: "00:00",
	}
}

// currentOpenShopFloor picks the open shop-floor interval shown as "current".
// With more than one open at once the latest start time wins, falling back to
// the last row in source order on an exact tie. One open interval is the
// normal case; concurrent opens are a data oddity the board still has to
// render something for.
func currentOpenShopFloor(open []RawPunchRecord) *RawPunchRecord {
	var current *RawPunchRecord
	for i := range open {
		if current == nil || !open[i].DateStart.Before(current.DateStart) {
			current = &open[i]
		}
	}
	return current
}

// currentIdle is how long the technician has been clocked in but off any
// order: defined only with an open attendance interval and no open shop-floor
// interval. Idle counts from the end of the last repair order closed today,
// or from the attendance start if none was closed yet.
func currentIdle(ctx Contexts, onShopFloor bool, now time.Time) *string {
	var shiftStart *time.Time
	for i := range ctx.OpenAttendance {
		s := ctx.OpenAttendance[i].DateStart
		if shiftStart == nil || s.After(*shiftStart) {
			shiftStart = &s
		}
	}
	if shiftStart == nil || onShopFloor {
		return nil
	}

	// latest closed order end today wins over the attendance start, even when
	// it is the earlier instant
	var lastEnd *time.Time
	for i := range ctx.ShopFloor {
		end := ctx.ShopFloor[i].DateEnd
		if end == nil || !sameDay(*end, now) {
			continue
		}
		if lastEnd == nil || end.After(*lastEnd) {
			lastEnd = end
		}
	}
	idleSince := *shiftStart
	if lastEnd != nil {
		idleSince = *lastEnd
	}

	idle := formatHHMM(now.Sub(idleSince))
	return &idle
}

// totalIdle is the shift time accumulated today that no shop-floor interval
// accounts for. Shift start is the first attendance punch today (open or
// closed); open orders count up to "now". Null with no attendance today.
func totalIdle(ctx Contexts, now time.Time) *string {
	var shiftStart *time.Time
	for i := range ctx.Attendance {
		s := ctx.Attendance[i].DateStart
		if !sameDay(s, now) {
			continue
		}
		if shiftStart == nil || s.Before(*shiftStart) {
			shiftStart = &s
		}
	}
	if shiftStart == nil {
		return nil
	}

	var onOrder time.Duration
	for _, r := range ctx.ShopFloor {
		if !sameDay(r.DateStart, now) {
			continue
		}
		end := now
		if r.DateEnd != nil {
			end = *r.DateEnd
		}
		onOrder += end.Sub(r.DateStart)
	}

	idle := now.Sub(*shiftStart) - onOrder
	if idle < 0 {
		idle = 0
	}
	formatted := formatHHMM(idle)
	return &formatted
}

// formatHHMM renders a duration as zero-padded HH:MM, truncating seconds.
// Hours past 99 keep their digits.
func formatHHMM(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/3600, (secs%3600)/60)
}

// truncateName keeps the first max runes of a customer name.
func truncateName(name *string, max int) *string {
	if name == nil {
		return nil
	}
	runes := []rune(*name)
	if len(runes) <= max {
		return name
	}
	short := string(runes[:max])
	return &short
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
