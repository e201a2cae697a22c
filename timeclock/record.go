// Package timeclock computes the live technician status board from raw
// time-punch intervals: who is clocked in, who is working an order, and how
// long they have been idle.
package timeclock

import "time"

// Interval kinds as they appear in the punches view (ItmTypDes column).
const (
	KindAttendance = "Attendance"
	KindShopFloor  = "Shop-Floor"
)

// ClockStatus reports whether a technician currently has an open attendance
// interval.
type ClockStatus string

const (
	ClockedIn ClockStatus = "Clocked-In"
	OffClock  ClockStatus = "Off Clock"
)

// OrderStatus reports whether a technician currently has an open shop-floor
// interval.
type OrderStatus string

const (
	OnOrder    OrderStatus = "On RO"
	NotOnOrder OrderStatus = "Not on RO"
)

// RawPunchRecord is one row from the daily punches view. An interval is open
// while DateEnd is nil. Shop-floor rows carry the repair order, job and
// customer; attendance rows leave them nil.
type RawPunchRecord struct {
	EmpID     int64      `json:"EmpId"`
	EmpName   string     `json:"EmpName"`
	BrnID     int64      `json:"BrnId"`
	Kind      string     `json:"ItmTypDes"`
	DateStart time.Time  `json:"DateStart"`
	DateEnd   *time.Time `json:"DateEnd"`
	SlsID     *string    `json:"SlsId"`
	OpsID     *string    `json:"OpsId"`
	CusName   *string    `json:"CusName"`
	HrsActual float64    `json:"HrsActual"`
	HrsBill   float64    `json:"HrsBill"`
}

// Open reports whether the interval is still in progress.
func (r RawPunchRecord) Open() bool {
	return r.DateEnd == nil
}

// TechnicianRosterEntry identifies one active technician. Every roster entry
// appears on the board, punched or not.
type TechnicianRosterEntry struct {
	EmpID   int64  `json:"EmpId"`
	EmpName string `json:"EmpName"`
	BrnID   int64  `json:"BrnId"`
}

// TechnicianStatus is one board row. Pointer fields serialize as JSON null
// when the underlying value is undefined for the technician.
type TechnicianStatus struct {
	EmpID           int64       `json:"EmpId"`
	EmpName         string      `json:"EmpName"`
	BrnID           int64       `json:"BrnId"`
	ClockStatus     ClockStatus `json:"ClockStatus"`
	OnWorkOrder     OrderStatus `json:"OnWorkOrder"`
	CurrentRO       *string     `json:"CurrentRO"`
	Job             *string     `json:"Job"`
	CurrentCustomer *string     `json:"CurrentCustomer"`
	ROStartTime     *string     `json:"ROStartTime"`
	TimeElapsed     *string     `json:"TimeElapsed"`
	HrsActual       float64     `json:"HrsActual"`
	HrsBill         float64     `json:"HrsBill"`
	CurrentIdle     *string     `json:"CurrentIdle"`
	TotalIdle       *string     `json:"TotalIdle"`
	TimeElapsedText string      `json:"TimeElapsedDisplay"`
}
