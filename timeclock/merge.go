package timeclock

import "strconv"

// TechnicianDay is one roster entry together with every punch row recorded
// for them today. Punches is empty for technicians who have not punched.
type TechnicianDay struct {
	TechnicianRosterEntry
	Punches []RawPunchRecord
}

// MergeRoster left-joins the roster with today's punches on
// (EmpId, EmpName, BrnId). Every roster entry survives the join, so
// technicians with no punches still get a board row. When branch is non-empty
// both sides are restricted to that branch id (string comparison) before
// merging. Output order follows the roster.
func MergeRoster(roster []TechnicianRosterEntry, punches []RawPunchRecord, branch string) []TechnicianDay {
	type joinKey struct {
		empID   int64
		empName string
		brnID   int64
	}

	byKey := make(map[joinKey][]RawPunchRecord)
	for _, p := range punches {
		if branch != "" && strconv.FormatInt(p.BrnID, 10) != branch {
			continue
		}
		k := joinKey{p.EmpID, p.EmpName, p.BrnID}
		byKey[k] = append(byKey[k], p)
	}

	var merged []TechnicianDay
	for _, entry := range roster {
		if branch != "" && strconv.FormatInt(entry.BrnID, 10) != branch {
			continue
		}
		k := joinKey{entry.EmpID, entry.EmpName, entry.BrnID}
		merged = append(merged, TechnicianDay{
			TechnicianRosterEntry: entry,
			Punches:               byKey[k],
		})
	}
	return merged
}
