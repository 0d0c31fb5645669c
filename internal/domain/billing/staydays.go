package billing

import "time"

// StayDays counts the billable days of a stay. Policy: every started
// calendar day is one billable day, so a same-day stay bills 1 and an
// 11pm-to-1am stay spanning midnight bills 2. Timestamps within a day do not
// matter beyond which calendar day they fall on.
//
// end is the discharge time for a closed stay; callers pass the current time
// for an ongoing one so it accrues day by day.
func StayDays(admitted, end time.Time) int {
	end = end.In(admitted.Location())
	a := time.Date(admitted.Year(), admitted.Month(), admitted.Day(), 0, 0, 0, 0, admitted.Location())
	b := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, admitted.Location())
	days := int(b.Sub(a).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}
