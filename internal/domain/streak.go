package domain

import "time"

// Streak tracks consecutive calendar days with qualifying reading activity.
type Streak struct {
	Current      int        `json:"current"`
	Longest      int        `json:"longest"`
	LastReadDate *time.Time `json:"last_read_date,omitempty"`
}

// Record advances the streak for reading activity at now and returns true
// if anything changed.
//
// Days are compared at calendar-day granularity in now's location, so
// reading at 23:50 and again at 00:10 counts as two consecutive days.
// A gap of more than one day breaks the streak. A negative day difference
// (clock skew, out-of-order calls) is treated as a same-day no-op, which
// also keeps LastReadDate anchored so repeated same-day calls cannot walk
// it forward across midnight.
func (s *Streak) Record(now time.Time) bool {
	if s.LastReadDate == nil {
		s.Current = 1
		if s.Longest < 1 {
			s.Longest = 1
		}
		s.LastReadDate = &now
		return true
	}

	switch days := calendarDaysBetween(*s.LastReadDate, now); {
	case days <= 0:
		return false
	case days == 1:
		s.Current++
		if s.Current > s.Longest {
			s.Longest = s.Current
		}
	default:
		s.Current = 1
	}
	s.LastReadDate = &now
	return true
}

// ReadToday returns true if the last qualifying read was on now's
// calendar day.
func (s *Streak) ReadToday(now time.Time) bool {
	return s.LastReadDate != nil && calendarDaysBetween(*s.LastReadDate, now) == 0
}

// calendarDaysBetween returns the number of calendar-day boundaries between
// from and to, evaluated in to's location. Negative if from is later.
func calendarDaysBetween(from, to time.Time) int {
	loc := to.Location()
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, loc)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, loc)
	return int(end.Sub(start) / (24 * time.Hour))
}
