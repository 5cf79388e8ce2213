package fiscal

import (
	"fmt"
	"time"
)

// Resolver derives fiscal-year labels such as "81/82" from dates. The
// cutover month is the first month of the fiscal year in the configured
// calendar (Shrawan, month 4, for Nepali fiscal years).
type Resolver struct {
	calendar Calendar
	cutover  int
}

// NewResolver validates the cutover month and builds a Resolver.
func NewResolver(calendar Calendar, cutoverMonth int) (*Resolver, error) {
	if calendar == nil {
		return nil, fmt.Errorf("fiscal: calendar required")
	}
	if cutoverMonth < 1 || cutoverMonth > 12 {
		return nil, fmt.Errorf("fiscal: cutover month %d out of range", cutoverMonth)
	}
	return &Resolver{calendar: calendar, cutover: cutoverMonth}, nil
}

// Label returns the fiscal-year label for t, formatted "YY/YY".
func (r *Resolver) Label(t time.Time) (string, error) {
	year, month, err := r.calendar.YearMonth(t)
	if err != nil {
		return "", err
	}
	start := year
	if month < r.cutover {
		start = year - 1
	}
	return fmt.Sprintf("%02d/%02d", start%100, (start+1)%100), nil
}

// Calendar exposes the configured calendar, mostly for logging.
func (r *Resolver) Calendar() Calendar {
	return r.calendar
}
