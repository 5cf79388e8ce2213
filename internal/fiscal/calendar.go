// Package fiscal maps calendar dates to fiscal-year labels. The calendar
// system is an injected strategy so Gregorian and Bikram Sambat deployments
// share the same resolver and sequence code paths.
package fiscal

import (
	"fmt"
	"time"
)

// Calendar places an instant into a calendar year and month.
type Calendar interface {
	Name() string
	YearMonth(t time.Time) (year int, month int, err error)
}

// Gregorian is the proleptic Gregorian calendar.
type Gregorian struct{}

func (Gregorian) Name() string { return "gregorian" }

func (Gregorian) YearMonth(t time.Time) (int, int, error) {
	return t.Year(), int(t.Month()), nil
}

// BikramSambat converts Gregorian instants into the Bikram Sambat calendar
// used by Nepali fiscal administration. Conversion walks a per-year table of
// month lengths from a fixed epoch (1 Baisakh 2070 = 14 April 2013).
type BikramSambat struct{}

func (BikramSambat) Name() string { return "bikram" }

var bsEpoch = time.Date(2013, time.April, 14, 0, 0, 0, 0, time.UTC)

const bsFirstYear = 2070

// Month lengths per Bikram Sambat year, Baisakh through Chaitra.
var bsMonthDays = [][12]int{
	{31, 31, 31, 32, 31, 31, 29, 30, 30, 29, 30, 30}, // 2070
	{31, 31, 32, 31, 31, 31, 29, 30, 30, 29, 30, 30}, // 2071
	{31, 32, 31, 32, 31, 30, 29, 30, 29, 30, 29, 31}, // 2072
	{31, 32, 31, 32, 31, 30, 29, 30, 29, 29, 30, 31}, // 2073
	{31, 31, 31, 32, 31, 31, 29, 30, 30, 29, 30, 30}, // 2074
	{31, 31, 32, 31, 31, 31, 29, 30, 29, 30, 29, 31}, // 2075
	{31, 32, 31, 32, 31, 30, 29, 30, 29, 30, 29, 31}, // 2076
	{31, 32, 31, 32, 31, 30, 30, 29, 30, 29, 30, 30}, // 2077
	{31, 31, 31, 32, 31, 31, 29, 30, 29, 30, 29, 31}, // 2078
	{31, 31, 32, 31, 31, 31, 29, 30, 29, 30, 29, 31}, // 2079
	{31, 32, 31, 32, 31, 30, 29, 30, 29, 30, 30, 30}, // 2080
	{31, 31, 32, 32, 31, 30, 30, 30, 29, 30, 30, 30}, // 2081
	{30, 32, 31, 32, 31, 30, 30, 30, 29, 30, 30, 30}, // 2082
	{31, 31, 32, 31, 31, 30, 30, 30, 29, 30, 30, 30}, // 2083
	{31, 31, 32, 31, 31, 30, 30, 30, 29, 30, 30, 30}, // 2084
	{31, 32, 31, 32, 30, 31, 30, 30, 29, 30, 30, 30}, // 2085
	{30, 32, 31, 32, 31, 30, 30, 30, 29, 30, 30, 30}, // 2086
	{31, 31, 32, 31, 31, 31, 30, 30, 29, 30, 30, 30}, // 2087
	{30, 31, 32, 32, 30, 31, 30, 30, 29, 30, 30, 30}, // 2088
	{30, 32, 31, 32, 31, 30, 30, 30, 29, 30, 30, 30}, // 2089
	{30, 32, 31, 32, 31, 30, 30, 30, 29, 30, 30, 30}, // 2090
}

func (BikramSambat) YearMonth(t time.Time) (int, int, error) {
	day := t.In(time.UTC).Truncate(24 * time.Hour)
	elapsed := int(day.Sub(bsEpoch).Hours() / 24)
	if elapsed < 0 {
		return 0, 0, fmt.Errorf("fiscal: date %s precedes bikram sambat table", t.Format("2006-01-02"))
	}
	for yi, months := range bsMonthDays {
		for mi, days := range months {
			if elapsed < days {
				return bsFirstYear + yi, mi + 1, nil
			}
			elapsed -= days
		}
	}
	return 0, 0, fmt.Errorf("fiscal: date %s beyond bikram sambat table", t.Format("2006-01-02"))
}

// CalendarByName resolves a configured calendar identifier.
func CalendarByName(name string) (Calendar, error) {
	switch name {
	case "", "gregorian":
		return Gregorian{}, nil
	case "bikram", "bikram-sambat", "bs":
		return BikramSambat{}, nil
	}
	return nil, fmt.Errorf("fiscal: unknown calendar %q", name)
}
