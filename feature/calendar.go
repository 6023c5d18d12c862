package feature

import (
	"time"

	"github.com/aouyang1/go-pricecast/timedataset"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

const (
	ColumnWeekend = "is_weekend"
	ColumnHoliday = "is_holiday"
)

// DefaultHolidays are the US market holidays flagged by AddCalendar
var DefaultHolidays = []*cal.Holiday{
	us.NewYear,
	us.MemorialDay,
	us.IndependenceDay,
	us.LaborDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

type day struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) day {
	y, m, d := t.Date()
	return day{y, m, d}
}

// holidayDays returns the observed dates of each holiday for every year spanned by start and end
func holidayDays(hols []*cal.Holiday, start, end time.Time) map[day]string {
	days := make(map[day]string)
	for year := start.Year(); year <= end.Year(); year++ {
		for _, hol := range hols {
			_, observed := hol.Calc(year)
			if observed.IsZero() {
				continue
			}
			days[dayOf(observed)] = hol.Name
		}
	}
	return days
}

// IsWeekend reports whether t falls on a Saturday or Sunday in its own location
func IsWeekend(t time.Time) bool {
	wkday := t.Weekday()
	return wkday == time.Saturday || wkday == time.Sunday
}

// AddCalendar appends weekend and holiday indicator columns to the dataset. Rows are evaluated in
// their own timezone. A nil holiday list uses DefaultHolidays.
func AddCalendar(d *timedataset.Dataset, hols []*cal.Holiday) error {
	if hols == nil {
		hols = DefaultHolidays
	}

	weekend := make([]float64, d.Len())
	holiday := make([]float64, d.Len())
	if d.Len() > 0 {
		t := d.Times()
		days := holidayDays(hols, t.StartTime(), t.EndTime())
		for i, tPnt := range t {
			if IsWeekend(tPnt) {
				weekend[i] = 1
			}
			if _, exists := days[dayOf(tPnt)]; exists {
				holiday[i] = 1
			}
		}
	}

	if err := d.AddColumn(ColumnWeekend, weekend); err != nil {
		return err
	}
	return d.AddColumn(ColumnHoliday, holiday)
}
