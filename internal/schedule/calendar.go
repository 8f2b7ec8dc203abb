package schedule

import (
	"fmt"
	"sync"
	"time"
)

// Exchange is the zone whose calendar date decides a market holiday.
const Exchange = "America/New_York"

// DateLayout is the format of extra closure dates.
const DateLayout = "2006-01-02"

// Calendar knows the full-day closures of the US cash market: the NYSE
// holiday rules plus configured one-off closures.
type Calendar struct {
	exchange *time.Location
	extra    map[time.Time]struct{}

	mu    sync.Mutex
	years map[int]map[time.Time]string
}

// NewCalendar loads the exchange zone and parses extra closures as YYYY-MM-DD.
func NewCalendar(closures []string) (*Calendar, error) {
	loc, err := time.LoadLocation(Exchange)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", Exchange, err)
	}
	c := &Calendar{
		exchange: loc,
		extra:    make(map[time.Time]struct{}, len(closures)),
		years:    map[int]map[time.Time]string{},
	}
	for _, s := range closures {
		d, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("invalid closure date %q: %w", s, err)
		}
		c.extra[d] = struct{}{}
	}
	return c, nil
}

// Closed returns why the market is shut for t, or "" when it trades.
// Weekends are checked on t's own date and on the exchange date, holidays
// on the exchange date only. A nil Calendar only knows local weekends.
func (c *Calendar) Closed(t time.Time) string {
	if !IsWeekday(t) {
		return "weekend"
	}
	if c == nil {
		return ""
	}
	ny := t.In(c.exchange)
	day := time.Date(ny.Year(), ny.Month(), ny.Day(), 0, 0, 0, 0, time.UTC)
	if _, ok := c.extra[day]; ok {
		return "closure"
	}
	if name, ok := c.holidays(day.Year())[day]; ok {
		return name
	}
	if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		return "weekend"
	}
	return ""
}

// IsTradingDay reports whether the market holds a session for t.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	return c.Closed(t) == ""
}

func (c *Calendar) holidays(year int) map[time.Time]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.years[year]
	if !ok {
		h = Holidays(year)
		c.years[year] = h
	}
	return h
}

// Holidays returns the NYSE full-day holidays of year, keyed by UTC midnight
// of the observed date.
func Holidays(year int) map[time.Time]string {
	h := map[time.Time]string{}
	add := func(d time.Time, name string) {
		if d.Year() == year {
			h[d] = name
		}
	}

	// New Year's Day falling on a Saturday is not observed on the Friday before.
	if ny := date(year, time.January, 1); ny.Weekday() != time.Saturday {
		add(observed(ny), "New Year's Day")
	}
	add(nthWeekday(year, time.January, time.Monday, 3), "Martin Luther King Jr. Day")
	add(nthWeekday(year, time.February, time.Monday, 3), "Washington's Birthday")
	add(easter(year).AddDate(0, 0, -2), "Good Friday")
	add(lastWeekday(year, time.May, time.Monday), "Memorial Day")
	if year >= 2022 {
		add(observed(date(year, time.June, 19)), "Juneteenth")
	}
	add(observed(date(year, time.July, 4)), "Independence Day")
	add(nthWeekday(year, time.September, time.Monday, 1), "Labor Day")
	add(nthWeekday(year, time.November, time.Thursday, 4), "Thanksgiving Day")
	add(observed(date(year, time.December, 25)), "Christmas Day")
	return h
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// observed moves a Saturday holiday to Friday and a Sunday one to Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	first := date(year, month, 1)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	last := date(year, month+1, 0)
	offset := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// easter is Gregorian Easter Sunday (anonymous Gregorian algorithm).
func easter(year int) time.Time {
	a := year % 19
	b, c := year/100, year%100
	d, e := b/4, b%4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i, k := c/4, c%4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day)
}
