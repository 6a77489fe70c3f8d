package marketclock

import (
	"fmt"
	"time"

	"github.com/seojun-park/kisbot/internal/domain"
)

// Regular trading session of the Korea Exchange. Exchange holidays are not
// modelled; only the weekday session window is checked.
const (
	openHour    = 9
	openMinute  = 0
	closeHour   = 15
	closeMinute = 30
)

// Clock answers questions about the trading session in a fixed timezone.
type Clock struct {
	loc *time.Location
}

// New creates a Clock for the given IANA timezone, e.g. "Asia/Seoul".
func New(timezone string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Clock{loc: loc}, nil
}

// MustNew is New for well-known timezones; it panics on failure.
func MustNew(timezone string) *Clock {
	c, err := New(timezone)
	if err != nil {
		panic(err)
	}
	return c
}

// Location returns the exchange's local timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// IsOpen reports whether the market is in its regular session at t.
func (c *Clock) IsOpen(t time.Time) bool {
	local := t.In(c.loc)
	if isWeekend(local) {
		return false
	}
	open := sessionOpen(local)
	close := sessionClose(local)
	return !local.Before(open) && local.Before(close)
}

// NextOpen returns the next session open at or after t. If t falls before
// today's open on a business day, today's open is returned.
func (c *Clock) NextOpen(t time.Time) time.Time {
	local := t.In(c.loc)
	if !isWeekend(local) && local.Before(sessionOpen(local)) {
		return sessionOpen(local)
	}
	day := local.AddDate(0, 0, 1)
	for isWeekend(day) {
		day = day.AddDate(0, 0, 1)
	}
	return sessionOpen(day)
}

// Status returns a session snapshot at t.
func (c *Clock) Status(t time.Time) domain.MarketStatus {
	local := t.In(c.loc)
	return domain.MarketStatus{
		Open:     c.IsOpen(t),
		Now:      local,
		NextOpen: c.NextOpen(t),
		Close:    sessionClose(local),
	}
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func sessionOpen(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), openHour, openMinute, 0, 0, t.Location())
}

func sessionClose(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), closeHour, closeMinute, 0, 0, t.Location())
}
