// Package hours answers whether the restaurant is taking orders right now and
// which pickup slots are still available today.
package hours

import (
	"fmt"
	"time"
)

const (
	DefaultOpen     = 14
	DefaultClose    = 22
	DefaultLocation = "America/Mexico_City"

	// PrepTime is the minimum lead time for a pickup slot.
	PrepTime = 30 * time.Minute
	// SlotStep is the spacing between pickup slots.
	SlotStep = 30 * time.Minute
)

// Schedule is a daily opening window in a fixed location.
// Close is exclusive: a 14–22 schedule takes orders until 21:59.
type Schedule struct {
	open, close int
	loc         *time.Location
}

// New validates the window and builds a Schedule.
func New(open, close int, loc *time.Location) (*Schedule, error) {
	if open < 0 || close > 24 || open >= close {
		return nil, fmt.Errorf("invalid business hours %d-%d", open, close)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Schedule{open: open, close: close, loc: loc}, nil
}

// Load is New with a location name. An unknown zone falls back to UTC-6,
// which is Mexico City's offset since 2022.
func Load(open, close int, zone string) (*Schedule, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.FixedZone("CST", -6*60*60)
	}
	return New(open, close, loc)
}

// Default is the 14:00 to 22:00 Mexico City schedule.
func Default() *Schedule {
	s, _ := Load(DefaultOpen, DefaultClose, DefaultLocation)
	return s
}

// Location returns the schedule's time zone.
func (s *Schedule) Location() *time.Location {
	return s.loc
}

// IsOpen reports whether t falls inside the opening window.
func (s *Schedule) IsOpen(t time.Time) bool {
	h := t.In(s.loc).Hour()
	return h >= s.open && h < s.close
}

// BeforeOpening reports whether t is earlier than today's opening.
func (s *Schedule) BeforeOpening(t time.Time) bool {
	return t.In(s.loc).Hour() < s.open
}

// Contains reports whether the local wall time hh:mm is inside the window.
func (s *Schedule) Contains(hour, minute int) bool {
	m := hour*60 + minute
	return m >= s.open*60 && m < s.close*60
}

// NextOpening returns the next time the window opens after t, or t itself when open.
func (s *Schedule) NextOpening(t time.Time) time.Time {
	if s.IsOpen(t) {
		return t
	}
	local := t.In(s.loc)
	opening := time.Date(local.Year(), local.Month(), local.Day(), s.open, 0, 0, 0, s.loc)
	if !local.Before(opening) {
		opening = opening.AddDate(0, 0, 1)
	}
	return opening
}

// Slots lists up to n pickup times as "HH:MM", starting PrepTime after now
// rounded up to SlotStep. When nothing is left today the slots start at the
// next opening.
func (s *Schedule) Slots(now time.Time, n int) []string {
	local := now.In(s.loc)
	start := local.Add(PrepTime)
	if r := start.Truncate(SlotStep); r.Before(start) {
		start = r.Add(SlotStep)
	}

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.loc)
	opening := day.Add(time.Duration(s.open) * time.Hour)
	closing := day.Add(time.Duration(s.close) * time.Hour)
	if !start.Before(closing) {
		opening = opening.AddDate(0, 0, 1)
		closing = closing.AddDate(0, 0, 1)
	}
	if start.Before(opening) {
		start = opening
	}

	var out []string
	for t := start; t.Before(closing) && len(out) < n; t = t.Add(SlotStep) {
		out = append(out, t.Format("15:04"))
	}
	return out
}

// String renders "14:00 a 22:00".
func (s *Schedule) String() string {
	return fmt.Sprintf("%02d:00 a %02d:00", s.open, s.close)
}
