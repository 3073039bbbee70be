package hours_test

import (
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/hours"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cdmx = time.FixedZone("CST", -6*60*60)

func at(h, m int) time.Time {
	return time.Date(2026, 6, 5, h, m, 0, 0, cdmx)
}

func TestSchedule_IsOpen(t *testing.T) {
	s, err := hours.New(14, 22, cdmx)
	require.NoError(t, err)

	tests := []struct {
		at   time.Time
		open bool
	}{
		{at(13, 59), false},
		{at(14, 0), true},
		{at(21, 59), true},
		{at(22, 0), false},
		{at(3, 0), false},
		// 20:30 UTC is 14:30 in Mexico City.
		{time.Date(2026, 6, 5, 20, 30, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.open, s.IsOpen(tt.at), tt.at.String())
	}
	assert.True(t, s.BeforeOpening(at(9, 0)))
	assert.False(t, s.BeforeOpening(at(23, 0)))
}

func TestSchedule_RejectsInvalidWindow(t *testing.T) {
	_, err := hours.New(22, 14, cdmx)
	assert.Error(t, err)
	_, err = hours.New(10, 25, cdmx)
	assert.Error(t, err)
}

func TestSchedule_NextOpening(t *testing.T) {
	s, _ := hours.New(14, 22, cdmx)

	assert.Equal(t, at(14, 0), s.NextOpening(at(9, 15)))
	assert.Equal(t, at(14, 0).AddDate(0, 0, 1), s.NextOpening(at(23, 0)))
	assert.Equal(t, at(15, 0), s.NextOpening(at(15, 0)))
}

func TestSchedule_Slots(t *testing.T) {
	s, _ := hours.New(14, 22, cdmx)

	assert.Equal(t, []string{"15:30", "16:00", "16:30"}, s.Slots(at(15, 0), 3))
	assert.Equal(t, []string{"15:30"}, s.Slots(at(14, 50), 1), "lead time rounds up to the next slot")
	assert.Equal(t, []string{"14:00", "14:30"}, s.Slots(at(9, 0), 2), "before opening starts at opening")
	assert.Equal(t, []string{"21:30"}, s.Slots(at(21, 0), 5))
	assert.Equal(t, []string{"14:00", "14:30"}, s.Slots(at(21, 40), 2), "after the last slot rolls to tomorrow")
}
