package builder_test

import (
	"testing"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/builder"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/stretchr/testify/assert"
)

var extrasStep = domain.Step{
	ID: "extras", Name: "Extras",
	MinSelections: 0, MaxSelections: 0, IncludedSelections: 1,
	PriceExtraPerSelection: domain.Pesos(10),
	Options: []domain.Option{
		{ID: "a", Name: "Alga"},
		{ID: "b", Name: "Betabel"},
		{ID: "c", Name: "Chile", PriceExtra: domain.Pesos(5)},
	},
}

func TestStepExtra_IncludedCountsInSelectionOrder(t *testing.T) {
	sel, _ := builder.Toggle(extrasStep, nil, "a")
	sel, _ = builder.Toggle(extrasStep, sel, "b")
	assert.Equal(t, []domain.OptionID{"a", "b"}, sel)
	assert.Equal(t, domain.Pesos(10), builder.StepExtra(extrasStep, sel))

	sel, _ = builder.Toggle(extrasStep, sel, "a")
	assert.Equal(t, []domain.OptionID{"b"}, sel)
	assert.Equal(t, domain.Money(0), builder.StepExtra(extrasStep, sel))

	sel, _ = builder.Toggle(extrasStep, sel, "a")
	assert.Equal(t, []domain.OptionID{"b", "a"}, sel)
	assert.Equal(t, domain.Pesos(10), builder.StepExtra(extrasStep, sel))
}

func TestStepExtra_PremiumFollowsPosition(t *testing.T) {
	// The premium option is free while it sits inside the included slots.
	assert.Equal(t, domain.Pesos(10), builder.StepExtra(extrasStep, []domain.OptionID{"c", "a"}))
	assert.Equal(t, domain.Pesos(15), builder.StepExtra(extrasStep, []domain.OptionID{"a", "c"}))
}

func TestStepExtra_MonotonicInSelections(t *testing.T) {
	var sel []domain.OptionID
	prev := builder.StepExtra(extrasStep, sel)
	for _, id := range []domain.OptionID{"a", "b", "c"} {
		sel, _ = builder.Toggle(extrasStep, sel, id)
		cur := builder.StepExtra(extrasStep, sel)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestToggle(t *testing.T) {
	single := domain.Step{ID: "base", MaxSelections: 1, Options: []domain.Option{{ID: "x"}, {ID: "y"}}}
	capped := domain.Step{ID: "prot", MaxSelections: 2, Options: []domain.Option{{ID: "x"}, {ID: "y"}, {ID: "z"}}}

	t.Run("single select replaces", func(t *testing.T) {
		sel, ok := builder.Toggle(single, []domain.OptionID{"x"}, "y")
		assert.True(t, ok)
		assert.Equal(t, []domain.OptionID{"y"}, sel)
	})

	t.Run("twice is identity", func(t *testing.T) {
		start := []domain.OptionID{"x"}
		sel, _ := builder.Toggle(capped, start, "y")
		sel, _ = builder.Toggle(capped, sel, "y")
		assert.Equal(t, start, sel)
	})

	t.Run("full step refuses new options", func(t *testing.T) {
		sel, ok := builder.Toggle(capped, []domain.OptionID{"x", "y"}, "z")
		assert.False(t, ok)
		assert.Equal(t, []domain.OptionID{"x", "y"}, sel)
	})

	t.Run("full step still removes", func(t *testing.T) {
		sel, ok := builder.Toggle(capped, []domain.OptionID{"x", "y"}, "x")
		assert.True(t, ok)
		assert.Equal(t, []domain.OptionID{"y"}, sel)
	})
}

func TestMatchOptions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []domain.OptionID
	}{
		{"reply id", "opt:b", []domain.OptionID{"b"}},
		{"unknown reply id", "opt:z", nil},
		{"raw id", "c", []domain.OptionID{"c"}},
		{"number", "2", []domain.OptionID{"b"}},
		{"number out of range", "9", nil},
		{"names in text order", "chile y alga", []domain.OptionID{"c", "a"}},
		{"no match", "queso", []domain.OptionID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := builder.MatchOptions(extrasStep, tt.text)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
