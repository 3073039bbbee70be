package builder

import (
	"fmt"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// StepExtra prices the selections of one step. The first IncludedSelections
// entries, in selection order, are free; each later entry costs the step's
// per-selection price plus the option's own premium.
func StepExtra(step domain.Step, selected []domain.OptionID) domain.Money {
	var extra domain.Money
	for i, id := range selected {
		if i < step.IncludedSelections {
			continue
		}
		opt, ok := step.Option(id)
		if !ok {
			continue
		}
		extra += step.PriceExtraPerSelection + opt.PriceExtra
	}
	return extra
}

// Price is the base price plus the extras of every step.
func Price(p domain.Product, selections map[domain.StepID][]domain.OptionID) domain.Money {
	total := p.BasePrice
	for _, st := range p.Steps {
		total += StepExtra(st, selections[st.ID])
	}
	return total
}

// Describe renders one line per step with selections, e.g. "Proteína: Atún, Salmón (+$40)".
func Describe(p domain.Product, selections map[domain.StepID][]domain.OptionID) []string {
	var lines []string
	for _, st := range p.Steps {
		sel := selections[st.ID]
		if len(sel) == 0 {
			continue
		}
		line := st.Name + ": " + strings.Join(optionNames(st, sel), ", ")
		if extra := StepExtra(st, sel); extra > 0 {
			line += fmt.Sprintf(" (+%s)", extra)
		}
		lines = append(lines, line)
	}
	return lines
}

// Item builds the cart line for a finished product.
func Item(p domain.Product, selections map[domain.StepID][]domain.OptionID) domain.LineItem {
	return domain.LineItem{
		ProductID: p.ID,
		Slug:      p.Slug,
		Name:      p.Name,
		UnitPrice: Price(p, selections),
		Quantity:  1,
		Details:   Describe(p, selections),
	}
}

func optionNames(st domain.Step, ids []domain.OptionID) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if o, ok := st.Option(id); ok {
			names = append(names, o.Name)
		}
	}
	return names
}
