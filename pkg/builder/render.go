package builder

import (
	"fmt"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/textnorm"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// Prompt renders the current step as a selectable list. The text body carries
// the running selection and total, plus a numbered fallback when the list
// cannot show every option.
func Prompt(p domain.Product, st domain.BuilderState, notices []string) domain.Response {
	step := p.Steps[st.StepIndex]
	sel := st.Selections[step.ID]

	var b strings.Builder
	for _, n := range notices {
		b.WriteString(n)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "*%s* (%d/%d)\n", step.DisplayName(), st.StepIndex+1, len(p.Steps))
	b.WriteString(rules(step))
	if len(sel) > 0 {
		fmt.Fprintf(&b, "\nLlevas: %s", strings.Join(optionNames(step, sel), ", "))
	}
	fmt.Fprintf(&b, "\nTotal hasta ahora: %s", Price(p, st.Selections))

	canFinish := !step.SingleSelect() && len(sel) >= step.MinSelections
	rows := make([]domain.Row, 0, domain.MaxListRows)
	if canFinish {
		rows = append(rows, domain.Row{ID: DoneReplyID, Title: "✅ Listo", Description: "Continuar al siguiente paso"})
	}
	for i, o := range step.Options {
		if len(rows) == domain.MaxListRows {
			b.WriteString("\n\nTambién puedes escribir:")
			for _, rest := range step.Options[i:] {
				fmt.Fprintf(&b, "\n• %s", rest.Name)
			}
			break
		}
		title := o.Name
		if contains(sel, o.ID) {
			title = "✓ " + title
		}
		rows = append(rows, domain.Row{
			ID:          OptionReplyPrefix + string(o.ID),
			Title:       textnorm.Truncate(title, domain.MaxRowTitle),
			Description: priceHint(step, sel, o),
		})
	}

	if canFinish {
		b.WriteString("\n\nCuando termines, elige *Listo*.")
	}
	return domain.Response{
		Text: b.String(),
		List: &domain.List{
			ButtonText: "Ver opciones",
			Sections:   []domain.Section{{Title: textnorm.Truncate(step.Name, domain.MaxRowTitle), Rows: rows}},
		},
	}
}

func rules(step domain.Step) string {
	var parts []string
	switch {
	case step.SingleSelect():
		parts = append(parts, "Elige 1 opción.")
	case step.MaxSelections > 0:
		parts = append(parts, fmt.Sprintf("Elige hasta %d.", step.MaxSelections))
	default:
		parts = append(parts, "Elige las que quieras.")
	}
	if step.IncludedSelections > 0 && !step.SingleSelect() {
		parts = append(parts, fmt.Sprintf("Incluye %d.", step.IncludedSelections))
	}
	if step.PriceExtraPerSelection > 0 {
		parts = append(parts, fmt.Sprintf("Extra: %s c/u.", step.PriceExtraPerSelection))
	}
	return strings.Join(parts, " ")
}

// priceHint tells what picking o now would cost.
func priceHint(step domain.Step, sel []domain.OptionID, o domain.Option) string {
	if contains(sel, o.ID) {
		return "Seleccionado (toca para quitar)"
	}
	if step.SingleSelect() || len(sel) < step.IncludedSelections {
		return "Incluido"
	}
	if extra := step.PriceExtraPerSelection + o.PriceExtra; extra > 0 {
		return "+" + extra.String()
	}
	return "Sin costo"
}

func contains(ids []domain.OptionID, id domain.OptionID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
