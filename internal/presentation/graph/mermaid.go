// Package graph draws the builder flow of a product as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// Overlay marks a customer's progress through the flow.
type Overlay struct {
	// Done lists steps that already have selections.
	Done []domain.StepID
	// Current is the step waiting for input.
	Current domain.StepID
}

// OverlayFrom derives the overlay of a session sitting in the builder.
// It returns nil when the builder state is for another product.
func OverlayFrom(p domain.Product, st domain.BuilderState) *Overlay {
	if st.ProductSlug != p.Slug {
		return nil
	}
	o := &Overlay{}
	for i, step := range p.Steps {
		if i == st.StepIndex {
			o.Current = step.ID
		}
		if len(st.Selections[step.ID]) > 0 {
			o.Done = append(o.Done, step.ID)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart for the steps of p:
//   - start and cart: ((Circle))
//   - single select steps: {Rhombus}
//   - multi select steps: [/Parallelogram/]
//
// Every step can be cancelled back to the main menu.
func GenerateMermaid(p domain.Product, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "    start((\"%s<br/>%s\"))\n", escape(p.Name), p.BasePrice)
	sb.WriteString("    cart((\"🛒 carrito\"))\n")
	sb.WriteString("    menu[\"menú principal\"]\n")

	prev := "start"
	for _, step := range p.Steps {
		id := "step_" + sanitizeID(string(step.ID))
		opener, closer := "[/", "/]"
		if step.SingleSelect() {
			opener, closer = "{", "}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s<br/>%s\"%s\n", id, opener, escape(step.DisplayName()), rules(step), closer)
		fmt.Fprintf(&sb, "    %s --> %s\n", prev, id)
		fmt.Fprintf(&sb, "    %s -. cancelar .-> menu\n", id)
		prev = id
	}
	fmt.Fprintf(&sb, "    %s -- listo --> cart\n", prev)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef done fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, s := range overlay.Done {
			if s != overlay.Current {
				fmt.Fprintf(&sb, "    class step_%s done;\n", sanitizeID(string(s)))
			}
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class step_%s current;\n", sanitizeID(string(overlay.Current)))
		}
	}
	return sb.String()
}

// rules summarizes the selection limits and pricing of a step.
func rules(s domain.Step) string {
	var parts []string
	switch {
	case s.SingleSelect():
		parts = append(parts, "elige 1")
	case s.MaxSelections > 0:
		parts = append(parts, fmt.Sprintf("%d a %d", s.MinSelections, s.MaxSelections))
	default:
		parts = append(parts, fmt.Sprintf("mínimo %d", s.MinSelections))
	}
	if s.PriceExtraPerSelection > 0 {
		parts = append(parts, fmt.Sprintf("%d incluidas, +%s c/u", s.IncludedSelections, s.PriceExtraPerSelection))
	}
	return strings.Join(parts, ", ")
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
