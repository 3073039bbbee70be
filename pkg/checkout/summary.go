package checkout

import (
	"fmt"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/hours"
)

const maxSlots = domain.MaxListRows - 1

// prompt renders the question of the current step, preceded by notice when set.
func (m *Machine) prompt(sess *domain.Session, st domain.CheckoutState, notice string) domain.Response {
	var resp domain.Response
	switch st.Step {
	case domain.StepCollectName:
		if st.NameOffered && sess.Profile.Name != "" {
			resp = domain.WithButtons(fmt.Sprintf("¿Lo ponemos a nombre de *%s*?", sess.Profile.Name),
				domain.Button{ID: ReplyNameYes, Title: "Sí"},
				domain.Button{ID: ReplyNameOther, Title: "Otro nombre"})
		} else {
			resp = domain.Text("¿A nombre de quién lo registramos?")
		}
	case domain.StepCollectDelivery:
		resp = domain.WithButtons(fmt.Sprintf("Gracias, %s. ¿Cómo quieres recibir tu pedido?", st.CustomerName),
			domain.Button{ID: ReplyPickup, Title: "🏪 Recoger en tienda"},
			domain.Button{ID: ReplyDelivery, Title: "🛵 A domicilio"})
	case domain.StepCollectPickupTime:
		resp = m.slotPrompt()
	case domain.StepCollectAddress:
		resp = domain.Text("¿A qué dirección lo enviamos? Escribe calle, número y colonia, o comparte tu ubicación 📍.")
		if sess.Profile.Address != "" {
			resp.Text += fmt.Sprintf("\n\nLa última vez fue a: %s", sess.Profile.Address)
			resp.Buttons = []domain.Button{{ID: ReplyAddressSame, Title: "Misma dirección"}}
		}
	case domain.StepShowSummary:
		resp = domain.WithButtons(Summary(st),
			domain.Button{ID: ReplyConfirm, Title: "✅ Confirmar"},
			domain.Button{ID: ReplyCancel, Title: "❌ Cancelar"})
	}
	if notice != "" {
		resp.Text = "⚠️ " + notice + "\n\n" + resp.Text
	}
	return resp
}

func (m *Machine) slotPrompt() domain.Response {
	now := m.clock.Now()
	var rows []domain.Row
	if m.schedule.IsOpen(now) {
		rows = append(rows, domain.Row{ID: ReplyASAP, Title: asapLabel, Description: "En cuanto esté listo"})
	}
	for _, s := range m.schedule.Slots(now, maxSlots) {
		rows = append(rows, domain.Row{ID: slotPrefix + s, Title: s})
	}
	return domain.Response{
		Text: "⏰ ¿A qué hora pasas por él?",
		List: &domain.List{
			ButtonText: "Ver horarios",
			Sections:   []domain.Section{{Title: "Horarios", Rows: rows}},
		},
	}
}

// Summary renders the order for the final confirmation.
func Summary(st domain.CheckoutState) string {
	var b strings.Builder
	b.WriteString("📝 *Resumen de tu pedido*\n\n")
	for _, it := range st.Items {
		fmt.Fprintf(&b, "• %s: %s\n", it.Label(), it.Subtotal())
		for _, d := range it.Details {
			fmt.Fprintf(&b, "   - %s\n", d)
		}
	}
	fmt.Fprintf(&b, "\n💰 *Total: %s*\n", st.Total)
	fmt.Fprintf(&b, "👤 %s\n", st.CustomerName)
	switch st.DeliveryMethod {
	case domain.DeliveryPickup:
		fmt.Fprintf(&b, "🏪 Recoger en tienda: %s\n", st.PickupTime)
	case domain.DeliveryDelivery:
		fmt.Fprintf(&b, "🛵 A domicilio: %s\n", st.Address)
	}
	b.WriteString("\n¿Confirmamos tu pedido?")
	return b.String()
}

// Confirmation is the message sent once the order is stored.
func Confirmation(o *domain.Order, sched *hours.Schedule) domain.Response {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 ¡Listo, %s! Tu pedido *#%s* por %s quedó registrado.\n", o.CustomerName, ShortID(o.ID), o.Total)
	switch {
	case o.Status == domain.OrderPreOrder:
		opening := sched.NextOpening(o.CreatedAt).In(sched.Location())
		fmt.Fprintf(&b, "Por ahora estamos cerrados; lo preparamos en cuanto abramos a las %s.", opening.Format("15:04"))
	case o.DeliveryMethod == domain.DeliveryPickup:
		fmt.Fprintf(&b, "Te esperamos en tienda (%s). 🥢", strings.ToLower(o.PickupTime))
	default:
		b.WriteString("Te avisamos cuando vaya en camino. 🛵")
	}
	return domain.Text(b.String())
}
