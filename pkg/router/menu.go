package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/textnorm"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// Reply id prefixes and ids produced by the menus below.
const (
	CategoryPrefix = "cat:"
	AddPrefix      = "add:"
	BuildPrefix    = "build:"

	MenuReplyID      = "menu"
	BuildReplyID     = "armar"
	CartReplyID      = "cart"
	CheckoutReplyID  = "checkout"
	ClearCartReplyID = "clear_cart"
	ReorderReplyID   = "lo de siempre"
	HelpReplyID      = "ayuda"
)

var (
	menuButton     = domain.Button{ID: MenuReplyID, Title: "Ver Menú"}
	buildButton    = domain.Button{ID: BuildReplyID, Title: "🥗 Arma tu poke"}
	checkoutButton = domain.Button{ID: CheckoutReplyID, Title: "Finalizar pedido"}
)

// categoriesMenu lists the categories, plus a shortcut to the builder.
func (r *Router) categoriesMenu(ctx context.Context) ([]domain.Response, error) {
	cats, err := r.catalog.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("router: failed to load categories: %w", err)
	}
	rows := make([]domain.Row, 0, domain.MaxListRows)
	if p, err := r.firstCustomizable(ctx); err == nil && p != nil {
		rows = append(rows, domain.Row{ID: BuildPrefix + p.Slug, Title: "🥗 Arma tu poke", Description: "Desde " + p.BasePrice.String()})
	}
	for _, c := range cats {
		if len(rows) == domain.MaxListRows {
			break
		}
		rows = append(rows, domain.Row{ID: CategoryPrefix + c.ID, Title: textnorm.Truncate(c.Name, domain.MaxRowTitle)})
	}
	return []domain.Response{{
		Text: "🥢 *Menú Yoko Poke*\n\n¿Qué se te antoja hoy? Elige una categoría.",
		List: &domain.List{
			Header:     "Yoko Poke",
			ButtonText: "Ver menú",
			Sections:   []domain.Section{{Title: "Categorías", Rows: rows}},
		},
	}}, nil
}

// productsMenu lists the available products of one category.
func (r *Router) productsMenu(ctx context.Context, cat domain.Category) ([]domain.Response, error) {
	products, err := r.catalog.GetProductsByCategory(ctx, cat.ID)
	if err != nil {
		return nil, fmt.Errorf("router: failed to load products of %s: %w", cat.ID, err)
	}
	if len(products) == 0 {
		return []domain.Response{domain.WithButtons(fmt.Sprintf("Por ahora no hay nada disponible en %s 😕.", cat.Name), menuButton)}, nil
	}

	rows := make([]domain.Row, 0, domain.MaxListRows)
	var more []string
	for _, p := range products {
		if len(rows) == domain.MaxListRows {
			more = append(more, fmt.Sprintf("• %s %s", p.Name, p.BasePrice))
			continue
		}
		row := domain.Row{ID: AddPrefix + p.Slug, Title: textnorm.Truncate(p.Name, domain.MaxRowTitle), Description: p.BasePrice.String()}
		if p.Customizable() {
			row.ID = BuildPrefix + p.Slug
			row.Description = "Desde " + p.BasePrice.String() + ", tú lo armas"
		}
		rows = append(rows, row)
	}

	text := fmt.Sprintf("*%s*\n\nElige lo que quieras agregar 👇", cat.Name)
	if len(more) > 0 {
		text += "\n\nTambién tenemos:\n" + strings.Join(more, "\n")
	}
	return []domain.Response{{
		Text: text,
		List: &domain.List{
			ButtonText: "Ver productos",
			Sections:   []domain.Section{{Title: textnorm.Truncate(cat.Name, domain.MaxRowTitle), Rows: rows}},
		},
	}}, nil
}

// cartView renders the cart with its total.
func cartView(cart []domain.LineItem) domain.Response {
	if len(cart) == 0 {
		return domain.WithButtons("🛒 Tu carrito está vacío. ¿Qué se te antoja?", menuButton, buildButton)
	}
	var b strings.Builder
	b.WriteString("🛍️ *Tu carrito:*\n")
	for _, it := range cart {
		fmt.Fprintf(&b, "• %s: %s\n", it.Label(), it.Subtotal())
		for _, d := range it.Details {
			fmt.Fprintf(&b, "   - %s\n", d)
		}
	}
	fmt.Fprintf(&b, "\n💰 *Total: %s*", domain.CartTotal(cart))
	return domain.WithButtons(b.String(),
		checkoutButton,
		menuButton,
		domain.Button{ID: ClearCartReplyID, Title: "Vaciar carrito"},
	)
}

// added confirms items put in the cart.
func added(items []domain.LineItem, cart []domain.LineItem) domain.Response {
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, "*"+it.Label()+"*")
	}
	text := fmt.Sprintf("✅ Agregué %s a tu carrito.\n\n🛒 Total: %s\n\n¿Algo más o finalizamos tu pedido?",
		strings.Join(labels, ", "), domain.CartTotal(cart))
	return domain.WithButtons(text, checkoutButton, menuButton)
}

func (r *Router) greeting(sess *domain.Session) domain.Response {
	hello := "¡Hola! 👋"
	if sess.Profile.Name != "" {
		hello = fmt.Sprintf("¡Hola, %s! 👋", sess.Profile.Name)
	}
	text := hello + " Bienvenido a *Yoko Poke* 🐼🥢\n\n¿Qué se te antoja hoy?"
	buttons := []domain.Button{menuButton, buildButton}
	if len(sess.Profile.LastOrder) > 0 {
		buttons = append(buttons, domain.Button{ID: ReorderReplyID, Title: "🔄 Lo de siempre"})
	}
	return domain.WithButtons(text, buttons...)
}

func (r *Router) info() domain.Response {
	return domain.WithButtons(
		fmt.Sprintf("🐼 *Yoko Poke*\n\n⏰ Horario: %s\n🛵 Envío a domicilio o recoges en tienda.\n\nPide por aquí cuando quieras.", r.schedule),
		menuButton,
	)
}

func canned() domain.Response {
	return domain.WithButtons("🙈 Perdona, no te entendí bien. ¿Quieres ver el menú?", menuButton)
}
