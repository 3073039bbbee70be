package router

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/textnorm"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/checkout"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/session"
)

// recentOrder is how long a repeated "confirmar" is answered with the last order.
const recentOrder = 30 * time.Minute

var (
	greetWords    = []string{"hola", "buenas", "buenos dias", "buenas tardes", "buenas noches", "hey", "hi", "que tal", "holi"}
	thanksWords   = []string{"gracias", "grax", "thx", "thanks", "muchas gracias"}
	farewellWords = []string{"adios", "bye", "chao", "nos vemos", "hasta luego"}
	orderSignals  = []string{"quiero", "dame", "pido", "agrega", "agregar", "ponme", "manda", "traeme", "poke", "menu"}
	menuWords     = []string{MenuReplyID, "ver menu", "carta", "ver carta", "que tienen", "que venden"}
	cartWords     = []string{CartReplyID, "carrito", "ver carrito", "mi carrito", "mi pedido"}
	checkoutWords = []string{CheckoutReplyID, "finalizar", "finalizar pedido", "pagar", "es todo", "eso es todo", "cerrar pedido"}
	clearVerbs    = []string{"vaciar", "borrar", "limpiar", "eliminar", "cancelar", "cancela", "quitar todo"}
	clearObjects  = []string{"carrito", "pedido", "orden", "todo"}
	reorderWords  = []string{"lo de siempre", "lo mismo", "repetir", "mismo pedido", "otra vez", "lo de ayer"}
	buildWords    = []string{BuildReplyID, "armar poke", "arma tu poke", "armar mi poke", "personalizar"}
	confirmWords  = []string{"confirmar", "confirmo", "si confirmar", "confirm"}
	helpWords     = []string{HelpReplyID, "help", "info", "horario", "horarios"}

	quantityPattern = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// normal handles a turn in NORMAL mode.
func (r *Router) normal(ctx context.Context, turn *session.Turn) ([]domain.Response, error) {
	sess := turn.Session
	var out []domain.Response
	if sess.Fresh() {
		out = append(out, r.greeting(sess))
	}

	segments := turn.Segments()
	if len(segments) == 0 {
		if turn.Location != nil {
			return append(out, domain.WithButtons("📍 ¡Gracias por tu ubicación! La usaré cuando finalices tu pedido.", menuButton)), nil
		}
		return out, nil
	}
	last := textnorm.Normalize(segments[len(segments)-1])
	text := textnorm.Normalize(turn.Input)

	resp, handled, err := r.fastPath(ctx, turn, text, last, len(out) > 0)
	if err != nil {
		return nil, err
	}
	if handled {
		return append(out, resp...), nil
	}

	resp, err = r.fallback(ctx, turn)
	if err != nil {
		return nil, err
	}
	return append(out, resp...), nil
}

func (r *Router) fastPath(ctx context.Context, turn *session.Turn, text, last string, greeted bool) ([]domain.Response, bool, error) {
	sess := turn.Session

	switch {
	case strings.HasPrefix(last, CategoryPrefix):
		return r.category(ctx, strings.TrimPrefix(last, CategoryPrefix))
	case strings.HasPrefix(last, AddPrefix):
		return r.addSlugs(ctx, sess, []requested{{slug: strings.TrimPrefix(last, AddPrefix), qty: 1}})
	case strings.HasPrefix(last, BuildPrefix):
		return r.startBuilder(ctx, sess, strings.TrimPrefix(last, BuildPrefix))
	case textnorm.Equals(last, menuWords...) || textnorm.HasAny(text, "ver menu", "ver el menu", "la carta"):
		out, err := r.categoriesMenu(ctx)
		return out, true, err
	case textnorm.Equals(last, ClearCartReplyID) || (textnorm.HasAny(text, clearVerbs...) && textnorm.HasAny(text, clearObjects...)):
		return r.clearCart(sess), true, nil
	case textnorm.Equals(last, cartWords...):
		return []domain.Response{cartView(sess.Cart)}, true, nil
	case textnorm.Equals(last, helpWords...):
		return []domain.Response{r.info()}, true, nil
	case textnorm.Equals(last, checkoutWords...):
		return r.beginCheckout(sess)
	case textnorm.Equals(last, confirmWords...) && r.recentlyOrdered(sess, turn.Now):
		return []domain.Response{checkout.AlreadyRegistered(sess.LastOrderID)}, true, nil
	case textnorm.HasAny(text, reorderWords...):
		return r.reorder(ctx, sess)
	case textnorm.Equals(last, buildWords...) || textnorm.HasAny(text, "armar", "arma mi", "arma un"):
		return r.startBuilder(ctx, sess, "")
	}

	if textnorm.HasAny(text, orderSignals...) {
		return r.byName(ctx, sess, text)
	}
	switch {
	case textnorm.HasAny(text, greetWords...):
		if greeted {
			return nil, true, nil
		}
		return []domain.Response{r.greeting(sess)}, true, nil
	case textnorm.HasAny(text, farewellWords...):
		return []domain.Response{domain.WithButtons("¡Gracias por elegir Yoko Poke! 🥢✨ Te esperamos pronto 🐼", menuButton)}, true, nil
	case textnorm.HasAny(text, thanksWords...):
		return []domain.Response{domain.WithButtons("¡Con gusto! 😊 Si necesitas algo más, aquí estoy.", menuButton)}, true, nil
	}
	return r.byName(ctx, sess, text)
}

func (r *Router) recentlyOrdered(sess *domain.Session, now time.Time) bool {
	return sess.LastOrderID != "" && now.Sub(sess.LastOrderAt) < recentOrder
}

func (r *Router) category(ctx context.Context, id string) ([]domain.Response, bool, error) {
	cats, err := r.catalog.GetCategories(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("router: failed to load categories: %w", err)
	}
	if c, ok := findCategory(cats, id); ok {
		out, err := r.productsMenu(ctx, c)
		return out, true, err
	}
	out, err := r.categoriesMenu(ctx)
	return out, true, err
}

func findCategory(cats []domain.Category, ref string) (domain.Category, bool) {
	ref = textnorm.Normalize(ref)
	for _, c := range cats {
		if textnorm.Equals(ref, strings.ToLower(c.ID), strings.ToLower(c.Slug), textnorm.Normalize(c.Name)) {
			return c, true
		}
	}
	return domain.Category{}, false
}

// requested is a product reference from free text or a reply id.
type requested struct {
	slug string
	qty  int
}

// addSlugs adds simple products to the cart. The first customizable product
// starts the builder after the simple ones were added.
func (r *Router) addSlugs(ctx context.Context, sess *domain.Session, reqs []requested) ([]domain.Response, bool, error) {
	var items []domain.LineItem
	var build string
	for _, req := range reqs {
		p, err := r.catalog.GetProduct(ctx, req.slug)
		if errors.Is(err, domain.ErrProductNotFound) {
			r.logger.Warn("Requested product not in catalog", "session_id", sess.ID, "product", req.slug)
			continue
		}
		if err != nil {
			return nil, true, fmt.Errorf("router: failed to load product: %w", err)
		}
		if p.Customizable() {
			if build == "" {
				build = p.Slug
			}
			continue
		}
		item := domain.LineItem{ProductID: p.ID, Slug: p.Slug, Name: p.Name, UnitPrice: p.BasePrice, Quantity: req.qty}
		sess.Cart = domain.AddToCart(sess.Cart, item)
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		items = append(items, item)
	}

	var out []domain.Response
	if len(items) > 0 {
		out = append(out, added(items, sess.Cart))
	}
	if build != "" {
		more, _, err := r.startBuilder(ctx, sess, build)
		if err != nil {
			return nil, true, err
		}
		out = append(out, more...)
	}
	if len(out) == 0 {
		out = append(out, domain.WithButtons("😕 Ese producto ya no está disponible. Mira lo que tenemos hoy:", menuButton))
	}
	return out, true, nil
}

// startBuilder enters the builder for slug, or for the first customizable product.
func (r *Router) startBuilder(ctx context.Context, sess *domain.Session, slug string) ([]domain.Response, bool, error) {
	if slug == "" {
		p, err := r.firstCustomizable(ctx)
		if err != nil {
			return nil, true, err
		}
		if p == nil {
			return []domain.Response{domain.WithButtons("Hoy no tenemos productos para armar 😕.", menuButton)}, true, nil
		}
		slug = p.Slug
	}

	res, err := r.builder.Start(ctx, sess, slug)
	switch {
	case errors.Is(err, domain.ErrNoSteps):
		return r.addSlugs(ctx, sess, []requested{{slug: slug, qty: 1}})
	case errors.Is(err, domain.ErrProductNotFound):
		sess.Mode = domain.NormalMode{}
		return []domain.Response{domain.WithButtons("😕 Ese producto ya no está disponible.", menuButton)}, true, nil
	case err != nil:
		return nil, true, fmt.Errorf("router: failed to start builder: %w", err)
	}
	return res.Responses, true, nil
}

func (r *Router) firstCustomizable(ctx context.Context) (*domain.Product, error) {
	products, err := r.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("router: failed to list products: %w", err)
	}
	for i := range products {
		if products[i].Customizable() {
			return &products[i], nil
		}
	}
	return nil, nil
}

func (r *Router) beginCheckout(sess *domain.Session) ([]domain.Response, bool, error) {
	res, err := r.checkout.Begin(sess)
	if errors.Is(err, checkout.ErrEmptyCart) {
		return []domain.Response{domain.WithButtons("🛒 Tu carrito está vacío. Agrega algo primero. ¿Qué se te antoja?", menuButton, buildButton)}, true, nil
	}
	if err != nil {
		return nil, true, err
	}
	return res.Responses, true, nil
}

func (r *Router) clearCart(sess *domain.Session) []domain.Response {
	if len(sess.Cart) == 0 {
		return []domain.Response{domain.WithButtons("Tu carrito ya está vacío 🛒. ¿Qué se te antoja?", menuButton)}
	}
	n := len(sess.Cart)
	sess.Cart = nil
	return []domain.Response{domain.WithButtons(fmt.Sprintf("🗑️ Listo, vacié tu carrito (%d producto(s)).", n), menuButton, buildButton)}
}

// reorder puts the customer's last order back in the cart, repricing simple
// products and dropping the ones no longer sold.
func (r *Router) reorder(ctx context.Context, sess *domain.Session) ([]domain.Response, bool, error) {
	items := sess.Profile.LastOrder
	if r.orders != nil {
		recent, err := r.orders.RecentOrders(ctx, sess.ID, 1)
		if err != nil {
			r.logger.Warn("Failed to load order history", "session_id", sess.ID, "err", err)
		} else if len(recent) > 0 {
			items = recent[0].Items
		}
	}
	if len(items) == 0 {
		return []domain.Response{domain.WithButtons("🤔 Aún no tengo pedidos tuyos guardados. ¡Hagamos el primero!", menuButton, buildButton)}, true, nil
	}

	var restored []domain.LineItem
	for _, it := range items {
		p, err := r.catalog.GetProduct(ctx, it.Slug)
		if errors.Is(err, domain.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, true, fmt.Errorf("router: failed to load product: %w", err)
		}
		if len(it.Details) == 0 {
			it.UnitPrice = p.BasePrice
		}
		it.Details = append([]string(nil), it.Details...)
		sess.Cart = domain.AddToCart(sess.Cart, it)
		restored = append(restored, it)
	}
	if len(restored) == 0 {
		return []domain.Response{domain.WithButtons("😕 Lo que pediste la última vez ya no está disponible.", menuButton)}, true, nil
	}

	resp := cartView(sess.Cart)
	resp.Text = "🔄 *¡Lo de siempre!*\n\n" + resp.Text + "\n\n¿Lo confirmamos?"
	return []domain.Response{resp}, true, nil
}

// byName adds the products whose names appear in the text. It reports
// unhandled when nothing matches so the classifier can take over.
func (r *Router) byName(ctx context.Context, sess *domain.Session, text string) ([]domain.Response, bool, error) {
	products, err := r.catalog.ListProducts(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("router: failed to list products: %w", err)
	}

	type hit struct {
		slug string
		pos  int
	}
	var hits []hit
	taken := text
	// Longest names first so "poke grande" wins over a shorter "poke".
	sort.SliceStable(products, func(i, j int) bool { return len(products[i].Name) > len(products[j].Name) })
	for _, p := range products {
		name := textnorm.Normalize(p.Name)
		pos := textnorm.Index(taken, name)
		if pos < 0 {
			continue
		}
		hits = append(hits, hit{p.Slug, pos})
		taken = taken[:pos] + strings.Repeat("#", len(name)) + taken[pos+len(name):]
	}
	if len(hits) == 0 {
		return nil, false, nil
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	qty := 1
	if len(hits) == 1 {
		if m := quantityPattern.FindStringSubmatch(text); m != nil {
			if n, _ := strconv.Atoi(m[1]); n > 0 && n <= 20 {
				qty = n
			}
		}
	}
	reqs := make([]requested, 0, len(hits))
	for _, h := range hits {
		reqs = append(reqs, requested{slug: h.slug, qty: qty})
	}
	return r.addSlugs(ctx, sess, reqs)
}
