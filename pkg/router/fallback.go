package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/textnorm"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/checkout"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/session"
	"github.com/mitchellh/mapstructure"
)

// entities is the shape of the classifier's free-form entities.
type entities struct {
	Products []domain.RequestedProduct `mapstructure:"products"`
	Product  string                    `mapstructure:"product"`
	Category string                    `mapstructure:"category"`
}

func decodeEntities(raw map[string]any) (entities, error) {
	var out entities
	if len(raw) == 0 {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(raw); err != nil {
		return out, fmt.Errorf("decode entities: %w", err)
	}
	return out, nil
}

// fallback asks the classifier what the customer wants.
func (r *Router) fallback(ctx context.Context, turn *session.Turn) ([]domain.Response, error) {
	sess := turn.Session
	if r.classifier == nil {
		return []domain.Response{canned()}, nil
	}

	cats, err := r.catalog.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("router: failed to load categories: %w", err)
	}
	cls, err := r.classifier.ClassifyIntent(ctx, turn.Input, domain.ClassifyContext{
		Mode:       sess.Mode.Name(),
		Cart:       sess.Cart,
		Categories: cats,
		History:    sess.History,
	})
	if err != nil {
		r.logger.Warn("Classifier failed, sending canned reply", "session_id", sess.ID, "err", err)
		return []domain.Response{canned()}, nil
	}
	ents, err := decodeEntities(cls.Entities)
	if err != nil {
		r.logger.Warn("Ignoring malformed classifier entities", "session_id", sess.ID, "err", err)
	}
	r.logger.Debug("Turn classified", "session_id", sess.ID, "intent", cls.Intent, "confidence", cls.Confidence)

	switch cls.Intent {
	case domain.IntentAddToCart:
		reqs, err := r.validate(ctx, sess, ents.Products)
		if err != nil {
			return nil, err
		}
		if len(reqs) == 0 {
			return []domain.Response{domain.WithButtons("🤔 No encontré eso en nuestro menú. ¿Le echas un ojo?", menuButton)}, nil
		}
		out, _, err := r.addSlugs(ctx, sess, reqs)
		return out, err

	case domain.IntentCategoryFilter:
		if c, ok := findCategory(cats, ents.Category); ok {
			return r.productsMenu(ctx, c)
		}
		return r.categoriesMenu(ctx)

	case domain.IntentCheckout:
		out, _, err := r.beginCheckout(sess)
		return out, err

	case domain.IntentStartBuilder:
		slug := ""
		if ents.Product != "" {
			reqs, err := r.validate(ctx, sess, []domain.RequestedProduct{{Name: ents.Product, Slug: ents.Product}})
			if err != nil {
				return nil, err
			}
			if len(reqs) > 0 {
				slug = reqs[0].slug
			}
		}
		out, _, err := r.startBuilder(ctx, sess, slug)
		return out, err

	case domain.IntentInfo:
		return []domain.Response{r.info()}, nil

	case domain.IntentStatus:
		if sess.LastOrderID == "" {
			return []domain.Response{domain.WithButtons("Aún no tienes pedidos con nosotros. ¿Hacemos el primero?", menuButton)}, nil
		}
		return []domain.Response{domain.Text(fmt.Sprintf("📦 Tu último pedido es el *#%s*. Si tienes dudas escribe *agente* y alguien del equipo te ayuda.", checkout.ShortID(sess.LastOrderID)))}, nil

	default:
		return r.chat(ctx, turn)
	}
}

// chat generates a conversational answer. Cart changes it proposes are
// validated against the catalog before they are applied.
func (r *Router) chat(ctx context.Context, turn *session.Turn) ([]domain.Response, error) {
	sess := turn.Session
	products, err := r.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("router: failed to list products: %w", err)
	}
	reply, err := r.classifier.GenerateResponse(ctx, turn.Input, domain.ChatContext{
		CustomerName: sess.Profile.Name,
		Cart:         sess.Cart,
		Products:     products,
		History:      sess.History,
		Open:         r.schedule.IsOpen(turn.Now),
	})
	if err != nil || strings.TrimSpace(reply.Text) == "" {
		r.logger.Warn("Response generation failed, sending canned reply", "session_id", sess.ID, "err", err)
		return []domain.Response{canned()}, nil
	}

	resp := domain.Text(reply.Text)
	for _, action := range reply.SuggestedActions {
		if len(resp.Buttons) == domain.MaxButtons {
			break
		}
		id := textnorm.Normalize(action)
		if id == "" {
			continue
		}
		resp.Buttons = append(resp.Buttons, domain.Button{ID: id, Title: textnorm.Truncate(action, domain.MaxRowTitle)})
	}
	out := []domain.Response{resp}

	if len(reply.AddToCart) > 0 {
		reqs, err := r.validate(ctx, sess, reply.AddToCart)
		if err != nil {
			return nil, err
		}
		if len(reqs) > 0 {
			more, _, err := r.addSlugs(ctx, sess, reqs)
			if err != nil {
				return nil, err
			}
			out = append(out, more...)
		}
	}
	return out, nil
}

// validate resolves classifier product references against the real catalog by
// id, slug or name. References that match nothing are dropped.
func (r *Router) validate(ctx context.Context, sess *domain.Session, refs []domain.RequestedProduct) ([]requested, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	products, err := r.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("router: failed to list products: %w", err)
	}

	out := make([]requested, 0, len(refs))
	for _, ref := range refs {
		p, ok := resolve(products, ref)
		if !ok {
			r.logger.Warn("Dropped product invented by classifier",
				"session_id", sess.ID,
				"ref_id", ref.ID,
				"ref_slug", ref.Slug,
				"ref_name", ref.Name,
			)
			continue
		}
		qty := ref.Quantity
		if qty <= 0 || qty > 20 {
			qty = 1
		}
		out = append(out, requested{slug: p.Slug, qty: qty})
	}
	return out, nil
}

func resolve(products []domain.Product, ref domain.RequestedProduct) (domain.Product, bool) {
	name := textnorm.Normalize(ref.Name)
	slug := strings.ToLower(strings.TrimSpace(ref.Slug))
	for _, p := range products {
		switch {
		case ref.ID != 0 && p.ID == ref.ID:
			return p, true
		case slug != "" && p.Slug == slug:
			return p, true
		case name != "" && textnorm.Normalize(p.Name) == name:
			return p, true
		}
	}
	return domain.Product{}, false
}
