// Package router decides what to do with each turn of a conversation.
//
// Priority, first match wins:
//
//  1. control keywords (reset, pause for a human agent, resume)
//  2. business-hours gate
//  3. mode dispatch (builder, checkout, paused)
//  4. fast-path keywords and reply ids
//  5. the classifier
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/textnorm"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/builder"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/checkout"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/hours"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/session"
)

const (
	// DefaultPause is how long a human keeps the conversation after "agente".
	DefaultPause = time.Hour
	// AfterHoursReplyID is the button that accepts ordering while closed.
	AfterHoursReplyID = "after_hours_ok"
)

var (
	resetWords  = []string{"/reset", "/restart", "resetear"}
	pauseWords  = []string{"pausa", "agente", "humano", "silencio"}
	pausePhrase = []string{"hablar con un humano", "hablar con una persona", "hablar con un agente"}
	resumeWords = []string{"reanudar", "bot", "activar", "modo bot"}
	ackWords    = []string{AfterHoursReplyID, "pedir de todos modos", "pedir de todas formas", "preordenar", "pre ordenar"}
)

// Router implements session.Handler.
type Router struct {
	catalog    ports.Catalog
	orders     ports.OrderStore
	classifier ports.Classifier
	builder    *builder.Machine
	checkout   *checkout.Machine
	schedule   *hours.Schedule
	logger     *slog.Logger
	pause      time.Duration
}

// Option configures the Router.
type Option func(*Router)

// WithClassifier sets the language oracle used for free text.
func WithClassifier(c ports.Classifier) Option {
	return func(r *Router) {
		r.classifier = c
	}
}

// WithBuilder replaces the builder machine.
func WithBuilder(m *builder.Machine) Option {
	return func(r *Router) {
		r.builder = m
	}
}

// WithCheckout replaces the checkout machine.
func WithCheckout(m *checkout.Machine) Option {
	return func(r *Router) {
		r.checkout = m
	}
}

// WithSchedule sets the business hours.
func WithSchedule(s *hours.Schedule) Option {
	return func(r *Router) {
		r.schedule = s
	}
}

// WithLogger configures a logger for the Router.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithPauseDuration sets how long the bot stays silent after a human handoff.
func WithPauseDuration(d time.Duration) Option {
	return func(r *Router) {
		r.pause = d
	}
}

// New creates a Router. Builder and checkout machines are created from the
// catalog and order store unless provided.
func New(catalog ports.Catalog, orders ports.OrderStore, opts ...Option) *Router {
	r := &Router{
		catalog:  catalog,
		orders:   orders,
		schedule: hours.Default(),
		logger:   logging.NewNop(),
		pause:    DefaultPause,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.builder == nil {
		var bopts []builder.Option
		if r.classifier != nil {
			bopts = append(bopts, builder.WithClassifier(r.classifier))
		}
		r.builder = builder.New(catalog, append(bopts, builder.WithLogger(r.logger))...)
	}
	if r.checkout == nil {
		r.checkout = checkout.New(orders, checkout.WithSchedule(r.schedule), checkout.WithLogger(r.logger))
	}
	return r
}

// HandleTurn routes one aggregated turn and records it in the session history.
func (r *Router) HandleTurn(ctx context.Context, turn *session.Turn) ([]domain.Response, error) {
	sess := turn.Session
	sess.Record("user", turn.Input, turn.Now)

	out, err := r.route(ctx, turn)
	if err != nil {
		return nil, err
	}
	for _, resp := range out {
		sess.Record("bot", resp.Text, turn.Now)
	}
	return out, nil
}

func (r *Router) route(ctx context.Context, turn *session.Turn) ([]domain.Response, error) {
	sess := turn.Session

	if out, ok := r.control(turn); ok {
		return out, nil
	}

	if p, ok := sess.Mode.(domain.PausedMode); ok {
		if turn.Now.Before(p.Until) {
			r.logger.Debug("Session paused, staying silent", "session_id", sess.ID, "until", p.Until)
			return nil, nil
		}
		r.logger.Info("Pause expired, resuming bot", "session_id", sess.ID)
		sess.Mode = domain.NormalMode{}
	}

	if out, ok := r.gate(turn); ok {
		return out, nil
	}

	switch m := sess.Mode.(type) {
	case domain.BuilderMode:
		res, err := r.builder.Handle(ctx, sess, turn.Segments()...)
		if err != nil {
			return nil, err
		}
		return r.afterBuilder(ctx, sess, res)
	case domain.CheckoutMode:
		res, err := r.checkout.Handle(ctx, sess, checkout.Input{
			Messages:   turn.Segments(),
			Location:   turn.Location,
			Checkpoint: turn.Checkpoint,
		})
		if err != nil {
			return nil, err
		}
		return res.Responses, nil
	case domain.NormalMode:
		return r.normal(ctx, turn)
	default:
		return nil, fmt.Errorf("router: unhandled mode %T", m)
	}
}

// control applies reset, pause and resume keywords found in any message of the batch.
func (r *Router) control(turn *session.Turn) ([]domain.Response, bool) {
	sess := turn.Session
	for _, msg := range turn.Messages {
		text := textnorm.Normalize(msg.Text)
		switch {
		case textnorm.Equals(text, resetWords...):
			r.logger.Info("Session reset by customer", "session_id", sess.ID)
			sess.Reset()
			sess.History = nil
			return []domain.Response{domain.WithButtons("🔄 Listo, empezamos de cero. ¿Qué se te antoja?", menuButton)}, true

		case textnorm.Equals(text, pauseWords...) || textnorm.HasAny(text, pausePhrase...):
			until := turn.Now.Add(r.pause)
			sess.Mode = domain.PausedMode{Until: until}
			r.logger.Info("Handing conversation to a human", "session_id", sess.ID, "until", until)
			return []domain.Response{domain.Text("👤 Te comunico con alguien del equipo. En breve te responden por aquí. Escribe *bot* cuando quieras volver conmigo.")}, true

		case textnorm.Equals(text, resumeWords...):
			if _, paused := sess.Mode.(domain.PausedMode); !paused {
				continue
			}
			sess.Mode = domain.NormalMode{}
			r.logger.Info("Bot resumed by customer", "session_id", sess.ID)
			return []domain.Response{domain.WithButtons("🤖 ¡Aquí estoy de nuevo! ¿En qué te ayudo?", menuButton)}, true
		}
	}
	return nil, false
}

// gate stops the turn while closed unless the customer chose to pre-order.
func (r *Router) gate(turn *session.Turn) ([]domain.Response, bool) {
	sess := turn.Session
	if sess.AfterHoursAck || r.schedule.IsOpen(turn.Now) {
		return nil, false
	}

	opening := r.schedule.NextOpening(turn.Now).In(r.schedule.Location())
	for _, msg := range turn.Messages {
		text := textnorm.Normalize(msg.Text)
		if textnorm.HasAny(text, ackWords...) {
			sess.AfterHoursAck = true
			return []domain.Response{domain.WithButtons(
				fmt.Sprintf("¡Va! 📝 Toma tu pedido y lo preparamos en cuanto abramos a las %s.", opening.Format("15:04")),
				menuButton, buildButton,
			)}, true
		}
	}

	return []domain.Response{domain.WithButtons(
		fmt.Sprintf("🌙 Ahorita estamos cerrados. Nuestro horario es de %s y abrimos a las %s.\n\n¿Quieres dejar tu pedido listo para cuando abramos?",
			r.schedule, opening.Format("15:04")),
		domain.Button{ID: AfterHoursReplyID, Title: "Pedir de todos modos"},
	)}, true
}

// afterBuilder adds a finished product to the cart and moves on to checkout.
func (r *Router) afterBuilder(ctx context.Context, sess *domain.Session, res builder.Result) ([]domain.Response, error) {
	if res.Completed == nil {
		return res.Responses, nil
	}
	item := *res.Completed
	sess.Cart = domain.AddToCart(sess.Cart, item)
	out := append(res.Responses, domain.Text(fmt.Sprintf("✅ Agregué tu *%s* (%s) al carrito.", item.Name, item.UnitPrice)))

	begin, err := r.checkout.Begin(sess)
	if err != nil {
		return nil, err
	}
	return append(out, begin.Responses...), nil
}
