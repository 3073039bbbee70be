// Package checkout collects the customer's details and commits the order.
//
// The flow is linear with one branch:
//
//	COLLECT_NAME → COLLECT_DELIVERY → (COLLECT_PICKUP_TIME | COLLECT_ADDRESS) → SHOW_SUMMARY
//
// A confirmed summary inserts the order exactly once: the Confirmed flag is set
// and checkpointed before the insert, and the insert carries an idempotency key
// so a retried insert returns the original order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/textnorm"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/hours"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

var (
	// ErrEmptyCart is returned by Begin when there is nothing to order.
	ErrEmptyCart = errors.New("cart is empty")

	errNoTime   = errors.New("no time found")
	errClosedAt = errors.New("outside business hours")
)

// Input is one turn of customer input while in CHECKOUT mode.
type Input struct {
	// Messages are the texts of the turn, one entry per customer message.
	Messages []string
	Location *domain.Location
	// Checkpoint persists the session before the order insert.
	Checkpoint func(context.Context) error
}

// Result is the outcome of one checkout turn.
type Result struct {
	Responses []domain.Response
	// Order is set when the order was committed during this turn.
	Order *domain.Order
	// Cancelled is set when the customer left checkout. The cart is kept.
	Cancelled bool
}

// Machine drives the checkout flow.
type Machine struct {
	orders     ports.OrderStore
	schedule   *hours.Schedule
	clock      ports.Clock
	logger     *slog.Logger
	hooks      domain.Hooks
	newBackOff func() backoff.BackOff
}

// Option configures the Machine.
type Option func(*Machine)

// WithSchedule sets the business hours used for pickup slots and pre-orders.
func WithSchedule(s *hours.Schedule) Option {
	return func(m *Machine) {
		m.schedule = s
	}
}

// WithClock replaces the wall clock.
func WithClock(c ports.Clock) Option {
	return func(m *Machine) {
		m.clock = c
	}
}

// WithLogger configures a logger for the Machine.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithHooks registers lifecycle hooks. OnOrderCommitted fires after a successful insert.
func WithHooks(h domain.Hooks) Option {
	return func(m *Machine) {
		m.hooks = h
	}
}

// WithBackOff sets the retry policy of the order insert.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(m *Machine) {
		m.newBackOff = fn
	}
}

// New creates a checkout Machine committing orders to orders.
func New(orders ports.OrderStore, opts ...Option) *Machine {
	m := &Machine{
		orders:   orders,
		schedule: hours.Default(),
		clock:    ports.SystemClock{},
		logger:   logging.NewNop(),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 5 * time.Second
			return backoff.WithMaxRetries(b, 3)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin enters CHECKOUT mode with a snapshot of the cart.
func (m *Machine) Begin(sess *domain.Session) (Result, error) {
	if len(sess.Cart) == 0 {
		return Result{}, ErrEmptyCart
	}
	st := domain.CheckoutState{
		Step:     domain.StepCollectName,
		Items:    append([]domain.LineItem(nil), sess.Cart...),
		Total:    domain.CartTotal(sess.Cart),
		OrderKey: uuid.NewString(),
	}

	var resp domain.Response
	if sess.Profile.Name != "" {
		st.NameOffered = true
		resp = domain.WithButtons(
			fmt.Sprintf("🧾 Tu pedido va en %s. ¿Lo ponemos a nombre de *%s*?", st.Total, sess.Profile.Name),
			domain.Button{ID: ReplyNameYes, Title: "Sí"},
			domain.Button{ID: ReplyNameOther, Title: "Otro nombre"},
		)
	} else {
		resp = domain.Text(fmt.Sprintf("🧾 Tu pedido va en %s. ¿A nombre de quién lo registramos?", st.Total))
	}
	sess.Mode = domain.CheckoutMode{State: st}
	m.logger.Debug("Checkout started", "session_id", sess.ID, "items", len(st.Items), "total", st.Total.String())
	return Result{Responses: []domain.Response{resp}}, nil
}

// Handle processes customer input while the session is in CHECKOUT mode.
// Each message of the turn is applied in order until the flow leaves CHECKOUT;
// only the last prompt is returned.
func (m *Machine) Handle(ctx context.Context, sess *domain.Session, in Input) (Result, error) {
	if _, ok := sess.Mode.(domain.CheckoutMode); !ok {
		return Result{}, fmt.Errorf("checkout: session is in %s mode", sess.Mode.Name())
	}

	var segments []string
	for _, msg := range in.Messages {
		if msg = strings.TrimSpace(msg); msg != "" {
			segments = append(segments, msg)
		}
	}
	if len(segments) == 0 && in.Location != nil {
		segments = []string{""}
	}

	var res Result
	for _, seg := range segments {
		cm, ok := sess.Mode.(domain.CheckoutMode)
		if !ok {
			break
		}
		var err error
		res, err = m.step(ctx, sess, cm.State, seg, in)
		if err != nil {
			return Result{}, err
		}
	}
	if len(res.Responses) == 0 {
		if cm, ok := sess.Mode.(domain.CheckoutMode); ok {
			res.Responses = []domain.Response{m.prompt(sess, cm.State, "")}
		}
	}
	return res, nil
}

func (m *Machine) step(ctx context.Context, sess *domain.Session, st domain.CheckoutState, raw string, in Input) (Result, error) {
	text := textnorm.Normalize(raw)

	if st.Step.Collecting() && st.Step != domain.StepShowSummary &&
		(textnorm.Equals(text, cancelWords...) || strings.HasPrefix(text, "cancelar")) {
		return m.cancel(sess), nil
	}

	switch st.Step {
	case domain.StepCollectName:
		return m.collectName(sess, st, raw, text), nil
	case domain.StepCollectDelivery:
		return m.collectDelivery(sess, st, text), nil
	case domain.StepCollectPickupTime:
		return m.collectPickupTime(sess, st, text), nil
	case domain.StepCollectAddress:
		return m.collectAddress(sess, st, raw, text, in.Location), nil
	case domain.StepShowSummary:
		if textnorm.HasAny(text, summaryStops...) {
			return m.cancel(sess), nil
		}
		if confirmPattern.MatchString(text) {
			return m.confirm(ctx, sess, st, in)
		}
		return m.reprompt(sess, st, "Responde *confirmar* para registrar tu pedido o *cancelar* para regresar."), nil
	default:
		// Terminal steps are never persisted; treat a leftover one as finished.
		sess.Mode = domain.NormalMode{}
		return Result{Cancelled: true}, nil
	}
}

func (m *Machine) collectName(sess *domain.Session, st domain.CheckoutState, raw, text string) Result {
	if st.NameOffered && sess.Profile.Name != "" {
		switch {
		case textnorm.Equals(text, ReplyNameOther) || textnorm.HasAny(text, "otro nombre", "otro"):
			st.NameOffered = false
			sess.Mode = domain.CheckoutMode{State: st}
			return Result{Responses: []domain.Response{domain.Text("Va. ¿A nombre de quién lo registramos?")}}
		case textnorm.HasAny(text, yesWords...):
			st.CustomerName = sess.Profile.Name
			return m.advance(sess, st, domain.StepCollectDelivery)
		}
	}

	name, ok := parseName(raw)
	if !ok {
		return m.reprompt(sess, st, fmt.Sprintf("Necesito un nombre de %d a %d letras para tu pedido.", minName, maxName))
	}
	st.CustomerName = name
	return m.advance(sess, st, domain.StepCollectDelivery)
}

func (m *Machine) collectDelivery(sess *domain.Session, st domain.CheckoutState, text string) Result {
	method, ok := parseDelivery(text)
	if !ok {
		return m.reprompt(sess, st, "No entendí. ¿Pasas a *recoger* o lo enviamos a *domicilio*?")
	}
	st.DeliveryMethod = method
	if method == domain.DeliveryPickup {
		st.Address, st.Location = "", nil
		return m.advance(sess, st, domain.StepCollectPickupTime)
	}
	st.PickupTime = ""
	return m.advance(sess, st, domain.StepCollectAddress)
}

func (m *Machine) collectPickupTime(sess *domain.Session, st domain.CheckoutState, text string) Result {
	at, err := parsePickupTime(text, m.schedule)
	switch {
	case errors.Is(err, errClosedAt):
		return m.reprompt(sess, st, fmt.Sprintf("A esa hora estamos cerrados. Nuestro horario es de %s.", m.schedule))
	case err != nil:
		return m.reprompt(sess, st, "No entendí la hora. Elige un horario de la lista o escribe algo como *18:30*.")
	}
	st.PickupTime = at
	return m.advance(sess, st, domain.StepShowSummary)
}

func (m *Machine) collectAddress(sess *domain.Session, st domain.CheckoutState, raw, text string, loc *domain.Location) Result {
	switch {
	case loc != nil:
		l := *loc
		st.Location = &l
		st.Address = locationAddress(loc)
	case sess.Profile.Address != "" && textnorm.HasAny(text, sameWords...):
		st.Address = sess.Profile.Address
	default:
		addr, ok := parseAddress(raw)
		if !ok {
			return m.reprompt(sess, st, "Necesito tu dirección completa (calle, número y colonia) o comparte tu ubicación 📍.")
		}
		st.Address = addr
	}
	return m.advance(sess, st, domain.StepShowSummary)
}

func (m *Machine) advance(sess *domain.Session, st domain.CheckoutState, next domain.CheckoutStep) Result {
	st.Step = next
	sess.Mode = domain.CheckoutMode{State: st}
	return Result{Responses: []domain.Response{m.prompt(sess, st, "")}}
}

func (m *Machine) reprompt(sess *domain.Session, st domain.CheckoutState, notice string) Result {
	sess.Mode = domain.CheckoutMode{State: st}
	return Result{Responses: []domain.Response{m.prompt(sess, st, notice)}}
}

func (m *Machine) cancel(sess *domain.Session) Result {
	sess.Mode = domain.NormalMode{}
	m.logger.Info("Checkout cancelled", "session_id", sess.ID)
	return Result{
		Responses: []domain.Response{domain.WithButtons(
			"Listo, dejé tu pedido en pausa. Tu carrito sigue guardado 🛒.",
			domain.Button{ID: "menu", Title: "Ver Menú"},
			domain.Button{ID: "checkout", Title: "Finalizar pedido"},
		)},
		Cancelled: true,
	}
}

// confirm commits the order at most once per checkout.
func (m *Machine) confirm(ctx context.Context, sess *domain.Session, st domain.CheckoutState, in Input) (Result, error) {
	if st.Confirmed && st.OrderID != "" {
		return Result{Responses: []domain.Response{domain.Text(alreadyRegistered(st.OrderID))}}, nil
	}

	if !st.Confirmed {
		st.Confirmed = true
		sess.Mode = domain.CheckoutMode{State: st}
		if in.Checkpoint != nil {
			if err := in.Checkpoint(ctx); err != nil {
				return Result{}, fmt.Errorf("checkout: failed to checkpoint before insert: %w", err)
			}
		}
	} else {
		m.logger.Warn("Retrying unfinished order commit", "session_id", sess.ID, "order_key", st.OrderKey)
	}

	now := m.clock.Now()
	order := m.order(sess, st, now)
	id, err := backoff.RetryWithData(func() (string, error) {
		id, err := m.orders.InsertOrder(ctx, order)
		if errors.Is(err, domain.ErrOrderRejected) {
			return "", backoff.Permanent(err)
		}
		return id, err
	}, backoff.WithContext(m.newBackOff(), ctx))
	if err != nil {
		m.logger.Error("Order insert failed", "session_id", sess.ID, "order_key", st.OrderKey, "err", err)
		st.Confirmed = false
		sess.Mode = domain.CheckoutMode{State: st}
		return Result{Responses: []domain.Response{domain.WithButtons(
			"😓 No pude registrar tu pedido. ¿Lo intentamos de nuevo?",
			domain.Button{ID: ReplyConfirm, Title: "Reintentar"},
			domain.Button{ID: ReplyCancel, Title: "Cancelar"},
		)}}, nil
	}
	order.ID = id

	sess.Profile.Name = st.CustomerName
	if st.DeliveryMethod == domain.DeliveryDelivery && st.Address != "" {
		sess.Profile.Address = st.Address
	}
	sess.Profile.LastOrder = append([]domain.LineItem(nil), st.Items...)
	sess.Profile.Orders++
	sess.Cart = nil
	sess.AfterHoursAck = false
	sess.LastOrderID = id
	sess.LastOrderAt = now
	sess.Mode = domain.NormalMode{}

	m.logger.Info("Order committed",
		"session_id", sess.ID,
		"order_id", id,
		"total", order.Total.String(),
		"status", order.Status,
	)
	if m.hooks.OnOrderCommitted != nil {
		m.hooks.OnOrderCommitted(ctx, &domain.OrderEvent{
			SessionID: sess.ID,
			OrderID:   id,
			Total:     order.Total,
			Status:    order.Status,
		})
	}
	return Result{Responses: []domain.Response{Confirmation(order, m.schedule)}, Order: order}, nil
}

func (m *Machine) order(sess *domain.Session, st domain.CheckoutState, now time.Time) *domain.Order {
	status := domain.OrderPending
	if !m.schedule.IsOpen(now) {
		status = domain.OrderPreOrder
	}
	return &domain.Order{
		IdempotencyKey: st.OrderKey,
		Phone:          sess.ID,
		CustomerName:   st.CustomerName,
		DeliveryMethod: st.DeliveryMethod,
		PickupTime:     st.PickupTime,
		Address:        st.Address,
		Location:       st.Location,
		Items:          append([]domain.LineItem(nil), st.Items...),
		Total:          st.Total,
		Status:         status,
		CreatedAt:      now,
	}
}

// AlreadyRegistered is the reply to a confirmation repeated after the commit.
func AlreadyRegistered(orderID string) domain.Response {
	return domain.Text(alreadyRegistered(orderID))
}

func alreadyRegistered(orderID string) string {
	return fmt.Sprintf("✅ Tu pedido *#%s* ya está registrado. ¡No hace falta confirmarlo otra vez!", ShortID(orderID))
}

// ShortID is the customer facing order number.
func ShortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 6 {
		id = id[:6]
	}
	return strings.ToUpper(id)
}
