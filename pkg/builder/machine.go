package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/textnorm"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
)

// DoneReplyID is the list row id that finishes the current step.
const DoneReplyID = "listo"

var (
	cancelWords = []string{"cancelar", "cancela", "salir", "menu principal", "menu"}
	doneWords   = []string{DoneReplyID, "siguiente", "continuar", "done", "next", "es todo", "eso es todo", "ya quedo"}
)

// Result is the outcome of one builder turn.
type Result struct {
	Responses []domain.Response
	// Completed is the finished product once the last step is done. The
	// session is back in NORMAL mode and the caller continues with checkout.
	Completed *domain.LineItem
	// Cancelled is set when the flow was aborted and the session reset to NORMAL.
	Cancelled bool
}

// Machine drives the step-by-step customization of a product.
type Machine struct {
	catalog    ports.Catalog
	classifier ports.Classifier
	logger     *slog.Logger
}

// Option configures the Machine.
type Option func(*Machine)

// WithClassifier enables fuzzy option matching through the language oracle.
func WithClassifier(c ports.Classifier) Option {
	return func(m *Machine) {
		m.classifier = c
	}
}

// WithLogger configures a logger for the Machine.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// New creates a builder Machine reading products from catalog.
func New(catalog ports.Catalog, opts ...Option) *Machine {
	m := &Machine{
		catalog: catalog,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start enters BUILDER mode for the product. It returns domain.ErrProductNotFound
// for unknown slugs and domain.ErrNoSteps for products that are not customizable.
func (m *Machine) Start(ctx context.Context, sess *domain.Session, slug string) (Result, error) {
	p, err := m.catalog.GetProduct(ctx, slug)
	if err != nil {
		return Result{}, err
	}
	if !p.Customizable() {
		return Result{}, fmt.Errorf("%w: %s", domain.ErrNoSteps, slug)
	}

	st := domain.NewBuilderState(p.Slug)
	sess.Mode = domain.BuilderMode{State: st}
	m.logger.Debug("Builder started", "session_id", sess.ID, "product", p.Slug)

	intro := fmt.Sprintf("¡Vamos a armar tu *%s*! 🥢 Son %d pasos. Escribe *cancelar* para salir.", p.Name, len(p.Steps))
	return Result{Responses: []domain.Response{domain.Text(intro), Prompt(*p, st, nil)}}, nil
}

// Handle processes customer input while the session is in BUILDER mode.
// Each message of the turn is applied in order.
func (m *Machine) Handle(ctx context.Context, sess *domain.Session, messages ...string) (Result, error) {
	bm, ok := sess.Mode.(domain.BuilderMode)
	if !ok {
		return Result{}, fmt.Errorf("builder: session is in %s mode", sess.Mode.Name())
	}
	st := bm.State
	if st.Selections == nil {
		st.Selections = make(map[domain.StepID][]domain.OptionID)
	}

	p, err := m.catalog.GetProduct(ctx, st.ProductSlug)
	if err == nil && !p.Customizable() {
		err = domain.ErrProductNotFound
	}
	if errors.Is(err, domain.ErrProductNotFound) {
		m.logger.Warn("Product vanished during builder flow", "session_id", sess.ID, "product", st.ProductSlug)
		sess.Mode = domain.NormalMode{}
		return Result{
			Responses: []domain.Response{domain.Text("😕 Ese producto ya no está disponible. Te regreso al menú principal.")},
			Cancelled: true,
		}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("builder: failed to load product: %w", err)
	}
	if st.StepIndex >= len(p.Steps) {
		st.StepIndex = len(p.Steps) - 1
	}

	var notices []string
	for _, seg := range messages {
		text := textnorm.Normalize(seg)
		if text == "" {
			continue
		}
		if textnorm.Equals(text, cancelWords...) || strings.HasPrefix(text, "cancelar") {
			sess.Mode = domain.NormalMode{}
			return Result{
				Responses: []domain.Response{domain.WithButtons("Listo, cancelé tu armado. ¿En qué más te ayudo?",
					domain.Button{ID: "menu", Title: "Ver Menú"})},
				Cancelled: true,
			}, nil
		}

		step := p.Steps[st.StepIndex]
		if textnorm.Equals(text, doneWords...) {
			if n := len(st.Selections[step.ID]); n < step.MinSelections {
				notices = append(notices, fmt.Sprintf("⚠️ Elige al menos %d opción(es) de %s antes de continuar.", step.MinSelections, step.Name))
				continue
			}
			st.StepIndex++
		} else {
			picked := m.match(ctx, step, seg, text)
			if len(picked) == 0 {
				notices = append(notices, fmt.Sprintf("🤔 No encontré \"%s\" en %s.", seg, step.Name))
				continue
			}
			sel := st.Selections[step.ID]
			for _, id := range picked {
				var accepted bool
				sel, accepted = Toggle(step, sel, id)
				if !accepted {
					notices = append(notices, fmt.Sprintf("Máximo %d en %s. Quita una opción para cambiarla.", step.MaxSelections, step.Name))
					break
				}
			}
			st.Selections[step.ID] = sel
			if step.SingleSelect() && len(sel) == 1 {
				st.StepIndex++
			}
		}

		if st.StepIndex >= len(p.Steps) {
			item := Item(*p, st.Selections)
			sess.Mode = domain.NormalMode{}
			m.logger.Info("Builder completed", "session_id", sess.ID, "product", p.Slug, "price", item.UnitPrice.String())
			return Result{Completed: &item}, nil
		}
	}

	sess.Mode = domain.BuilderMode{State: st}
	return Result{Responses: []domain.Response{Prompt(*p, st, notices)}}, nil
}

// match resolves a segment to option ids, first exactly, then through the classifier.
// Ids invented by the classifier are discarded.
func (m *Machine) match(ctx context.Context, step domain.Step, raw, text string) []domain.OptionID {
	if ids := MatchOptions(step, text); len(ids) > 0 {
		return ids
	}
	if m.classifier == nil {
		return nil
	}
	ids, err := m.classifier.InterpretSelection(ctx, raw, step.Options)
	if err != nil {
		m.logger.Warn("Selection interpretation failed", "step", step.ID, "err", err)
		return nil
	}
	return validOptions(step, ids)
}
