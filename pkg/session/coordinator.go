package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ratelimit"
	"github.com/google/uuid"
)

const (
	// DefaultDebounce is how long the lock holder waits for more messages before processing.
	DefaultDebounce = 1500 * time.Millisecond
	// DefaultStaleAfter is the age after which a processing lock is considered abandoned.
	DefaultStaleAfter = 30 * time.Second
	// Separator joins the texts of one batch into the aggregated input.
	Separator = ". "
)

var errLockLost = errors.New("session lock lost")

// ApologyText is sent when a processing pass fails unexpectedly.
const ApologyText = "😰 Ups, tuve un pequeño mareo. ¿Me lo repites por favor?"

// Outcome reports what happened to a submitted message.
type Outcome int

const (
	// OutcomeQueued means another task holds the lock and will process the message.
	OutcomeQueued Outcome = iota
	// OutcomeProcessed means this call acquired the lock and ran the processing passes.
	OutcomeProcessed
	// OutcomeRateLimited means the message was dropped by the rate limiter.
	OutcomeRateLimited
	// OutcomeDuplicate means the message id was already claimed. Set by callers
	// in front of the coordinator.
	OutcomeDuplicate
	// OutcomeIgnored means the message was answered or discarded before reaching
	// the coordinator.
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeQueued:
		return "queued"
	case OutcomeProcessed:
		return "processed"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeIgnored:
		return "ignored"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Turn is one processing pass over the aggregated pending messages.
type Turn struct {
	// Session is the working copy. Handlers mutate it; it is saved when the turn succeeds.
	Session *domain.Session
	// Input is the timestamp-ordered, duplicate-collapsed batch joined with Separator.
	Input string
	// Messages are the batch entries that contributed to Input.
	Messages []domain.PendingMessage
	// Location is the most recent location shared in the batch, if any.
	Location *domain.Location
	Now      time.Time

	checkpoint func(context.Context) error
}

// Segments returns the trimmed, non-empty texts of the batch in arrival order,
// one per customer message. Unlike splitting Input, a message that contains
// Separator stays whole.
func (t *Turn) Segments() []string {
	out := make([]string, 0, len(t.Messages))
	for _, m := range t.Messages {
		if s := strings.TrimSpace(m.Text); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Checkpoint persists the working copy immediately, keeping newly queued
// messages and the lock intact. Used before irreversible side effects.
func (t *Turn) Checkpoint(ctx context.Context) error {
	if t.checkpoint == nil {
		return nil
	}
	return t.checkpoint(ctx)
}

// Handler runs the conversation logic for one turn.
type Handler interface {
	HandleTurn(ctx context.Context, turn *Turn) ([]domain.Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, turn *Turn) ([]domain.Response, error)

// HandleTurn calls f.
func (f HandlerFunc) HandleTurn(ctx context.Context, turn *Turn) ([]domain.Response, error) {
	return f(ctx, turn)
}

// Coordinator serializes processing per session while coalescing bursts of
// messages into single turns.
type Coordinator struct {
	sessions *Manager
	handler  Handler
	gateway  ports.Gateway
	limiter  *ratelimit.Limiter
	clock    ports.Clock
	logger   *slog.Logger
	hooks    domain.Hooks

	debounce   time.Duration
	staleAfter time.Duration
}

// CoordinatorOption configures the Coordinator.
type CoordinatorOption func(*Coordinator)

// WithGateway sets where responses are delivered.
func WithGateway(g ports.Gateway) CoordinatorOption {
	return func(c *Coordinator) {
		c.gateway = g
	}
}

// WithLimiter replaces the default rate limiter.
func WithLimiter(l *ratelimit.Limiter) CoordinatorOption {
	return func(c *Coordinator) {
		c.limiter = l
	}
}

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.debounce = d
	}
}

// WithStaleAfter sets the age after which a lock may be force-acquired.
func WithStaleAfter(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.staleAfter = d
	}
}

// WithHooks registers observability callbacks.
func WithHooks(h domain.Hooks) CoordinatorOption {
	return func(c *Coordinator) {
		c.hooks = h
	}
}

// WithCoordinatorLogger configures a logger for the Coordinator.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a Coordinator. It shares the Manager's clock.
func NewCoordinator(sessions *Manager, handler Handler, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		sessions:   sessions,
		handler:    handler,
		limiter:    ratelimit.New(),
		clock:      sessions.Clock(),
		logger:     logging.NewNop(),
		debounce:   DefaultDebounce,
		staleAfter: DefaultStaleAfter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit admits msg through the rate limiter and enqueues it. See Admit and Enqueue.
func (c *Coordinator) Submit(ctx context.Context, msg domain.Message) (Outcome, error) {
	ok, err := c.Admit(ctx, msg)
	if err != nil {
		return OutcomeQueued, err
	}
	if !ok {
		return OutcomeRateLimited, nil
	}
	return c.Enqueue(ctx, msg)
}

// Admit takes one token from the sender's bucket. It must run before anything
// else is done with msg. It returns false, after reporting the drop, when the
// bucket is empty.
func (c *Coordinator) Admit(ctx context.Context, msg domain.Message) (bool, error) {
	allowed := true
	_, err := c.sessions.Update(ctx, msg.From, func(s *domain.Session) error {
		allowed = c.limiter.Allow(&s.Bucket, c.clock.Now())
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to take rate limit token: %w", err)
	}
	if !allowed {
		c.logger.Warn("Rate limit exceeded, dropping message", "session_id", msg.From, "message_id", msg.ID)
		if c.hooks.OnDrop != nil {
			c.hooks.OnDrop(ctx, &domain.DropEvent{SessionID: msg.From, MessageID: msg.ID, Reason: domain.DropRateLimited})
		}
	}
	return allowed, nil
}

// Enqueue queues an admitted msg and, if nobody is processing the session,
// becomes the lock holder and runs processing passes until the queue is empty.
// The call blocks for at least one debounce window when it becomes the holder.
func (c *Coordinator) Enqueue(ctx context.Context, msg domain.Message) (Outcome, error) {
	sessionID := msg.From
	token := uuid.NewString()
	var acquired bool

	_, err := c.sessions.Update(ctx, sessionID, func(s *domain.Session) error {
		now := c.clock.Now()
		p := msg.Pending()
		if p.ReceivedAt.IsZero() {
			p.ReceivedAt = now
		}
		s.Pending = append(s.Pending, p)

		switch {
		case !s.Lock.Held():
		case s.Lock.Stale(now, c.staleAfter):
			age := now.Sub(s.Lock.AcquiredAt)
			c.logger.Warn("Reclaiming abandoned session lock",
				"session_id", sessionID,
				"holder", s.Lock.Holder,
				"age", age,
			)
			if c.hooks.OnLockReclaimed != nil {
				c.hooks.OnLockReclaimed(ctx, &domain.LockEvent{SessionID: sessionID, Holder: s.Lock.Holder, Age: age})
			}
		default:
			return nil
		}
		s.Lock = domain.Lock{Holder: token, AcquiredAt: now}
		acquired = true
		return nil
	})
	if err != nil {
		return OutcomeQueued, fmt.Errorf("failed to enqueue message: %w", err)
	}
	if !acquired {
		return OutcomeQueued, nil
	}

	c.drive(ctx, sessionID, token)
	return OutcomeProcessed, nil
}

// drive runs debounced passes while messages keep arriving. The lock is
// released on every exit path.
func (c *Coordinator) drive(ctx context.Context, sessionID, token string) {
	released := false
	defer func() {
		if released {
			return
		}
		if err := c.release(context.WithoutCancel(ctx), sessionID, token); err != nil {
			c.logger.Error("Failed to release session lock", "session_id", sessionID, "err", err)
		}
	}()

	interrupted := false
	for {
		if !interrupted {
			if err := c.clock.Sleep(ctx, c.debounce); err != nil {
				// Queued messages have no other holder to answer them.
				c.logger.Warn("Debounce interrupted, draining queue", "session_id", sessionID, "err", err)
				ctx = context.WithoutCancel(ctx)
				interrupted = true
			}
		}

		owned := c.pass(ctx, sessionID, token)
		if !owned {
			released = true
			return
		}

		more, err := c.finish(ctx, sessionID, token)
		if err != nil {
			c.logger.Error("Failed to finish turn", "session_id", sessionID, "err", err)
			return
		}
		if !more {
			released = true
			return
		}
	}
}

// pass drains the queue and runs the handler once. It returns false if the
// lock was taken over by someone else in the meantime.
func (c *Coordinator) pass(ctx context.Context, sessionID, token string) bool {
	var (
		working *domain.Session
		batch   []domain.PendingMessage
		owned   = true
	)
	_, err := c.sessions.Update(ctx, sessionID, func(s *domain.Session) error {
		if s.Lock.Holder != token {
			owned = false
			return errLockLost
		}
		batch = s.Pending
		s.Pending = nil
		working = s.Clone()
		return nil
	})
	if !owned {
		c.logger.Warn("Session lock was taken over, abandoning pass", "session_id", sessionID)
		return false
	}
	if err != nil {
		c.logger.Error("Failed to drain pending messages", "session_id", sessionID, "err", err)
		return true
	}
	if len(batch) == 0 {
		return true
	}

	start := c.clock.Now()
	input, kept := Aggregate(batch)
	turn := &Turn{
		Session:  working,
		Input:    input,
		Messages: kept,
		Location: latestLocation(kept),
		Now:      start,
	}
	turn.checkpoint = func(ctx context.Context) error {
		return c.commit(ctx, sessionID, token, turn.Session)
	}
	fromMode := working.Mode.Name()

	responses, err := c.run(ctx, turn)
	if err != nil {
		// The working copy is discarded; the stored record stays at its last-good state.
		c.logger.Error("Turn failed", "session_id", sessionID, "err", err)
		responses = []domain.Response{domain.Text(ApologyText)}
	} else {
		turn.Session.LastInteraction = c.clock.Now()
		if cerr := c.commit(ctx, sessionID, token, turn.Session); cerr != nil {
			c.logger.Error("Failed to save session after turn", "session_id", sessionID, "err", cerr)
			err = cerr
		} else if to := turn.Session.Mode.Name(); to != fromMode && c.hooks.OnModeChange != nil {
			c.hooks.OnModeChange(ctx, &domain.ModeEvent{SessionID: sessionID, From: fromMode, To: to})
		}
	}

	c.deliver(ctx, sessionID, responses)

	if c.hooks.OnTurn != nil {
		c.hooks.OnTurn(ctx, &domain.TurnEvent{
			SessionID: sessionID,
			Mode:      turn.Session.Mode.Name(),
			Messages:  len(batch),
			Duration:  c.clock.Now().Sub(start),
			Err:       err,
		})
	}
	return true
}

// run invokes the handler, converting panics into errors.
func (c *Coordinator) run(ctx context.Context, turn *Turn) (responses []domain.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered panic in turn handler",
				"session_id", turn.Session.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			responses = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.handler.HandleTurn(ctx, turn)
}

// commit saves the working copy, preserving messages queued and lock changes
// made since the turn started.
func (c *Coordinator) commit(ctx context.Context, sessionID, token string, working *domain.Session) error {
	_, err := c.sessions.Update(ctx, sessionID, func(s *domain.Session) error {
		if s.Lock.Holder != token {
			c.logger.Warn("Saving turn without owning the session lock", "session_id", sessionID)
		}
		merged := working.Clone()
		merged.Pending = s.Pending
		merged.Lock = s.Lock
		merged.Bucket = s.Bucket
		*s = *merged
		return nil
	})
	return err
}

// finish releases the lock unless messages arrived during the pass, in which
// case the holder keeps the lock for another round. Both happen atomically with
// the queue check so no message is stranded.
func (c *Coordinator) finish(ctx context.Context, sessionID, token string) (bool, error) {
	more := false
	_, err := c.sessions.Update(ctx, sessionID, func(s *domain.Session) error {
		if s.Lock.Holder != token {
			return nil
		}
		if len(s.Pending) > 0 {
			s.Lock.AcquiredAt = c.clock.Now()
			more = true
			return nil
		}
		s.Lock = domain.Lock{}
		return nil
	})
	return more, err
}

// release unconditionally drops the lock if this token still holds it.
func (c *Coordinator) release(ctx context.Context, sessionID, token string) error {
	_, err := c.sessions.Update(ctx, sessionID, func(s *domain.Session) error {
		if s.Lock.Holder == token {
			s.Lock = domain.Lock{}
		}
		return nil
	})
	return err
}

func (c *Coordinator) deliver(ctx context.Context, to string, responses []domain.Response) {
	if c.gateway == nil {
		return
	}
	for _, r := range responses {
		if err := c.gateway.Send(ctx, to, r); err != nil {
			c.logger.Error("Failed to deliver response", "session_id", to, "err", err)
			if c.hooks.OnSendFailure != nil {
				c.hooks.OnSendFailure(ctx, err)
			}
		}
	}
}

// Aggregate sorts a batch by arrival time, drops messages repeating the
// immediately preceding one and joins the remaining texts with Separator.
// Messages without text repeat each other only when they share the same location.
func Aggregate(batch []domain.PendingMessage) (string, []domain.PendingMessage) {
	sorted := append([]domain.PendingMessage(nil), batch...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReceivedAt.Before(sorted[j].ReceivedAt)
	})

	kept := make([]domain.PendingMessage, 0, len(sorted))
	texts := make([]string, 0, len(sorted))
	for i, m := range sorted {
		if i > 0 && repeats(m, sorted[i-1]) {
			continue
		}
		kept = append(kept, m)
		if t := strings.TrimSpace(m.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, Separator), kept
}

func repeats(m, prev domain.PendingMessage) bool {
	if m.Text != prev.Text {
		return false
	}
	if m.Text != "" {
		return true
	}
	if m.Location == nil || prev.Location == nil {
		return m.Location == prev.Location
	}
	return *m.Location == *prev.Location
}

func latestLocation(msgs []domain.PendingMessage) *domain.Location {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Location != nil {
			return msgs[i].Location
		}
	}
	return nil
}
