package yokopoke

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/memory"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/builder"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/catalog"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/checkout"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/hours"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/idempotency"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ratelimit"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/router"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/session"
)

// Canned replies for messages answered before they reach the conversation.
const (
	MaintenanceText  = "🔧 Estamos en mantenimiento para mejorar tu experiencia. Volvemos en unos minutos. 👷‍♂️"
	UnsupportedText  = "🙈 Lo siento, mi cerebro digital aún no procesa fotos, videos ni stickers.\n\nPor favor escríbeme lo que necesitas. 📝"
	AudioFailedText  = "⚠️ No pude descargar tu audio. ¿Me lo escribes? 📝"
	AudioSilentText  = "🙉 Escuché ruido pero no entendí. ¿Podrías escribirlo? 📝"
	audioUnsupported = "🎤 Por ahora no puedo escuchar notas de voz. ¿Me lo escribes? 📝"
)

var fallbackButtons = []domain.Button{
	{ID: router.MenuReplyID, Title: "Ver Menú"},
	{ID: router.HelpReplyID, Title: "Ayuda"},
}

// ReadMarker is implemented by gateways that can acknowledge inbound messages.
type ReadMarker interface {
	MarkRead(ctx context.Context, messageID string) error
}

// Bot is the ordering assistant. It deduplicates and rate limits inbound
// messages, normalizes and sanitizes them, then hands them to the per-session
// coordinator.
type Bot struct {
	sessions    *session.Manager
	coordinator *session.Coordinator
	guard       *idempotency.Guard
	router      *router.Router

	catalog     ports.Catalog
	orders      ports.OrderStore
	gateway     ports.Gateway
	classifier  ports.Classifier
	transcriber ports.Transcriber
	media       ports.MediaFetcher
	claimer     ports.Claimer
	locker      ports.DistributedLocker
	clock       ports.Clock
	schedule    *hours.Schedule
	hooks       domain.Hooks
	logger      *slog.Logger

	catalogTTL   time.Duration
	debounce     time.Duration
	staleAfter   time.Duration
	idleTimeout  time.Duration
	pause        time.Duration
	bucketSize   int
	bucketWindow time.Duration
	maxInput     int
	maintenance  bool

	wg sync.WaitGroup
}

// Option configures the Bot.
type Option func(*Bot)

// WithGateway sets where responses are delivered. Required.
func WithGateway(g ports.Gateway) Option {
	return func(b *Bot) {
		b.gateway = g
	}
}

// WithClassifier enables the language oracle for free text.
func WithClassifier(c ports.Classifier) Option {
	return func(b *Bot) {
		b.classifier = c
	}
}

// WithVoiceNotes enables audio messages: media is downloaded with f and converted by t.
func WithVoiceNotes(f ports.MediaFetcher, t ports.Transcriber) Option {
	return func(b *Bot) {
		b.media = f
		b.transcriber = t
	}
}

// WithClaimer sets the idempotency claim store. Defaults to an in-memory one.
func WithClaimer(c ports.Claimer) Option {
	return func(b *Bot) {
		b.claimer = c
	}
}

// WithLocker enables distributed locking around session updates.
func WithLocker(l ports.DistributedLocker) Option {
	return func(b *Bot) {
		b.locker = l
	}
}

// WithClock replaces the wall clock.
func WithClock(c ports.Clock) Option {
	return func(b *Bot) {
		b.clock = c
	}
}

// WithSchedule sets the opening hours.
func WithSchedule(s *hours.Schedule) Option {
	return func(b *Bot) {
		b.schedule = s
	}
}

// WithHooks registers observability callbacks.
func WithHooks(h domain.Hooks) Option {
	return func(b *Bot) {
		b.hooks = b.hooks.Merge(h)
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithCatalogTTL sets how long catalog reads are cached. Zero disables caching.
func WithCatalogTTL(d time.Duration) Option {
	return func(b *Bot) {
		b.catalogTTL = d
	}
}

// WithDebounce sets the burst coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(b *Bot) {
		b.debounce = d
	}
}

// WithStaleAfter sets the age after which a processing lock is reclaimed.
func WithStaleAfter(d time.Duration) Option {
	return func(b *Bot) {
		b.staleAfter = d
	}
}

// WithIdleTimeout sets the inactivity window after which conversations start over.
func WithIdleTimeout(d time.Duration) Option {
	return func(b *Bot) {
		b.idleTimeout = d
	}
}

// WithPauseDuration sets how long a human keeps the conversation after a handoff.
func WithPauseDuration(d time.Duration) Option {
	return func(b *Bot) {
		b.pause = d
	}
}

// WithRateLimit sets the per-customer message budget.
func WithRateLimit(capacity int, window time.Duration) Option {
	return func(b *Bot) {
		b.bucketSize = capacity
		b.bucketWindow = window
	}
}

// WithMaxInput sets the number of characters kept from a single message.
func WithMaxInput(n int) Option {
	return func(b *Bot) {
		b.maxInput = n
	}
}

// WithMaintenance answers every message with a maintenance notice.
func WithMaintenance(on bool) Option {
	return func(b *Bot) {
		b.maintenance = on
	}
}

// New assembles a Bot over a session store, a catalog and an order store.
func New(store ports.SessionStore, cat ports.Catalog, orders ports.OrderStore, opts ...Option) (*Bot, error) {
	b := &Bot{
		catalog:      cat,
		orders:       orders,
		clock:        ports.SystemClock{},
		schedule:     hours.Default(),
		logger:       logging.NewNop(),
		catalogTTL:   catalog.DefaultTTL,
		debounce:     session.DefaultDebounce,
		staleAfter:   session.DefaultStaleAfter,
		idleTimeout:  session.DefaultIdleTimeout,
		pause:        router.DefaultPause,
		bucketSize:   ratelimit.DefaultCapacity,
		bucketWindow: ratelimit.DefaultWindow,
		maxInput:     DefaultMaxInput,
	}
	for _, opt := range opts {
		opt(b)
	}

	switch {
	case store == nil:
		return nil, errors.New("yokopoke: session store is required")
	case cat == nil:
		return nil, errors.New("yokopoke: catalog is required")
	case orders == nil:
		return nil, errors.New("yokopoke: order store is required")
	case b.gateway == nil:
		return nil, errors.New("yokopoke: gateway is required")
	}

	if b.catalogTTL > 0 {
		b.catalog = catalog.NewCache(cat,
			catalog.WithTTL(b.catalogTTL),
			catalog.WithClock(b.clock),
			catalog.WithLogger(b.logger.With("component", "catalog")),
		)
	}
	if b.claimer == nil {
		b.claimer = memory.NewClaimer(24 * time.Hour)
	}

	mopts := []session.Option{
		session.WithClock(b.clock),
		session.WithIdleTimeout(b.idleTimeout),
		session.WithBucketCapacity(b.bucketSize),
		session.WithLogger(b.logger.With("component", "sessions")),
	}
	if b.locker != nil {
		mopts = append(mopts, session.WithLocker(b.locker))
	}
	b.sessions = session.NewManager(store, mopts...)

	bopts := []builder.Option{builder.WithLogger(b.logger.With("component", "builder"))}
	ropts := []router.Option{
		router.WithSchedule(b.schedule),
		router.WithPauseDuration(b.pause),
		router.WithLogger(b.logger.With("component", "router")),
	}
	if b.classifier != nil {
		bopts = append(bopts, builder.WithClassifier(b.classifier))
		ropts = append(ropts, router.WithClassifier(b.classifier))
	}
	ropts = append(ropts,
		router.WithBuilder(builder.New(b.catalog, bopts...)),
		router.WithCheckout(checkout.New(b.orders,
			checkout.WithSchedule(b.schedule),
			checkout.WithClock(b.clock),
			checkout.WithHooks(b.hooks),
			checkout.WithLogger(b.logger.With("component", "checkout")),
		)),
	)
	b.router = router.New(b.catalog, b.orders, ropts...)

	b.coordinator = session.NewCoordinator(b.sessions, b.router,
		session.WithGateway(b.gateway),
		session.WithLimiter(ratelimit.New(ratelimit.WithCapacity(b.bucketSize), ratelimit.WithWindow(b.bucketWindow))),
		session.WithDebounce(b.debounce),
		session.WithStaleAfter(b.staleAfter),
		session.WithHooks(b.hooks),
		session.WithCoordinatorLogger(b.logger.With("component", "coordinator")),
	)
	b.guard = idempotency.New(b.claimer, idempotency.WithLogger(b.logger.With("component", "idempotency")))
	return b, nil
}

// Sessions exposes the session manager for administration.
func (b *Bot) Sessions() *session.Manager {
	return b.sessions
}

// Handle processes one inbound message and blocks until its turn, if this call
// ends up owning the session, has been answered.
func (b *Bot) Handle(ctx context.Context, msg domain.Message) (session.Outcome, error) {
	if msg.From == "" {
		return session.OutcomeIgnored, errors.New("yokopoke: message has no sender")
	}
	if !b.guard.Claim(ctx, msg.ID) {
		b.logger.Info("Duplicate message skipped", "message_id", msg.ID)
		if b.hooks.OnDrop != nil {
			b.hooks.OnDrop(ctx, &domain.DropEvent{SessionID: msg.From, MessageID: msg.ID, Reason: domain.DropDuplicate})
		}
		return session.OutcomeDuplicate, nil
	}
	if b.hooks.OnMessage != nil {
		b.hooks.OnMessage(ctx, msg.Kind)
	}
	// Every message pays for its token before anything is sent or downloaded.
	allowed, err := b.coordinator.Admit(ctx, msg)
	if err != nil {
		return session.OutcomeIgnored, fmt.Errorf("failed to admit message %s: %w", msg.ID, err)
	}
	if !allowed {
		return session.OutcomeRateLimited, nil
	}
	if rm, ok := b.gateway.(ReadMarker); ok && msg.ID != "" {
		if err := rm.MarkRead(ctx, msg.ID); err != nil {
			b.logger.Debug("Failed to mark message as read", "message_id", msg.ID, "err", err)
		}
	}

	if b.maintenance {
		return session.OutcomeIgnored, b.reply(ctx, msg.From, domain.Text(MaintenanceText))
	}

	switch msg.Kind {
	case domain.KindAudio:
		text, resp, ok := b.transcribe(ctx, msg)
		if !ok {
			return session.OutcomeIgnored, b.reply(ctx, msg.From, resp)
		}
		msg.Kind = domain.KindText
		msg.Text = text
	case domain.KindLocation:
		if msg.Location == nil {
			return b.drop(ctx, msg)
		}
	case domain.KindText, domain.KindInteractive:
	default:
		return session.OutcomeIgnored, b.reply(ctx, msg.From, domain.Text(UnsupportedText))
	}

	msg.Text = SanitizeInput(msg.Text, b.maxInput)
	msg.ReplyID = SanitizeInput(msg.ReplyID, b.maxInput)
	if msg.Text == "" && msg.ReplyID == "" && msg.Location == nil {
		return b.drop(ctx, msg)
	}

	out, err := b.coordinator.Enqueue(ctx, msg)
	if err != nil {
		return out, fmt.Errorf("failed to submit message %s: %w", msg.ID, err)
	}
	b.logger.Debug("Message handled", "message_id", msg.ID, "outcome", out.String())
	return out, nil
}

// Dispatch handles msg in the background, detached from ctx cancellation.
// Use Wait to drain in-flight messages on shutdown.
func (b *Bot) Dispatch(ctx context.Context, msg domain.Message) {
	ctx = context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if _, err := b.Handle(ctx, msg); err != nil {
			b.logger.Error("Message processing failed", "message_id", msg.ID, "err", err)
		}
	}()
}

// Wait blocks until every dispatched message has been handled or ctx is done.
func (b *Bot) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) transcribe(ctx context.Context, msg domain.Message) (string, domain.Response, bool) {
	if b.media == nil || b.transcriber == nil {
		return "", domain.WithButtons(audioUnsupported, fallbackButtons...), false
	}
	data, mime, err := b.media.FetchMedia(ctx, msg.MediaID)
	if err != nil {
		b.logger.Warn("Audio download failed", "message_id", msg.ID, "err", err)
		return "", domain.WithButtons(AudioFailedText, fallbackButtons...), false
	}
	text, err := b.transcriber.Transcribe(ctx, data, mime)
	if err != nil {
		b.logger.Warn("Audio transcription failed", "message_id", msg.ID, "err", err)
		return "", domain.WithButtons(AudioFailedText, fallbackButtons...), false
	}
	if text == "" {
		return "", domain.WithButtons(AudioSilentText, fallbackButtons...), false
	}
	b.logger.Debug("Voice note transcribed", "message_id", msg.ID, "chars", len(text))
	return text, domain.Response{}, true
}

func (b *Bot) drop(ctx context.Context, msg domain.Message) (session.Outcome, error) {
	if b.hooks.OnDrop != nil {
		b.hooks.OnDrop(ctx, &domain.DropEvent{SessionID: msg.From, MessageID: msg.ID, Reason: domain.DropInvalid})
	}
	return session.OutcomeIgnored, nil
}

func (b *Bot) reply(ctx context.Context, to string, resp domain.Response) error {
	if err := b.gateway.Send(ctx, to, resp); err != nil {
		if b.hooks.OnSendFailure != nil {
			b.hooks.OnSendFailure(ctx, err)
		}
		return fmt.Errorf("failed to reply: %w", err)
	}
	return nil
}
