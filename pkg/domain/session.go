package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// HistoryLimit caps the exchanges kept for classifier context.
const HistoryLimit = 20

// Lock marks the session as being processed. The zero value is "not held".
type Lock struct {
	Holder     string    `json:"holder,omitempty"`
	AcquiredAt time.Time `json:"acquired_at,omitempty"`
}

// Held reports whether someone owns the lock.
func (l Lock) Held() bool {
	return l.Holder != ""
}

// Stale reports whether a held lock is older than ttl.
func (l Lock) Stale(now time.Time, ttl time.Duration) bool {
	return l.Held() && now.Sub(l.AcquiredAt) > ttl
}

// RateBucket is the per-session token bucket.
type RateBucket struct {
	Tokens     int       `json:"tokens"`
	LastRefill time.Time `json:"last_refill,omitempty"`
}

// Exchange is one line of the conversation history.
type Exchange struct {
	Role string    `json:"role"` // "user" or "bot"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the persisted state of one customer conversation.
type Session struct {
	ID      string
	Mode    Mode
	Pending []PendingMessage
	Lock    Lock
	Bucket  RateBucket
	Cart    []LineItem
	Profile CustomerProfile

	// AfterHoursAck is set once the customer chose to order while closed.
	AfterHoursAck bool
	History       []Exchange

	LastOrderID     string
	LastOrderAt     time.Time
	LastInteraction time.Time
	CreatedAt       time.Time

	// repairs collects problems found while decoding, reported by Repair.
	repairs []string
}

// NewSession creates a fresh NORMAL session.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Mode:      NormalMode{},
		CreatedAt: now,
	}
}

// Fresh reports whether no turn was processed yet for this conversation.
func (s *Session) Fresh() bool {
	return s.LastInteraction.IsZero()
}

// Paused reports whether a human currently owns the conversation.
func (s *Session) Paused(now time.Time) bool {
	p, ok := s.Mode.(PausedMode)
	return ok && now.Before(p.Until)
}

// Reset drops the conversation back to NORMAL with an empty cart.
func (s *Session) Reset() {
	s.Mode = NormalMode{}
	s.Cart = nil
	s.AfterHoursAck = false
}

// Record appends an exchange to the history, keeping the latest HistoryLimit entries.
func (s *Session) Record(role, text string, at time.Time) {
	if text == "" {
		return
	}
	s.History = append(s.History, Exchange{Role: role, Text: text, At: at})
	if n := len(s.History); n > HistoryLimit {
		s.History = append([]Exchange(nil), s.History[n-HistoryLimit:]...)
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	out := *s
	out.Mode = cloneMode(s.Mode)
	out.Pending = append([]PendingMessage(nil), s.Pending...)
	out.Cart = cloneItems(s.Cart)
	out.Profile.LastOrder = cloneItems(s.Profile.LastOrder)
	out.History = append([]Exchange(nil), s.History...)
	out.repairs = nil
	return &out
}

// Repair enforces the record invariants and reports what had to be fixed.
// Capacity is the rate bucket capacity used to clamp tokens.
func (s *Session) Repair(capacity int) []string {
	fixes := s.repairs
	s.repairs = nil

	if s.Mode == nil {
		s.Mode = NormalMode{}
		fixes = append(fixes, "missing mode")
	}

	switch m := s.Mode.(type) {
	case BuilderMode:
		if m.State.ProductSlug == "" {
			s.Mode = NormalMode{}
			fixes = append(fixes, "builder without product")
			break
		}
		if m.State.StepIndex < 0 {
			m.State.StepIndex = 0
			fixes = append(fixes, "negative builder step")
		}
		if m.State.Selections == nil {
			m.State.Selections = make(map[StepID][]OptionID)
		}
		s.Mode = m
	case CheckoutMode:
		if !m.State.Step.Collecting() {
			s.Mode = NormalMode{}
			fixes = append(fixes, fmt.Sprintf("checkout in step %q", m.State.Step))
		}
	case PausedMode:
		if m.Until.IsZero() {
			s.Mode = NormalMode{}
			fixes = append(fixes, "pause without deadline")
		}
	}

	if s.Lock.Held() && s.Lock.AcquiredAt.IsZero() {
		s.Lock = Lock{}
		fixes = append(fixes, "lock without timestamp")
	}
	if !s.Lock.Held() && !s.Lock.AcquiredAt.IsZero() {
		s.Lock = Lock{}
	}

	if s.Bucket.Tokens < 0 || (capacity > 0 && s.Bucket.Tokens > capacity) {
		s.Bucket = RateBucket{}
		fixes = append(fixes, "rate bucket out of range")
	}

	kept := s.Pending[:0]
	for _, p := range s.Pending {
		if p.Text == "" && p.Location == nil {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) != len(s.Pending) {
		fixes = append(fixes, "empty pending messages")
	}
	s.Pending = kept

	return fixes
}

type sessionRecord struct {
	ID              string           `json:"id"`
	Mode            ModeName         `json:"mode"`
	Builder         *BuilderState    `json:"builder,omitempty"`
	Checkout        *CheckoutState   `json:"checkout,omitempty"`
	PausedUntil     *time.Time       `json:"paused_until,omitempty"`
	Pending         []PendingMessage `json:"pending,omitempty"`
	Lock            Lock             `json:"lock"`
	Bucket          RateBucket       `json:"bucket"`
	Cart            []LineItem       `json:"cart,omitempty"`
	Profile         CustomerProfile  `json:"profile"`
	AfterHoursAck   bool             `json:"after_hours_ack,omitempty"`
	History         []Exchange       `json:"history,omitempty"`
	LastOrderID     string           `json:"last_order_id,omitempty"`
	LastOrderAt     time.Time        `json:"last_order_at,omitempty"`
	LastInteraction time.Time        `json:"last_interaction"`
	CreatedAt       time.Time        `json:"created_at"`
}

// MarshalJSON writes the typed record with the mode flattened into a discriminator.
func (s Session) MarshalJSON() ([]byte, error) {
	rec := sessionRecord{
		ID:              s.ID,
		Mode:            ModeNormal,
		Pending:         s.Pending,
		Lock:            s.Lock,
		Bucket:          s.Bucket,
		Cart:            s.Cart,
		Profile:         s.Profile,
		AfterHoursAck:   s.AfterHoursAck,
		History:         s.History,
		LastOrderID:     s.LastOrderID,
		LastOrderAt:     s.LastOrderAt,
		LastInteraction: s.LastInteraction,
		CreatedAt:       s.CreatedAt,
	}
	switch m := s.Mode.(type) {
	case BuilderMode:
		rec.Mode = ModeBuilder
		st := m.State
		rec.Builder = &st
	case CheckoutMode:
		rec.Mode = ModeCheckout
		st := m.State
		rec.Checkout = &st
	case PausedMode:
		rec.Mode = ModePaused
		until := m.Until
		rec.PausedUntil = &until
	}
	return json.Marshal(rec)
}

// UnmarshalJSON reads a typed record. Structural problems (unknown mode, mode
// without its payload) fall back to NORMAL and are reported by Repair.
func (s *Session) UnmarshalJSON(data []byte) error {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	*s = Session{
		ID:              rec.ID,
		Mode:            NormalMode{},
		Pending:         rec.Pending,
		Lock:            rec.Lock,
		Bucket:          rec.Bucket,
		Cart:            rec.Cart,
		Profile:         rec.Profile,
		AfterHoursAck:   rec.AfterHoursAck,
		History:         rec.History,
		LastOrderID:     rec.LastOrderID,
		LastOrderAt:     rec.LastOrderAt,
		LastInteraction: rec.LastInteraction,
		CreatedAt:       rec.CreatedAt,
	}

	switch rec.Mode {
	case ModeNormal, "":
	case ModeBuilder:
		if rec.Builder == nil {
			s.repairs = append(s.repairs, "builder mode without builder state")
			break
		}
		s.Mode = BuilderMode{State: *rec.Builder}
	case ModeCheckout:
		if rec.Checkout == nil {
			s.repairs = append(s.repairs, "checkout mode without checkout state")
			break
		}
		s.Mode = CheckoutMode{State: *rec.Checkout}
	case ModePaused:
		if rec.PausedUntil == nil {
			s.repairs = append(s.repairs, "paused mode without deadline")
			break
		}
		s.Mode = PausedMode{Until: *rec.PausedUntil}
	default:
		s.repairs = append(s.repairs, fmt.Sprintf("unknown mode %q", rec.Mode))
	}
	return nil
}
