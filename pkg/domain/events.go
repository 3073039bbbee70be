package domain

import (
	"context"
	"time"
)

// DropReason explains why an inbound message was not processed.
type DropReason string

const (
	DropDuplicate   DropReason = "duplicate"
	DropRateLimited DropReason = "rate_limited"
	DropPaused      DropReason = "paused"
	DropInvalid     DropReason = "invalid"
)

// TurnEvent describes one processing pass over a batch of pending messages.
type TurnEvent struct {
	SessionID string
	Mode      ModeName
	Messages  int
	Duration  time.Duration
	Err       error
}

// DropEvent describes an inbound message that was discarded.
type DropEvent struct {
	SessionID string
	MessageID string
	Reason    DropReason
}

// ModeEvent describes a mode transition.
type ModeEvent struct {
	SessionID string
	From      ModeName
	To        ModeName
}

// OrderEvent describes a committed order.
type OrderEvent struct {
	SessionID string
	OrderID   string
	Total     Money
	Status    OrderStatus
}

// LockEvent describes a stale processing lock that was force-acquired.
type LockEvent struct {
	SessionID string
	Holder    string
	Age       time.Duration
}

// Hooks defines callbacks for observability. Every field is optional.
type Hooks struct {
	OnMessage        func(context.Context, MessageKind)
	OnDrop           func(context.Context, *DropEvent)
	OnTurn           func(context.Context, *TurnEvent)
	OnModeChange     func(context.Context, *ModeEvent)
	OnOrderCommitted func(context.Context, *OrderEvent)
	OnLockReclaimed  func(context.Context, *LockEvent)
	OnSendFailure    func(context.Context, error)
}

// Merge combines two hook sets, calling h first.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnMessage:        chain(h.OnMessage, other.OnMessage),
		OnDrop:           chain(h.OnDrop, other.OnDrop),
		OnTurn:           chain(h.OnTurn, other.OnTurn),
		OnModeChange:     chain(h.OnModeChange, other.OnModeChange),
		OnOrderCommitted: chain(h.OnOrderCommitted, other.OnOrderCommitted),
		OnLockReclaimed:  chain(h.OnLockReclaimed, other.OnLockReclaimed),
		OnSendFailure:    chain(h.OnSendFailure, other.OnSendFailure),
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, v T) {
		a(ctx, v)
		b(ctx, v)
	}
}
