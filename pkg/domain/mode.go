package domain

import "time"

// ModeName is the serialized discriminator of a Mode.
type ModeName string

const (
	ModeNormal   ModeName = "NORMAL"
	ModeBuilder  ModeName = "BUILDER"
	ModeCheckout ModeName = "CHECKOUT"
	ModePaused   ModeName = "PAUSED"
)

// Mode is the conversation mode of a session.
// It is a closed set: NormalMode, BuilderMode, CheckoutMode and PausedMode.
type Mode interface {
	Name() ModeName
	isMode()
}

// NormalMode is general chat and menu browsing.
type NormalMode struct{}

// BuilderMode is active while the customer customizes a product.
type BuilderMode struct {
	State BuilderState
}

// CheckoutMode is active while checkout details are collected.
type CheckoutMode struct {
	State CheckoutState
}

// PausedMode hands the conversation to a human until Until.
type PausedMode struct {
	Until time.Time
}

func (NormalMode) Name() ModeName   { return ModeNormal }
func (BuilderMode) Name() ModeName  { return ModeBuilder }
func (CheckoutMode) Name() ModeName { return ModeCheckout }
func (PausedMode) Name() ModeName   { return ModePaused }

func (NormalMode) isMode()   {}
func (BuilderMode) isMode()  {}
func (CheckoutMode) isMode() {}
func (PausedMode) isMode()   {}

// BuilderState tracks progress through a customizable product.
type BuilderState struct {
	ProductSlug string `json:"product_slug"`
	StepIndex   int    `json:"step_index"`
	// Selections keeps option ids per step in the order they were selected.
	Selections map[StepID][]OptionID `json:"selections"`
}

// NewBuilderState starts a builder at the first step.
func NewBuilderState(slug string) BuilderState {
	return BuilderState{
		ProductSlug: slug,
		Selections:  make(map[StepID][]OptionID),
	}
}

// Selected returns the selections of a step.
func (b BuilderState) Selected(step StepID) []OptionID {
	return b.Selections[step]
}

func (b BuilderState) clone() BuilderState {
	out := b
	out.Selections = make(map[StepID][]OptionID, len(b.Selections))
	for k, v := range b.Selections {
		out.Selections[k] = append([]OptionID(nil), v...)
	}
	return out
}

// CheckoutStep is a state of the checkout machine.
type CheckoutStep string

const (
	StepCollectName       CheckoutStep = "COLLECT_NAME"
	StepCollectDelivery   CheckoutStep = "COLLECT_DELIVERY"
	StepCollectPickupTime CheckoutStep = "COLLECT_PICKUP_TIME"
	StepCollectAddress    CheckoutStep = "COLLECT_ADDRESS"
	StepShowSummary       CheckoutStep = "SHOW_SUMMARY"
	StepConfirmed         CheckoutStep = "CONFIRMED"
	StepCancelled         CheckoutStep = "CANCELLED"
)

// Collecting reports whether the step is a non-terminal step that can be persisted.
func (s CheckoutStep) Collecting() bool {
	switch s {
	case StepCollectName, StepCollectDelivery, StepCollectPickupTime, StepCollectAddress, StepShowSummary:
		return true
	}
	return false
}

// CheckoutState holds the data gathered during checkout.
type CheckoutState struct {
	Step           CheckoutStep   `json:"step"`
	CustomerName   string         `json:"customer_name,omitempty"`
	DeliveryMethod DeliveryMethod `json:"delivery_method,omitempty"`
	PickupTime     string         `json:"pickup_time,omitempty"`
	Address        string         `json:"address,omitempty"`
	Location       *Location      `json:"location,omitempty"`
	Items          []LineItem     `json:"items"`
	Total          Money          `json:"total"`

	// Confirmed is set before the order insert and guards against double commits.
	Confirmed bool `json:"confirmed,omitempty"`
	// OrderKey is the idempotency key sent to the order store.
	OrderKey string `json:"order_key"`
	// OrderID is set once the order store accepted the order.
	OrderID string `json:"order_id,omitempty"`
	// NameOffered records that the saved profile name was already offered.
	NameOffered bool `json:"name_offered,omitempty"`
}

func (c CheckoutState) clone() CheckoutState {
	out := c
	out.Items = cloneItems(c.Items)
	if c.Location != nil {
		loc := *c.Location
		out.Location = &loc
	}
	return out
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, it := range items {
		out[i] = it
		out[i].Details = append([]string(nil), it.Details...)
	}
	return out
}

func cloneMode(m Mode) Mode {
	switch v := m.(type) {
	case BuilderMode:
		return BuilderMode{State: v.State.clone()}
	case CheckoutMode:
		return CheckoutMode{State: v.State.clone()}
	case PausedMode:
		return v
	default:
		return NormalMode{}
	}
}
