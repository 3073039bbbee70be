package domain

// Intent is the label assigned by the classifier to a free-text turn.
type Intent string

const (
	IntentAddToCart      Intent = "ADD_TO_CART"
	IntentCategoryFilter Intent = "CATEGORY_FILTER"
	IntentInfo           Intent = "INFO"
	IntentStatus         Intent = "STATUS"
	IntentCheckout       Intent = "CHECKOUT"
	IntentStartBuilder   Intent = "START_BUILDER"
	IntentChat           Intent = "CHAT"
)

// Known reports whether the intent belongs to the closed set the router handles.
func (i Intent) Known() bool {
	switch i {
	case IntentAddToCart, IntentCategoryFilter, IntentInfo, IntentStatus, IntentCheckout, IntentStartBuilder, IntentChat:
		return true
	}
	return false
}

// Classification is the classifier output. Entities are free-form and decoded by the router.
type Classification struct {
	Intent     Intent         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities,omitempty"`
}

// RequestedProduct is a product the customer (or the classifier) asked for.
type RequestedProduct struct {
	ID       int64  `json:"id,omitempty" mapstructure:"id"`
	Slug     string `json:"slug,omitempty" mapstructure:"slug"`
	Name     string `json:"name,omitempty" mapstructure:"name"`
	Quantity int    `json:"quantity,omitempty" mapstructure:"quantity"`
}

// SalesReply is a generated conversational answer.
type SalesReply struct {
	Text             string             `json:"text"`
	SuggestedActions []string           `json:"suggested_actions,omitempty"`
	AddToCart        []RequestedProduct `json:"add_to_cart,omitempty"`
}

// ClassifyContext is the conversation context handed to the classifier.
type ClassifyContext struct {
	Mode       ModeName
	Cart       []LineItem
	Categories []Category
	History    []Exchange
}

// ChatContext is the context handed to the response generator.
type ChatContext struct {
	CustomerName string
	Cart         []LineItem
	Products     []Product
	History      []Exchange
	Open         bool
}
