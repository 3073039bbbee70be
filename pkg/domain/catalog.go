package domain

// StepID identifies a customization step inside a product.
type StepID string

// OptionID identifies a selectable option inside a step.
type OptionID string

// Category groups products in the menu.
type Category struct {
	ID   string `json:"id" yaml:"id"`
	Slug string `json:"slug" yaml:"slug"`
	Name string `json:"name" yaml:"name"`
}

// Option is one selectable choice of a Step.
type Option struct {
	ID         OptionID `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	PriceExtra Money    `json:"price_extra,omitempty" yaml:"price_extra,omitempty"`
}

// Step is one ordered stage of a customizable product.
type Step struct {
	ID    StepID `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// MinSelections is the minimum number of options required before advancing.
	MinSelections int `json:"min_selections" yaml:"min_selections"`
	// MaxSelections caps the number of options. 1 means single-select, 0 means unlimited.
	MaxSelections int `json:"max_selections" yaml:"max_selections"`
	// IncludedSelections is how many selections are free, counted in selection order.
	IncludedSelections int `json:"included_selections" yaml:"included_selections"`
	// PriceExtraPerSelection is charged for each selection beyond the included ones.
	PriceExtraPerSelection Money `json:"price_per_extra" yaml:"price_per_extra"`

	Options []Option `json:"options" yaml:"options"`
}

// SingleSelect reports whether picking an option replaces the previous one.
func (s Step) SingleSelect() bool {
	return s.MaxSelections == 1
}

// Option returns the option with the given id.
func (s Step) Option(id OptionID) (Option, bool) {
	for _, o := range s.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// DisplayName prefers the customer facing label.
func (s Step) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// Product is a catalog entry. Products with Steps are built through the builder flow.
type Product struct {
	ID          int64  `json:"id" yaml:"id"`
	Slug        string `json:"slug" yaml:"slug"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	BasePrice   Money  `json:"base_price" yaml:"base_price"`
	CategoryID  string `json:"category_id" yaml:"category_id"`
	Available   bool   `json:"available" yaml:"available"`
	Steps       []Step `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Customizable reports whether the product goes through the builder flow.
func (p Product) Customizable() bool {
	return len(p.Steps) > 0
}
