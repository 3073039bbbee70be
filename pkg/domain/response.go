package domain

const (
	// MaxButtons is the provider limit of quick-reply buttons per message.
	MaxButtons = 3
	// MaxListRows is the provider limit of rows across all sections of a list.
	MaxListRows = 10
	// MaxRowTitle is the provider limit for list row and button titles.
	MaxRowTitle = 24
)

// Button is a quick-reply button.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Row is a selectable entry of a List.
type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Section groups list rows under a title.
type Section struct {
	Title string `json:"title,omitempty"`
	Rows  []Row  `json:"rows"`
}

// List is a selectable menu opened by a single button.
type List struct {
	Header     string    `json:"header,omitempty"`
	Footer     string    `json:"footer,omitempty"`
	ButtonText string    `json:"button_text"`
	Sections   []Section `json:"sections"`
}

// Response is a structured outbound message.
// Text is always present; at most one of Buttons, List or Location is rendered.
type Response struct {
	Text     string    `json:"text"`
	Buttons  []Button  `json:"buttons,omitempty"`
	List     *List     `json:"list,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// Text builds a plain text response.
func Text(body string) Response {
	return Response{Text: body}
}

// WithButtons builds a text response with quick-reply buttons.
func WithButtons(body string, buttons ...Button) Response {
	return Response{Text: body, Buttons: buttons}
}

// RowCount returns the number of rows across every section.
func (l *List) RowCount() int {
	if l == nil {
		return 0
	}
	n := 0
	for _, s := range l.Sections {
		n += len(s.Rows)
	}
	return n
}
