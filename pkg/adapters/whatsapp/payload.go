package whatsapp

import "github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"

// Provider limits, in characters.
const (
	maxText        = 4096
	maxBody        = 1024
	maxButtonTitle = 20
	maxListButton  = 20
	maxHeader      = 60
	maxFooter      = 60
	maxDescription = 72
)

const defaultBody = "Elige una opción 👇"

type outbound struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textBody    `json:"text,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
	Location         *location    `json:"location,omitempty"`
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url,omitempty"`
}

type interactive struct {
	Type   string     `json:"type"`
	Header *header    `json:"header,omitempty"`
	Body   textField  `json:"body"`
	Footer *textField `json:"footer,omitempty"`
	Action action     `json:"action"`
}

type header struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type textField struct {
	Text string `json:"text"`
}

type action struct {
	Button   string        `json:"button,omitempty"`
	Buttons  []replyButton `json:"buttons,omitempty"`
	Sections []listSection `json:"sections,omitempty"`
}

type replyButton struct {
	Type  string `json:"type"`
	Reply reply  `json:"reply"`
}

type listSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []listRow `json:"rows"`
}

type listRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type markRead struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

// compose turns a Response into the Cloud API payloads that render it, in
// send order. Content beyond provider limits is truncated, never rejected.
func compose(to string, resp domain.Response) []outbound {
	var out []outbound

	switch {
	case resp.List.RowCount() > 0:
		out = append(out, listMessage(to, resp))
	case len(resp.Buttons) > 0:
		out = append(out, buttonMessage(to, resp))
	case resp.Text != "":
		out = append(out, outbound{
			MessagingProduct: "whatsapp",
			RecipientType:    "individual",
			To:               to,
			Type:             "text",
			Text:             &textBody{Body: truncate(resp.Text, maxText)},
		})
	}

	if l := resp.Location; l != nil {
		out = append(out, outbound{
			MessagingProduct: "whatsapp",
			To:               to,
			Type:             "location",
			Location: &location{
				Latitude:  l.Latitude,
				Longitude: l.Longitude,
				Name:      l.Name,
				Address:   l.Address,
			},
		})
	}
	return out
}

func buttonMessage(to string, resp domain.Response) outbound {
	buttons := resp.Buttons
	if len(buttons) > domain.MaxButtons {
		buttons = buttons[:domain.MaxButtons]
	}
	act := action{}
	for _, b := range buttons {
		act.Buttons = append(act.Buttons, replyButton{
			Type:  "reply",
			Reply: reply{ID: b.ID, Title: truncate(b.Title, maxButtonTitle)},
		})
	}
	return outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &interactive{
			Type:   "button",
			Body:   textField{Text: body(resp.Text)},
			Action: act,
		},
	}
}

func listMessage(to string, resp domain.Response) outbound {
	l := resp.List
	buttonText := l.ButtonText
	if buttonText == "" {
		buttonText = "Ver opciones"
	}

	act := action{Button: truncate(buttonText, maxListButton)}
	remaining := domain.MaxListRows
	for _, s := range l.Sections {
		if remaining == 0 {
			break
		}
		rows := s.Rows
		if len(rows) > remaining {
			rows = rows[:remaining]
		}
		if len(rows) == 0 {
			continue
		}
		remaining -= len(rows)

		sec := listSection{Title: truncate(s.Title, domain.MaxRowTitle)}
		for _, r := range rows {
			sec.Rows = append(sec.Rows, listRow{
				ID:          r.ID,
				Title:       truncate(r.Title, domain.MaxRowTitle),
				Description: truncate(r.Description, maxDescription),
			})
		}
		act.Sections = append(act.Sections, sec)
	}

	it := &interactive{
		Type:   "list",
		Body:   textField{Text: body(resp.Text)},
		Action: act,
	}
	if l.Header != "" {
		it.Header = &header{Type: "text", Text: truncate(l.Header, maxHeader)}
	}
	if l.Footer != "" {
		it.Footer = &textField{Text: truncate(l.Footer, maxFooter)}
	}
	return outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive:      it,
	}
}

func body(text string) string {
	if text == "" {
		return defaultBody
	}
	return truncate(text, maxBody)
}

// truncate cuts s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
