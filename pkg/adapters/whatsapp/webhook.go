package whatsapp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// Payload is the webhook envelope posted by the Cloud API.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups changes of one business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries the messages (or delivery statuses) of one event.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value is the body of a change.
type Value struct {
	MessagingProduct string            `json:"messaging_product"`
	Contacts         []Contact         `json:"contacts,omitempty"`
	Messages         []InboundMessage  `json:"messages,omitempty"`
	Statuses         []json.RawMessage `json:"statuses,omitempty"`
}

// Contact is the sender profile.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// InboundMessage is one customer message as delivered by the webhook.
type InboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *reply `json:"button_reply,omitempty"`
		ListReply   *reply `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
	Audio *struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	} `json:"audio,omitempty"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name,omitempty"`
		Address   string  `json:"address,omitempty"`
	} `json:"location,omitempty"`
}

type reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ParseWebhook decodes a webhook body into normalized messages. Status-only
// events yield no messages and no error.
func ParseWebhook(body []byte) ([]domain.Message, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	var out []domain.Message
	for _, e := range p.Entry {
		for _, c := range e.Changes {
			for _, m := range c.Value.Messages {
				out = append(out, m.normalize())
			}
		}
	}
	return out, nil
}

func (m InboundMessage) normalize() domain.Message {
	msg := domain.Message{
		ID:        m.ID,
		From:      m.From,
		Timestamp: parseTimestamp(m.Timestamp),
	}

	switch {
	case m.Type == "text" && m.Text != nil:
		msg.Kind = domain.KindText
		msg.Text = m.Text.Body
	case m.Type == "interactive" && m.Interactive != nil:
		r := m.Interactive.ButtonReply
		if r == nil {
			r = m.Interactive.ListReply
		}
		if r == nil {
			msg.Kind = domain.KindUnsupported
			break
		}
		msg.Kind = domain.KindInteractive
		msg.ReplyID = r.ID
		msg.Text = r.Title
	case m.Type == "button" && m.Button != nil:
		msg.Kind = domain.KindInteractive
		msg.ReplyID = m.Button.Payload
		msg.Text = m.Button.Text
	case m.Type == "audio" && m.Audio != nil:
		msg.Kind = domain.KindAudio
		msg.MediaID = m.Audio.ID
	case m.Type == "location" && m.Location != nil:
		msg.Kind = domain.KindLocation
		msg.Location = &domain.Location{
			Latitude:  m.Location.Latitude,
			Longitude: m.Location.Longitude,
			Name:      m.Location.Name,
			Address:   m.Location.Address,
		}
	default:
		msg.Kind = domain.KindUnsupported
	}
	return msg
}

func parseTimestamp(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec <= 0 {
		return time.Now()
	}
	return time.Unix(sec, 0)
}

// Verify answers the GET subscription handshake. It returns the challenge to
// echo and whether the verify token matched.
func Verify(query url.Values, verifyToken string) (string, bool) {
	if verifyToken == "" || query.Get("hub.mode") != "subscribe" || query.Get("hub.verify_token") != verifyToken {
		return "", false
	}
	return query.Get("hub.challenge"), true
}
