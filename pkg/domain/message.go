package domain

import "time"

// MessageKind is the payload type of an inbound message.
type MessageKind string

const (
	KindText        MessageKind = "text"
	KindInteractive MessageKind = "interactive" // button or list reply
	KindAudio       MessageKind = "audio"
	KindLocation    MessageKind = "location"
	// KindUnsupported covers images, stickers, video and other media the bot cannot read.
	KindUnsupported MessageKind = "unsupported"
)

// Location is a geographic pin, shared by the customer or sent by the bot.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// Message is an inbound event already normalized from the messaging provider envelope.
type Message struct {
	ID        string
	From      string
	Kind      MessageKind
	Text      string
	ReplyID   string // id of the button or list row the customer tapped
	MediaID   string // provider media handle for audio messages
	Location  *Location
	Timestamp time.Time
}

// PendingMessage is a queued inbound event awaiting a processing pass.
type PendingMessage struct {
	ID         string      `json:"id,omitempty"`
	Text       string      `json:"text"`
	Kind       MessageKind `json:"kind,omitempty"`
	Location   *Location   `json:"location,omitempty"`
	ReceivedAt time.Time   `json:"received_at"`
}

// Pending converts the message into its queued form. Interactive replies are
// queued by their reply id so state machines can match them exactly.
func (m Message) Pending() PendingMessage {
	text := m.Text
	if m.Kind == KindInteractive && m.ReplyID != "" {
		text = m.ReplyID
	}
	return PendingMessage{
		ID:         m.ID,
		Text:       text,
		Kind:       m.Kind,
		Location:   m.Location,
		ReceivedAt: m.Timestamp,
	}
}
