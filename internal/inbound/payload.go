// Package inbound turns WhatsApp webhook deliveries into canonical funnel commands.
package inbound

import "strings"

// Payload is a WhatsApp Cloud webhook delivery.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the changes for one WhatsApp Business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one notification; Field is "messages" for message traffic.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries the messages and sender contacts of a change.
type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

// Contact identifies the sender of a message.
type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

// Profile is the sender's public WhatsApp profile.
type Profile struct {
	Name string `json:"name"`
}

// Message is a single inbound message. Only the field matching Type is set.
type Message struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *Text        `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
	Button      *Button      `json:"button,omitempty"`
	Audio       *Media       `json:"audio,omitempty"`
}

// Text is the body of a plain text message.
type Text struct {
	Body string `json:"body"`
}

// Interactive is the candidate's answer to a list or button message.
type Interactive struct {
	Type        string `json:"type"`
	ListReply   *Reply `json:"list_reply,omitempty"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
}

// Reply is the option picked in an interactive message.
type Reply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Button is a quick-reply tap on a template message.
type Button struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// Media references an uploaded attachment, fetched separately by ID.
type Media struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
}

// Event is the first message of a delivery together with its sender.
type Event struct {
	UserID      string
	DisplayName string
	Message     Message
}

// Extract picks the message to process from a delivery. Deliveries that only carry
// status updates report false.
func Extract(p Payload) (Event, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return Event{}, false
	}
	v := p.Entry[0].Changes[0].Value
	if len(v.Messages) == 0 {
		return Event{}, false
	}

	ev := Event{Message: v.Messages[0]}
	ev.UserID = strings.TrimSpace(ev.Message.From)
	if len(v.Contacts) > 0 {
		if ev.UserID == "" {
			ev.UserID = strings.TrimSpace(v.Contacts[0].WaID)
		}
		ev.DisplayName = strings.TrimSpace(v.Contacts[0].Profile.Name)
	}
	if ev.UserID == "" {
		return Event{}, false
	}
	return ev, true
}
