package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EventMessagesUpsert is the only webhook event type the pipeline consumes.
const EventMessagesUpsert = "messages.upsert"

// Event is the webhook body delivered by the Evolution API.
type Event struct {
	Event    string    `json:"event"`
	Instance string    `json:"instance,omitempty"`
	APIKey   string    `json:"apikey,omitempty"`
	Sender   string    `json:"sender,omitempty"`
	Data     EventData `json:"data"`
}

// EventData carries a single inbound message.
type EventData struct {
	Key              MessageKey   `json:"key"`
	PushName         string       `json:"pushName,omitempty"`
	Message          *Message     `json:"message,omitempty"`
	ContextInfo      *ContextInfo `json:"contextInfo,omitempty"`
	MessageType      string       `json:"messageType,omitempty"`
	MessageTimestamp EpochSeconds `json:"messageTimestamp"`
}

// MessageKey addresses a message on the platform.
type MessageKey struct {
	RemoteJid    string `json:"remoteJid"`
	RemoteJidAlt string `json:"remoteJidAlt,omitempty"`
	FromMe       bool   `json:"fromMe"`
	ID           string `json:"id"`
	Participant  string `json:"participant,omitempty"`
}

// Message is the platform message body. Only the substructures the bot
// reads are modelled.
type Message struct {
	Conversation        string               `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedTextMessage `json:"extendedTextMessage,omitempty"`
	ImageMessage        *MediaMessage        `json:"imageMessage,omitempty"`
	VideoMessage        *MediaMessage        `json:"videoMessage,omitempty"`
	StickerMessage      *MediaMessage        `json:"stickerMessage,omitempty"`
	AudioMessage        *MediaMessage        `json:"audioMessage,omitempty"`
	EphemeralMessage    *EphemeralMessage    `json:"ephemeralMessage,omitempty"`
	Base64              string               `json:"base64,omitempty"`
}

// ExtendedTextMessage is a text message carrying link previews, replies or mentions.
type ExtendedTextMessage struct {
	Text        string       `json:"text,omitempty"`
	ContextInfo *ContextInfo `json:"contextInfo,omitempty"`
}

// MediaMessage covers image, video, sticker and audio payloads.
type MediaMessage struct {
	Caption     string       `json:"caption,omitempty"`
	Mimetype    string       `json:"mimetype,omitempty"`
	URL         string       `json:"url,omitempty"`
	Seconds     int          `json:"seconds,omitempty"`
	PTT         bool         `json:"ptt,omitempty"`
	ContextInfo *ContextInfo `json:"contextInfo,omitempty"`
}

// EphemeralMessage wraps messages sent in disappearing-message chats.
type EphemeralMessage struct {
	Message *Message `json:"message,omitempty"`
}

// ContextInfo holds reply and mention metadata.
type ContextInfo struct {
	StanzaID      string   `json:"stanzaId,omitempty"`
	Participant   string   `json:"participant,omitempty"`
	MentionedJid  []string `json:"mentionedJid,omitempty"`
	QuotedMessage *Message `json:"quotedMessage,omitempty"`
}

// IsMessageUpsert reports whether the event carries a new message.
func (e *Event) IsMessageUpsert() bool {
	return e.Event == EventMessagesUpsert
}

// Text returns the plain text of a message, looking through ephemeral and
// extended text wrappers.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	if m.Conversation != "" {
		return m.Conversation
	}
	if m.ExtendedTextMessage != nil && m.ExtendedTextMessage.Text != "" {
		return m.ExtendedTextMessage.Text
	}
	if m.EphemeralMessage != nil {
		return m.EphemeralMessage.Message.Text()
	}
	return ""
}

// EpochSeconds is a unix timestamp that decodes from either a JSON number
// or a numeric string.
type EpochSeconds int64

// UnmarshalJSON implements json.Unmarshaler.
func (e *EpochSeconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*e = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*e = 0
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("messageTimestamp: %w", err)
	}
	*e = EpochSeconds(int64(n))
	return nil
}

// Time converts the timestamp to a time.Time. Zero stays the zero time.
func (e EpochSeconds) Time() time.Time {
	if e == 0 {
		return time.Time{}
	}
	return time.Unix(int64(e), 0)
}
