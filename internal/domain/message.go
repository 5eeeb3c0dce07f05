package domain

import "time"

// MediaSlot names a place an inbound message can carry media.
type MediaSlot string

const (
	MediaImageMessage MediaSlot = "image_message"
	MediaVideoMessage MediaSlot = "video_message"
	MediaImageQuote   MediaSlot = "image_quote"
	MediaVideoQuote   MediaSlot = "video_quote"
	MediaStickerQuote MediaSlot = "sticker_quote"
	MediaTextQuote    MediaSlot = "text_quote"
	MediaAudioMessage MediaSlot = "audio_message"
	MediaAudioQuote   MediaSlot = "audio_quote"
)

// imagePrecedence is the order image-consuming handlers resolve a source.
var imagePrecedence = []MediaSlot{MediaImageMessage, MediaImageQuote, MediaStickerQuote}

// MessageContext is the normalized view of one inbound message.
// It is built once per event and never mutated afterwards.
type MessageContext struct {
	MessageID       string               `json:"messageId"`
	RemoteID        string               `json:"remoteId"`
	IsGroup         bool                 `json:"isGroup"`
	PhoneNumber     string               `json:"phoneNumber,omitempty"`
	SenderID        string               `json:"senderId,omitempty"`
	PushName        string               `json:"pushName,omitempty"`
	Body            string               `json:"body"`
	Mentions        []string             `json:"mentions,omitempty"`
	QuotedMessageID string               `json:"quotedMessageId,omitempty"`
	QuotedText      string               `json:"quotedText,omitempty"`
	Media           map[MediaSlot]string `json:"media,omitempty"`
	Timestamp       time.Time            `json:"timestamp"`
}

// MediaRef returns the message reference stored in a media slot.
func (m *MessageContext) MediaRef(slot MediaSlot) (string, bool) {
	ref, ok := m.Media[slot]
	return ref, ok
}

// HasMedia reports whether any of the given slots is populated.
func (m *MessageContext) HasMedia(slots ...MediaSlot) bool {
	for _, s := range slots {
		if _, ok := m.Media[s]; ok {
			return true
		}
	}
	return false
}

// ImageRef resolves the image a handler should act on: the message's own
// image first, then a quoted image, then a quoted sticker.
func (m *MessageContext) ImageRef() (MediaSlot, string, bool) {
	for _, slot := range imagePrecedence {
		if ref, ok := m.Media[slot]; ok {
			return slot, ref, true
		}
	}
	return "", "", false
}

// UserID is the platform identity of the sender: the participant in groups,
// the chat itself in private conversations.
func (m *MessageContext) UserID() string {
	if m.IsGroup {
		return m.SenderID
	}
	return m.RemoteID
}

// StoredMessage is a persisted chat line used for history and summaries.
type StoredMessage struct {
	ID         int64     `json:"id"`
	ChatID     string    `json:"chatId"`
	MessageID  string    `json:"messageId,omitempty"`
	SenderID   string    `json:"senderId,omitempty"`
	SenderName string    `json:"senderName,omitempty"`
	Content    string    `json:"content"`
	FromBot    bool      `json:"fromBot"`
	CreatedAt  time.Time `json:"createdAt"`
}
