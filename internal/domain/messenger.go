package domain

import "context"

// Media is a binary payload exchanged with the platform.
type Media struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mimeType,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// Messenger is the outbound side of the chat platform.
type Messenger interface {
	// SendText delivers text to a chat, optionally quoting replyTo.
	SendText(ctx context.Context, to, text, replyTo string) error

	// SendImage delivers an image with an optional caption.
	SendImage(ctx context.Context, to string, media Media, caption, replyTo string) error

	// SendVideo delivers a video with an optional caption.
	SendVideo(ctx context.Context, to string, media Media, caption, replyTo string) error

	// SendSticker delivers a webp sticker.
	SendSticker(ctx context.Context, to string, media Media) error

	// SendAudio delivers a voice note.
	SendAudio(ctx context.Context, to string, media Media) error

	// FetchMedia downloads the media attached to a message by id.
	FetchMedia(ctx context.Context, messageID string) (Media, error)

	// ProfilePicture downloads a user's profile picture.
	ProfilePicture(ctx context.Context, number string) (Media, error)
}
