package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/color"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // quoted stickers arrive as webp

	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/llm"
)

// StickerSize is the edge of the square canvas WhatsApp stickers use.
const StickerSize = 512

// StickerImage fits an image into a transparent StickerSize square, draws
// caption over it when set, and encodes it as PNG. The messenger converts it
// to webp.
func StickerImage(data []byte, caption string) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	fitted := imaging.Fit(src, StickerSize, StickerSize, imaging.Lanczos)
	canvas := imaging.New(StickerSize, StickerSize, color.NRGBA{})
	canvas = imaging.PasteCenter(canvas, fitted)
	if strings.TrimSpace(caption) != "" {
		canvas = DrawCaption(canvas, caption)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding sticker: %w", err)
	}
	return buf.Bytes(), nil
}

type stickerHandler struct {
	out   *Outbox
	model llm.Client
	name  string
}

func (h *stickerHandler) Handle(ctx context.Context, req *Request) error {
	m := h.out.Messenger()

	var (
		src domain.Media
		err error
	)
	_, ref, hasImage := req.Msg.ImageRef()
	switch {
	case req.Command.Params.Flag("random"):
		src, err = generateImage(ctx, h.model, h.name,
			"A random, funny and colorful picture that works as a chat sticker. No text.", nil)
	case hasImage:
		src, err = m.FetchMedia(ctx, ref)
	case len(req.Msg.Mentions) > 0:
		src, err = m.ProfilePicture(ctx, req.Msg.Mentions[0])
	default:
		return Userf("Send or quote an image, or mention someone, to make a sticker.")
	}
	if err != nil {
		return fmt.Errorf("loading sticker source: %w", err)
	}

	if req.Command.Params.Flag("no-background") {
		if h.name == "" {
			return Userf("Background removal needs an image model, and none is configured.")
		}
		src, err = generateImage(ctx, h.model, h.name,
			"Remove the background of this image. Keep the subject untouched on a transparent background.", &src)
		if err != nil {
			return fmt.Errorf("removing background: %w", err)
		}
	}

	caption := req.Command.Clean
	if strings.TrimSpace(caption) == "" {
		caption = req.Msg.QuotedText
	}
	sticker, err := StickerImage(src.Data, caption)
	if err != nil {
		return Userf("I could not read that image.")
	}
	return m.SendSticker(ctx, req.Msg.RemoteID, domain.Media{Data: sticker, MimeType: "image/png", FileName: "sticker.png"})
}

type imageHandler struct {
	out   *Outbox
	model llm.Client
	name  string
}

func (h *imageHandler) Handle(ctx context.Context, req *Request) error {
	m := h.out.Messenger()
	prompt := req.Command.Clean

	var source *domain.Media
	ref, ok := req.Command.Params.String("id")
	if !ok {
		_, ref, ok = req.Msg.ImageRef()
	}
	if ok {
		media, err := m.FetchMedia(ctx, ref)
		if err != nil {
			return fmt.Errorf("loading source image %s: %w", ref, err)
		}
		source = &media
	}

	switch {
	case prompt == "" && source == nil:
		return Userf("Describe the image you want, e.g. !image a cat astronaut")
	case prompt == "":
		return Userf("Tell me how to change the image.")
	case h.name == "":
		return Userf("No image model is configured.")
	}

	img, err := generateImage(ctx, h.model, h.name, prompt, source)
	if err != nil {
		var ue *UserError
		if errors.As(err, &ue) {
			return err
		}
		return fmt.Errorf("generating image: %w", err)
	}
	return m.SendImage(ctx, req.Msg.RemoteID, img, "", req.Msg.MessageID)
}

type transcribeHandler struct {
	out   *Outbox
	model llm.Client
	name  string
}

func (h *transcribeHandler) Handle(ctx context.Context, req *Request) error {
	ref, ok := req.Msg.MediaRef(domain.MediaAudioQuote)
	if !ok {
		ref, ok = req.Msg.MediaRef(domain.MediaAudioMessage)
	}
	if !ok {
		return Userf("Quote an audio message to transcribe it.")
	}

	audio, err := h.out.Messenger().FetchMedia(ctx, ref)
	if err != nil {
		return fmt.Errorf("loading audio %s: %w", ref, err)
	}

	resp, err := h.model.Complete(ctx, llm.CompletionRequest{
		Model: h.name,
		Messages: []llm.Message{{Role: llm.RoleUser, Parts: []llm.Part{
			llm.TextPart("Transcribe this audio verbatim. Reply with the transcription only."),
			llm.AudioPart(base64.StdEncoding.EncodeToString(audio.Data), audioFormat(audio.MimeType)),
		}}},
	})
	if err != nil {
		return fmt.Errorf("transcribing: %w", err)
	}
	if resp.Content == "" {
		return Userf("I could not hear anything in that audio.")
	}
	return h.out.Reply(ctx, &req.Msg, "*Transcription*\n"+resp.Content)
}

// generateImage asks the image model for a picture, optionally starting
// from source.
func generateImage(ctx context.Context, model llm.Client, name, prompt string, source *domain.Media) (domain.Media, error) {
	parts := []llm.Part{llm.TextPart(prompt)}
	if source != nil {
		mime := source.MimeType
		if mime == "" {
			mime = http.DetectContentType(source.Data)
		}
		parts = append(parts, llm.ImagePart(llm.DataURL(mime, source.Data)))
	}

	resp, err := model.Complete(ctx, llm.CompletionRequest{
		Model:       name,
		Messages:    []llm.Message{{Role: llm.RoleUser, Parts: parts}},
		ImageOutput: true,
	})
	if err != nil {
		return domain.Media{}, err
	}
	if len(resp.Images) == 0 {
		if resp.Content != "" {
			return domain.Media{}, Userf("%s", resp.Content)
		}
		return domain.Media{}, Userf("The model did not return an image.")
	}
	data := resp.Images[0]
	return domain.Media{Data: data, MimeType: http.DetectContentType(data), FileName: "image.png"}, nil
}

// audioFormat maps a mime type onto the format names model gateways accept.
func audioFormat(mime string) string {
	mime = strings.ToLower(mime)
	switch {
	case strings.Contains(mime, "mpeg"), strings.Contains(mime, "mp3"):
		return "mp3"
	case strings.Contains(mime, "wav"):
		return "wav"
	case strings.Contains(mime, "mp4"), strings.Contains(mime, "m4a"), strings.Contains(mime, "aac"):
		return "m4a"
	}
	return "ogg"
}
