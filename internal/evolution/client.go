// Package evolution is an HTTP client for the Evolution API, which owns
// the WhatsApp session the bot speaks through.
package evolution

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/logging"
	"github.com/gorkbot/gork/internal/version"
)

// maxMediaBytes caps downloads of media and profile pictures.
const maxMediaBytes = 32 << 20

// APIError is a non-2xx answer from the Evolution API.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("evolution: %s returned %d: %s", e.Path, e.Status, e.Body)
}

// Client talks to one Evolution API instance. It implements domain.Messenger.
type Client struct {
	baseURL  string
	instance string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	log      *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit bounds outbound requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient creates a Client for instance at baseURL.
func NewClient(baseURL, instance, apiKey string, log *logging.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		instance: instance,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log.Sub("evolution"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type quoted struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
}

func quote(id string) *quoted {
	if id == "" {
		return nil
	}
	q := &quoted{}
	q.Key.ID = id
	return q
}

// SendText sends a text message, quoting replyTo when set.
func (c *Client) SendText(ctx context.Context, to, text, replyTo string) error {
	body := struct {
		Number string  `json:"number"`
		Text   string  `json:"text"`
		Quoted *quoted `json:"quoted,omitempty"`
	}{to, text, quote(replyTo)}
	return c.post(ctx, "/message/sendText/", body, nil)
}

type mediaBody struct {
	Number    string  `json:"number"`
	MediaType string  `json:"mediatype"`
	Mimetype  string  `json:"mimetype,omitempty"`
	Caption   string  `json:"caption,omitempty"`
	Media     string  `json:"media"`
	FileName  string  `json:"fileName,omitempty"`
	Quoted    *quoted `json:"quoted,omitempty"`
}

// SendImage sends an image with an optional caption.
func (c *Client) SendImage(ctx context.Context, to string, media domain.Media, caption, replyTo string) error {
	return c.post(ctx, "/message/sendMedia/", mediaBody{
		Number:    to,
		MediaType: "image",
		Mimetype:  orDefault(media.MimeType, "image/png"),
		Caption:   caption,
		Media:     base64.StdEncoding.EncodeToString(media.Data),
		FileName:  orDefault(media.FileName, "image.png"),
		Quoted:    quote(replyTo),
	}, nil)
}

// SendVideo sends a video with an optional caption.
func (c *Client) SendVideo(ctx context.Context, to string, media domain.Media, caption, replyTo string) error {
	return c.post(ctx, "/message/sendMedia/", mediaBody{
		Number:    to,
		MediaType: "video",
		Mimetype:  orDefault(media.MimeType, "video/mp4"),
		Caption:   caption,
		Media:     base64.StdEncoding.EncodeToString(media.Data),
		FileName:  orDefault(media.FileName, "video.mp4"),
		Quoted:    quote(replyTo),
	}, nil)
}

// SendSticker sends a webp sticker.
func (c *Client) SendSticker(ctx context.Context, to string, media domain.Media) error {
	body := struct {
		Number  string `json:"number"`
		Sticker string `json:"sticker"`
	}{to, base64.StdEncoding.EncodeToString(media.Data)}
	return c.post(ctx, "/message/sendSticker/", body, nil)
}

// SendAudio sends a voice note.
func (c *Client) SendAudio(ctx context.Context, to string, media domain.Media) error {
	body := struct {
		Number string `json:"number"`
		Audio  string `json:"audio"`
	}{to, base64.StdEncoding.EncodeToString(media.Data)}
	return c.post(ctx, "/message/sendWhatsAppAudio/", body, nil)
}

// FetchMedia downloads the media of a message the instance has seen.
func (c *Client) FetchMedia(ctx context.Context, messageID string) (domain.Media, error) {
	body := map[string]any{
		"message":      map[string]any{"key": map[string]string{"id": messageID}},
		"convertToMp4": false,
	}
	var resp struct {
		MediaType string `json:"mediaType"`
		FileName  string `json:"fileName"`
		Mimetype  string `json:"mimetype"`
		Base64    string `json:"base64"`
	}
	if err := c.post(ctx, "/chat/getBase64FromMediaMessage/", body, &resp); err != nil {
		return domain.Media{}, err
	}
	data, err := base64.StdEncoding.DecodeString(resp.Base64)
	if err != nil {
		return domain.Media{}, fmt.Errorf("evolution: decoding media %s: %w", messageID, err)
	}
	return domain.Media{Data: data, MimeType: resp.Mimetype, FileName: resp.FileName}, nil
}

// ProfilePicture downloads a user's profile picture.
func (c *Client) ProfilePicture(ctx context.Context, number string) (domain.Media, error) {
	var resp struct {
		ProfilePictureURL string `json:"profilePictureUrl"`
	}
	if err := c.post(ctx, "/chat/fetchProfilePictureUrl/", map[string]string{"number": number}, &resp); err != nil {
		return domain.Media{}, err
	}
	if resp.ProfilePictureURL == "" {
		return domain.Media{}, fmt.Errorf("evolution: %s has no profile picture", number)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resp.ProfilePictureURL, nil)
	if err != nil {
		return domain.Media{}, fmt.Errorf("evolution: building picture request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	res, err := c.http.Do(req)
	if err != nil {
		return domain.Media{}, fmt.Errorf("evolution: downloading picture: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return domain.Media{}, &APIError{Status: res.StatusCode, Path: "profile picture"}
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxMediaBytes))
	if err != nil {
		return domain.Media{}, fmt.Errorf("evolution: reading picture: %w", err)
	}
	return domain.Media{Data: data, MimeType: res.Header.Get("Content-Type")}, nil
}

// post sends a JSON body to path+instance and decodes the answer into out
// when out is non-nil.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("evolution: rate limiter: %w", err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("evolution: marshal request: %w", err)
	}

	url := c.baseURL + path + c.instance
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("evolution: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("evolution: %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes*2))
	if err != nil {
		return fmt.Errorf("evolution: reading response: %w", err)
	}

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("evolution request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Path: path, Body: truncate(string(respBody), 300)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("evolution: parse %s response: %w", path, err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ domain.Messenger = (*Client)(nil)
