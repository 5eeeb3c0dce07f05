package evolution

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Path   string
	APIKey string
	Body   map[string]any
}

type fakeEvolution struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r *http.Request, body map[string]any)
}

func (f *fakeEvolution) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	data, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(data, &body)

	f.mu.Lock()
	f.requests = append(f.requests, recorded{Path: r.URL.Path, APIKey: r.Header.Get("apikey"), Body: body})
	f.mu.Unlock()

	if f.handler != nil {
		f.handler(w, r, body)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{"key":{"id":"OUT1"}}`))
}

func newTestClient(t *testing.T, fake *fakeEvolution, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "gork", "key-123", logging.New(nil, "silent"), opts...)
}

func TestSendText(t *testing.T) {
	fake := &fakeEvolution{}
	c := newTestClient(t, fake)

	require.NoError(t, c.SendText(context.Background(), "123", "hello", "MSG1"))
	require.NoError(t, c.SendText(context.Background(), "123", "no quote", ""))

	require.Len(t, fake.requests, 2)
	r := fake.requests[0]
	assert.Equal(t, "/message/sendText/gork", r.Path)
	assert.Equal(t, "key-123", r.APIKey)
	assert.Equal(t, "123", r.Body["number"])
	assert.Equal(t, "hello", r.Body["text"])
	assert.Equal(t, map[string]any{"key": map[string]any{"id": "MSG1"}}, r.Body["quoted"])

	_, hasQuote := fake.requests[1].Body["quoted"]
	assert.False(t, hasQuote)
}

func TestSendMedia(t *testing.T) {
	fake := &fakeEvolution{}
	c := newTestClient(t, fake)
	ctx := context.Background()
	media := domain.Media{Data: []byte("png-bytes")}
	encoded := base64.StdEncoding.EncodeToString(media.Data)

	require.NoError(t, c.SendImage(ctx, "123", media, "a cat", ""))
	require.NoError(t, c.SendVideo(ctx, "123", domain.Media{Data: []byte("mp4"), MimeType: "video/mp4"}, "", "Q"))
	require.NoError(t, c.SendSticker(ctx, "123", media))
	require.NoError(t, c.SendAudio(ctx, "123", media))

	require.Len(t, fake.requests, 4)

	img := fake.requests[0]
	assert.Equal(t, "/message/sendMedia/gork", img.Path)
	assert.Equal(t, "image", img.Body["mediatype"])
	assert.Equal(t, "image/png", img.Body["mimetype"])
	assert.Equal(t, "a cat", img.Body["caption"])
	assert.Equal(t, encoded, img.Body["media"])

	assert.Equal(t, "video", fake.requests[1].Body["mediatype"])
	assert.NotNil(t, fake.requests[1].Body["quoted"])

	assert.Equal(t, "/message/sendSticker/gork", fake.requests[2].Path)
	assert.Equal(t, encoded, fake.requests[2].Body["sticker"])

	assert.Equal(t, "/message/sendWhatsAppAudio/gork", fake.requests[3].Path)
	assert.Equal(t, encoded, fake.requests[3].Body["audio"])
}

func TestFetchMedia(t *testing.T) {
	fake := &fakeEvolution{handler: func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"mediaType": "imageMessage",
			"mimetype":  "image/jpeg",
			"base64":    base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
		})
	}}
	c := newTestClient(t, fake)

	media, err := c.FetchMedia(context.Background(), "MSG9")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), media.Data)
	assert.Equal(t, "image/jpeg", media.MimeType)

	r := fake.requests[0]
	assert.Equal(t, "/chat/getBase64FromMediaMessage/gork", r.Path)
	assert.Equal(t, map[string]any{"key": map[string]any{"id": "MSG9"}}, r.Body["message"])
}

func TestFetchMediaBadBase64(t *testing.T) {
	fake := &fakeEvolution{handler: func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		_, _ = w.Write([]byte(`{"base64": "!!!"}`))
	}}
	c := newTestClient(t, fake)

	_, err := c.FetchMedia(context.Background(), "MSG9")
	assert.ErrorContains(t, err, "decoding media")
}

func TestProfilePicture(t *testing.T) {
	pic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("avatar"))
	}))
	defer pic.Close()

	fake := &fakeEvolution{handler: func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		if body["number"] == "nopic" {
			_, _ = w.Write([]byte(`{"profilePictureUrl": ""}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"profilePictureUrl": pic.URL + "/a.jpg"})
	}}
	c := newTestClient(t, fake)

	media, err := c.ProfilePicture(context.Background(), "551199")
	require.NoError(t, err)
	assert.Equal(t, []byte("avatar"), media.Data)
	assert.Equal(t, "image/jpeg", media.MimeType)

	_, err = c.ProfilePicture(context.Background(), "nopic")
	assert.ErrorContains(t, err, "no profile picture")
}

func TestAPIError(t *testing.T) {
	fake := &fakeEvolution{handler: func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"number not on whatsapp"}`))
	}}
	c := newTestClient(t, fake)

	err := c.SendText(context.Background(), "000", "hi", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Body, "not on whatsapp")
	assert.Contains(t, err.Error(), "/message/sendText/")
}

func TestRateLimitHonoursContext(t *testing.T) {
	fake := &fakeEvolution{}
	c := newTestClient(t, fake, WithRateLimit(0.001))

	require.NoError(t, c.SendText(context.Background(), "1", "first", ""))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.SendText(ctx, "1", "second", "")
	assert.ErrorContains(t, err, "rate limiter")
	assert.Len(t, fake.requests, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
