package gateway

import (
	"encoding/json"
	"testing"

	"github.com/gorkbot/gork/internal/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameConstructors(t *testing.T) {
	req, err := NewRequest("req-1", "health", nil)
	require.NoError(t, err)
	assert.Equal(t, FrameTypeRequest, req.Type)
	assert.Equal(t, "health", req.Method)

	res, err := NewResponse("req-1", HealthResponse{Status: "ok"})
	require.NoError(t, err)
	assert.Equal(t, FrameTypeResponse, res.Type)
	require.NotNil(t, res.OK)
	assert.True(t, *res.OK)
	assert.Nil(t, res.Error)

	fail := NewErrorResponse("req-2", ErrorShape{Code: "unauthorized", Message: "invalid token"})
	require.NotNil(t, fail.OK)
	assert.False(t, *fail.OK)
	assert.Equal(t, "unauthorized", fail.Error.Code)

	ev, err := NewEvent(hooks.EventReminderFired, map[string]any{"id": 7}, 42)
	require.NoError(t, err)
	assert.Equal(t, FrameTypeEvent, ev.Type)
	assert.Equal(t, int64(42), ev.Seq)
	assert.JSONEq(t, `{"id":7}`, string(ev.Payload))
}

func TestChallengeFrameOmitsSeq(t *testing.T) {
	ev, err := NewEvent("connect.challenge", map[string]string{"nonce": "abc"}, 0)
	require.NoError(t, err)

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"seq"`)
}

func TestConnectParamsWire(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantAuth bool
		events   []string
	}{
		{"token and events", `{"client":{"id":"tail","version":"1"},"auth":{"token":"s"},"events":["reminder_fired"]}`, true, []string{"reminder_fired"}},
		{"no auth, all events", `{"client":{"id":"tail","version":"1"}}`, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p ConnectParams
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &p))
			assert.Equal(t, "tail", p.Client.ID)
			assert.Equal(t, tt.wantAuth, p.Auth != nil)
			assert.Equal(t, tt.events, p.Events)
		})
	}
}

func TestErrorShapeOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(ErrorShape{Code: "bad_request", Message: "missing params"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "details")
	assert.NotContains(t, string(data), "retryable")
	assert.NotContains(t, string(data), "retryAfterMs")
}
