package telemetry_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnfmsqkek3/bedrock-observability-go/events"
	"github.com/vnfmsqkek3/bedrock-observability-go/telemetry"
)

func TestHTTPSink_DeliversBatch(t *testing.T) {
	var mu sync.Mutex
	var gotBody []byte
	var gotKey, gotType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotBody, _ = io.ReadAll(r.Body)
		gotKey = r.Header.Get("Api-Key")
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := telemetry.NewHTTPSink(srv.URL, "license-key")
	err := sink.Deliver(context.Background(), []events.Event{
		{Type: events.TypeCompletion, Attributes: map[string]any{"input": "hi", "input_tokens": 2}},
		{Type: events.TypeError, Attributes: map[string]any{"error_message": "boom"}},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "license-key", gotKey)
	assert.Equal(t, "application/json", gotType)

	var payload struct {
		Events []struct {
			EventType  string         `json:"eventType"`
			Attributes map[string]any `json:"attributes"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	require.Len(t, payload.Events, 2)
	assert.Equal(t, "LlmCompletion", payload.Events[0].EventType)
	assert.Equal(t, "hi", payload.Events[0].Attributes["input"])
	assert.Equal(t, "LlmError", payload.Events[1].EventType)
}

func TestHTTPSink_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	sink := telemetry.NewHTTPSink(srv.URL, "")
	err := sink.Deliver(context.Background(), []events.Event{{Type: events.TypeCompletion}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestHTTPSink_UnreachableEndpoint(t *testing.T) {
	sink := telemetry.NewHTTPSink("http://127.0.0.1:1", "")
	err := sink.Deliver(context.Background(), []events.Event{{Type: events.TypeCompletion}})
	require.Error(t, err)
}
