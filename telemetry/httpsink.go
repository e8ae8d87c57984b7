package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/sjson"

	"github.com/vnfmsqkek3/bedrock-observability-go/events"
)

const (
	defaultSinkTimeout = 10 * time.Second

	// maxErrorBodyLen limits error body in error messages to avoid log bloat.
	maxErrorBodyLen = 500
)

// HTTPSink delivers event batches as JSON over HTTP POST.
type HTTPSink struct {
	endpoint   string
	credential string
	client     *http.Client
}

// NewHTTPSink creates a sink posting to endpoint. credential, when set, is
// sent as the Api-Key header.
func NewHTTPSink(endpoint, credential string) *HTTPSink {
	return &HTTPSink{
		endpoint:   endpoint,
		credential: credential,
		client:     &http.Client{Timeout: defaultSinkTimeout},
	}
}

var _ Sink = (*HTTPSink)(nil)

// Deliver posts one batch. Non-2xx responses are errors so the emitter's
// retry policy applies.
func (s *HTTPSink) Deliver(ctx context.Context, batch []events.Event) error {
	payload, err := encodeBatch(batch)
	if err != nil {
		return fmt.Errorf("failed to encode event batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.credential != "" {
		req.Header.Set("Api-Key", s.credential)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return fmt.Errorf("sink returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

// encodeBatch builds the wire payload incrementally so a single bad
// attribute value cannot sink the whole batch.
func encodeBatch(batch []events.Event) ([]byte, error) {
	payload := []byte(`{"events":[]}`)
	var err error
	for i, ev := range batch {
		prefix := fmt.Sprintf("events.%d", i)
		payload, err = sjson.SetBytes(payload, prefix+".eventType", string(ev.Type))
		if err != nil {
			return nil, err
		}
		for k, v := range ev.Attributes {
			next, setErr := sjson.SetBytes(payload, prefix+".attributes."+k, v)
			if setErr != nil {
				continue
			}
			payload = next
		}
	}
	return payload, nil
}
