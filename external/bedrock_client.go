// HTTP client for the Bedrock runtime API.
//
// Client implements the monitor capability interfaces against the real
// bedrock-runtime endpoints, so it can be handed straight to monitor.Wrap.
// Streaming responses are exposed chunk by chunk through a ResponseStream.
package external

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vnfmsqkek3/bedrock-observability-go/monitor"
)

const (
	// DefaultTimeout for Bedrock API calls.
	DefaultTimeout = 60 * time.Second

	// maxResponseSize prevents OOM on unexpectedly large API responses (10MB).
	maxResponseSize = 10 * 1024 * 1024

	// maxErrorBodyLen limits error body in error messages to avoid log bloat.
	maxErrorBodyLen = 500
)

// Client calls the bedrock-runtime HTTP API.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a Client for the given region. Requests are signed with
// SigV4 through the standard AWS credential chain.
func NewClient(region string) (*Client, error) {
	transport, err := NewSigningTransport(region, nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		endpoint: fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region),
		http:     &http.Client{Transport: transport, Timeout: DefaultTimeout},
	}, nil
}

var (
	_ monitor.ModelInvoker  = (*Client)(nil)
	_ monitor.StreamInvoker = (*Client)(nil)
	_ monitor.Converser     = (*Client)(nil)
	_ monitor.Embedder      = (*Client)(nil)
)

// InvokeModel calls POST /model/{modelId}/invoke.
func (c *Client) InvokeModel(ctx context.Context, in *monitor.InvokeModelInput) (*monitor.InvokeModelOutput, error) {
	resp, err := c.post(ctx, fmt.Sprintf("/model/%s/invoke", url.PathEscape(in.ModelID)), in.Body, in.ContentType, in.Accept)
	if err != nil {
		return nil, err
	}
	return &monitor.InvokeModelOutput{
		Body:        limitBody(resp),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// InvokeModelWithResponseStream calls POST /model/{modelId}/invoke-with-response-stream.
func (c *Client) InvokeModelWithResponseStream(ctx context.Context, in *monitor.InvokeModelInput) (*monitor.InvokeModelWithResponseStreamOutput, error) {
	resp, err := c.post(ctx, fmt.Sprintf("/model/%s/invoke-with-response-stream", url.PathEscape(in.ModelID)), in.Body, in.ContentType, in.Accept)
	if err != nil {
		return nil, err
	}
	return &monitor.InvokeModelWithResponseStreamOutput{
		Stream:      newEventStream(resp.Body),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// Converse calls POST /model/{modelId}/converse.
func (c *Client) Converse(ctx context.Context, in *monitor.ConverseInput) (*monitor.ConverseOutput, error) {
	resp, err := c.post(ctx, fmt.Sprintf("/model/%s/converse", url.PathEscape(in.ModelID)), in.Body, "", "")
	if err != nil {
		return nil, err
	}
	return &monitor.ConverseOutput{Body: limitBody(resp)}, nil
}

// CreateEmbedding invokes an embedding model through the invoke endpoint.
func (c *Client) CreateEmbedding(ctx context.Context, in *monitor.EmbeddingInput) (*monitor.EmbeddingOutput, error) {
	resp, err := c.post(ctx, fmt.Sprintf("/model/%s/invoke", url.PathEscape(in.ModelID)), in.Body, "", "")
	if err != nil {
		return nil, err
	}
	return &monitor.EmbeddingOutput{Body: limitBody(resp)}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, contentType, accept string) (*http.Response, error) {
	if contentType == "" {
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build Bedrock request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Bedrock request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return nil, &apiError{
			status:  resp.StatusCode,
			code:    resp.Header.Get("X-Amzn-Errortype"),
			message: strings.TrimSpace(string(errBody)),
			reqID:   resp.Header.Get("X-Amzn-Requestid"),
		}
	}
	return resp, nil
}

func limitBody(resp *http.Response) io.ReadCloser {
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxResponseSize), resp.Body}
}

// apiError carries Bedrock's error metadata in the shape the monitor's
// error probing expects.
type apiError struct {
	status  int
	code    string
	message string
	reqID   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("bedrock returned %d (%s): %s", e.status, e.code, e.message)
}

func (e *apiError) ErrorCode() string {
	// The error type header may carry a suffix like "ThrottlingException:http://...".
	code, _, _ := strings.Cut(e.code, ":")
	return code
}

func (e *apiError) ErrorMessage() string     { return e.message }
func (e *apiError) ServiceRequestID() string { return e.reqID }

// eventStream reads newline-delimited JSON chunks from a streaming response.
type eventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newEventStream(body io.ReadCloser) *eventStream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &eventStream{body: body, scanner: sc}
}

// Recv returns the next chunk payload, skipping blank lines and SSE framing.
func (s *eventStream) Recv() ([]byte, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		line = strings.TrimPrefix(line, "data: ")
		return []byte(line), nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close closes the underlying response body.
func (s *eventStream) Close() error {
	return s.body.Close()
}
