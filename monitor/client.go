package monitor

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/vnfmsqkek3/bedrock-observability-go/adapters"
	"github.com/vnfmsqkek3/bedrock-observability-go/config"
	"github.com/vnfmsqkek3/bedrock-observability-go/events"
	"github.com/vnfmsqkek3/bedrock-observability-go/feedback"
	"github.com/vnfmsqkek3/bedrock-observability-go/telemetry"
	"github.com/vnfmsqkek3/bedrock-observability-go/trace"
)

// Client is the instrumented wrapper around a Bedrock runtime client.
type Client struct {
	invoker   ModelInvoker
	streamer  StreamInvoker
	converser Converser
	embedder  Embedder
	generator Generator

	cfg      *config.Config
	registry *adapters.Registry
	builder  *events.Builder
	emitter  *telemetry.Emitter
	feedback *feedback.Collector
}

// Option customizes a wrapped Client.
type Option func(*wrapConfig)

type wrapConfig struct {
	sink     telemetry.Sink
	tokens   events.TokenCounter
	registry *adapters.Registry
}

// WithSink overrides the delivery sink. Without it, events go to an HTTP
// sink at the configured endpoint, or are discarded when no endpoint is set.
func WithSink(s telemetry.Sink) Option {
	return func(w *wrapConfig) { w.sink = s }
}

// WithTokenCounter sets the estimator used when providers report no token
// usage.
func WithTokenCounter(tc events.TokenCounter) Option {
	return func(w *wrapConfig) { w.tokens = tc }
}

// WithRegistry overrides the adapter registry, e.g. to register a custom
// provider adapter.
func WithRegistry(r *adapters.Registry) Option {
	return func(w *wrapConfig) { w.registry = r }
}

// Wrap instruments client. The client may implement any subset of the
// capability interfaces; operations it does not implement return
// ErrOperationUnsupported. Call Close to flush pending telemetry.
func Wrap(client any, cfg *config.Config, opts ...Option) (*Client, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.ApplyDefaults()
	if cfg.ServiceName == "" {
		return nil, ErrServiceNameRequired
	}

	var wc wrapConfig
	for _, opt := range opts {
		opt(&wc)
	}

	sink := wc.sink
	if sink == nil {
		if cfg.SinkEndpoint != "" {
			sink = telemetry.NewHTTPSink(cfg.SinkEndpoint, cfg.SinkCredential)
		} else {
			log.Warn().Msg("monitor: no sink endpoint configured, events will be discarded")
			sink = telemetry.DiscardSink{}
		}
	}

	registry := wc.registry
	if registry == nil {
		registry = adapters.NewRegistry()
	}

	builderOpts := []events.BuilderOption{}
	if !cfg.TokenUsageEnabled() {
		builderOpts = append(builderOpts, events.WithoutTokenUsage())
	} else if wc.tokens != nil {
		builderOpts = append(builderOpts, events.WithTokenCounter(wc.tokens))
	}

	c := &Client{
		cfg:      cfg,
		registry: registry,
		builder:  events.NewBuilder(cfg.ServiceName, builderOpts...),
		emitter:  telemetry.NewEmitter(sink, telemetry.WithQueueSize(cfg.QueueSize)),
	}
	c.invoker, _ = client.(ModelInvoker)
	c.streamer, _ = client.(StreamInvoker)
	c.converser, _ = client.(Converser)
	c.embedder, _ = client.(Embedder)
	c.generator, _ = client.(Generator)

	if cfg.CollectFeedback {
		c.feedback = feedback.NewCollector(cfg.ServiceName, c.emitter.Emit)
	}

	c.emitter.Start()
	log.Info().Str("service", cfg.ServiceName).Msg("monitor: client wrapped")
	return c, nil
}

// Close flushes queued telemetry and stops the background workers.
func (c *Client) Close() error {
	c.emitter.Stop()
	return nil
}

// Stats returns the emitter's delivery counters.
func (c *Client) Stats() telemetry.Stats {
	return c.emitter.Stats()
}

// Feedback returns the evaluation/feedback collector, or nil when feedback
// collection is disabled.
func (c *Client) Feedback() *feedback.Collector {
	return c.feedback
}

// =============================================================================
// OPERATIONS
// =============================================================================

// InvokeModel performs a single-shot invocation through the wrapped client.
func (c *Client) InvokeModel(ctx context.Context, in *InvokeModelInput) (*InvokeModelOutput, error) {
	if c.invoker == nil {
		return nil, ErrOperationUnsupported
	}
	tc := c.traceFor(ctx)
	start := time.Now()

	out, err := c.invoker.InvokeModel(ctx, in)
	if err != nil {
		c.recordFailure(events.OpCompletion, in.ModelID, in.Body, time.Since(start), tc, err)
		return nil, err
	}

	body, readErr := bufferBody(out.Body)
	latency := time.Since(start)
	if readErr != nil {
		c.recordFailure(events.OpCompletion, in.ModelID, in.Body, latency, tc, readErr)
		return nil, readErr
	}

	ex := c.exchange(events.OpCompletion, in.ModelID, in.Body, body, latency)
	c.emit(ex, tc)

	out.Body = newReplayBody(body)
	return out, nil
}

// InvokeModelWithResponseStream performs a streamed invocation. The returned
// stream replays the upstream chunks byte for byte; telemetry is finalized
// when the stream ends, is closed early, or goes idle.
func (c *Client) InvokeModelWithResponseStream(ctx context.Context, in *InvokeModelInput) (*InvokeModelWithResponseStreamOutput, error) {
	if c.streamer == nil {
		return nil, ErrOperationUnsupported
	}
	tc := c.traceFor(ctx)
	start := time.Now()

	out, err := c.streamer.InvokeModelWithResponseStream(ctx, in)
	if err != nil {
		c.recordFailure(events.OpCompletionStream, in.ModelID, in.Body, time.Since(start), tc, err)
		return nil, err
	}

	if c.cfg.DisableStreamingEvents {
		return out, nil
	}

	adapter := c.registry.Resolve(in.ModelID)
	acc := newAccumulator(adapter, c.cfg.StreamIdleTimeout, func(final accumulated) {
		ex := &events.Exchange{
			Operation:      events.OpCompletionStream,
			ModelID:        in.ModelID,
			Prompt:         adapter.ExtractPrompt(in.Body),
			Params:         adapter.ExtractParameters(in.Body),
			Completion:     final.text,
			Usage:          final.usage,
			StopReason:     final.stopReason,
			Latency:        time.Since(start),
			Streamed:       true,
			Truncated:      final.truncated,
			DecodeFailures: final.decodeFailures,
		}
		if final.err != nil {
			code, message, requestID := probeError(final.err)
			ex.Error = &events.UpstreamError{
				Message:     message,
				Code:        code,
				RequestID:   requestID,
				RateLimited: IsRateLimited(final.err),
			}
		}
		c.emit(ex, tc)
	})

	out.Stream = newTeeStream(out.Stream, acc)
	return out, nil
}

// Converse performs a conversational invocation through the wrapped client.
func (c *Client) Converse(ctx context.Context, in *ConverseInput) (*ConverseOutput, error) {
	if c.converser == nil {
		return nil, ErrOperationUnsupported
	}
	tc := c.traceFor(ctx)
	start := time.Now()

	out, err := c.converser.Converse(ctx, in)
	if err != nil {
		c.recordFailure(events.OpConverse, in.ModelID, in.Body, time.Since(start), tc, err)
		return nil, err
	}

	body, readErr := bufferBody(out.Body)
	latency := time.Since(start)
	if readErr != nil {
		c.recordFailure(events.OpConverse, in.ModelID, in.Body, latency, tc, readErr)
		return nil, readErr
	}

	ex := c.exchange(events.OpConverse, in.ModelID, in.Body, body, latency)
	converseFallback(ex, in.Body, body)
	c.emit(ex, tc)

	out.Body = newReplayBody(body)
	return out, nil
}

// CreateEmbedding produces embeddings through the wrapped client.
func (c *Client) CreateEmbedding(ctx context.Context, in *EmbeddingInput) (*EmbeddingOutput, error) {
	if c.embedder == nil {
		return nil, ErrOperationUnsupported
	}
	tc := c.traceFor(ctx)
	start := time.Now()

	out, err := c.embedder.CreateEmbedding(ctx, in)
	if err != nil {
		c.recordFailure(events.OpEmbedding, in.ModelID, in.Body, time.Since(start), tc, err)
		return nil, err
	}

	body, readErr := bufferBody(out.Body)
	latency := time.Since(start)
	if readErr != nil {
		c.recordFailure(events.OpEmbedding, in.ModelID, in.Body, latency, tc, readErr)
		return nil, readErr
	}

	ex := c.exchange(events.OpEmbedding, in.ModelID, in.Body, body, latency)
	c.emit(ex, tc)

	out.Body = newReplayBody(body)
	return out, nil
}

// RetrieveAndGenerate performs a retrieval-augmented generation through the
// wrapped client.
func (c *Client) RetrieveAndGenerate(ctx context.Context, in *RetrieveAndGenerateInput) (*RetrieveAndGenerateOutput, error) {
	if c.generator == nil {
		return nil, ErrOperationUnsupported
	}
	tc := c.traceFor(ctx)
	start := time.Now()

	out, err := c.generator.RetrieveAndGenerate(ctx, in)
	if err != nil {
		c.recordFailure(events.OpRetrieveGenerate, in.ModelID, in.Body, time.Since(start), tc, err)
		return nil, err
	}

	body, readErr := bufferBody(out.Body)
	latency := time.Since(start)
	if readErr != nil {
		c.recordFailure(events.OpRetrieveGenerate, in.ModelID, in.Body, latency, tc, readErr)
		return nil, readErr
	}

	ex := c.exchange(events.OpRetrieveGenerate, in.ModelID, in.Body, body, latency)
	if ex.Completion == "" {
		if text := gjson.GetBytes(body, "output.text"); text.Exists() {
			ex.Completion = text.String()
		}
	}
	c.emit(ex, tc)

	out.Body = newReplayBody(body)
	return out, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (c *Client) traceFor(ctx context.Context) *trace.Context {
	if tc := trace.FromContext(ctx); tc != nil {
		return tc.ForExchange()
	}
	return trace.Begin()
}

func (c *Client) exchange(op events.Operation, modelID string, reqBody, respBody []byte, latency time.Duration) *events.Exchange {
	adapter := c.registry.Resolve(modelID)
	ex := &events.Exchange{
		Operation: op,
		ModelID:   modelID,
		Prompt:    adapter.ExtractPrompt(reqBody),
		Params:    adapter.ExtractParameters(reqBody),
		Latency:   latency,
	}
	if len(respBody) > 0 {
		ex.Completion = adapter.ExtractCompletion(respBody)
		ex.Usage = adapter.ExtractUsage(respBody)
		ex.StopReason = adapter.ExtractStopReason(respBody)
	}
	return ex
}

func (c *Client) recordFailure(op events.Operation, modelID string, reqBody []byte, latency time.Duration, tc *trace.Context, err error) {
	adapter := c.registry.Resolve(modelID)
	code, message, requestID := probeError(err)
	ex := &events.Exchange{
		Operation: op,
		ModelID:   modelID,
		Prompt:    adapter.ExtractPrompt(reqBody),
		Params:    adapter.ExtractParameters(reqBody),
		Latency:   latency,
		Error: &events.UpstreamError{
			Message:     message,
			Code:        code,
			RequestID:   requestID,
			RateLimited: IsRateLimited(err),
		},
	}
	c.emit(ex, tc)
}

func (c *Client) emit(ex *events.Exchange, tc *trace.Context) {
	c.emitter.Emit(c.builder.Build(ex, tc))
}

// bufferBody reads the response body fully so the caller gets a replayable
// copy of the exact bytes the provider sent.
func bufferBody(rc io.ReadCloser) ([]byte, error) {
	if rc == nil {
		return nil, nil
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// replayBody is the buffered replacement handed back to the caller. It
// reads the exact upstream bytes and additionally supports seeking, since
// the original body has already been consumed.
type replayBody struct {
	*bytes.Reader
}

func newReplayBody(body []byte) *replayBody {
	return &replayBody{bytes.NewReader(body)}
}

func (*replayBody) Close() error { return nil }

// converseFallback fills in fields the model adapters miss for the Converse
// API, whose request and response schema is shared across vendors.
func converseFallback(ex *events.Exchange, reqBody, respBody []byte) {
	if len(ex.Prompt.Messages) == 0 {
		ex.Prompt.Messages = converseMessages(reqBody, "messages")
	}
	if ex.Completion == "" {
		if blocks := gjson.GetBytes(respBody, "output.message.content"); blocks.IsArray() {
			var buf bytes.Buffer
			blocks.ForEach(func(_, block gjson.Result) bool {
				if t := block.Get("text"); t.Exists() {
					buf.WriteString(t.String())
				}
				return true
			})
			ex.Completion = buf.String()
		}
	}
	if !ex.Usage.Known() {
		usage := gjson.GetBytes(respBody, "usage")
		if usage.Exists() {
			if v := usage.Get("inputTokens"); v.Exists() {
				n := int(v.Int())
				ex.Usage.InputTokens = &n
			}
			if v := usage.Get("outputTokens"); v.Exists() {
				n := int(v.Int())
				ex.Usage.OutputTokens = &n
			}
			if v := usage.Get("totalTokens"); v.Exists() {
				n := int(v.Int())
				ex.Usage.TotalTokens = &n
			}
		}
	}
	if ex.StopReason == "" {
		ex.StopReason = gjson.GetBytes(respBody, "stopReason").String()
	}
}

// converseMessages flattens a Converse-style messages array, where content
// is a list of typed blocks, into plain role/content pairs.
func converseMessages(body []byte, path string) []adapters.Message {
	arr := gjson.GetBytes(body, path)
	if !arr.IsArray() {
		return nil
	}
	var msgs []adapters.Message
	arr.ForEach(func(_, m gjson.Result) bool {
		msg := adapters.Message{Role: m.Get("role").String()}
		content := m.Get("content")
		if content.IsArray() {
			var buf bytes.Buffer
			content.ForEach(func(_, block gjson.Result) bool {
				if t := block.Get("text"); t.Exists() {
					buf.WriteString(t.String())
				}
				return true
			})
			msg.Content = buf.String()
		} else {
			msg.Content = content.String()
		}
		msgs = append(msgs, msg)
		return true
	})
	return msgs
}
