// Package monitor wraps a Bedrock runtime client so that every invocation
// produces telemetry events without changing what the caller sees.
//
// DESIGN: Wrap returns a Client exposing the same operations as the wrapped
// client. Each call is intercepted:
//   - the request body is captured before dispatch
//   - the wrapped client performs the real call, untouched
//   - response bodies are buffered and replayed so callers read the exact
//     bytes the provider sent; streams are teed chunk by chunk
//   - a batch of events is built and handed to the emitter, which never
//     blocks the call
//
// FLOW: resolve adapter -> invoke -> capture -> build events -> emit
package monitor

import (
	"context"
	"io"
)

// InvokeModelInput is a single-shot model invocation request.
type InvokeModelInput struct {
	ModelID     string
	Body        []byte
	ContentType string
	Accept      string
}

// InvokeModelOutput is the response to a single-shot invocation. Body
// yields exactly the bytes the provider returned.
type InvokeModelOutput struct {
	Body        io.ReadCloser
	ContentType string
}

// ResponseStream yields the raw chunks of a streamed response. Recv returns
// io.EOF when the stream is exhausted.
type ResponseStream interface {
	Recv() ([]byte, error)
	Close() error
}

// InvokeModelWithResponseStreamOutput is the response to a streamed
// invocation. Stream replays the upstream chunks unmodified.
type InvokeModelWithResponseStreamOutput struct {
	Stream      ResponseStream
	ContentType string
}

// ConverseInput is a conversational request.
type ConverseInput struct {
	ModelID string
	Body    []byte
}

// ConverseOutput is the response to a conversational request.
type ConverseOutput struct {
	Body io.ReadCloser
}

// EmbeddingInput is an embedding request.
type EmbeddingInput struct {
	ModelID string
	Body    []byte
}

// EmbeddingOutput is the response to an embedding request.
type EmbeddingOutput struct {
	Body io.ReadCloser
}

// RetrieveAndGenerateInput is a retrieval-augmented generation request.
type RetrieveAndGenerateInput struct {
	ModelID string
	Body    []byte
}

// RetrieveAndGenerateOutput is the response to a retrieval-augmented
// generation request.
type RetrieveAndGenerateOutput struct {
	Body io.ReadCloser
}

// =============================================================================
// CAPABILITY INTERFACES
//
// A wrapped client implements whichever of these it supports. Wrap discovers
// capabilities by type assertion; calling an operation the wrapped client
// does not implement returns ErrOperationUnsupported.
// =============================================================================

// ModelInvoker performs single-shot invocations.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, in *InvokeModelInput) (*InvokeModelOutput, error)
}

// StreamInvoker performs streamed invocations.
type StreamInvoker interface {
	InvokeModelWithResponseStream(ctx context.Context, in *InvokeModelInput) (*InvokeModelWithResponseStreamOutput, error)
}

// Converser performs conversational invocations.
type Converser interface {
	Converse(ctx context.Context, in *ConverseInput) (*ConverseOutput, error)
}

// Embedder produces embeddings.
type Embedder interface {
	CreateEmbedding(ctx context.Context, in *EmbeddingInput) (*EmbeddingOutput, error)
}

// Generator performs retrieval-augmented generation.
type Generator interface {
	RetrieveAndGenerate(ctx context.Context, in *RetrieveAndGenerateInput) (*RetrieveAndGenerateOutput, error)
}
