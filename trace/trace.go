// Package trace carries correlation identifiers across a multi-step LLM
// workflow.
//
// DESIGN: A Context is created once per logical workflow via Begin and passed
// by pointer into every call made under it. All events produced under one
// Begin carry the same trace id, so the backend can reconstruct a
// retrieval → generation chain as a single unit. Identifiers are immutable
// after Begin; sub-operations get their own completion id through Span.
package trace

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Context holds the correlation identifiers for one logical workflow.
// Fields are fixed at Begin and must not be mutated afterwards.
type Context struct {
	TraceID        string
	CompletionID   string
	ConversationID string
	UserID         string

	claimed uint32
}

// Option customizes a Context created by Begin.
type Option func(*Context)

// WithTraceID sets a caller-supplied trace id.
func WithTraceID(id string) Option {
	return func(c *Context) { c.TraceID = id }
}

// WithCompletionID sets a caller-supplied completion id.
func WithCompletionID(id string) Option {
	return func(c *Context) { c.CompletionID = id }
}

// WithConversationID sets the conversation id for chat workflows.
func WithConversationID(id string) Option {
	return func(c *Context) { c.ConversationID = id }
}

// WithUserID sets the end-user id.
func WithUserID(id string) Option {
	return func(c *Context) { c.UserID = id }
}

// Begin starts a new correlated workflow. Any identifier not supplied
// through an Option is generated as a random UUIDv4 string.
func Begin(opts ...Option) *Context {
	c := &Context{}
	for _, opt := range opts {
		opt(c)
	}
	if c.TraceID == "" {
		c.TraceID = uuid.NewString()
	}
	if c.CompletionID == "" {
		c.CompletionID = uuid.NewString()
	}
	return c
}

// ForExchange returns the identifiers one monitored call should stamp on
// its events. The first exchange under a Context uses the Context's own
// completion id; every exchange after that shares the trace id but gets a
// fresh completion id, so two calls made under one Begin never collide.
func (c *Context) ForExchange() *Context {
	if atomic.CompareAndSwapUint32(&c.claimed, 0, 1) {
		return c
	}
	return &Context{
		TraceID:        c.TraceID,
		CompletionID:   uuid.NewString(),
		ConversationID: c.ConversationID,
		UserID:         c.UserID,
	}
}

// Span is a named sub-operation under an existing trace, e.g. the retrieval
// step of a RAG workflow. It shares the parent's trace id but owns a fresh
// completion id.
type Span struct {
	Name    string
	Context *Context
	started time.Time
}

// Span attaches a named sub-operation to the trace. The returned span's
// Context is safe to pass into monitored calls.
func (c *Context) Span(name string) *Span {
	return &Span{
		Name: name,
		Context: &Context{
			TraceID:        c.TraceID,
			CompletionID:   uuid.NewString(),
			ConversationID: c.ConversationID,
			UserID:         c.UserID,
		},
		started: time.Now(),
	}
}

// Elapsed returns the wall-clock time since the span was created.
func (s *Span) Elapsed() time.Duration {
	return time.Since(s.started)
}

type contextKey struct{}

// NewContext returns a context.Context carrying tc. Monitored calls pick it
// up automatically.
func NewContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext retrieves the trace context carried by ctx, or nil.
func FromContext(ctx context.Context) *Context {
	tc, _ := ctx.Value(contextKey{}).(*Context)
	return tc
}
