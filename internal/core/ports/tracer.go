package ports

import "context"

// Tracer creates spans around units of work.
type Tracer interface {
	// Start begins a span and returns a context carrying it.
	Start(ctx context.Context, name string) (context.Context, Span)
}

// Span is one traced unit of work.
type Span interface {
	// End completes the span.
	End()
	// SetAttribute attaches a key-value pair to the span.
	SetAttribute(key string, value any)
}
