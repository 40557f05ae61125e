package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Chunk is one incremental delivery from a streaming generation.
//
// Seq is assigned by the provider, starting at 0 and contiguous from the
// provider's point of view; the transport may still reorder or redeliver.
// A terminal chunk has Done set or Err non-nil, after which the channel is
// closed.
type Chunk struct {
	Seq     int
	Text    string
	Markers []string // raw citation markers carried out-of-band, optional
	Done    bool
	Err     error
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// BuildOptions folds a set of Option funcs over the defaults.
func BuildOptions(opts ...Option) *Options {
	options := &Options{Temperature: 0.7}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// StreamProvider is the generation collaborator contract: it turns a prompt
// plus history into an ordered chunk sequence terminated by a completion or
// error chunk. Cancelling the context releases the generation.
type StreamProvider interface {
	// Stream starts a generation and returns the chunk channel immediately.
	// The channel is closed after the terminal chunk.
	Stream(ctx context.Context, history []Message, opts ...Option) (<-chan Chunk, error)

	// Generate sends a single prompt and blocks for the full response.
	// Used for auxiliary completions such as session titles.
	Generate(ctx context.Context, prompt string, opts ...Option) (string, error)
}
