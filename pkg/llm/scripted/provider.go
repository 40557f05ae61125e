// Package scripted provides a deterministic generation double: a fixed
// reply revealed chunk by chunk on a timer. The delivery order can be
// permuted, duplicated or failed mid-stream, which is what the stream
// dispatcher tests exercise.
package scripted

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-docchat-be/pkg/llm"
)

// ErrScripted is the injected generation failure.
var ErrScripted = errors.New("scripted generation failure")

type Provider struct {
	// Deltas are the in-order text chunks of the scripted reply.
	Deltas []string

	// Markers attached out-of-band to the chunk at the same index, optional.
	Markers map[int][]string

	// Interval between deliveries. Zero means deliver as fast as possible.
	Interval time.Duration

	// Delivery lists indices into Deltas in the order they are put on the
	// wire. Indices may repeat (redelivery) or arrive out of order. Empty
	// means in-order delivery.
	Delivery []int

	// FailAfter injects a generation error after this many deliveries.
	// Negative disables failure injection.
	FailAfter int
}

var _ llm.StreamProvider = &Provider{}

func New(deltas ...string) *Provider {
	return &Provider{Deltas: deltas, FailAfter: -1}
}

func (p *Provider) Stream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.Chunk, error) {
	order := p.Delivery
	if len(order) == 0 {
		order = make([]int, len(p.Deltas))
		for i := range order {
			order[i] = i
		}
	}

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		for n, idx := range order {
			if p.FailAfter >= 0 && n >= p.FailAfter {
				select {
				case out <- llm.Chunk{Seq: idx, Err: ErrScripted}:
				case <-ctx.Done():
				}
				return
			}
			if p.Interval > 0 {
				select {
				case <-time.After(p.Interval):
				case <-ctx.Done():
					return
				}
			}
			chunk := llm.Chunk{Seq: idx, Text: p.Deltas[idx], Markers: p.Markers[idx]}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- llm.Chunk{Seq: len(p.Deltas), Done: true}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return strings.Join(p.Deltas, ""), nil
}
