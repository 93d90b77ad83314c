// Package llm is the seam between the assistant and whatever serves completions.
//
// STREAMING MODEL:
// A Stream is pull-based: the consumer calls Recv until io.EOF. That keeps the
// relay single-producer/single-consumer with no goroutine or channel in the
// middle, and means back-pressure is natural: if the HTTP client stops
// reading, Recv is simply not called again.
//
// Cancellation flows through the context handed to Stream. Cancelling it
// aborts the upstream HTTP request; Close releases the body either way.
package llm

import (
	"context"
	"errors"
	"io"
)

// Client talks to a chat completion gateway.
type Client interface {
	// Complete returns the whole answer for prompt.
	Complete(ctx context.Context, model, prompt string) (string, error)
	// Stream opens an incremental answer for prompt.
	Stream(ctx context.Context, model, prompt string) (Stream, error)
}

// Stream yields answer fragments in arrival order.
type Stream interface {
	// Recv returns the next fragment, or io.EOF once the answer is complete.
	// Fragments may be empty.
	Recv() (string, error)
	Close() error
}

// EmitFunc receives one fragment destined for the caller.
type EmitFunc func(chunk string) error

// SinkError marks a failure of the downstream side (the caller went away),
// as opposed to a failure of the model.
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string { return "llm: writing to caller: " + e.Err.Error() }
func (e *SinkError) Unwrap() error { return e.Err }

// IsSinkError reports whether err came from the emit side of a relay.
func IsSinkError(err error) bool {
	var se *SinkError
	return errors.As(err, &se)
}

// Relay opens a stream for prompt and forwards every non-empty fragment to
// emit, in order. It returns how many fragments reached emit.
//
// The upstream call runs under a child context that is cancelled on return,
// so a failing emit tears the upstream request down immediately.
func Relay(ctx context.Context, client Client, model, prompt string, emit EmitFunc) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Stream(ctx, model, prompt)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	relayed := 0
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return relayed, nil
		}
		if err != nil {
			return relayed, err
		}
		if chunk == "" {
			continue
		}
		if err := emit(chunk); err != nil {
			return relayed, &SinkError{Err: err}
		}
		relayed++
	}
}
