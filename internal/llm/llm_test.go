package llm

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceStream struct {
	chunks []string
	err    error // returned after chunks are exhausted; io.EOF when nil
	closed bool
	ctx    context.Context
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *sliceStream) Close() error { s.closed = true; return nil }

type fakeClient struct {
	stream  *sliceStream
	openErr error
}

func (f *fakeClient) Complete(context.Context, string, string) (string, error) { return "", nil }

func (f *fakeClient) Stream(ctx context.Context, _, _ string) (Stream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.stream.ctx = ctx
	return f.stream, nil
}

func TestRelay_ForwardsInOrderAndSkipsEmpty(t *testing.T) {
	client := &fakeClient{stream: &sliceStream{chunks: []string{"a", "", "b", "c"}}}

	var got []string
	n, err := Relay(context.Background(), client, "m", "p", func(c string) error {
		got = append(got, c)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.True(t, client.stream.closed)
}

func TestRelay_OpenFailure(t *testing.T) {
	client := &fakeClient{openErr: errors.New("401 unauthorized")}

	n, err := Relay(context.Background(), client, "m", "p", func(string) error { return nil })
	assert.EqualError(t, err, "401 unauthorized")
	assert.Zero(t, n)
}

func TestRelay_MidStreamFailure(t *testing.T) {
	client := &fakeClient{stream: &sliceStream{chunks: []string{"a"}, err: errors.New("reset")}}

	n, err := Relay(context.Background(), client, "m", "p", func(string) error { return nil })
	assert.EqualError(t, err, "reset")
	assert.Equal(t, 1, n)
	assert.False(t, IsSinkError(err))
}

func TestRelay_SinkFailureCancelsUpstream(t *testing.T) {
	client := &fakeClient{stream: &sliceStream{chunks: []string{"a", "b"}}}
	gone := errors.New("broken pipe")

	n, err := Relay(context.Background(), client, "m", "p", func(string) error { return gone })

	assert.True(t, IsSinkError(err))
	assert.True(t, errors.Is(err, gone))
	assert.Zero(t, n)
	assert.True(t, client.stream.closed)
	assert.Error(t, client.stream.ctx.Err(), "upstream context is cancelled once Relay returns")
}
