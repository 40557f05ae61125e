package scripted

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureChunkDoesNotBlockAfterCancel(t *testing.T) {
	p := New("a", "b")
	p.FailAfter = 0

	ctx, cancel := context.WithCancel(context.Background())
	out, err := p.Stream(ctx, nil)
	require.NoError(t, err)

	// Cancel before consuming anything; the delivery goroutine must give
	// up on the failure chunk and close the channel instead of blocking.
	cancel()
	time.Sleep(50 * time.Millisecond)

	select {
	case chunk, open := <-out:
		assert.False(t, open, "unexpected chunk after cancel: %+v", chunk)
	case <-time.After(time.Second):
		t.Fatal("delivery goroutine still blocked after cancel")
	}
}

func TestFailureChunkDeliveredToLiveConsumer(t *testing.T) {
	p := New("keep", "lost")
	p.FailAfter = 1

	out, err := p.Stream(context.Background(), nil)
	require.NoError(t, err)

	first := <-out
	assert.Equal(t, "keep", first.Text)

	second := <-out
	require.ErrorIs(t, second.Err, ErrScripted)

	_, open := <-out
	assert.False(t, open)
}
