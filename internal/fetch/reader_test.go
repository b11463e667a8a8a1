package fetch

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueuedReaderPassesThroughBytes(t *testing.T) {
	src := bytes.NewReader([]byte("hello, queued reader"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewQueuedReader(ctx, src)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello, queued reader", string(got))
}

func TestQueuedReaderSatisfiesPartialReadsFromLeftover(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte("x"), 100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewQueuedReader(ctx, src)

	buf := make([]byte, 7)
	total := 0
	for total < 100 {
		n, err := r.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.Equal(t, 100, total)
}

func TestQueuedReaderCallsOnDropWhenQueueFull(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewQueuedReader(ctx, pr)
	dropped := make(chan struct{}, 1)
	r.OnDrop = func() {
		select {
		case dropped <- struct{}{}:
		default:
		}
	}

	go func() {
		for i := 0; i < QueueSize+8; i++ {
			_, _ = pw.Write([]byte{byte(i)})
		}
		_ = pw.Close()
	}()

	// Drain nothing: force the bounded channel to fill up and start dropping.
	select {
	case <-dropped:
	case <-ctx.Done():
		t.Fatal("context cancelled before a drop was observed")
	}
}
