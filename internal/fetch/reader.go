package fetch

import (
	"context"
	"fmt"
	"io"
	"time"
)

// QueueSize is the number of chunks the bounded byte queue between the
// socket-draining goroutine and the decoder can hold before chunks start
// getting dropped.
const QueueSize = 256

// QueuedReader drains an HTTP response body on its own goroutine into a
// bounded channel of chunks, enforcing StallTimeout on every individual
// read. When the queue is full, the newest chunk is dropped rather than
// applying backpressure to the socket read: a stalled decoder must never
// cause TCP head-of-line blocking on the fetch side. Read() presents the
// queued chunks back to the caller as an ordinary io.Reader.
type QueuedReader struct {
	chunks chan []byte
	errc   chan error
	leftover []byte

	// OnDrop, if set, is called once per chunk dropped because the queue
	// was full. Callers typically rate-limit their own logging here.
	OnDrop func()
}

// NewQueuedReader starts the draining goroutine and returns the reader.
// Closing ctx or body stops the goroutine; body is always closed by the
// caller, not by QueuedReader.
func NewQueuedReader(ctx context.Context, body io.Reader) *QueuedReader {
	r := &QueuedReader{
		chunks: make(chan []byte, QueueSize),
		errc:   make(chan error, 1),
	}
	go r.pump(ctx, body)
	return r
}

type readOutcome struct {
	n   int
	err error
}

func (r *QueuedReader) pump(ctx context.Context, body io.Reader) {
	defer close(r.chunks)

	buf := make([]byte, 32*1024)
	for {
		if ctx.Err() != nil {
			r.errc <- ctx.Err()
			return
		}

		resultc := make(chan readOutcome, 1)
		go func() {
			n, err := body.Read(buf)
			resultc <- readOutcome{n, err}
		}()

		select {
		case <-ctx.Done():
			r.errc <- ctx.Err()
			return
		case <-time.After(StallTimeout):
			r.errc <- fmt.Errorf("no data received for %s", StallTimeout)
			return
		case res := <-resultc:
			if res.n > 0 {
				chunk := make([]byte, res.n)
				copy(chunk, buf[:res.n])
				select {
				case r.chunks <- chunk:
				default:
					if r.OnDrop != nil {
						r.OnDrop()
					}
				}
			}
			if res.err != nil {
				r.errc <- res.err
				return
			}
		}
	}
}

// Read implements io.Reader over the queued chunks, satisfying partial
// reads from the most recently dequeued chunk before pulling the next one.
func (r *QueuedReader) Read(p []byte) (int, error) {
	if len(r.leftover) == 0 {
		chunk, ok := <-r.chunks
		if !ok {
			select {
			case err := <-r.errc:
				if err == io.EOF {
					return 0, io.EOF
				}
				return 0, err
			default:
				return 0, io.EOF
			}
		}
		r.leftover = chunk
	}

	n := copy(p, r.leftover)
	r.leftover = r.leftover[n:]
	return n, nil
}
