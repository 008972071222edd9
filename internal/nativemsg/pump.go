package nativemsg

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultQueueSize bounds each pump queue.  It allows modest pipelining while
// making a slow consumer push back on a fast producer.
const DefaultQueueSize = 32

// result is one item on the reader queue: a message, or the error that ended
// the reader.
type result struct {
	msg Message
	err error
}

// startReader runs the reader pump.  The returned channel yields one result
// per decoded frame.  On a clean end of stream it yields ErrDisconnected; on
// any other error it yields that error.  In both cases the channel is closed
// afterwards.
//
// The pump goroutine has exclusive access to r.  If stop is closed, the pump
// stops delivering and exits after its current read returns.
func startReader(r io.Reader, max, size int, stop <-chan struct{}, m *Metrics, log zerolog.Logger) <-chan result {
	out := make(chan result, size)

	go func() {
		defer close(out)
		for {
			var res result
			switch msg, err := Decode(r, max); {
			case err == nil:
				m.received(msg)
				res = result{msg: msg}
			case err == io.EOF:
				log.Debug().Msg("reader reached end of stream")
				res = result{err: ErrDisconnected}
			default:
				log.Debug().Err(err).Msg("reader failed")
				m.failed(err)
				res = result{err: err}
			}

			select {
			case out <- res:
				m.depth("in", len(out))
			case <-stop:
				// Nobody is consuming any more.
				return
			}
			if res.err != nil {
				return
			}
		}
	}()

	return out
}

// writePump owns the writer.  Frames queued with enqueue are written and
// flushed one at a time, in queue order.
type writePump struct {
	frames chan []byte

	// stop is closed to ask the pump to drain its queue and exit.
	stop     chan struct{}
	stopOnce sync.Once

	// done is closed when the pump goroutine has exited, either because
	// stop was closed or because a write failed.
	done chan struct{}
}

// startWriter runs the writer pump.  The pump goroutine has exclusive access
// to w.  A failed write or flush means the browser has gone; the pump exits
// without retrying and later enqueues report ErrDisconnected.
//
// If w is an io.Closer, it is closed when the pump exits.
func startWriter(w io.Writer, size int, m *Metrics, log zerolog.Logger) *writePump {
	p := &writePump{
		frames: make(chan []byte, size),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	write := func(frame []byte) bool {
		if err := WriteFrame(w, frame); err != nil {
			log.Debug().Err(err).Msg("writer failed")
			m.failed(err)
			return false
		}
		m.sent(frame)
		m.depth("out", len(p.frames))
		return true
	}

	go func() {
		defer close(p.done)
		if c, ok := w.(io.Closer); ok {
			defer c.Close()
		}

		for {
			select {
			case frame := <-p.frames:
				if !write(frame) {
					return
				}
			case <-p.stop:
				// Flush whatever was queued before the stop.
				for {
					select {
					case frame := <-p.frames:
						if !write(frame) {
							return
						}
					default:
						return
					}
				}
			}
		}
	}()

	return p
}

// enqueue hands a frame to the pump, blocking while the queue is full.
func (p *writePump) enqueue(ctx context.Context, frame []byte) error {
	select {
	case <-p.done:
		return ErrDisconnected
	case <-p.stop:
		return ErrDisconnected
	default:
	}

	select {
	case p.frames <- frame:
		return nil
	case <-p.done:
		return ErrDisconnected
	case <-p.stop:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *writePump) close() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Sender queues replies for the browser.  Senders are cheap to copy; every
// copy shares the host's single writer queue, so a handler may pass one to
// goroutines of its own.
//
// The zero Sender is disconnected.
type Sender struct {
	pump *writePump
}

// Send encodes v and queues the frame for the writer, blocking while the
// queue is full.  Encoding errors are returned as is.  If the writer has
// exited or the host is closed, Send returns ErrDisconnected.
func (s Sender) Send(ctx context.Context, v any) error {
	frame, err := Encode(v)
	if err != nil {
		return err
	}
	if s.pump == nil {
		return ErrDisconnected
	}
	return s.pump.enqueue(ctx, frame)
}
