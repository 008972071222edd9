// Package nativemsg provides the host side of the browser native messaging
// protocol: length-prefixed JSON frames over the host's stdin and stdout.
//
// Each frame is a 4-byte length in the CPU's native byte order, followed by
// that many bytes of UTF-8 JSON.  Browsers accept at most MaxOutgoing bytes
// per reply and send at most MaxIncoming bytes per request.
package nativemsg

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler processes one message from the browser.  Replies are queued with
// reply.Send.  Returning an error terminates Host.Run with that error.
type Handler interface {
	ServeMessage(ctx context.Context, msg Message, reply Sender) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg Message, reply Sender) error

func (f HandlerFunc) ServeMessage(ctx context.Context, msg Message, reply Sender) error {
	return f(ctx, msg, reply)
}

// Host manages the I/O for a native messaging host.
//
// Create a new Host with NewHost().  Either call Run() with a Handler, or call
// Start() and then pull messages one at a time with Receive() and reply via
// Sender().  Terminate the connection with Close().
type Host struct {
	// reader is the stream from the browser (typically stdin).
	// Only read by the reader pump.
	reader io.Reader

	// writer is the stream to the browser (typically stdout).
	// Only written by the writer pump.
	writer io.Writer

	opts options

	startOnce sync.Once
	closeOnce sync.Once

	// in receives results from the reader pump.
	// Only read by Receive().
	in <-chan result

	// out is the writer pump shared by every Sender.
	out *writePump

	// closed is closed by Close() and tells the reader pump to stop
	// delivering.
	closed chan struct{}
}

type options struct {
	maxIncoming int
	queueSize   int
	log         zerolog.Logger
	metrics     *Metrics
}

// Option configures a Host.
type Option func(*options)

// WithMaxIncoming narrows the incoming payload cap below MaxIncoming.
func WithMaxIncoming(n int) Option {
	return func(o *options) { o.maxIncoming = EffectiveCap(n) }
}

// WithQueueSize sets the capacity of both pump queues.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithLogger sets the logger for host diagnostics.  It must not write to
// the host's output stream.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics records host traffic in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// NewHost returns a native messaging host that will read requests from the
// given reader, and send responses on the given writer.  The host takes
// exclusive ownership of both streams.
func NewHost(in io.Reader, out io.Writer, opts ...Option) *Host {
	o := options{
		maxIncoming: MaxIncoming,
		queueSize:   DefaultQueueSize,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Host{
		reader: in,
		writer: out,
		opts:   o,
		closed: make(chan struct{}),
	}
}

// Start launches the reader and writer pumps.  Calling it more than once has
// no further effect.
func (h *Host) Start() {
	h.startOnce.Do(func() {
		h.in = startReader(h.reader, h.opts.maxIncoming, h.opts.queueSize, h.closed, h.opts.metrics, h.opts.log)
		h.out = startWriter(h.writer, h.opts.queueSize, h.opts.metrics, h.opts.log)
	})
}

// Receive blocks on receiving one message from the browser.  It returns
// ErrDisconnected once the browser has closed the stream or the host has been
// closed, and the reader's error if decoding failed.
func (h *Host) Receive(ctx context.Context) (Message, error) {
	h.Start()
	select {
	case res, ok := <-h.in:
		if !ok {
			return "", ErrDisconnected
		}
		return res.msg, res.err
	case <-h.closed:
		return "", ErrDisconnected
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Sender returns a handle for queueing replies to the browser.
func (h *Host) Sender() Sender {
	h.Start()
	return Sender{pump: h.out}
}

// Close stops both pumps.  Replies already queued are still written before
// the writer is closed; use Done to wait for that.  Close does not close the
// reader.
func (h *Host) Close() {
	h.Start()
	h.closeOnce.Do(func() {
		close(h.closed)
		h.out.close()
	})
}

// Done is closed once the writer pump has exited.
func (h *Host) Done() <-chan struct{} {
	h.Start()
	return h.out.done
}

// Run is the host's event loop.  It dispatches each message to handler, in
// arrival order, waiting for the handler to return before receiving the next
// one.
//
// Run returns nil when the browser disconnects, and otherwise the first error
// from the reader or the handler.  Nothing is retried.  Before returning, Run
// closes the host and waits (up to ctx) for queued replies to be written.
func (h *Host) Run(ctx context.Context, handler Handler) error {
	log := h.opts.log
	reply := h.Sender()

	defer func() {
		h.Close()
		select {
		case <-h.Done():
		case <-ctx.Done():
		}
	}()

	for {
		msg, err := h.Receive(ctx)
		switch {
		case errors.Is(err, ErrDisconnected):
			log.Info().Msg("browser disconnected")
			return nil
		case err != nil:
			log.Error().Err(err).Msg("receive failed")
			return err
		}

		log.Debug().Int("bytes", len(msg)).Msg("dispatching message")
		start := time.Now()
		err = handler.ServeMessage(ctx, msg, reply)
		h.opts.metrics.handled(time.Since(start).Seconds())
		if err != nil {
			h.opts.metrics.failed(err)
			log.Error().Err(err).Msg("handler failed")
			return err
		}
	}
}
