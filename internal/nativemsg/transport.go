package nativemsg

import (
	"context"
	"fmt"
	"io"
)

// flusher is implemented by buffered writers such as *bufio.Writer.
type flusher interface {
	Flush() error
}

// WriteFrame writes a complete, already-encoded frame to w and then flushes w
// if it is buffered.  Write and flush failures are both KindIO errors, with Op
// set to "write" or "flush".
func WriteFrame(w io.Writer, frame []byte) error {
	for buf := frame; len(buf) > 0; {
		switch n, err := w.Write(buf); {
		case err != nil:
			return ioError("write", err)
		case n == 0:
			return ioError("write", io.ErrShortWrite)
		default:
			buf = buf[n:]
		}
	}

	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return ioError("flush", err)
		}
	}
	return nil
}

// SendJSON encodes v and writes it to w as one frame.
func SendJSON(w io.Writer, v any) error {
	frame, err := Encode(v)
	if err != nil {
		return err
	}
	return WriteFrame(w, frame)
}

// ReadMessage reads one message from r.  Unlike Decode, the end of the stream
// is reported as ErrDisconnected, for callers that require a message.
func ReadMessage(r io.Reader, max int) (Message, error) {
	msg, err := Decode(r, max)
	if err == io.EOF {
		return "", ErrDisconnected
	}
	return msg, err
}

// ReadJSON reads one message from r and parses it into v.
func ReadJSON(r io.Reader, max int, v any) error {
	msg, err := ReadMessage(r, max)
	if err != nil {
		return err
	}
	return msg.Unmarshal(v)
}

// GetMessage reads one message from r on a separate goroutine, so that the
// caller can give up via ctx while the read is still blocked.  Prefer a Host
// when reading in a loop.
//
// If ctx is cancelled first, the read goroutine is abandoned and keeps
// exclusive use of r until its read returns.
func GetMessage(ctx context.Context, r io.Reader) (Message, error) {
	type result struct {
		msg Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer close(done)
		defer recoverInternal(func(err error) { done <- result{err: err} })
		msg, err := ReadMessage(r, MaxIncoming)
		done <- result{msg, err}
	}()

	select {
	case res, ok := <-done:
		if !ok {
			return "", &Error{Kind: KindInternal, Err: fmt.Errorf("reader exited without a result")}
		}
		return res.msg, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SendMessage encodes v and writes it to w on a separate goroutine.  Prefer a
// Host's Sender when sending frequently.
func SendMessage(ctx context.Context, w io.Writer, v any) error {
	frame, err := Encode(v)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		defer recoverInternal(func(err error) { done <- err })
		done <- WriteFrame(w, frame)
	}()

	select {
	case err, ok := <-done:
		if !ok {
			return &Error{Kind: KindInternal, Err: fmt.Errorf("writer exited without a result")}
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recoverInternal converts a panic in a helper goroutine into a KindInternal
// error passed to report.  It must be deferred directly.
func recoverInternal(report func(error)) {
	if r := recover(); r != nil {
		report(&Error{Kind: KindInternal, Err: fmt.Errorf("panic: %v", r)})
	}
}
