package nativemsg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

// Number of seconds to wait for things that should be near-instantaneous.
const timeoutSeconds = 2

// wire returns the frame bytes for a raw payload.
func wire(payload string) []byte {
	buf := make([]byte, headerLen+len(payload))
	putLength(buf, len(payload))
	copy(buf[headerLen:], payload)
	return buf
}

// waitAll waits for n values on done, failing on errors or timeout.
func waitAll(t *testing.T, n int, done <-chan int, errs <-chan error) {
	t.Helper()
	for n > 0 {
		select {
		case <-done:
			n--
		case err := <-errs:
			t.Error(err)
		case <-time.After(timeoutSeconds * time.Second):
			t.Fatalf("Timeout, still waiting on %d goroutines", n)
		}
	}
}

func TestHost(t *testing.T) {
	in, inPipe := io.Pipe()
	outPipe, out := io.Pipe()
	host := NewHost(in, out)
	host.Start()
	ctx := context.Background()

	requestPayload := `{"request":1}`
	responseWire := wire(`{"response":1}`)

	t.Run("Receive", func(t *testing.T) {
		done := make(chan int)
		errs := make(chan error, 3)

		// Simulate the browser writing a request.
		go func() {
			inPipe.Write(wire(requestPayload))
			done <- 1
		}()

		// Test calling Receive() and Send().
		go func() {
			request, err := host.Receive(ctx)
			if err != nil || string(request) != requestPayload {
				errs <- fmt.Errorf("Wanted request %s, got %s, %v", requestPayload, request, err)
			}
			if err := host.Sender().Send(ctx, json.RawMessage(`{"response":1}`)); err != nil {
				errs <- fmt.Errorf("Send() returned %v", err)
			}
			done <- 1
		}()

		// Simulate the browser reading the response.
		go func() {
			buf := make([]byte, len(responseWire))
			switch _, err := io.ReadFull(outPipe, buf); {
			case err != nil:
				errs <- fmt.Errorf("Wanted response, got %v", err)
			case !bytes.Equal(buf, responseWire):
				errs <- fmt.Errorf("Wanted write %v, got %v", responseWire, buf)
			}
			done <- 1
		}()

		waitAll(t, 3, done, errs)
	})

	// Test the reader delivering the request in small pieces.
	t.Run("PartialReadWrites", func(t *testing.T) {
		done := make(chan int)
		errs := make(chan error, 3)
		bufSize := 3
		requestWire := wire(requestPayload)

		go func() {
			var i int
			for i = 0; i+bufSize < len(requestWire); i += bufSize {
				inPipe.Write(requestWire[i : i+bufSize])
			}
			inPipe.Write(requestWire[i:])
			done <- 1
		}()

		go func() {
			request, err := host.Receive(ctx)
			if err != nil || string(request) != requestPayload {
				errs <- fmt.Errorf("Wanted request %s, got %s, %v", requestPayload, request, err)
			}
			host.Sender().Send(ctx, json.RawMessage(`{"response":1}`))
			done <- 1
		}()

		go func() {
			buf := make([]byte, len(responseWire))
			switch _, err := io.ReadFull(outPipe, buf); {
			case err != nil:
				errs <- fmt.Errorf("Wanted response, got %v", err)
			case !bytes.Equal(buf, responseWire):
				errs <- fmt.Errorf("Wanted write %v, got %v", responseWire, buf)
			}
			done <- 1
		}()

		waitAll(t, 3, done, errs)
	})

	t.Run("Close", func(t *testing.T) {
		done := make(chan int)
		go func() {
			buf := make([]byte, 1)
			switch n, err := outPipe.Read(buf); {
			case n > 0:
				t.Errorf("Got unexpected buf %v", buf[:n])
			case err != io.EOF && err != io.ErrClosedPipe:
				t.Errorf("Got unexpected err %v, wanted EOF", err)
			}
			done <- 1
		}()

		host.Close()
		select {
		case <-done:
			// Good.
		case <-time.After(timeoutSeconds * time.Second):
			t.Fatal("Timeout")
		}

		if _, err := host.Receive(ctx); !errors.Is(err, ErrDisconnected) {
			t.Errorf("Receive() after Close() got %v, wanted ErrDisconnected", err)
		}
		if err := host.Sender().Send(ctx, "late"); !errors.Is(err, ErrDisconnected) {
			t.Errorf("Send() after Close() got %v, wanted ErrDisconnected", err)
		}
	})
}

// echo replies with each request unchanged.
var echo = HandlerFunc(func(ctx context.Context, msg Message, reply Sender) error {
	return reply.Send(ctx, msg.Raw())
})

func TestRunEcho(t *testing.T) {
	var input bytes.Buffer
	requests := []string{`{"n":1}`, `{"n":2}`, `"three"`}
	for _, r := range requests {
		input.Write(wire(r))
	}
	var output bytes.Buffer

	host := NewHost(&input, &output)
	if err := host.Run(context.Background(), echo); err != nil {
		t.Fatalf("Run() returned %v, wanted nil on disconnect", err)
	}

	for _, want := range requests {
		got, err := Decode(&output, MaxIncoming)
		if err != nil {
			t.Fatalf("Decode() returned %v", err)
		}
		if string(got) != want {
			t.Errorf("got reply %s, want %s", got, want)
		}
	}
	if output.Len() != 0 {
		t.Errorf("%d unexpected trailing bytes", output.Len())
	}
}

func TestRunHandlerError(t *testing.T) {
	input := bytes.NewReader(append(wire(`1`), wire(`2`)...))
	var calls int
	boom := errors.New("boom")

	host := NewHost(input, io.Discard)
	err := host.Run(context.Background(), HandlerFunc(func(ctx context.Context, msg Message, reply Sender) error {
		calls++
		return boom
	}))
	if !errors.Is(err, boom) {
		t.Errorf("Run() returned %v, wanted %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("handler called %d times after failing, wanted 1", calls)
	}
}

func TestRunReaderError(t *testing.T) {
	var input bytes.Buffer
	input.Write(wire(`{"ok":true}`))
	input.Write(wire("\xff\xfe\xfd"))
	input.Write(wire(`{"never":true}`))

	var seen []Message
	host := NewHost(&input, io.Discard)
	err := host.Run(context.Background(), HandlerFunc(func(ctx context.Context, msg Message, reply Sender) error {
		seen = append(seen, msg)
		return nil
	}))
	if !errors.Is(err, ErrIncomingNotUTF8) {
		t.Errorf("Run() returned %v, wanted ErrIncomingNotUTF8", err)
	}
	if len(seen) != 1 {
		t.Errorf("handler saw %d messages, wanted 1", len(seen))
	}
}

func TestRunNarrowedCap(t *testing.T) {
	input := bytes.NewReader(wire(`{"too":"big"}`))
	host := NewHost(input, io.Discard, WithMaxIncoming(4))

	err := host.Run(context.Background(), echo)
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindIncomingTooLarge {
		t.Fatalf("Run() returned %v, wanted KindIncomingTooLarge", err)
	}
	if e.Len != 13 || e.Max != 4 {
		t.Errorf("got len=%d max=%d, want len=13 max=4", e.Len, e.Max)
	}
}

func TestRunReplyOrder(t *testing.T) {
	var input bytes.Buffer
	for i := 0; i < 3*DefaultQueueSize; i++ {
		input.Write(wire(fmt.Sprintf("%d", i)))
	}
	var output bytes.Buffer

	host := NewHost(&input, &output)
	if err := host.Run(context.Background(), echo); err != nil {
		t.Fatalf("Run() returned %v", err)
	}

	for i := 0; i < 3*DefaultQueueSize; i++ {
		got, err := Decode(&output, MaxIncoming)
		if err != nil {
			t.Fatalf("Decode() returned %v at %d", err, i)
		}
		if want := fmt.Sprintf("%d", i); string(got) != want {
			t.Fatalf("reply %d is %s, want %s", i, got, want)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	in, inPipe := io.Pipe()
	defer inPipe.Close()
	host := NewHost(in, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- host.Run(ctx, echo)
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() returned %v, wanted context.Canceled", err)
		}
	case <-time.After(timeoutSeconds * time.Second):
		t.Fatal("Timeout waiting for Run() to return")
	}
}

func TestRunMetrics(t *testing.T) {
	m := NewMetrics(nil)
	var input bytes.Buffer
	input.Write(wire(`{"a":1}`))
	input.Write(wire(`{"b":2}`))

	host := NewHost(&input, io.Discard, WithMetrics(m))
	if err := host.Run(context.Background(), echo); err != nil {
		t.Fatalf("Run() returned %v", err)
	}

	if got := counterValue(t, m.framesIn); got != 2 {
		t.Errorf("frames received = %v, want 2", got)
	}
	if got := counterValue(t, m.framesOut); got != 2 {
		t.Errorf("frames sent = %v, want 2", got)
	}
	if got := counterValue(t, m.bytesOut); got != 14 {
		t.Errorf("bytes sent = %v, want 14", got)
	}
}
