package main

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/p00ya/native-messaging/internal/nativemsg"
)

// Number of seconds to wait for things that should be near-instantaneous.
const timeoutSeconds = 2

// startEchoHost runs an echo host on a pair of pipes and returns the
// browser's ends of them.
func startEchoHost(t *testing.T) (io.WriteCloser, io.Reader) {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	host := nativemsg.NewHost(inR, outW)
	go host.Run(context.Background(), nativemsg.HandlerFunc(
		func(ctx context.Context, msg nativemsg.Message, reply nativemsg.Sender) error {
			return reply.Send(ctx, msg.Raw())
		}))
	t.Cleanup(func() {
		inW.Close()
		go io.Copy(io.Discard, outR)
	})
	return inW, outR
}

func TestExchange(t *testing.T) {
	w, r := startEchoHost(t)
	ctx, cancel := context.WithTimeout(context.Background(), timeoutSeconds*time.Second)
	defer cancel()

	reply, err := exchange(ctx, w, r, []byte(`{"text": "hello"}`))
	if err != nil {
		t.Fatal(err)
	}
	// The host re-encodes compactly.
	if want := `{"text":"hello"}`; string(reply) != want {
		t.Errorf("got %s, want %s", reply, want)
	}
}

func TestExchangeTimeout(t *testing.T) {
	// A host that reads but never replies.
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := exchange(ctx, io.Discard, r, []byte(`{}`))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want DeadlineExceeded", err)
	}
}

func TestExchangeReplyTooLarge(t *testing.T) {
	r, w := io.Pipe()
	go func() {
		var header [4]byte
		binary.NativeEndian.PutUint32(header[:], nativemsg.MaxOutgoing+1)
		w.Write(header[:])
		w.Close()
	}()

	_, err := exchange(context.Background(), io.Discard, r, []byte(`{}`))
	if !errors.Is(err, nativemsg.ErrIncomingTooLarge) {
		t.Errorf("got %v, want ErrIncomingTooLarge", err)
	}
}

func TestExchangeHostExits(t *testing.T) {
	r, w := io.Pipe()
	w.Close()
	_, err := exchange(context.Background(), io.Discard, r, []byte(`{}`))
	if !errors.Is(err, nativemsg.ErrDisconnected) {
		t.Errorf("got %v, want ErrDisconnected", err)
	}
}

func TestReadRequest(t *testing.T) {
	var tests = []struct {
		arg, stdin string
		want       string
		wantErr    bool
	}{
		{`{"a":1}`, "", `{"a":1}`, false},
		{"-", `["from", "stdin"]`, `["from", "stdin"]`, false},
		{"{", "", "", true},
		{"-", "not json", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := readRequest(tt.arg, strings.NewReader(tt.stdin))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
