package relay

import (
	"fmt"
	"net"
	"testing"
	"time"

	winio "github.com/Microsoft/go-winio"
	"github.com/rs/zerolog"
)

func TestDial(t *testing.T) {
	// Prevent collisions with concurrent tests or a real daemon.
	name := fmt.Sprintf("test-%d", time.Now().UnixNano())

	listener, err := winio.ListenPipe(pipeName(name, 0), &winio.PipeConfig{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = listener.Close()
	})

	serverDone := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			t.Errorf("Got %v while waiting for connections", err)
		}
		serverDone <- conn
	}()

	clientDone := make(chan *Client, 1)
	go func() {
		client, err := dialPipe(name, zerolog.Nop())
		if err != nil {
			t.Errorf("Got %v while dialing", err)
		}
		clientDone <- client
	}()

	// Wait for both the client and server goroutines to finish.
	for n := 2; n > 0; {
		select {
		case <-serverDone:
			n--
		case <-clientDone:
			n--
		case <-time.After(timeoutSeconds * time.Second):
			t.Fatal("Timeout")
		}
	}
}

func TestPipeName(t *testing.T) {
	if got, want := pipeName("app", 2), `\\?\pipe\app-ipc-2`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
