// Package relay forwards native messaging payloads to a local daemon over its
// IPC socket (a UNIX domain socket, or a named pipe on Windows).
//
// Each message on the socket is a 4-byte little-endian length followed by a
// CBOR-encoded Envelope.  The host sends OpRequest envelopes and the daemon
// answers each with an OpReply carrying the same ID.  The daemon may also
// send OpPing, answered automatically, and OpClose, which ends the
// connection.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// closeTimeout bounds the goodbye written by Close.
const closeTimeout = time.Second

// ErrClosed is returned by Send once the connection has ended.
var ErrClosed = errors.New("relay: connection closed")

// RemoteError is a failure reported by the daemon in a reply.
type RemoteError struct {
	ID      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("relay: daemon error for request %s: %s", e.ID, e.Message)
}

// Client is a connection to the daemon.  Send may be called from multiple
// goroutines; replies are routed back to their callers by ID.
type Client struct {
	// conn is read exclusively by the reader goroutine.  Writes are
	// serialized by writeMu.
	conn    io.ReadWriteCloser
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Envelope
	// err is why the connection ended; set once, before done is closed.
	err  error
	done chan struct{}

	closeOnce sync.Once
	log       zerolog.Logger
}

// newClient wraps conn and starts reading from it.
func newClient(conn io.ReadWriteCloser, log zerolog.Logger) *Client {
	c := &Client{
		conn:    conn,
		pending: make(map[string]chan Envelope),
		done:    make(chan struct{}),
		log:     log,
	}
	go c.readLoop()
	return c
}

// readLoop delivers replies and answers pings until the connection fails or
// the daemon closes it.
func (c *Client) readLoop() {
	var err error
	for err == nil {
		var env Envelope
		if env, err = ReadEnvelope(c.conn); err != nil {
			break
		}

		switch env.Op {
		case OpReply:
			c.mu.Lock()
			ch, ok := c.pending[env.ID]
			delete(c.pending, env.ID)
			c.mu.Unlock()
			if !ok {
				c.log.Warn().Str("id", env.ID).Msg("dropping reply to unknown request")
				continue
			}
			ch <- env
		case OpPing:
			err = c.write(Envelope{Op: OpPong, ID: env.ID, Payload: env.Payload})
		case OpClose:
			err = fmt.Errorf("relay connection terminated by daemon: %s", env.Error)
		default:
			err = fmt.Errorf("got unexpected opcode %d from daemon", env.Op)
		}
	}
	if errors.Is(err, io.EOF) {
		err = ErrClosed
	}
	c.finish(err)
}

// finish records why the connection ended and releases every waiting Send.
func (c *Client) finish(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
		c.pending = nil
		close(c.done)
	}
	c.mu.Unlock()
	c.conn.Close()
}

func (c *Client) write(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteEnvelope(c.conn, env)
}

// Send forwards payload from origin to the daemon and returns the daemon's
// answer.  It blocks until the answer arrives, the connection ends, or ctx is
// done.
func (c *Client) Send(ctx context.Context, origin string, payload []byte) ([]byte, error) {
	id := uuid.NewString()
	ch := make(chan Envelope, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	c.log.Debug().Str("id", id).Int("bytes", len(payload)).Msg("relaying request")
	if err := c.write(Envelope{Op: OpRequest, ID: id, Origin: origin, Payload: payload}); err != nil {
		forget()
		c.finish(err)
		return nil, err
	}

	select {
	case env := <-ch:
		if env.Error != "" {
			return nil, &RemoteError{ID: id, Message: env.Error}
		}
		return env.Payload, nil
	case <-c.done:
		return nil, c.Err()
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	}
}

// Err returns why the connection ended, or nil while it is open.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed when the connection has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close terminates the connection.  Send calls made after Close() will have
// errors.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		// Tell the daemon we are leaving; a failure just means it already has.
		if d, ok := c.conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
			_ = d.SetWriteDeadline(time.Now().Add(closeTimeout))
		}
		_ = c.write(Envelope{Op: OpClose, ID: uuid.NewString()})
		c.finish(ErrClosed)
	})
	<-c.done
	return nil
}
