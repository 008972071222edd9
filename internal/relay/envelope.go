package relay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Op is the envelope opcode.
type Op uint8

// Relay opcodes.  Requests and replies are matched by ID; pings originate from
// the daemon and are answered with a pong carrying the same ID.
const (
	OpRequest Op = 0
	OpReply   Op = 1
	OpClose   Op = 2
	OpPing    Op = 3
	OpPong    Op = 4
)

// Envelope is one relay message.
type Envelope struct {
	Op     Op     `cbor:"op"`
	ID     string `cbor:"id"`
	Origin string `cbor:"origin,omitempty"`

	// Payload is the browser's JSON, passed through untouched.
	Payload []byte `cbor:"payload,omitempty"`

	// Error is set on a reply the daemon could not produce.
	Error string `cbor:"error,omitempty"`
}

// headerLen is the number of bytes in the relay frame header: a
// little-endian payload length.
const headerLen = 4

// MaxFrame bounds an encoded envelope.
const MaxFrame = 64 << 20

var encMode, _ = cbor.CoreDetEncOptions().EncMode()

// WriteEnvelope writes env as a length-prefixed CBOR frame.
func WriteEnvelope(w io.Writer, env Envelope) error {
	body, err := encMode.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	if len(body) > MaxFrame {
		return fmt.Errorf("envelope is %d bytes (max %d)", len(body), MaxFrame)
	}

	buf := make([]byte, headerLen+len(body))
	binary.LittleEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[headerLen:], body)
	if _, err := w.Write(buf); err != nil {
		return err
	}
	return nil
}

// ReadEnvelope reads one length-prefixed CBOR frame.  A stream that ends
// cleanly between frames returns io.EOF.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	var env Envelope
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return env, fmt.Errorf("reading envelope header: %w", err)
		}
		return env, err
	}

	n := binary.LittleEndian.Uint32(header)
	if n > MaxFrame {
		return env, fmt.Errorf("envelope is %d bytes (max %d)", n, MaxFrame)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return env, fmt.Errorf("reading envelope body: %w", err)
	}

	if err := cbor.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}
