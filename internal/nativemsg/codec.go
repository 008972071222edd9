package nativemsg

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"unicode/utf8"
)

// headerLen is the number of bytes in the native messaging length prefix.
const headerLen = 4

// MaxOutgoing is the maximum length in bytes of a JSON payload sent to the
// browser (not including the 4-byte header).
const MaxOutgoing = 1 << 20

// MaxIncoming is the maximum length in bytes of a JSON payload accepted from
// the browser (not including the 4-byte header).  Callers may narrow it per
// read, never widen it.
const MaxIncoming = 64 << 20

// Message is one decoded payload from the browser.  It is guaranteed to be
// valid UTF-8, but not necessarily valid JSON.
type Message string

// Raw returns the message as a json.RawMessage.
func (m Message) Raw() json.RawMessage {
	return json.RawMessage(m)
}

// Unmarshal parses the message into v.  Shape mismatches are reported as
// KindDeserialize so they can be told apart from framing errors.
func (m Message) Unmarshal(v any) error {
	if err := json.Unmarshal([]byte(m), v); err != nil {
		return &Error{Kind: KindDeserialize, Err: err}
	}
	return nil
}

// EffectiveCap returns the incoming cap for a read with the caller-supplied
// max: the smaller of max and MaxIncoming.  A negative max is treated as 0.
func EffectiveCap(max int) int {
	switch {
	case max < 0:
		return 0
	case max > MaxIncoming:
		return MaxIncoming
	}
	return max
}

// Encode serializes v as compact JSON and returns the complete frame: the
// native-order length prefix followed by the JSON bytes.
//
// The size check happens before the prefix is filled in, so an oversized
// value never yields a partial frame.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(make([]byte, headerLen))

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, &Error{Kind: KindSerialize, Err: err}
	}

	// json.Encoder terminates every value with a newline.
	frame := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	n := len(frame) - headerLen
	if n > MaxOutgoing {
		return nil, &Error{Kind: KindOutgoingTooLarge, Len: uint64(n), Max: MaxOutgoing}
	}
	putLength(frame, n)
	return frame, nil
}

// EncodeRequest frames an already-serialized payload the way a browser does,
// for tools that drive a host from the browser's side.  The payload must be
// valid JSON of at most MaxIncoming bytes.
func EncodeRequest(payload json.RawMessage) ([]byte, error) {
	if !json.Valid(payload) {
		return nil, &Error{Kind: KindSerialize, Err: errors.New("payload is not valid JSON")}
	}
	if len(payload) > MaxIncoming {
		return nil, &Error{Kind: KindIncomingTooLarge, Len: uint64(len(payload)), Max: MaxIncoming}
	}
	frame := make([]byte, headerLen+len(payload))
	copy(frame[headerLen:], payload)
	putLength(frame, len(payload))
	return frame, nil
}

// Decode reads exactly one frame from r, allowing at most EffectiveCap(max)
// payload bytes.
//
// Decode returns io.EOF when the stream ends before a complete length prefix
// was read, including after 1-3 bytes of prefix: a disconnect that lands
// mid-prefix is treated as a clean shutdown.  A stream that ends inside the
// body is a KindIO error wrapping io.ErrUnexpectedEOF.
func Decode(r io.Reader, max int) (Message, error) {
	limit := EffectiveCap(max)

	var header [headerLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", io.EOF
		}
		return "", ioError("read header", err)
	}

	n := nativeEndian.Uint32(header[:])
	if uint64(n) > uint64(limit) {
		return "", &Error{Kind: KindIncomingTooLarge, Len: uint64(n), Max: uint64(limit)}
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", ioError("read body", err)
	}

	if !utf8.Valid(body) {
		return "", &Error{Kind: KindIncomingNotUTF8}
	}
	return Message(body), nil
}
