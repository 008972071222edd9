package nativemsg

import (
	"errors"
	"fmt"
)

// Kind classifies a native messaging failure.  The set is closed: every error
// produced by this package carries exactly one of these kinds.
type Kind int

const (
	// KindUnknown is reported by KindOf for errors not produced by this package.
	KindUnknown Kind = iota

	// KindDisconnected means the browser closed stdin.  It is a normal
	// termination signal, not a failure.
	KindDisconnected

	// KindOutgoingTooLarge means a reply exceeded MaxOutgoing.  Nothing was
	// written.
	KindOutgoingTooLarge

	// KindIncomingTooLarge means a frame header claimed more than the effective
	// incoming cap.  The body was not read.
	KindIncomingTooLarge

	// KindIncomingNotUTF8 means a frame body was read in full but is not valid
	// UTF-8.
	KindIncomingNotUTF8

	// KindSerialize means a value could not be encoded as JSON.
	KindSerialize

	// KindDeserialize means a payload did not match the JSON shape the caller
	// asked for.
	KindDeserialize

	// KindIO covers any other stream failure, including a truncated body.
	KindIO

	// KindInternal means a helper goroutine exited without producing a result.
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindDisconnected:     "disconnected",
	KindOutgoingTooLarge: "outgoing_too_large",
	KindIncomingTooLarge: "incoming_too_large",
	KindIncomingNotUTF8:  "incoming_not_utf8",
	KindSerialize:        "serialize",
	KindDeserialize:      "deserialize",
	KindIO:               "io",
	KindInternal:         "internal",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the structured error returned by the codec, transport, pump and
// event loop.
type Error struct {
	Kind Kind

	// Len and Max are set for the size-limit kinds.
	Len uint64
	Max uint64

	// Op names the failing step for KindIO, e.g. "write" or "flush".
	Op string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDisconnected:
		return "native messaging disconnected (stdin closed)"
	case KindOutgoingTooLarge:
		return fmt.Sprintf("outgoing native message is %d bytes (max %d); reduce size (chunk/compress) before sending", e.Len, e.Max)
	case KindIncomingTooLarge:
		return fmt.Sprintf("incoming native message is %d bytes (max %d); extension must send smaller messages (chunk/compress)", e.Len, e.Max)
	case KindIncomingNotUTF8:
		return "incoming native message is not valid UTF-8"
	case KindSerialize:
		return fmt.Sprintf("failed to serialize JSON: %v", e.Err)
	case KindDeserialize:
		return fmt.Sprintf("failed to deserialize JSON: %v", e.Err)
	case KindIO:
		if e.Op != "" {
			return fmt.Sprintf("I/O error during %s: %v", e.Op, e.Err)
		}
		return fmt.Sprintf("I/O error: %v", e.Err)
	case KindInternal:
		return fmt.Sprintf("internal task error: %v", e.Err)
	}
	return fmt.Sprintf("native messaging error: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind, so that
// errors.Is(err, ErrIncomingTooLarge) works regardless of Len and Max.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Len == 0 && t.Max == 0 && t.Op == "" && t.Err == nil
}

// Sentinels for use with errors.Is.
var (
	ErrDisconnected     = &Error{Kind: KindDisconnected}
	ErrOutgoingTooLarge = &Error{Kind: KindOutgoingTooLarge}
	ErrIncomingTooLarge = &Error{Kind: KindIncomingTooLarge}
	ErrIncomingNotUTF8  = &Error{Kind: KindIncomingNotUTF8}
	ErrSerialize        = &Error{Kind: KindSerialize}
	ErrDeserialize      = &Error{Kind: KindDeserialize}
	ErrIO               = &Error{Kind: KindIO}
	ErrInternal         = &Error{Kind: KindInternal}
)

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func ioError(op string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}
