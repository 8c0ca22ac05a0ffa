package proto

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Frame layout: 4-byte unsigned big-endian payload length, then the UTF-8
// JSON serialization of one Envelope.
const (
	headerSize = 4

	// MaxFrameSize bounds the declared payload length. Chunked file data is
	// hex-encoded 8 KiB slices, so 4 MiB leaves generous headroom.
	MaxFrameSize = 4 << 20
)

// DecodeError means the peer sent bytes we cannot accept. The connection
// must be closed; retrying on the same stream is pointless because framing
// is lost.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode frame: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode frame: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(reason string, err error) *DecodeError {
	return &DecodeError{Reason: reason, Err: err}
}

// Encode serializes env into a length-prefixed frame.
func Encode(env *Envelope) ([]byte, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("encode frame: payload %d exceeds max %d", len(payload), MaxFrameSize)
	}

	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[headerSize:], payload)
	return buf, nil
}

// Write encodes env and writes the whole frame to w.
func Write(w io.Writer, env *Envelope) error {
	frame, err := Encode(env)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Read consumes exactly one frame from r.
//
// io.EOF is returned only when the peer closed the stream cleanly, before
// sending any byte of the next header. A partial header, a close mid-payload,
// malformed JSON, invalid UTF-8, or an unknown kind all come back as
// *DecodeError: the caller must drop the connection but may treat io.EOF as
// a normal hangup.
func Read(r io.Reader) (*Envelope, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		// ErrUnexpectedEOF here means a truncated header.
		return nil, decodeErr("short header", err)
	}

	length := binary.BigEndian.Uint32(header)
	if length == 0 {
		return nil, decodeErr("zero-length frame", nil)
	}
	if length > MaxFrameSize {
		return nil, decodeErr(fmt.Sprintf("declared length %d exceeds max %d", length, MaxFrameSize), nil)
	}

	// ReadFull accumulates across partial reads; a close mid-payload surfaces
	// as ErrUnexpectedEOF, which is a protocol error, not a clean hangup.
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, decodeErr("short payload", err)
	}

	if !utf8.Valid(payload) {
		return nil, decodeErr("payload is not valid UTF-8", nil)
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, decodeErr("malformed envelope", err)
	}
	if !env.Type.Valid() {
		return nil, decodeErr(fmt.Sprintf("unknown kind %q", env.Type), nil)
	}

	return &env, nil
}
