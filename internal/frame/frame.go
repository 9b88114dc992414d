// Package frame implements the wire framing used by every IPC exchange
// between the HTTP front-end and a session worker: a fixed 8-byte header
// (sender id, message kind) followed by a kind-dependent payload.
//
// The system runs on a single host, so the byte order is fixed rather than
// negotiated; cross-architecture wire compatibility is explicitly not a
// goal.
package frame

import (
	"encoding/binary"
	"errors"
)

// Kind identifies which request or reply a frame carries. Each kind has a
// fixed payload shape (one of the three families from spec §4.1: empty,
// fixed value, or blob), so a dispatcher can decode a frame's payload
// without any further negotiation.
type Kind int32

const (
	// KindForkRequest: empty. Ask the receiving worker to fork.
	KindForkRequest Kind = iota
	// KindForkReply: value<int32>. The new session id, or -1 if the
	// engine was busy and the fork was refused.
	KindForkReply
	// KindKillRequest: empty. Ask the worker to stop the engine and exit.
	KindKillRequest
	// KindAck: empty. Generic acknowledgement (kill, stop).
	KindAck
	// KindInitRequest: blob. The initialization prompt.
	KindInitRequest
	// KindInitReply: blob. "Success" or an error message.
	KindInitReply
	// KindSubmitRequest: blob. User input text.
	KindSubmitRequest
	// KindSubmitReply: blob. "Success" or an error message.
	KindSubmitReply
	// KindStopRequest: empty. Ask the worker to interrupt generation.
	KindStopRequest
	// KindReleaseOutputRequest: empty.
	KindReleaseOutputRequest
	// KindReleaseOutputReply: release-output blob (hasMore byte + text).
	KindReleaseOutputReply
	// KindNotifyRequest: empty. Ask to be told when the engine goes idle.
	KindNotifyRequest
	// KindReadyReply: empty. The engine is now idle.
	KindReadyReply
)

func (k Kind) String() string {
	switch k {
	case KindForkRequest:
		return "fork-request"
	case KindForkReply:
		return "fork-reply"
	case KindKillRequest:
		return "kill-request"
	case KindAck:
		return "ack"
	case KindInitRequest:
		return "init-request"
	case KindInitReply:
		return "init-reply"
	case KindSubmitRequest:
		return "submit-request"
	case KindSubmitReply:
		return "submit-reply"
	case KindStopRequest:
		return "stop-request"
	case KindReleaseOutputRequest:
		return "release-output-request"
	case KindReleaseOutputReply:
		return "release-output-reply"
	case KindNotifyRequest:
		return "notify-request"
	case KindReadyReply:
		return "ready-reply"
	default:
		return "unknown"
	}
}

// headerSize is the on-wire size of the sender id + kind header.
const headerSize = 8

// ErrShortFrame is returned when a byte slice is too small to contain a
// valid frame header.
var ErrShortFrame = errors.New("frame: buffer shorter than header")

var byteOrder = binary.LittleEndian

// Frame is one atomic IPC message: a sender id, a kind, and a payload whose
// interpretation depends on the kind.
type Frame struct {
	SenderID int32
	Kind     Kind
	Payload  []byte
}

// Empty builds a zero-payload frame of the given kind from the given
// sender.
func Empty(senderID int32, kind Kind) Frame {
	return Frame{SenderID: senderID, Kind: kind}
}

// Blob builds a frame of the given kind carrying the given bytes verbatim.
func Blob(senderID int32, kind Kind, payload []byte) Frame {
	return Frame{SenderID: senderID, Kind: kind, Payload: payload}
}

// BlobString is a convenience wrapper around Blob for text payloads.
func BlobString(senderID int32, kind Kind, payload string) Frame {
	return Blob(senderID, kind, []byte(payload))
}

// Value builds a KindForkReply frame carrying a signed 32-bit integer: the
// new session id, or the busy sentinel.
func Value(senderID int32, v int32) Frame {
	buf := make([]byte, 4)
	byteOrder.PutUint32(buf, uint32(v))
	return Frame{SenderID: senderID, Kind: KindForkReply, Payload: buf}
}

// AsValue decodes a KindForkReply payload back into a signed 32-bit integer.
func (f Frame) AsValue() (int32, error) {
	if f.Kind != KindForkReply || len(f.Payload) != 4 {
		return 0, errors.New("frame: not a value frame")
	}
	return int32(byteOrder.Uint32(f.Payload)), nil
}

// ReleaseOutput builds the specialized release-output reply frame: a
// leading hasMore byte followed by the accumulated output text.
func ReleaseOutput(senderID int32, output string, hasMore bool) Frame {
	payload := make([]byte, 1+len(output))
	if hasMore {
		payload[0] = 1
	}
	copy(payload[1:], output)
	return Frame{SenderID: senderID, Kind: KindReleaseOutputReply, Payload: payload}
}

// AsReleaseOutput splits a release-output payload back into its output
// string and hasMore flag.
func (f Frame) AsReleaseOutput() (output string, hasMore bool, err error) {
	if f.Kind != KindReleaseOutputReply || len(f.Payload) < 1 {
		return "", false, errors.New("frame: not a release-output frame")
	}
	return string(f.Payload[1:]), f.Payload[0] != 0, nil
}

// MarshalBinary encodes the frame as [int32 sender][int32 kind][payload...].
func (f Frame) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerSize+len(f.Payload))
	byteOrder.PutUint32(buf[0:4], uint32(f.SenderID))
	byteOrder.PutUint32(buf[4:8], uint32(f.Kind))
	copy(buf[headerSize:], f.Payload)
	return buf, nil
}

// UnmarshalBinary decodes a frame from the wire layout, deducing the
// payload length from the remaining buffer length.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return ErrShortFrame
	}
	f.SenderID = int32(byteOrder.Uint32(data[0:4]))
	f.Kind = Kind(byteOrder.Uint32(data[4:8]))
	if rest := data[headerSize:]; len(rest) > 0 {
		f.Payload = append([]byte(nil), rest...)
	} else {
		f.Payload = nil
	}
	return nil
}

// Decode is a convenience wrapper that allocates and unmarshals a new Frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := f.UnmarshalBinary(data); err != nil {
		return Frame{}, err
	}
	return f, nil
}
