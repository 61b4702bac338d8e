// Package pubsub implements the epidemic-broadcast topic manager: local
// subscription delivery plus transport-backed re-broadcast, grounded on
// core/network.go's libp2p-pubsub Node (Broadcast/Subscribe) but
// generalized into a transport-agnostic registry/manager pair per spec
// section 4.13.
package pubsub

import (
	"encoding/binary"
	"fmt"
)

// Error codes, stable per spec section 7.
const (
	ErrCodeSerialization = "serialization"
	ErrCodeGossip        = "gossip"
)

// CodedError pairs a stable error code with the underlying cause, matching
// the identity package's error shape.
type CodedError struct {
	Code string
	Err  error
}

func (e *CodedError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }
func (e *CodedError) Unwrap() error { return e.Err }

func coded(code string, err error) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Err: err}
}

// maxTopicLen is the largest topic length encodable in the u16 BE length
// prefix of the wire frame.
const maxTopicLen = 65535

// Frame is a decoded wire message: a topic name and its opaque payload.
type Frame struct {
	Topic   string
	Payload []byte
}

// EncodeFrame serializes f as `[u16 BE topic_len | topic_utf8 | payload]`
// (spec section 4.13 / Wire format — Pub/Sub). Topics longer than 65535
// bytes cannot be represented and return a serialization error.
func EncodeFrame(topic string, payload []byte) ([]byte, error) {
	if len(topic) > maxTopicLen {
		return nil, coded(ErrCodeSerialization, fmt.Errorf("topic length %d exceeds %d", len(topic), maxTopicLen))
	}
	out := make([]byte, 2+len(topic)+len(payload))
	binary.BigEndian.PutUint16(out[:2], uint16(len(topic)))
	copy(out[2:2+len(topic)], topic)
	copy(out[2+len(topic):], payload)
	return out, nil
}

// DecodeFrame parses a wire frame produced by EncodeFrame. Malformed input
// (too short for its declared topic length) returns a serialization error;
// callers at the transport boundary are expected to log and drop rather
// than propagate (spec section 4.13 handle_incoming step 1).
func DecodeFrame(raw []byte) (Frame, error) {
	if len(raw) < 2 {
		return Frame{}, coded(ErrCodeSerialization, fmt.Errorf("frame too short: %d bytes", len(raw)))
	}
	topicLen := int(binary.BigEndian.Uint16(raw[:2]))
	if len(raw) < 2+topicLen {
		return Frame{}, coded(ErrCodeSerialization, fmt.Errorf("frame truncated: declared topic length %d, have %d bytes", topicLen, len(raw)-2))
	}
	topic := string(raw[2 : 2+topicLen])
	payload := append([]byte{}, raw[2+topicLen:]...)
	return Frame{Topic: topic, Payload: payload}, nil
}
