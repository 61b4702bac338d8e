package pubsub

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeDecodeFrameRoundTrips(t *testing.T) {
	raw, err := EncodeFrame("tasks.default", []byte("payload-bytes"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	frame, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Topic != "tasks.default" {
		t.Fatalf("unexpected topic: %q", frame.Topic)
	}
	if !bytes.Equal(frame.Payload, []byte("payload-bytes")) {
		t.Fatalf("unexpected payload: %q", frame.Payload)
	}
}

func TestEncodeFrameEmptyPayload(t *testing.T) {
	raw, err := EncodeFrame("empty", nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	frame, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(frame.Payload) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(frame.Payload))
	}
}

func TestEncodeFrameRejectsOversizedTopic(t *testing.T) {
	topic := strings.Repeat("x", maxTopicLen+1)
	_, err := EncodeFrame(topic, []byte("payload"))
	if err == nil {
		t.Fatalf("expected serialization error for oversized topic")
	}
	ce, ok := err.(*CodedError)
	if !ok || ce.Code != ErrCodeSerialization {
		t.Fatalf("expected %s coded error, got %v", ErrCodeSerialization, err)
	}
}

func TestDecodeFrameRejectsTooShort(t *testing.T) {
	_, err := DecodeFrame([]byte{0x00})
	if err == nil {
		t.Fatalf("expected error for frame shorter than length prefix")
	}
}

func TestDecodeFrameRejectsTruncatedTopic(t *testing.T) {
	raw, err := EncodeFrame("a-topic", []byte("payload"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	truncated := raw[:3] // length prefix says 7 bytes of topic, only 1 present
	if _, err := DecodeFrame(truncated); err == nil {
		t.Fatalf("expected error for truncated topic")
	}
}

func TestDecodeFrameMaxTopicLength(t *testing.T) {
	topic := strings.Repeat("y", maxTopicLen)
	raw, err := EncodeFrame(topic, []byte("p"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	frame, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(frame.Topic) != maxTopicLen {
		t.Fatalf("expected max-length topic to round trip")
	}
}
