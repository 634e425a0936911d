package qr

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestPayloadRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	p := NewPayload("CS101-1000", now)

	data, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.SessionID != "CS101-1000" {
		t.Errorf("sessionId = %q", parsed.SessionID)
	}
	if parsed.Type != PayloadType {
		t.Errorf("type = %q", parsed.Type)
	}
	if !parsed.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", parsed.Timestamp, now)
	}
}

func TestParseRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed json", "not json"},
		{"wrong type", `{"sessionId":"CS101-1000","timestamp":"2025-03-10T09:00:00Z","type":"ticket"}`},
		{"missing session id", `{"timestamp":"2025-03-10T09:00:00Z","type":"attendance"}`},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("err = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

func TestRenderPNG(t *testing.T) {
	p := NewPayload("CS101-1000", time.Now())
	png, err := RenderPNG(p, 256)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("output is not a PNG")
	}
}
