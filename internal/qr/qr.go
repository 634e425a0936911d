// Package qr builds and parses the QR payload students scan. The
// symbol itself is opaque to the rest of the system; only the embedded
// session id matters, and the server re-validates the session
// regardless of what the scanned payload claims.
package qr

import (
	"encoding/json"
	"errors"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// PayloadType marks attendance payloads; anything else is rejected.
const PayloadType = "attendance"

// ErrInvalidPayload means the scanned data is not an attendance QR
// payload: malformed JSON, wrong type marker, or no session id.
var ErrInvalidPayload = errors.New("not an attendance QR payload")

// Payload is the JSON object encoded into the QR image.
type Payload struct {
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// NewPayload builds a payload for the given public session id.
func NewPayload(sessionID string, now time.Time) Payload {
	return Payload{SessionID: sessionID, Timestamp: now.UTC(), Type: PayloadType}
}

// Encode returns the payload as the JSON string carried by the QR
// symbol.
func (p Payload) Encode() (string, error) {
	b, err := json.Marshal(p)
	return string(b), err
}

// Parse extracts and checks a scanned payload.
func Parse(data string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Payload{}, ErrInvalidPayload
	}
	if p.Type != PayloadType || p.SessionID == "" {
		return Payload{}, ErrInvalidPayload
	}
	return p, nil
}

// RenderPNG encodes the payload as a size x size PNG QR image.
func RenderPNG(p Payload, size int) ([]byte, error) {
	data, err := p.Encode()
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(data, qrcode.Medium, size)
}
