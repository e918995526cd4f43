package verification

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// Payload is the content of the QR code shown by the buyer.
type Payload struct {
	TransactionID string `json:"txId" validate:"required,max=64"`
	Fingerprint   string `json:"hash" validate:"required,len=16,hexadecimal"`
	IssuedAt      int64  `json:"timestamp" validate:"required,gt=0"`
}

var validate = validator.New()

// EncodeQRPayload serializes p in its canonical form.
func EncodeQRPayload(p Payload) string {
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeAndMatch parses raw and reports whether it is exactly the canonical encoding of expected.
// Malformed input yields false.
func DecodeAndMatch(raw string, expected Payload) bool {
	p, ok := decode(raw)
	if !ok {
		return false
	}

	// rejects alternative spellings of the same values (key case, escapes, whitespace)
	if EncodeQRPayload(p) != raw {
		return false
	}

	return p.TransactionID == expected.TransactionID &&
		p.IssuedAt == expected.IssuedAt &&
		subtle.ConstantTimeCompare([]byte(p.Fingerprint), []byte(expected.Fingerprint)) == 1
}

// MatchPIN compares a presented PIN with the stored one in constant time.
func MatchPIN(code, pin string) bool {
	if pin == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(pin)) == 1
}

func decode(raw string) (p Payload, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Payload{}, false
	}
	if dec.More() {
		return Payload{}, false
	}

	if err := validate.Struct(p); err != nil {
		return Payload{}, false
	}

	return p, true
}
