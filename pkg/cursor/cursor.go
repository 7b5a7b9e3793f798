package cursor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Key identifies the last entry of a consumed page. Continuation queries
// resume strictly after it.
type Key struct {
	SortValue float64   `json:"v"`
	Time      time.Time `json:"t"`
	ID        string    `json:"id"`
}

// Codec encodes page keys into opaque, tamper-evident continuation tokens.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec signing tokens with the given secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode serialises the key and appends an HMAC-SHA256 signature.
func (c *Codec) Encode(key Key) (string, error) {
	payload, err := json.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("encode cursor payload: %w", err)
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	signed := append(payload, mac.Sum(nil)...)

	return base64.RawURLEncoding.EncodeToString(signed), nil
}

// Decode verifies the signature and recovers the page key.
func (c *Codec) Decode(token string) (Key, error) {
	if token == "" {
		return Key{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Key{}, fmt.Errorf("malformed cursor: %w", err)
	}
	if len(raw) <= sha256.Size {
		return Key{}, errors.New("malformed cursor")
	}

	payload := raw[:len(raw)-sha256.Size]
	signature := raw[len(raw)-sha256.Size:]

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return Key{}, errors.New("cursor signature mismatch")
	}

	var key Key
	if err := json.Unmarshal(payload, &key); err != nil {
		return Key{}, fmt.Errorf("decode cursor payload: %w", err)
	}

	return key, nil
}
