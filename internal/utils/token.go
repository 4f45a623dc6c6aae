package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// NewInviteToken returns an opaque URL-safe invite token with 128 bits of
// entropy. All invite token generation goes through this single function so
// the entropy source can be swapped without touching callers.
func NewInviteToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
