// Package signature implements the HMAC-SHA256 payload signing scheme
// shared by outbound deliveries and inbound verification.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Sign computes the base64-encoded HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is required")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write(payload); err != nil {
		return "", fmt.Errorf("failed to compute signature: %w", err)
	}

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature over payload and compares it against
// the provided value in constant time. A malformed or mismatched
// signature yields false, never an error detailing internal state.
func Verify(payload []byte, provided string, secret string) bool {
	expected, err := Sign(payload, secret)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
