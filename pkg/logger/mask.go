package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MaskToken renders an API token as a short irreversible fingerprint so
// that logs can correlate key rotation without leaking the secret.
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return "key#empty"
	}
	sum := sha256.Sum256([]byte(token))
	return "key#" + hex.EncodeToString(sum[:])[:8]
}
