package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ValidSignature reports whether signature is the hex HMAC-SHA256 of payload
// under secret. A "sha256=" prefix and uppercase hex are tolerated; empty
// secrets or signatures never validate. The comparison is constant-time.
func ValidSignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}

	signature = strings.ToLower(strings.TrimPrefix(signature, "sha256="))

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
