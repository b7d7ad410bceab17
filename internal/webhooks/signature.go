package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

func digest(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignHMAC returns the hex HMAC-SHA256 of body, carried in the
// X-Signature header of outgoing deliveries.
func SignHMAC(secret string, body []byte) string {
	return hex.EncodeToString(digest(secret, body))
}

// VerifyHMAC checks a received hex signature against the raw body.
func VerifyHMAC(secret string, body []byte, provided string) bool {
	got, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	return hmac.Equal(digest(secret, body), got)
}
