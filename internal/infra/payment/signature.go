package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the header carrying the provider's hex HMAC-SHA512 of
// the raw request body.
const SignatureHeader = "x-paystack-signature"

// VerifySignature recomputes the HMAC-SHA512 over the raw, unparsed request
// body and compares it against the signature header. The raw bytes must be
// hashed, not a re-serialized object: proxies that alter whitespace would
// otherwise break legitimate signatures.
func VerifySignature(secret string, rawBody []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
