package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

const contentTypeJSON = "application/json"

// signRequest produces the authorization header value for a gateway API call.
// The signed string is
//
//	METHOD \n Content-Type \n Date \n <x-gcs headers> <path> \n
//
// HMAC-SHA-256 over it with the merchant's secret key, base64 encoded and
// framed as "GCS v1HMAC:<keyID>:<signature>". No x-gcs headers are sent, so
// that segment is always empty.
func signRequest(secretKey, keyID, method, contentType, httpDate, path string) string {
	toSign := method + "\n" + contentType + "\n" + httpDate + "\n" + path + "\n"

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(toSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return "GCS v1HMAC:" + keyID + ":" + signature
}

// VerifyWebhookSignature checks the base64 HMAC-SHA-256 signature the gateway
// sends with webhook deliveries against the raw body
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
