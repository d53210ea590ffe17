package checkout

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Return token errors
var (
	ErrInvalidReturnToken = errors.New("return token is invalid")
	ErrExpiredReturnToken = errors.New("return token has expired")
)

// issueReturnToken builds the signed token handed to the shopper's browser
// before a redirect. The token carries the order number and an expiry so the
// return URL cannot be replayed against other orders or kept alive forever.
func issueReturnToken(secret, orderNo string, expiresAt time.Time) string {
	payload := orderNo + "|" + strconv.FormatInt(expiresAt.Unix(), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(payload + "|" + signReturnPayload(secret, payload)))
}

// verifyReturnToken checks the token signature and expiry and returns the
// order number it was issued for
func verifyReturnToken(secret, token string, now time.Time) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidReturnToken
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return "", ErrInvalidReturnToken
	}
	orderNo, expiry, signature := parts[0], parts[1], parts[2]

	payload := orderNo + "|" + expiry
	if !hmac.Equal([]byte(signature), []byte(signReturnPayload(secret, payload))) {
		return "", ErrInvalidReturnToken
	}

	expiresAt, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return "", ErrInvalidReturnToken
	}
	if now.Unix() > expiresAt {
		return "", fmt.Errorf("%w: order %s", ErrExpiredReturnToken, orderNo)
	}

	return orderNo, nil
}

func signReturnPayload(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
