package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnToken_RoundTrip(t *testing.T) {
	issued := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	token := issueReturnToken("secret", "ORD-1001", issued.Add(15*time.Minute))

	orderNo, err := verifyReturnToken("secret", token, issued.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "ORD-1001", orderNo)
}

func TestReturnToken_Expired(t *testing.T) {
	issued := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	token := issueReturnToken("secret", "ORD-1001", issued.Add(15*time.Minute))

	_, err := verifyReturnToken("secret", token, issued.Add(16*time.Minute))
	assert.ErrorIs(t, err, ErrExpiredReturnToken)
}

func TestReturnToken_WrongSecret(t *testing.T) {
	token := issueReturnToken("secret", "ORD-1001", time.Now().Add(time.Hour))

	_, err := verifyReturnToken("other-secret", token, time.Now())
	assert.ErrorIs(t, err, ErrInvalidReturnToken)
}

func TestReturnToken_Garbage(t *testing.T) {
	for _, token := range []string{"", "not-a-token", "YWJjZGVm"} {
		_, err := verifyReturnToken("secret", token, time.Now())
		assert.ErrorIs(t, err, ErrInvalidReturnToken, token)
	}
}
