package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	st, err := NewSessionToken("secret", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, st.SessionID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), st.Exp, 5*time.Second)

	id, err := ParseSessionToken("secret", st.Token)
	require.NoError(t, err)
	assert.Equal(t, st.SessionID, id)
}

func TestParseSessionTokenRejects(t *testing.T) {
	st, err := NewSessionToken("secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseSessionToken("other", st.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	expired, err := signSession("secret", "s1", time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	_, err = ParseSessionToken("secret", expired.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "s1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseSessionToken("secret", none)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = ParseSessionToken("secret", "garbage")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
