package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileToken_RoundTrip(t *testing.T) {
	secret := []byte("secret")
	token, err := GenerateFileToken("abc_extracted.csv", secret, time.Minute)
	require.NoError(t, err)

	claims, err := ParseFileToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "abc_extracted.csv", claims.FileKey)
	require.NoError(t, VerifyFileToken(token, "abc_extracted.csv", secret))
}

func TestFileToken_Rejects(t *testing.T) {
	secret := []byte("secret")
	token, err := GenerateFileToken("a.csv", secret, time.Minute)
	require.NoError(t, err)

	require.Error(t, VerifyFileToken(token, "b.csv", secret))
	require.Error(t, VerifyFileToken(token, "a.csv", []byte("other")))

	expired, err := GenerateFileToken("a.csv", secret, -time.Minute)
	require.NoError(t, err)
	require.Error(t, VerifyFileToken(expired, "a.csv", secret))

	_, err = GenerateFileToken("", secret, time.Minute)
	require.Error(t, err)
}
