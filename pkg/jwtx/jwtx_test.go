package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	signer := NewSigner("0123456789abcdef0123456789abcdef", "test-issuer", time.Hour)

	token, err := signer.Sign("user-1", "org-1")
	require.NoError(t, err)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "org-1", claims.OrgID)
	require.Equal(t, "test-issuer", claims.Issuer)
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	t.Parallel()

	signer := NewSigner("0123456789abcdef0123456789abcdef", "test-issuer", time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewSigner("another-secret-another-secret-ab", "test-issuer", time.Hour)
		token, err := other.Sign("user-1", "org-1")
		require.NoError(t, err)

		_, err = signer.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewSigner("0123456789abcdef0123456789abcdef", "other-issuer", time.Hour)
		token, err := other.Sign("user-1", "org-1")
		require.NoError(t, err)

		_, err = signer.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := signer.Verify("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	signer := NewSigner("0123456789abcdef0123456789abcdef", "test-issuer", -time.Minute)

	token, err := signer.Sign("user-1", "org-1")
	require.NoError(t, err)

	_, err = signer.Verify(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}
