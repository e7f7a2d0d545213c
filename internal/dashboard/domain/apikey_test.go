package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIKeyAllowsOrigin(t *testing.T) {
	t.Parallel()

	k := APIKey{AllowedOrigins: []string{"https://acme.test"}}
	require.True(t, k.AllowsOrigin("https://acme.test"))
	require.False(t, k.AllowsOrigin("https://other.test"))
	require.False(t, k.AllowsOrigin(""))

	wild := APIKey{AllowedOrigins: []string{OriginWildcard}}
	require.True(t, wild.AllowsOrigin("https://anything.test"))

	empty := APIKey{}
	require.False(t, empty.AllowsOrigin("https://acme.test"))
}
