package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"owner", "admin", "member"} {
		role, err := ParseRole(valid)
		require.NoError(t, err)
		require.Equal(t, valid, role.String())
	}

	for _, invalid := range []string{"", "Owner", "superadmin", "OWNER"} {
		_, err := ParseRole(invalid)
		require.ErrorIs(t, err, ErrUnknownRole, "input %q", invalid)
	}
}

func TestAtLeastAdmin(t *testing.T) {
	t.Parallel()

	require.True(t, RoleOwner.AtLeastAdmin())
	require.True(t, RoleAdmin.AtLeastAdmin())
	require.False(t, RoleMember.AtLeastAdmin())
}

func TestUserDisplayName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Ada Lovelace", User{FirstName: "Ada", LastName: "Lovelace", Email: "a@x.test"}.DisplayName())
	require.Equal(t, "Ada", User{FirstName: "Ada", Email: "a@x.test"}.DisplayName())
	require.Equal(t, "a@x.test", User{Email: "a@x.test"}.DisplayName())
}
