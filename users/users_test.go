package users_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/roles"
	"github.com/jrsteele09/go-session-client/users"
	fakeuserrepo "github.com/jrsteele09/go-session-client/users/repofake"
)

func TestValidatePasswordStrength(t *testing.T) {
	for password, ok := range map[string]bool{
		"short1A":       false,
		"alllowercase1": false,
		"ALLUPPERCASE1": false,
		"NoNumbersHere": false,
		"Str0ngEnough":  true,
	} {
		err := users.ValidatePasswordStrength(password)
		if ok {
			require.NoError(t, err, password)
		} else {
			require.Error(t, err, password)
		}
	}
}

func TestNewHashesPassword(t *testing.T) {
	u, err := users.New("doc@example.com", "Dr Who", "Tardis123", roles.Provider)
	require.NoError(t, err)
	require.NotEqual(t, "Tardis123", u.PasswordHash)
	require.True(t, u.CheckPassword("Tardis123"))
	require.False(t, u.CheckPassword("tardis123"))

	_, err = users.New("x@example.com", "X", "Tardis123", roles.Role("nurse"))
	require.Error(t, err)
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	u, err := users.New("Admin@Example.com", "Admin", "Adm1nPass", roles.Admin)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(u))
	require.NotEmpty(t, u.ID)

	got, err := repo.GetByEmail("admin@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.True(t, got.IsAdmin())

	require.NoError(t, repo.SetDeactivated(u.ID, true))
	got, err = repo.GetByID(u.ID)
	require.NoError(t, err)
	require.True(t, got.Deactivated)

	_, err = repo.GetByID("missing")
	require.ErrorIs(t, err, errors.ErrUserNotFound)

	list, err := repo.List(0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
