package users_test

import (
	"testing"

	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/stretchr/testify/require"
)

func TestRegistrationValidate(t *testing.T) {
	r := users.Registration{Username: "ana", Email: "ana@example.com", Password: "Secret123"}
	require.NoError(t, r.Validate())
	require.Equal(t, "Secret123", r.Password2)

	r.Password2 = "Other123"
	require.Error(t, r.Validate())

	require.Error(t, (&users.Registration{Email: "a@b.c", Password: "x"}).Validate())
}

func TestMarshalRoundTrip(t *testing.T) {
	raw, err := users.Marshal(&users.User{ID: 3, Username: "ana", Location: "Lisbon"})
	require.NoError(t, err)

	u, err := users.Unmarshal(raw)
	require.NoError(t, err)
	require.Equal(t, int64(3), u.ID)
	require.Equal(t, "Lisbon", u.Location)

	none, err := users.Unmarshal(nil)
	require.NoError(t, err)
	require.Nil(t, none)
}
