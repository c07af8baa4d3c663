package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SessionToken_roundTrip(t *testing.T) {
	s := Session{User: User{ID: "u1", Role: RoleStudent}, Remember: true}

	token, err := MakeSessionToken(s)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, VerifySessionToken(token, s))
}

func Test_VerifySessionToken_rejectsMismatch(t *testing.T) {
	s := Session{User: User{ID: "u1", Role: RoleStudent}}
	token, err := MakeSessionToken(s)
	require.NoError(t, err)

	// a locally edited role no longer matches the signed claims
	forged := s
	forged.User.Role = RoleAdmin
	assert.Error(t, VerifySessionToken(token, forged))

	// neither does a different identity
	other := s
	other.User.ID = "u2"
	assert.Error(t, VerifySessionToken(token, other))
}

func Test_VerifySessionToken_rejectsGarbage(t *testing.T) {
	s := Session{User: User{ID: "u1", Role: RoleStudent}}
	assert.Error(t, VerifySessionToken("not-a-token", s))
	assert.Error(t, VerifySessionToken("", s))

	token, err := MakeSessionToken(s)
	require.NoError(t, err)
	assert.Error(t, VerifySessionToken(token+"x", s))
}
