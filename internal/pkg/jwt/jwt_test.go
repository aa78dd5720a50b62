package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildstate/internal/pkg/config"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

func newManager(accessTTL int) *Manager {
	return NewManager(config.JWTConfig{Secret: "test-secret", AccessTokenExpire: accessTTL, RefreshTokenExpire: 3600})
}

func TestGenerateAndValidate(t *testing.T) {
	m := newManager(60)

	token, err := m.GenerateAccessToken(1, "alice", "local", []string{"write"})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token, constants.JWTTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []string{"write"}, claims.Scopes)

	_, err = m.ValidateToken(token, constants.JWTTypeRefresh)
	assert.True(t, pkgErrors.IsKind(err, pkgErrors.KindUnauthorized))
}

func TestRefreshToken(t *testing.T) {
	m := newManager(60)
	token, err := m.GenerateRefreshToken(2, "bob", "idm", []string{"read"})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token, constants.JWTTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "idm", claims.AuthType)
}

func TestRejectsForeignAndExpiredTokens(t *testing.T) {
	m := newManager(60)
	token, err := m.GenerateAccessToken(1, "alice", "local", nil)
	require.NoError(t, err)

	other := NewManager(config.JWTConfig{Secret: "another-secret", AccessTokenExpire: 60})
	_, err = other.ValidateToken(token, "")
	assert.True(t, pkgErrors.IsKind(err, pkgErrors.KindUnauthorized))

	expired, err := newManager(-10).GenerateAccessToken(1, "alice", "local", nil)
	require.NoError(t, err)
	_, err = m.ValidateToken(expired, "")
	assert.True(t, pkgErrors.IsKind(err, pkgErrors.KindUnauthorized))

	_, err = m.ParseToken("not-a-token")
	assert.Error(t, err)
}
