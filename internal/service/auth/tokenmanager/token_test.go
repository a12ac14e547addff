package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/greenpoints/internal/models"
)

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	principal := models.Principal{AccountID: uuid.New(), Role: models.RoleAdmin}

	newManager := func(t *testing.T, ttl time.Duration) *TokenManager {
		m, err := New(Config{SecretKey: "test-secret-key", AccessTTL: ttl})
		require.NoError(t, err, "token manager should be created without errors")
		return m
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{SecretKey: "secret"})
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, "secret", m.key, "secret key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("new fails", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err, "empty secret key is not allowed")

		_, err = New(Config{SecretKey: "secret", Alg: "RS256"})
		require.Error(t, err, "asymmetric methods are not supported")
	})

	t.Run("Issue", func(t *testing.T) {
		m := newManager(t, 15*time.Minute)

		issued, err := m.Issue(principal)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), issued.ExpiresAt, time.Second)

		token, err := jwt.ParseWithClaims(issued.Value, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
			return []byte("test-secret-key"), nil
		})
		require.NoError(t, err)
		require.True(t, token.Valid, "access token should be valid")

		claims, ok := token.Claims.(*AccessTokenClaims)
		require.True(t, ok, "claims should be of type AccessTokenClaims")
		assert.Equal(t, principal.AccountID, claims.AccountID)
		assert.Equal(t, models.RoleAdmin, claims.Role)
		assert.NotEmpty(t, claims.ID, "token has to has jti")

		other, err := m.Issue(principal)
		require.NoError(t, err)
		assert.NotEqual(t, issued.Value, other.Value, "tokens should be different")
	})

	t.Run("ParseAccess", func(t *testing.T) {
		m := newManager(t, 15*time.Minute)

		t.Run("valid", func(t *testing.T) {
			issued, err := m.Issue(principal)
			require.NoError(t, err)

			got, err := m.ParseAccess(issued.Value)

			require.NoError(t, err)
			require.Equal(t, principal, got)
		})

		t.Run("role defaults to user", func(t *testing.T) {
			issued, err := m.Issue(models.Principal{AccountID: principal.AccountID})
			require.NoError(t, err)

			got, err := m.ParseAccess(issued.Value)

			require.NoError(t, err)
			require.Equal(t, models.RoleUser, got.Role)
		})

		t.Run("expired", func(t *testing.T) {
			expired := newManager(t, -time.Minute)
			issued, err := expired.Issue(principal)
			require.NoError(t, err)

			_, err = m.ParseAccess(issued.Value)

			require.ErrorIs(t, err, jwt.ErrTokenExpired)
		})

		t.Run("signed with other key", func(t *testing.T) {
			other, err := New(Config{SecretKey: "other-key"})
			require.NoError(t, err)
			issued, err := other.Issue(principal)
			require.NoError(t, err)

			_, err = m.ParseAccess(issued.Value)

			require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
		})

		t.Run("without account", func(t *testing.T) {
			issued, err := m.Issue(models.Principal{Role: models.RoleAdmin})
			require.NoError(t, err)

			_, err = m.ParseAccess(issued.Value)

			require.Error(t, err)
		})

		t.Run("garbage", func(t *testing.T) {
			_, err := m.ParseAccess("not-a-token")

			require.Error(t, err)
		})
	})
}
