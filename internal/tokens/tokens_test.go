package tokens

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/collabpad/collabpad/internal/config"
	"github.com/collabpad/collabpad/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{JWT: config.JWTConfig{Secret: "unit-test-secret"}}
}

func TestGenerateAndVerify(t *testing.T) {
	cfg := testConfig()
	u := &models.User{ID: "u1", Username: "alice", Email: "alice@example.com"}

	raw, err := GenerateAccessToken(cfg, u, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	v := NewVerifier(cfg.JWT.Secret)
	sub, err := v.Subject(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "u1", sub)

	var claims map[string]interface{}
	tok, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "alice", claims["name"])
}

func TestVerifyRejectsBadSecretAndExpired(t *testing.T) {
	cfg := testConfig()
	u := &models.User{ID: "u1", Username: "alice"}

	raw, err := GenerateAccessToken(cfg, u, time.Minute)
	require.NoError(t, err)
	_, err = NewVerifier("other-secret").Subject(context.Background(), raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateAccessToken(cfg, u, -time.Minute)
	require.NoError(t, err)
	_, err = NewVerifier(cfg.JWT.Secret).Subject(context.Background(), expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewVerifier(cfg.JWT.Secret).Subject(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsBlacklistedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	SetBlacklistClient(client)
	defer SetBlacklistClient(nil)

	cfg := testConfig()
	raw, err := GenerateAccessToken(cfg, &models.User{ID: "u1"}, time.Minute)
	require.NoError(t, err)

	require.NoError(t, BlacklistAccessToken(context.Background(), raw, 5*time.Second))

	_, err = NewVerifier(cfg.JWT.Secret).Verify(context.Background(), raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}
