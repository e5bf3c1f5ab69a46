package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabpad/collabpad/internal/models"
	"github.com/collabpad/collabpad/internal/tokens"
)

type fakePolisher struct {
	out string
	err error
}

func (f *fakePolisher) Polish(ctx context.Context, text string) (string, error) {
	return f.out, f.err
}

func newPolishRouter(t *testing.T, p Polisher) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	token, err := tokens.GenerateAccessToken(cfg, &models.User{ID: "u1", Username: "alice"}, time.Hour)
	require.NoError(t, err)
	h := NewPolishHandler(p, tokens.NewVerifier(cfg.JWT.Secret))
	g := gin.New()
	h.Register(g.Group("/"))
	return g, token
}

func TestPolishTextSuccess(t *testing.T) {
	g, token := newPolishRouter(t, &fakePolisher{out: "refined"})

	w := doJSON(g, http.MethodPost, "/api/polish", `{"text":"rough"}`, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"polishedText":"refined"}`, w.Body.String())
}

func TestPolishTextValidation(t *testing.T) {
	g, token := newPolishRouter(t, &fakePolisher{out: "refined"})

	w := doJSON(g, http.MethodPost, "/api/polish", `{}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(g, http.MethodPost, "/api/polish", `{"text":"rough"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPolishTextUpstreamFailure(t *testing.T) {
	g, token := newPolishRouter(t, &fakePolisher{err: errors.New("boom")})

	w := doJSON(g, http.MethodPost, "/api/polish", `{"text":"rough"}`, token)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
