package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabpad/collabpad/internal/config"
	"github.com/collabpad/collabpad/internal/models"
	"github.com/collabpad/collabpad/internal/tokens"
	"github.com/collabpad/collabpad/internal/users"
)

// in-memory user repo
type memUserRepo struct {
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*models.User{}, byEmail: map[string]*models.User{}}
}

func (r *memUserRepo) Insert(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.byID[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.byEmail[email], nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessTokenTTL = time.Hour
	return cfg
}

func newAuthRouter(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	uSvc := users.NewService(newMemUserRepo())
	h := NewAuthHandler(cfg, uSvc, tokens.NewVerifier(cfg.JWT.Secret))
	g := gin.New()
	h.Register(g.Group("/"))
	return g, cfg
}

func doJSON(g *gin.Engine, method, path, body, bearer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	g.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginAndCurrentUser(t *testing.T) {
	g, _ := newAuthRouter(t)

	w := doJSON(g, http.MethodPost, "/api/register", `{"username":"alice","email":"a@b.c","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var reg struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.Equal(t, "alice", reg.User.Username)
	assert.NotEmpty(t, reg.Token)

	// password hash must never leak in responses
	assert.NotContains(t, w.Body.String(), "passwordHash")

	// duplicate email is rejected
	w = doJSON(g, http.MethodPost, "/api/register", `{"username":"alice2","email":"a@b.c","password":"other"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	// login with the right password
	w = doJSON(g, http.MethodPost, "/api/login", `{"email":"a@b.c","password":"secret123"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	// wrong password
	w = doJSON(g, http.MethodPost, "/api/login", `{"email":"a@b.c","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// token resolves the profile
	w = doJSON(g, http.MethodGet, "/api/user", "", login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var u models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	assert.Equal(t, "alice", u.Username)

	// no token
	w = doJSON(g, http.MethodGet, "/api/user", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutBlacklistsToken(t *testing.T) {
	srv, err := mr.Run()
	require.NoError(t, err)
	defer srv.Close()
	tokens.SetBlacklistClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { tokens.SetBlacklistClient(nil) })

	g, _ := newAuthRouter(t)

	w := doJSON(g, http.MethodPost, "/api/register", `{"username":"bob","email":"b@b.c","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var reg struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	w = doJSON(g, http.MethodGet, "/api/user", "", reg.Token)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(g, http.MethodPost, "/api/logout", "", reg.Token)
	require.Equal(t, http.StatusOK, w.Code)

	// blacklisted token no longer authenticates
	w = doJSON(g, http.MethodGet, "/api/user", "", reg.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
