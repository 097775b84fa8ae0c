package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sitestack-erp/sitestack-erp/internal/auth"
	"github.com/sitestack-erp/sitestack-erp/internal/perm"
	"github.com/sitestack-erp/sitestack-erp/internal/shared"
	_ "github.com/sitestack-erp/sitestack-erp/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func newStubRepo(user *auth.User) *stubRepo {
	return &stubRepo{user: user, sessions: make(map[string]int64)}
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.sessions[token] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, token string) error {
	delete(s.sessions, token)
	return nil
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{
		ID:           1,
		Email:        "engineer@site.local",
		Name:         "Sam",
		RoleName:     perm.RoleSiteEngineer,
		PasswordHash: string(hashed),
		IsActive:     true,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthRouter(t *testing.T, repo auth.Repository) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	service := auth.NewService(repo, auth.NewTokenStore(client, time.Hour))
	router := chi.NewRouter()
	auth.NewHandler(testLogger(), service).MountRoutes(router)
	return router
}

func postJSON(t *testing.T, router http.Handler, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesBearerToken(t *testing.T) {
	repo := newStubRepo(activeUser(t, "corr3ct-pass"))
	router := newAuthRouter(t, repo)

	rec := postJSON(t, router, "/login", `{"email":"engineer@site.local","password":"corr3ct-pass"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string            `json:"token"`
		User  *shared.Principal `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.Equal(t, int64(1), resp.User.ID)
	require.Equal(t, perm.RoleSiteEngineer, resp.User.Role)
	require.Contains(t, repo.sessions, resp.Token)

	// The token resolves the principal on protected routes.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	meRec := httptest.NewRecorder()
	router.ServeHTTP(meRec, req)
	require.Equal(t, http.StatusOK, meRec.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newStubRepo(activeUser(t, "corr3ct-pass"))
	router := newAuthRouter(t, repo)

	rec := postJSON(t, router, "/login", `{"email":"engineer@site.local","password":"wrong-pass-1"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, router, "/login", `{"email":"stranger@site.local","password":"corr3ct-pass"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, router, "/login", `{"email":"not-an-email","password":"corr3ct-pass"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	user := activeUser(t, "corr3ct-pass")
	user.IsActive = false
	router := newAuthRouter(t, newStubRepo(user))

	rec := postJSON(t, router, "/login", `{"email":"engineer@site.local","password":"corr3ct-pass"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	repo := newStubRepo(activeUser(t, "corr3ct-pass"))
	router := newAuthRouter(t, repo)

	rec := postJSON(t, router, "/login", `{"email":"engineer@site.local","password":"corr3ct-pass"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = postJSON(t, router, "/logout", "", resp.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, repo.sessions, resp.Token)

	rec = postJSON(t, router, "/logout", "", resp.Token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newAuthRouter(t, newStubRepo(nil))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer no-such-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
