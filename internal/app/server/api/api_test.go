package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"pm2dash/internal/app/server/api/http/health"
	"pm2dash/internal/app/server/api/http/middleware/auth"
	"pm2dash/internal/app/server/crypto"
	"pm2dash/internal/domain/session"
	"pm2dash/internal/domain/user"
	"pm2dash/internal/infrastructure/metrics"
	"pm2dash/internal/infrastructure/storage/credfile"
	"pm2dash/internal/infrastructure/storage/sqlite"
)

const (
	adminPassword = "Adm1n!pass"
	userPassword  = "Us3r!pass"
)

type testServer struct {
	t     *testing.T
	mux   *chi.Mux
	users *user.Service
	store *credfile.Store
}

func newTestServer(t *testing.T, opts ...func(*Deps)) *testServer {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	hexKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	key, err := crypto.ResolveKey(hexKey)
	require.NoError(t, err)
	c, err := crypto.NewCipher(key)
	require.NoError(t, err)

	store := credfile.New(filepath.Join(dir, "users.enc"), c, slog.Default())
	require.NoError(t, store.Bootstrap(ctx))

	db, err := sqlite.New(filepath.Join(dir, "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := user.NewService(store, user.NewCredentialValidator(), nil, slog.Default(), user.WithHashCost(bcrypt.MinCost))
	sessions := session.NewService(sqlite.NewSessionRepository(db, slog.Default()), time.Hour, slog.Default())

	_, err = users.CreateUser(ctx, "admin", adminPassword, user.RoleAdmin)
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, "viewer", userPassword, user.RoleUser)
	require.NoError(t, err)

	deps := Deps{
		Users:      users,
		Sessions:   sessions,
		Checks:     map[string]health.Checker{"credentials": store},
		Metrics:    metrics.NewRecorder().Handler(),
		SessionTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	mux := New(deps, slog.Default())

	return &testServer{t: t, mux: mux, users: users, store: store}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.doFrom("", nil, method, path, token, body)
}

// doFrom задает адрес соединения и дополнительные заголовки
func (s *testServer) doFrom(remoteAddr string, header http.Header, method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string        `json:"token"`
		User  user.Identity `json:"user"`
	}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(s.t, resp.Token)
	assert.Equal(s.t, username, resp.User.Username)
	return resp.Token
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestAPI_Health(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_LoginFailuresLookTheSame(t *testing.T) {
	s := newTestServer(t)

	unknown := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "ghost", "password": "whatever1"})
	wrong := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "viewer", "password": "whatever1"})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, "Invalid credentials", detail(t, unknown))
	assert.Equal(t, detail(t, unknown), detail(t, wrong))
}

func TestAPI_LoginLockout(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < user.DefaultMaxFailedAttempts; i++ {
		rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "viewer", "password": "wrong-pass"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "viewer", "password": userPassword})
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "Account is locked. Please try again later.", detail(t, rec))
}

func TestAPI_SessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "viewer", "password": userPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, auth.CookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	// cookie вместо заголовка Authorization
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: cookie.Value})
	me := httptest.NewRecorder()
	s.mux.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"username":"viewer"`)

	logout := s.do(http.MethodPost, "/api/v1/auth/logout", cookie.Value, nil)
	assert.Equal(t, http.StatusNoContent, logout.Code)

	after := s.do(http.MethodGet, "/api/v1/auth/me", cookie.Value, nil)
	assert.Equal(t, http.StatusUnauthorized, after.Code)
}

func TestAPI_Unauthorized(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/users", "bogus", nil).Code)
}

func TestAPI_UserManagement(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)

	list := s.do(http.MethodGet, "/api/v1/users", admin, nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.NotContains(t, list.Body.String(), "$2a$")
	assert.NotContains(t, list.Body.String(), `"password"`)
	assert.Contains(t, list.Body.String(), `"username":"viewer"`)

	created := s.do(http.MethodPost, "/api/v1/users", admin, map[string]string{"username": "ops", "password": "Op3rat0r!", "role": "user"})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	assert.Contains(t, created.Body.String(), `"role":"user"`)

	dup := s.do(http.MethodPost, "/api/v1/users", admin, map[string]string{"username": "ops", "password": "Op3rat0r!", "role": "user"})
	assert.Equal(t, http.StatusConflict, dup.Code)

	weak := s.do(http.MethodPost, "/api/v1/users", admin, map[string]string{"username": "ops2", "password": "weak"})
	assert.Equal(t, http.StatusBadRequest, weak.Code)

	ops := s.login("ops", "Op3rat0r!")
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/users", ops, nil).Code)

	del := s.do(http.MethodDelete, "/api/v1/users/ops", admin, nil)
	assert.Equal(t, http.StatusNoContent, del.Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/auth/me", ops, nil).Code)

	self := s.do(http.MethodDelete, "/api/v1/users/admin", admin, nil)
	assert.Equal(t, http.StatusBadRequest, self.Code)

	users, err := s.users.GetUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAPI_ChangePassword(t *testing.T) {
	s := newTestServer(t)
	viewer := s.login("viewer", userPassword)

	other := s.do(http.MethodPost, "/api/v1/users/admin/password", viewer,
		map[string]string{"oldPassword": adminPassword, "newPassword": "N3w!password"})
	assert.Equal(t, http.StatusForbidden, other.Code)

	wrongOld := s.do(http.MethodPost, "/api/v1/users/viewer/password", viewer,
		map[string]string{"oldPassword": "nope-nope", "newPassword": "N3w!password"})
	assert.Equal(t, http.StatusBadRequest, wrongOld.Code)

	ok := s.do(http.MethodPost, "/api/v1/users/viewer/password", viewer,
		map[string]string{"oldPassword": userPassword, "newPassword": "N3w!password"})
	require.Equal(t, http.StatusNoContent, ok.Code, ok.Body.String())

	// старые сессии закрыты, новый пароль работает
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/auth/me", viewer, nil).Code)
	s.login("viewer", "N3w!password")

	admin := s.login("admin", adminPassword)
	missing := s.do(http.MethodPost, "/api/v1/users/ghost/password", admin,
		map[string]string{"oldPassword": "x", "newPassword": "N3w!password"})
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestAPI_TamperedStoreIsServerError(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)

	raw := []byte(`{"iv":"00","encryptedData":"00","authTag":"00"}`)
	require.NoError(t, os.WriteFile(s.store.Path(), raw, credfile.FileMode))

	list := s.do(http.MethodGet, "/api/v1/users", admin, nil)
	assert.Equal(t, http.StatusInternalServerError, list.Code)
	assert.NotContains(t, list.Body.String(), "integrity")

	login := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": adminPassword})
	assert.Equal(t, http.StatusInternalServerError, login.Code)

	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodGet, "/api/v1/health", "", nil).Code)
}

func TestAPI_Metrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}

func TestAPI_LoginRateLimitIgnoresForwardedHeaders(t *testing.T) {
	s := newTestServer(t)
	creds := map[string]string{"username": "ghost", "password": "whatever1"}

	limited := 0
	for i := 0; i < 150; i++ {
		h := http.Header{}
		h.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i%250))
		h.Set("X-Real-IP", fmt.Sprintf("203.0.113.%d", i%250))
		rec := s.doFrom("192.0.2.10:5000", h, http.MethodPost, "/api/v1/auth/login", "", creds)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	// 100 в запасе, пополнение раз в 1.2s
	assert.GreaterOrEqual(t, limited, 40)
}

func TestAPI_LoginRateLimitBehindTrustedProxy(t *testing.T) {
	s := newTestServer(t, func(d *Deps) {
		d.TrustedProxies = []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	})
	creds := map[string]string{"username": "ghost", "password": "whatever1"}

	from := func(client string) int {
		h := http.Header{}
		h.Set("X-Forwarded-For", client)
		return s.doFrom("10.0.0.2:5000", h, http.MethodPost, "/api/v1/auth/login", "", creds).Code
	}

	limited := 0
	for i := 0; i < 150; i++ {
		if from("198.51.100.1") == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.GreaterOrEqual(t, limited, 40)
	assert.Equal(t, http.StatusUnauthorized, from("198.51.100.2"))
}

func TestAPI_CreateUserDefaultsToUserRole(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)

	created := s.do(http.MethodPost, "/api/v1/users", admin, map[string]string{"username": "intern", "password": "Int3rn!pass"})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	assert.Contains(t, created.Body.String(), `"role":"user"`)

	intern := s.login("intern", "Int3rn!pass")
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/users", intern, nil).Code)
}
