package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/flashboard/internal/logging"
	"github.com/dmitrijs2005/flashboard/internal/server/auth"
	"github.com/dmitrijs2005/flashboard/internal/server/config"
	"github.com/dmitrijs2005/flashboard/internal/server/metrics"
	"github.com/dmitrijs2005/flashboard/internal/server/rbac"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/memory"
	"github.com/dmitrijs2005/flashboard/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "Admin123"
)

type testAPI struct {
	t       *testing.T
	srv     *httptest.Server
	mem     *memory.Manager
	users   *services.UserService
	metrics *metrics.Metrics
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PasswordHashRounds = 1000

	mem := memory.NewManager()
	log := logging.NewNop()
	ts := services.NewTokenService(mem, auth.NewBearerCodec(cfg.SecretKey), cfg, log)
	us := services.NewUserService(mem, ts, cfg, log)
	m := metrics.New()

	ctx := context.Background()
	require.NoError(t, us.SeedRoles(ctx, rbac.DefaultRoles()))
	require.NoError(t, us.EnsureAdmin(ctx, "root", adminEmail, adminPassword, rbac.RoleAdmin))

	h := NewRouter(Deps{
		Users:   us,
		Tokens:  ts,
		Gate:    rbac.NewGate(rbac.NewPolicy(rbac.DefaultControl()), us),
		Metrics: m,
		Logger:  log,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &testAPI{t: t, srv: srv, mem: mem, users: us, metrics: m}
}

func (a *testAPI) do(method, path, bearer string, body any) (int, map[string]any) {
	a.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	require.NoError(a.t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (a *testAPI) scrape() string {
	a.t.Helper()
	resp, err := a.srv.Client().Get(a.srv.URL + "/metrics")
	require.NoError(a.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return string(b)
}

func (a *testAPI) login(email, password string) (access, refresh string) {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, code, body)
	return body["access_token"].(string), body["refresh_token"].(string)
}

// registerAndConfirm creates an active user through the API.
func (a *testAPI) registerAndConfirm(adminAccess, name, email, password string) {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/register", adminAccess, map[string]string{"name": name, "email": email, "password": password})
	require.Equal(a.t, http.StatusOK, code, body)
	token := body["activation_token"].(string)

	code, body = a.do(http.MethodPost, "/confirm", "", map[string]string{"email": email, "password": password, "token": token})
	require.Equal(a.t, http.StatusOK, code, body)
}

func TestLogin(t *testing.T) {
	a := newTestAPI(t)

	access, refresh := a.login(adminEmail, adminPassword)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.Contains(t, a.scrape(), `flashboard_auth_operations_total{op="login",result="ok"} 1`)

	tests := []struct {
		name string
		body any
		msg  string
	}{
		{"wrong password", map[string]string{"email": adminEmail, "password": "Wrong123"}, "Invalid username or password or inactive user"},
		{"unknown user", map[string]string{"email": "nobody@example.com", "password": adminPassword}, "Invalid username or password or inactive user"},
		{"malformed email", map[string]string{"email": "root", "password": adminPassword}, "Invalid username or password"},
		{"unknown field", map[string]string{"email": adminEmail, "password": adminPassword, "x": "y"}, "Invalid username or password"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := a.do(http.MethodPost, "/login", "", tc.body)
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Equal(t, tc.msg, body["message"])
		})
	}
}

func TestLogin_InactiveUserRefused(t *testing.T) {
	a := newTestAPI(t)
	access, _ := a.login(adminEmail, adminPassword)

	code, _ := a.do(http.MethodPost, "/register", access, map[string]string{"name": "bob", "email": "bob@example.com", "password": "Bob12345"})
	require.Equal(t, http.StatusOK, code)

	code, body := a.do(http.MethodPost, "/login", "", map[string]string{"email": "bob@example.com", "password": "Bob12345"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid username or password or inactive user", body["message"])
}

func TestLogout(t *testing.T) {
	a := newTestAPI(t)
	access, refresh := a.login(adminEmail, adminPassword)

	code, body := a.do(http.MethodGet, "/logout", access, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["message"])

	u, err := a.users.LoadUser(context.Background(), services.ByEmail(adminEmail))
	require.NoError(t, err)
	assert.False(t, u.Authenticated)

	code, body = a.do(http.MethodGet, "/logout", access, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Valid API Token required (invalid or expired token)", body["message"])

	// the paired access token is gone so the pair can no longer rotate
	code, _ = a.do(http.MethodPost, "/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestTokenRequired_Rejections(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{"no header", "", "Valid API Token required (Invalid header)"},
		{"single field", "abc", "Valid API Token required (Invalid header)"},
		{"garbage", "Bearer abc.def.ghi", "Valid API Token required (invalid token)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, a.srv.URL+"/logout", nil)
			require.NoError(t, err)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := a.srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body messageResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Equal(t, tc.msg, body.Message)
		})
	}
}

func TestRefresh_Rotates(t *testing.T) {
	a := newTestAPI(t)
	access, refresh := a.login(adminEmail, adminPassword)

	code, body := a.do(http.MethodPost, "/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, code, body)
	newAccess := body["access_token"].(string)
	newRefresh := body["refresh_token"].(string)
	assert.NotEqual(t, access, newAccess)
	assert.NotEqual(t, refresh, newRefresh)

	// the retired refresh token cannot be replayed
	code, body = a.do(http.MethodPost, "/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid or expired token", body["message"])

	code, _ = a.do(http.MethodGet, "/logout", access, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(http.MethodGet, "/logout", newAccess, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRefresh_BadInput(t *testing.T) {
	a := newTestAPI(t)

	code, body := a.do(http.MethodPost, "/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid refresh token", body["message"])

	code, body = a.do(http.MethodPost, "/refresh", "", map[string]string{"refresh_token": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid token", body["message"])
}

func TestRegister_RequiresAdmin(t *testing.T) {
	a := newTestAPI(t)
	adminAccess, _ := a.login(adminEmail, adminPassword)
	a.registerAndConfirm(adminAccess, "bob", "bob@example.com", "Bob12345")

	bobAccess, _ := a.login("bob@example.com", "Bob12345")
	code, body := a.do(http.MethodPost, "/register", bobAccess, map[string]string{"name": "eve", "email": "eve@example.com", "password": "Eve12345"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Permission denied", body["message"])

	code, _ = a.do(http.MethodPost, "/register", "", map[string]string{"name": "eve", "email": "eve@example.com", "password": "Eve12345"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRegister_Failures(t *testing.T) {
	a := newTestAPI(t)
	access, _ := a.login(adminEmail, adminPassword)
	before := a.mem.Counts()

	code, body := a.do(http.MethodPost, "/register", access, map[string]string{"name": "root", "email": "x@example.com", "password": "Abc12345"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "User name or email is already exist", body["message"])

	code, body = a.do(http.MethodPost, "/register", access, map[string]string{"name": "bob", "email": "bob@example.com", "password": "weak"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.True(t, strings.HasPrefix(body["message"].(string), "Password is not strong"))

	code, body = a.do(http.MethodPost, "/register", access, map[string]string{"name": "", "email": "bad", "password": "Abc12345"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation error", body["message"])
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")

	longEmail := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 52) + ".example.com"
	require.Len(t, longEmail, 129)
	code, body = a.do(http.MethodPost, "/register", access, map[string]string{"name": "carol", "email": longEmail, "password": "Abc12345"})
	assert.Equal(t, http.StatusBadRequest, code)
	errs = body["errors"].(map[string]any)
	assert.Equal(t, "the length must be between 1 and 128", errs["email"])

	after := a.mem.Counts()
	assert.Equal(t, before.Users, after.Users)
	assert.Equal(t, before.Grants, after.Grants)
}

func TestConfirm_Failures(t *testing.T) {
	a := newTestAPI(t)
	access, _ := a.login(adminEmail, adminPassword)

	code, body := a.do(http.MethodPost, "/register", access, map[string]string{"name": "bob", "email": "bob@example.com", "password": "Bob12345"})
	require.Equal(t, http.StatusOK, code)
	token := body["activation_token"].(string)

	code, body = a.do(http.MethodPost, "/confirm", "", map[string]string{"email": "bob@example.com", "password": "Wrong123", "token": token})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid username or password", body["message"])

	code, body = a.do(http.MethodPost, "/confirm", "", map[string]string{"email": "bob@example.com", "password": "Bob12345", "token": "bogus"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid activation token", body["message"])

	code, _ = a.do(http.MethodPost, "/confirm", "", map[string]string{"email": "bob@example.com", "password": "Bob12345", "token": token})
	require.Equal(t, http.StatusOK, code)

	code, body = a.do(http.MethodPost, "/confirm", "", map[string]string{"email": "bob@example.com", "password": "Bob12345", "token": token})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Used activation token", body["message"])
}

func TestHealthzAndMetrics(t *testing.T) {
	a := newTestAPI(t)

	code, body := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	resp, err := a.srv.Client().Get(a.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	a := newTestAPI(t)

	req, err := http.NewRequest(http.MethodGet, a.srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(headerRequestID, "req-42")
	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(headerRequestID))

	resp, err = a.srv.Client().Get(a.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get(headerRequestID), 36)
}

func TestLoginRecordsClientIP(t *testing.T) {
	a := newTestAPI(t)

	req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/login", strings.NewReader(`{"email":"`+adminEmail+`","password":"`+adminPassword+`"}`))
	require.NoError(t, err)
	req.Header.Set("X-Real-IP", "203.0.113.9")
	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, err := a.users.LoadUser(context.Background(), services.ByEmail(adminEmail))
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", u.CurrentLoginIP)
	assert.Equal(t, 1, u.LoginCount)
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"Bearer":         "",
		"Bearer abc":     "abc",
		"Bearer  abc  ":  "abc",
		"Token type xyz": "xyz",
	}
	for header, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", header)
		assert.Equal(t, want, bearerToken(r), header)
	}
}
