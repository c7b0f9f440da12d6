package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/NordCoder/Quill/internal/services/api/httpx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMux(t *testing.T) (*http.ServeMux, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	mux := http.NewServeMux()
	NewServer(zap.NewNop(), env.uc).Routes(mux)
	return mux, env
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formReq(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHTTP_Scenario(t *testing.T) {
	mux, env := newTestMux(t)

	rec := do(t, mux, jsonReq(http.MethodPost, "/auth/register", `{"username":"alice","password":"pw123","email":"a@x.com"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, false, created["verified"])
	assert.NotContains(t, created, "password_hash")
	assert.NotContains(t, rec.Body.String(), "pw123")
	env.uc.Wait()

	rec = do(t, mux, formReq("/auth/login", url.Values{"username": {"alice"}, "password": {"pw123"}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tokens := decode[tokenResponse](t, rec)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "bearer", tokens.TokenType)

	rec = do(t, mux, withBearer(httptest.NewRequest(http.MethodGet, "/auth/me", nil), tokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["verified"])

	verifyURL := "/auth/verify?token=" + url.QueryEscape(env.verificationToken(t))
	rec = do(t, mux, httptest.NewRequest(http.MethodGet, verifyURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["verified"])

	rec = do(t, mux, withBearer(httptest.NewRequest(http.MethodGet, "/auth/me", nil), tokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["verified"])

	rec = do(t, mux, withBearer(httptest.NewRequest(http.MethodPost, "/auth/refresh", nil), tokens.RefreshToken))
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decode[tokenResponse](t, rec)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Empty(t, refreshed.RefreshToken)
}

func TestHTTP_LoginFailuresLookIdentical(t *testing.T) {
	mux, env := newTestMux(t)
	env.register(t, "alice", "pw123", "a@x.com")

	wrong := do(t, mux, formReq("/auth/login", url.Values{"username": {"alice"}, "password": {"bad"}}))
	unknown := do(t, mux, formReq("/auth/login", url.Values{"username": {"nobody"}, "password": {"pw123"}}))

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Equal(t, "Bearer", wrong.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "Incorrect username or password", decode[httpx.ErrorBody](t, wrong).Detail)
}

func TestHTTP_RegisterRejects(t *testing.T) {
	mux, env := newTestMux(t)
	env.register(t, "alice", "pw123", "a@x.com")

	cases := []struct {
		name string
		body string
	}{
		{"duplicate", `{"username":"alice","password":"x","email":"z@x.com"}`},
		{"bad email", `{"username":"bob","password":"x","email":"nope"}`},
		{"missing password", `{"username":"bob","email":"b@x.com"}`},
		{"unknown field", `{"username":"bob","password":"x","email":"b@x.com","admin":true}`},
		{"not json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, mux, jsonReq(http.MethodPost, "/auth/register", tc.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[httpx.ErrorBody](t, rec).Detail)
		})
	}
}

func TestHTTP_TokenKindsAreScoped(t *testing.T) {
	mux, env := newTestMux(t)
	env.register(t, "alice", "pw123", "a@x.com")
	pair, err := env.uc.Login(t.Context(), "alice", "pw123")
	require.NoError(t, err)

	rec := do(t, mux, withBearer(httptest.NewRequest(http.MethodGet, "/auth/me", nil), pair.RefreshToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Required access token", decode[httpx.ErrorBody](t, rec).Detail)

	rec = do(t, mux, withBearer(httptest.NewRequest(http.MethodPost, "/auth/refresh", nil), pair.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", decode[httpx.ErrorBody](t, rec).Detail)

	rec = do(t, mux, httptest.NewRequest(http.MethodGet, "/auth/verify?token="+pair.AccessToken, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid token", decode[httpx.ErrorBody](t, rec).Detail)

	rec = do(t, mux, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAccess(t *testing.T) {
	_, env := newTestMux(t)
	id := env.register(t, "alice", "pw123", "a@x.com")
	pair, err := env.uc.Login(t.Context(), "alice", "pw123")
	require.NoError(t, err)

	var seen int64
	h := RequireAccess(env.uc.ParseAccess)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromCtx(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := do(t, h, withBearer(httptest.NewRequest(http.MethodGet, "/", nil), pair.AccessToken))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, seen)

	rec = do(t, h, withBearer(httptest.NewRequest(http.MethodGet, "/", nil), pair.RefreshToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
