package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/botforge/botforge/internal/access/audit"
	"github.com/botforge/botforge/internal/access/guard"
	accesshttp "github.com/botforge/botforge/internal/access/http"
	"github.com/botforge/botforge/internal/access/service"
	"github.com/botforge/botforge/internal/access/store/drivers/sqlite"
	"github.com/botforge/botforge/pkg/cryptox"
	"github.com/botforge/botforge/pkg/idx"
	"github.com/botforge/botforge/pkg/jwtx"
	"github.com/botforge/botforge/pkg/passwordx"

	"github.com/stretchr/testify/require"
)

/*
 * Full-stack handler tests: a real router, interceptor, services and an
 * in-memory SQLite store behind an httptest server. Only the network edge
 * differs from production.
 */

const internalToken = "test-internal-token-12345"

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "access-http-test")
	if err != nil {
		os.Exit(1)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testEnv struct {
	srv   *httptest.Server
	store *sqlite.Store
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	logger := slog.Default()

	keys, err := jwtx.NewEdDSAKeyPair(idx.New().String(), "access-test")
	require.NoError(t, err)

	sessions := &service.SessionService{
		Store:      st,
		Signer:     keys,
		Issuer:     "access-test",
		AccessTTL:  15 * time.Minute,
		SessionTTL: 24 * time.Hour,
	}
	passwords := &service.PasswordService{
		Store:  st,
		Scorer: passwordx.NewScorer(passwordx.DefaultPolicy(), nil),
	}
	alerts := &service.AlertService{Store: st}

	recorder := audit.NewRecorder(st, logger, 64)
	recorder.Start()
	t.Cleanup(recorder.Stop)

	interceptor := &guard.Interceptor{
		Maps: guard.NewMapProvider(guard.NewPermissionMap([]guard.Entry{
			{Method: "GET", Path: "/v1/sessions", Permission: "sessions:read"},
			{Method: "DELETE", Path: "/v1/sessions/{id}", Permission: "sessions:write"},
			{Method: "POST", Path: "/v1/sessions/{id}/flag", Permission: "sessions:admin"},
			{Method: "GET", Path: "/v1/sessions/{id}/activity", Permission: "sessions:read"},
			{Method: "GET", Path: "/v1/alerts", Permission: "alerts:read"},
			{Method: "POST", Path: "/v1/alerts/{id}/resolve", Permission: "alerts:write"},
			{Method: "POST", Path: "/v1/password/change", Permission: "password:write"},
		}, []string{"/livez", "/readyz", "/swagger/"})),
		Verifier: &guard.JWTVerifier{Tokens: keys},
		Sessions: sessions,
		Checker:  guard.DefaultRoleChecker(),
		Audit:    recorder,
	}

	router := accesshttp.NewRouter(interceptor, internalToken, "test", st, logger)
	router.SessionService = sessions
	router.PasswordService = passwords
	router.AlertService = alerts
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: st}
}

// doJSON issues a request with an optional JSON body and bearer token and
// decodes the response body into out when out is non-nil.
func (e *testEnv) doJSON(t *testing.T, method, path, bearer string, body, out any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// createSession provisions a session through the internal endpoint, the way
// the login collaborator does.
func (e *testEnv) createSession(t *testing.T, identityID, role string) accesshttp.CreateSessionResponse {
	t.Helper()

	body, err := json.Marshal(accesshttp.CreateSessionRequest{
		IdentityID:  identityID,
		Role:        role,
		DeviceType:  "desktop",
		ClientAgent: "test-agent/1.0",
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/v1/sessions", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Token", internalToken)

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created accesshttp.CreateSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.AccessToken)
	require.NotEmpty(t, created.RefreshCredential)
	require.Equal(t, "Bearer", created.TokenType)
	return created
}
