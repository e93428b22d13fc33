package guard_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/guard"
	"github.com/botforge/botforge/internal/access/service"
	"github.com/botforge/botforge/pkg/httpx"

	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	principal guard.Principal
	err       error
}

func (f *fakeVerifier) VerifyCredential(ctx context.Context, bearer string) (guard.Principal, error) {
	if f.err != nil {
		return guard.Principal{}, f.err
	}
	return f.principal, nil
}

type fakeToucher struct {
	err error
}

func (f *fakeToucher) Touch(ctx context.Context, sessionID string) error { return f.err }

type fakeChecker struct {
	allow bool
	err   error

	mu            sync.Mutex
	gotPermission string
	gotResource   string
	gotResourceID int64
	gotElevated   bool
	timesCalled   int
}

func (f *fakeChecker) Check(
	ctx context.Context,
	p guard.Principal,
	permission, resourceType string,
	resourceID int64,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotPermission = permission
	f.gotResource = resourceType
	f.gotResourceID = resourceID
	f.gotElevated = guard.Elevated(ctx)
	f.timesCalled++
	return f.allow, f.err
}

type fakeAuditor struct {
	mu    sync.Mutex
	async []domain.SessionActivity
	sync_ []domain.SessionActivity
}

func (f *fakeAuditor) Record(a domain.SessionActivity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.async = append(f.async, a)
}

func (f *fakeAuditor) RecordSync(ctx context.Context, a domain.SessionActivity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sync_ = append(f.sync_, a)
	return nil
}

func (f *fakeAuditor) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.async) + len(f.sync_)
}

func livePrincipal() guard.Principal {
	return guard.Principal{
		Identity:  domain.Identity{ID: "identity-1", Role: domain.RoleUser, IsActive: true},
		SessionID: "session-1",
	}
}

type interceptorFixture struct {
	interceptor *guard.Interceptor
	verifier    *fakeVerifier
	toucher     *fakeToucher
	checker     *fakeChecker
	audit       *fakeAuditor
	handled     *bool
	handler     http.Handler
}

func newFixture(t *testing.T) *interceptorFixture {
	t.Helper()

	f := &interceptorFixture{
		verifier: &fakeVerifier{principal: livePrincipal()},
		toucher:  &fakeToucher{},
		checker:  &fakeChecker{allow: true},
		audit:    &fakeAuditor{},
		handled:  new(bool),
	}
	f.interceptor = &guard.Interceptor{
		Maps: guard.NewMapProvider(guard.NewPermissionMap([]guard.Entry{
			{Method: "GET", Path: "/v1/chatbots/{id}", Permission: "chatbots:read"},
			{Method: "DELETE", Path: "/v1/chatbots/{id}", Permission: "chatbots:write"},
		}, []string{"/livez", "/docs"})),
		Verifier: f.verifier,
		Sessions: f.toucher,
		Checker:  f.checker,
		Audit:    f.audit,
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*f.handled = true
		// Downstream sees the principal the interceptor attached.
		w.Header().Set("X-Identity", httpx.IdentityIDFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	f.handler = f.interceptor.Middleware()(inner)
	return f
}

func (f *interceptorFixture) do(method, path string, authorized bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authorized {
		req.Header.Set("Authorization", "Bearer some-token")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func TestInterceptor_ExemptPathBypassesEverything(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rr := f.do("GET", "/docs/anything/below", false)

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, *f.handled)
	require.Empty(t, rr.Header().Get("X-Identity")) // no identity in context
	require.Zero(t, f.audit.total())
	require.Zero(t, f.checker.timesCalled)
}

func TestInterceptor_MissingCredential(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rr := f.do("GET", "/v1/chatbots/42", false)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.False(t, *f.handled)
	require.Contains(t, rr.Header().Get("WWW-Authenticate"), "unauthenticated")

	require.Len(t, f.audit.sync_, 1)
	require.False(t, f.audit.sync_[0].Success)
	require.Equal(t, http.StatusUnauthorized, f.audit.sync_[0].StatusCode)
	require.Equal(t, 1, f.audit.total())
}

func TestInterceptor_UnverifiableCredential(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.verifier.err = guard.ErrUnauthenticated

	rr := f.do("GET", "/v1/chatbots/42", true)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.False(t, *f.handled)
	require.Equal(t, 1, f.audit.total())
}

func TestInterceptor_SessionNotLive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.toucher.err = service.ErrSessionNotLive

	rr := f.do("GET", "/v1/chatbots/42", true)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "session_not_live")
	require.False(t, *f.handled)

	require.Len(t, f.audit.sync_, 1)
	require.False(t, f.audit.sync_[0].Success)
}

func TestInterceptor_ForbiddenCarriesPermissionName(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.checker.allow = false

	rr := f.do("DELETE", "/v1/chatbots/42", true)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "chatbots:write")
	require.False(t, *f.handled)

	// Exactly one audit record, written durably, marked failed.
	require.Len(t, f.audit.sync_, 1)
	require.Empty(t, f.audit.async)
	require.False(t, f.audit.sync_[0].Success)
	require.Equal(t, http.StatusForbidden, f.audit.sync_[0].StatusCode)
	require.Equal(t, "chatbots:write", f.audit.sync_[0].Metadata["permission"])

	// The denial record carries the inferred resource, same as an allow would.
	require.Equal(t, "chatbot", f.audit.sync_[0].Metadata["resource_type"])
	require.EqualValues(t, 42, f.audit.sync_[0].Metadata["resource_id"])
}

func TestInterceptor_AllowAttachesIdentityAndAudits(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rr := f.do("GET", "/v1/chatbots/42?fields=name", true)

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, *f.handled)
	require.Equal(t, "identity-1", rr.Header().Get("X-Identity"))

	// Checker received the inferred resource.
	require.Equal(t, "chatbots:read", f.checker.gotPermission)
	require.Equal(t, "chatbot", f.checker.gotResource)
	require.EqualValues(t, 42, f.checker.gotResourceID)
	require.False(t, f.checker.gotElevated)

	require.Len(t, f.audit.async, 1)
	require.Empty(t, f.audit.sync_)
	rec := f.audit.async[0]
	require.True(t, rec.Success)
	require.Equal(t, http.StatusOK, rec.StatusCode)
	require.Equal(t, "identity-1", rec.IdentityID)
	require.Equal(t, "session-1", rec.SessionID)
	require.Equal(t, "fields=name", rec.Query)
}

func TestInterceptor_UnmappedPathAllowsAnyAuthenticated(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rr := f.do("GET", "/v1/unmapped/route", true)

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, *f.handled)
	require.Zero(t, f.checker.timesCalled)
	require.Len(t, f.audit.async, 1)
}

func TestInterceptor_CheckerErrorIsInternalNeverAllow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.checker.err = errors.New("rules service down")

	rr := f.do("GET", "/v1/chatbots/42", true)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.False(t, *f.handled)

	require.Len(t, f.audit.sync_, 1)
	require.False(t, f.audit.sync_[0].Success)
	require.Equal(t, http.StatusInternalServerError, f.audit.sync_[0].StatusCode)
}

func TestInterceptor_AuditCapturesHandlerStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	handler := f.interceptor.Middleware()(failing)

	req := httptest.NewRequest("GET", "/v1/chatbots/42", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	require.Len(t, f.audit.async, 1)
	require.False(t, f.audit.async[0].Success)
	require.Equal(t, http.StatusConflict, f.audit.async[0].StatusCode)
}
