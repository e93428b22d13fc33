package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/service"
	"github.com/botforge/botforge/pkg/httpx"
	"github.com/botforge/botforge/pkg/idx"
	"github.com/botforge/botforge/pkg/slogx"
)

// Auditor records one activity row per authorization decision. Record is
// best-effort and queued; RecordSync must be durable before the response
// leaves, used for denials.
type Auditor interface {
	Record(activity domain.SessionActivity)
	RecordSync(ctx context.Context, activity domain.SessionActivity) error
}

// Interceptor is the request filter in front of every non-exempt route. It
// resolves the caller, checks session liveness and the required permission,
// and emits exactly one audit record per request.
type Interceptor struct {
	Maps     *MapProvider
	Verifier CredentialVerifier
	Sessions SessionToucher
	Checker  PermissionChecker
	Audit    Auditor
}

// denial is a resolved deny outcome ready to serialize.
type denial struct {
	status int
	kind   string
	detail string
}

// Middleware returns the handler wrapper form of the interceptor.
func (i *Interceptor) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			i.serve(w, r, next)
		})
	}
}

func (i *Interceptor) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	start := time.Now()
	m := i.Maps.Load()

	// Exempt prefixes bypass authorization entirely: no identity, no audit.
	if m.Exempt(r.URL.Path) {
		next.ServeHTTP(w, r)
		return
	}

	principal, permission, resourceType, resourceID, deny := i.authorize(r, m)
	if deny != nil {
		i.auditDeny(r, principal, permission, *deny, start)
		if deny.status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", `Bearer realm="botforge", error="`+deny.kind+`"`)
		}
		httpx.WriteError(w, deny.status, deny.kind, deny.detail)
		return
	}

	ctx := httpx.ContextWithPrincipal(r.Context(),
		principal.Identity.ID, string(principal.Identity.Role), principal.SessionID)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	next.ServeHTTP(rec, r.WithContext(ctx))

	i.Audit.Record(domain.SessionActivity{
		ID:            idx.New().String(),
		SessionID:     principal.SessionID,
		IdentityID:    principal.Identity.ID,
		ActivityType:  domain.ActivityRequest,
		Endpoint:      r.URL.Path,
		Method:        r.Method,
		Query:         r.URL.RawQuery,
		SourceAddress: sourceAddress(r),
		ClientAgent:   r.UserAgent(),
		Success:       rec.status < 400,
		StatusCode:    rec.status,
		DurationMS:    time.Since(start).Milliseconds(),
		Metadata:      auditMetadata(permission, resourceType, resourceID),
		Timestamp:     start,
	})
}

// authorize resolves the request to either a principal or a denial, never
// both. Internal failures resolve to a 500 denial, never to a silent allow.
func (i *Interceptor) authorize(
	r *http.Request,
	m *PermissionMap,
) (principal Principal, permission, resourceType string, resourceID int64, deny *denial) {
	ctx := r.Context()
	l := slogx.FromContext(ctx)

	bearer, ok := bearerToken(r)
	if !ok {
		return principal, "", "", 0, &denial{
			status: http.StatusUnauthorized,
			kind:   "unauthenticated",
			detail: "missing or malformed bearer credential",
		}
	}

	principal, err := i.Verifier.VerifyCredential(ctx, bearer)
	if err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			l.Info("credential verification failed", slog.Any("error", err))
		}
		return principal, "", "", 0, &denial{
			status: http.StatusUnauthorized,
			kind:   "unauthenticated",
			detail: "credential could not be verified",
		}
	}

	if err := i.Sessions.Touch(ctx, principal.SessionID); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotLive):
			return principal, "", "", 0, &denial{
				status: http.StatusUnauthorized,
				kind:   "session_not_live",
				detail: "session is expired, terminated or blocked",
			}
		case errors.Is(err, service.ErrSessionNotFound):
			return principal, "", "", 0, &denial{
				status: http.StatusUnauthorized,
				kind:   "unauthenticated",
				detail: "session does not exist",
			}
		default:
			l.Error("session liveness check failed",
				slog.String("session_id", principal.SessionID), slog.Any("error", err))
			return principal, "", "", 0, &denial{
				status: http.StatusInternalServerError,
				kind:   "authorization_failure",
				detail: "internal error during authorization",
			}
		}
	}

	// No map entry means no specific permission required: any authenticated
	// identity passes. Deliberate default; tighten by mapping the route.
	permission, mapped := m.Resolve(r.Method, r.URL.Path)
	if !mapped {
		return principal, "", "", 0, nil
	}

	resourceType, resourceID = InferResource(r.URL.Path)

	allowed, err := i.Checker.Check(ctx, principal, permission, resourceType, resourceID)
	if err != nil {
		l.Error("permission check failed",
			slog.String("permission", permission), slog.Any("error", err))
		return principal, permission, resourceType, resourceID, &denial{
			status: http.StatusInternalServerError,
			kind:   "authorization_failure",
			detail: "internal error during authorization",
		}
	}
	if !allowed {
		return principal, permission, resourceType, resourceID, &denial{
			status: http.StatusForbidden,
			kind:   "forbidden",
			detail: "missing permission " + permission,
		}
	}

	return principal, permission, resourceType, resourceID, nil
}

// auditDeny writes the denial record durably before the response is sent.
// A write failure is logged and never changes the outcome.
func (i *Interceptor) auditDeny(
	r *http.Request,
	principal Principal,
	permission string,
	d denial,
	start time.Time,
) {
	resourceType, resourceID := InferResource(r.URL.Path)
	err := i.Audit.RecordSync(r.Context(), domain.SessionActivity{
		ID:            idx.New().String(),
		SessionID:     principal.SessionID,
		IdentityID:    principal.Identity.ID,
		ActivityType:  domain.ActivityRequest,
		Endpoint:      r.URL.Path,
		Method:        r.Method,
		Query:         r.URL.RawQuery,
		SourceAddress: sourceAddress(r),
		ClientAgent:   r.UserAgent(),
		Success:       false,
		ErrorMessage:  d.detail,
		StatusCode:    d.status,
		DurationMS:    time.Since(start).Milliseconds(),
		Metadata:      auditMetadata(permission, resourceType, resourceID),
		Timestamp:     start,
	})
	if err != nil {
		slogx.FromContext(r.Context()).Error("audit write failed",
			slog.String("endpoint", r.URL.Path), slog.Any("error", err))
	}
}

func auditMetadata(permission, resourceType string, resourceID int64) map[string]any {
	if permission == "" && resourceType == "" {
		return nil
	}
	md := make(map[string]any, 3)
	if permission != "" {
		md["permission"] = permission
	}
	if resourceType != "" {
		md["resource_type"] = resourceType
		if resourceID != 0 {
			md["resource_id"] = resourceID
		}
	}
	return md
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func sourceAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

// statusRecorder captures the status the downstream handler wrote so the
// audit record carries the real outcome.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
