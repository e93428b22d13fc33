package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/botforge/botforge/internal/access/guard"
	"github.com/botforge/botforge/internal/access/service"
	"github.com/botforge/botforge/internal/access/store"
	"github.com/botforge/botforge/pkg/httpx"
	"github.com/botforge/botforge/pkg/slogx"

	_ "github.com/botforge/botforge/api/access" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	interceptor   *guard.Interceptor
	internalToken string
	buildVersion  string
	startTime     time.Time
	logger        *slog.Logger

	store           store.Store
	SessionService  *service.SessionService
	PasswordService *service.PasswordService
	AlertService    *service.AlertService
}

func NewRouter(
	interceptor *guard.Interceptor,
	internalToken, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		interceptor:   interceptor,
		internalToken: internalToken,
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		store:         st,
		logger:        logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerAlerts()
	r.registerPassword()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			BotForge Access Service API
//	@version		0.1.0
//	@description	Access-control and session-security core for the BotForge chatbot platform:
//	@description	session lifecycle, permission resolution, password policy and audit records.
//	@description
//	@description				Access tokens are EdDSA-signed JWTs minted per session; refresh
//	@description				credentials are opaque and stored only by fingerprint.
//
//	@contact.name				BotForge Platform Team
//	@contact.url				https://github.com/botforge/botforge
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{
		SessionService: r.SessionService,
		InternalToken:  r.internalToken,
	}
	authorized := r.interceptor.Middleware()

	// POST /v1/sessions - strict rate limit by IP (login flow entry point,
	// guarded by the internal service token inside the handler)
	r.Mux.Handle("POST /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/sessions/refresh - strict rate limit by IP (possession of the
	// refresh credential is the authentication)
	r.Mux.Handle("POST /v1/sessions/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Authorized session management - lenient per-identity rate limits
	r.Mux.Handle("GET /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			authorized,
			httpx.RateLimitByIdentity(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			authorized,
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/sessions/{id}/flag",
		httpx.Chain(http.HandlerFunc(h.HandleFlag),
			authorized,
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/sessions/{id}/activity",
		httpx.Chain(http.HandlerFunc(h.HandleActivity),
			authorized,
			httpx.RateLimitByIdentity(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAlerts() {
	h := &AlertsHandler{AlertService: r.AlertService}
	authorized := r.interceptor.Middleware()

	r.Mux.Handle("GET /v1/alerts",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			authorized,
			httpx.RateLimitByIdentity(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/alerts/{id}/resolve",
		httpx.Chain(http.HandlerFunc(h.HandleResolve),
			authorized,
			httpx.RateLimitByIdentity(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{PasswordService: r.PasswordService}
	authorized := r.interceptor.Middleware()

	// Score and generate are stateless helpers for registration forms -
	// public but moderately rate limited by IP
	r.Mux.Handle("POST /v1/password/score",
		httpx.Chain(http.HandlerFunc(h.HandleScore),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/password/generate",
		httpx.Chain(http.HandlerFunc(h.HandleGenerate),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /v1/password/change - strict per-identity rate limit
	r.Mux.Handle("POST /v1/password/change",
		httpx.Chain(http.HandlerFunc(h.HandleChange),
			authorized,
			httpx.RateLimitByIdentity(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
