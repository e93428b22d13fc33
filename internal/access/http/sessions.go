package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/service"
	"github.com/botforge/botforge/pkg/httpx"
	"github.com/botforge/botforge/pkg/slogx"
)

// SessionsHandler handles the session lifecycle endpoints.
type SessionsHandler struct {
	SessionService *service.SessionService

	// InternalToken guards session creation, which is called by the login
	// flow before any credential exists. Empty disables the route.
	InternalToken string
}

// HandleCreate handles POST /v1/sessions
//
//	@Summary		Create Session
//	@Description	Opens a session for an identity the login collaborator has already authenticated.
//	@Description	Requires the internal service token; not callable by end clients.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			X-Internal-Token	header		string					true	"Internal service token"
//	@Param			request				body		CreateSessionRequest	true	"Session creation request"
//	@Success		201					{object}	CreateSessionResponse	"session, refresh credential, access token"
//	@Failure		400					{object}	ErrorResponse			"error, error_description"
//	@Failure		401					{object}	ErrorResponse			"error, error_description"
//	@Failure		500					{object}	ErrorResponse			"error, error_description"
//	@Router			/v1/sessions [post].
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if !h.internalTokenOK(r) {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated",
			"missing or invalid internal service token")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.IdentityID) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"identity_id is required")
		return
	}

	identity := domain.Identity{
		ID:       req.IdentityID,
		Role:     domain.Role(req.Role),
		IsActive: true,
	}
	device := domain.DeviceInfo{
		DeviceType:        domain.DeviceType(req.DeviceType),
		DeviceFingerprint: req.DeviceFingerprint,
		ClientAgent:       req.ClientAgent,
		SourceAddress:     req.SourceAddress,
		ApproxLocation:    req.ApproxLocation,
	}

	created, err := h.SessionService.Create(ctx, identity, device)
	if err != nil {
		log.Error("failed to create session", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to create session")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, CreateSessionResponse{
		Session:           created.Session,
		RefreshCredential: created.RefreshCredential,
		AccessToken:       created.AccessToken,
		TokenType:         "Bearer",
		ExpiresAt:         created.AccessExpiresAt,
	})
}

// HandleRefresh handles POST /v1/sessions/refresh
//
//	@Summary		Refresh Access Credential
//	@Description	Redeems an opaque refresh credential for a new short-lived access token.
//	@Description	The token carries the role recorded when the session was created.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RefreshRequest	true	"Refresh request"
//	@Success		200		{object}	RefreshResponse	"session_id, access token"
//	@Failure		400		{object}	ErrorResponse	"error, error_description"
//	@Failure		401		{object}	ErrorResponse	"error, error_description"
//	@Failure		500		{object}	ErrorResponse	"error, error_description"
//	@Router			/v1/sessions/refresh [post].
func (h *SessionsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"Invalid JSON in request body")
		return
	}
	if req.RefreshCredential == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"refresh_credential is required")
		return
	}

	refreshed, err := h.SessionService.Refresh(ctx, req.RefreshCredential)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_refresh_credential",
				"refresh credential is unknown or its session is no longer live")
			return
		}
		log.Error("failed to refresh session", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to refresh session")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, RefreshResponse{
		SessionID:   refreshed.SessionID,
		AccessToken: refreshed.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   refreshed.AccessExpiresAt,
	})
}

// HandleList handles GET /v1/sessions
//
//	@Summary		List Sessions
//	@Description	Returns the caller's sessions, newest first.
//	@Tags			Sessions
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ListSessionsResponse	"sessions"
//	@Failure		401	{object}	ErrorResponse			"error, error_description"
//	@Failure		500	{object}	ErrorResponse			"error, error_description"
//	@Router			/v1/sessions [get].
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sessions, err := h.SessionService.ListSessions(ctx, httpx.IdentityIDFromContext(ctx))
	if err != nil {
		log.Error("failed to list sessions", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to list sessions")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ListSessionsResponse{Sessions: sessions})
}

// HandleRevoke handles DELETE /v1/sessions/{id}
//
//	@Summary		Revoke Session
//	@Description	Terminates a session. Idempotent; revoking an already-terminal session succeeds.
//	@Tags			Sessions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"revoked"
//	@Failure		401	{object}	ErrorResponse	"error, error_description"
//	@Failure		403	{object}	ErrorResponse	"error, error_description"
//	@Failure		404	{object}	ErrorResponse	"error, error_description"
//	@Failure		500	{object}	ErrorResponse	"error, error_description"
//	@Router			/v1/sessions/{id} [delete].
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	if !h.callerOwnsSession(w, r, id) {
		return
	}

	if err := h.SessionService.Revoke(ctx, id, "revoked_by_owner"); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "session does not exist")
			return
		}
		log.Error("failed to revoke session", "session_id", id, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to revoke session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleFlag handles POST /v1/sessions/{id}/flag
//
//	@Summary		Flag Session Suspicious
//	@Description	Marks a session suspicious and records a security alert. High and critical
//	@Description	severities also block the session, atomically with the alert.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"Session id"
//	@Param			request	body		FlagSessionRequest	true	"Flag request"
//	@Success		200		{object}	FlagSessionResponse	"alert"
//	@Failure		400		{object}	ErrorResponse		"error, error_description"
//	@Failure		401		{object}	ErrorResponse		"error, error_description"
//	@Failure		403		{object}	ErrorResponse		"error, error_description"
//	@Failure		404		{object}	ErrorResponse		"error, error_description"
//	@Failure		500		{object}	ErrorResponse		"error, error_description"
//	@Router			/v1/sessions/{id}/flag [post].
func (h *SessionsHandler) HandleFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	var req FlagSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.AlertType) == "" || strings.TrimSpace(req.Title) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"alert_type and title are required")
		return
	}

	severity := domain.AlertSeverity(req.Severity)
	switch severity {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical:
	default:
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"severity must be one of low, medium, high, critical")
		return
	}

	alert, err := h.SessionService.FlagSuspicious(ctx, id, service.FlagInput{
		AlertType:     req.AlertType,
		Severity:      severity,
		Title:         req.Title,
		Description:   req.Description,
		SourceAddress: r.Header.Get("X-Forwarded-For"),
		Metadata:      req.Metadata,
	})
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "session does not exist")
			return
		}
		log.Error("failed to flag session", "session_id", id, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to flag session")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, FlagSessionResponse{Alert: alert})
}

// HandleActivity handles GET /v1/sessions/{id}/activity
//
//	@Summary		List Session Activity
//	@Description	Returns a session's recent activity rows, newest first.
//	@Tags			Sessions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string					true	"Session id"
//	@Param			limit	query		int						false	"Max rows (default 100)"
//	@Success		200		{object}	ListActivityResponse	"activities"
//	@Failure		401		{object}	ErrorResponse			"error, error_description"
//	@Failure		403		{object}	ErrorResponse			"error, error_description"
//	@Failure		404		{object}	ErrorResponse			"error, error_description"
//	@Failure		500		{object}	ErrorResponse			"error, error_description"
//	@Router			/v1/sessions/{id}/activity [get].
func (h *SessionsHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	if !h.callerOwnsSession(w, r, id) {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	activities, err := h.SessionService.ListActivity(ctx, id, limit)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "session does not exist")
			return
		}
		log.Error("failed to list session activity", "session_id", id, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to list session activity")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ListActivityResponse{Activities: activities})
}

// callerOwnsSession enforces that non-admin callers only act on their own
// sessions. Writes the error response itself when the check fails.
func (h *SessionsHandler) callerOwnsSession(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	ctx := r.Context()

	if httpx.IdentityRoleFromContext(ctx) == string(domain.RoleAdmin) {
		return true
	}

	sess, err := h.SessionService.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		// Let the handler produce its own not-found or internal error.
		return true
	}
	if sess.IdentityID != httpx.IdentityIDFromContext(ctx) {
		httpx.WriteError(w, http.StatusForbidden, "forbidden",
			"session belongs to a different identity")
		return false
	}
	return true
}

func (h *SessionsHandler) internalTokenOK(r *http.Request) bool {
	if h.InternalToken == "" {
		return false
	}
	got := r.Header.Get("X-Internal-Token")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.InternalToken)) == 1
}
