package http

import (
	"errors"
	"net/http"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/service"
	"github.com/botforge/botforge/pkg/httpx"
	"github.com/botforge/botforge/pkg/slogx"
)

// AlertsHandler handles security alert listing and resolution.
type AlertsHandler struct {
	AlertService *service.AlertService
}

// HandleList handles GET /v1/alerts
//
//	@Summary		List Security Alerts
//	@Description	Returns the caller's alerts, newest first. Admins may query another
//	@Description	identity with ?identity_id=. Pass ?include_resolved=true for history.
//	@Tags			Alerts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			identity_id			query		string				false	"Identity to query (admin only)"
//	@Param			include_resolved	query		bool				false	"Include resolved alerts"
//	@Success		200					{object}	ListAlertsResponse	"alerts"
//	@Failure		401					{object}	ErrorResponse		"error, error_description"
//	@Failure		403					{object}	ErrorResponse		"error, error_description"
//	@Failure		500					{object}	ErrorResponse		"error, error_description"
//	@Router			/v1/alerts [get].
func (h *AlertsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	identityID := httpx.IdentityIDFromContext(ctx)
	if q := r.URL.Query().Get("identity_id"); q != "" && q != identityID {
		if httpx.IdentityRoleFromContext(ctx) != string(domain.RoleAdmin) {
			httpx.WriteError(w, http.StatusForbidden, "forbidden",
				"only admins may query another identity's alerts")
			return
		}
		identityID = q
	}
	includeResolved := r.URL.Query().Get("include_resolved") == "true"

	alerts, err := h.AlertService.List(ctx, identityID, includeResolved)
	if err != nil {
		log.Error("failed to list alerts", "identity_id", identityID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Failed to list alerts")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ListAlertsResponse{Alerts: alerts})
}

// HandleResolve handles POST /v1/alerts/{id}/resolve
//
//	@Summary		Resolve Security Alert
//	@Description	Marks an alert resolved. Exactly once; the first resolver wins and later
//	@Description	attempts get 409.
//	@Tags			Alerts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string					true	"Alert id"
//	@Success		200	{object}	ResolveAlertResponse	"alert"
//	@Failure		401	{object}	ErrorResponse			"error, error_description"
//	@Failure		403	{object}	ErrorResponse			"error, error_description"
//	@Failure		404	{object}	ErrorResponse			"error, error_description"
//	@Failure		409	{object}	ErrorResponse			"error, error_description"
//	@Failure		500	{object}	ErrorResponse			"error, error_description"
//	@Router			/v1/alerts/{id}/resolve [post].
func (h *AlertsHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	id := r.PathValue("id")

	alert, err := h.AlertService.Resolve(ctx, id, httpx.IdentityIDFromContext(ctx))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlertNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "alert does not exist")
		case errors.Is(err, service.ErrAlertAlreadyResolved):
			httpx.WriteError(w, http.StatusConflict, "already_resolved",
				"alert was already resolved")
		default:
			log.Error("failed to resolve alert", "alert_id", id, "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error",
				"Failed to resolve alert")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ResolveAlertResponse{Alert: alert})
}
