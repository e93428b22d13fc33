package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/botforge/botforge/internal/access/service"
	"github.com/botforge/botforge/pkg/httpx"
	"github.com/botforge/botforge/pkg/slogx"
)

// PasswordHandler handles password policy endpoints.
type PasswordHandler struct {
	PasswordService *service.PasswordService
}

// HandleScore handles POST /v1/password/score
//
//	@Summary		Score Password
//	@Description	Evaluates a candidate password against the strength policy. Stateless;
//	@Description	used by registration and password-change forms for live feedback.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ScorePasswordRequest	true	"Candidate password and context strings"
//	@Success		200		{object}	passwordx.Report		"strength report"
//	@Failure		400		{object}	ErrorResponse			"error, error_description"
//	@Router			/v1/password/score [post].
func (h *PasswordHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	var req ScorePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"Invalid JSON in request body")
		return
	}
	if req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"password is required")
		return
	}

	report := h.PasswordService.Score(req.Password, req.UserInputs)
	httpx.WriteJSON(w, http.StatusOK, report)
}

// HandleGenerate handles POST /v1/password/generate
//
//	@Summary		Generate Password
//	@Description	Produces a random password satisfying every required character class.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GeneratePasswordRequest		false	"Desired length (default policy minimum)"
//	@Success		200		{object}	GeneratePasswordResponse	"password"
//	@Failure		400		{object}	ErrorResponse				"error, error_description"
//	@Failure		500		{object}	ErrorResponse				"error, error_description"
//	@Router			/v1/password/generate [post].
func (h *PasswordHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GeneratePasswordRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // empty body means defaults
	}

	password, err := h.PasswordService.Generate(req.Length)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	httpx.WriteJSON(w, http.StatusOK, GeneratePasswordResponse{Password: password})
}

// HandleChange handles POST /v1/password/change
//
//	@Summary		Change Password
//	@Description	Validates the new password against the strength policy and the reuse window,
//	@Description	then records its hash in the history atomically.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	ChangePasswordRequest	true	"New password"
//	@Success		204		"changed"
//	@Failure		400		{object}	ErrorResponse			"error, error_description"
//	@Failure		401		{object}	ErrorResponse			"error, error_description"
//	@Failure		422		{object}	PolicyViolationResponse	"strength report on rejection"
//	@Failure		500		{object}	ErrorResponse			"error, error_description"
//	@Router			/v1/password/change [post].
func (h *PasswordHandler) HandleChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"Invalid JSON in request body")
		return
	}
	if req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"password is required")
		return
	}

	err := h.PasswordService.Change(ctx, service.ChangeInput{
		IdentityID:    httpx.IdentityIDFromContext(ctx),
		Password:      req.Password,
		UserInputs:    req.UserInputs,
		ChangedByUser: true,
		SourceAddress: r.Header.Get("X-Forwarded-For"),
		ClientAgent:   r.UserAgent(),
	})
	if err != nil {
		var pve *service.PolicyViolationError
		switch {
		case errors.As(err, &pve):
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, PolicyViolationResponse{
				Error:            "policy_violation",
				ErrorDescription: pve.Error(),
				Score:            pve.Report.Score,
				Suggestions:      pve.Report.Suggestions,
				Warnings:         pve.Report.Warnings,
			})
		case errors.Is(err, service.ErrPasswordReused):
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, PolicyViolationResponse{
				Error:            "policy_violation",
				ErrorDescription: "password was used recently and may not be reused",
			})
		default:
			log.Error("failed to change password", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error",
				"Failed to change password")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
