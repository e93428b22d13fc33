package http

import (
	"time"

	"github.com/botforge/botforge/internal/access/domain"
)

// ErrorResponse is the wire shape of every error payload.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// CreateSessionRequest opens a session for an identity the login flow has
// already authenticated.
type CreateSessionRequest struct {
	IdentityID        string `json:"identity_id"`
	Role              string `json:"role"`
	DeviceType        string `json:"device_type,omitempty"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
	ClientAgent       string `json:"client_agent,omitempty"`
	SourceAddress     string `json:"source_address,omitempty"`
	ApproxLocation    string `json:"approx_location,omitempty"`
}

type CreateSessionResponse struct {
	Session           domain.Session `json:"session"`
	RefreshCredential string         `json:"refresh_credential"`
	AccessToken       string         `json:"access_token"`
	TokenType         string         `json:"token_type"`
	ExpiresAt         time.Time      `json:"expires_at"`
}

type RefreshRequest struct {
	RefreshCredential string `json:"refresh_credential"`
}

type RefreshResponse struct {
	SessionID   string    `json:"session_id"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ListSessionsResponse struct {
	Sessions []domain.Session `json:"sessions"`
}

type FlagSessionRequest struct {
	AlertType   string         `json:"alert_type"`
	Severity    string         `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type FlagSessionResponse struct {
	Alert domain.SecurityAlert `json:"alert"`
}

type ListActivityResponse struct {
	Activities []domain.SessionActivity `json:"activities"`
}

type ListAlertsResponse struct {
	Alerts []domain.SecurityAlert `json:"alerts"`
}

type ResolveAlertResponse struct {
	Alert domain.SecurityAlert `json:"alert"`
}

type ScorePasswordRequest struct {
	Password   string   `json:"password"`
	UserInputs []string `json:"user_inputs,omitempty"`
}

type GeneratePasswordRequest struct {
	Length int `json:"length,omitempty"`
}

type GeneratePasswordResponse struct {
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	Password   string   `json:"password"`
	UserInputs []string `json:"user_inputs,omitempty"`
}

// PolicyViolationResponse carries the strength report on a 422 rejection.
type PolicyViolationResponse struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description"`
	Score            int      `json:"score"`
	Suggestions      []string `json:"suggestions,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
