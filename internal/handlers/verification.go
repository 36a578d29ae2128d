package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hearthshare/hearth-api/internal/verification"
)

type VerificationHandler struct {
	verifier *verification.Service
	logger   zerolog.Logger
}

func NewVerificationHandler(verifier *verification.Service, logger zerolog.Logger) *VerificationHandler {
	return &VerificationHandler{
		verifier: verifier,
		logger:   logger.With().Str("component", "verification_handler").Logger(),
	}
}

// SendCode issues a one-time code for the given address and triggers its
// delivery. Identity keys are canonicalized to lower case at this boundary.
func (h *VerificationHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	result, err := h.verifier.IssueCode(email)
	if err != nil {
		h.logger.Error().Err(err).Msg("code issuance failed")
		http.Error(w, "failed to send verification code", http.StatusInternalServerError)
		return
	}
	if !result.OK {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"reason": string(result.Reason)})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// VerifyCode checks a submitted code and consumes it on success.
func (h *VerificationHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	code := strings.TrimSpace(payload.Code)
	if email == "" || code == "" {
		http.Error(w, "email and code are required", http.StatusBadRequest)
		return
	}

	result := h.verifier.VerifyCode(email, code)
	if !result.OK {
		status := http.StatusBadRequest
		if result.Reason == verification.ReasonCodeNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"reason": string(result.Reason)})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
