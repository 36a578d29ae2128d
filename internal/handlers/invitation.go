package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/hearthshare/hearth-api/internal/invitations"
	"github.com/hearthshare/hearth-api/internal/models"
	"github.com/hearthshare/hearth-api/internal/repository"
)

type InvitationHandler struct {
	coordinator *invitations.Coordinator
	acceptor    *invitations.Acceptor
	expiry      *invitations.ExpiryManager
	sm          *invitations.StateMachine
	repo        repository.InvitationRepository
	logger      zerolog.Logger
}

func NewInvitationHandler(
	coordinator *invitations.Coordinator,
	acceptor *invitations.Acceptor,
	expiry *invitations.ExpiryManager,
	sm *invitations.StateMachine,
	repo repository.InvitationRepository,
	logger zerolog.Logger,
) *InvitationHandler {
	return &InvitationHandler{
		coordinator: coordinator,
		acceptor:    acceptor,
		expiry:      expiry,
		sm:          sm,
		repo:        repo,
		logger:      logger.With().Str("component", "invitation_handler").Logger(),
	}
}

// reasonStatus maps expected business outcomes to HTTP statuses.
func reasonStatus(reason invitations.Reason) int {
	switch reason {
	case invitations.ReasonNotFound:
		return http.StatusNotFound
	case invitations.ReasonExpired, invitations.ReasonDeletedInvitation:
		return http.StatusGone
	case invitations.ReasonInvalidStatus, invitations.ReasonUserExists, invitations.ReasonPendingExists:
		return http.StatusConflict
	case invitations.ReasonNotAuthorized:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeReason(w http.ResponseWriter, reason invitations.Reason) {
	writeJSON(w, reasonStatus(reason), map[string]string{"reason": string(reason)})
}

type bulkInviteRequest struct {
	Emails    []string `json:"emails"`
	Role      string   `json:"role"`
	Message   string   `json:"message"`
	OrgName   string   `json:"org_name"`
	InvitedBy string   `json:"invited_by"`
}

// CreateBulk issues invitations for a batch of addresses.
func (h *InvitationHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var payload bulkInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(payload.Role)))
	if check := h.coordinator.ValidateRequest(payload.Emails, role); !check.OK {
		writeReason(w, check.Reason)
		return
	}

	result, err := h.coordinator.ProcessBulkInvitations(payload.Emails, payload.InvitedBy, role, payload.Message, payload.OrgName)
	if err != nil {
		h.logger.Error().Err(err).Msg("bulk invitation processing aborted")
		http.Error(w, "failed to process invitations", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"result":  result,
		"summary": h.coordinator.Summary(result),
	})
}

// Preview resolves a token to the invitation and its lifecycle summary.
func (h *InvitationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	tokenStr := strings.TrimSpace(mux.Vars(r)["token"])
	if tokenStr == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	inv, summary, err := h.acceptor.Preview(tokenStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "invitation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load invitation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"invitation": inv,
		"summary":    summary,
	})
}

// Accept consumes a token and creates the member account.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	tokenStr := strings.TrimSpace(mux.Vars(r)["token"])
	if tokenStr == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	var payload struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	transition, err := h.acceptor.AcceptByToken(tokenStr, strings.TrimSpace(payload.Password))
	if err != nil {
		http.Error(w, "failed to accept invitation", http.StatusInternalServerError)
		return
	}
	if !transition.OK {
		writeReason(w, transition.Reason)
		return
	}

	writeJSON(w, http.StatusOK, transition)
}

// Cancel cancels a pending invitation by id.
func (h *InvitationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadByID(w, r)
	if !ok {
		return
	}

	transition, err := h.sm.Cancel(inv)
	if err != nil {
		http.Error(w, "failed to cancel invitation", http.StatusInternalServerError)
		return
	}
	if !transition.OK {
		writeReason(w, transition.Reason)
		return
	}

	writeJSON(w, http.StatusOK, transition)
}

// Resend reissues a pending invitation with a fresh token and deadline.
func (h *InvitationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadByID(w, r)
	if !ok {
		return
	}

	transition, err := h.coordinator.ResendInvitation(inv)
	if err != nil {
		http.Error(w, "failed to resend invitation", http.StatusInternalServerError)
		return
	}
	if !transition.OK {
		writeReason(w, transition.Reason)
		return
	}

	writeJSON(w, http.StatusOK, transition)
}

type extendRequest struct {
	Days      int    `json:"days"`
	Requester string `json:"requester"`
}

// Extend pushes a pending invitation's deadline forward.
func (h *InvitationHandler) Extend(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadByID(w, r)
	if !ok {
		return
	}

	var payload extendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	transition, err := h.expiry.Extend(inv, payload.Days, payload.Requester)
	if err != nil {
		http.Error(w, "failed to extend invitation", http.StatusInternalServerError)
		return
	}
	if !transition.OK {
		writeReason(w, transition.Reason)
		return
	}

	writeJSON(w, http.StatusOK, transition)
}

type bulkExtendRequest struct {
	IDs       []string `json:"ids"`
	Days      int      `json:"days"`
	Requester string   `json:"requester"`
}

// BulkExtend extends a set of invitations, isolating per-item failures.
func (h *InvitationHandler) BulkExtend(w http.ResponseWriter, r *http.Request) {
	var payload bulkExtendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	result, err := h.expiry.BulkExtend(payload.IDs, payload.Days, payload.Requester)
	if err != nil {
		http.Error(w, "failed to extend invitations", http.StatusInternalServerError)
		return
	}
	if !result.OK {
		writeReason(w, result.Reason)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// BulkExpire expires every pending invitation among the supplied ids.
func (h *InvitationHandler) BulkExpire(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	result, err := h.coordinator.BulkExpire(payload.IDs)
	if err != nil {
		http.Error(w, "failed to expire invitations", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListByInviter lists the invitations created by one identity.
func (h *InvitationHandler) ListByInviter(w http.ResponseWriter, r *http.Request) {
	invitedBy := strings.TrimSpace(r.URL.Query().Get("invited_by"))
	if invitedBy == "" {
		http.Error(w, "invited_by is required", http.StatusBadRequest)
		return
	}

	list, err := h.repo.ListByInviter(invitedBy)
	if err != nil {
		http.Error(w, "failed to list invitations", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Invitation{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Delete soft-deletes an invitation. A deleted invitation accepts no further
// transitions but keeps its token reserved.
func (h *InvitationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		http.Error(w, "invitation id is required", http.StatusBadRequest)
		return
	}

	if err := h.repo.SoftDelete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "invitation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete invitation", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExpirySummary reports pending invitations bucketed by remaining lifetime.
func (h *InvitationHandler) ExpirySummary(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.expiry.ExpirySummary()
	if err != nil {
		http.Error(w, "failed to compute expiry summary", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// ExpiringSoon lists pending invitations whose deadline falls within the
// requested window.
func (h *InvitationHandler) ExpiringSoon(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "days must be an integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	list, err := h.expiry.ExpiringSoon(days)
	if err != nil {
		http.Error(w, "failed to list expiring invitations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *InvitationHandler) loadByID(w http.ResponseWriter, r *http.Request) (models.Invitation, bool) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		http.Error(w, "invitation id is required", http.StatusBadRequest)
		return models.Invitation{}, false
	}

	inv, err := h.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "invitation not found", http.StatusNotFound)
			return models.Invitation{}, false
		}
		http.Error(w, "failed to load invitation", http.StatusInternalServerError)
		return models.Invitation{}, false
	}
	return inv, true
}
