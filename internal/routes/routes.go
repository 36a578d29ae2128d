package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hearthshare/hearth-api/internal/handlers"
)

// NewRouter sets up the API routes
func NewRouter(invite *handlers.InvitationHandler, verify *handlers.VerificationHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Invitation lifecycle
	router.HandleFunc("/api/invitations", invite.ListByInviter).Methods(http.MethodGet)
	router.HandleFunc("/api/invitations/bulk", invite.CreateBulk).Methods(http.MethodPost)
	router.HandleFunc("/api/invitations/bulk/extend", invite.BulkExtend).Methods(http.MethodPost)
	router.HandleFunc("/api/invitations/bulk/expire", invite.BulkExpire).Methods(http.MethodPost)
	router.HandleFunc("/api/invitations/expiry-summary", invite.ExpirySummary).Methods(http.MethodGet)
	router.HandleFunc("/api/invitations/expiring", invite.ExpiringSoon).Methods(http.MethodGet)
	router.HandleFunc("/api/invitations/{id}", invite.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/api/invitations/{id}/cancel", invite.Cancel).Methods(http.MethodPost)
	router.HandleFunc("/api/invitations/{id}/resend", invite.Resend).Methods(http.MethodPost)
	router.HandleFunc("/api/invitations/{id}/extend", invite.Extend).Methods(http.MethodPost)
	router.HandleFunc("/api/invites/{token}", invite.Preview).Methods(http.MethodGet)
	router.HandleFunc("/api/invites/{token}/accept", invite.Accept).Methods(http.MethodPost)

	// Contact-address verification
	router.HandleFunc("/api/verification/send", verify.SendCode).Methods(http.MethodPost)
	router.HandleFunc("/api/verification/verify", verify.VerifyCode).Methods(http.MethodPost)

	return router
}
