package handlers

import (
	"net/http"
	"time"

	"github.com/secureface/secureface/internal/authflow"
	"github.com/secureface/secureface/internal/web/middleware"
)

// AuthHandler exposes session status, the signed-in profile and logout.
type AuthHandler struct {
	sessions *middleware.SessionManager
}

func NewAuthHandler(sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{sessions: sm}
}

// Status reports the login flow state for this session. A visitor without
// a session or flow is simply unauthenticated, never an error.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetSessionFromRequest(r)
	if session == nil || session.Login() == nil {
		respondJSON(w, http.StatusOK, authflow.Snapshot{Step: "none"})
		return
	}
	respondJSON(w, http.StatusOK, session.Login().Snapshot())
}

// Logout drops the server-side session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetSessionFromRequest(r); session != nil {
		h.sessions.DeleteSession(session.ID)
	}
	h.sessions.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type meResponse struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// Me returns the authenticated user's profile. Guarded by RequireAuth, so
// the current user is always present here.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user := session.Login().CurrentUser()
	respondJSON(w, http.StatusOK, meResponse{
		Name:       user.Name,
		Email:      user.Email,
		Phone:      user.Phone,
		EnrolledAt: user.EnrolledAt,
	})
}
