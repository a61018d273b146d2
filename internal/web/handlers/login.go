package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/secureface/secureface/internal/authflow"
	"github.com/secureface/secureface/internal/web/middleware"
)

// LoginHandler drives the login flow over HTTP.
type LoginHandler struct {
	deps     authflow.Deps
	sessions *middleware.SessionManager
}

func NewLoginHandler(deps authflow.Deps, sm *middleware.SessionManager) *LoginHandler {
	return &LoginHandler{deps: deps, sessions: sm}
}

type identifyRequest struct {
	Email string `json:"email"`
}

// Identify starts a fresh login flow for the claimed email.
func (h *LoginHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	session, err := h.sessions.Ensure(w, r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	flow := session.StartLogin(h.deps)
	if err := flow.Identify(r.Context(), req.Email); err != nil {
		respondFlowError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, flow.Snapshot())
}

// activeLogin fetches the session's login flow or reports the conflict.
func (h *LoginHandler) activeLogin(w http.ResponseWriter, r *http.Request) *authflow.Login {
	session, err := h.sessions.Ensure(w, r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return nil
	}
	flow := session.Login()
	if flow == nil {
		respondError(w, http.StatusConflict, "no login in progress")
		return nil
	}
	return flow
}

type scanRequest struct {
	Image string `json:"image"`
}

// Scan submits one capture sample for identity verification. A verified
// face issues an OTP; a failed dispatch still advances the flow, with the
// warning carried in the snapshot message.
func (h *LoginHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	flow := h.activeLogin(w, r)
	if flow == nil {
		return
	}

	sample, err := decodeSample(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := flow.SubmitScan(r.Context(), sample); err != nil && !errors.Is(err, authflow.ErrDeliveryFailure) {
		respondFlowError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, flow.Snapshot())
}

type otpRequest struct {
	Code string `json:"code"`
}

// OTP consumes the submitted code.
func (h *LoginHandler) OTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	flow := h.activeLogin(w, r)
	if flow == nil {
		return
	}

	if err := flow.SubmitOTP(r.Context(), req.Code); err != nil {
		respondFlowError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, flow.Snapshot())
}

// Resend re-issues the pending code when the gate allows it.
func (h *LoginHandler) Resend(w http.ResponseWriter, r *http.Request) {
	flow := h.activeLogin(w, r)
	if flow == nil {
		return
	}

	if err := flow.Resend(r.Context()); err != nil && !errors.Is(err, authflow.ErrDeliveryFailure) {
		respondFlowError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, flow.Snapshot())
}
