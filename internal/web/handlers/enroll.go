package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/secureface/secureface/internal/authflow"
	"github.com/secureface/secureface/internal/web/middleware"
)

// EnrollHandler drives the enrollment flow over HTTP. The flow instance
// lives in the browser session between the profile and face steps.
type EnrollHandler struct {
	deps     authflow.Deps
	sessions *middleware.SessionManager
}

func NewEnrollHandler(deps authflow.Deps, sm *middleware.SessionManager) *EnrollHandler {
	return &EnrollHandler{deps: deps, sessions: sm}
}

type profileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

type enrollResponse struct {
	Step    authflow.EnrollmentStep `json:"step"`
	Message string                  `json:"message,omitempty"`
}

// Profile starts a fresh enrollment flow with the submitted profile data.
func (h *EnrollHandler) Profile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	session, err := h.sessions.Ensure(w, r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	flow := session.StartEnrollment(h.deps)
	if err := flow.SubmitProfile(r.Context(), authflow.Profile{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		PIN:   req.PIN,
	}); err != nil {
		respondFlowError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, enrollResponse{Step: flow.Step()})
}

type faceRequest struct {
	Image string `json:"image"`
}

// Face submits one capture sample for the liveness check.
func (h *EnrollHandler) Face(w http.ResponseWriter, r *http.Request) {
	var req faceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	session, err := h.sessions.Ensure(w, r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	flow := session.Enrollment()
	if flow == nil {
		respondError(w, http.StatusConflict, "no enrollment in progress")
		return
	}

	sample, err := decodeSample(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := flow.SubmitCapture(r.Context(), sample); err != nil {
		respondFlowError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, enrollResponse{Step: flow.Step(), Message: flow.Message()})
}
