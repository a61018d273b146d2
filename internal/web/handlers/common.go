package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/secureface/secureface/internal/authflow"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondFlowError maps flow errors onto HTTP statuses. Every flow error is
// a user-facing condition, never a panic path.
func respondFlowError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, authflow.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, authflow.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, authflow.ErrInvalidProfile):
		status = http.StatusBadRequest
	case errors.Is(err, authflow.ErrRateLimited), errors.Is(err, authflow.ErrResendNotAllowed):
		status = http.StatusTooManyRequests
	case errors.Is(err, authflow.ErrConfiguration):
		status = http.StatusServiceUnavailable
	case errors.Is(err, authflow.ErrBiometricMismatch), errors.Is(err, authflow.ErrOTPInvalid):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, authflow.ErrBusy), errors.Is(err, authflow.ErrInvalidState):
		status = http.StatusConflict
	}
	respondError(w, status, err.Error())
}

// decodeSample turns a base64 (optionally data-URL) image field into raw
// bytes and rejects anything that is not an image.
func decodeSample(field string) ([]byte, error) {
	s := field
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, errors.New("malformed data URL")
		}
		s = s[i+1:]
	}

	data, err := base64Decode(s)
	if err != nil {
		return nil, errors.New("image must be base64 encoded")
	}
	if len(data) == 0 {
		return nil, errors.New("image is empty")
	}

	switch ct := http.DetectContentType(data); ct {
	case "image/jpeg", "image/png":
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported image type %s", ct)
	}
}

func base64Decode(s string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	// Browsers occasionally strip the padding.
	return base64.RawStdEncoding.DecodeString(s)
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
