// Package biometric abstracts the external face verification capability.
// Backends are multimodal AI models; the package never inspects image
// content itself.
package biometric

import (
	"context"
	"errors"
	"fmt"

	"github.com/secureface/secureface/internal/config"
)

// ErrNotConfigured indicates no verification backend credentials are set.
// This is fatal for the current attempt and must be surfaced distinctly
// from a negative verification result.
var ErrNotConfigured = errors.New("biometric backend is not configured")

// Result is the verification outcome. A transport or parsing failure is
// reported as Success=false (fail closed), never as a silent pass.
type Result struct {
	Success       bool    `json:"success"`
	MatchScore    float64 `json:"score"`
	LivenessScore float64 `json:"livenessScore"`
	Explanation   string  `json:"explanation,omitempty"`
	RateLimited   bool    `json:"-"`
}

// Verifier checks a live capture sample, optionally against a stored
// reference. An empty reference means enrollment mode: liveness and quality
// only, no identity match.
type Verifier interface {
	Name() string
	Verify(ctx context.Context, capture, reference []byte) (*Result, error)
	// GenerateCode asks the backend for a one-time code. Callers must
	// validate the output and fall back to local generation.
	GenerateCode(ctx context.Context, recipient string) (string, error)
}

// NewFromConfig picks the first configured backend: Gemini, then OpenAI.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Verifier, error) {
	if cfg.Gemini.APIKey != "" {
		v, err := NewGeminiVerifier(ctx, cfg.Gemini.APIKey)
		if err != nil {
			return nil, fmt.Errorf("creating Gemini verifier: %w", err)
		}
		return v, nil
	}
	if cfg.OpenAI.Token != "" {
		return NewOpenAIVerifier(cfg.OpenAI.Token), nil
	}
	return nil, ErrNotConfigured
}

// Disabled is a Verifier placeholder used when no backend is configured.
// Every call fails with ErrNotConfigured so flows surface a configuration
// error instead of a biometric mismatch.
type Disabled struct{}

func (Disabled) Name() string { return "disabled" }

func (Disabled) Verify(ctx context.Context, capture, reference []byte) (*Result, error) {
	return nil, ErrNotConfigured
}

func (Disabled) GenerateCode(ctx context.Context, recipient string) (string, error) {
	return "", ErrNotConfigured
}
