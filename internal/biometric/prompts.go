package biometric

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed prompts/system.txt
var systemPrompt string

//go:embed prompts/enroll_task.txt
var enrollTaskPrompt string

//go:embed prompts/verify_task.txt
var verifyTaskPrompt string

//go:embed prompts/otp.txt
var otpPrompt string

func buildTaskPrompt(enrollment bool) string {
	if enrollment {
		return enrollTaskPrompt
	}
	return verifyTaskPrompt
}

func buildOTPPrompt(recipient string) string {
	return fmt.Sprintf(otpPrompt, recipient)
}

// parseResult decodes the model's JSON verdict. Missing fields default to
// zero values, which fail the thresholds downstream.
func parseResult(content string) (*Result, error) {
	var res Result
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		return nil, fmt.Errorf("failed to parse verification JSON: %w (response: %s)", err, content)
	}
	return &res, nil
}

// sanitizeCode strips everything but digits and truncates to six characters.
// Models occasionally wrap the code in prose or quotes.
func sanitizeCode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == 6 {
				break
			}
		}
	}
	return b.String()
}

// failClosed converts a backend failure into a negative result. Verification
// transport errors never produce a pass and never bubble up as flow errors.
func failClosed(err error, rateLimited bool) *Result {
	explanation := "Biometric engine connection error. Please try again."
	if rateLimited {
		explanation = "Verification service is busy. Please wait a moment and try again."
	}
	return &Result{
		Success:     false,
		Explanation: explanation,
		RateLimited: rateLimited,
	}
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
