package biometric

import (
	"context"
	"errors"
	"testing"

	"github.com/secureface/secureface/internal/config"
)

func TestParseResult(t *testing.T) {
	res, err := parseResult(`{"success":true,"score":0.91,"livenessScore":0.87,"explanation":"match"}`)
	if err != nil {
		t.Fatalf("parseResult() error = %v", err)
	}
	if !res.Success {
		t.Error("Success = false, want true")
	}
	if res.MatchScore != 0.91 {
		t.Errorf("MatchScore = %v, want 0.91", res.MatchScore)
	}
	if res.LivenessScore != 0.87 {
		t.Errorf("LivenessScore = %v, want 0.87", res.LivenessScore)
	}
	if res.Explanation != "match" {
		t.Errorf("Explanation = %q", res.Explanation)
	}
}

func TestParseResult_MissingFieldsFailClosed(t *testing.T) {
	res, err := parseResult(`{"success":true}`)
	if err != nil {
		t.Fatalf("parseResult() error = %v", err)
	}
	if res.MatchScore != 0 || res.LivenessScore != 0 {
		t.Errorf("missing scores should default to 0, got %v / %v", res.MatchScore, res.LivenessScore)
	}
}

func TestParseResult_Invalid(t *testing.T) {
	if _, err := parseResult("not json"); err == nil {
		t.Error("parseResult() on garbage should fail")
	}
}

func TestSanitizeCode(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"123456", "123456"},
		{"Your code is: 123456.", "123456"},
		{"\"001234\"\n", "001234"},
		{"12345678", "123456"},
		{"12 34 56", "123456"},
		{"no digits here", ""},
	}

	for _, tt := range tests {
		if got := sanitizeCode(tt.raw); got != tt.want {
			t.Errorf("sanitizeCode(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFailClosed(t *testing.T) {
	res := failClosed(errors.New("connection refused"), false)
	if res.Success {
		t.Error("transport failure must not produce a pass")
	}
	if res.RateLimited {
		t.Error("RateLimited = true for a plain error")
	}

	limited := failClosed(errors.New("status 429"), true)
	if !limited.RateLimited {
		t.Error("RateLimited = false, want true")
	}
	if limited.Explanation == "" {
		t.Error("rate limited result should carry an explanation")
	}
}

func TestIsRateLimited(t *testing.T) {
	if !isRateLimited(errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")) {
		t.Error("429 error not detected")
	}
	if isRateLimited(errors.New("connection refused")) {
		t.Error("plain error classified as rate limited")
	}
	if isRateLimited(nil) {
		t.Error("nil error classified as rate limited")
	}
}

func TestNewFromConfig_Unconfigured(t *testing.T) {
	cfg := &config.Config{}
	if _, err := NewFromConfig(context.Background(), cfg); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("NewFromConfig() error = %v, want ErrNotConfigured", err)
	}
}

func TestDisabled(t *testing.T) {
	var v Disabled

	if _, err := v.Verify(context.Background(), []byte{0xff}, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Verify() error = %v, want ErrNotConfigured", err)
	}
	if _, err := v.GenerateCode(context.Background(), "a@b.c"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("GenerateCode() error = %v, want ErrNotConfigured", err)
	}
}
