package biometric

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-3-flash-preview"

// resultSchema forces the model into the verdict shape so parsing never
// depends on prompt compliance alone.
var resultSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"success":       {Type: genai.TypeBoolean},
		"score":         {Type: genai.TypeNumber},
		"livenessScore": {Type: genai.TypeNumber},
		"explanation":   {Type: genai.TypeString},
	},
	Required: []string{"success", "score", "livenessScore", "explanation"},
}

type GeminiVerifier struct {
	client *genai.Client
}

func NewGeminiVerifier(ctx context.Context, apiKey string) (*GeminiVerifier, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiVerifier{client: client}, nil
}

func (v *GeminiVerifier) Name() string {
	return geminiModel
}

func (v *GeminiVerifier) Verify(ctx context.Context, capture, reference []byte) (*Result, error) {
	enrollment := len(reference) == 0

	parts := []*genai.Part{
		{Text: buildTaskPrompt(enrollment)},
		{Text: "Image 1 (Live Capture):"},
		{InlineData: &genai.Blob{Data: capture, MIMEType: "image/jpeg"}},
	}
	if !enrollment {
		parts = append(parts,
			&genai.Part{Text: "Image 2 (Registered Reference):"},
			&genai.Part{InlineData: &genai.Blob{Data: reference, MIMEType: "image/jpeg"}},
		)
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    resultSchema,
	}

	result, err := v.client.Models.GenerateContent(ctx, geminiModel, contents, config)
	if err != nil {
		return failClosed(err, isRateLimited(err)), nil
	}

	content := result.Text()
	if content == "" {
		return failClosed(errors.New("empty response"), false), nil
	}

	res, err := parseResult(content)
	if err != nil {
		return failClosed(err, false), nil
	}
	return res, nil
}

func (v *GeminiVerifier) GenerateCode(ctx context.Context, recipient string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: buildOTPPrompt(recipient)}},
		},
	}

	result, err := v.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	content := result.Text()
	if content == "" {
		return "", errors.New("no response from Gemini")
	}
	return sanitizeCode(content), nil
}
