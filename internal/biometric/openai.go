package biometric

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const chatModel = openai.ChatModelGPT4_1Mini

type OpenAIVerifier struct {
	client *openai.Client
}

func NewOpenAIVerifier(apiKey string) *OpenAIVerifier {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIVerifier{client: &client}
}

func (v *OpenAIVerifier) Name() string {
	return chatModel
}

func (v *OpenAIVerifier) Verify(ctx context.Context, capture, reference []byte) (*Result, error) {
	enrollment := len(reference) == 0

	userParts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(buildTaskPrompt(enrollment)),
		openai.TextContentPart("Image 1 (Live Capture):"),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    dataURL(capture),
			Detail: "low",
		}),
	}
	if !enrollment {
		userParts = append(userParts,
			openai.TextContentPart("Image 2 (Registered Reference):"),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL:    dataURL(reference),
				Detail: "low",
			}),
		)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(systemPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: userParts,
				},
			},
		},
	}

	resp, err := v.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    chatModel,
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		MaxTokens: openai.Int(300),
	})
	if err != nil {
		return failClosed(err, isRateLimited(err)), nil
	}

	if len(resp.Choices) == 0 {
		return failClosed(errors.New("no choices in response"), false), nil
	}

	res, err := parseResult(resp.Choices[0].Message.Content)
	if err != nil {
		return failClosed(err, false), nil
	}
	return res, nil
}

func (v *OpenAIVerifier) GenerateCode(ctx context.Context, recipient string) (string, error) {
	resp, err := v.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(buildOTPPrompt(recipient)),
					},
				},
			},
		},
		MaxTokens: openai.Int(20),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return sanitizeCode(resp.Choices[0].Message.Content), nil
}

func dataURL(image []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
}
