package extraction

import (
	"context"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no OpenAI model is configured.
const DefaultOpenAIModel = "gpt-4o"

// OpenAIBackend implements Backend using an OpenAI-compatible chat completion
// endpoint with an inline data URL image part.
type OpenAIBackend struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIBackend creates an OpenAI backend. An empty baseURL uses the public API.
func NewOpenAIBackend(model, baseURL string, httpClient *http.Client) *OpenAIBackend {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIBackend{
		model:      model,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Name implements Backend.
func (o *OpenAIBackend) Name() string { return "openai" }

// Model implements Backend.
func (o *OpenAIBackend) Model() string { return o.model }

// Generate sends the prompt and image in one user message.
func (o *OpenAIBackend) Generate(ctx context.Context, payload *Payload, credential string) (string, error) {
	const op = "OpenAIBackend.Generate"

	cfg := openai.DefaultConfig(credential)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: payload.Prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:" + payload.MimeType + ";base64," + payload.Base64(),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", upstreamError(op, err)
	}

	if len(resp.Choices) == 0 {
		return "", NewExtractionError(op, ErrInvalidResponse, "no choices in response")
	}
	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", NewExtractionError(op, ErrInvalidResponse, "response has no text")
	}

	return text, nil
}
