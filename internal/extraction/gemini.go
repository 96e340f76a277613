package extraction

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the model every Gemini request is addressed to.
const DefaultGeminiModel = "gemini-1.5-pro"

// GeminiBackend implements Backend using the Gemini generateContent endpoint.
type GeminiBackend struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiBackend creates a Gemini backend. An empty baseURL uses the public
// Gemini API; a nil httpClient uses the SDK default.
func NewGeminiBackend(model, baseURL string, httpClient *http.Client) *GeminiBackend {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiBackend{
		model:      model,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Name implements Backend.
func (g *GeminiBackend) Name() string { return "gemini" }

// Model implements Backend.
func (g *GeminiBackend) Model() string { return g.model }

// Generate sends the image and prompt in a single generateContent call.
// A client is built per call since the API key arrives with the request.
func (g *GeminiBackend) Generate(ctx context.Context, payload *Payload, credential string) (string, error) {
	const op = "GeminiBackend.Generate"

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      credential,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  g.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL},
	})
	if err != nil {
		return "", upstreamError(op, err)
	}

	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: payload.MimeType, Data: payload.Data}},
				{Text: payload.Prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", upstreamError(op, err)
	}

	return geminiText(resp)
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	const op = "geminiText"

	if resp == nil {
		return "", NewExtractionError(op, ErrInvalidResponse, "empty response")
	}
	if len(resp.Candidates) == 0 {
		details := "no candidates in response"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			details = fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", NewExtractionError(op, ErrInvalidResponse, details)
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		details := "candidate has no content"
		if candidate != nil && candidate.FinishReason != "" {
			details = fmt.Sprintf("candidate has no content (finish reason: %s)", candidate.FinishReason)
		}
		return "", NewExtractionError(op, ErrInvalidResponse, details)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return "", NewExtractionError(op, ErrInvalidResponse, "response has no text")
	}

	return text.String(), nil
}
