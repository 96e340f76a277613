package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

// geminiRequest mirrors the generateContent wire format.
type geminiRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MimeType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
}

func newTestGeminiBackend(serverURL string) *GeminiBackend {
	return NewGeminiBackend("", serverURL, nil)
}

func testPayload(t *testing.T) *Payload {
	t.Helper()
	data, err := EncodePNG(testImage(4, 4))
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	return &Payload{MimeType: PNGMimeType, Data: data, Prompt: Prompt}
}

func TestGeminiBackend_Defaults(t *testing.T) {
	b := NewGeminiBackend("", "", nil)
	if b.Name() != "gemini" {
		t.Errorf("expected 'gemini', got %q", b.Name())
	}
	if b.Model() != "gemini-1.5-pro" {
		t.Errorf("expected default model, got %q", b.Model())
	}
}

func TestGeminiBackend_Generate_Success(t *testing.T) {
	payload := testPayload(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/v1beta/models/gemini-1.5-pro:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Errorf("API key not sent with request")
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			return
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Errorf("expected one content with two parts, got %+v", req.Contents)
			return
		}
		image := req.Contents[0].Parts[0].InlineData
		if image == nil || image.MimeType != "image/png" || image.Data != payload.Base64() {
			t.Errorf("unexpected inline data %+v", image)
		}
		if req.Contents[0].Parts[1].Text != Prompt {
			t.Errorf("unexpected prompt %q", req.Contents[0].Parts[1].Text)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"# Invoice\n"},{"text":"Total: 42"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	text, err := newTestGeminiBackend(server.URL).Generate(context.Background(), payload, "test-key")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "# Invoice\nTotal: 42" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestGeminiBackend_Generate_InvalidResponse(t *testing.T) {
	bodies := map[string]string{
		"no candidates": `{}`,
		"blocked":       `{"promptFeedback":{"blockReason":"SAFETY"}}`,
		"no content":    `{"candidates":[{"finishReason":"SAFETY"}]}`,
		"no text":       `{"candidates":[{"content":{"role":"model","parts":[{}]}}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := newTestGeminiBackend(server.URL).Generate(context.Background(), testPayload(t), "test-key")
			if !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("expected ErrInvalidResponse, got %v", err)
			}
		})
	}
}

func TestGeminiBackend_Generate_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	_, err := newTestGeminiBackend(server.URL).Generate(context.Background(), testPayload(t), "bad-key")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("expected upstream message in error, got %q", err.Error())
	}
}

func TestGeminiBackend_Generate_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestGeminiBackend(url).Generate(context.Background(), testPayload(t), "test-key")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected transport message in error, got %q", err.Error())
	}
}

func TestGeminiText(t *testing.T) {
	if _, err := geminiText(nil); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("nil response: expected ErrInvalidResponse, got %v", err)
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "| a | b |"}}}},
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "ignored"}}}},
		},
	}
	text, err := geminiText(resp)
	if err != nil {
		t.Fatalf("geminiText failed: %v", err)
	}
	if text != "| a | b |" {
		t.Errorf("expected first candidate text, got %q", text)
	}

	blocked := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}
	_, err = geminiText(blocked)
	if !errors.Is(err, ErrInvalidResponse) || !strings.Contains(err.Error(), "SAFETY") {
		t.Errorf("blocked prompt: expected ErrInvalidResponse naming the reason, got %v", err)
	}
}
