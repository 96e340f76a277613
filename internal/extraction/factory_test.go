package extraction

import (
	"errors"
	"testing"

	"imgtext/internal/config"
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		backend string
		name    string
		model   string
	}{
		{config.BackendGemini, "gemini", "gemini-1.5-pro"},
		{config.BackendVision, "vision", "DOCUMENT_TEXT_DETECTION"},
		{config.BackendOpenAI, "openai", "gpt-4o"},
	}

	for _, tt := range tests {
		cfg := &config.Config{Backend: tt.backend, GeminiModel: "gemini-1.5-pro", OpenAIModel: "gpt-4o"}
		b, err := NewBackend(cfg)
		if err != nil {
			t.Fatalf("NewBackend(%q) failed: %v", tt.backend, err)
		}
		if b.Name() != tt.name || b.Model() != tt.model {
			t.Errorf("NewBackend(%q) = %s/%s, want %s/%s", tt.backend, b.Name(), b.Model(), tt.name, tt.model)
		}
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := NewBackend(&config.Config{Backend: "tesseract"})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestNewServiceFromConfig(t *testing.T) {
	svc, err := NewServiceFromConfig(&config.Config{Backend: config.BackendGemini, ImageMaxDimension: 1024})
	if err != nil {
		t.Fatalf("NewServiceFromConfig failed: %v", err)
	}
	if svc.Backend().Name() != "gemini" {
		t.Errorf("expected gemini backend, got %q", svc.Backend().Name())
	}
	if svc.maxDimension != 1024 {
		t.Errorf("expected max dimension 1024, got %d", svc.maxDimension)
	}
}
