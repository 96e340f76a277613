package extraction

import (
	"fmt"

	"imgtext/internal/config"
)

// NewBackend creates the backend selected in cfg.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		return NewGeminiBackend(cfg.GeminiModel, cfg.GeminiEndpoint, nil), nil
	case config.BackendVision:
		return NewVisionBackend(), nil
	case config.BackendOpenAI:
		return NewOpenAIBackend(cfg.OpenAIModel, cfg.OpenAIBaseURL, nil), nil
	default:
		return nil, NewExtractionError("NewBackend", ErrUnknownBackend, fmt.Sprintf("backend: %q", cfg.Backend))
	}
}

// NewServiceFromConfig creates a Service using the backend and limits in cfg.
func NewServiceFromConfig(cfg *config.Config) (*Service, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewService(backend, cfg.ImageMaxDimension), nil
}
