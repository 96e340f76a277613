// Package extraction turns an uploaded image into Markdown text using a
// remote vision-language model.
//
// The default backend is Google Gemini. An image is re-encoded as PNG,
// base64-encoded and sent inline together with a fixed instruction prompt.
// The text of the response is returned unmodified.
//
// Supported input formats:
//   - PNG, JPEG, GIF (standard library decoders)
//   - BMP, WEBP (golang.org/x/image decoders)
//
// Gemini API Limitations:
//   - Maximum inline request size: 20MB
//   - One image and one prompt per request
//   - Quota and safety filtering apply (reported as upstream errors)
//
// Implementation Details:
//   - Each call creates its own client with the caller's credential
//   - Nothing is cached or persisted between calls
//   - No retries: a failed call is a terminal outcome for that request
package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"imgtext/internal/logger"
	"imgtext/pkg/models"
)

// Prompt is the instruction sent alongside every image.
const Prompt = "Analyze the text in the provided image. Extract all readable content and present it in a structured Markdown format that is clear, concise, and well-organized."

// PNGMimeType is the MIME type of every image payload.
const PNGMimeType = "image/png"

// ImageInput is a decoded raster image plus the extension it was uploaded with.
type ImageInput struct {
	// Image is the decoded raster.
	Image image.Image

	// Ext is the lower-cased filename extension without the dot. It may be empty.
	Ext string

	// Format is the name reported by the decoder (png, jpeg, gif, bmp, webp).
	Format string
}

// Payload is what a Backend sends upstream.
type Payload struct {
	MimeType string
	Data     []byte // PNG bytes
	Prompt   string
}

// Base64 returns the standard base64 encoding of the payload data.
func (p *Payload) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// Backend submits a prepared payload to a remote model and returns its text.
type Backend interface {
	// Name returns the backend identifier (gemini, vision, openai).
	Name() string

	// Model returns the model or feature identifier sent upstream.
	Model() string

	// Generate performs exactly one outbound call.
	Generate(ctx context.Context, payload *Payload, credential string) (string, error)
}

// Extractor extracts Markdown from an image.
type Extractor interface {
	Extract(ctx context.Context, img *ImageInput, credential string) (*models.ExtractionResult, error)
}

// Service is the stateless extraction request handler.
type Service struct {
	backend      Backend
	maxDimension int
	log          zerolog.Logger
}

// NewService creates a Service for backend. A positive maxDimension bounds the
// longest side of the image before it is encoded; zero sends images as-is.
func NewService(backend Backend, maxDimension int) *Service {
	return &Service{
		backend:      backend,
		maxDimension: maxDimension,
		log:          logger.WithComponent("extraction"),
	}
}

// Backend returns the configured backend.
func (s *Service) Backend() Backend {
	return s.backend
}

// Extract re-encodes img as PNG and asks the backend to transcribe it.
func (s *Service) Extract(ctx context.Context, img *ImageInput, credential string) (*models.ExtractionResult, error) {
	const op = "Extract"
	startTime := time.Now()

	if strings.TrimSpace(credential) == "" {
		return nil, NewExtractionError(op, ErrMissingCredential, "credential is empty")
	}
	if img == nil || img.Image == nil {
		return nil, NewExtractionError(op, ErrImageDecode, "no image provided")
	}

	src := img.Image
	if s.maxDimension > 0 {
		src = Downscale(src, s.maxDimension)
	}

	pngBytes, err := EncodePNG(src)
	if err != nil {
		return nil, WrapExtractionError(op, err, "failed to encode image as PNG")
	}

	payload := &Payload{
		MimeType: PNGMimeType,
		Data:     pngBytes,
		Prompt:   Prompt,
	}

	bounds := src.Bounds()
	s.log.Debug().
		Str("backend", s.backend.Name()).
		Str("model", s.backend.Model()).
		Str("format", img.Format).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Int("png_bytes", len(pngBytes)).
		Msg("Sending image for extraction")

	text, err := s.backend.Generate(ctx, payload, credential)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("backend", s.backend.Name()).
			Dur("duration", time.Since(startTime)).
			Msg("Extraction failed")
		return nil, WrapExtractionError(op, err, fmt.Sprintf("%s backend", s.backend.Name()))
	}

	processedAt := time.Now()
	result := &models.ExtractionResult{
		Text:               text,
		Backend:            s.backend.Name(),
		Model:              s.backend.Model(),
		ImageWidth:         bounds.Dx(),
		ImageHeight:        bounds.Dy(),
		EncodedBytes:       len(pngBytes),
		ProcessedAt:        processedAt,
		ProcessingDuration: processedAt.Sub(startTime),
	}

	s.log.Info().
		Str("backend", result.Backend).
		Int("text_length", len(result.Text)).
		Dur("duration", result.ProcessingDuration).
		Msg("Extraction completed")

	return result, nil
}
