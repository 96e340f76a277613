package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"imgtext/internal/config"
	"imgtext/internal/extraction"
	"imgtext/internal/logger"
	"imgtext/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [image-file]",
	Short: "Extract text from an image file as Markdown",
	Long: `Send a local image to the configured backend and print the extracted
Markdown.

Accepted formats: png, jpg, jpeg, gif, bmp, webp (up to 20MB).

Required environment variables:
  GEMINI_API_KEY - Gemini API key (or VISION_API_KEY / OPENAI_API_KEY
                   for the vision and openai backends)`,
	Example: `  # Print Markdown to stdout
  imgtext extract receipt.jpg

  # Save to extracted_text.md
  imgtext extract receipt.jpg -o extracted_text.md

  # Output as JSON with metadata
  imgtext extract scan.png --json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractOutput represents the JSON output structure when --json flag is used
type ExtractOutput struct {
	Text               string    `json:"text"`
	Backend            string    `json:"backend"`
	Model              string    `json:"model"`
	ImageWidth         int       `json:"image_width"`
	ImageHeight        int       `json:"image_height"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("json", false, "Output as JSON")
	extractCmd.Flags().Int("timeout", 0, "Processing timeout in seconds (default: EXTRACT_TIMEOUT_SECONDS)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	imagePath := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		log.Error().Err(err).Msg("API key not configured")
		return fmt.Errorf("%w: %v", extraction.ErrMissingCredential, err)
	}

	timeout := cfg.ExtractTimeout
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs) * time.Second
	}

	log.Info().
		Str("file", imagePath).
		Str("output", outputPath).
		Str("backend", cfg.Backend).
		Bool("json", jsonOutput).
		Dur("timeout", timeout).
		Msg("Starting extraction")

	fileInfo, err := validateImageFile(imagePath, log)
	if err != nil {
		return err
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	img, err := extraction.DecodeImage(f, imagePath)
	if err != nil {
		log.Error().Err(err).Str("file", imagePath).Msg("Failed to decode image")
		return fmt.Errorf("error processing image: %w", err)
	}

	svc, err := extraction.NewServiceFromConfig(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	result, err := svc.Extract(ctx, img, cfg.APIKey())
	if err != nil {
		return handleExtractError(err, log)
	}

	return outputResult(cmd.OutOrStdout(), result, fileInfo, outputPath, jsonOutput, log)
}

// validateImageFile checks that the file exists, is a regular file with an
// accepted extension and fits the size limit.
func validateImageFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image file not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied accessing image file: %s", path)
		}
		return nil, fmt.Errorf("error accessing image file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}

	if !extraction.IsAllowedExtension(path) {
		log.Error().
			Str("file", path).
			Strs("allowed", extraction.AllowedExtensions).
			Msg("Unsupported file extension")
		return nil, fmt.Errorf("%w: %s", extraction.ErrUnsupportedFormat, path)
	}

	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("image file is empty: %s", path)
	}

	if fileInfo.Size() > extraction.MaxImageBytes {
		log.Error().
			Str("file", path).
			Int64("size", fileInfo.Size()).
			Int64("max_size", extraction.MaxImageBytes).
			Msg("Image file exceeds maximum size limit")
		return nil, fmt.Errorf("%w: %d bytes", extraction.ErrImageTooLarge, fileInfo.Size())
	}

	return fileInfo, nil
}

// handleExtractError turns extraction failures into user-facing messages.
// Upstream messages are passed through, not interpreted.
func handleExtractError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Extraction failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("extraction timed out. Try increasing --timeout: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("extraction was canceled")
	case errors.Is(err, extraction.ErrInvalidResponse):
		return fmt.Errorf("invalid response from upstream: %w", err)
	default:
		return fmt.Errorf("error extracting text: %w", err)
	}
}

// outputResult writes the result to outputPath, or to stdout when no path is
// given. Markdown is written exactly as returned by the backend.
func outputResult(stdout io.Writer, result *models.ExtractionResult, fileInfo os.FileInfo, outputPath string, jsonOutput bool, log zerolog.Logger) error {
	var data []byte

	if jsonOutput {
		out := ExtractOutput{
			Text:               result.Text,
			Backend:            result.Backend,
			Model:              result.Model,
			ImageWidth:         result.ImageWidth,
			ImageHeight:        result.ImageHeight,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingDuration.String(),
			FileName:           filepath.Base(fileInfo.Name()),
			FileSize:           fileInfo.Size(),
		}

		var err error
		data, err = json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		data = append(data, '\n')
	} else {
		data = []byte(result.Text)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(data)).
			Msg("Extracted text written to file")
		return nil
	}

	if _, err := stdout.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
