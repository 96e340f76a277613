package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"imgtext/internal/extraction"
	"imgtext/internal/logger"
	"imgtext/pkg/models"
)

const (
	msgMissingKey  = "Please enter your API key to proceed."
	msgMissingFile = "Please upload an image file to proceed."
)

type pageData struct {
	AskForKey bool
	Provider  string
	Accept    string
	Warning   string
	Error     string
	Result    *models.ExtractionResult
	HTML      template.HTML

	// Download carries Result.Text base64-encoded so the download form
	// posts it back byte for byte.
	Download string
	Preview  template.URL
}

// userError is a failure shown to the user. Warnings ask for missing input.
type userError struct {
	status  int
	warning bool
	msg     string
}

type upload struct {
	result   *models.ExtractionResult
	image    *extraction.ImageInput
	fileName string
	fileSize int64
}

// ExtractResponse is the JSON body returned by POST /api/extract.
type ExtractResponse struct {
	Text               string    `json:"text"`
	Backend            string    `json:"backend"`
	Model              string    `json:"model"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
}

// ErrorResponse is the JSON body returned when /api/extract fails.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) serveRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		s.renderPage(w, http.StatusOK, s.basePage(), s.log)
	}
}

func (s *Server) serveHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}
}

func (s *Server) serveExtract() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		log := logger.WithRequestID(s.log, uuid.NewString())
		page := s.basePage()

		up, uerr := s.extractUpload(w, req, log)
		if uerr != nil {
			if uerr.warning {
				page.Warning = uerr.msg
			} else {
				page.Error = uerr.msg
			}
			s.renderPage(w, uerr.status, page, log)
			return
		}

		html, err := renderMarkdown(up.result.Text)
		if err != nil {
			log.Error().Err(err).Msg("Failed to render Markdown")
			page.Error = fmt.Sprintf("Error rendering extracted text: %v", err)
			s.renderPage(w, http.StatusInternalServerError, page, log)
			return
		}

		page.Result = up.result
		page.HTML = html
		page.Download = base64.StdEncoding.EncodeToString([]byte(up.result.Text))
		if preview, err := extraction.EncodePNG(up.image.Image); err != nil {
			log.Warn().Err(err).Msg("Failed to encode preview")
		} else {
			page.Preview = template.URL("data:" + extraction.PNGMimeType + ";base64," + base64.StdEncoding.EncodeToString(preview))
		}
		s.renderPage(w, http.StatusOK, page, log)
	}
}

func (s *Server) serveAPIExtract() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		log := logger.WithRequestID(s.log, uuid.NewString())

		up, uerr := s.extractUpload(w, req, log)
		if uerr != nil {
			writeJSON(w, uerr.status, ErrorResponse{Error: uerr.msg}, log)
			return
		}

		writeJSON(w, http.StatusOK, ExtractResponse{
			Text:               up.result.Text,
			Backend:            up.result.Backend,
			Model:              up.result.Model,
			FileName:           up.fileName,
			FileSize:           up.fileSize,
			ProcessedAt:        up.result.ProcessedAt,
			ProcessingDuration: up.result.ProcessingDuration.String(),
		}, log)
	}
}

func (s *Server) serveDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, maxRequestBytes)
		if err := req.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		text, err := base64.StdEncoding.DecodeString(req.PostFormValue("markdown"))
		if err != nil {
			http.Error(w, "malformed download payload", http.StatusBadRequest)
			return
		}
		if len(text) == 0 {
			http.Error(w, "nothing to download", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", models.DownloadMIMEType+"; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", models.DownloadFileName))
		w.WriteHeader(http.StatusOK)
		w.Write(text)
	}
}

// extractUpload validates the multipart upload and runs one extraction.
func (s *Server) extractUpload(w http.ResponseWriter, req *http.Request, log zerolog.Logger) (*upload, *userError) {
	req.Body = http.MaxBytesReader(w, req.Body, maxRequestBytes)
	if err := req.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &userError{status: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("Error processing image: %v", extraction.ErrImageTooLarge)}
		}
		log.Warn().Err(err).Msg("Failed to parse upload")
		return nil, &userError{status: http.StatusBadRequest, msg: fmt.Sprintf("Error processing image: %v", err)}
	}

	key := s.credential(req)
	file, header, fileErr := req.FormFile("image")
	if fileErr == nil {
		defer file.Close()
	}

	if key == "" {
		return nil, &userError{status: http.StatusBadRequest, warning: true, msg: msgMissingKey}
	}
	if fileErr != nil {
		if errors.Is(fileErr, http.ErrMissingFile) {
			return nil, &userError{status: http.StatusBadRequest, warning: true, msg: msgMissingFile}
		}
		return nil, &userError{status: http.StatusBadRequest, msg: fmt.Sprintf("Error processing image: %v", fileErr)}
	}

	log.Info().
		Str("file", header.Filename).
		Int64("size", header.Size).
		Msg("Received upload")

	if !extraction.IsAllowedExtension(header.Filename) {
		log.Warn().Str("file", header.Filename).Msg("Rejected file extension")
		return nil, &userError{
			status: http.StatusUnsupportedMediaType,
			msg:    fmt.Sprintf("Error processing image: %v: %s", extraction.ErrUnsupportedFormat, header.Filename),
		}
	}

	img, err := extraction.DecodeImage(file, header.Filename)
	if err != nil {
		log.Warn().Err(err).Str("file", header.Filename).Msg("Failed to decode image")
		return nil, &userError{status: statusFor(err), msg: fmt.Sprintf("Error processing image: %v", err)}
	}

	ctx, cancel := context.WithTimeout(req.Context(), s.cfg.ExtractTimeout)
	defer cancel()

	result, err := s.ex.Extract(ctx, img, key)
	if err != nil {
		log.Error().Err(err).Str("file", header.Filename).Msg("Extraction failed")
		return nil, &userError{status: statusFor(err), msg: fmt.Sprintf("Error extracting text: %v", err)}
	}

	return &upload{
		result:   result,
		image:    img,
		fileName: header.Filename,
		fileSize: header.Size,
	}, nil
}

// statusFor maps an extraction error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, extraction.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extraction.ErrImageDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extraction.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, extraction.ErrMissingCredential):
		return http.StatusBadRequest
	case errors.Is(err, extraction.ErrInvalidResponse), errors.Is(err, extraction.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) renderPage(w http.ResponseWriter, status int, page pageData, log zerolog.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTmpl.Execute(w, page); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}
