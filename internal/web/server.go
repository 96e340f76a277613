// Package web serves the upload form, the extraction endpoints and the
// Markdown download.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"imgtext/internal/config"
	"imgtext/internal/extraction"
	"imgtext/internal/logger"
)

var (
	//go:embed tmpl/*.html
	tmplFS embed.FS

	indexTmpl = template.Must(template.ParseFS(tmplFS, "tmpl/index.html"))
)

// maxRequestBytes bounds the multipart body: the image plus room for form fields.
const maxRequestBytes = extraction.MaxImageBytes + 1<<20

type Server struct {
	hs  *http.Server
	ex  extraction.Extractor
	cfg *config.Config
	log zerolog.Logger
}

// NewServer creates a server for cfg. In env credential mode the key must be
// present, otherwise no server is created.
func NewServer(cfg *config.Config, ex extraction.Extractor) (*Server, error) {
	if cfg.CredentialSource == config.CredentialSourceEnv {
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, extraction.NewExtractionError("NewServer", extraction.ErrMissingCredential, err.Error())
		}
	}

	srv := &Server{
		ex:  ex,
		cfg: cfg,
		log: logger.WithComponent("web"),
	}

	srv.hs = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, nil
}

// Start listens until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.hs.Addr).
		Str("credential_source", s.cfg.CredentialSource).
		Str("backend", s.cfg.Backend).
		Msg("Listening")

	if err := s.hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.hs.Shutdown(ctx)
}

// Handler returns the routing for all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /extract", s.serveExtract())
	mux.Handle("POST /api/extract", s.serveAPIExtract())
	mux.Handle("POST /download", s.serveDownload())
	mux.Handle("GET /healthz", s.serveHealth())
	mux.Handle("GET /{$}", s.serveRoot())

	return mux
}

// credential returns the API key for req. Env mode ignores anything the
// client sends; form mode takes the api_key field, then the X-API-Key header.
func (s *Server) credential(req *http.Request) string {
	if s.cfg.CredentialSource == config.CredentialSourceEnv {
		return s.cfg.APIKey()
	}
	if key := strings.TrimSpace(req.FormValue("api_key")); key != "" {
		return key
	}
	return strings.TrimSpace(req.Header.Get("X-API-Key"))
}

func (s *Server) basePage() pageData {
	return pageData{
		AskForKey: s.cfg.CredentialSource == config.CredentialSourceForm,
		Provider:  providerName(s.cfg.Backend),
		Accept:    acceptAttr(),
	}
}

// providerName is the display name of the service behind backend.
func providerName(backend string) string {
	switch backend {
	case config.BackendVision:
		return "Google Cloud Vision"
	case config.BackendOpenAI:
		return "OpenAI"
	default:
		return "Google Gemini"
	}
}

// acceptAttr renders the allowed extensions for the file input's accept attribute.
func acceptAttr() string {
	exts := make([]string, len(extraction.AllowedExtensions))
	for i, ext := range extraction.AllowedExtensions {
		exts[i] = "." + ext
	}
	return strings.Join(exts, ",")
}
