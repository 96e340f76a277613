package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"imgtext/internal/config"
	"imgtext/internal/extraction"
	"imgtext/internal/logger"
	"imgtext/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the image upload form",
	Long: `Start the web interface: upload an image, extract its text and
download the result as extracted_text.md.

Credential sources:
  form - every request supplies its own API key in a masked field (default)
  env  - the key is read once from the environment at startup; the server
         refuses to start when it is missing

Environment variables:
  GEMINI_API_KEY     - Gemini API key (env source, gemini backend)
  CREDENTIAL_SOURCE  - form or env
  EXTRACT_BACKEND    - gemini (default), vision or openai
  LISTEN_ADDR        - listen address (default :8501)`,
	Example: `  # Ask users for their own key
  imgtext serve

  # Use the key from the environment
  GEMINI_API_KEY=... imgtext serve --key-source env --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides LISTEN_ADDR)")
	serveCmd.Flags().String("key-source", "", "Credential source: form or env (overrides CREDENTIAL_SOURCE)")
	serveCmd.Flags().Int("shutdown-timeout", 10, "Graceful shutdown timeout in seconds")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.ListenAddr = addr
	}
	if source, _ := cmd.Flags().GetString("key-source"); source != "" {
		if source != config.CredentialSourceForm && source != config.CredentialSourceEnv {
			return fmt.Errorf("--key-source must be %q or %q", config.CredentialSourceForm, config.CredentialSourceEnv)
		}
		cfg.CredentialSource = source
	}
	shutdownSecs, _ := cmd.Flags().GetInt("shutdown-timeout")

	svc, err := extraction.NewServiceFromConfig(cfg)
	if err != nil {
		return err
	}

	srv, err := web.NewServer(cfg, svc)
	if err != nil {
		// Without a credential the env variant has nothing it can serve.
		logger.Fatal(err, "Cannot start server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownSecs)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
