package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"imgtext/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "imgtext",
	Short: "imgtext - extract text from images as Markdown",
	Long: `imgtext sends an image to a vision-language model (Google Gemini by
default) and returns the readable content as structured Markdown.

Run "imgtext serve" for the web upload form, or "imgtext extract" to
process a local image file.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("imgtext executed without subcommand")

		cmd.Help()
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
