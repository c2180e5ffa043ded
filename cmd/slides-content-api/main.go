// Command slides-content-api serves the Slides content HTTP API and offers
// local read, plan and API key commands against the same stack.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/smorand/slides-content-api/internal/config"
)

const version = "1.0.0"

var (
	templateFile       string
	serviceAccountFile string
	logLevel           string
	port               int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "slides-content-api",
		Short:         "Read and fill use case tables in Google Slides",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&templateFile, "template", "", "Template YAML file (default: $TEMPLATE_FILE or built-in)")
	rootCmd.PersistentFlags().StringVar(&serviceAccountFile, "credentials", "", "Service account JSON key (default: $GOOGLE_SERVICE_ACCOUNT_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $LOG_LEVEL or info)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&port, "port", 0, "Listen port (default: $PORT or 8080)")

	readCmd := &cobra.Command{
		Use:   "read <document-id>",
		Short: "Print a presentation's slides and empty template cells as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runRead,
	}

	planCmd := &cobra.Command{
		Use:   "plan <document-id>",
		Short: "Show the cell writes a use case list would produce, without writing",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlan,
	}
	planCmd.Flags().StringVarP(&useCasesFile, "use-cases", "u", "-", "JSON file with a use case array, - for stdin")

	apiKeyCmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage agent API keys",
	}
	apiKeyCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Generate and store a new API key for an agent",
		Args:  cobra.NoArgs,
		RunE:  runAPIKeyCreate,
	}
	apiKeyCreateCmd.Flags().StringVar(&agentName, "agent", "", "Name of the calling agent")
	_ = apiKeyCreateCmd.MarkFlagRequired("agent")
	apiKeyRevokeCmd := &cobra.Command{
		Use:   "revoke <api-key>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE:  runAPIKeyRevoke,
	}
	apiKeyCmd.AddCommand(apiKeyCreateCmd, apiKeyRevokeCmd)

	rootCmd.AddCommand(serveCmd, readCmd, planCmd, apiKeyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if templateFile != "" {
		cfg.TemplateFile = templateFile
	}
	if serviceAccountFile != "" {
		cfg.ServiceAccountFile = serviceAccountFile
	}
	if port != 0 {
		cfg.Port = port
	}
	if logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
			return cfg, fmt.Errorf("%w: --log-level: %v", config.ErrInvalidConfig, err)
		}
	}
	return cfg, cfg.Validate()
}

// newLogger installs a JSON handler writing to w. The server logs to stdout
// for Cloud Run log parsing.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// commandLogger logs to the command's stderr so that stdout carries only the
// command's result.
func commandLogger(cmd *cobra.Command, level slog.Level) *slog.Logger {
	return newLogger(cmd.ErrOrStderr(), level)
}
