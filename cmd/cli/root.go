package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/weftworks/weft/pkg/backend/anthropic"
	"github.com/weftworks/weft/pkg/backend/gemini"
	"github.com/weftworks/weft/pkg/backend/openai"
	"github.com/weftworks/weft/pkg/pipeline"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "weft",
		Short: "Weft workflow generation CLI",
		Long: `Weft turns plain-text automation descriptions into validated workflow
graphs, using interchangeable generation backends.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(NewGenerateCommand())
	rootCmd.AddCommand(NewBackendsCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildService wires a pipeline service from every configured backend.
func buildService(ctx context.Context, config *Config) (*pipeline.Service, error) {
	service := pipeline.NewService(pipeline.ServiceConfig{
		PreferredBackend: config.PreferredBackend,
	})

	if config.Anthropic.Configured() {
		service.RegisterBackend("anthropic", anthropic.New(config.Anthropic.APIKey, config.Anthropic.Model))
	}

	if config.OpenAI.Configured() {
		service.RegisterBackend("openai", openai.New(config.OpenAI.APIKey, config.OpenAI.Model))
	}

	if config.Gemini.Configured() {
		adapter, err := gemini.New(ctx, config.Gemini.APIKey, config.Gemini.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini backend: %w", err)
		}
		service.RegisterBackend("gemini", adapter)
	}

	if len(service.Backends()) == 0 {
		return nil, fmt.Errorf("no backend configured: set at least one API key (e.g. WEFT_ANTHROPIC_API_KEY)")
	}

	return service, nil
}
