package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/weftworks/weft/pkg/domain"
	"gopkg.in/yaml.v3"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var (
		backendName   string
		costOptimize  bool
		errorHandling bool
		outputFormat  string
		nodeTypesFile string
		targetVersion string
	)

	cmd := &cobra.Command{
		Use:   "generate [description]",
		Short: "Generate a workflow from a plain-text description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return err
			}

			if backendName != "" {
				config.PreferredBackend = backendName
			}

			service, err := buildService(cmd.Context(), config)
			if err != nil {
				return err
			}

			nodeTypes, err := loadNodeTypes(nodeTypesFile)
			if err != nil {
				return err
			}

			req := domain.GenerationRequest{
				Description:    args[0],
				ConversationID: uuid.New().String(),
				Target: domain.TargetContext{
					AvailableNodeTypes: nodeTypes,
					Version:            targetVersion,
					Preferences: domain.UserPreferences{
						ErrorHandling: errorHandling,
					},
				},
				Options: domain.GenerationOptions{
					CostOptimize: costOptimize || config.CostOptimize,
				},
			}

			result := service.Generate(cmd.Context(), req)
			if !result.Success {
				return fmt.Errorf("generation failed (%s): %s", result.Error.Category, result.Error.Message)
			}

			return writeResult(cmd, result, outputFormat)
		},
	}

	cmd.Flags().StringVar(&backendName, "backend", "", "Preferred backend (anthropic, openai, gemini)")
	cmd.Flags().BoolVar(&costOptimize, "cost-optimize", false, "Choose the cheapest available backend")
	cmd.Flags().BoolVar(&errorHandling, "error-handling", false, "Attach error handling paths to fallible nodes")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "json", "Output format (json or yaml)")
	cmd.Flags().StringVar(&nodeTypesFile, "node-types", "", "File with one available node type per line")
	cmd.Flags().StringVar(&targetVersion, "target-version", "", "Target system version")

	return cmd
}

func loadNodeTypes(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read node types file: %w", err)
	}

	var types []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			types = append(types, line)
		}
	}

	return types, nil
}

func writeResult(cmd *cobra.Command, result *domain.GenerationResult, format string) error {
	switch format {
	case "yaml":
		encoded, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		cmd.Println(string(encoded))
	case "json":
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		cmd.Println(string(encoded))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	return nil
}
