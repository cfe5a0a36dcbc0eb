package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewBackendsCommand creates the backends command.
func NewBackendsCommand() *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List configured generation backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return err
			}

			service, err := buildService(cmd.Context(), config)
			if err != nil {
				return err
			}

			for _, name := range service.Backends() {
				adapter, _ := service.Adapter(name)
				descriptor := adapter.Descriptor()
				snapshot := adapter.RateLimit()

				status := ""
				if validate {
					if err := adapter.ValidateCredential(cmd.Context()); err != nil {
						status = fmt.Sprintf("  credential: INVALID (%v)", err)
					} else {
						status = "  credential: ok"
					}
				}

				cmd.Printf("%s\n  model: %s\n  requests remaining: %d\n  tokens remaining: %d\n%s\n",
					descriptor.ID(), descriptor.Model, snapshot.RequestsRemaining, snapshot.TokensRemaining, status)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "Validate each backend credential with a live call")

	return cmd
}
