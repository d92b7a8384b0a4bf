package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newNormalizeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [file|-]",
		Short: "Normalize a captured agent response without contacting the service",
		Long: `Run a raw response body through the same extraction, handoff and
rendering pipeline used for live requests. Reads standard input when the
argument is "-" or omitted. The live conversation is not affected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.Normalize(cmd.Context(), raw, a.cfg.SwarmMode)
			if renderErr := a.renderer.Render(cmd.OutOrStdout(), result.View); renderErr != nil {
				return renderErr
			}
			return renderedFailure(err)
		},
	}
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(data), nil
}
