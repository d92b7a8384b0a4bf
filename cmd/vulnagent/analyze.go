package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vulnagent/internal/conversation"
	"vulnagent/internal/presentation"
)

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	var noInteractive bool

	cmd := &cobra.Command{
		Use:   "analyze [prompt]",
		Short: "Send a remediation request and display the normalized result",
		Long: `Send a prompt to the agent service and render its reply.

When the swarm hands off to a human, you are asked to approve or reject the
remediation plan (or cancel). Use --no-interactive to print the pending
handoff and exit instead. With no prompt argument the prompt is read from
standard input.`,
		Example: `  vulnagent analyze "Fix the SQL injection in the login handler"
  vulnagent analyze --swarm "Audit dependencies for known CVEs"
  echo "Patch CVE-2024-1234" | vulnagent analyze -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			prompt := strings.Join(args, " ")
			if strings.TrimSpace(prompt) == "" && !isTTY() {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read prompt: %w", err)
				}
				prompt = string(data)
			}

			var chooser handoffChooser
			if !noInteractive {
				if isTTY() {
					chooser = selectChooser{}
				} else if f, ok := cmd.InOrStdin().(*os.File); !ok || f != os.Stdin {
					chooser = newLineChooser(cmd.InOrStdin(), cmd.OutOrStdout())
				}
			}
			return runAnalyze(cmd.Context(), a.service, a.renderer, cmd.OutOrStdout(), chooser, prompt, a.cfg.SwarmMode)
		},
	}

	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Do not prompt for a handoff decision")
	return cmd
}

// runAnalyze renders the analysis and, with a chooser, drives the handoff
// until the conversation stops awaiting input.
func runAnalyze(ctx context.Context, service *conversation.Service, renderer presentation.Renderer, out io.Writer, chooser handoffChooser, prompt string, swarm bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := service.Analyze(ctx, prompt, swarm)
	if renderErr := renderer.Render(out, result.View); renderErr != nil {
		return renderErr
	}
	if err != nil {
		return renderedFailure(err)
	}
	return runHandoff(ctx, service, renderer, out, chooser, result)
}

func runHandoff(ctx context.Context, service *conversation.Service, renderer presentation.Renderer, out io.Writer, chooser handoffChooser, result conversation.Result) error {
	for result.Outcome.AwaitingInput() {
		if chooser == nil {
			fmt.Fprintln(out, gray("Handoff pending; rerun interactively to approve or reject."))
			return nil
		}

		choice, err := chooser.Choose(result.Outcome.HumanPrompt)
		if err != nil {
			return err
		}

		if choice == choiceCancel {
			cancelled, err := service.Cancel(ctx)
			if renderErr := renderer.Render(out, cancelled.View); renderErr != nil {
				return renderErr
			}
			return renderedFailure(err)
		}

		next, err := service.Decide(ctx, string(choice))
		if renderErr := renderer.Render(out, next.View); renderErr != nil {
			return renderErr
		}
		if err != nil {
			return renderedFailure(err)
		}
		result = next
	}
	return nil
}
