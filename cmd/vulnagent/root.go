package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// isTTY checks if the current environment has a TTY available
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// rootOptions holds the persistent flags. Only flags the user actually set are
// applied over the loaded configuration.
type rootOptions struct {
	configFile string
	agentURL   string
	swarm      bool
	output     string
	noColor    bool
	markdown   bool
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "vulnagent",
		Short: "Client for the vulnerability remediation agent service",
		Long: `vulnagent sends remediation requests to the multi-agent service,
normalizes its replies into readable results, and walks you through the
approve/reject handoff when the swarm asks for a human decision.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Config file (default: ./vulnagent.yaml or ~/.vulnagent/vulnagent.yaml)")
	flags.StringVar(&opts.agentURL, "agent-url", "", "Agent service invocation endpoint")
	flags.BoolVarP(&opts.swarm, "swarm", "s", false, "Run in swarm mode (gather phase plus specialist agents)")
	flags.StringVarP(&opts.output, "output", "o", "", "Output format: text, json or yaml")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&opts.markdown, "markdown", false, "Render agent text as markdown")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newAnalyzeCommand(opts),
		newNormalizeCommand(opts),
		newServeCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}
