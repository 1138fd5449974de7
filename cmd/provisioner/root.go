package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	root       string
	verbose    bool
	headless   bool
	force      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "provisioner",
		Short:         "First-run setup for the mindcraft-ce launcher",
		Long:          "Checks for the launcher's runtime prerequisites (git, Node.js, npm) and the application payload, installs whatever is missing, and bootstraps the workspace.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation provisions; subcommands cover the rest.
			return runProvision(flags)
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a provisioning config file (defaults are built in)")
	cmd.PersistentFlags().StringVar(&flags.root, "root", "", "Install root (overrides the config)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&flags.headless, "headless", false, "Run without the interactive window, logging to stdout")
	cmd.PersistentFlags().BoolVar(&flags.force, "force", false, "Provision even if a previous run already finalized")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
