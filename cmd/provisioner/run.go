package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mindcraft-ce/provisioner/internal/config"
	"github.com/mindcraft-ce/provisioner/internal/logger"
	"github.com/mindcraft-ce/provisioner/internal/provision"
	"github.com/mindcraft-ce/provisioner/internal/tui"
)

var runCmdRunner = runProvision

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the provisioning pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCmdRunner(flags)
		},
	}
}

func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg := config.Defaults()
	if flags.configPath != "" {
		parsed, err := config.ParseConfig(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}
	if flags.root != "" {
		cfg.Paths.InstallRoot = flags.root
	}
	return cfg, nil
}

func runProvision(flags *rootFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	// The marker's existence is the whole gate: a finalized root is not
	// provisioned again unless forced.
	if provision.MarkerExists(cfg.Paths.InstallRoot) && !flags.force {
		if marker, err := provision.ReadMarker(cfg.Paths.InstallRoot); err == nil {
			fmt.Fprintf(os.Stdout, "Already provisioned on %s; use --force to run again.\n",
				marker.InstalledAt().Format("2006-01-02 15:04:05"))
		} else {
			fmt.Fprintln(os.Stdout, "Already provisioned; use --force to run again.")
		}
		return nil
	}

	level := "info"
	if flags.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: true, Writer: os.Stderr})
	if err != nil {
		return err
	}

	orch := provision.New(cfg, log)

	interactive := !flags.headless && term.IsTerminal(int(os.Stdout.Fd()))
	if interactive {
		return runInteractive(cfg, orch)
	}
	return runHeadless(log, orch)
}

func runInteractive(cfg *config.Config, orch *provision.Orchestrator) error {
	model := tui.NewModel(cfg.Name, orch)
	program := tea.NewProgram(model, tea.WithAltScreen())

	final, err := program.Run()
	if err != nil {
		return err
	}

	if m, ok := final.(tui.Model); ok && m.Phase() == tui.PhaseFailed {
		return fmt.Errorf("provisioning failed; see the log above")
	}
	return nil
}

func runHeadless(log *logger.Logger, orch *provision.Orchestrator) error {
	orch.Start(context.Background())

	success := false
	for ev := range orch.Events() {
		switch ev := ev.(type) {
		case provision.LogEvent:
			log.Info(ev.Text)
		case provision.DoneEvent:
			success = ev.Success
		}
	}

	if !success {
		return fmt.Errorf("provisioning failed")
	}
	return nil
}
