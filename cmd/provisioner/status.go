package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mindcraft-ce/provisioner/internal/provision"
)

func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the install root has been provisioned",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			if !provision.MarkerExists(cfg.Paths.InstallRoot) {
				fmt.Fprintln(cmd.OutOrStdout(), "not provisioned")
				return nil
			}

			marker, err := provision.ReadMarker(cfg.Paths.InstallRoot)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "provisioned on %s\n",
				marker.InstalledAt().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}
