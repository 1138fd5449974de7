package provision

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/mindcraft-ce/provisioner/internal/execx"
)

// wingetTool is the system package manager tried before falling back to the
// vendor installer.
const wingetTool = "winget"

// ensureGit makes a best effort to install the source-control tool. Nothing
// downstream strictly requires git, so every failure in here degrades to a
// warning: the package-manager route may be unavailable, the installer
// download may fail, and even a clean install may leave git unresolvable
// until the session restarts and picks up the new PATH.
func (o *Orchestrator) ensureGit(ctx context.Context) error {
	gitCfg := o.cfg.Git

	if o.runner.ToolInstalled(ctx, gitCfg.Tool, execx.DefaultVersionFlag) {
		o.emit(gitCfg.Tool + " is already installed; skipping")
		return nil
	}

	if gitCfg.WingetID != "" && o.runner.ToolInstalled(ctx, wingetTool, "") {
		o.emit(fmt.Sprintf("Attempting %s install via %s", gitCfg.Tool, wingetTool))
		_, err := o.runner.Run(ctx, execx.Spec{
			Name: wingetTool,
			Args: []string{
				"install", "--id", gitCfg.WingetID, "-e", "--silent",
				"--accept-package-agreements", "--accept-source-agreements",
			},
		})
		if err != nil {
			o.emit(fmt.Sprintf("Package manager install did not complete: %v", err))
		}

		if s := gitCfg.SettleSeconds; s != nil {
			o.settle(ctx, time.Duration(*s)*time.Second)
		}
		if o.runner.ToolInstalled(ctx, gitCfg.Tool, execx.DefaultVersionFlag) {
			o.emit(gitCfg.Tool + " installed via package manager")
			return nil
		}
	}

	installerPath := filepath.Join(o.scratchDir(), path.Base(gitCfg.InstallerURL))
	if !o.fetcher.Download(ctx, gitCfg.InstallerURL, installerPath) {
		o.emit("Could not download the " + gitCfg.Tool + " installer; continuing without it")
		return nil
	}

	if _, err := o.runner.Run(ctx, execx.Spec{Name: installerPath, Args: gitCfg.InstallerArgs}); err != nil {
		o.emit(fmt.Sprintf("Silent %s install did not complete: %v", gitCfg.Tool, err))
	}

	if !o.runner.ToolInstalled(ctx, gitCfg.Tool, execx.DefaultVersionFlag) {
		o.emit(fmt.Sprintf("Warning: %s is still not visible on the search path; a session restart may be required", gitCfg.Tool))
	}

	return nil
}

// settle waits between an install attempt and its re-verification, giving
// the installer's PATH changes a moment to land.
func (o *Orchestrator) settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
