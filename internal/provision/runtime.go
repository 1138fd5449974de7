package provision

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"runtime"

	"github.com/mindcraft-ce/provisioner/internal/execx"
	proverrors "github.com/mindcraft-ce/provisioner/pkg/errors"
)

// ensureRuntime installs the JavaScript runtime and package manager when
// either is missing. Unlike git, everything downstream depends on these, so
// a failed installer download aborts the run.
func (o *Orchestrator) ensureRuntime(ctx context.Context) error {
	rt := o.cfg.Runtime

	nodePresent := o.runner.ToolInstalled(ctx, rt.NodeTool, execx.DefaultVersionFlag)
	npmPresent := o.runner.ToolInstalled(ctx, rt.NpmTool, execx.DefaultVersionFlag)
	if nodePresent && npmPresent {
		o.emit(fmt.Sprintf("%s and %s are already installed; skipping", rt.NodeTool, rt.NpmTool))
		return nil
	}

	installerPath := filepath.Join(o.scratchDir(), path.Base(rt.InstallerURL))
	if !o.fetcher.Download(ctx, rt.InstallerURL, installerPath) {
		return proverrors.NewDownloadError(rt.InstallerURL, fmt.Errorf("runtime installer could not be retrieved"))
	}

	if _, err := o.runner.Run(ctx, runtimeInstallSpec(installerPath)); err != nil {
		o.emit(fmt.Sprintf("Silent runtime install did not complete: %v", err))
	}

	// Freshly installed tools land in locations the current session's PATH
	// predates. Extend the child search path so later steps can spawn them
	// without a session restart.
	o.runner.Env().AppendPath(o.cfg.Paths.PathExtras...)
	o.emit("Extended child search path with: " + fmt.Sprint(o.cfg.Paths.PathExtras))

	for _, tool := range []string{rt.NodeTool, rt.NpmTool, o.cfg.Git.Tool} {
		if o.runner.ToolInstalled(ctx, tool, execx.DefaultVersionFlag) {
			o.emit(tool + " resolves on the search path")
		} else {
			o.emit(tool + " does not resolve on the search path yet")
		}
	}

	return nil
}

// runtimeInstallSpec builds the platform's silent package-install invocation
// for the downloaded runtime installer.
func runtimeInstallSpec(installerPath string) execx.Spec {
	if runtime.GOOS == "windows" {
		return execx.Spec{
			Name: "msiexec",
			Args: []string{"/i", installerPath, "/qn", "/norestart"},
		}
	}
	// Elsewhere the artifact is expected to be a self-contained installer.
	return execx.Spec{Name: installerPath}
}
