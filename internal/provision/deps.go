package provision

import (
	"context"
	"fmt"

	"github.com/mindcraft-ce/provisioner/internal/execx"
	proverrors "github.com/mindcraft-ce/provisioner/pkg/errors"
)

// installDependencies resolves and installs the project's package tree with
// the package manager, streaming its output live so the longest stage of the
// run is visible as it happens. A failed install is fatal.
func (o *Orchestrator) installDependencies(ctx context.Context) error {
	npm := o.cfg.Runtime.NpmTool

	if !o.runner.ToolInstalled(ctx, npm, "") {
		return proverrors.NewCommandNotFoundError(npm,
			fmt.Errorf("package manager unavailable after runtime provisioning"))
	}

	spec := execx.Spec{Name: npm, Args: []string{"install"}, Dir: o.projectDir()}
	if !o.runner.RunStreaming(spec) {
		return proverrors.NewStreamedCommandError(spec.String())
	}

	o.emit("Project dependencies installed")
	return nil
}
