package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	proverrors "github.com/mindcraft-ce/provisioner/pkg/errors"
)

func (o *Orchestrator) installRoot() string {
	return o.cfg.Paths.InstallRoot
}

func (o *Orchestrator) scratchDir() string {
	return filepath.Join(o.installRoot(), o.cfg.Paths.ScratchDir)
}

func (o *Orchestrator) projectDir() string {
	return filepath.Join(o.installRoot(), o.cfg.Project.Folder)
}

// prepareDirectories ensures the install root and its scratch subdirectory
// exist. Both creates are idempotent.
func (o *Orchestrator) prepareDirectories(ctx context.Context) error {
	for _, dir := range []string{o.installRoot(), o.scratchDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return proverrors.NewFilesystemError("mkdir", dir, err)
		}
		o.emit("Directory ready: " + dir)
	}
	return nil
}

// materializeKeys renames the bundled credentials template to its final name
// so the application starts with an editable key file. A missing template or
// an already-present final file are expected states, not failures.
func (o *Orchestrator) materializeKeys(ctx context.Context) error {
	examplePath := filepath.Join(o.projectDir(), o.cfg.Project.KeysExample)
	finalPath := filepath.Join(o.projectDir(), o.cfg.Project.KeysFile)

	if _, err := os.Stat(finalPath); err == nil {
		o.emit(fmt.Sprintf("%s already exists; leaving it untouched", o.cfg.Project.KeysFile))
		return nil
	}

	if _, err := os.Stat(examplePath); err != nil {
		o.emit(fmt.Sprintf("No %s template found; skipping", o.cfg.Project.KeysExample))
		return nil
	}

	if err := os.Rename(examplePath, finalPath); err != nil {
		return proverrors.NewFilesystemError("rename", examplePath, err)
	}

	o.emit(fmt.Sprintf("Renamed %s to %s", o.cfg.Project.KeysExample, o.cfg.Project.KeysFile))
	return nil
}

// finalize writes the marker file whose presence tells the launcher that
// provisioning completed.
func (o *Orchestrator) finalize(ctx context.Context) error {
	if err := WriteMarker(o.installRoot(), o.now()); err != nil {
		return err
	}
	o.emit("Wrote " + filepath.Join(o.installRoot(), MarkerFile))
	return nil
}
