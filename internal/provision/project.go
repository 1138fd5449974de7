package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"

	"github.com/mindcraft-ce/provisioner/internal/archive"
	proverrors "github.com/mindcraft-ce/provisioner/pkg/errors"
)

// cloneFunc acquires the project source over git. Production uses go-git;
// tests substitute a fake.
type cloneFunc func(ctx context.Context, url, dest string, progress io.Writer) error

// fetchProject acquires the application payload into the install root,
// either by downloading and extracting the published zip archive or by a
// shallow git clone, per configuration. Failure here is always fatal:
// nothing downstream can proceed without the payload.
func (o *Orchestrator) fetchProject(ctx context.Context) error {
	o.removeStale()

	if o.cfg.Project.Source == "clone" {
		return o.cloneSource(ctx)
	}
	return o.extractArchive(ctx)
}

// removeStale clears a previous download or extracted folder so a rerun
// starts from a clean slate. Removal failures are warned about rather than
// aborting; extraction overwrites what it can.
func (o *Orchestrator) removeStale() {
	candidates := make([]string, 0, 2)
	// Only archive acquisition leaves a download behind; with no archive URL
	// configured the archive path would name the scratch directory itself,
	// whose installer artifacts must survive reruns.
	if o.cfg.Project.ArchiveURL != "" {
		candidates = append(candidates, o.archivePath())
	}
	candidates = append(candidates, o.projectDir())

	for _, stale := range candidates {
		if _, err := os.Stat(stale); err != nil {
			continue
		}
		o.emit("Removing stale " + stale)
		if err := os.RemoveAll(stale); err != nil {
			o.emit(fmt.Sprintf("Warning: could not remove %s: %v", stale, err))
		}
	}
}

func (o *Orchestrator) archivePath() string {
	return filepath.Join(o.scratchDir(), path.Base(o.cfg.Project.ArchiveURL))
}

func (o *Orchestrator) extractArchive(ctx context.Context) error {
	archivePath := o.archivePath()

	if !o.fetcher.Download(ctx, o.cfg.Project.ArchiveURL, archivePath) {
		return proverrors.NewDownloadError(o.cfg.Project.ArchiveURL, fmt.Errorf("project archive could not be retrieved"))
	}

	// The consumed archive is deleted regardless of how extraction goes.
	defer func() {
		if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
			o.emit(fmt.Sprintf("Warning: could not remove %s: %v", archivePath, err))
		}
	}()

	o.emit("Extracting " + archivePath)
	if err := archive.ExtractZip(archivePath, o.installRoot()); err != nil {
		// Do not leave a half-written folder behind; reruns treat the
		// expected folder's presence as meaningful.
		_ = os.RemoveAll(o.projectDir())
		return err
	}

	if _, err := os.Stat(o.projectDir()); err != nil {
		return proverrors.NewExtractionError(archivePath,
			fmt.Sprintf("expected folder %q missing after extraction", o.cfg.Project.Folder), nil)
	}

	o.emit("Extracted project to " + o.projectDir())
	return nil
}

func (o *Orchestrator) cloneSource(ctx context.Context) error {
	o.emit("Cloning " + o.cfg.Project.CloneURL)

	if err := o.clone(ctx, o.cfg.Project.CloneURL, o.projectDir(), &sinkWriter{emit: o.emit}); err != nil {
		_ = os.RemoveAll(o.projectDir())
		return proverrors.NewDownloadError(o.cfg.Project.CloneURL, err)
	}

	if _, err := os.Stat(o.projectDir()); err != nil {
		return proverrors.NewDownloadError(o.cfg.Project.CloneURL,
			fmt.Errorf("expected folder %q missing after clone", o.cfg.Project.Folder))
	}

	o.emit("Cloned project to " + o.projectDir())
	return nil
}

func gitClone(ctx context.Context, url, dest string, progress io.Writer) error {
	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:      url,
		Depth:    1,
		Progress: progress,
	})
	return err
}

// sinkWriter adapts the event sink to the io.Writer go-git reports progress
// through, forwarding each non-empty line.
type sinkWriter struct {
	emit func(string)
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	for _, line := range strings.FieldsFunc(string(p), func(r rune) bool { return r == '\n' || r == '\r' }) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			w.emit(trimmed)
		}
	}
	return len(p), nil
}
