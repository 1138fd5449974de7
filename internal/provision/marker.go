package provision

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	proverrors "github.com/mindcraft-ce/provisioner/pkg/errors"
)

// MarkerFile is the finalization file written at the install root. Its
// existence, not its content, is the signal that provisioning completed;
// the main application refuses to launch the provisioner again while it is
// present.
const MarkerFile = "config.json"

// Marker is the on-disk record of a completed run. Settings starts empty and
// is reserved for the main application.
type Marker struct {
	Downloaded int64          `json:"downloaded"`
	Settings   map[string]any `json:"settings"`
}

// InstalledAt returns the completion timestamp recorded in the marker.
func (m Marker) InstalledAt() time.Time {
	return time.Unix(m.Downloaded, 0)
}

// WriteMarker records a completed run at the install root.
func WriteMarker(root string, now time.Time) error {
	marker := Marker{
		Downloaded: now.Unix(),
		Settings:   map[string]any{},
	}

	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(root, MarkerFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return proverrors.NewFilesystemError("write", path, err)
	}
	return nil
}

// ReadMarker loads the marker at the install root, for callers that want to
// display the recorded install time.
func ReadMarker(root string) (Marker, error) {
	path := filepath.Join(root, MarkerFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return Marker{}, proverrors.NewFilesystemError("read", path, err)
	}

	var marker Marker
	if err := json.Unmarshal(data, &marker); err != nil {
		return Marker{}, proverrors.NewParseError(path, 0, err)
	}
	return marker, nil
}

// MarkerExists reports whether a previous run finalized against root.
func MarkerExists(root string) bool {
	_, err := os.Stat(filepath.Join(root, MarkerFile))
	return err == nil
}
