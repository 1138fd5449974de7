package execx

import (
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverlayEnvironExtendsPath(t *testing.T) {
	o := NewOverlay()
	o.AppendPath("/opt/freshly-installed/bin")

	var pathValue string
	for _, kv := range o.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok && strings.EqualFold(key, "PATH") {
			pathValue = value
			break
		}
	}

	require.NotEmpty(t, pathValue)
	require.True(t, strings.HasSuffix(pathValue, string(os.PathListSeparator)+"/opt/freshly-installed/bin"))
	// Existing entries stay in front so already-resolved tools keep priority.
	require.Contains(t, pathValue, os.Getenv("PATH"))
}

func TestOverlayAppendPathDeduplicates(t *testing.T) {
	t.Parallel()

	o := NewOverlay()
	o.AppendPath("/some/dir", "/some/dir", "")
	o.AppendPath("/some/dir")

	require.Equal(t, []string{"/some/dir"}, o.PathExtras())
}

func TestOverlayLookPathFindsOverlayOnlyTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	binDir := t.TempDir()
	writeScript(t, binDir, "overlay-only-tool", "#!/bin/sh\nexit 0\n")

	o := NewOverlay()

	_, err := o.LookPath("overlay-only-tool")
	require.Error(t, err)

	o.AppendPath(binDir)
	path, err := o.LookPath("overlay-only-tool")
	require.NoError(t, err)
	require.Contains(t, path, "overlay-only-tool")
}
