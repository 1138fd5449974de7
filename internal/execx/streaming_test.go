package execx

import (
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func scriptLines(collector *lineCollector) []string {
	var out []string
	for _, line := range collector.lines {
		if strings.HasPrefix(line, "Running") || strings.HasPrefix(line, "Cannot run") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func TestRunStreamingDeliversLinesInOrder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	const n = 20
	binDir := t.TempDir()
	var body strings.Builder
	body.WriteString("#!/bin/sh\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&body, "echo \"line %02d\"\n", i)
	}
	writeScript(t, binDir, "chatty-tool", body.String())
	prependPath(t, binDir)

	collector := &lineCollector{}
	r := NewRunner(NewOverlay(), collector.sink)

	ok := r.RunStreaming(Spec{Name: "chatty-tool"})
	require.True(t, ok)

	lines := scriptLines(collector)
	require.Len(t, lines, n)
	for i, line := range lines {
		require.Equal(t, fmt.Sprintf("line %02d", i), line)
	}
}

func TestRunStreamingNonzeroExitKeepsEarlierLines(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	binDir := t.TempDir()
	writeScript(t, binDir, "flaky-install", `#!/bin/sh
echo "resolving dependencies"
echo "fetching packages"
echo "ERR! registry unreachable" >&2
exit 1
`)
	prependPath(t, binDir)

	collector := &lineCollector{}
	r := NewRunner(NewOverlay(), collector.sink)

	ok := r.RunStreaming(Spec{Name: "flaky-install"})
	require.False(t, ok)

	lines := scriptLines(collector)
	require.Contains(t, lines, "resolving dependencies")
	require.Contains(t, lines, "fetching packages")
	// stderr is merged into the same stream
	require.Contains(t, lines, "ERR! registry unreachable")
}

func TestRunStreamingUnresolvableExecutable(t *testing.T) {
	t.Parallel()

	collector := &lineCollector{}
	r := NewRunner(NewOverlay(), collector.sink)

	ok := r.RunStreaming(Spec{Name: "definitely-not-a-real-tool-98765"})
	require.False(t, ok)
	require.NotEmpty(t, collector.lines)
	require.Contains(t, collector.lines[0], "not found")
}
