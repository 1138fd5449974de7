package provision

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mindcraft-ce/provisioner/internal/config"
	"github.com/mindcraft-ce/provisioner/internal/execx"
	"github.com/mindcraft-ce/provisioner/internal/logger"
)

// fakeRunner scripts tool presence and child-process behavior for pipeline
// tests.
type fakeRunner struct {
	env       *execx.Overlay
	installed map[string]bool
	runCalls  []execx.Spec
	streamed  []execx.Spec
	onRun     func(spec execx.Spec)

	streamOK    bool
	streamLines []string
	sink        func(string)
}

func newFakeRunner(sink func(string)) *fakeRunner {
	return &fakeRunner{
		env:       execx.NewOverlay(),
		installed: map[string]bool{},
		streamOK:  true,
		sink:      sink,
	}
}

func (f *fakeRunner) Run(ctx context.Context, spec execx.Spec) (execx.Result, error) {
	f.runCalls = append(f.runCalls, spec)
	if f.onRun != nil {
		f.onRun(spec)
	}
	return execx.Result{}, nil
}

func (f *fakeRunner) RunStreaming(spec execx.Spec) bool {
	f.streamed = append(f.streamed, spec)
	for _, line := range f.streamLines {
		f.sink(line)
	}
	return f.streamOK
}

func (f *fakeRunner) ToolInstalled(ctx context.Context, name, versionFlag string) bool {
	return f.installed[name]
}

func (f *fakeRunner) Env() *execx.Overlay {
	return f.env
}

// fakeFetcher serves scripted payloads per URL; URLs without a payload fail.
type fakeFetcher struct {
	payloads map[string][]byte
}

func (f *fakeFetcher) Download(ctx context.Context, url, dest string) bool {
	data, ok := f.payloads[url]
	if !ok {
		return false
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return false
	}
	return true
}

func projectZip(t *testing.T, folder string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		folder + "/package.json":      `{"name":"mindcraft-ce"}`,
		folder + "/keys.example.json": `{"OPENAI_API_KEY":""}`,
		folder + "/settings.js":       "// settings",
	} {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Defaults()
	cfg.Paths.InstallRoot = t.TempDir()
	cfg.Paths.PathExtras = []string{filepath.Join(cfg.Paths.InstallRoot, "toolbin")}
	noSettle := 0
	cfg.Git.SettleSeconds = &noSettle
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config) (*Orchestrator, *fakeRunner, *fakeFetcher) {
	t.Helper()

	log, err := logger.New(logger.Options{Level: "error", Writer: io.Discard})
	require.NoError(t, err)

	o := New(cfg, log)
	runner := newFakeRunner(o.emit)
	fetcher := &fakeFetcher{payloads: map[string][]byte{}}
	o.runner = runner
	o.fetcher = fetcher
	return o, runner, fetcher
}

// drain runs the pipeline to completion and returns the log lines and the
// terminal outcome, asserting the stream contract: timestamps never go
// backwards, the outcome arrives exactly once and strictly last, and the
// channel closes afterwards.
func drain(t *testing.T, o *Orchestrator) ([]string, bool) {
	t.Helper()

	o.Start(context.Background())

	var lines []string
	var outcomes []bool
	var last time.Time
	for ev := range o.Events() {
		switch ev := ev.(type) {
		case LogEvent:
			require.Empty(t, outcomes, "log line delivered after the outcome")
			require.False(t, ev.Time.Before(last), "timestamps went backwards")
			last = ev.Time
			lines = append(lines, ev.Text)
		case DoneEvent:
			outcomes = append(outcomes, ev.Success)
		}
	}

	require.Len(t, outcomes, 1, "expected exactly one terminal outcome")
	return lines, outcomes[0]
}

func TestPipelineHappyPathFromBareMachine(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	o, runner, fetcher := newTestOrchestrator(t, cfg)

	// No tools at all, no package manager; every install artifact downloads.
	fetcher.payloads[cfg.Git.InstallerURL] = []byte("git installer bits")
	fetcher.payloads[cfg.Runtime.InstallerURL] = []byte("node installer bits")
	fetcher.payloads[cfg.Project.ArchiveURL] = projectZip(t, cfg.Project.Folder)

	// The runtime installer makes node and npm resolvable.
	runner.onRun = func(spec execx.Spec) {
		if strings.Contains(spec.String(), "node") || strings.Contains(spec.Name, "msiexec") {
			runner.installed[cfg.Runtime.NodeTool] = true
			runner.installed[cfg.Runtime.NpmTool] = true
		}
	}
	runner.streamLines = []string{"added 120 packages in 4s"}

	lines, ok := drain(t, o)
	require.True(t, ok)

	// Finalization marker with the expected schema.
	marker, err := ReadMarker(cfg.Paths.InstallRoot)
	require.NoError(t, err)
	require.NotZero(t, marker.Downloaded)
	require.Empty(t, marker.Settings)

	// Template renamed, not copied.
	projectDir := filepath.Join(cfg.Paths.InstallRoot, cfg.Project.Folder)
	require.FileExists(t, filepath.Join(projectDir, "keys.json"))
	require.NoFileExists(t, filepath.Join(projectDir, "keys.example.json"))

	data, err := os.ReadFile(filepath.Join(projectDir, "keys.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"OPENAI_API_KEY":""}`, string(data))

	// The consumed archive is gone; the scratch dir keeps the installers.
	scratch := filepath.Join(cfg.Paths.InstallRoot, cfg.Paths.ScratchDir)
	require.NoFileExists(t, filepath.Join(scratch, "main.zip"))
	require.FileExists(t, filepath.Join(scratch, "Git-2.47.1-64-bit.exe"))

	// Dependency install ran streamed, in the project folder.
	require.Len(t, runner.streamed, 1)
	require.Equal(t, projectDir, runner.streamed[0].Dir)
	require.Contains(t, lines, "added 120 packages in 4s")
	require.Contains(t, lines, "Installation Finished")

	// PATH extras were threaded into the overlay for later children.
	require.Equal(t, cfg.Paths.PathExtras, runner.env.PathExtras())
}

func TestPipelineArchiveDownloadFailureIsFatal(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	o, runner, _ := newTestOrchestrator(t, cfg)

	// Tools already present so the run reaches acquisition directly. The
	// fetcher has no payload for the archive URL, so that download fails.
	runner.installed[cfg.Git.Tool] = true
	runner.installed[cfg.Runtime.NodeTool] = true
	runner.installed[cfg.Runtime.NpmTool] = true

	lines, ok := drain(t, o)
	require.False(t, ok)

	require.False(t, MarkerExists(cfg.Paths.InstallRoot))
	require.NoFileExists(t, filepath.Join(cfg.Paths.InstallRoot, cfg.Paths.ScratchDir, "main.zip"))
	require.NoDirExists(t, filepath.Join(cfg.Paths.InstallRoot, cfg.Project.Folder))

	joined := strings.Join(lines, "\n")
	require.Contains(t, joined, "FATAL")
	require.Contains(t, joined, cfg.Project.ArchiveURL)
	require.NotContains(t, joined, "Installation Finished")
}

func TestPipelineDependencyInstallFailureIsFatal(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	o, runner, fetcher := newTestOrchestrator(t, cfg)

	runner.installed[cfg.Git.Tool] = true
	runner.installed[cfg.Runtime.NodeTool] = true
	runner.installed[cfg.Runtime.NpmTool] = true
	fetcher.payloads[cfg.Project.ArchiveURL] = projectZip(t, cfg.Project.Folder)

	runner.streamLines = []string{"npm WARN deprecated something", "npm ERR! code 1"}
	runner.streamOK = false

	lines, ok := drain(t, o)
	require.False(t, ok)
	require.False(t, MarkerExists(cfg.Paths.InstallRoot))

	// Lines streamed before the failure are still in the log.
	require.Contains(t, lines, "npm WARN deprecated something")
	require.Contains(t, lines, "npm ERR! code 1")
}

func TestPipelineMissingPackageManagerIsFatal(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	o, runner, fetcher := newTestOrchestrator(t, cfg)

	runner.installed[cfg.Git.Tool] = true
	runner.installed[cfg.Runtime.NodeTool] = true
	// npm stays missing even after the runtime step's install attempt.
	fetcher.payloads[cfg.Runtime.InstallerURL] = []byte("node installer bits")
	fetcher.payloads[cfg.Project.ArchiveURL] = projectZip(t, cfg.Project.Folder)

	lines, ok := drain(t, o)
	require.False(t, ok)
	require.False(t, MarkerExists(cfg.Paths.InstallRoot))
	require.Contains(t, strings.Join(lines, "\n"), "command not found: npm")
}

func TestPipelineGitFailuresOnlyWarn(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	o, runner, fetcher := newTestOrchestrator(t, cfg)

	// git absent, winget absent, and the git installer download fails too.
	runner.installed[cfg.Runtime.NodeTool] = true
	runner.installed[cfg.Runtime.NpmTool] = true
	fetcher.payloads[cfg.Project.ArchiveURL] = projectZip(t, cfg.Project.Folder)

	lines, ok := drain(t, o)
	require.True(t, ok, "a missing source-control tool must not fail the run")
	require.True(t, MarkerExists(cfg.Paths.InstallRoot))
	require.Contains(t, strings.Join(lines, "\n"), "continuing without it")
}

func TestPipelineUsesPackageManagerRouteForGit(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	o, runner, fetcher := newTestOrchestrator(t, cfg)

	runner.installed[wingetTool] = true
	runner.installed[cfg.Runtime.NodeTool] = true
	runner.installed[cfg.Runtime.NpmTool] = true
	fetcher.payloads[cfg.Project.ArchiveURL] = projectZip(t, cfg.Project.Folder)

	// winget install makes git resolvable.
	runner.onRun = func(spec execx.Spec) {
		if spec.Name == wingetTool {
			runner.installed[cfg.Git.Tool] = true
		}
	}

	_, ok := drain(t, o)
	require.True(t, ok)

	var wingetCalled bool
	for _, call := range runner.runCalls {
		if call.Name == wingetTool {
			wingetCalled = true
			require.Contains(t, call.Args, cfg.Git.WingetID)
		}
	}
	require.True(t, wingetCalled)

	// The vendor installer route was never needed.
	require.NotContains(t, fetcher.payloads, cfg.Git.InstallerURL)
	require.NoFileExists(t, filepath.Join(cfg.Paths.InstallRoot, cfg.Paths.ScratchDir, "Git-2.47.1-64-bit.exe"))
}

func TestPipelineIsRerunnableAfterSuccess(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)

	runOnce := func() {
		o, runner, fetcher := newTestOrchestrator(t, cfg)
		runner.installed[cfg.Git.Tool] = true
		runner.installed[cfg.Runtime.NodeTool] = true
		runner.installed[cfg.Runtime.NpmTool] = true
		fetcher.payloads[cfg.Project.ArchiveURL] = projectZip(t, cfg.Project.Folder)

		_, ok := drain(t, o)
		require.True(t, ok)
	}

	runOnce()

	// Leave debris a rerun must clear: a stray file in the project folder
	// and a stale archive in scratch.
	projectDir := filepath.Join(cfg.Paths.InstallRoot, cfg.Project.Folder)
	stray := filepath.Join(projectDir, "node_modules_leftover")
	require.NoError(t, os.WriteFile(stray, []byte("stale"), 0o644))
	staleArchive := filepath.Join(cfg.Paths.InstallRoot, cfg.Paths.ScratchDir, "main.zip")
	require.NoError(t, os.WriteFile(staleArchive, []byte("stale"), 0o644))

	first, err := ReadMarker(cfg.Paths.InstallRoot)
	require.NoError(t, err)

	runOnce()

	require.NoFileExists(t, stray, "stale project folder must be replaced")
	second, err := ReadMarker(cfg.Paths.InstallRoot)
	require.NoError(t, err)
	require.NotNil(t, second.Settings)
	require.Empty(t, second.Settings)
	require.GreaterOrEqual(t, second.Downloaded, first.Downloaded)
}

func TestPipelineCloneModeAcquiresSource(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Project.Source = "clone"

	o, runner, _ := newTestOrchestrator(t, cfg)
	runner.installed[cfg.Git.Tool] = true
	runner.installed[cfg.Runtime.NodeTool] = true
	runner.installed[cfg.Runtime.NpmTool] = true

	o.clone = func(ctx context.Context, url, dest string, progress io.Writer) error {
		require.Equal(t, cfg.Project.CloneURL, url)
		fmt.Fprintln(progress, "Counting objects: 100% (10/10)")
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dest, "package.json"), []byte("{}"), 0o644)
	}

	lines, ok := drain(t, o)
	require.True(t, ok)
	require.Contains(t, lines, "Counting objects: 100% (10/10)")
	require.FileExists(t, filepath.Join(cfg.Paths.InstallRoot, cfg.Project.Folder, "package.json"))
}

func TestPipelineCloneModeWithoutArchiveURLKeepsScratch(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Project.Source = "clone"
	cfg.Project.ArchiveURL = ""

	o, runner, _ := newTestOrchestrator(t, cfg)
	runner.installed[cfg.Git.Tool] = true
	runner.installed[cfg.Runtime.NodeTool] = true
	runner.installed[cfg.Runtime.NpmTool] = true

	// Installer artifacts left behind by an earlier run live in scratch and
	// must survive reruns; with no archive URL there is no stale archive to
	// clear, and the scratch directory itself must never be a candidate.
	scratch := filepath.Join(cfg.Paths.InstallRoot, cfg.Paths.ScratchDir)
	require.NoError(t, os.MkdirAll(scratch, 0o755))
	keeper := filepath.Join(scratch, "node-installer.msi")
	require.NoError(t, os.WriteFile(keeper, []byte("installer bits"), 0o644))

	o.clone = func(ctx context.Context, url, dest string, progress io.Writer) error {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dest, "package.json"), []byte("{}"), 0o644)
	}

	_, ok := drain(t, o)
	require.True(t, ok)
	require.FileExists(t, keeper)
}

func TestPipelineCloneFailureIsFatal(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Project.Source = "clone"

	o, runner, _ := newTestOrchestrator(t, cfg)
	runner.installed[cfg.Git.Tool] = true
	runner.installed[cfg.Runtime.NodeTool] = true
	runner.installed[cfg.Runtime.NpmTool] = true

	o.clone = func(ctx context.Context, url, dest string, progress io.Writer) error {
		_ = os.MkdirAll(dest, 0o755)
		return fmt.Errorf("remote hung up")
	}

	_, ok := drain(t, o)
	require.False(t, ok)
	require.False(t, MarkerExists(cfg.Paths.InstallRoot))
	// The partial clone folder is removed before the failure surfaces.
	require.NoDirExists(t, filepath.Join(cfg.Paths.InstallRoot, cfg.Project.Folder))
}

func TestPipelineRestoresWorkingDirectory(t *testing.T) {
	cfg := testConfig(t)
	o, runner, fetcher := newTestOrchestrator(t, cfg)

	runner.installed[cfg.Git.Tool] = true
	runner.installed[cfg.Runtime.NodeTool] = true
	runner.installed[cfg.Runtime.NpmTool] = true
	fetcher.payloads[cfg.Project.ArchiveURL] = projectZip(t, cfg.Project.Folder)

	before, err := os.Getwd()
	require.NoError(t, err)

	_, ok := drain(t, o)
	require.True(t, ok)

	after, err := os.Getwd()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestPipelineKeepsExistingKeysFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	o, _, _ := newTestOrchestrator(t, cfg)

	projectDir := filepath.Join(cfg.Paths.InstallRoot, cfg.Project.Folder)
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "keys.json"), []byte(`{"real":"secret"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "keys.example.json"), []byte(`{}`), 0o644))

	require.NoError(t, o.materializeKeys(context.Background()))

	data, err := os.ReadFile(filepath.Join(projectDir, "keys.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"real":"secret"}`, string(data))
	// The template stays put when the real file already exists.
	require.FileExists(t, filepath.Join(projectDir, "keys.example.json"))
}

func TestStartIsSingleFlight(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	o, runner, fetcher := newTestOrchestrator(t, cfg)
	runner.installed[cfg.Git.Tool] = true
	runner.installed[cfg.Runtime.NodeTool] = true
	runner.installed[cfg.Runtime.NpmTool] = true
	fetcher.payloads[cfg.Project.ArchiveURL] = projectZip(t, cfg.Project.Folder)

	o.Start(context.Background())
	o.Start(context.Background()) // ignored; only one worker runs

	var outcomes int
	for ev := range o.Events() {
		if _, done := ev.(DoneEvent); done {
			outcomes++
		}
	}
	require.Equal(t, 1, outcomes)
}
