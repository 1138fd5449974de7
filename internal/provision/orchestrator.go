// Package provision implements the first-run provisioning pipeline: probe
// for prerequisite tools, install the missing ones, acquire the application
// payload, install its dependencies, and finalize the workspace. The whole
// pipeline runs on one worker goroutine and reports to its supervisor over a
// single ordered event stream.
package provision

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mindcraft-ce/provisioner/internal/config"
	"github.com/mindcraft-ce/provisioner/internal/execx"
	"github.com/mindcraft-ce/provisioner/internal/fetch"
	"github.com/mindcraft-ce/provisioner/internal/logger"
)

// commandRunner is the slice of execx the pipeline needs. Tests substitute a
// fake; production uses *execx.Runner.
type commandRunner interface {
	Run(ctx context.Context, spec execx.Spec) (execx.Result, error)
	RunStreaming(spec execx.Spec) bool
	ToolInstalled(ctx context.Context, name, versionFlag string) bool
	Env() *execx.Overlay
}

// artifactFetcher retrieves a remote artifact to a local path, returning a
// verdict instead of an error: acquisition failure is a reportable
// condition, and the pipeline decides per artifact whether it is fatal.
type artifactFetcher interface {
	Download(ctx context.Context, url, dest string) bool
}

// step is one stage of the pipeline. Failure of a fatal step aborts the run;
// a non-fatal step logs its error as a warning and the pipeline proceeds.
// Steps whose precondition already holds skip themselves internally.
type step struct {
	name  string
	fatal bool
	run   func(ctx context.Context) error
}

// Orchestrator executes the provisioning pipeline once and delivers its
// progress and terminal outcome to a supervising context.
type Orchestrator struct {
	cfg *config.Config
	log *logger.Logger

	runner  commandRunner
	fetcher artifactFetcher
	clone   cloneFunc

	events chan Event
	once   sync.Once
	now    func() time.Time
}

// New wires an Orchestrator for the given configuration. The runner and
// fetcher report through the same event stream the steps use, so child
// process output and download progress appear interleaved with the section
// headers, in the order they happened.
func New(cfg *config.Config, log *logger.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		log:    log,
		events: make(chan Event, 1024),
		now:    time.Now,
	}
	o.runner = execx.NewRunner(execx.NewOverlay(), o.emit)
	o.fetcher = fetch.New(time.Duration(cfg.Network.TimeoutSeconds)*time.Second, o.emit)
	o.clone = gitClone
	return o
}

// Events returns the ordered event stream for this run. It yields log events
// while the worker runs, then exactly one DoneEvent, then closes.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Start launches the pipeline on its own worker goroutine. It must be called
// at most once per Orchestrator; further calls are ignored.
func (o *Orchestrator) Start(ctx context.Context) {
	o.once.Do(func() {
		go o.run(ctx)
	})
}

func (o *Orchestrator) emit(text string) {
	o.events <- LogEvent{Time: o.now(), Text: text}
}

// run drives the step sequence. Every fatal condition funnels through the
// single recovery point at the bottom: it is logged with its kind, message,
// and (for faults) a stack trace, converted to a failed outcome, and never
// surfaces to the supervisor as anything but DoneEvent{false}.
func (o *Orchestrator) run(ctx context.Context) {
	success := false

	originalWD, wdErr := os.Getwd()
	if wdErr != nil {
		o.log.Error(wdErr, "could not record working directory")
	}

	defer func() {
		if r := recover(); r != nil {
			o.emit(fmt.Sprintf("Unexpected fault: %v", r))
			o.emit(string(debug.Stack()))
			o.log.Error(fmt.Errorf("%v", r), "provisioning panicked")
			success = false
		}

		if wdErr == nil {
			if err := os.Chdir(originalWD); err != nil {
				o.emit(fmt.Sprintf("Warning: could not restore working directory %s: %v", originalWD, err))
				o.log.Error(err, "restoring working directory failed")
			}
		}

		o.events <- DoneEvent{Success: success}
		close(o.events)
	}()

	o.emit("Installation Started")

	for _, s := range o.steps() {
		o.emit("==> " + s.name)
		err := s.run(ctx)
		if err == nil {
			continue
		}

		if s.fatal {
			o.emit(fmt.Sprintf("FATAL [%T]: %v", err, err))
			o.log.Error(err, "provisioning aborted at step: "+s.name)
			return
		}

		o.emit(fmt.Sprintf("Warning [%T]: %v", err, err))
		o.log.WithStep(s.name).Warnf("step degraded: %v", err)
	}

	o.emit("Installation Finished")
	success = true
}

func (o *Orchestrator) steps() []step {
	return []step{
		{name: "Preparing directories", fatal: true, run: o.prepareDirectories},
		{name: "Ensuring Git", fatal: false, run: o.ensureGit},
		{name: "Ensuring Node.js runtime", fatal: true, run: o.ensureRuntime},
		{name: "Fetching project source", fatal: true, run: o.fetchProject},
		{name: "Installing project dependencies", fatal: true, run: o.installDependencies},
		{name: "Materializing key file", fatal: false, run: o.materializeKeys},
		{name: "Finalizing installation", fatal: true, run: o.finalize},
	}
}
