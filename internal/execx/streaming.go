package execx

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// killWait bounds how long a hung child is given to die during exceptional
// cleanup before the failure is surfaced anyway.
const killWait = 5 * time.Second

// RunStreaming launches the command with stdout and stderr merged into one
// stream and forwards each line to the sink as it arrives, so a long install
// shows live progress instead of a silent wait. The verdict is the return
// value: true iff the process exited zero. A failing sub-install is an
// expected condition here, not a programming error, so nothing is raised.
func (r *Runner) RunStreaming(spec Spec) bool {
	path, err := r.env.LookPath(spec.Name)
	if err != nil {
		r.sink(fmt.Sprintf("Cannot run %q: executable not found on the search path", spec.Name))
		return false
	}

	r.sink(fmt.Sprintf("Running (streaming): %s (cwd: %s)", spec.String(), displayDir(spec.Dir)))

	cmd := exec.Command(path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = r.env.Environ()
	cmd.SysProcAttr = sysProcAttr()

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		r.sink(fmt.Sprintf("Failed to start %q: %v", spec.Name, err))
		return false
	}

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
		pw.Close()
	}()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		r.sink(scanner.Text())
	}

	if scanErr := scanner.Err(); scanErr != nil {
		r.sink(fmt.Sprintf("Output stream broke mid-run: %v", scanErr))
		r.killAndWait(cmd, waitCh)
		return false
	}

	if waitErr := <-waitCh; waitErr != nil {
		r.sink(fmt.Sprintf("Command %q failed: %v", spec.String(), waitErr))
		return false
	}

	return true
}

func (r *Runner) killAndWait(cmd *exec.Cmd, waitCh <-chan error) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-waitCh:
	case <-time.After(killWait):
		r.sink("Child process did not exit after kill; abandoning it")
	}
}
