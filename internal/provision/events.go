package provision

import "time"

// Event is one item on the orchestrator's ordered event stream: every run
// produces zero or more LogEvents followed by exactly one DoneEvent, after
// which the stream is closed.
type Event interface {
	isEvent()
}

// LogEvent is an immutable timestamped progress line.
type LogEvent struct {
	Time time.Time
	Text string
}

func (LogEvent) isEvent() {}

// DoneEvent is the terminal outcome of a run.
type DoneEvent struct {
	Success bool
}

func (DoneEvent) isEvent() {}
