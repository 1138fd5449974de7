package errors

import (
	"fmt"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CommandError reports a child process that ran to completion but exited
// nonzero. Stdout/Stderr hold whatever the process wrote before exiting.
type CommandError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

// NewCommandError constructs a CommandError.
func NewCommandError(command string, exitCode int, stdout, stderr string) error {
	return &CommandError{Command: command, ExitCode: exitCode, Stdout: stdout, Stderr: stderr}
}

func (e *CommandError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
}

// StreamedCommandError reports a streamed child process whose verdict was
// failure. Its output has already been delivered line by line, so only the
// command is carried here.
type StreamedCommandError struct {
	Command string
}

// NewStreamedCommandError constructs a StreamedCommandError.
func NewStreamedCommandError(command string) error {
	return &StreamedCommandError{Command: command}
}

func (e *StreamedCommandError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("streamed command %q failed", e.Command)
}

// CommandNotFoundError reports an executable that could not be resolved on
// the search path.
type CommandNotFoundError struct {
	Name string
	Err  error
}

// NewCommandNotFoundError constructs a CommandNotFoundError.
func NewCommandNotFoundError(name string, err error) error {
	return &CommandNotFoundError{Name: name, Err: err}
}

func (e *CommandNotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("command not found: %s", e.Name)
}

// Unwrap exposes the underlying error.
func (e *CommandNotFoundError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DownloadError reports a failed artifact retrieval.
type DownloadError struct {
	URL string
	Err error
}

// NewDownloadError constructs a DownloadError.
func NewDownloadError(url string, err error) error {
	return &DownloadError{URL: url, Err: err}
}

func (e *DownloadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("download failed: %s: %v", e.URL, e.Err)
}

// Unwrap exposes the underlying error.
func (e *DownloadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExtractionError reports an archive that could not be unpacked, or one that
// unpacked cleanly without producing the expected layout.
type ExtractionError struct {
	Archive string
	Message string
	Err     error
}

// NewExtractionError constructs an ExtractionError.
func NewExtractionError(archive, message string, err error) error {
	return &ExtractionError{Archive: archive, Message: message, Err: err}
}

func (e *ExtractionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return fmt.Sprintf("extraction error: %s: %s", e.Archive, e.Message)
	}
	return fmt.Sprintf("extraction error: %s: %v", e.Archive, e.Err)
}

// Unwrap exposes the underlying error.
func (e *ExtractionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FilesystemError reports a failed create/remove/rename of a required path.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

// NewFilesystemError constructs a FilesystemError.
func NewFilesystemError(op, path string, err error) error {
	return &FilesystemError{Op: op, Path: path, Err: err}
}

func (e *FilesystemError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("filesystem error: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the underlying error.
func (e *FilesystemError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
