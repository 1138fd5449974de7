//go:build windows

package execx

import "syscall"

// sysProcAttr suppresses the transient console window a child process would
// otherwise open when the provisioner runs as a GUI-subsystem binary.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{HideWindow: true}
}
