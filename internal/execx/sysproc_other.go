//go:build !windows

package execx

import "syscall"

// sysProcAttr is a no-op outside Windows; there is no console window to hide.
func sysProcAttr() *syscall.SysProcAttr {
	return nil
}
