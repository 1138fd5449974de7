package execx

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Overlay is an explicit view of the child-process environment. Directories
// appended here extend the search path for every subsequent launch without
// mutating the provisioner's own process environment.
type Overlay struct {
	pathExtras []string
}

// NewOverlay creates an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{}
}

// AppendPath adds directories to the end of the child search path. Missing
// directories are tolerated; duplicates are dropped.
func (o *Overlay) AppendPath(dirs ...string) {
	for _, dir := range dirs {
		if dir == "" || o.contains(dir) {
			continue
		}
		o.pathExtras = append(o.pathExtras, dir)
	}
}

// PathExtras returns the appended directories in order.
func (o *Overlay) PathExtras() []string {
	return append([]string(nil), o.pathExtras...)
}

// Environ returns the process environment with PATH extended by the overlay.
func (o *Overlay) Environ() []string {
	env := os.Environ()
	if len(o.pathExtras) == 0 {
		return env
	}

	sep := string(os.PathListSeparator)
	extra := strings.Join(o.pathExtras, sep)
	for i, kv := range env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.EqualFold(key, "PATH") {
			continue
		}
		env[i] = key + "=" + value + sep + extra
		return env
	}
	return append(env, "PATH="+extra)
}

// LookPath resolves an executable name against the process search path first,
// then against the overlay's appended directories.
func (o *Overlay) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err == nil {
		return path, nil
	}

	for _, dir := range o.pathExtras {
		for _, candidate := range executableCandidates(filepath.Join(dir, name)) {
			info, statErr := os.Stat(candidate)
			if statErr == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}

	return "", err
}

func (o *Overlay) contains(dir string) bool {
	for _, existing := range o.pathExtras {
		if strings.EqualFold(filepath.Clean(existing), filepath.Clean(dir)) {
			return true
		}
	}
	return false
}

func executableCandidates(base string) []string {
	if runtime.GOOS != "windows" {
		return []string{base}
	}
	if ext := filepath.Ext(base); ext != "" {
		return []string{base}
	}
	return []string{base + ".exe", base + ".cmd", base + ".bat", base}
}
