package execx

import (
	"context"
	"fmt"
)

// DefaultVersionFlag is the conventional flag most tools answer a version
// query with.
const DefaultVersionFlag = "--version"

// ToolInstalled reports whether the named executable resolves on the search
// path (process PATH plus overlay). When versionFlag is non-empty the tool is
// additionally invoked with it, but purely as a diagnostic: presence on the
// path is sufficient evidence of installation, and some tools exit nonzero on
// a version query while being fully usable.
func (r *Runner) ToolInstalled(ctx context.Context, name, versionFlag string) bool {
	if _, err := r.env.LookPath(name); err != nil {
		return false
	}

	if versionFlag != "" {
		res, err := r.Run(ctx, Spec{Name: name, Args: []string{versionFlag}})
		if err != nil {
			r.sink(fmt.Sprintf("%s resolved on the search path but %s %s failed: %v", name, name, versionFlag, err))
		} else if res.Stdout != "" {
			r.sink(fmt.Sprintf("%s reports: %s", name, firstLine(res.Stdout)))
		}
	}

	return true
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' || c == '\r' {
			return s[:i]
		}
	}
	return s
}
