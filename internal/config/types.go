package config

// Config represents the full provisioning configuration document.
type Config struct {
	Version string  `yaml:"version" validate:"required,semver"`
	Name    string  `yaml:"name" validate:"required,min=1,max=100"`
	Paths   Paths   `yaml:"paths"`
	Network Network `yaml:"network"`
	Git     Git     `yaml:"git" validate:"required"`
	Runtime Runtime `yaml:"runtime" validate:"required"`
	Project Project `yaml:"project" validate:"required"`
}

// Paths holds filesystem locations used by the pipeline.
type Paths struct {
	// InstallRoot is where the project folder and the finalization marker
	// live. Empty means the current working directory.
	InstallRoot string `yaml:"install_root,omitempty"`
	// ScratchDir is the subdirectory of InstallRoot that receives downloaded
	// installer artifacts. It is not cleaned up automatically.
	ScratchDir string `yaml:"scratch_dir,omitempty"`
	// PathExtras are directories appended to the child-process search path
	// after the runtime install, so freshly installed tools resolve without
	// a session restart.
	PathExtras []string `yaml:"path_extras,omitempty"`
}

// Network holds HTTP client parameters for artifact downloads.
type Network struct {
	// TimeoutSeconds bounds connection setup and the response-header wait
	// per download. Zero or absent selects the built-in 30 second default.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1,max=600"`
}

// Git describes how the source-control tool is probed and installed.
type Git struct {
	Tool          string   `yaml:"tool" validate:"required"`
	InstallerURL  string   `yaml:"installer_url" validate:"required,http_url"`
	InstallerArgs []string `yaml:"installer_args,omitempty"`
	// WingetID selects the system package manager route when winget is
	// available; empty disables that route.
	WingetID string `yaml:"winget_id,omitempty"`
	// SettleSeconds is the wait between a package-manager install attempt
	// and its re-verification. Absent selects the built-in default; an
	// explicit 0 disables the wait.
	SettleSeconds *int `yaml:"settle_seconds,omitempty" validate:"omitempty,min=0,max=120"`
}

// Runtime describes the JavaScript runtime and package manager.
type Runtime struct {
	NodeTool     string `yaml:"node_tool" validate:"required"`
	NpmTool      string `yaml:"npm_tool" validate:"required"`
	InstallerURL string `yaml:"installer_url" validate:"required,http_url"`
}

// Project describes the application payload and its workspace bootstrap.
type Project struct {
	// Source selects how the payload is acquired: "archive" downloads and
	// extracts a zip, "clone" uses git over the network.
	Source      string `yaml:"source,omitempty" validate:"omitempty,oneof=archive clone"`
	ArchiveURL  string `yaml:"archive_url,omitempty" validate:"omitempty,http_url"`
	CloneURL    string `yaml:"clone_url,omitempty" validate:"omitempty,http_url"`
	Folder      string `yaml:"folder" validate:"required"`
	KeysExample string `yaml:"keys_example,omitempty"`
	KeysFile    string `yaml:"keys_file,omitempty"`
}

// Defaults returns the built-in configuration describing the mindcraft-ce
// payload. A config file is optional; flags and files override this.
func Defaults() *Config {
	return &Config{
		Version: "1.0.0",
		Name:    "mindcraft-ce",
		Paths: Paths{
			InstallRoot: ".",
			ScratchDir:  "downloads",
			PathExtras: []string{
				`C:\Program Files\Git\cmd`,
				`C:\Program Files\nodejs`,
			},
		},
		Network: Network{TimeoutSeconds: 30},
		Git: Git{
			Tool:         "git",
			InstallerURL: "https://github.com/git-for-windows/git/releases/download/v2.47.1.windows.1/Git-2.47.1-64-bit.exe",
			InstallerArgs: []string{
				"/VERYSILENT", "/NORESTART", "/SUPPRESSMSGBOXES",
			},
			WingetID:      "Git.Git",
			SettleSeconds: intPtr(5),
		},
		Runtime: Runtime{
			NodeTool:     "node",
			NpmTool:      "npm",
			InstallerURL: "https://nodejs.org/dist/v22.11.0/node-v22.11.0-x64.msi",
		},
		Project: Project{
			Source:      "archive",
			ArchiveURL:  "https://github.com/mindcraft-ce/mindcraft-ce/archive/refs/heads/main.zip",
			CloneURL:    "https://github.com/mindcraft-ce/mindcraft-ce.git",
			Folder:      "mindcraft-ce-main",
			KeysExample: "keys.example.json",
			KeysFile:    "keys.json",
		},
	}
}

func intPtr(n int) *int { return &n }

func (c *Config) applyDefaults() {
	base := Defaults()
	if c.Paths.InstallRoot == "" {
		c.Paths.InstallRoot = base.Paths.InstallRoot
	}
	if c.Paths.ScratchDir == "" {
		c.Paths.ScratchDir = base.Paths.ScratchDir
	}
	if c.Network.TimeoutSeconds == 0 {
		c.Network.TimeoutSeconds = base.Network.TimeoutSeconds
	}
	if c.Git.SettleSeconds == nil {
		c.Git.SettleSeconds = base.Git.SettleSeconds
	}
	if c.Project.Source == "" {
		c.Project.Source = base.Project.Source
	}
	if c.Project.KeysExample == "" {
		c.Project.KeysExample = base.Project.KeysExample
	}
	if c.Project.KeysFile == "" {
		c.Project.KeysFile = base.Project.KeysFile
	}
}
