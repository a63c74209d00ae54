// Package settings loads the tool's own operating settings: the SDE root
// path (the single environment contract shared with the external runner
// scripts), the workspace directory layout derived from it, and tool
// defaults like the job count. These are distinct from the build
// Configuration: settings describe where the tool works, the Configuration
// describes what it builds.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// EnvSDERoot is the environment variable naming the installed SDE tree.
// External runner scripts consume the same variable.
const EnvSDERoot = "SDE"

// SettingsFile is the optional per-workspace settings file name.
const SettingsFile = "p4forge.yaml"

// Settings is the tool's resolved operating environment.
type Settings struct {
	// SDERoot is the workspace root directory.
	SDERoot string `mapstructure:"sde_root"`

	// SourceRoot, BuildRoot, LogDir, and PackageDir are the workspace
	// subdirectories, all under SDERoot unless overridden.
	SourceRoot string `mapstructure:"source_root"`
	BuildRoot  string `mapstructure:"build_root"`
	LogDir     string `mapstructure:"log_dir"`
	PackageDir string `mapstructure:"package_dir"`

	// ProfilePath is the persisted workspace configuration (a profile
	// document written by configure/interactive/profile apply and read
	// by build).
	ProfilePath string `mapstructure:"profile_path"`

	// DBPath is the run-history database location.
	DBPath string `mapstructure:"db_path"`

	// Jobs is the default build parallelism.
	Jobs int `mapstructure:"jobs"`

	// MetricsListen is an optional address for the Prometheus endpoint
	// (empty disables it).
	MetricsListen string `mapstructure:"metrics_listen"`
}

// Load resolves settings from defaults, the optional settings file under the
// SDE root, and the environment. Environment wins over file, file over
// defaults.
func Load() (Settings, error) {
	v := viper.New()

	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	v.SetDefault("sde_root", root)
	v.SetDefault("jobs", runtime.NumCPU())
	v.SetDefault("metrics_listen", "")

	v.SetEnvPrefix("P4FORGE")
	v.AutomaticEnv()
	if err := v.BindEnv("sde_root", EnvSDERoot); err != nil {
		return Settings{}, err
	}

	// The settings file lives under the SDE root, so resolve the root
	// first and then look for the file.
	sdeRoot := v.GetString("sde_root")
	v.SetConfigFile(filepath.Join(sdeRoot, SettingsFile))
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s.applyDerivedDefaults()
	return s, nil
}

// applyDerivedDefaults fills the workspace layout from the SDE root for any
// path not set explicitly.
func (s *Settings) applyDerivedDefaults() {
	if s.SourceRoot == "" {
		s.SourceRoot = filepath.Join(s.SDERoot, "pkgsrc")
	}
	if s.BuildRoot == "" {
		s.BuildRoot = filepath.Join(s.SDERoot, "build")
	}
	if s.LogDir == "" {
		s.LogDir = filepath.Join(s.SDERoot, "logs")
	}
	if s.PackageDir == "" {
		s.PackageDir = filepath.Join(s.SDERoot, "packages")
	}
	if s.ProfilePath == "" {
		s.ProfilePath = filepath.Join(s.SDERoot, "p4forge-profile.yaml")
	}
	if s.DBPath == "" {
		s.DBPath = filepath.Join(s.SDERoot, "p4forge.db")
	}
	if s.Jobs <= 0 {
		s.Jobs = runtime.NumCPU()
	}
}

// InstallPrefix returns the default install prefix for this workspace.
func (s Settings) InstallPrefix() string {
	return filepath.Join(s.SDERoot, "install")
}
