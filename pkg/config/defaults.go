package config

import (
	"path/filepath"

	"github.com/p4forge/p4forge/pkg/registry"
)

// Defaults returns the built-in configuration layer: a model-target release
// build of the core driver stack for first-generation chips, installed under
// sdeRoot/install.
func Defaults(sdeRoot string) Configuration {
	return Configuration{
		Packages: []string{
			"bf-syslibs",
			"bf-utils",
			"bf-drivers",
			"tofino-model",
		},
		Architectures:    []registry.Architecture{registry.ArchTofino},
		DeploymentTarget: TargetModel,
		BuildType:        BuildTypeRelease,
		InstallPrefix:    filepath.Join(sdeRoot, "install"),
		ControlPlane:     ControlPlaneNone,
		Advanced:         map[string]bool{},
	}
}
