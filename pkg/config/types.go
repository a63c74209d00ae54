// Package config defines the immutable build Configuration and the
// three-layer resolver that produces it from built-in defaults, profile
// values, and command-line overrides.
package config

import (
	"fmt"
	"sort"

	"github.com/p4forge/p4forge/pkg/registry"
)

// BuildType is the CMake-style build flavor, one of a fixed enumerated set.
type BuildType string

const (
	// BuildTypeDebug builds with debug info and no optimization.
	BuildTypeDebug BuildType = "debug"

	// BuildTypeRelease builds optimized without debug info.
	BuildTypeRelease BuildType = "release"

	// BuildTypeRelWithDebInfo builds optimized with debug info.
	BuildTypeRelWithDebInfo BuildType = "relwithdebinfo"
)

// Validate checks that the build type is one of the enumerated set.
func (b BuildType) Validate() error {
	switch b {
	case BuildTypeDebug, BuildTypeRelease, BuildTypeRelWithDebInfo:
		return nil
	default:
		return fmt.Errorf("invalid build type: %q", b)
	}
}

// DeploymentTarget distinguishes runs against the simulation model from runs
// on hardware. Hardware targets require a board-support package.
type DeploymentTarget string

const (
	// TargetModel deploys against the simulation model binary.
	TargetModel DeploymentTarget = "model"

	// TargetHardware deploys on a physical switch.
	TargetHardware DeploymentTarget = "hardware"
)

// ControlPlane selects the control-plane code associated with the chosen P4
// program set.
type ControlPlane string

const (
	// ControlPlaneNone builds the programs without control-plane code.
	ControlPlaneNone ControlPlane = "none"

	// ControlPlaneBFRT pairs the programs with the bf-runtime interface.
	ControlPlaneBFRT ControlPlane = "bfrt"

	// ControlPlaneSwitch pairs the switch-p4-16 profile with its API.
	ControlPlaneSwitch ControlPlane = "switch"
)

// KDirAuto is the kernel-header path marker that explicitly permits
// auto-detection against the running kernel.
const KDirAuto = "auto"

// AdvancedFlags is the set of recognized advanced-option toggles.
var AdvancedFlags = []string{"asan", "coverage", "tcmalloc", "static-libs", "thrift-driver"}

// Configuration is one immutable build configuration snapshot. It is created
// by Resolve and never mutated afterwards; one Configuration corresponds to
// exactly one build invocation or one profile document.
type Configuration struct {
	// Packages is the selected package set, dependency-closed and sorted.
	Packages []string `validate:"required,min=1"`

	// Architectures is the selected chip architecture set, sorted.
	Architectures []registry.Architecture `validate:"required,min=1"`

	// DeploymentTarget is where the build output will run.
	DeploymentTarget DeploymentTarget `validate:"required,oneof=model hardware"`

	// BuildType is the build flavor.
	BuildType BuildType `validate:"required,oneof=debug release relwithdebinfo"`

	// InstallPrefix is the root of the installed tree. Every package build
	// step receives it so downstream artifact placement finds one root.
	InstallPrefix string `validate:"required"`

	// BSPPath is the board-support-package path, required for hardware
	// deployment targets.
	BSPPath string

	// P4PPFlags holds P4 preprocessor flags.
	P4PPFlags string

	// ExtraCPPFlags holds extra C preprocessor flags.
	ExtraCPPFlags string

	// P4Flags holds P4 compiler flags.
	P4Flags string

	// KernelModules requests the kernel module build.
	KernelModules bool

	// KDir is the kernel header path, or KDirAuto to permit detection
	// against the running kernel. Required when KernelModules is set.
	KDir string

	// P4Programs is the selected P4 program set, sorted.
	P4Programs []string

	// ControlPlane is the control-plane code paired with P4Programs.
	ControlPlane ControlPlane `validate:"omitempty,oneof=none bfrt switch"`

	// Advanced maps recognized advanced-option toggles to their state.
	Advanced map[string]bool
}

// normalize sorts the slice-valued fields so equal configurations compare
// equal regardless of input order.
func (c *Configuration) normalize() {
	sort.Strings(c.Packages)
	sort.Slice(c.Architectures, func(i, j int) bool {
		return c.Architectures[i] < c.Architectures[j]
	})
	sort.Strings(c.P4Programs)
}

// Equal reports field-for-field equality of two configurations.
func (c Configuration) Equal(other Configuration) bool {
	if len(c.Packages) != len(other.Packages) ||
		len(c.Architectures) != len(other.Architectures) ||
		len(c.P4Programs) != len(other.P4Programs) ||
		len(c.Advanced) != len(other.Advanced) {
		return false
	}
	for i := range c.Packages {
		if c.Packages[i] != other.Packages[i] {
			return false
		}
	}
	for i := range c.Architectures {
		if c.Architectures[i] != other.Architectures[i] {
			return false
		}
	}
	for i := range c.P4Programs {
		if c.P4Programs[i] != other.P4Programs[i] {
			return false
		}
	}
	for k, v := range c.Advanced {
		if other.Advanced[k] != v {
			return false
		}
	}
	return c.DeploymentTarget == other.DeploymentTarget &&
		c.BuildType == other.BuildType &&
		c.InstallPrefix == other.InstallPrefix &&
		c.BSPPath == other.BSPPath &&
		c.P4PPFlags == other.P4PPFlags &&
		c.ExtraCPPFlags == other.ExtraCPPFlags &&
		c.P4Flags == other.P4Flags &&
		c.KernelModules == other.KernelModules &&
		c.KDir == other.KDir &&
		c.ControlPlane == other.ControlPlane
}
