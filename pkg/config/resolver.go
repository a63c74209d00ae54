package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/p4forge/p4forge/pkg/errdefs"
	"github.com/p4forge/p4forge/pkg/graph"
	"github.com/p4forge/p4forge/pkg/registry"
)

// Overrides is one configuration layer. Nil fields are unset and leave the
// lower layer's value in place; merging is field-by-field, never
// whole-document replacement.
type Overrides struct {
	Packages         []string
	Architectures    []registry.Architecture
	DeploymentTarget *DeploymentTarget
	BuildType        *BuildType
	InstallPrefix    *string
	BSPPath          *string
	P4PPFlags        *string
	ExtraCPPFlags    *string
	P4Flags          *string
	KernelModules    *bool
	KDir             *string
	P4Programs       []string
	ControlPlane     *ControlPlane
	Advanced         map[string]bool
}

// IsZero reports whether the layer sets nothing.
func (o Overrides) IsZero() bool {
	return o.Packages == nil && o.Architectures == nil &&
		o.DeploymentTarget == nil && o.BuildType == nil &&
		o.InstallPrefix == nil && o.BSPPath == nil &&
		o.P4PPFlags == nil && o.ExtraCPPFlags == nil && o.P4Flags == nil &&
		o.KernelModules == nil && o.KDir == nil &&
		o.P4Programs == nil && o.ControlPlane == nil && o.Advanced == nil
}

// Resolver merges configuration layers into validated Configuration
// snapshots against a fixed package registry.
type Resolver struct {
	reg      *registry.Registry
	validate *validator.Validate
}

// NewResolver creates a resolver over the given registry.
func NewResolver(reg *registry.Registry) *Resolver {
	return &Resolver{
		reg:      reg,
		validate: validator.New(),
	}
}

// Resolve merges defaults, profile overrides, and CLI overrides (CLI wins
// over profile, profile wins over defaults) into one validated, immutable
// Configuration. The selected package set is expanded to its dependency
// closure; missing dependencies are auto-included, never rejected.
//
// Resolve is deterministic: the same three inputs always produce an
// identical Configuration.
func (r *Resolver) Resolve(defaults Configuration, profile, cli Overrides) (Configuration, error) {
	cfg := defaults
	cfg.Packages = append([]string(nil), defaults.Packages...)
	cfg.Architectures = append([]registry.Architecture(nil), defaults.Architectures...)
	cfg.P4Programs = append([]string(nil), defaults.P4Programs...)
	cfg.Advanced = make(map[string]bool, len(defaults.Advanced))
	for k, v := range defaults.Advanced {
		cfg.Advanced[k] = v
	}

	for _, layer := range []Overrides{profile, cli} {
		applyLayer(&cfg, layer)
	}

	cfg.normalize()

	if err := r.validateConfiguration(&cfg); err != nil {
		return Configuration{}, err
	}

	// Closure property: every selected package's dependencies must be in
	// the selection. Expand rather than reject.
	closed, err := graph.NewResolver(r.reg).Closure(cfg.Packages)
	if err != nil {
		return Configuration{}, err
	}
	cfg.Packages = closed

	return cfg, nil
}

// applyLayer overlays one override layer onto cfg, field by field.
func applyLayer(cfg *Configuration, layer Overrides) {
	if layer.Packages != nil {
		cfg.Packages = append([]string(nil), layer.Packages...)
	}
	if layer.Architectures != nil {
		cfg.Architectures = append([]registry.Architecture(nil), layer.Architectures...)
	}
	if layer.DeploymentTarget != nil {
		cfg.DeploymentTarget = *layer.DeploymentTarget
	}
	if layer.BuildType != nil {
		cfg.BuildType = *layer.BuildType
	}
	if layer.InstallPrefix != nil {
		cfg.InstallPrefix = *layer.InstallPrefix
	}
	if layer.BSPPath != nil {
		cfg.BSPPath = *layer.BSPPath
	}
	if layer.P4PPFlags != nil {
		cfg.P4PPFlags = *layer.P4PPFlags
	}
	if layer.ExtraCPPFlags != nil {
		cfg.ExtraCPPFlags = *layer.ExtraCPPFlags
	}
	if layer.P4Flags != nil {
		cfg.P4Flags = *layer.P4Flags
	}
	if layer.KernelModules != nil {
		cfg.KernelModules = *layer.KernelModules
	}
	if layer.KDir != nil {
		cfg.KDir = *layer.KDir
	}
	if layer.P4Programs != nil {
		cfg.P4Programs = append([]string(nil), layer.P4Programs...)
	}
	if layer.ControlPlane != nil {
		cfg.ControlPlane = *layer.ControlPlane
	}
	if layer.Advanced != nil {
		if cfg.Advanced == nil {
			cfg.Advanced = make(map[string]bool, len(layer.Advanced))
		}
		for k, v := range layer.Advanced {
			cfg.Advanced[k] = v
		}
	}
}

// validateConfiguration enforces the configuration rules atomically: either
// every rule holds, or the whole configuration is rejected with the specific
// violated rule.
func (r *Resolver) validateConfiguration(cfg *Configuration) error {
	if err := r.validate.Struct(cfg); err != nil {
		return errdefs.InvalidConfiguration("configuration rejected", err)
	}

	for _, arch := range cfg.Architectures {
		if !registry.ValidArchitecture(string(arch)) {
			return errdefs.InvalidConfiguration(
				fmt.Sprintf("unknown target architecture %q", arch), nil)
		}
	}

	if cfg.DeploymentTarget == TargetHardware && cfg.BSPPath == "" {
		return errdefs.InvalidConfiguration(
			"hardware deployment target requires a board-support-package path (--bsp-path)", nil)
	}

	if cfg.KernelModules && cfg.KDir == "" {
		return errdefs.InvalidConfiguration(
			fmt.Sprintf("kernel module build requires a kernel header path (--kdir), or %q to permit auto-detection", KDirAuto), nil)
	}

	for flag := range cfg.Advanced {
		if !knownAdvancedFlag(flag) {
			return errdefs.InvalidConfiguration(
				fmt.Sprintf("unknown advanced option %q", flag), nil)
		}
	}

	// Package identifiers are checked here so an unknown package fails at
	// configuration time, not at build time.
	for _, id := range cfg.Packages {
		if _, err := r.reg.Lookup(id); err != nil {
			return err
		}
	}

	return nil
}

func knownAdvancedFlag(flag string) bool {
	for _, f := range AdvancedFlags {
		if f == flag {
			return true
		}
	}
	return false
}
