// Package registry holds the static catalog of SDE packages: their
// dependency edges, supported target architectures, and the third-party
// dependency attributes consumed by the dependency-install stage.
//
// The catalog is loaded once at process start and is read-only afterwards.
package registry

import (
	"sort"

	"github.com/p4forge/p4forge/pkg/errdefs"
)

// Architecture is a hardware-family variant a package may be built for.
type Architecture string

const (
	// ArchTofino is the first-generation chip family.
	ArchTofino Architecture = "tofino"

	// ArchTofino2 is the second-generation chip family.
	ArchTofino2 Architecture = "tofino2"

	// ArchTofino3 is the third-generation chip family.
	ArchTofino3 Architecture = "tofino3"
)

// AllArchitectures lists every supported architecture in canonical order.
func AllArchitectures() []Architecture {
	return []Architecture{ArchTofino, ArchTofino2, ArchTofino3}
}

// ValidArchitecture reports whether s names a known architecture.
func ValidArchitecture(s string) bool {
	switch Architecture(s) {
	case ArchTofino, ArchTofino2, ArchTofino3:
		return true
	}
	return false
}

// Package describes one unit of SDE source material. Immutable once loaded.
type Package struct {
	// ID is the package identifier (e.g. "bf-drivers").
	ID string

	// Deps lists required direct dependency identifiers. A failed required
	// dependency cascades skips to this package.
	Deps []string

	// OptionalDeps lists optional direct dependencies. They order the build
	// but their failure does not skip this package.
	OptionalDeps []string

	// Archs lists the supported target architectures. Empty means the
	// package is architecture-neutral and builds once for any selection.
	Archs []Architecture

	// PerArch indicates the package produces architecture-specific
	// artifacts and is planned once per selected architecture.
	PerArch bool

	// RequiresBSP marks packages that need a board-support-package path
	// when built for a hardware deployment target.
	RequiresBSP bool

	// RequiresKernelHeaders marks packages that build kernel modules.
	RequiresKernelHeaders bool

	// SystemDeps lists distro packages installed by the dependency stage.
	SystemDeps []string

	// SourceDeps lists third-party source dependencies (built from
	// source by the dependency stage, e.g. "thrift", "grpc").
	SourceDeps []string

	// ArchOptions carries per-architecture build-option overrides appended
	// to the package's configure step.
	ArchOptions map[Architecture][]string
}

// SupportsArch reports whether the package can be built for arch.
func (p Package) SupportsArch(arch Architecture) bool {
	if len(p.Archs) == 0 {
		return true
	}
	for _, a := range p.Archs {
		if a == arch {
			return true
		}
	}
	return false
}

// Registry is the read-only package catalog.
type Registry struct {
	packages map[string]Package
}

// New returns a registry loaded with the built-in SDE catalog.
func New() *Registry {
	return NewFromPackages(builtinCatalog()...)
}

// NewFromPackages builds a registry from an explicit package list. Intended
// for tests that need small synthetic catalogs.
func NewFromPackages(pkgs ...Package) *Registry {
	m := make(map[string]Package, len(pkgs))
	for _, p := range pkgs {
		m[p.ID] = p
	}
	return &Registry{packages: m}
}

// Lookup returns the package with the given identifier.
func (r *Registry) Lookup(id string) (Package, error) {
	p, ok := r.packages[id]
	if !ok {
		return Package{}, errdefs.UnknownPackage(id)
	}
	return p, nil
}

// All returns every catalog package sorted by identifier.
func (r *Registry) All() []Package {
	out := make([]Package, 0, len(r.packages))
	for _, p := range r.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns every catalog package identifier, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.packages))
	for id := range r.packages {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
