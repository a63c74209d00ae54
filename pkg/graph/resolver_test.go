package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/p4forge/p4forge/pkg/errdefs"
	"github.com/p4forge/p4forge/pkg/registry"
)

func testRegistry() *registry.Registry {
	return registry.NewFromPackages(
		registry.Package{ID: "base"},
		registry.Package{ID: "libs", Deps: []string{"base"}},
		registry.Package{ID: "drivers", Deps: []string{"base", "libs"}},
		registry.Package{ID: "model", Deps: []string{"base"}, OptionalDeps: []string{"drivers"}},
		registry.Package{
			ID:      "programs",
			Deps:    []string{"drivers"},
			PerArch: true,
			Archs:   []registry.Architecture{registry.ArchTofino, registry.ArchTofino2},
		},
	)
}

func TestResolver_Closure_PullsTransitiveDependencies(t *testing.T) {
	r := NewResolver(testRegistry())

	closed, err := r.Closure([]string{"drivers"})
	if err != nil {
		t.Fatalf("Closure failed: %v", err)
	}

	want := []string{"base", "drivers", "libs"}
	if !reflect.DeepEqual(closed, want) {
		t.Errorf("Expected closure %v, got %v", want, closed)
	}
}

func TestResolver_Closure_OptionalDependenciesNotPulled(t *testing.T) {
	r := NewResolver(testRegistry())

	closed, err := r.Closure([]string{"model"})
	if err != nil {
		t.Fatalf("Closure failed: %v", err)
	}

	for _, id := range closed {
		if id == "drivers" {
			t.Errorf("Optional dependency %q must not be pulled into the closure: %v", id, closed)
		}
	}
}

func TestResolver_Closure_UnknownPackage(t *testing.T) {
	r := NewResolver(testRegistry())

	_, err := r.Closure([]string{"no-such-package"})
	if err == nil {
		t.Fatal("Expected UnknownPackage error, got nil")
	}

	var e *errdefs.Error
	if !errors.As(err, &e) || e.Code != errdefs.CodeUnknownPackage {
		t.Errorf("Expected code %s, got %v", errdefs.CodeUnknownPackage, err)
	}
}

func TestResolver_Resolve_TopologicalOrder(t *testing.T) {
	r := NewResolver(testRegistry())

	plan, err := r.Resolve([]string{"drivers"}, []registry.Architecture{registry.ArchTofino})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	pos := map[string]int{}
	for i, n := range plan.Nodes {
		pos[n.ID] = i
	}
	for _, n := range plan.Nodes {
		for _, dep := range n.Requires {
			if pos[dep] >= pos[n.ID] {
				t.Errorf("Dependency %s must come before %s", dep, n.ID)
			}
		}
	}
}

func TestResolver_Resolve_Deterministic(t *testing.T) {
	r := NewResolver(testRegistry())
	archs := []registry.Architecture{registry.ArchTofino2, registry.ArchTofino}

	first, err := r.Resolve([]string{"programs", "model"}, archs)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		next, err := r.Resolve([]string{"model", "programs"}, archs)
		if err != nil {
			t.Fatalf("Resolve failed on iteration %d: %v", i, err)
		}
		if !reflect.DeepEqual(first.Nodes, next.Nodes) {
			t.Fatalf("Resolve is not deterministic:\nfirst: %v\nnext:  %v", first.Nodes, next.Nodes)
		}
	}
}

func TestResolver_Resolve_PerArchVariants(t *testing.T) {
	r := NewResolver(testRegistry())

	plan, err := r.Resolve([]string{"programs"},
		[]registry.Architecture{registry.ArchTofino, registry.ArchTofino2})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	for _, id := range []string{"programs@tofino", "programs@tofino2"} {
		node, ok := plan.Node(id)
		if !ok {
			t.Fatalf("Expected per-arch node %s in plan", id)
		}
		// Each variant depends on the single node of its neutral deps.
		if !reflect.DeepEqual(node.Requires, []string{"drivers"}) {
			t.Errorf("Expected %s to require [drivers], got %v", id, node.Requires)
		}
	}

	// Neutral packages appear exactly once.
	count := 0
	for _, n := range plan.Nodes {
		if n.Package.ID == "drivers" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected exactly one drivers node, got %d", count)
	}
}

func TestResolver_Resolve_UnsupportedArchitecture(t *testing.T) {
	r := NewResolver(testRegistry())

	_, err := r.Resolve([]string{"programs"}, []registry.Architecture{registry.ArchTofino3})
	if err == nil {
		t.Fatal("Expected UnsupportedArchitecture error, got nil")
	}

	var e *errdefs.Error
	if !errors.As(err, &e) || e.Code != errdefs.CodeUnsupportedArch {
		t.Errorf("Expected code %s, got %v", errdefs.CodeUnsupportedArch, err)
	}
}

func TestResolver_Resolve_OptionalEdgesOrderOnly(t *testing.T) {
	r := NewResolver(testRegistry())

	plan, err := r.Resolve([]string{"model", "drivers"}, []registry.Architecture{registry.ArchTofino})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	node, ok := plan.Node("model")
	if !ok {
		t.Fatal("Expected model node in plan")
	}
	if !reflect.DeepEqual(node.Optional, []string{"drivers"}) {
		t.Errorf("Expected optional edge to drivers, got %v", node.Optional)
	}
	for _, dep := range node.Requires {
		if dep == "drivers" {
			t.Error("Optional dependency must not appear as a required edge")
		}
	}

	pos := map[string]int{}
	for i, n := range plan.Nodes {
		pos[n.ID] = i
	}
	if pos["drivers"] >= pos["model"] {
		t.Error("Optional dependency must still order the build")
	}
}

func TestResolver_Resolve_CycleReported(t *testing.T) {
	reg := registry.NewFromPackages(
		registry.Package{ID: "a", Deps: []string{"b"}},
		registry.Package{ID: "b", Deps: []string{"a"}},
	)
	r := NewResolver(reg)

	_, err := r.Resolve([]string{"a"}, []registry.Architecture{registry.ArchTofino})
	if err == nil {
		t.Fatal("Expected CyclicDependency error, got nil")
	}

	var e *errdefs.Error
	if !errors.As(err, &e) || e.Code != errdefs.CodeCyclicDependency {
		t.Fatalf("Expected code %s, got %v", errdefs.CodeCyclicDependency, err)
	}

	members := errdefs.CycleMembers(err)
	if !reflect.DeepEqual(members, []string{"a", "b"}) {
		t.Errorf("Expected cycle members [a b], got %v", members)
	}
}

func TestNodeID(t *testing.T) {
	neutral := registry.Package{ID: "libs"}
	perArch := registry.Package{ID: "programs", PerArch: true}

	if got := NodeID(neutral, registry.ArchTofino); got != "libs" {
		t.Errorf("Expected bare ID for neutral package, got %q", got)
	}
	if got := NodeID(perArch, registry.ArchTofino2); got != "programs@tofino2" {
		t.Errorf("Expected suffixed ID for per-arch package, got %q", got)
	}
}
