// Package graph resolves a requested package set into an ordered build plan
// skeleton: it transitively closes the set over the registry's dependency
// edges, expands architecture-specific variants, rejects cycles, and produces
// a deterministic topological order.
package graph

import (
	"fmt"
	"sort"

	"github.com/p4forge/p4forge/pkg/errdefs"
	"github.com/p4forge/p4forge/pkg/registry"
)

// Node is one schedulable unit of the build plan: a package, or one
// architecture variant of a package with per-architecture artifacts.
type Node struct {
	// ID is the node identifier: the package ID, suffixed with "@arch"
	// for per-architecture variants.
	ID string

	// Package is the catalog entry this node builds.
	Package registry.Package

	// Arch is the target architecture for per-architecture variants,
	// empty for architecture-neutral packages.
	Arch registry.Architecture

	// Requires lists node IDs that must succeed before this node runs.
	Requires []string

	// Optional lists node IDs that order this node without a success
	// requirement: the node waits for them but ignores their failure.
	Optional []string
}

// Plan is the ordered build plan skeleton. Nodes respect the dependency
// partial order, with lexicographic tie-break for reproducibility.
type Plan struct {
	// Nodes in build order.
	Nodes []Node

	// Architectures is the requested target architecture set, sorted.
	Architectures []registry.Architecture
}

// Node returns the plan node with the given ID, if present.
func (p *Plan) Node(id string) (Node, bool) {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// PackageIDs returns the distinct package identifiers in the plan, sorted.
func (p *Plan) PackageIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, n := range p.Nodes {
		if !seen[n.Package.ID] {
			seen[n.Package.ID] = true
			ids = append(ids, n.Package.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Resolver builds plans against a fixed registry.
type Resolver struct {
	reg *registry.Registry
}

// NewResolver creates a resolver over the given registry.
func NewResolver(reg *registry.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// NodeID returns the plan node identifier for a package and architecture.
func NodeID(pkg registry.Package, arch registry.Architecture) string {
	if pkg.PerArch {
		return fmt.Sprintf("%s@%s", pkg.ID, arch)
	}
	return pkg.ID
}

// Closure transitively closes the requested package IDs over the registry's
// required dependency edges. The result is sorted. Optional dependencies are
// not pulled in; they only order the build when selected on their own.
func (r *Resolver) Closure(requested []string) ([]string, error) {
	seen := make(map[string]bool)
	queue := append([]string(nil), requested...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		pkg, err := r.reg.Lookup(id)
		if err != nil {
			return nil, err
		}
		seen[id] = true
		queue = append(queue, pkg.Deps...)
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Resolve expands the requested package set into an ordered plan for the
// given target architectures.
func (r *Resolver) Resolve(requested []string, archs []registry.Architecture) (*Plan, error) {
	if len(archs) == 0 {
		archs = []registry.Architecture{registry.ArchTofino}
	}
	sortedArchs := append([]registry.Architecture(nil), archs...)
	sort.Slice(sortedArchs, func(i, j int) bool { return sortedArchs[i] < sortedArchs[j] })

	closed, err := r.Closure(requested)
	if err != nil {
		return nil, err
	}

	nodes, err := r.expand(closed, sortedArchs)
	if err != nil {
		return nil, err
	}

	ordered, err := topoSort(nodes)
	if err != nil {
		return nil, err
	}

	return &Plan{Nodes: ordered, Architectures: sortedArchs}, nil
}

// expand materializes plan nodes and edges, one node per package for
// architecture-neutral packages and one per requested architecture for
// packages with per-architecture artifacts.
func (r *Resolver) expand(ids []string, archs []registry.Architecture) (map[string]*Node, error) {
	selected := make(map[string]registry.Package, len(ids))
	for _, id := range ids {
		pkg, err := r.reg.Lookup(id)
		if err != nil {
			return nil, err
		}
		selected[id] = pkg
	}

	nodes := make(map[string]*Node)
	for _, id := range ids {
		pkg := selected[id]
		if pkg.PerArch {
			for _, arch := range archs {
				if !pkg.SupportsArch(arch) {
					return nil, errdefs.UnsupportedArchitecture(pkg.ID, string(arch))
				}
				nid := NodeID(pkg, arch)
				nodes[nid] = &Node{ID: nid, Package: pkg, Arch: arch}
			}
			continue
		}
		supportsAny := false
		for _, arch := range archs {
			if pkg.SupportsArch(arch) {
				supportsAny = true
				break
			}
		}
		if !supportsAny {
			return nil, errdefs.UnsupportedArchitecture(pkg.ID, string(archs[0]))
		}
		nodes[pkg.ID] = &Node{ID: pkg.ID, Package: pkg}
	}

	// Edge targets: a per-arch node depends on the matching variant of a
	// per-arch dependency, and on the single node of a neutral one. A
	// neutral node depending on a per-arch package waits for every variant.
	edgeTargets := func(dep registry.Package, from *Node) []string {
		if !dep.PerArch {
			return []string{dep.ID}
		}
		if from.Package.PerArch {
			return []string{NodeID(dep, from.Arch)}
		}
		targets := make([]string, 0, len(archs))
		for _, arch := range archs {
			if nid := NodeID(dep, arch); nodes[nid] != nil {
				targets = append(targets, nid)
			}
		}
		return targets
	}

	for _, n := range nodes {
		for _, depID := range n.Package.Deps {
			dep := selected[depID]
			n.Requires = append(n.Requires, edgeTargets(dep, n)...)
		}
		for _, depID := range n.Package.OptionalDeps {
			dep, ok := selected[depID]
			if !ok {
				continue // optional dependency not selected
			}
			n.Optional = append(n.Optional, edgeTargets(dep, n)...)
		}
		sort.Strings(n.Requires)
		sort.Strings(n.Optional)
	}

	return nodes, nil
}

// topoSort orders nodes with Kahn's algorithm, always taking the
// lexicographically smallest ready node so that the build order is
// reproducible across runs. A non-empty remainder is a cycle.
func topoSort(nodes map[string]*Node) ([]Node, error) {
	inDegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for id, n := range nodes {
		inDegree[id] += 0
		for _, dep := range append(append([]string(nil), n.Requires...), n.Optional...) {
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	ordered := make([]Node, 0, len(nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, *nodes[id])
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = insertSorted(ready, dep)
			}
		}
	}

	if len(ordered) != len(nodes) {
		return nil, errdefs.CyclicDependency(findCycle(nodes, inDegree))
	}
	return ordered, nil
}

// insertSorted inserts id into the sorted ready list.
func insertSorted(list []string, id string) []string {
	i := sort.SearchStrings(list, id)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = id
	return list
}

// findCycle extracts the members of one dependency cycle from the nodes left
// unprocessed by Kahn's algorithm. The result is sorted for stable reporting.
func findCycle(nodes map[string]*Node, inDegree map[string]int) []string {
	remaining := make(map[string]bool)
	for id, deg := range inDegree {
		if deg > 0 {
			remaining[id] = true
		}
	}

	// Walk required edges inside the remainder until a node repeats; the
	// portion of the walk from its first occurrence is a cycle.
	var start string
	for id := range remaining {
		if start == "" || id < start {
			start = id
		}
	}
	visitedAt := map[string]int{}
	var path []string
	cur := start
	for {
		if at, seen := visitedAt[cur]; seen {
			members := append([]string(nil), path[at:]...)
			sort.Strings(members)
			return members
		}
		visitedAt[cur] = len(path)
		path = append(path, cur)
		next := ""
		for _, dep := range append(append([]string(nil), nodes[cur].Requires...), nodes[cur].Optional...) {
			if remaining[dep] {
				next = dep
				break
			}
		}
		if next == "" {
			// Should not happen for a true cycle remainder.
			sort.Strings(path)
			return path
		}
		cur = next
	}
}
