package architecture

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// Graph is the file dependency graph keyed by DependencyFile.FullPath.
type Graph struct {
	keys     []string // model order
	files    map[string]models.DependencyFile
	index    map[string]int
	deps     map[string][]string
	external map[string][]string
	repaired bool
}

// NewGraph ingests the integrator's file list. Dependency references are
// resolved to graph keys; references to files outside the graph are kept as
// external and play no part in ordering. Implementation orders that violate a
// dependency edge are recomputed; a cycle is an error.
func NewGraph(files []models.DependencyFile) (*Graph, error) {
	if len(files) == 0 {
		return nil, &models.InvalidArchitectureError{Problems: []string{"dependency tree has no files"}}
	}

	g := &Graph{
		files:    make(map[string]models.DependencyFile, len(files)),
		index:    make(map[string]int, len(files)),
		deps:     make(map[string][]string, len(files)),
		external: make(map[string][]string),
	}

	var problems []string
	for i, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			problems = append(problems, fmt.Sprintf("file %d has no name", i))
			continue
		}
		key := f.FullPath()
		if _, dup := g.files[key]; dup {
			problems = append(problems, fmt.Sprintf("duplicate file %s", key))
			continue
		}
		g.index[key] = len(g.keys)
		g.keys = append(g.keys, key)
		g.files[key] = f
	}
	if len(problems) > 0 {
		return nil, &models.InvalidArchitectureError{Problems: problems}
	}

	resolver := newResolver(g.keys)
	for _, key := range g.keys {
		seen := make(map[string]bool)
		for _, ref := range g.files[key].Dependencies {
			dep, ok := resolver.resolve(ref)
			if !ok {
				g.external[key] = append(g.external[key], ref)
				continue
			}
			if dep == key {
				problems = append(problems, fmt.Sprintf("%s depends on itself", key))
				continue
			}
			if !seen[dep] {
				seen[dep] = true
				g.deps[key] = append(g.deps[key], dep)
			}
		}
	}
	if len(problems) > 0 {
		return nil, &models.InvalidArchitectureError{Problems: problems}
	}

	if len(g.Violations()) > 0 {
		if err := g.repair(); err != nil {
			return nil, err
		}
	}
	g.fillDependents()
	return g, nil
}

// Violations lists every edge whose dependency is not ordered strictly first.
func (g *Graph) Violations() []string {
	var out []string
	for _, key := range g.keys {
		order := g.files[key].ImplementationOrder
		for _, dep := range g.deps[key] {
			if g.files[dep].ImplementationOrder >= order {
				out = append(out, fmt.Sprintf("%s (order %d) depends on %s (order %d)",
					key, order, dep, g.files[dep].ImplementationOrder))
			}
		}
	}
	return out
}

// repair reassigns implementation orders with Kahn's algorithm. Among ready
// files the one the model ordered first wins, so valid parts of the model's
// plan survive.
func (g *Graph) repair() error {
	indegree := make(map[string]int, len(g.keys))
	dependents := make(map[string][]string, len(g.keys))
	for _, key := range g.keys {
		for _, dep := range g.deps[key] {
			indegree[key]++
			dependents[dep] = append(dependents[dep], key)
		}
	}

	var ready []string
	for _, key := range g.keys {
		if indegree[key] == 0 {
			ready = append(ready, key)
		}
	}

	order := 0
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return g.less(ready[i], ready[j]) })
		key := ready[0]
		ready = ready[1:]

		order++
		f := g.files[key]
		f.ImplementationOrder = order
		g.files[key] = f

		for _, d := range dependents[key] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if order < len(g.keys) {
		var cyclic []string
		for _, key := range g.keys {
			if indegree[key] > 0 {
				cyclic = append(cyclic, key)
			}
		}
		return &models.InvalidArchitectureError{
			Problems: []string{"dependency cycle among: " + strings.Join(cyclic, ", ")},
		}
	}
	g.repaired = true
	return nil
}

func (g *Graph) less(a, b string) bool {
	oa, ob := g.files[a].ImplementationOrder, g.files[b].ImplementationOrder
	if oa != ob {
		return oa < ob
	}
	return g.index[a] < g.index[b]
}

func (g *Graph) fillDependents() {
	dependents := make(map[string][]string)
	for _, key := range g.keys {
		for _, dep := range g.deps[key] {
			dependents[dep] = append(dependents[dep], key)
		}
	}
	for _, key := range g.keys {
		f := g.files[key]
		f.Dependents = dependents[key]
		g.files[key] = f
	}
}

// Repaired reports whether implementation orders were recomputed.
func (g *Graph) Repaired() bool {
	return g.repaired
}

// Len returns the number of files.
func (g *Graph) Len() int {
	return len(g.keys)
}

// File returns the file stored under key.
func (g *Graph) File(key string) (models.DependencyFile, bool) {
	f, ok := g.files[key]
	return f, ok
}

// Dependencies returns the resolved in-graph dependencies of key.
func (g *Graph) Dependencies(key string) []string {
	return g.deps[key]
}

// External returns references of key that name no file in the graph.
func (g *Graph) External(key string) []string {
	return g.external[key]
}

// Ordered returns the files sorted ascending by implementation order, ties
// broken by model order. Dependencies are rewritten to graph keys, with
// external references appended unchanged.
func (g *Graph) Ordered() []models.DependencyFile {
	keys := make([]string, len(g.keys))
	copy(keys, g.keys)
	sort.SliceStable(keys, func(i, j int) bool { return g.less(keys[i], keys[j]) })

	out := make([]models.DependencyFile, 0, len(keys))
	for _, key := range keys {
		out = append(out, g.normalized(key))
	}
	return out
}

func (g *Graph) normalized(key string) models.DependencyFile {
	f := g.files[key]
	deps := make([]string, 0, len(g.deps[key])+len(g.external[key]))
	deps = append(deps, g.deps[key]...)
	deps = append(deps, g.external[key]...)
	f.Dependencies = deps
	return f
}

// Levels groups files so that every file's dependencies sit in earlier levels.
// Within a level files keep Ordered order.
func (g *Graph) Levels() [][]models.DependencyFile {
	ordered := g.Ordered()
	depth := make(map[string]int, len(ordered))
	maxDepth := 0
	for _, f := range ordered {
		key := f.FullPath()
		d := 0
		for _, dep := range g.deps[key] {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[key] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	levels := make([][]models.DependencyFile, maxDepth+1)
	for _, f := range ordered {
		d := depth[f.FullPath()]
		levels[d] = append(levels[d], f)
	}
	return levels
}

// resolver maps a model-written dependency reference to a graph key.
type resolver struct {
	keys   map[string]bool
	byBase map[string][]string
}

func newResolver(keys []string) *resolver {
	r := &resolver{keys: make(map[string]bool, len(keys)), byBase: make(map[string][]string)}
	for _, k := range keys {
		r.keys[k] = true
		r.byBase[path.Base(k)] = append(r.byBase[path.Base(k)], k)
	}
	return r
}

func (r *resolver) resolve(ref string) (string, bool) {
	p := models.NormalizePath(ref)
	if p == "" {
		return "", false
	}
	if r.keys[p] {
		return p, true
	}
	// a bare file name or a path missing its leading folders
	var match string
	for _, k := range r.byBase[path.Base(p)] {
		if k == p || strings.HasSuffix(k, "/"+p) || !strings.Contains(p, "/") {
			if match != "" {
				return "", false
			}
			match = k
		}
	}
	return match, match != ""
}
