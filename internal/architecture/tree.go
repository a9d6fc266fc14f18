// Package architecture holds the in-memory forms of the integrator output: a
// folder tree arena addressed by path and the file dependency graph.
package architecture

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// Node is one folder or file of the tree.
type Node struct {
	Path        string
	Name        string
	Description string
	Purpose     string
	IsFile      bool
	Parent      string
	Children    []string
}

// rootKey addresses a root named "/" or ".", whose children sit at top-level paths.
const rootKey = "."

// Tree is a flat arena of nodes keyed by slash-separated path.
type Tree struct {
	root  string
	nodes map[string]*Node
}

// NewTree ingests a nested folder tree. The root must be named and no two
// nodes may share a path.
func NewTree(ft models.FolderTree) (*Tree, error) {
	rootName := strings.TrimSpace(ft.Name)
	if rootName == "" {
		return nil, &models.InvalidArchitectureError{Problems: []string{"root folder has no name"}}
	}

	t := &Tree{nodes: make(map[string]*Node)}
	var problems []string
	t.root = nodeKey(rootName)
	t.addFolder("", t.root, ft, &problems)

	if len(problems) > 0 {
		return nil, &models.InvalidArchitectureError{Problems: problems}
	}
	return t, nil
}

func (t *Tree) addFolder(parent, p string, ft models.FolderTree, problems *[]string) {
	if !t.insert(&Node{
		Path:        p,
		Name:        strings.TrimSpace(ft.Name),
		Description: ft.Description,
		Purpose:     ft.Purpose,
		Parent:      parent,
	}, problems) {
		return
	}

	for _, f := range ft.Files {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			*problems = append(*problems, fmt.Sprintf("file without name in %s", p))
			continue
		}
		t.insert(&Node{
			Path:        nodeKey(path.Join(p, name)),
			Name:        name,
			Description: f.Description,
			Purpose:     f.Purpose,
			IsFile:      true,
			Parent:      p,
		}, problems)
	}

	for _, sub := range ft.Subfolders {
		name := strings.TrimSpace(sub.Name)
		if name == "" {
			*problems = append(*problems, fmt.Sprintf("subfolder without name in %s", p))
			continue
		}
		t.addFolder(p, nodeKey(path.Join(p, name)), sub, problems)
	}
}

func (t *Tree) insert(n *Node, problems *[]string) bool {
	if _, exists := t.nodes[n.Path]; exists {
		*problems = append(*problems, fmt.Sprintf("duplicate path %s", n.Path))
		return false
	}
	t.nodes[n.Path] = n
	if parent, ok := t.nodes[n.Parent]; ok && n.Path != t.root {
		parent.Children = append(parent.Children, n.Path)
	}
	return true
}

func nodeKey(p string) string {
	if k := models.NormalizePath(p); k != "" {
		return k
	}
	return rootKey
}

// Root returns the root folder node.
func (t *Tree) Root() *Node {
	return t.nodes[t.root]
}

// Node looks up a node by path.
func (t *Tree) Node(p string) (*Node, bool) {
	n, ok := t.nodes[nodeKey(p)]
	return n, ok
}

// Children returns the direct children of p in insertion order.
func (t *Tree) Children(p string) []*Node {
	n, ok := t.Node(p)
	if !ok {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		out = append(out, t.nodes[c])
	}
	return out
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// FilePaths returns every file path, sorted.
func (t *Tree) FilePaths() []string {
	var out []string
	for p, n := range t.nodes {
		if n.IsFile {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Walk visits nodes depth first in insertion order. Returning false from fn
// stops the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var visit func(p string, depth int) bool
	visit = func(p string, depth int) bool {
		n := t.nodes[p]
		if !fn(n, depth) {
			return false
		}
		for _, c := range n.Children {
			if !visit(c, depth+1) {
				return false
			}
		}
		return true
	}
	visit(t.root, 0)
}

// FolderTree rebuilds the nested form, e.g. for serialization.
func (t *Tree) FolderTree() models.FolderTree {
	var build func(p string) models.FolderTree
	build = func(p string) models.FolderTree {
		n := t.nodes[p]
		ft := models.FolderTree{Name: n.Name, Description: n.Description, Purpose: n.Purpose}
		for _, c := range n.Children {
			child := t.nodes[c]
			if child.IsFile {
				ft.Files = append(ft.Files, models.FileEntry{Name: child.Name, Description: child.Description, Purpose: child.Purpose})
				continue
			}
			ft.Subfolders = append(ft.Subfolders, build(c))
		}
		return ft
	}
	return build(t.root)
}

// Render draws the tree as indented text for prompts and the CLI.
func (t *Tree) Render() string {
	var b strings.Builder
	t.Walk(func(n *Node, depth int) bool {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(n.Name)
		if !n.IsFile && !strings.HasSuffix(n.Name, "/") {
			b.WriteString("/")
		}
		if n.Purpose != "" {
			b.WriteString("  # ")
			b.WriteString(n.Purpose)
		}
		b.WriteString("\n")
		return true
	})
	return b.String()
}
