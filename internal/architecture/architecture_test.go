package architecture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

func sampleTree() models.FolderTree {
	return models.FolderTree{
		Name:    "csv-tool",
		Purpose: "root",
		Files:   []models.FileEntry{{Name: "README.md"}},
		Subfolders: []models.FolderTree{
			{
				Name:  "src",
				Files: []models.FileEntry{{Name: "parser.ts", Purpose: "parse csv"}, {Name: "ui.tsx"}},
				Subfolders: []models.FolderTree{
					{Name: "utils", Files: []models.FileEntry{{Name: "format.ts"}}},
				},
			},
		},
	}
}

func TestNewTree(t *testing.T) {
	tree, err := NewTree(sampleTree())
	require.NoError(t, err)

	assert.Equal(t, "csv-tool", tree.Root().Path)
	assert.Equal(t, 7, tree.Len())
	assert.Equal(t, []string{
		"csv-tool/README.md",
		"csv-tool/src/parser.ts",
		"csv-tool/src/ui.tsx",
		"csv-tool/src/utils/format.ts",
	}, tree.FilePaths())

	node, ok := tree.Node("./csv-tool/src/parser.ts")
	require.True(t, ok)
	assert.True(t, node.IsFile)
	assert.Equal(t, "csv-tool/src", node.Parent)

	children := tree.Children("csv-tool/src")
	require.Len(t, children, 3)
	assert.Equal(t, "parser.ts", children[0].Name)
	assert.Equal(t, "utils", children[2].Name)

	assert.Equal(t, sampleTree(), tree.FolderTree())
	assert.Contains(t, tree.Render(), "    parser.ts  # parse csv\n")
}

func TestNewTree_BareRoot(t *testing.T) {
	for _, root := range []string{"/", ".", "./"} {
		t.Run(root, func(t *testing.T) {
			ft := models.FolderTree{
				Name:       root,
				Files:      []models.FileEntry{{Name: "main.go"}},
				Subfolders: []models.FolderTree{{Name: "src", Files: []models.FileEntry{{Name: "a.go"}}}},
			}
			tree, err := NewTree(ft)
			require.NoError(t, err)

			assert.Equal(t, []string{"main.go", "src/a.go"}, tree.FilePaths())
			require.Len(t, tree.Children(root), 2)
			assert.Equal(t, tree.Root(), mustNode(t, tree, "/"))

			src, ok := tree.Node("src")
			require.True(t, ok)
			assert.Equal(t, rootKey, src.Parent)

			assert.Equal(t, ft, tree.FolderTree())
			rendered := tree.Render()
			assert.Contains(t, rendered, "  main.go\n")
			assert.Contains(t, rendered, "    a.go\n")
			assert.NotContains(t, rendered, "//")
		})
	}
}

func mustNode(t *testing.T, tree *Tree, p string) *Node {
	t.Helper()
	n, ok := tree.Node(p)
	require.True(t, ok, p)
	return n
}

func TestNewTree_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		tree    models.FolderTree
		problem string
	}{
		{
			name:    "unnamed_root",
			tree:    models.FolderTree{Files: []models.FileEntry{{Name: "a.go"}}},
			problem: "root folder has no name",
		},
		{
			name: "duplicate_file",
			tree: models.FolderTree{
				Name:  "app",
				Files: []models.FileEntry{{Name: "main.go"}, {Name: "main.go"}},
			},
			problem: "duplicate path app/main.go",
		},
		{
			name: "file_and_folder_collide",
			tree: models.FolderTree{
				Name:       "app",
				Files:      []models.FileEntry{{Name: "lib"}},
				Subfolders: []models.FolderTree{{Name: "lib"}},
			},
			problem: "duplicate path app/lib",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTree(tt.tree)
			require.Error(t, err)
			assert.Equal(t, models.KindInvalidArchitecture, models.KindOf(err))
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestNewGraph_ValidOrderKept(t *testing.T) {
	files := []models.DependencyFile{
		{Name: "ui.tsx", Path: "src", Dependencies: []string{"src/parser.ts", "src/utils/format.ts"}, ImplementationOrder: 3},
		{Name: "parser.ts", Path: "src", Dependencies: []string{}, ImplementationOrder: 1},
		{Name: "format.ts", Path: "src/utils", Dependencies: []string{"./src/parser.ts"}, ImplementationOrder: 2},
	}

	g, err := NewGraph(files)
	require.NoError(t, err)
	assert.False(t, g.Repaired())
	assert.Empty(t, g.Violations())

	ordered := g.Ordered()
	require.Len(t, ordered, 3)
	assert.Equal(t, "src/parser.ts", ordered[0].FullPath())
	assert.Equal(t, "src/utils/format.ts", ordered[1].FullPath())
	assert.Equal(t, "src/ui.tsx", ordered[2].FullPath())

	// dependency references are rewritten to graph keys
	assert.Equal(t, []string{"src/parser.ts"}, ordered[1].Dependencies)
	assert.ElementsMatch(t, []string{"src/utils/format.ts", "src/ui.tsx"}, ordered[0].Dependents)
}

func TestNewGraph_RepairsViolations(t *testing.T) {
	files := []models.DependencyFile{
		{Name: "c.go", Dependencies: []string{"a.go", "b.go"}, ImplementationOrder: 1},
		{Name: "a.go", ImplementationOrder: 2},
		{Name: "b.go", Dependencies: []string{"a.go"}, ImplementationOrder: 2},
	}

	g, err := NewGraph(files)
	require.NoError(t, err)
	assert.True(t, g.Repaired())
	assert.Empty(t, g.Violations())

	var keys []string
	for _, f := range g.Ordered() {
		keys = append(keys, f.FullPath())
	}
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, keys)

	for _, f := range g.Ordered() {
		for _, dep := range g.Dependencies(f.FullPath()) {
			depFile, ok := g.File(dep)
			require.True(t, ok)
			assert.Less(t, depFile.ImplementationOrder, f.ImplementationOrder)
		}
	}
}

func TestNewGraph_ExternalDependencies(t *testing.T) {
	files := []models.DependencyFile{
		{Name: "server.ts", Path: "src", Dependencies: []string{"express", "src/db.ts"}, ImplementationOrder: 2},
		{Name: "db.ts", Path: "src", Dependencies: []string{"pg"}, ImplementationOrder: 1},
	}

	g, err := NewGraph(files)
	require.NoError(t, err)
	assert.Equal(t, []string{"express"}, g.External("src/server.ts"))
	assert.Equal(t, []string{"src/db.ts"}, g.Dependencies("src/server.ts"))
	assert.Equal(t, []string{"src/db.ts", "express"}, g.Ordered()[1].Dependencies)
}

func TestNewGraph_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   []models.DependencyFile
		problem string
	}{
		{
			name:    "empty",
			files:   nil,
			problem: "no files",
		},
		{
			name: "cycle",
			files: []models.DependencyFile{
				{Name: "a.go", Dependencies: []string{"b.go"}, ImplementationOrder: 1},
				{Name: "b.go", Dependencies: []string{"a.go"}, ImplementationOrder: 2},
				{Name: "c.go", ImplementationOrder: 3},
			},
			problem: "dependency cycle among: a.go, b.go",
		},
		{
			name: "duplicate",
			files: []models.DependencyFile{
				{Name: "a.go", Path: "pkg"},
				{Name: "a.go", Path: "./pkg/"},
			},
			problem: "duplicate file pkg/a.go",
		},
		{
			name: "self_dependency",
			files: []models.DependencyFile{
				{Name: "a.go", Dependencies: []string{"a.go"}},
			},
			problem: "a.go depends on itself",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.files)
			require.Error(t, err)
			assert.Equal(t, models.KindInvalidArchitecture, models.KindOf(err))
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestGraph_Levels(t *testing.T) {
	files := []models.DependencyFile{
		{Name: "a.go", ImplementationOrder: 1},
		{Name: "b.go", ImplementationOrder: 2},
		{Name: "c.go", Dependencies: []string{"a.go"}, ImplementationOrder: 3},
		{Name: "d.go", Dependencies: []string{"c.go", "b.go"}, ImplementationOrder: 4},
	}

	g, err := NewGraph(files)
	require.NoError(t, err)

	levels := g.Levels()
	require.Len(t, levels, 3)
	names := func(level []models.DependencyFile) []string {
		var out []string
		for _, f := range level {
			out = append(out, f.Name)
		}
		return out
	}
	assert.Equal(t, []string{"a.go", "b.go"}, names(levels[0]))
	assert.Equal(t, []string{"c.go"}, names(levels[1]))
	assert.Equal(t, []string{"d.go"}, names(levels[2]))
}

func TestIngest(t *testing.T) {
	arch := &models.Architecture{
		IntegratedVision: "A CSV tool.",
		RootFolder:       sampleTree(),
		DependencyTree: models.DependencyTree{Files: []models.DependencyFile{
			{Name: "ui.tsx", Path: "csv-tool/src", Dependencies: []string{"parser.ts"}, ImplementationOrder: 1},
			{Name: "parser.ts", Path: "csv-tool/src", ImplementationOrder: 1},
		}},
	}

	model, err := Ingest(arch)
	require.NoError(t, err)
	assert.True(t, model.Graph.Repaired())
	assert.Equal(t, "parser.ts", arch.DependencyTree.Files[0].Name)
	assert.Equal(t, 1, arch.DependencyTree.Files[0].ImplementationOrder)
	assert.Equal(t, 2, arch.DependencyTree.Files[1].ImplementationOrder)
	assert.Equal(t, []string{"csv-tool/src/parser.ts"}, arch.DependencyTree.Files[1].Dependencies)

	_, err = Ingest(&models.Architecture{IntegratedVision: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rootFolder has no name")
	assert.Contains(t, err.Error(), "dependencyTree has no files")
}
