package architecture

import (
	"strings"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// Model is an ingested architecture.
type Model struct {
	Tree  *Tree
	Graph *Graph
}

// Ingest checks the integrator output, builds the tree arena and dependency
// graph, and writes the (possibly repaired) file list back to arch in
// implementation order.
func Ingest(arch *models.Architecture) (*Model, error) {
	var problems []string
	if strings.TrimSpace(arch.IntegratedVision) == "" {
		problems = append(problems, "integratedVision is empty")
	}
	if strings.TrimSpace(arch.RootFolder.Name) == "" {
		problems = append(problems, "rootFolder has no name")
	}
	if len(arch.DependencyTree.Files) == 0 {
		problems = append(problems, "dependencyTree has no files")
	}
	if len(problems) > 0 {
		return nil, &models.InvalidArchitectureError{Problems: problems}
	}

	tree, err := NewTree(arch.RootFolder)
	if err != nil {
		return nil, err
	}
	graph, err := NewGraph(arch.DependencyTree.Files)
	if err != nil {
		return nil, err
	}

	arch.DependencyTree.Files = graph.Ordered()
	return &Model{Tree: tree, Graph: graph}, nil
}
