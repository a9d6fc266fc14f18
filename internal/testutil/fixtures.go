// Package testutil holds fixtures and database helpers shared by package tests.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

// CSVRequirements is the two-requirement CSV upload project used across tests.
var CSVRequirements = []string{
	"Users can upload CSV files",
	"Admins can view upload history",
}

// ABCArchitectureJSON is an integrator reply with a three file chain where
// c.ts depends on b.ts which depends on a.ts. The files are listed out of order.
const ABCArchitectureJSON = `{
  "integratedVision": "Upload CSV files and list upload history.",
  "conflictResolutions": ["Backend owns parsing"],
  "rootFolder": {"name": "csv-uploader", "subfolders": [{"name": "src", "files": [{"name": "a.ts"}, {"name": "b.ts"}, {"name": "c.ts"}]}]},
  "dependencyTree": {"files": [
    {"name": "c.ts", "path": "src", "dependencies": ["src/b.ts"], "implementationOrder": 3, "type": "service"},
    {"name": "a.ts", "path": "src", "dependencies": [], "implementationOrder": 1, "type": "model"},
    {"name": "b.ts", "path": "src", "dependencies": ["src/a.ts"], "implementationOrder": 2, "type": "util"}
  ]}
}`

// ABCArchitecture decodes ABCArchitectureJSON.
func ABCArchitecture(t *testing.T) *models.Architecture {
	t.Helper()
	arch := &models.Architecture{}
	if err := json.Unmarshal([]byte(ABCArchitectureJSON), arch); err != nil {
		t.Fatalf("Failed to decode architecture fixture: %v", err)
	}
	return arch
}

// BookOutlineJSON is an outline reply with two chapters.
const BookOutlineJSON = `{"title": "Building the CSV uploader", "introduction": "Intro", "chapters": [{"title": "Setup", "sections": ["Install"]}, {"title": "Parsing", "sections": ["Rows"]}]}`

// SpecialistVisionJSON returns a minimal valid specialist reply for role.
func SpecialistVisionJSON(role string) string {
	b, _ := json.Marshal(map[string]any{
		"role":       role,
		"expertise":  role + " expertise",
		"visionText": "Vision from " + role,
		"projectStructure": map[string]any{
			"name":  "csv-uploader",
			"files": []map[string]string{{"name": "README.md"}},
		},
	})
	return string(b)
}

// CodeReplyJSON returns a code generation reply whose code names file.
func CodeReplyJSON(file string) string {
	b, _ := json.Marshal(map[string]string{
		"language": "typescript",
		"code":     "// code for " + file,
	})
	return string(b)
}
