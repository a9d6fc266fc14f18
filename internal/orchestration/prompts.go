package orchestration

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/architecture"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

var roleFocus = map[string][]string{
	RoleBackend:                 {"API design and service boundaries", "business logic and data flow", "error handling and validation"},
	RoleFrontend:                {"component structure and state management", "routing and user flows", "API integration from the client"},
	"Database Architect":        {"schema design and relationships", "indexing and query patterns", "migrations and data integrity"},
	"Security Specialist":       {"authentication and authorization", "input validation and secrets handling", "threat model for the stated features"},
	"DevOps Engineer":           {"build and deployment pipeline", "containerization and environments", "monitoring and alerting"},
	"Mobile Developer":          {"mobile app structure", "offline behavior and sync", "platform specific concerns"},
	"Blockchain Developer":      {"on-chain versus off-chain split", "contract structure", "wallet integration"},
	"Machine Learning Engineer": {"model lifecycle", "feature pipelines", "serving and evaluation"},
	"UX Designer":               {"user journeys", "accessibility", "design system structure"},
	"QA Engineer":               {"test strategy and pyramid", "test data and fixtures", "acceptance criteria coverage"},
	"Data Engineer":             {"ingestion and transformation", "storage layout", "analytics consumption"},
	"Cloud Architect":           {"managed services selection", "networking and scaling", "cost and resilience"},
}

func numbered(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return b.String()
}

func specialistSystemPrompt(role string) string {
	focus := roleFocus[role]
	if len(focus) == 0 {
		focus = []string{"the parts of the system your expertise covers"}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert %s reviewing a new software project.\n", role)
	b.WriteString("Focus on:\n")
	for _, f := range focus {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString(`
Respond with a single JSON object and nothing else:
{"role": string, "expertise": string, "visionText": string,
 "projectStructure": {"name": string, "description": string, "purpose": string,
   "files": [{"name": string, "description": string, "purpose": string}],
   "subfolders": [<same shape as projectStructure>]}}`)
	return b.String()
}

func specialistUserMessage(requirements []string) string {
	return "Project requirements:\n" + numbered(requirements) +
		"\nDescribe your vision for this project and propose a folder structure."
}

const integratorSystemPrompt = `You are the Chief Technology Officer. Merge the specialist visions into one coherent architecture.
Resolve conflicts explicitly. Every file in dependencyTree must list the full paths of the files it depends on,
and implementationOrder must place every file after all of its dependencies (1 is implemented first).

Respond with a single JSON object and nothing else:
{"integratedVision": string, "conflictResolutions": [string],
 "rootFolder": {"name": string, "description": string, "purpose": string, "files": [...], "subfolders": [...]},
 "dependencyTree": {"files": [{"name": string, "path": string, "description": string, "purpose": string,
   "dependencies": [string], "dependents": [string], "implementationOrder": number, "type": string}]}}`

func integratorUserMessage(requirements []string, visionText string, specialists []models.SpecialistVision) (string, error) {
	visions, err := json.MarshalIndent(specialists, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize specialist visions: %w", err)
	}
	var b strings.Builder
	b.WriteString("Project requirements:\n")
	b.WriteString(numbered(requirements))
	if visionText != "" {
		b.WriteString("\nCombined vision:\n")
		b.WriteString(visionText)
		b.WriteString("\n")
	}
	b.WriteString("\nSpecialist visions:\n")
	b.Write(visions)
	return b.String(), nil
}

// File kinds drive the instruction block of a code generation prompt.
const (
	fileKindComponent  = "component"
	fileKindController = "controller"
	fileKindService    = "service"
	fileKindModel      = "model"
	fileKindTest       = "test"
	fileKindConfig     = "config"
	fileKindUtil       = "util"
	fileKindDefault    = "default"
)

// isTestFile matches test naming conventions on the base name and test
// folders on the directory segments.
func isTestFile(full string) bool {
	dir, base := path.Split(full)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(stem, "_test") ||
		strings.HasSuffix(stem, ".test") || strings.HasSuffix(stem, ".spec") {
		return true
	}
	for _, seg := range strings.Split(dir, "/") {
		switch seg {
		case "test", "tests", "__tests__", "spec":
			return true
		}
	}
	return false
}

// detectFileKind classifies a file from its declared type, path and extension.
func detectFileKind(f models.DependencyFile) string {
	full := strings.ToLower(f.FullPath())
	declared := strings.ToLower(f.Type)
	ext := path.Ext(full)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(full, w) || strings.Contains(declared, w) {
				return true
			}
		}
		return false
	}

	switch {
	case isTestFile(full) || declared == "test" || declared == "spec":
		return fileKindTest
	case has("config", "settings") || ext == ".yaml" || ext == ".yml" || ext == ".toml" || ext == ".env":
		return fileKindConfig
	case has("component") || ext == ".tsx" || ext == ".jsx" || ext == ".vue" || ext == ".svelte":
		return fileKindComponent
	case has("controller", "handler", "route"):
		return fileKindController
	case has("service"):
		return fileKindService
	case has("model", "schema", "entity", "types"):
		return fileKindModel
	case has("util", "helper", "lib/"):
		return fileKindUtil
	default:
		return fileKindDefault
	}
}

var fileKindInstructions = map[string]string{
	fileKindComponent:  "Write a self-contained UI component. Keep state local unless a dependency provides it, and type all props.",
	fileKindController: "Write the request handlers. Validate input, delegate business logic to services, and map errors to responses.",
	fileKindService:    "Write the business logic. Keep it free of transport concerns and return explicit errors.",
	fileKindModel:      "Write the data types and their validation. No persistence or transport code.",
	fileKindTest:       "Write thorough tests for the dependencies listed below, covering success and failure paths.",
	fileKindConfig:     "Write the configuration with sensible defaults and comments for every non-obvious value.",
	fileKindUtil:       "Write small, pure helper functions with no hidden state.",
	fileKindDefault:    "Write a complete, production-ready implementation of this file.",
}

const codeSystemPrompt = `You are a senior engineer implementing one file of a larger project.
Use the provided dependency implementations exactly as written; do not redefine them.

Respond with a single JSON object and nothing else:
{"language": string, "code": string, "testCode": string}`

func codeUserMessage(requirements []string, visionText string, file models.DependencyFile, deps []models.FileImplementation) string {
	var b strings.Builder
	b.WriteString("Project requirements:\n")
	b.WriteString(numbered(requirements))
	if visionText != "" {
		b.WriteString("\nArchitecture vision:\n")
		b.WriteString(visionText)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nFile: %s\n", file.FullPath())
	if file.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", file.Description)
	}
	if file.Purpose != "" {
		fmt.Fprintf(&b, "Purpose: %s\n", file.Purpose)
	}
	b.WriteString("\n")
	b.WriteString(fileKindInstructions[detectFileKind(file)])
	b.WriteString("\n")

	if len(deps) > 0 {
		b.WriteString("\nDependency implementations:\n")
		for _, d := range deps {
			fmt.Fprintf(&b, "\n--- %s (%s) ---\n%s\n", d.FullPath(), d.Language, d.Code)
		}
	}
	return b.String()
}

const outlineSystemPrompt = `You are a technical author planning an implementation book for a software project.

Respond with a single JSON object and nothing else:
{"title": string, "introduction": string, "chapters": [{"title": string, "sections": [string]}]}`

func outlineUserMessage(requirements []string, arch *models.Architecture) string {
	var b strings.Builder
	b.WriteString("Project requirements:\n")
	b.WriteString(numbered(requirements))
	b.WriteString("\nArchitecture:\n")
	b.WriteString(arch.IntegratedVision)
	if tree, err := architecture.NewTree(arch.RootFolder); err == nil {
		b.WriteString("\n\nFolder layout:\n")
		b.WriteString(tree.Render())
	}
	b.WriteString("\n\nFiles in implementation order:\n")
	for _, f := range arch.DependencyTree.Files {
		fmt.Fprintf(&b, "%d. %s\n", f.ImplementationOrder, f.FullPath())
	}
	return b.String()
}

func chapterSystemPrompt() string {
	return fmt.Sprintf(`You are a technical author writing one chapter of an implementation book.
Write in Markdown. When the chapter is finished, end your reply with %s on its own line.
If you run out of space before covering every section, end your reply with %s on its own line instead.`,
		SentinelComplete, SentinelIncomplete)
}

func chapterUserMessage(book *models.Book, index int, arch *models.Architecture) string {
	ch := book.Chapters[index]
	var b strings.Builder
	fmt.Fprintf(&b, "Book: %s\n\n%s\n\n", book.Title, book.Introduction)
	fmt.Fprintf(&b, "Architecture:\n%s\n\n", arch.IntegratedVision)
	fmt.Fprintf(&b, "Write chapter %d of %d: %s\n", index+1, len(book.Chapters), ch.Title)
	if len(ch.Sections) > 0 {
		b.WriteString("Sections:\n")
		b.WriteString(numbered(ch.Sections))
	}
	return b.String()
}

func continuationUserMessage(ch models.Chapter, tail string, remaining []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Continue chapter %q exactly where it stopped. Do not repeat earlier text.\n\n", ch.Title)
	b.WriteString("The chapter so far ends with:\n")
	b.WriteString(tail)
	b.WriteString("\n")
	if len(remaining) > 0 {
		b.WriteString("\nSections not yet covered:\n")
		b.WriteString(numbered(remaining))
	}
	return b.String()
}
