package models

import (
	"fmt"
	"path"
	"strings"
)

// StructuredRequirement is the tuple form some clients send instead of a plain string.
type StructuredRequirement struct {
	Category     string   `json:"category" yaml:"category"`
	What         string   `json:"what" yaml:"what"`
	Why          string   `json:"why,omitempty" yaml:"why,omitempty"`
	How          string   `json:"how,omitempty" yaml:"how,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// String coerces the tuple into the opaque requirement string.
func (r StructuredRequirement) String() string {
	var b strings.Builder
	if r.Category != "" {
		fmt.Fprintf(&b, "[%s] ", r.Category)
	}
	b.WriteString(strings.TrimSpace(r.What))
	if r.Why != "" {
		fmt.Fprintf(&b, " - why: %s", r.Why)
	}
	if r.How != "" {
		fmt.Fprintf(&b, " - how: %s", r.How)
	}
	if len(r.Dependencies) > 0 {
		fmt.Fprintf(&b, " - depends on: %s", strings.Join(r.Dependencies, ", "))
	}
	return b.String()
}

// FileEntry is a file proposed in a folder tree, before any content exists.
type FileEntry struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
}

// FolderTree is the nested folder structure returned by the model.
type FolderTree struct {
	Name        string       `json:"name" validate:"required"`
	Description string       `json:"description,omitempty"`
	Purpose     string       `json:"purpose,omitempty"`
	Files       []FileEntry  `json:"files,omitempty" validate:"dive"`
	Subfolders  []FolderTree `json:"subfolders,omitempty" validate:"dive"`
}

// SpecialistVision is one specialist's view of the project.
type SpecialistVision struct {
	Role             string     `json:"role" validate:"required"`
	Expertise        string     `json:"expertise,omitempty"`
	VisionText       string     `json:"visionText" validate:"required"`
	ProjectStructure FolderTree `json:"projectStructure" validate:"required"`
}

// DependencyFile is one node of the integrated dependency graph.
type DependencyFile struct {
	Name                string   `json:"name" validate:"required"`
	Path                string   `json:"path"`
	Description         string   `json:"description,omitempty"`
	Purpose             string   `json:"purpose,omitempty"`
	Dependencies        []string `json:"dependencies"`
	Dependents          []string `json:"dependents,omitempty"`
	ImplementationOrder int      `json:"implementationOrder" validate:"gte=0"`
	Type                string   `json:"type,omitempty"`
}

// FullPath returns the normalized key used to match dependency references.
func (f DependencyFile) FullPath() string {
	p := NormalizePath(f.Path)
	if p == "" {
		return NormalizePath(f.Name)
	}
	if path.Base(p) == f.Name {
		return p
	}
	return NormalizePath(path.Join(p, f.Name))
}

// NormalizePath turns model-supplied paths into slash-separated keys without
// leading "./" or "/".
func NormalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimLeft(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// DependencyTree wraps the file list the integrator returns.
type DependencyTree struct {
	Files []DependencyFile `json:"files" validate:"dive"`
}

// Architecture is the integrator's merged output.
type Architecture struct {
	IntegratedVision    string         `json:"integratedVision" validate:"required"`
	ConflictResolutions []string       `json:"conflictResolutions,omitempty"`
	RootFolder          FolderTree     `json:"rootFolder"`
	DependencyTree      DependencyTree `json:"dependencyTree"`
}

// FileImplementation is the generated code for one dependency file.
type FileImplementation struct {
	Name         string   `json:"name"`
	Path         string   `json:"path"`
	Type         string   `json:"type,omitempty"`
	Description  string   `json:"description,omitempty"`
	Purpose      string   `json:"purpose,omitempty"`
	Dependencies []string `json:"dependencies"`
	Language     string   `json:"language" validate:"required"`
	Code         string   `json:"code" validate:"required"`
	TestCode     string   `json:"testCode,omitempty"`
}

// FullPath mirrors DependencyFile.FullPath.
func (f FileImplementation) FullPath() string {
	return DependencyFile{Name: f.Name, Path: f.Path}.FullPath()
}
