package models

// Stage identifies one architect level of the pipeline.
type Stage int

const (
	StageSpecialists Stage = 1
	StageIntegration Stage = 2
	StageCode        Stage = 3
)

// Valid reports whether s is one of the three levels.
func (s Stage) Valid() bool {
	return s >= StageSpecialists && s <= StageCode
}

// Level1Output is the specialists stage result.
type Level1Output struct {
	Roles       []string           `json:"roles"`
	Specialists []SpecialistVision `json:"specialists"`
	VisionText  string             `json:"visionText"`
}

// Level2Output is the integrator stage result.
type Level2Output struct {
	Architecture
}

// Level3Output is the dependency-ordered code generation result.
type Level3Output struct {
	Implementations []FileImplementation `json:"implementations"`
}

// StageRequest is the body of the pipeline endpoint.
type StageRequest struct {
	Level           Stage         `json:"level" binding:"required"`
	Requirements    Requirements  `json:"requirements"`
	VisionText      string        `json:"visionText,omitempty"`
	FolderStructure *FolderTree   `json:"folderStructure,omitempty"`
	Level1Output    *Level1Output `json:"level1Output,omitempty"`
	Level2Output    *Level2Output `json:"level2Output,omitempty"`
}

// Progress holds the counters the UI renders while a stage runs.
type Progress struct {
	SpecialistIndex int          `json:"specialistIndex"`
	SpecialistTotal int          `json:"specialistTotal"`
	FileIndex       int          `json:"fileIndex"`
	FileTotal       int          `json:"fileTotal"`
	Book            BookProgress `json:"book"`
}

// PipelineState is the orchestration record for one pipeline run.
type PipelineState struct {
	Stage        Stage          `json:"stage"`
	Requirements []string       `json:"requirements"`
	Level1       *Level1Output  `json:"level1Output,omitempty"`
	Level2       *Level2Output  `json:"level2Output,omitempty"`
	Level3       *Level3Output  `json:"level3Output,omitempty"`
	Book         *Book          `json:"book,omitempty"`
	InFlight     bool           `json:"inFlight"`
	Error        *PipelineError `json:"error,omitempty"`
	Progress     Progress       `json:"progress"`
}

// NewPipelineState returns the initial state for the given requirements.
func NewPipelineState(requirements []string) PipelineState {
	reqs := make([]string, len(requirements))
	copy(reqs, requirements)
	return PipelineState{Stage: StageSpecialists, Requirements: reqs}
}
