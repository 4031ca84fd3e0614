// pkg/registry/schema.go
package registry

// StageRegistry is the static catalogue of pipeline stages: display
// metadata, the legal-transition table, and the structural schema for the
// payload patch accepted on entry to each stage.
type StageRegistry struct {
	Version     string            `json:"version"`
	LastUpdated string            `json:"lastUpdated"`
	Stages      []StageDefinition `json:"stages"`
}

// StageDefinition describes one stage. MandatoryFields documents the
// stage-mandatory patch fields; the transition engine enforces them with
// stage-specific checks, the registry schema only rejects malformed shapes.
type StageDefinition struct {
	Stage           string                 `json:"stage"`
	DisplayName     string                 `json:"displayName"`
	Description     string                 `json:"description"`
	Terminal        bool                   `json:"terminal"`
	NextStages      []string               `json:"nextStages"`
	MandatoryFields []string               `json:"mandatoryFields"`
	PatchSchema     map[string]interface{} `json:"patchSchema"`
}
