// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed registry.json
var defaultRegistryJSON []byte

// Default returns the compiled-in stage registry.
func Default() (*StageRegistry, error) {
	var reg StageRegistry
	if err := json.Unmarshal(defaultRegistryJSON, &reg); err != nil {
		return nil, fmt.Errorf("decode embedded registry: %w", err)
	}
	return &reg, nil
}

// LoadRegistry reads a stage registry from disk. Used by tooling; the
// service runs on the embedded document.
func LoadRegistry(path string) (*StageRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg StageRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// ByStage returns the definition for the named stage.
func (r *StageRegistry) ByStage(stage string) (*StageDefinition, bool) {
	for i := range r.Stages {
		if r.Stages[i].Stage == stage {
			return &r.Stages[i], true
		}
	}
	return nil, false
}

// ValidatePatch checks a payload patch against the stage's patch schema.
// This is structural validation only (types, enums, unknown fields);
// stage-mandatory field enforcement lives in the transition engine.
func (r *StageRegistry) ValidatePatch(stage string, patch map[string]interface{}) error {
	def, ok := r.ByStage(stage)
	if !ok {
		return fmt.Errorf("stage %q not in registry", stage)
	}
	if def.PatchSchema == nil {
		return nil
	}
	if patch == nil {
		patch = map[string]interface{}{}
	}

	schemaLoader := gojsonschema.NewGoLoader(def.PatchSchema)
	documentLoader := gojsonschema.NewGoLoader(patch)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate %s patch: %w", stage, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid %s patch: %s", stage, strings.Join(msgs, "; "))
	}
	return nil
}
