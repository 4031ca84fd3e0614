// cmd/tools/registry-check/main.go

// registry-check validates a stage registry document against the compiled
// state machine. Run it in CI after editing registry.json.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"hiring-pipeline/internal/pipeline/stage"
	"hiring-pipeline/pkg/registry"
)

func main() {
	path := flag.String("path", "pkg/registry/registry.json", "Path to the stage registry file")
	flag.Parse()

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot load registry: %v\n", err)
		os.Exit(1)
	}

	problems := check(reg)
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "Error: %s\n", p)
		}
		os.Exit(1)
	}

	fmt.Printf("Registry %s is valid: %d stages, version %s\n", *path, len(reg.Stages), reg.Version)
}

func check(reg *registry.StageRegistry) []string {
	var problems []string

	seen := make(map[string]bool, len(reg.Stages))
	for _, def := range reg.Stages {
		if seen[def.Stage] {
			problems = append(problems, fmt.Sprintf("stage %q defined twice", def.Stage))
		}
		seen[def.Stage] = true
	}

	for _, st := range stage.All() {
		def, ok := reg.ByStage(string(st))
		if !ok {
			problems = append(problems, fmt.Sprintf("stage %q missing from registry", st))
			continue
		}

		if def.Terminal != stage.IsTerminal(st) {
			problems = append(problems, fmt.Sprintf("stage %q: terminal flag is %v, state machine says %v",
				st, def.Terminal, stage.IsTerminal(st)))
		}

		legal := stage.LegalNextStages(st)
		if len(def.NextStages) != len(legal) {
			problems = append(problems, fmt.Sprintf("stage %q: %d next stages listed, state machine has %d",
				st, len(def.NextStages), len(legal)))
		}
		for _, next := range def.NextStages {
			parsed, err := stage.Parse(next)
			if err != nil {
				problems = append(problems, fmt.Sprintf("stage %q: unknown next stage %q", st, next))
				continue
			}
			if !stage.CanTransition(st, parsed) {
				problems = append(problems, fmt.Sprintf("stage %q: transition to %q not allowed by state machine", st, next))
			}
		}

		if def.PatchSchema != nil {
			loader := gojsonschema.NewGoLoader(def.PatchSchema)
			if _, err := gojsonschema.NewSchema(loader); err != nil {
				problems = append(problems, fmt.Sprintf("stage %q: patch schema does not compile: %v", st, err))
			}
		}
	}

	// Stages in the document but not in the state machine.
	for _, def := range reg.Stages {
		if _, err := stage.Parse(def.Stage); err != nil {
			problems = append(problems, fmt.Sprintf("registry stage %q is not a pipeline stage", def.Stage))
		}
	}

	return problems
}
