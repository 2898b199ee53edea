package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/nodelink/internal/host"
	"github.com/roach88/nodelink/internal/ir"
)

// BuildError carries every validation failure of a scene.
type BuildError struct {
	Scene  string
	Errors []ValidationError
}

func (e *BuildError) Error() string {
	errs := make([]error, len(e.Errors))
	for i, ve := range e.Errors {
		errs[i] = ve
	}
	return fmt.Sprintf("scene %s is invalid:\n%v", e.Scene, errors.Join(errs...))
}

// Build validates spec and materializes it as an in-memory host graph.
// Cycle warnings do not fail the build.
func Build(spec *ir.SceneSpec) (*host.Memory, []CycleWarning, error) {
	if verrs := Validate(spec); len(verrs) > 0 {
		return nil, nil, &BuildError{Scene: spec.Name, Errors: verrs}
	}
	m, err := host.Load(spec)
	if err != nil {
		return nil, nil, fmt.Errorf("build: %w", err)
	}
	return m, AnalyzeCycles(spec), nil
}

// BuildFile compiles and builds the scene in path.
func BuildFile(path string) (*ir.SceneSpec, *host.Memory, []CycleWarning, error) {
	spec, err := CompileFile(path)
	if err != nil {
		return nil, nil, nil, err
	}
	m, warnings, err := Build(spec)
	if err != nil {
		return spec, nil, nil, err
	}
	return spec, m, warnings, nil
}
