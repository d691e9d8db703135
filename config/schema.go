package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

const descriptorSchema = `
#Name: string & =~"^[^/\\[\\]]+$"

#Entity: #Name | {
	name:   #Name
	after?: #Name | [...#Name]
}

#Module: {
	group:   #Entity
	project: #Entity
	module:  #Entity
}
`

// validateDescriptor checks a descriptor against the module schema.
func validateDescriptor(path string, raw []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(descriptorSchema, cue.Filename("hcm-module.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile module schema: %w", err)
	}
	file, err := cueyaml.Extract(path, raw)
	if err != nil {
		return fmt.Errorf("parse module descriptor %s: %w", path, err)
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return fmt.Errorf("parse module descriptor %s: %w", path, err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Module")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid module descriptor %s: %w", path, err)
	}
	return nil
}

// evaluateCUE evaluates a CUE definition source and renders it as YAML for
// ParseSource.
func evaluateCUE(path string, raw []byte) ([]byte, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(raw, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, &SourceError{File: path, Err: err}
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, &SourceError{File: path, Err: err}
	}
	out, err := cueyaml.Encode(value)
	if err != nil {
		return nil, &SourceError{File: path, Err: err}
	}
	return out, nil
}
