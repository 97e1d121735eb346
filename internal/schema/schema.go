// Package schema validates decoded documents against JSON Schema files,
// surfacing path-qualified errors so a caller can report exactly which field
// of a vendor response failed validation.
package schema

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// FieldError is one path-qualified validation failure.
type FieldError struct {
	Path    string
	Message string
}

// ValidationError aggregates every FieldError produced by one Validate call.
type ValidationError struct {
	SchemaPath string
	Fields     []FieldError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema: %s: validation failed:", e.SchemaPath)
	for _, f := range e.Fields {
		fmt.Fprintf(&b, " [%s] %s;", f.Path, f.Message)
	}
	return b.String()
}

// InvalidSchemaError distinguishes a malformed schema document from a
// malformed instance.
type InvalidSchemaError struct {
	SchemaPath string
	Err        error
}

func (e *InvalidSchemaError) Error() string {
	return fmt.Sprintf("schema: %s: invalid schema: %v", e.SchemaPath, e.Err)
}
func (e *InvalidSchemaError) Unwrap() error { return e.Err }

// Validator compiles and caches JSON schema documents, each addressed by the
// filesystem path passed to Validate.
type Validator struct {
	compiler *jsonschema.Compiler
}

// New creates a Validator. Schemas are resolved by their filesystem path,
// passed to Validate.
func New() *Validator {
	return &Validator{compiler: jsonschema.NewCompiler()}
}

// Validate compiles schemaPath (a filesystem path to a JSON Schema document)
// and validates doc (an already-decoded JSON value, e.g. from
// encoding/json.Unmarshal into map[string]any) against it.
func (v *Validator) Validate(schemaPath string, doc any) error {
	sch, err := v.compiler.Compile(schemaPath)
	if err != nil {
		return &InvalidSchemaError{SchemaPath: schemaPath, Err: err}
	}

	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return &ValidationError{SchemaPath: schemaPath, Fields: []FieldError{{Path: "", Message: err.Error()}}}
		}
		var fields []FieldError
		for _, cause := range flatten(ve) {
			path := strings.Join(cause.InstanceLocation, "/")
			fields = append(fields, FieldError{Path: path, Message: fmt.Sprintf("%v", cause.ErrorKind)})
		}
		return &ValidationError{SchemaPath: schemaPath, Fields: fields}
	}
	return nil
}

// flatten recursively descends ve.Causes to the leaf validation errors — the
// Causes tree otherwise nests one failure per schema keyword that rejected
// the instance.
func flatten(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}
