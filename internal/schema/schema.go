// Package schema checks store state against a CUE definition.
//
// A schema file must declare a #State definition. Definitions are closed,
// so a state carrying a key the schema does not mention is a violation.
//
// Example:
//
//	#State: {
//		count: int & >=0
//		todos: [...{text: string, done: bool}]
//	}
package schema

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// Definition is the name every schema must declare.
const Definition = "#State"

// Schema is a compiled state schema.
//
// Thread-safety: a Schema must not be used from several goroutines at once.
// cue.Context is not safe for concurrent use.
type Schema struct {
	ctx  *cue.Context
	def  cue.Value
	name string
}

// Compile compiles CUE source. name is used in positions of error messages.
func Compile(src []byte, name string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	def := v.LookupPath(cue.ParsePath(Definition))
	if !def.Exists() {
		return nil, fmt.Errorf("compile %s: schema must declare %s", name, Definition)
	}
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %s: %w", name, Definition, err)
	}
	return &Schema{ctx: ctx, def: def, name: name}, nil
}

// CompileFile reads and compiles the schema at path.
func CompileFile(path string) (*Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Compile(src, path)
}

// Name returns the name the schema was compiled under.
func (s *Schema) Name() string {
	return s.name
}

// Validate checks state against #State. It returns a *ViolationError
// listing every failing path, or nil.
func (s *Schema) Validate(state any) error {
	v := s.def.Unify(s.ctx.Encode(state))
	err := v.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	violation := &ViolationError{Schema: s.name}
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		violation.Issues = append(violation.Issues, Issue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return violation
}

// Issue is one failing constraint.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ViolationError reports a state that does not satisfy its schema.
type ViolationError struct {
	Schema     string  `json:"schema"`
	ActionType string  `json:"action_type,omitempty"`
	Issues     []Issue `json:"issues"`
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	var b strings.Builder
	b.WriteString("state violates schema ")
	b.WriteString(e.Schema)
	if e.ActionType != "" {
		fmt.Fprintf(&b, " after %s", e.ActionType)
	}
	for i, issue := range e.Issues {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		if issue.Path != "" {
			b.WriteString(issue.Path)
			b.WriteString(": ")
		}
		b.WriteString(issue.Message)
	}
	return b.String()
}
