// Package quill is the embedding façade: the one entry point a TTRPG
// host needs to compile a Quill script into target-host source text,
// given the host's own global values and custom types.
package quill

import (
	"fmt"

	"github.com/quillscript/compiler/pkg/compiler/checker"
	"github.com/quillscript/compiler/pkg/compiler/emitter"
	"github.com/quillscript/compiler/pkg/compiler/parser"
	"github.com/quillscript/compiler/pkg/compiler/types"
)

// CompileResult is the outcome of a single Compile call. Error is set
// (and OK false) for lex, parse, and type errors, as well as for an
// internal compiler panic recovered at this boundary.
type CompileResult struct {
	OK         bool   `json:"ok"`
	Code       string `json:"code,omitempty"`
	ReturnType string `json:"returnType,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Compiler compiles Quill source against a host-supplied environment:
// global values/functions visible to every script, and custom types
// registered by name. Both survive across Compile calls, matching a
// host that registers its domain once at startup and compiles many
// scripts against it afterward.
type Compiler struct {
	registry *types.Registry
	globals  map[string]types.Type
}

// NewCompiler creates a Compiler seeded with the host's global values
// (e.g. the script's implicit "context" bindings).
func NewCompiler(contextTypes map[string]types.Type) *Compiler {
	c := &Compiler{
		registry: types.NewRegistry(),
		globals:  make(map[string]types.Type),
	}
	for name, t := range contextTypes {
		c.globals[name] = t
	}
	return c
}

// RegisterType makes a named type available to `type`/`interface`
// declarations and bare type-reference annotations in scripts compiled
// afterward.
func (c *Compiler) RegisterType(name string, t types.Type) {
	c.registry.Register(name, t)
}

// RegisterFunction exposes a host function as a global callable.
func (c *Compiler) RegisterFunction(name string, params []types.Type, ret types.Type, async bool) {
	c.globals[name] = types.Function{Params: params, Return: ret, Async: async}
}

// Compile lexes, parses, type-checks, and emits source, recovering
// from any internal panic so a single bad script cannot take down an
// embedding host.
func (c *Compiler) Compile(source string) CompileResult {
	var result CompileResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = CompileResult{Error: fmt.Sprintf("internal compiler error: %v", r)}
			}
		}()
		result = c.compile(source)
	}()
	return result
}

func (c *Compiler) compile(source string) CompileResult {
	prog, err := parser.Parse([]byte(source))
	if err != nil {
		return CompileResult{Error: err.Error()}
	}

	chk := checker.New(c.globals, c.registry)
	if err := chk.Check(prog); err != nil {
		return CompileResult{Error: err.Error()}
	}
	returnType := chk.InferReturnType(prog)

	code, err := emitter.Emit(prog)
	if err != nil {
		return CompileResult{Error: err.Error()}
	}

	return CompileResult{OK: true, Code: code, ReturnType: types.ToString(returnType)}
}

// CreateObjectType builds a named structural object type for use with
// RegisterType or as part of a larger composed type.
func CreateObjectType(name string, fields []types.Field) types.Type {
	return types.Object{Name: name, Fields: fields}
}

// CreateArrayType builds an array-of-element type.
func CreateArrayType(element types.Type) types.Type {
	return types.Array{Element: element}
}
