// Package checker type-checks a Quill program and infers its overall
// return type. The symbol table is an explicit stack of scopes, not a
// save/restore of a single map, so nested function scopes cannot leak
// into or clobber their enclosing scope.
package checker

import (
	"fmt"
	"strconv"

	"github.com/quillscript/compiler/pkg/compiler/ast"
	"github.com/quillscript/compiler/pkg/compiler/types"
)

// scope is one lexical level of the symbol table.
type scope struct {
	vars map[string]types.Type
}

func newScope() *scope {
	return &scope{vars: make(map[string]types.Type)}
}

// Checker type-checks a Program against a seed environment (host
// globals and registered functions) and a shared custom-type registry.
type Checker struct {
	registry *types.Registry
	scopes   []*scope

	inAsync              bool
	topLevelAwaitAllowed bool

	returnStack     [][]types.Type // one accumulator per enclosing FuncDecl body
	topLevelReturns []types.Type
}

// New creates a Checker seeded with globals (host values/functions
// visible to every script) and the custom-type registry.
func New(globals map[string]types.Type, registry *types.Registry) *Checker {
	c := &Checker{registry: registry}
	root := newScope()
	for name, t := range globals {
		root.vars[name] = t
	}
	c.scopes = []*scope{root}
	return c
}

func (c *Checker) pushScope() {
	c.scopes = append(c.scopes, newScope())
}

func (c *Checker) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *Checker) define(name string, t types.Type) {
	c.scopes[len(c.scopes)-1].vars[name] = t
}

func (c *Checker) resolve(name string) (types.Type, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if t, ok := c.scopes[i].vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Check type-checks prog, returning the first error encountered.
func (c *Checker) Check(prog *ast.Program) error {
	c.topLevelAwaitAllowed = true
	for _, stmt := range prog.Statements {
		if err := c.checkStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InferReturnType reports the program's overall return type: the merge
// of every Return statement reached at program scope, meaning outside
// any FuncDecl body (Arrow bodies are single expressions and cannot
// themselves contain a Return). Call after Check succeeds.
func (c *Checker) InferReturnType(prog *ast.Program) types.Type {
	return types.MergeReturns(c.topLevelReturns)
}

func (c *Checker) checkStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.TypeDecl:
		t, err := c.resolveAnn(s.Ann)
		if err != nil {
			return err
		}
		if obj, ok := t.(types.Object); ok {
			obj.Name = s.Name
			t = obj
		}
		c.registry.Register(s.Name, t)
		return nil
	case *ast.InterfaceDecl:
		var fields []types.Field
		for _, f := range s.Fields {
			ft, err := c.resolveAnn(f.Ann)
			if err != nil {
				return err
			}
			fields = append(fields, types.Field{Name: f.Name, Type: ft})
		}
		c.registry.Register(s.Name, types.Object{Name: s.Name, Fields: fields})
		return nil
	case *ast.VarDecl:
		valueType, err := c.checkExpr(s.Value)
		if err != nil {
			return err
		}
		if s.Ann != nil {
			declared, err := c.resolveAnn(s.Ann)
			if err != nil {
				return err
			}
			if !types.IsAssignable(valueType, declared) {
				return fmt.Errorf("cannot assign %s to declared type %s at line %d",
					types.ToString(valueType), types.ToString(declared), s.Token.Line)
			}
			if obj, ok := s.Value.(*ast.Object); ok {
				if named, ok2 := declared.(types.Object); ok2 && named.Name != "" {
					obj.InferredTypeName = named.Name
				}
			}
			c.define(s.Name, declared)
			return nil
		}
		c.define(s.Name, valueType)
		return nil
	case *ast.FuncDecl:
		return c.checkFuncDecl(s)
	case *ast.Return:
		var rt types.Type = types.Unknown{}
		if s.Value != nil {
			t, err := c.checkExpr(s.Value)
			if err != nil {
				return err
			}
			rt = t
		}
		if n := len(c.returnStack); n > 0 {
			c.returnStack[n-1] = append(c.returnStack[n-1], rt)
		} else {
			c.topLevelReturns = append(c.topLevelReturns, rt)
		}
		return nil
	case *ast.If:
		condType, err := c.checkExpr(s.Condition)
		if err != nil {
			return err
		}
		if !types.Equal(condType, types.Boolean) && !isUnknown(condType) {
			return fmt.Errorf("if condition must be boolean, got %s at line %d", types.ToString(condType), s.Token.Line)
		}
		c.pushScope()
		for _, st := range s.Then {
			if err := c.checkStatement(st); err != nil {
				c.popScope()
				return err
			}
		}
		c.popScope()
		if s.Else != nil {
			c.pushScope()
			for _, st := range s.Else {
				if err := c.checkStatement(st); err != nil {
					c.popScope()
					return err
				}
			}
			c.popScope()
		}
		return nil
	case *ast.For:
		iterType, err := c.checkExpr(s.Iterable)
		if err != nil {
			return err
		}
		if s.Await {
			if !c.inAsync && !c.topLevelAwaitAllowed {
				return fmt.Errorf("for await is only valid inside an async function or at top level at line %d", s.Token.Line)
			}
			if p, ok := iterType.(types.Promise); ok {
				iterType = p.Resolve
			}
		}
		elemType, err := c.elementTypeOf(iterType, s)
		if err != nil {
			return err
		}
		c.pushScope()
		c.define(s.Var, elemType)
		for _, st := range s.Body {
			if err := c.checkStatement(st); err != nil {
				c.popScope()
				return err
			}
		}
		c.popScope()
		return nil
	case *ast.ExprStmt:
		_, err := c.checkExpr(s.Value)
		return err
	default:
		return fmt.Errorf("unhandled statement type %T", s)
	}
}

func (c *Checker) elementTypeOf(t types.Type, s *ast.For) (types.Type, error) {
	switch v := t.(type) {
	case types.Array:
		return v.Element, nil
	case types.Unknown:
		return types.Unknown{}, nil
	default:
		return nil, fmt.Errorf("cannot iterate over %s at line %d", types.ToString(t), s.Token.Line)
	}
}

func isUnknown(t types.Type) bool {
	_, ok := t.(types.Unknown)
	return ok
}

// isNumericKey reports whether a stringified computed-member key came
// from a numeric literal (`arr[0]`, lowered to `arr["0"]`), as opposed
// to a named member like `arr["filter"]`.
func isNumericKey(name string) bool {
	_, err := strconv.ParseFloat(name, 64)
	return err == nil
}

func (c *Checker) checkFuncDecl(d *ast.FuncDecl) error {
	var paramTypes []types.Type
	c.pushScope()
	for _, p := range d.Params {
		var pt types.Type = types.Unknown{}
		if p.Ann != nil {
			t, err := c.resolveAnn(p.Ann)
			if err != nil {
				c.popScope()
				return err
			}
			pt = t
		}
		paramTypes = append(paramTypes, pt)
		c.define(p.Name, pt)
	}

	var declaredRet types.Type
	if d.Ret != nil {
		t, err := c.resolveAnn(d.Ret)
		if err != nil {
			c.popScope()
			return err
		}
		declaredRet = t
	}

	prevAsync, prevTLA := c.inAsync, c.topLevelAwaitAllowed
	c.inAsync = d.Async
	c.topLevelAwaitAllowed = false
	c.returnStack = append(c.returnStack, nil)

	var funcErr error
	for _, st := range d.Body {
		if err := c.checkStatement(st); err != nil {
			funcErr = err
			break
		}
	}

	n := len(c.returnStack) - 1
	bodyReturns := c.returnStack[n]
	c.returnStack = c.returnStack[:n]
	c.inAsync, c.topLevelAwaitAllowed = prevAsync, prevTLA
	c.popScope()

	if funcErr != nil {
		return funcErr
	}

	// rawReturn is the resolve-level type: what each `return` statement
	// actually yields, with no Promise wrapping. A declared return
	// annotation on an async function may itself be written either as
	// the resolve type or as Promise<resolve type>; both are compared
	// against rawReturn by unwrapping the declaration if needed.
	rawReturn := types.MergeReturns(bodyReturns)

	finalResolve := rawReturn
	if declaredRet != nil {
		declaredResolve := declaredRet
		if p, ok := declaredRet.(types.Promise); ok && d.Async {
			declaredResolve = p.Resolve
		}
		if !types.IsAssignable(rawReturn, declaredResolve) {
			return fmt.Errorf("function %s: body returns %s, declared %s at line %d",
				d.Name, types.ToString(rawReturn), types.ToString(declaredResolve), d.Token.Line)
		}
		finalResolve = declaredResolve
	}

	finalRet := finalResolve
	if d.Async {
		finalRet = types.Promise{Resolve: finalResolve}
	}

	c.define(d.Name, types.Function{Params: paramTypes, Return: finalRet, Async: d.Async})
	return nil
}

func (c *Checker) checkExpr(expr ast.Expr) (types.Type, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		switch e.Kind {
		case ast.LitNumber:
			return types.Number, nil
		case ast.LitString:
			return types.String, nil
		case ast.LitBool:
			return types.Boolean, nil
		default:
			return types.Null, nil
		}
	case *ast.Identifier:
		if t, ok := c.resolve(e.Name); ok {
			return t, nil
		}
		return types.Unknown{}, nil
	case *ast.Binary:
		return c.checkBinary(e)
	case *ast.Unary:
		operand, err := c.checkExpr(e.Operand)
		if err != nil {
			return nil, err
		}
		if e.Op == "!" {
			return types.Boolean, nil
		}
		if !isUnknown(operand) && !types.Equal(operand, types.Number) {
			return nil, fmt.Errorf("unary %s requires number operand, got %s at line %d", e.Op, types.ToString(operand), e.Token.Line)
		}
		return types.Number, nil
	case *ast.Await:
		if !c.inAsync && !c.topLevelAwaitAllowed {
			return nil, fmt.Errorf("await is only valid inside an async function or at top level at line %d", e.Token.Line)
		}
		argType, err := c.checkExpr(e.Argument)
		if err != nil {
			return nil, err
		}
		if p, ok := argType.(types.Promise); ok {
			return p.Resolve, nil
		}
		if isUnknown(argType) {
			return types.Unknown{}, nil
		}
		return argType, nil
	case *ast.Call:
		return c.checkCall(e)
	case *ast.Member:
		return c.checkMember(e)
	case *ast.Array:
		return c.checkArray(e)
	case *ast.Object:
		return c.checkObject(e)
	case *ast.Conditional:
		return c.checkConditional(e)
	case *ast.Arrow:
		return c.checkArrow(e)
	case *ast.Assignment:
		return c.checkAssignment(e)
	default:
		return nil, fmt.Errorf("unhandled expression type %T", e)
	}
}

func (c *Checker) checkBinary(e *ast.Binary) (types.Type, error) {
	left, err := c.checkExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.checkExpr(e.Right)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "&&", "||":
		return types.Boolean, nil
	case "==", "!=", "<", "<=", ">", ">=":
		return types.Boolean, nil
	case "+":
		if types.Equal(left, types.String) || types.Equal(right, types.String) {
			return types.String, nil
		}
		if isUnknown(left) || isUnknown(right) {
			return types.Unknown{}, nil
		}
		if !types.Equal(left, types.Number) || !types.Equal(right, types.Number) {
			return nil, fmt.Errorf("operator + requires numbers or strings, got %s and %s at line %d",
				types.ToString(left), types.ToString(right), e.Token.Line)
		}
		return types.Number, nil
	case "-", "*", "/", "%":
		if isUnknown(left) || isUnknown(right) {
			return types.Unknown{}, nil
		}
		if !types.Equal(left, types.Number) || !types.Equal(right, types.Number) {
			return nil, fmt.Errorf("operator %s requires numbers, got %s and %s at line %d",
				e.Op, types.ToString(left), types.ToString(right), e.Token.Line)
		}
		return types.Number, nil
	default:
		return nil, fmt.Errorf("unknown operator %q at line %d", e.Op, e.Token.Line)
	}
}

func (c *Checker) checkCall(e *ast.Call) (types.Type, error) {
	calleeType, err := c.checkExpr(e.Callee)
	if err != nil {
		return nil, err
	}
	for _, arg := range e.Args {
		if _, err := c.checkExpr(arg); err != nil {
			return nil, err
		}
	}
	switch ct := calleeType.(type) {
	case types.Function:
		return ct.Return, nil
	case types.Unknown:
		return types.Unknown{}, nil
	default:
		return nil, fmt.Errorf("cannot call a value of type %s at line %d", types.ToString(calleeType), e.Token.Line)
	}
}

// arrayMembers are the built-in Array.prototype-style methods the
// checker understands on any Array<T> receiver.
var arrayMembers = map[string]func(elem types.Type) types.Type{
	"length": func(types.Type) types.Type { return types.Number },
	"filter": func(elem types.Type) types.Type {
		return types.Function{Params: []types.Type{types.Array{Element: elem}}, Return: types.Array{Element: elem}}
	},
	"map": func(elem types.Type) types.Type {
		return types.Function{Params: []types.Type{types.Unknown{}}, Return: types.Unknown{}}
	},
	"includes": func(types.Type) types.Type {
		return types.Function{Params: []types.Type{types.Unknown{}}, Return: types.Boolean}
	},
	"join": func(types.Type) types.Type {
		return types.Function{Params: []types.Type{types.String}, Return: types.String}
	},
	"find": func(elem types.Type) types.Type {
		return types.Function{Params: []types.Type{types.Unknown{}}, Return: elem}
	},
	"at": func(elem types.Type) types.Type {
		return types.Function{Params: []types.Type{types.Number}, Return: elem}
	},
	"slice": func(elem types.Type) types.Type {
		return types.Function{Params: []types.Type{types.Number}, Return: types.Array{Element: elem}}
	},
	"concat": func(elem types.Type) types.Type {
		return types.Function{Params: []types.Type{types.Array{Element: elem}}, Return: types.Array{Element: elem}}
	},
	"findIndex": func(types.Type) types.Type {
		return types.Function{Params: []types.Type{types.Unknown{}}, Return: types.Number}
	},
	"indexOf": func(elem types.Type) types.Type {
		return types.Function{Params: []types.Type{elem}, Return: types.Number}
	},
	"some": func(types.Type) types.Type {
		return types.Function{Params: []types.Type{types.Unknown{}}, Return: types.Boolean}
	},
	"every": func(types.Type) types.Type {
		return types.Function{Params: []types.Type{types.Unknown{}}, Return: types.Boolean}
	},
}

func (c *Checker) checkMember(e *ast.Member) (types.Type, error) {
	objType, err := c.checkExpr(e.Object)
	if err != nil {
		return nil, err
	}
	if e.Computed {
		lit, ok := e.Property.(*ast.Literal)
		if !ok || lit.Kind != ast.LitString {
			return nil, fmt.Errorf("computed member access requires a literal string key at line %d", e.Token.Line)
		}
		return c.lookupField(objType, lit.Str, e)
	}
	ident, ok := e.Property.(*ast.Identifier)
	if !ok {
		return nil, fmt.Errorf("expected a field name at line %d", e.Token.Line)
	}
	return c.lookupField(objType, ident.Name, e)
}

func (c *Checker) lookupField(objType types.Type, name string, e *ast.Member) (types.Type, error) {
	switch ot := objType.(type) {
	case types.Object:
		if ft, ok := ot.Lookup(name); ok {
			return ft, nil
		}
		return nil, fmt.Errorf("object type %s has no field %q at line %d", types.ToString(ot), name, e.Token.Line)
	case types.Array:
		if isNumericKey(name) {
			return ot.Element, nil
		}
		if fn, ok := arrayMembers[name]; ok {
			return fn(ot.Element), nil
		}
		return nil, fmt.Errorf("array has no member %q at line %d", name, e.Token.Line)
	case types.Unknown:
		return types.Unknown{}, nil
	default:
		return nil, fmt.Errorf("cannot access field %q on %s at line %d", name, types.ToString(objType), e.Token.Line)
	}
}

func (c *Checker) checkArray(e *ast.Array) (types.Type, error) {
	if len(e.Elements) == 0 {
		return types.Array{Element: types.Unknown{}}, nil
	}
	elemTypes := make([]types.Type, len(e.Elements))
	for i, el := range e.Elements {
		t, err := c.checkExpr(el)
		if err != nil {
			return nil, err
		}
		elemTypes[i] = t
	}
	elem := elemTypes[0]
	for _, t := range elemTypes[1:] {
		if !types.Equal(t, elem) {
			elem = types.Union{Alternatives: elemTypes}
			break
		}
	}
	return types.Array{Element: elem}, nil
}

func (c *Checker) checkObject(e *ast.Object) (types.Type, error) {
	fields := make([]types.Field, len(e.Fields))
	for i, f := range e.Fields {
		t, err := c.checkExpr(f.Value)
		if err != nil {
			return nil, err
		}
		fields[i] = types.Field{Name: f.Key, Type: t}
	}
	return types.Object{Fields: fields}, nil
}

func (c *Checker) checkConditional(e *ast.Conditional) (types.Type, error) {
	condType, err := c.checkExpr(e.Test)
	if err != nil {
		return nil, err
	}
	if !types.Equal(condType, types.Boolean) && !isUnknown(condType) {
		return nil, fmt.Errorf("conditional test must be boolean, got %s at line %d", types.ToString(condType), e.Token.Line)
	}
	thenType, err := c.checkExpr(e.Then)
	if err != nil {
		return nil, err
	}
	elseType, err := c.checkExpr(e.Else)
	if err != nil {
		return nil, err
	}
	if types.Equal(thenType, elseType) {
		return thenType, nil
	}
	return types.Union{Alternatives: []types.Type{thenType, elseType}}, nil
}

func (c *Checker) checkArrow(e *ast.Arrow) (types.Type, error) {
	c.pushScope()
	paramTypes := make([]types.Type, len(e.Params))
	for i, p := range e.Params {
		paramTypes[i] = types.Unknown{}
		c.define(p, types.Unknown{})
	}
	prevAsync, prevTLA := c.inAsync, c.topLevelAwaitAllowed
	c.inAsync = e.Async
	c.topLevelAwaitAllowed = false
	bodyType, err := c.checkExpr(e.Body)
	c.inAsync, c.topLevelAwaitAllowed = prevAsync, prevTLA
	c.popScope()
	if err != nil {
		return nil, err
	}
	ret := bodyType
	if e.Async {
		if _, ok := ret.(types.Promise); !ok {
			ret = types.Promise{Resolve: ret}
		}
	}
	return types.Function{Params: paramTypes, Return: ret, Async: e.Async}, nil
}

// checkAssignment rebinds an Identifier target to the value's type
// (assignment widens the variable's tracked type rather than being
// constrained by it) and reports the value's type as the expression's
// result. A non-Identifier target (e.g. a Member) is still checked for
// validity, but has no binding to update.
func (c *Checker) checkAssignment(e *ast.Assignment) (types.Type, error) {
	valueType, err := c.checkExpr(e.Value)
	if err != nil {
		return nil, err
	}
	if ident, ok := e.Target.(*ast.Identifier); ok {
		c.define(ident.Name, valueType)
		return valueType, nil
	}
	if _, err := c.checkExpr(e.Target); err != nil {
		return nil, err
	}
	return valueType, nil
}

// resolveAnn turns surface type-annotation syntax into a semantic Type,
// resolving ReferenceAnn names against the custom-type registry.
func (c *Checker) resolveAnn(ann ast.TypeAnn) (types.Type, error) {
	switch a := ann.(type) {
	case ast.PrimitiveAnn:
		switch a.Name {
		case "number":
			return types.Number, nil
		case "string":
			return types.String, nil
		case "boolean":
			return types.Boolean, nil
		case "null":
			return types.Null, nil
		default:
			return nil, fmt.Errorf("unknown primitive type %q", a.Name)
		}
	case ast.ArrayAnn:
		el, err := c.resolveAnn(a.Element)
		if err != nil {
			return nil, err
		}
		return types.Array{Element: el}, nil
	case ast.ObjectAnn:
		fields := make([]types.Field, len(a.Fields))
		for i, f := range a.Fields {
			ft, err := c.resolveAnn(f.Ann)
			if err != nil {
				return nil, err
			}
			fields[i] = types.Field{Name: f.Name, Type: ft}
		}
		return types.Object{Fields: fields}, nil
	case ast.UnionAnn:
		alts := make([]types.Type, len(a.Alternatives))
		for i, alt := range a.Alternatives {
			t, err := c.resolveAnn(alt)
			if err != nil {
				return nil, err
			}
			alts[i] = t
		}
		return types.Union{Alternatives: alts}, nil
	case ast.PromiseAnn:
		inner, err := c.resolveAnn(a.Resolve)
		if err != nil {
			return nil, err
		}
		return types.Promise{Resolve: inner}, nil
	case ast.ReferenceAnn:
		if t, ok := c.registry.Lookup(a.Name); ok {
			return t, nil
		}
		return nil, fmt.Errorf("unknown type %q", a.Name)
	default:
		return nil, fmt.Errorf("unhandled type annotation %T", a)
	}
}
