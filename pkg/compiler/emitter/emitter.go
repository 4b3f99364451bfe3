// Package emitter renders a checked Quill AST as source text in the
// dynamically-typed host target language. It tracks, in lockstep with
// lexical scope, which names the script itself has declared and
// whether the current position is inside an async context, so it can
// tell a script-local reference from a host global and inject the
// `await` host globals require.
package emitter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/quillscript/compiler/pkg/compiler/ast"
)

// Emitter accumulates emitted source text.
type Emitter struct {
	out    strings.Builder
	indent int

	scopes     []map[string]bool
	asyncStack []bool
}

// New creates an Emitter. The program position starts in async context,
// since the target host runs emitted top-level code under top-level
// await.
func New() *Emitter {
	return &Emitter{
		scopes:     []map[string]bool{{}},
		asyncStack: []bool{true},
	}
}

// Emit renders prog and returns the generated source text.
func Emit(prog *ast.Program) (string, error) {
	e := New()
	for _, stmt := range prog.Statements {
		if err := e.emitStatement(stmt); err != nil {
			return "", err
		}
	}
	return e.out.String(), nil
}

func (e *Emitter) pushScope()        { e.scopes = append(e.scopes, map[string]bool{}) }
func (e *Emitter) popScope()         { e.scopes = e.scopes[:len(e.scopes)-1] }
func (e *Emitter) declare(name string) { e.scopes[len(e.scopes)-1][name] = true }

func (e *Emitter) isDeclared(name string) bool {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if e.scopes[i][name] {
			return true
		}
	}
	return false
}

func (e *Emitter) pushAsync(b bool) { e.asyncStack = append(e.asyncStack, b) }
func (e *Emitter) popAsync()        { e.asyncStack = e.asyncStack[:len(e.asyncStack)-1] }
func (e *Emitter) inAsync() bool    { return e.asyncStack[len(e.asyncStack)-1] }

func (e *Emitter) line(format string, args ...any) {
	e.out.WriteString(strings.Repeat("  ", e.indent))
	fmt.Fprintf(&e.out, format, args...)
	e.out.WriteString("\n")
}

func (e *Emitter) emitStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.TypeDecl, *ast.InterfaceDecl:
		// Compile-time only; nothing to emit.
		return nil
	case *ast.VarDecl:
		value, err := e.emitExpr(s.Value)
		if err != nil {
			return err
		}
		kw := "let"
		if s.Const {
			kw = "const"
		}
		e.line("%s %s = %s;", kw, s.Name, value)
		e.declare(s.Name)
		return nil
	case *ast.FuncDecl:
		return e.emitFuncDecl(s)
	case *ast.Return:
		if s.Value == nil {
			e.line("return;")
			return nil
		}
		v, err := e.emitExpr(s.Value)
		if err != nil {
			return err
		}
		e.line("return %s;", v)
		return nil
	case *ast.If:
		return e.emitIf(s)
	case *ast.For:
		return e.emitFor(s)
	case *ast.ExprStmt:
		v, err := e.emitExpr(s.Value)
		if err != nil {
			return err
		}
		e.line("%s;", v)
		return nil
	default:
		return fmt.Errorf("unhandled statement type %T", s)
	}
}

func (e *Emitter) emitFuncDecl(d *ast.FuncDecl) error {
	e.declare(d.Name)
	paramNames := make([]string, len(d.Params))
	for i, p := range d.Params {
		paramNames[i] = p.Name
	}
	asyncKw := ""
	if d.Async {
		asyncKw = "async "
	}
	e.line("%sfunction %s(%s) {", asyncKw, d.Name, strings.Join(paramNames, ", "))
	e.indent++
	e.pushScope()
	for _, p := range d.Params {
		e.declare(p.Name)
	}
	e.pushAsync(d.Async)
	var bodyErr error
	for _, st := range d.Body {
		if err := e.emitStatement(st); err != nil {
			bodyErr = err
			break
		}
	}
	e.popAsync()
	e.popScope()
	e.indent--
	if bodyErr != nil {
		return bodyErr
	}
	e.line("}")
	return nil
}

func (e *Emitter) emitIf(s *ast.If) error {
	cond, err := e.emitExpr(s.Condition)
	if err != nil {
		return err
	}
	e.line("if (%s) {", cond)
	e.indent++
	e.pushScope()
	for _, st := range s.Then {
		if err := e.emitStatement(st); err != nil {
			e.popScope()
			e.indent--
			return err
		}
	}
	e.popScope()
	e.indent--
	if s.Else == nil {
		e.line("}")
		return nil
	}
	e.line("} else {")
	e.indent++
	e.pushScope()
	for _, st := range s.Else {
		if err := e.emitStatement(st); err != nil {
			e.popScope()
			e.indent--
			return err
		}
	}
	e.popScope()
	e.indent--
	e.line("}")
	return nil
}

func (e *Emitter) emitFor(s *ast.For) error {
	iterable, err := e.emitExpr(s.Iterable)
	if err != nil {
		return err
	}
	awaitKw := ""
	if s.Await {
		awaitKw = "await "
	}
	e.line("for %s(const %s of %s) {", awaitKw, s.Var, iterable)
	e.indent++
	e.pushScope()
	e.declare(s.Var)
	var bodyErr error
	for _, st := range s.Body {
		if err := e.emitStatement(st); err != nil {
			bodyErr = err
			break
		}
	}
	e.popScope()
	e.indent--
	if bodyErr != nil {
		return bodyErr
	}
	e.line("}")
	return nil
}

func (e *Emitter) emitExpr(expr ast.Expr) (string, error) {
	switch ex := expr.(type) {
	case *ast.Literal:
		return e.emitLiteral(ex), nil
	case *ast.Identifier:
		return e.emitIdentifierRead(ex.Name), nil
	case *ast.Binary:
		left, err := e.emitExpr(ex.Left)
		if err != nil {
			return "", err
		}
		right, err := e.emitExpr(ex.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, ex.Op, right), nil
	case *ast.Unary:
		operand, err := e.emitExpr(ex.Operand)
		if err != nil {
			return "", err
		}
		return ex.Op + operand, nil
	case *ast.Await:
		arg, err := e.emitExpr(ex.Argument)
		if err != nil {
			return "", err
		}
		// A host-global read or call is already rendered with its await
		// (emitIdentifierRead, emitCall); the script's own await is not
		// stacked on top of it.
		if e.isAutoAwaited(ex.Argument) {
			return arg, nil
		}
		return "await " + arg, nil
	case *ast.Call:
		return e.emitCall(ex)
	case *ast.Member:
		return e.emitMember(ex)
	case *ast.Array:
		return e.emitArray(ex)
	case *ast.Object:
		return e.emitObject(ex)
	case *ast.Conditional:
		test, err := e.emitExpr(ex.Test)
		if err != nil {
			return "", err
		}
		thenV, err := e.emitExpr(ex.Then)
		if err != nil {
			return "", err
		}
		elseV, err := e.emitExpr(ex.Else)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s ? %s : %s)", test, thenV, elseV), nil
	case *ast.Arrow:
		return e.emitArrow(ex)
	case *ast.Assignment:
		return e.emitAssignment(ex)
	default:
		return "", fmt.Errorf("unhandled expression type %T", ex)
	}
}

func (e *Emitter) emitLiteral(l *ast.Literal) string {
	switch l.Kind {
	case ast.LitNumber:
		return formatNumber(l.Num)
	case ast.LitString:
		return strconv.Quote(l.Str)
	case ast.LitBool:
		if l.Bool {
			return "true"
		}
		return "false"
	default:
		return "null"
	}
}

func formatNumber(v float64) string {
	if !math.IsInf(v, 0) && v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// emitIdentifierRead renders a bare name reference, awaiting it when
// it resolves to a host global (not declared by the script itself)
// and the current position is in async context.
func (e *Emitter) emitIdentifierRead(name string) string {
	if e.isDeclared(name) || !e.inAsync() {
		return name
	}
	return "await " + name
}

// isAutoAwaited reports whether expr renders with a leading await of
// its own: a host-global identifier, or a call of one, in async context.
func (e *Emitter) isAutoAwaited(expr ast.Expr) bool {
	if c, ok := expr.(*ast.Call); ok {
		expr = c.Callee
	}
	ident, ok := expr.(*ast.Identifier)
	return ok && !e.isDeclared(ident.Name) && e.inAsync()
}

func (e *Emitter) emitCall(c *ast.Call) (string, error) {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		v, err := e.emitExpr(a)
		if err != nil {
			return "", err
		}
		args[i] = v
	}
	argStr := strings.Join(args, ", ")

	if ident, ok := c.Callee.(*ast.Identifier); ok && !e.isDeclared(ident.Name) && e.inAsync() {
		return fmt.Sprintf("await %s(%s)", ident.Name, argStr), nil
	}
	callee, err := e.emitExpr(c.Callee)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", callee, argStr), nil
}

func (e *Emitter) emitMember(m *ast.Member) (string, error) {
	if ident, ok := m.Object.(*ast.Identifier); ok && !e.isDeclared(ident.Name) && e.inAsync() {
		return e.finishMember(fmt.Sprintf("(await %s)", ident.Name), m)
	}
	objStr, err := e.emitExpr(m.Object)
	if err != nil {
		return "", err
	}
	return e.finishMember(objStr, m)
}

func (e *Emitter) finishMember(objStr string, m *ast.Member) (string, error) {
	if m.Computed {
		lit, ok := m.Property.(*ast.Literal)
		if !ok || lit.Kind != ast.LitString {
			return "", fmt.Errorf("computed member access requires a literal string key at line %d", m.Token.Line)
		}
		// A key that parses as a number, such as one lowered from a
		// numeric literal (`arr[0]`), emits bare; any other key emits
		// quoted.
		if _, err := strconv.ParseFloat(lit.Str, 64); err == nil {
			return fmt.Sprintf("%s[%s]", objStr, lit.Str), nil
		}
		return fmt.Sprintf("%s[%s]", objStr, strconv.Quote(lit.Str)), nil
	}
	ident, ok := m.Property.(*ast.Identifier)
	if !ok {
		return "", fmt.Errorf("expected a field name at line %d", m.Token.Line)
	}
	return fmt.Sprintf("%s.%s", objStr, ident.Name), nil
}

func (e *Emitter) emitArray(a *ast.Array) (string, error) {
	parts := make([]string, len(a.Elements))
	for i, el := range a.Elements {
		v, err := e.emitExpr(el)
		if err != nil {
			return "", err
		}
		parts[i] = v
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}

func (e *Emitter) emitObject(o *ast.Object) (string, error) {
	var parts []string
	if o.InferredTypeName != "" {
		parts = append(parts, fmt.Sprintf("_type: %s", strconv.Quote(o.InferredTypeName)))
	}
	for _, f := range o.Fields {
		v, err := e.emitExpr(f.Value)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.Key, v))
	}
	return "{ " + strings.Join(parts, ", ") + " }", nil
}

func (e *Emitter) emitArrow(a *ast.Arrow) (string, error) {
	e.pushScope()
	for _, p := range a.Params {
		e.declare(p)
	}
	e.pushAsync(a.Async)
	body, err := e.emitExpr(a.Body)
	e.popAsync()
	e.popScope()
	if err != nil {
		return "", err
	}
	asyncKw := ""
	if a.Async {
		asyncKw = "async "
	}
	return fmt.Sprintf("%s(%s) => %s", asyncKw, strings.Join(a.Params, ", "), body), nil
}

func (e *Emitter) emitAssignment(a *ast.Assignment) (string, error) {
	target, err := e.emitAssignTarget(a.Target)
	if err != nil {
		return "", err
	}
	value, err := e.emitExpr(a.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s", target, value), nil
}

// emitAssignTarget renders an assignment's left-hand side. A bare
// identifier is never awaited — the script is naming a variable, not
// reading through one. A member target still emits its object through
// the normal read path, since resolving `obj` in `obj.field = x`
// requires a read even though the assignment as a whole is a write.
func (e *Emitter) emitAssignTarget(target ast.Expr) (string, error) {
	if ident, ok := target.(*ast.Identifier); ok {
		return ident.Name, nil
	}
	return e.emitExpr(target)
}
