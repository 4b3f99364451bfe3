package emitter_test

import (
	"strings"
	"testing"

	"github.com/quillscript/compiler/pkg/compiler/emitter"
	"github.com/quillscript/compiler/pkg/compiler/parser"
)

func emit(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	code, err := emitter.Emit(prog)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	return code
}

func TestEmit_VarDecl(t *testing.T) {
	code := emit(t, `let x = 1`)
	if !strings.Contains(code, "let x = 1;") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_ConstDecl(t *testing.T) {
	code := emit(t, `const x = 1`)
	if !strings.Contains(code, "const x = 1;") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_TypeAndInterfaceDeclsErased(t *testing.T) {
	code := emit(t, `
type Spell = { name: string }
interface Caster { name: string }
let x = 1
`)
	if strings.Contains(code, "Spell") || strings.Contains(code, "Caster") {
		t.Fatalf("expected type/interface decls to be erased, got %q", code)
	}
	if !strings.Contains(code, "let x = 1;") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_FunctionDecl(t *testing.T) {
	code := emit(t, `fn add(a: number, b: number) -> number { return a + b }`)
	if !strings.Contains(code, "function add(a, b) {") {
		t.Fatalf("got %q", code)
	}
	if !strings.Contains(code, "return (a + b);") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_AsyncFunctionDecl(t *testing.T) {
	code := emit(t, `async fn load() { return 1 }`)
	if !strings.Contains(code, "async function load() {") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_UndeclaredIdentifierAwaitedAtTopLevel(t *testing.T) {
	code := emit(t, `let x = context`)
	if !strings.Contains(code, "let x = await context;") {
		t.Fatalf("expected host global read to be awaited, got %q", code)
	}
}

func TestEmit_DeclaredIdentifierNotAwaited(t *testing.T) {
	code := emit(t, `
let spells = 1
let x = spells
`)
	if strings.Contains(code, "await spells") {
		t.Fatalf("declared local should never be awaited, got %q", code)
	}
}

func TestEmit_AwaitNotInjectedInsideSyncFunction(t *testing.T) {
	code := emit(t, `fn f() { let x = context }`)
	if strings.Contains(code, "await") {
		t.Fatalf("sync function body must not emit await, got %q", code)
	}
}

func TestEmit_UndeclaredCallGetsAwaited(t *testing.T) {
	code := emit(t, `let x = fetchSpells()`)
	if !strings.Contains(code, "let x = await fetchSpells();") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_UndeclaredMemberObjectGetsAwaited(t *testing.T) {
	code := emit(t, `let x = spells.length`)
	if !strings.Contains(code, "(await spells).length") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_AssignmentTargetIdentifierNeverAwaited(t *testing.T) {
	code := emit(t, `
let x = 1
x = 2
`)
	if strings.Contains(code, "await x") {
		t.Fatalf("assignment target identifier must never be awaited, got %q", code)
	}
}

func TestEmit_ExplicitAwaitEmittedVerbatim(t *testing.T) {
	code := emit(t, `let x = await fetchSpells()`)
	if !strings.Contains(code, "let x = await fetchSpells();") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_ForAwaitLoop(t *testing.T) {
	code := emit(t, `for await s in spells { let a = s }`)
	if !strings.Contains(code, "for await (const s of") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_ForLoop(t *testing.T) {
	code := emit(t, `
let spells = 1
for s in spells { let a = s }
`)
	if !strings.Contains(code, "for (const s of spells) {") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_ObjectLiteralNoTypeTag(t *testing.T) {
	code := emit(t, `let x = { name: "a", level: 1 }`)
	if strings.Contains(code, "_type") {
		t.Fatalf("untyped object literal should not carry _type, got %q", code)
	}
	if !strings.Contains(code, `name: "a"`) || !strings.Contains(code, "level: 1") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_NumericComputedMemberEmitsBareIndex(t *testing.T) {
	code := emit(t, `
let xs = [1, 2, 3]
let x = xs[0]
`)
	if !strings.Contains(code, "xs[0]") {
		t.Fatalf("expected a bare numeric index, got %q", code)
	}
	if strings.Contains(code, `xs["0"]`) {
		t.Fatalf("numeric index should not be quoted, got %q", code)
	}
}

func TestEmit_ArrowFunction(t *testing.T) {
	code := emit(t, `let f = (a, b) => a + b`)
	if !strings.Contains(code, "(a, b) => (a + b)") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_ArrayLiteral(t *testing.T) {
	code := emit(t, `let x = [1, 2, 3]`)
	if !strings.Contains(code, "let x = [1, 2, 3];") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_ConditionalExpr(t *testing.T) {
	code := emit(t, `let x = true ? 1 : 2`)
	if !strings.Contains(code, "(true ? 1 : 2)") {
		t.Fatalf("got %q", code)
	}
}

func TestEmit_StringLiteralDoubleQuoted(t *testing.T) {
	code := emit(t, `let x = "hello world"`)
	if !strings.Contains(code, `"hello world"`) {
		t.Fatalf("got %q", code)
	}
}
