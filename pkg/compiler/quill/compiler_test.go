package quill_test

import (
	"strings"
	"testing"

	"github.com/quillscript/compiler/pkg/compiler/quill"
	"github.com/quillscript/compiler/pkg/compiler/types"
)

func TestCompile_SimpleReturn(t *testing.T) {
	c := quill.NewCompiler(nil)
	result := c.Compile(`return 42`)
	if !result.OK {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.ReturnType != "number" {
		t.Fatalf("got %q, want %q", result.ReturnType, "number")
	}
	if !strings.Contains(result.Code, "return 42;") {
		t.Fatalf("got %q", result.Code)
	}
}

func TestCompile_SyntaxError(t *testing.T) {
	c := quill.NewCompiler(nil)
	result := c.Compile(`let x 1`)
	if result.OK {
		t.Fatal("expected a parse failure")
	}
	if result.Error == "" {
		t.Fatal("expected an error message")
	}
}

func TestCompile_TypeError(t *testing.T) {
	c := quill.NewCompiler(nil)
	result := c.Compile(`let x: number = "a"`)
	if result.OK {
		t.Fatal("expected a type-check failure")
	}
}

func TestCompile_RegisteredObjectType(t *testing.T) {
	c := quill.NewCompiler(nil)
	spellType := quill.CreateObjectType("Spell", []types.Field{
		{Name: "name", Type: types.String},
		{Name: "level", Type: types.Number},
	})
	c.RegisterType("Spell", spellType)

	result := c.Compile(`
let s: Spell = { name: "Fireball", level: 3 }
return s
`)
	if !result.OK {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.ReturnType != "Spell" {
		t.Fatalf("got %q, want %q", result.ReturnType, "Spell")
	}
	if !strings.Contains(result.Code, `_type: "Spell"`) {
		t.Fatalf("expected _type tag on named object literal, got %q", result.Code)
	}
}

func TestCompile_FilterReturnsArrayOfNamedType(t *testing.T) {
	c := quill.NewCompiler(nil)
	spellType := quill.CreateObjectType("Spell", []types.Field{
		{Name: "name", Type: types.String},
		{Name: "level", Type: types.Number},
	})
	c.RegisterType("Spell", spellType)
	c.RegisterFunction("getSpells", nil, quill.CreateArrayType(spellType), false)

	result := c.Compile(`
let spells: Spell[] = getSpells()
let high = spells.filter(s => s.level > 5)
return high
`)
	if !result.OK {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.ReturnType != "Spell[]" {
		t.Fatalf("got %q, want %q", result.ReturnType, "Spell[]")
	}
}

func TestCompile_UnionReturnAcrossBranches(t *testing.T) {
	c := quill.NewCompiler(nil)
	spellType := quill.CreateObjectType("Spell", []types.Field{
		{Name: "name", Type: types.String},
	})
	c.RegisterType("Spell", spellType)
	c.RegisterFunction("getSpells", nil, quill.CreateArrayType(spellType), false)

	result := c.Compile(`
let spells: Spell[] = getSpells()
if spells.length > 0 {
	return spells
} else {
	return null
}
`)
	if !result.OK {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	want := "Spell[] | null"
	if result.ReturnType != want {
		t.Fatalf("got %q, want %q", result.ReturnType, want)
	}
}

func TestCompile_DeclaredVsInferredFunctionReturnCompatible(t *testing.T) {
	c := quill.NewCompiler(nil)
	result := c.Compile(`
fn describe(level: number) -> string {
	if level > 5 {
		return "dangerous"
	}
	return "manageable"
}
return describe(3)
`)
	if !result.OK {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.ReturnType != "string" {
		t.Fatalf("got %q, want %q", result.ReturnType, "string")
	}
}

func TestCompile_AsyncFunctionStringification(t *testing.T) {
	c := quill.NewCompiler(nil)
	spellType := quill.CreateObjectType("Spell", []types.Field{{Name: "name", Type: types.String}})
	c.RegisterType("Spell", spellType)
	c.RegisterFunction("fetchSpells", nil, types.Promise{Resolve: quill.CreateArrayType(spellType)}, true)

	result := c.Compile(`
async fn load() -> Spell[] {
	return await fetchSpells()
}
return load
`)
	if !result.OK {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	want := "async () => Promise<Spell[]>"
	if result.ReturnType != want {
		t.Fatalf("got %q, want %q", result.ReturnType, want)
	}
}

func TestCompile_PersistsRegisteredTypesAcrossCalls(t *testing.T) {
	c := quill.NewCompiler(nil)
	c.RegisterType("Spell", quill.CreateObjectType("Spell", []types.Field{
		{Name: "name", Type: types.String},
	}))

	first := c.Compile(`let s: Spell = { name: "a" }`)
	if !first.OK {
		t.Fatalf("unexpected error on first compile: %s", first.Error)
	}
	second := c.Compile(`let s2: Spell = { name: "b" }`)
	if !second.OK {
		t.Fatalf("registered type did not survive to a second Compile call: %s", second.Error)
	}
}

func TestCompile_ContextTypesVisible(t *testing.T) {
	c := quill.NewCompiler(map[string]types.Type{
		"casterLevel": types.Number,
	})
	result := c.Compile(`return casterLevel + 1`)
	if !result.OK {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.ReturnType != "number" {
		t.Fatalf("got %q, want %q", result.ReturnType, "number")
	}
}
