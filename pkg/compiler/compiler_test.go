package compiler

import (
	"testing"

	"github.com/pthm/dorm"
)

func validCatalog(t *testing.T) *dorm.Catalog {
	t.Helper()
	b := dorm.NewCatalogBuilder()
	b.AddClass("Book", 10, []dorm.AttributeSpec{
		{Name: "id", DataType: "int", IsIdentifier: true, DistinctValues: 10},
		{Name: "title", DataType: "string", Size: 100},
	}, "")
	if _, err := b.AddStruct("bookStruct", nil, []string{"Book"}); err != nil {
		t.Fatalf("AddStruct: %v", err)
	}
	if _, err := b.AddSet("books", []string{"bookStruct"}); err != nil {
		t.Fatalf("AddSet: %v", err)
	}
	cat, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cat
}

func TestCompile_Success(t *testing.T) {
	cat := validCatalog(t)
	schema, diags, err := Compile(cat, FLAT)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if diags.HasErrors() {
		t.Fatalf("expected no errors, got %+v", diags.Errors)
	}
	if len(schema.Tables) == 0 {
		t.Fatalf("expected at least one table")
	}
}

func TestCompile_CheckerFailureReturnsZeroSchema(t *testing.T) {
	b := dorm.NewCatalogBuilder()
	b.AddClass("Book", 10, []dorm.AttributeSpec{{Name: "id", DataType: "int", IsIdentifier: true, DistinctValues: 10}}, "")
	b.AddClass("Island", 5, []dorm.AttributeSpec{{Name: "iid", DataType: "int", IsIdentifier: true, DistinctValues: 5}}, "")
	cat, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	schema, diags, err := Compile(cat, FLAT)
	if err == nil {
		t.Fatalf("expected an error for a disconnected domain")
	}
	if !diags.HasErrors() {
		t.Fatalf("expected diagnostics to carry the errors")
	}
	if len(schema.Tables) != 0 {
		t.Fatalf("expected a zero-value schema on checker failure")
	}
}
