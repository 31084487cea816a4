package dorm

import "testing"

// buildBooksAuthors constructs the "Books-Authors, FLAT" scenario from §8:
// classes Book{id,title,pub}, Author{authorId,name,age,gender,country}, a
// "writes" association between them, one Set containing one Struct
// anchored on Book with Author as its element.
func buildBooksAuthors(t *testing.T) *Catalog {
	t.Helper()
	b := NewCatalogBuilder()

	b.AddClass("Book", 1000, []AttributeSpec{
		{Name: "id", DataType: "int", IsIdentifier: true, DistinctValues: 1000},
		{Name: "title", DataType: "string", Size: 200},
		{Name: "pub", DataType: "string", Size: 100},
	}, "")

	b.AddClass("Author", 300, []AttributeSpec{
		{Name: "authorId", DataType: "int", IsIdentifier: true, DistinctValues: 300},
		{Name: "name", DataType: "string", Size: 100},
		{Name: "age", DataType: "int"},
		{Name: "gender", DataType: "string", Size: 10},
		{Name: "country", DataType: "string", Size: 50},
	}, "")

	_, err := b.AddAssociation("writes", [2]EndSpec{
		{Name: "writesBookEnd", Class: "Book", Role: "book", MinMult: 0, MaxMult: -1},
		{Name: "writesAuthorEnd", Class: "Author", Role: "author", MinMult: 1, MaxMult: 1},
	})
	if err != nil {
		t.Fatalf("AddAssociation: %v", err)
	}

	if _, err := b.AddStruct("bookAuthor", []string{"Author"}, []string{"Book"}); err != nil {
		t.Fatalf("AddStruct: %v", err)
	}
	if _, err := b.AddSet("books", []string{"bookAuthor"}); err != nil {
		t.Fatalf("AddSet: %v", err)
	}

	cat, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cat
}

func TestBooksAuthorsChecksClean(t *testing.T) {
	cat := buildBooksAuthors(t)
	diags := Check(cat)
	if diags.HasErrors() {
		t.Fatalf("expected no errors, got %+v", diags.Errors)
	}
}

func TestAtomByName_UnknownName(t *testing.T) {
	cat := buildBooksAuthors(t)
	if _, err := cat.AtomByName("NoSuchClass"); !IsUnknownName(err) {
		t.Fatalf("expected ErrUnknownName, got %v", err)
	}
}

func TestDuplicateNames_FlaggedByChecker(t *testing.T) {
	b := NewCatalogBuilder()
	b.AddClass("Book", 10, []AttributeSpec{{Name: "id", DataType: "int", IsIdentifier: true, DistinctValues: 10}}, "")
	b.AddClass("Book", 10, []AttributeSpec{{Name: "id2", DataType: "int", IsIdentifier: true, DistinctValues: 10}}, "")
	cat, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	diags := Check(cat)
	found := false
	for _, e := range diags.Errors {
		if e.RuleID == "domain-unique-names" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected domain-unique-names violation, got %+v", diags.Errors)
	}
}

func TestDisconnectedDomain_FlaggedByChecker(t *testing.T) {
	b := NewCatalogBuilder()
	b.AddClass("Book", 10, []AttributeSpec{{Name: "id", DataType: "int", IsIdentifier: true, DistinctValues: 10}}, "")
	b.AddClass("Island", 5, []AttributeSpec{{Name: "iid", DataType: "int", IsIdentifier: true, DistinctValues: 5}}, "")
	cat, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	diags := Check(cat)
	found := false
	for _, e := range diags.Errors {
		if e.RuleID == "domain-connected" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected domain-connected violation, got %+v", diags.Errors)
	}
}

// TestSiblingDiscriminator_Required checks the class-membership form of
// the sibling-discriminator rule: two Structs sharing a Set with identical
// class membership require a sibling discriminator to distinguish them.
func TestSiblingDiscriminator_Required(t *testing.T) {
	b := NewCatalogBuilder()
	b.AddClass("Person", 100, []AttributeSpec{{Name: "pid", DataType: "int", IsIdentifier: true, DistinctValues: 100}}, "")

	if _, err := b.AddStruct("personStructA", nil, []string{"Person"}); err != nil {
		t.Fatalf("AddStruct A: %v", err)
	}
	if _, err := b.AddStruct("personStructB", nil, []string{"Person"}); err != nil {
		t.Fatalf("AddStruct B: %v", err)
	}
	if _, err := b.AddSet("people", []string{"personStructA", "personStructB"}); err != nil {
		t.Fatalf("AddSet: %v", err)
	}

	cat, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	diags := Check(cat)

	found := false
	for _, e := range diags.Errors {
		if e.RuleID == "design-sibling-discriminator" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected design-sibling-discriminator violation, got %+v", diags.Errors)
	}
}
