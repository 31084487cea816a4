package sqlgen

import (
	"strings"
	"testing"

	"github.com/pthm/dorm"
)

// TestTranslateQuery_SingleTable covers scenario 1 from §8: a single-table
// select projecting title, name with a filter on age.
func TestTranslateQuery_SingleTable(t *testing.T) {
	cat := booksAuthors(t)
	schema, err := GenerateSchema(cat, FLAT)
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}

	result, err := TranslateQuery(cat, schema, Query{
		Project: []string{"title", "name"},
		Pattern: []string{"Book", "writes", "Author"},
		Filter:  "age>100",
	})
	if err != nil {
		t.Fatalf("TranslateQuery: %v", err)
	}
	sql := result.Statement.SQL()
	if !strings.Contains(sql, "book_title") || !strings.Contains(sql, "author_name") {
		t.Errorf("expected projected columns in %q", sql)
	}
	if !strings.Contains(sql, "WHERE") || !strings.Contains(sql, "author_age>100") {
		t.Errorf("expected the domain filter \"age>100\" rewritten to the physical column author_age, got %q", sql)
	}
	if strings.Contains(sql, "UNION") {
		t.Errorf("expected a single SELECT, no UNION ALL, got %q", sql)
	}
}

// TestTranslateQuery_FilterOnClassOutsidePatternIsDangling covers §4.4 step
// 5's dangling-predicate detection: a filter naming an attribute whose
// class was never part of the query's pattern must fail rather than be
// passed through verbatim.
func TestTranslateQuery_FilterOnClassOutsidePatternIsDangling(t *testing.T) {
	cat := booksAuthors(t)
	schema, err := GenerateSchema(cat, FLAT)
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}
	_, err = TranslateQuery(cat, schema, Query{
		Project: []string{"title"},
		Pattern: []string{"Book"},
		Filter:  "age>100",
	})
	if err == nil || !strings.Contains(err.Error(), "dangling predicate") {
		t.Fatalf("expected ErrDanglingPredicate, got %v", err)
	}
}

// booksAuthorsTwoSets builds the same Book/Author domain as booksAuthors
// but with each class compiled to its own Set/table, so a query spanning
// both exercises real cross-table join synthesis (§4.4 step 3) instead of
// the single-table dedup path.
func booksAuthorsTwoSets(t *testing.T) *dorm.Catalog {
	t.Helper()
	b := dorm.NewCatalogBuilder()
	b.AddClass("Book", 1000, []dorm.AttributeSpec{
		{Name: "id", DataType: "int", IsIdentifier: true, DistinctValues: 1000},
		{Name: "title", DataType: "string", Size: 200},
	}, "")
	b.AddClass("Author", 300, []dorm.AttributeSpec{
		{Name: "authorId", DataType: "int", IsIdentifier: true, DistinctValues: 300},
		{Name: "name", DataType: "string", Size: 100},
	}, "")
	if _, err := b.AddAssociation("writes", [2]dorm.EndSpec{
		{Name: "writesBookEnd", Class: "Book", Role: "book", MinMult: 0, MaxMult: -1},
		{Name: "writesAuthorEnd", Class: "Author", Role: "author", MinMult: 1, MaxMult: 1},
	}); err != nil {
		t.Fatalf("AddAssociation: %v", err)
	}
	if _, err := b.AddSet("books", []string{"Book"}); err != nil {
		t.Fatalf("AddSet books: %v", err)
	}
	if _, err := b.AddSet("authors", []string{"Author"}); err != nil {
		t.Fatalf("AddSet authors: %v", err)
	}
	cat, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cat
}

// TestTranslateQuery_JoinSynthesizesFKEquality covers §4.4 step 3: a
// pattern spanning two Sets connected by a loose association end must join
// on the generated FK equality, not a bare CROSS JOIN.
func TestTranslateQuery_JoinSynthesizesFKEquality(t *testing.T) {
	cat := booksAuthorsTwoSets(t)
	schema, err := GenerateSchema(cat, FLAT)
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}

	result, err := TranslateQuery(cat, schema, Query{
		Project: []string{"title", "name"},
		Pattern: []string{"Book", "writes", "Author"},
	})
	if err != nil {
		t.Fatalf("TranslateQuery: %v", err)
	}
	sql := result.Statement.SQL()
	if strings.Contains(sql, "CROSS JOIN") {
		t.Errorf("expected an FK-equality join, not a CROSS JOIN, got %q", sql)
	}
	if !strings.Contains(sql, "JOIN") || !strings.Contains(sql, " ON ") {
		t.Errorf("expected a join with an ON predicate in %q", sql)
	}
	if !strings.Contains(sql, "authors_id") && !strings.Contains(sql, "books_id") {
		t.Errorf("expected the ON predicate to equate a generated FK column to an anchor id, got %q", sql)
	}
}

// TestTranslateQuery_ProjectsAssociationEndFK covers projecting a loose
// association end directly: the emitted column must be the FK
// generateFlatTable actually placed (named after the referencing Set,
// living on the referenced Set's table), not a naive end-name guess.
func TestTranslateQuery_ProjectsAssociationEndFK(t *testing.T) {
	cat := booksAuthorsTwoSets(t)
	schema, err := GenerateSchema(cat, FLAT)
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}

	result, err := TranslateQuery(cat, schema, Query{
		Project: []string{"title", "writesBookEnd"},
		Pattern: []string{"Book", "writes", "Author"},
	})
	if err != nil {
		t.Fatalf("TranslateQuery: %v", err)
	}
	sql := result.Statement.SQL()
	if !strings.Contains(sql, "books_id") {
		t.Errorf("expected the books_id FK column (placed on the authors table) in %q", sql)
	}
}

// TestTranslateQuery_JSONNestedProjectsFromValueColumn covers §8 scenario
// 2: the same pattern/project, translated against a JSON_NESTED schema,
// reads from the value jsonb document instead of flat columns.
func TestTranslateQuery_JSONNestedProjectsFromValueColumn(t *testing.T) {
	cat := booksAuthors(t)
	schema, err := GenerateSchema(cat, JSONNested)
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}

	result, err := TranslateQuery(cat, schema, Query{
		Project: []string{"title", "name"},
		Pattern: []string{"Book", "writes", "Author"},
		Filter:  "age>100",
	})
	if err != nil {
		t.Fatalf("TranslateQuery: %v", err)
	}
	sql := result.Statement.SQL()
	if !strings.Contains(sql, "value->'book'->>'title'") || !strings.Contains(sql, "value->'author'->>'name'") {
		t.Errorf("expected jsonb path projections in %q", sql)
	}
	if !strings.Contains(sql, "value->'author'->>'age'") {
		t.Errorf("expected the filter rewritten to a jsonb path expression in %q", sql)
	}
	if strings.Contains(sql, "book_title") || strings.Contains(sql, "author_name") {
		t.Errorf("expected no FLAT column references under JSON_NESTED, got %q", sql)
	}
}

// personWithSubclasses builds the "Students-Workers generalization"
// scenario 3 from §8: Person with subclasses Student, Worker (not
// disjoint), one Set/Struct per subclass.
func personWithSubclasses(t *testing.T) *dorm.Catalog {
	t.Helper()
	b := dorm.NewCatalogBuilder()
	b.AddClass("Person", 100, []dorm.AttributeSpec{
		{Name: "pid", DataType: "int", IsIdentifier: true, DistinctValues: 100},
		{Name: "name", DataType: "string", Size: 100},
	}, "")
	b.AddClass("Student", 60, nil, "Person")
	b.AddClass("Worker", 40, nil, "Person")
	if _, err := b.AddGeneralization("personKind", "Person", []dorm.SubclassSpec{
		{Class: "Student"}, {Class: "Worker"},
	}, false, false); err != nil {
		t.Fatalf("AddGeneralization: %v", err)
	}
	if _, err := b.AddStruct("studentStruct", nil, []string{"Student"}); err != nil {
		t.Fatalf("AddStruct student: %v", err)
	}
	if _, err := b.AddStruct("workerStruct", nil, []string{"Worker"}); err != nil {
		t.Fatalf("AddStruct worker: %v", err)
	}
	if _, err := b.AddSet("students", []string{"studentStruct"}); err != nil {
		t.Fatalf("AddSet students: %v", err)
	}
	if _, err := b.AddSet("workers", []string{"workerStruct"}); err != nil {
		t.Fatalf("AddSet workers: %v", err)
	}
	cat, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cat
}

// TestTranslateQuery_GeneralizationUnion covers scenario 3: querying the
// superclass over a one-table-per-subclass design emits a UNION ALL over
// both subclass tables.
func TestTranslateQuery_GeneralizationUnion(t *testing.T) {
	cat := personWithSubclasses(t)
	schema, err := GenerateSchema(cat, FLAT)
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}

	result, err := TranslateQuery(cat, schema, Query{
		Project: []string{"pid"},
		Pattern: []string{"Person"},
	})
	if err != nil {
		t.Fatalf("TranslateQuery: %v", err)
	}
	sql := result.Statement.SQL()
	if !strings.Contains(sql, "UNION ALL") {
		t.Errorf("expected UNION ALL over subclass tables, got %q", sql)
	}
	if !strings.Contains(sql, schema.SetTable["students"]) || !strings.Contains(sql, schema.SetTable["workers"]) {
		t.Errorf("expected both subclass tables referenced, got %q", sql)
	}
}

func TestTranslateQuery_UnknownProjectNameIsUnknownName(t *testing.T) {
	cat := booksAuthors(t)
	schema, err := GenerateSchema(cat, FLAT)
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}
	_, err = TranslateQuery(cat, schema, Query{
		Project: []string{"doesNotExist"},
		Pattern: []string{"Book"},
	})
	if !dorm.IsUnknownName(err) {
		t.Fatalf("expected ErrUnknownName, got %v", err)
	}
}

func TestTranslateQuery_EmptyProjectIsParseError(t *testing.T) {
	cat := booksAuthors(t)
	schema, err := GenerateSchema(cat, FLAT)
	if err != nil {
		t.Fatalf("GenerateSchema: %v", err)
	}
	_, err = TranslateQuery(cat, schema, Query{Pattern: []string{"Book"}})
	if err == nil {
		t.Fatalf("expected an error for empty project list")
	}
}
