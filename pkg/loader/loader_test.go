package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm/dorm"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

const domainYAML = `
classes:
  - name: Book
    instanceCount: 1000
    attributes:
      - name: id
        dataType: int
        isIdentifier: true
        distinctVals: 1000
      - name: title
        dataType: string
        size: 200
  - name: Author
    instanceCount: 300
    attributes:
      - name: authorId
        dataType: int
        isIdentifier: true
        distinctVals: 300
      - name: name
        dataType: string
        size: 100
associations:
  - name: writes
    ends:
      - name: writesBookEnd
        class: Book
        role: book
        minMult: 0
        maxMult: -1
      - name: writesAuthorEnd
        class: Author
        role: author
        minMult: 1
        maxMult: 1
`

const designYAML = `
domain: books.yaml
hyperedges:
  - name: bookAuthor
    kind: Struct
    elements: [Author]
    anchor: [Book]
  - name: books
    kind: Set
    contents: [bookAuthor]
`

const queriesYAML = `
- project: [title, name]
  pattern: [Book, writes, Author]
  filter: "author_age>100"
`

func TestLoadDomain_ParsesClassesAndAssociations(t *testing.T) {
	path := writeFixture(t, "domain.yaml", domainYAML)
	doc, err := LoadDomain(path)
	if err != nil {
		t.Fatalf("LoadDomain: %v", err)
	}
	if len(doc.Classes) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(doc.Classes))
	}
	if doc.Classes[0].Name != "Book" || doc.Classes[0].InstanceCount != 1000 {
		t.Errorf("unexpected first class: %+v", doc.Classes[0])
	}
	if len(doc.Associations) != 1 || doc.Associations[0].Name != "writes" {
		t.Errorf("unexpected associations: %+v", doc.Associations)
	}
}

func TestLoadDesign_ParsesHyperedges(t *testing.T) {
	path := writeFixture(t, "design.yaml", designYAML)
	doc, err := LoadDesign(path)
	if err != nil {
		t.Fatalf("LoadDesign: %v", err)
	}
	if len(doc.Hyperedges) != 2 {
		t.Fatalf("expected 2 hyperedges, got %d", len(doc.Hyperedges))
	}
}

func TestLoadQueries_ParsesQueryList(t *testing.T) {
	path := writeFixture(t, "queries.yaml", queriesYAML)
	doc, err := LoadQueries(path)
	if err != nil {
		t.Fatalf("LoadQueries: %v", err)
	}
	if len(doc) != 1 {
		t.Fatalf("expected 1 query, got %d", len(doc))
	}
	if doc[0].Filter != "author_age>100" {
		t.Errorf("unexpected filter: %q", doc[0].Filter)
	}
}

func TestLoadDomain_MalformedYAMLIsParseError(t *testing.T) {
	path := writeFixture(t, "bad.yaml", "classes: [not, a, mapping")
	_, err := LoadDomain(path)
	if err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestBuildCatalog_WiresDomainAndDesign(t *testing.T) {
	domainPath := writeFixture(t, "domain.yaml", domainYAML)
	designPath := writeFixture(t, "design.yaml", designYAML)

	domainDoc, err := LoadDomain(domainPath)
	if err != nil {
		t.Fatalf("LoadDomain: %v", err)
	}
	designDoc, err := LoadDesign(designPath)
	if err != nil {
		t.Fatalf("LoadDesign: %v", err)
	}

	cat, err := BuildCatalog(domainDoc, designDoc)
	if err != nil {
		t.Fatalf("BuildCatalog: %v", err)
	}

	diags := dorm.Check(cat)
	if diags.HasErrors() {
		t.Fatalf("expected a clean catalog, got %+v", diags.Errors)
	}
	if _, err := cat.AtomByName("Book"); err != nil {
		t.Errorf("expected Book to resolve: %v", err)
	}
	if _, err := cat.EdgeByName("books"); err != nil {
		t.Errorf("expected books Set to resolve: %v", err)
	}
}

func TestBuildCatalog_DomainOnlyWhenDesignNil(t *testing.T) {
	domainPath := writeFixture(t, "domain.yaml", domainYAML)
	domainDoc, err := LoadDomain(domainPath)
	if err != nil {
		t.Fatalf("LoadDomain: %v", err)
	}
	cat, err := BuildCatalog(domainDoc, nil)
	if err != nil {
		t.Fatalf("BuildCatalog: %v", err)
	}
	if cat.EdgeCount() != 0 {
		t.Fatalf("expected no hyperedges without a design document, got %d", cat.EdgeCount())
	}
}
