package dorm

import (
	"reflect"
	"testing"
)

func TestMarshalUnmarshalBlob_RoundTrip(t *testing.T) {
	cat := buildBooksAuthors(t)

	blob, err := cat.MarshalBlob()
	if err != nil {
		t.Fatalf("MarshalBlob: %v", err)
	}

	got, err := UnmarshalCatalogBlob(blob)
	if err != nil {
		t.Fatalf("UnmarshalCatalogBlob: %v", err)
	}

	if got.AtomCount() != cat.AtomCount() || got.EdgeCount() != cat.EdgeCount() {
		t.Fatalf("atom/edge counts diverged: got %d/%d want %d/%d",
			got.AtomCount(), got.EdgeCount(), cat.AtomCount(), cat.EdgeCount())
	}

	for i := 0; i < cat.AtomCount(); i++ {
		if !reflect.DeepEqual(cat.Atom(AtomRef(i)), got.Atom(AtomRef(i))) {
			t.Fatalf("atom %d diverged: got %+v want %+v", i, got.Atom(AtomRef(i)), cat.Atom(AtomRef(i)))
		}
	}
	for i := 0; i < cat.EdgeCount(); i++ {
		if !reflect.DeepEqual(cat.Edge(EdgeRef(i)), got.Edge(EdgeRef(i))) {
			t.Fatalf("edge %d diverged: got %+v want %+v", i, got.Edge(EdgeRef(i)), cat.Edge(EdgeRef(i)))
		}
	}

	// Names still resolve identically post round-trip.
	bookRef, err := got.AtomByName("Book")
	if err != nil {
		t.Fatalf("AtomByName(Book) after round-trip: %v", err)
	}
	if got.Atom(bookRef).AtomName() != "Book" {
		t.Fatalf("expected Book, got %q", got.Atom(bookRef).AtomName())
	}

	// Round-tripped catalog must still pass the checker identically.
	diags := Check(got)
	if diags.HasErrors() {
		t.Fatalf("round-tripped catalog failed checker: %+v", diags.Errors)
	}
}
