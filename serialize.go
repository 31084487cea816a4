package dorm

import (
	"encoding/json"
	"fmt"
)

// blobAtom is the wire form of one AtomValue, tagged by kind so
// UnmarshalCatalogBlob can reconstruct the right concrete type. Only the
// fields relevant to the atom's kind are populated.
type blobAtom struct {
	Kind AtomKind `json:"kind"`

	// Class
	Name          string  `json:"name"`
	InstanceCount int64   `json:"instanceCount,omitempty"`
	Attributes    []int   `json:"attributes,omitempty"`
	Superclass    int     `json:"superclass,omitempty"`

	// Attribute
	Class          int    `json:"class,omitempty"`
	DataType       string `json:"dataType,omitempty"`
	Size           int    `json:"size,omitempty"`
	DistinctValues int64  `json:"distinctValues,omitempty"`
	IsIdentifier   bool   `json:"isIdentifier,omitempty"`

	// AssociationEnd
	Role        string `json:"role,omitempty"`
	MinMult     int    `json:"minMult,omitempty"`
	MaxMult     int    `json:"maxMult,omitempty"`
	Association int    `json:"association,omitempty"`

	// Association
	Ends [2]int `json:"ends,omitempty"`

	// Generalization
	Subclasses []blobGenSubclass `json:"subclasses,omitempty"`
	Disjoint   bool              `json:"disjoint,omitempty"`
	Complete   bool              `json:"complete,omitempty"`
}

type blobGenSubclass struct {
	Class      int    `json:"class"`
	Constraint string `json:"constraint"`
}

type blobRef struct {
	Kind RefKind `json:"kind"`
	Atom int     `json:"atom,omitempty"`
	Edge int     `json:"edge,omitempty"`
}

// blobEdge is the wire form of one EdgeValue.
type blobEdge struct {
	Kind EdgeKind `json:"kind"`

	Name string `json:"name"`

	// Struct
	Elements []blobRef `json:"elements,omitempty"`
	Anchor   []blobRef `json:"anchor,omitempty"`

	// Set
	Contents    []int `json:"contents,omitempty"`
	SingleClass int   `json:"singleClass,omitempty"`
}

// catalogBlob is the full self-contained wire form of a Catalog: the two
// arenas plus the duplicate-name list, serialized in insertion order so the
// arena indices used throughout (AtomRef/EdgeRef) round-trip exactly. The
// name index is not stored; it is rebuilt from the names on decode.
type catalogBlob struct {
	Atoms          []blobAtom `json:"atoms"`
	Edges          []blobEdge `json:"edges"`
	DuplicateNames []string   `json:"duplicateNames,omitempty"`
}

func refToBlob(r Ref) blobRef {
	return blobRef{Kind: r.Kind, Atom: int(r.Atom), Edge: int(r.Edge)}
}

func blobToRef(b blobRef) Ref {
	return Ref{Kind: b.Kind, Atom: AtomRef(b.Atom), Edge: EdgeRef(b.Edge)}
}

// MarshalBlob encodes the Catalog as a self-contained JSON blob (§12
// "Persisted catalog" form (a)): the arenas plus duplicate-name list, in
// insertion order, so UnmarshalCatalogBlob reconstructs a Catalog with
// identical AtomRef/EdgeRef values.
func (c *Catalog) MarshalBlob() ([]byte, error) {
	blob := catalogBlob{
		DuplicateNames: c.duplicateNames,
	}

	for _, a := range c.atoms {
		switch v := a.(type) {
		case *Class:
			attrs := make([]int, len(v.Attributes))
			for i, r := range v.Attributes {
				attrs[i] = int(r)
			}
			blob.Atoms = append(blob.Atoms, blobAtom{
				Kind: KindClass, Name: v.Name, InstanceCount: v.InstanceCount,
				Attributes: attrs, Superclass: int(v.Superclass),
			})
		case *Attribute:
			blob.Atoms = append(blob.Atoms, blobAtom{
				Kind: KindAttribute, Name: v.Name, Class: int(v.Class),
				DataType: v.DataType, Size: v.Size,
				DistinctValues: v.DistinctValues, IsIdentifier: v.IsIdentifier,
			})
		case *AssociationEnd:
			blob.Atoms = append(blob.Atoms, blobAtom{
				Kind: KindAssociationEnd, Name: v.Name, Class: int(v.Class),
				Role: v.Role, MinMult: v.MinMult, MaxMult: v.MaxMult,
				Association: int(v.Association),
			})
		case *Association:
			blob.Atoms = append(blob.Atoms, blobAtom{
				Kind: KindAssociation, Name: v.Name,
				Ends: [2]int{int(v.Ends[0]), int(v.Ends[1])},
			})
		case *Generalization:
			subs := make([]blobGenSubclass, len(v.Subclasses))
			for i, s := range v.Subclasses {
				subs[i] = blobGenSubclass{Class: int(s.Class), Constraint: s.Constraint}
			}
			blob.Atoms = append(blob.Atoms, blobAtom{
				Kind: KindGeneralization, Name: v.Name, Superclass: int(v.Superclass),
				Subclasses: subs, Disjoint: v.Disjoint, Complete: v.Complete,
			})
		}
	}

	for _, e := range c.edges {
		switch v := e.(type) {
		case *Struct:
			elems := make([]blobRef, len(v.Elements))
			for i, r := range v.Elements {
				elems[i] = refToBlob(r)
			}
			anchor := make([]blobRef, len(v.Anchor))
			for i, r := range v.Anchor {
				anchor[i] = refToBlob(r)
			}
			blob.Edges = append(blob.Edges, blobEdge{
				Kind: KindStruct, Name: v.Name, Elements: elems, Anchor: anchor,
			})
		case *Set:
			contents := make([]int, len(v.Contents))
			for i, r := range v.Contents {
				contents[i] = int(r)
			}
			blob.Edges = append(blob.Edges, blobEdge{
				Kind: KindSet, Name: v.Name, Contents: contents, SingleClass: int(v.SingleClass),
			})
		}
	}

	return json.Marshal(blob)
}

// UnmarshalCatalogBlob decodes a blob written by Catalog.MarshalBlob back
// into a Catalog structurally equal to the original: same arena order, same
// AtomRef/EdgeRef values, same name index.
func UnmarshalCatalogBlob(data []byte) (*Catalog, error) {
	var blob catalogBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	cat := &Catalog{
		atomIndex:      make(map[string]AtomRef),
		edgeIndex:      make(map[string]EdgeRef),
		duplicateNames: blob.DuplicateNames,
	}

	for _, ba := range blob.Atoms {
		var v AtomValue
		switch ba.Kind {
		case KindClass:
			attrs := make([]AtomRef, len(ba.Attributes))
			for i, a := range ba.Attributes {
				attrs[i] = AtomRef(a)
			}
			v = &Class{Name: ba.Name, InstanceCount: ba.InstanceCount, Attributes: attrs, Superclass: AtomRef(ba.Superclass)}
		case KindAttribute:
			v = &Attribute{
				Name: ba.Name, Class: AtomRef(ba.Class), DataType: ba.DataType,
				Size: ba.Size, DistinctValues: ba.DistinctValues, IsIdentifier: ba.IsIdentifier,
			}
		case KindAssociationEnd:
			v = &AssociationEnd{
				Name: ba.Name, Class: AtomRef(ba.Class), Role: ba.Role,
				MinMult: ba.MinMult, MaxMult: ba.MaxMult, Association: AtomRef(ba.Association),
			}
		case KindAssociation:
			v = &Association{Name: ba.Name, Ends: [2]AtomRef{AtomRef(ba.Ends[0]), AtomRef(ba.Ends[1])}}
		case KindGeneralization:
			subs := make([]GenSubclass, len(ba.Subclasses))
			for i, s := range ba.Subclasses {
				subs[i] = GenSubclass{Class: AtomRef(s.Class), Constraint: s.Constraint}
			}
			v = &Generalization{Name: ba.Name, Superclass: AtomRef(ba.Superclass), Subclasses: subs, Disjoint: ba.Disjoint, Complete: ba.Complete}
		default:
			return nil, fmt.Errorf("%w: unknown atom kind %d", ErrParse, ba.Kind)
		}
		cat.atomIndex[v.AtomName()] = AtomRef(len(cat.atoms))
		cat.atoms = append(cat.atoms, v)
	}

	for _, be := range blob.Edges {
		var v EdgeValue
		switch be.Kind {
		case KindStruct:
			elems := make([]Ref, len(be.Elements))
			for i, r := range be.Elements {
				elems[i] = blobToRef(r)
			}
			anchor := make([]Ref, len(be.Anchor))
			for i, r := range be.Anchor {
				anchor[i] = blobToRef(r)
			}
			v = &Struct{Name: be.Name, Elements: elems, Anchor: anchor}
		case KindSet:
			contents := make([]EdgeRef, len(be.Contents))
			for i, c := range be.Contents {
				contents[i] = EdgeRef(c)
			}
			v = &Set{Name: be.Name, Contents: contents, SingleClass: AtomRef(be.SingleClass)}
		default:
			return nil, fmt.Errorf("%w: unknown edge kind %d", ErrParse, be.Kind)
		}
		cat.edgeIndex[v.EdgeName()] = EdgeRef(len(cat.edges))
		cat.edges = append(cat.edges, v)
	}

	return cat, nil
}
