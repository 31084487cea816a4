package dorm

import "fmt"

// CatalogBuilder assembles a Catalog from the name-based references a
// Loader reads off the domain/design documents (§6). It performs structural
// resolution only (turning names into AtomRef/EdgeRef) — no semantic
// invariant is enforced here; that is the Checker's job.
//
// Usage mirrors the two input documents: classes (with inline attributes)
// and associations/generalizations are added first, then the design
// hyperedges (Struct, Set) which may reference either atoms or edges by
// name.
type CatalogBuilder struct {
	cat *Catalog

	pendingSuperclass map[AtomRef]string // class ref -> superclass name, resolved in Build
}

// NewCatalogBuilder returns an empty builder.
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{
		cat: &Catalog{
			atomIndex: make(map[string]AtomRef),
			edgeIndex: make(map[string]EdgeRef),
		},
		pendingSuperclass: make(map[AtomRef]string),
	}
}

func (b *CatalogBuilder) registerAtom(name string, v AtomValue) AtomRef {
	if _, exists := b.cat.atomIndex[name]; exists {
		b.cat.duplicateNames = append(b.cat.duplicateNames, name)
	}
	ref := AtomRef(len(b.cat.atoms))
	b.cat.atoms = append(b.cat.atoms, v)
	b.cat.atomIndex[name] = ref
	return ref
}

func (b *CatalogBuilder) registerEdge(name string, v EdgeValue) EdgeRef {
	if _, exists := b.cat.edgeIndex[name]; exists {
		b.cat.duplicateNames = append(b.cat.duplicateNames, name)
	}
	ref := EdgeRef(len(b.cat.edges))
	b.cat.edges = append(b.cat.edges, v)
	b.cat.edgeIndex[name] = ref
	return ref
}

// AttributeSpec describes one attribute inline within a class, matching the
// domain file's classes[].attributes[] shape.
type AttributeSpec struct {
	Name           string
	DataType       string
	Size           int
	DistinctValues int64
	IsIdentifier   bool
}

// AddClass registers a class together with its inline attributes. superclass
// may be empty; if non-empty it is resolved once every class has been
// added (classes may be declared in any order in the source document).
func (b *CatalogBuilder) AddClass(name string, instanceCount int64, attrs []AttributeSpec, superclass string) AtomRef {
	classRef := b.registerAtom(name, &Class{Name: name, InstanceCount: instanceCount, Superclass: InvalidRef})
	cls := b.cat.atoms[classRef].(*Class)
	for _, a := range attrs {
		attrRef := b.registerAtom(a.Name, &Attribute{
			Name:           a.Name,
			Class:          classRef,
			DataType:       a.DataType,
			Size:           a.Size,
			DistinctValues: a.DistinctValues,
			IsIdentifier:   a.IsIdentifier,
		})
		cls.Attributes = append(cls.Attributes, attrRef)
	}
	if superclass != "" {
		b.pendingSuperclass[classRef] = superclass
	}
	return classRef
}

// EndSpec describes one end of an association.
type EndSpec struct {
	Name    string
	Class   string
	Role    string
	MinMult int
	MaxMult int
}

// AddAssociation registers a binary association and its two ends. Ends are
// always length 2; callers (the loader) are expected to have already
// validated document shape — the "associations are binary" invariant is
// re-checked by the Checker regardless.
func (b *CatalogBuilder) AddAssociation(name string, ends [2]EndSpec) (AtomRef, error) {
	assocRef := b.registerAtom(name, &Association{Name: name})
	assoc := b.cat.atoms[assocRef].(*Association)
	for i, es := range ends {
		classRef, err := b.cat.AtomByName(es.Class)
		if err != nil {
			return InvalidRef, fmt.Errorf("association %q end %q: %w", name, es.Name, err)
		}
		endRef := b.registerAtom(es.Name, &AssociationEnd{
			Name:        es.Name,
			Class:       classRef,
			Role:        es.Role,
			MinMult:     es.MinMult,
			MaxMult:     es.MaxMult,
			Association: assocRef,
		})
		assoc.Ends[i] = endRef
	}
	return assocRef, nil
}

// SubclassSpec is one (subclass-name, constraint) pair for a generalization.
type SubclassSpec struct {
	Class      string
	Constraint string
}

// AddGeneralization registers a generalization. Superclass and subclass
// names are resolved immediately since, unlike class-to-superclass links,
// the document schema requires classes to already be declared.
func (b *CatalogBuilder) AddGeneralization(name, superclass string, subclasses []SubclassSpec, disjoint, complete bool) (AtomRef, error) {
	superRef, err := b.cat.AtomByName(superclass)
	if err != nil {
		return InvalidRef, fmt.Errorf("generalization %q: superclass: %w", name, err)
	}
	g := &Generalization{Name: name, Superclass: superRef, Disjoint: disjoint, Complete: complete}
	for _, sc := range subclasses {
		subRef, err := b.cat.AtomByName(sc.Class)
		if err != nil {
			return InvalidRef, fmt.Errorf("generalization %q: subclass: %w", name, err)
		}
		g.Subclasses = append(g.Subclasses, GenSubclass{Class: subRef, Constraint: sc.Constraint})
	}
	return b.registerAtom(name, g), nil
}

// resolveRefs turns a list of atom-or-edge names into Refs. Used for Struct
// elements/anchor and Set contents.
func (b *CatalogBuilder) resolveRefs(names []string) ([]Ref, error) {
	refs := make([]Ref, 0, len(names))
	for _, n := range names {
		if aref, err := b.cat.AtomByName(n); err == nil {
			refs = append(refs, Ref{Kind: RefAtomKind, Atom: aref})
			continue
		}
		if eref, err := b.cat.EdgeByName(n); err == nil {
			refs = append(refs, Ref{Kind: RefEdgeKind, Edge: eref})
			continue
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownName, n)
	}
	return refs, nil
}

// AddStruct registers a Struct hyperedge. Its element and anchor names are
// resolved immediately, so every atom or hyperedge they name must already
// exist. AddSet likewise resolves its Struct names immediately and fails
// for a Struct not yet added; Build does not revisit either.
func (b *CatalogBuilder) AddStruct(name string, elementNames, anchorNames []string) (EdgeRef, error) {
	elements, err := b.resolveRefs(elementNames)
	if err != nil {
		return InvalidRef, fmt.Errorf("struct %q elements: %w", name, err)
	}
	anchor, err := b.resolveRefs(anchorNames)
	if err != nil {
		return InvalidRef, fmt.Errorf("struct %q anchor: %w", name, err)
	}
	return b.registerEdge(name, &Struct{Name: name, Elements: elements, Anchor: anchor}), nil
}

// AddSet registers a Set hyperedge over either a list of Struct names or a
// single Class name.
func (b *CatalogBuilder) AddSet(name string, contentNames []string) (EdgeRef, error) {
	if len(contentNames) == 1 {
		if classRef, _, err := b.cat.ClassByName(contentNames[0]); err == nil {
			return b.registerEdge(name, &Set{Name: name, SingleClass: classRef}), nil
		}
	}
	set := &Set{Name: name, SingleClass: InvalidRef}
	for _, cn := range contentNames {
		eref, err := b.cat.EdgeByName(cn)
		if err != nil {
			return InvalidRef, fmt.Errorf("set %q contents: %w", name, err)
		}
		if _, ok := b.cat.edges[eref].(*Struct); !ok {
			return InvalidRef, fmt.Errorf("set %q: %q is not a Struct", name, cn)
		}
		set.Contents = append(set.Contents, eref)
	}
	return b.registerEdge(name, set), nil
}

// Build resolves deferred superclass references and returns the finished,
// immutable Catalog.
func (b *CatalogBuilder) Build() (*Catalog, error) {
	for classRef, superName := range b.pendingSuperclass {
		superRef, err := b.cat.AtomByName(superName)
		if err != nil {
			return nil, fmt.Errorf("class %q: superclass: %w", b.cat.atoms[classRef].AtomName(), err)
		}
		b.cat.atoms[classRef].(*Class).Superclass = superRef
	}
	return b.cat, nil
}
