package dorm

import "fmt"

// AtomKind is the closed set of domain node kinds. Every algorithm that
// walks atoms dispatches on this tag rather than using an inheritance
// hierarchy.
type AtomKind int

const (
	KindClass AtomKind = iota
	KindAttribute
	KindAssociationEnd
	KindAssociation
	KindGeneralization
)

// String renders the atom kind for diagnostics.
func (k AtomKind) String() string {
	switch k {
	case KindClass:
		return "Class"
	case KindAttribute:
		return "Attribute"
	case KindAssociationEnd:
		return "AssociationEnd"
	case KindAssociation:
		return "Association"
	case KindGeneralization:
		return "Generalization"
	default:
		return "Unknown"
	}
}

// EdgeKind is the closed set of design hyperedge kinds.
type EdgeKind int

const (
	KindStruct EdgeKind = iota
	KindSet
)

func (k EdgeKind) String() string {
	switch k {
	case KindStruct:
		return "Struct"
	case KindSet:
		return "Set"
	default:
		return "Unknown"
	}
}

// AtomRef is a stable index into the Catalog's atom arena. It is the
// weak, name-independent handle that traversals and compiler results hold;
// the Catalog itself owns the underlying value.
type AtomRef int

// EdgeRef is a stable index into the Catalog's hyperedge arena.
type EdgeRef int

// InvalidRef marks an absent reference (e.g. a Class with no superclass).
const InvalidRef = -1

// Class is a domain class atom.
type Class struct {
	Name          string
	InstanceCount int64
	Attributes    []AtomRef // AtomRef -> Attribute, owned by this class
	Superclass    AtomRef   // InvalidRef if none
}

// Attribute is a domain attribute atom, owned by exactly one class.
type Attribute struct {
	Name           string
	Class          AtomRef
	DataType       string
	Size           int
	DistinctValues int64
	IsIdentifier   bool
}

// AssociationEnd is one of the two ends of an Association.
type AssociationEnd struct {
	Name        string
	Class       AtomRef
	Role        string
	MinMult     int
	MaxMult     int // -1 means unbounded ("*")
	Association AtomRef
}

// Association is a binary relationship between two classes.
type Association struct {
	Name string
	Ends [2]AtomRef // AtomRef -> AssociationEnd
}

// GenSubclass is one (subclass, constraint-predicate) pair of a Generalization.
type GenSubclass struct {
	Class      AtomRef
	Constraint string
}

// Generalization is a rooted specialization hierarchy: one superclass and a
// list of (subclass, constraint) pairs.
type Generalization struct {
	Name       string
	Superclass AtomRef
	Subclasses []GenSubclass
	Disjoint   bool
	Complete   bool
}

// RefKind distinguishes an atom-or-edge reference, used wherever the domain
// file format allows either (Struct elements/anchor, Set contents).
type RefKind int

const (
	RefAtomKind RefKind = iota
	RefEdgeKind
)

// Ref is a resolved atom-or-edge reference.
type Ref struct {
	Kind RefKind
	Atom AtomRef
	Edge EdgeRef
}

// Name returns the referenced atom or edge's name, given the owning catalog.
func (r Ref) Name(cat *Catalog) string {
	if r.Kind == RefAtomKind {
		return cat.Atom(r.Atom).AtomName()
	}
	return cat.Edge(r.Edge).EdgeName()
}

// Struct is a design hyperedge representing a typed record: a set of
// elements together with a distinguished, disjoint anchor subset.
type Struct struct {
	Name     string
	Elements []Ref
	Anchor   []Ref
}

// Set is a design hyperedge representing a collection: either an ordered
// list of Structs (the common case) or a single Class.
type Set struct {
	Name        string
	Contents    []EdgeRef // EdgeRef -> Struct, when SingleClass == InvalidRef
	SingleClass AtomRef   // InvalidRef unless this Set wraps a bare Class
}

// AtomValue is the interface every concrete atom type implements, giving
// uniform access across the closed set of AtomKind cases.
type AtomValue interface {
	AtomName() string
	AtomKind() AtomKind
}

func (c *Class) AtomName() string          { return c.Name }
func (c *Class) AtomKind() AtomKind        { return KindClass }
func (a *Attribute) AtomName() string      { return a.Name }
func (a *Attribute) AtomKind() AtomKind    { return KindAttribute }
func (e *AssociationEnd) AtomName() string { return e.Name }
func (e *AssociationEnd) AtomKind() AtomKind {
	return KindAssociationEnd
}
func (a *Association) AtomName() string    { return a.Name }
func (a *Association) AtomKind() AtomKind  { return KindAssociation }
func (g *Generalization) AtomName() string { return g.Name }
func (g *Generalization) AtomKind() AtomKind {
	return KindGeneralization
}

// EdgeValue is the interface both hyperedge types implement.
type EdgeValue interface {
	EdgeName() string
	EdgeKind() EdgeKind
}

func (s *Struct) EdgeName() string   { return s.Name }
func (s *Struct) EdgeKind() EdgeKind { return KindStruct }
func (s *Set) EdgeName() string      { return s.Name }
func (s *Set) EdgeKind() EdgeKind    { return KindSet }

// Catalog is the labelled hypergraph G = (N, H): an arena of atoms and
// hyperedges addressed by stable integer indices, plus the name index that
// backs atoms_by_name / edges_by_name. It is built once by a CatalogBuilder
// and never mutated afterward; the Checker and every compiler treat it as
// read-only.
type Catalog struct {
	atoms []AtomValue
	edges []EdgeValue

	atomIndex map[string]AtomRef
	edgeIndex map[string]EdgeRef

	// duplicateNames records names inserted more than once during
	// construction. The Loader does not reject these outright (it performs
	// no semantic checks); the Checker's global-uniqueness rule reports
	// them.
	duplicateNames []string
}

// AtomCount returns the number of atoms in the arena.
func (c *Catalog) AtomCount() int { return len(c.atoms) }

// EdgeCount returns the number of hyperedges in the arena.
func (c *Catalog) EdgeCount() int { return len(c.edges) }

// Atom returns the atom at ref. Panics on an out-of-range ref; callers that
// hold a Ref obtained from this Catalog never pass an invalid one.
func (c *Catalog) Atom(ref AtomRef) AtomValue { return c.atoms[ref] }

// Edge returns the hyperedge at ref.
func (c *Catalog) Edge(ref EdgeRef) EdgeValue { return c.edges[ref] }

// Atoms returns every atom in insertion order.
func (c *Catalog) Atoms() []AtomValue { return c.atoms }

// Edges returns every hyperedge in insertion order.
func (c *Catalog) Edges() []EdgeValue { return c.edges }

// AtomByName looks up an atom by its globally unique name.
func (c *Catalog) AtomByName(name string) (AtomRef, error) {
	ref, ok := c.atomIndex[name]
	if !ok {
		return InvalidRef, fmt.Errorf("%w: atom %q", ErrUnknownName, name)
	}
	return ref, nil
}

// EdgeByName looks up a hyperedge by its globally unique name.
func (c *Catalog) EdgeByName(name string) (EdgeRef, error) {
	ref, ok := c.edgeIndex[name]
	if !ok {
		return InvalidRef, fmt.Errorf("%w: edge %q", ErrUnknownName, name)
	}
	return ref, nil
}

// ClassByName is a convenience wrapper for the common case of resolving a
// name straight to a *Class.
func (c *Catalog) ClassByName(name string) (AtomRef, *Class, error) {
	ref, err := c.AtomByName(name)
	if err != nil {
		return InvalidRef, nil, err
	}
	cls, ok := c.atoms[ref].(*Class)
	if !ok {
		return InvalidRef, nil, fmt.Errorf("%w: %q is not a Class", ErrUnknownName, name)
	}
	return ref, cls, nil
}

// DuplicateNames returns every name that was registered more than once
// during construction, in first-duplicate-detected order.
func (c *Catalog) DuplicateNames() []string { return c.duplicateNames }

// Classes returns every Class atom in the catalog, in insertion order.
func (c *Catalog) Classes() []*Class {
	var out []*Class
	for _, a := range c.atoms {
		if cl, ok := a.(*Class); ok {
			out = append(out, cl)
		}
	}
	return out
}

// Generalizations returns every Generalization atom in the catalog.
func (c *Catalog) Generalizations() []*Generalization {
	var out []*Generalization
	for _, a := range c.atoms {
		if g, ok := a.(*Generalization); ok {
			out = append(out, g)
		}
	}
	return out
}

// Associations returns every Association atom in the catalog.
func (c *Catalog) Associations() []*Association {
	var out []*Association
	for _, a := range c.atoms {
		if as, ok := a.(*Association); ok {
			out = append(out, as)
		}
	}
	return out
}

// Sets returns every Set hyperedge in the catalog.
func (c *Catalog) Sets() []*Set {
	var out []*Set
	for _, e := range c.edges {
		if s, ok := e.(*Set); ok {
			out = append(out, s)
		}
	}
	return out
}

// Structs returns every Struct hyperedge in the catalog.
func (c *Catalog) Structs() []*Struct {
	var out []*Struct
	for _, e := range c.edges {
		if s, ok := e.(*Struct); ok {
			out = append(out, s)
		}
	}
	return out
}
