package dorm

import "sort"

// GeneralizationClosure returns the ancestors of class c plus c itself, in
// hierarchy order (c first, then its superclass, then its superclass's
// superclass, ...). Used to resolve attribute ownership: a subclass "sees"
// every attribute owned by any class in its closure.
//
// Acyclicity of generalizations is a domain invariant (§3); this walk does
// not itself guard against a cycle reaching back to c, since the Checker is
// responsible for rejecting cyclic schemas before any compiler runs it.
func (c *Catalog) GeneralizationClosure(class AtomRef) []AtomRef {
	closure := []AtomRef{class}
	cur := class
	for {
		cls, ok := c.atoms[cur].(*Class)
		if !ok || cls.Superclass == InvalidRef {
			return closure
		}
		cur = cls.Superclass
		closure = append(closure, cur)
	}
}

// Siblings returns the classes sharing a Generalization with c (i.e. classes
// that are subclasses under the same generalization as c), excluding c
// itself.
func (c *Catalog) Siblings(class AtomRef) []AtomRef {
	var out []AtomRef
	for _, g := range c.Generalizations() {
		isMember := false
		for _, sc := range g.Subclasses {
			if sc.Class == class {
				isMember = true
				break
			}
		}
		if !isMember {
			continue
		}
		for _, sc := range g.Subclasses {
			if sc.Class != class {
				out = append(out, sc.Class)
			}
		}
	}
	return out
}

// PathHop is one edge traversed by a domain path: from one class to
// another, across either an Association (via its end names) or a
// Generalization link.
type PathHop struct {
	EdgeName string // association or generalization name, used for tie-break
	From     AtomRef
	To       AtomRef
}

// Path is a sequence of hops connecting two atoms through the domain graph.
type Path struct {
	Hops []PathHop
}

// domainAdjacency is a (from-class -> hop) adjacency list built lazily from
// the catalog's associations and, when allowGeneralization is set,
// generalization super/sub links.
func (c *Catalog) domainAdjacency(allowGeneralization bool) map[AtomRef][]PathHop {
	adj := make(map[AtomRef][]PathHop)
	add := func(name string, a, b AtomRef) {
		adj[a] = append(adj[a], PathHop{EdgeName: name, From: a, To: b})
		adj[b] = append(adj[b], PathHop{EdgeName: name, From: b, To: a})
	}
	for _, assoc := range c.Associations() {
		end0 := c.atoms[assoc.Ends[0]].(*AssociationEnd)
		end1 := c.atoms[assoc.Ends[1]].(*AssociationEnd)
		add(assoc.Name, end0.Class, end1.Class)
	}
	if allowGeneralization {
		for _, g := range c.Generalizations() {
			for _, sc := range g.Subclasses {
				add(g.Name, g.Superclass, sc.Class)
			}
		}
	}
	for _, hops := range adj {
		sort.Slice(hops, func(i, j int) bool { return hops[i].EdgeName < hops[j].EdgeName })
	}
	return adj
}

// DomainPaths returns every minimal-length path between atoms a and b,
// ordered shortest-first and, among equal-length paths, by the §4.1
// tie-break rule: the path whose first edge has the lexicographically
// smaller hyperedge name sorts first. Only Class atoms participate in the
// traversal graph directly; Attribute/AssociationEnd/Association/
// Generalization atoms are resolved to their owning/endpoint classes by
// the caller before invoking this.
func (c *Catalog) DomainPaths(a, b AtomRef, allowGeneralization bool) ([]Path, error) {
	if a == b {
		return []Path{{}}, nil
	}
	adj := c.domainAdjacency(allowGeneralization)

	// BFS to find the shortest distance from a to b.
	dist := map[AtomRef]int{a: 0}
	queue := []AtomRef{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == b {
			break
		}
		for _, hop := range adj[cur] {
			if _, seen := dist[hop.To]; !seen {
				dist[hop.To] = dist[cur] + 1
				queue = append(queue, hop.To)
			}
		}
	}
	target, ok := dist[b]
	if !ok {
		return nil, nil // disconnected; caller maps this to ErrDisconnected
	}

	// Enumerate every path of exactly the shortest length via bounded DFS.
	var paths []Path
	var walk func(cur AtomRef, depth int, hops []PathHop)
	walk = func(cur AtomRef, depth int, hops []PathHop) {
		if cur == b && depth == target {
			cp := make([]PathHop, len(hops))
			copy(cp, hops)
			paths = append(paths, Path{Hops: cp})
			return
		}
		if depth >= target {
			return
		}
		for _, hop := range adj[cur] {
			if d, ok := dist[hop.To]; !ok || d != depth+1 {
				continue
			}
			walk(hop.To, depth+1, append(hops, hop))
		}
	}
	walk(a, 0, nil)

	sort.SliceStable(paths, func(i, j int) bool {
		if len(paths[i].Hops) == 0 || len(paths[j].Hops) == 0 {
			return len(paths[i].Hops) < len(paths[j].Hops)
		}
		return paths[i].Hops[0].EdgeName < paths[j].Hops[0].EdgeName
	})
	return paths, nil
}

// StructPath returns the unique path from atom x to the anchor of struct.
// Uniqueness is a design invariant (§3 "exactly one path from every element
// to the anchor"); this returns ErrAmbiguousPath if more than one candidate
// anchor element yields a distinct minimal path, which the Checker's
// path-uniqueness rule is expected to have already ruled out.
func (c *Catalog) StructPath(s *Struct, x Ref) (Path, error) {
	if len(s.Anchor) == 0 {
		return Path{}, ErrInternalAssertion
	}
	xClass, ok := c.refClass(x)
	if !ok {
		return Path{}, ErrInternalAssertion
	}

	var found []Path
	seen := make(map[string]bool)
	for _, anchorRef := range s.Anchor {
		anchorClass, ok := c.refClass(anchorRef)
		if !ok {
			continue
		}
		paths, err := c.DomainPaths(xClass, anchorClass, true)
		if err != nil {
			return Path{}, err
		}
		for _, p := range paths {
			key := pathKey(p)
			if seen[key] {
				continue
			}
			seen[key] = true
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return Path{}, ErrDisconnected
	}
	if len(found) > 1 {
		return found[0], ErrAmbiguousPath
	}
	return found[0], nil
}

func pathKey(p Path) string {
	s := ""
	for _, h := range p.Hops {
		s += h.EdgeName + ">"
	}
	return s
}

// refClass resolves a Ref down to the Class atom it is "rooted" at: a Class
// ref is itself, an Attribute/AssociationEnd ref resolves to its owning/
// endpoint class.
func (c *Catalog) refClass(r Ref) (AtomRef, bool) {
	if r.Kind != RefAtomKind {
		return InvalidRef, false
	}
	switch v := c.atoms[r.Atom].(type) {
	case *Class:
		return r.Atom, true
	case *Attribute:
		return v.Class, true
	case *AssociationEnd:
		return v.Class, true
	default:
		return InvalidRef, false
	}
}

// SetsContaining returns every Set into whose Structs atom transitively
// belongs (directly as an element/anchor member, or as the single wrapped
// Class).
func (c *Catalog) SetsContaining(atom AtomRef) []*Set {
	var out []*Set
	for _, s := range c.Sets() {
		if s.SingleClass == atom {
			out = append(out, s)
			continue
		}
		for _, structRef := range s.Contents {
			st := c.edges[structRef].(*Struct)
			if structContainsAtom(st, atom) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func structContainsAtom(s *Struct, atom AtomRef) bool {
	for _, r := range s.Elements {
		if r.Kind == RefAtomKind && r.Atom == atom {
			return true
		}
	}
	for _, r := range s.Anchor {
		if r.Kind == RefAtomKind && r.Atom == atom {
			return true
		}
	}
	return false
}
