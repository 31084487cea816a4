package dorm

import "fmt"

func init() {
	registerDesignRule(Rule{ID: "design-coverage", Description: "every atom appears in some Set and some Struct", Check: checkDesignCoverage})
	registerDesignRule(Rule{ID: "design-nesting-depth", Description: "nested Sets do not exceed depth 1", Check: checkNestingDepth})
	registerDesignRule(Rule{ID: "design-anchor-nonempty", Description: "every Struct has a non-empty anchor", Check: checkAnchorNonEmpty})
	registerDesignRule(Rule{ID: "design-anchor-disjoint", Description: "a Struct's anchor and non-anchor elements are disjoint", Check: checkAnchorDisjoint})
	registerDesignRule(Rule{ID: "design-struct-connected", Description: "a Struct's elements and anchor form a connected sub-hypergraph", Check: checkStructConnected})
	registerDesignRule(Rule{ID: "design-struct-no-shared-chain", Description: "no two atoms in a Struct are on the same generalization chain", Check: checkStructNoSharedChain})
	registerDesignRule(Rule{ID: "design-struct-path-uniqueness", Description: "exactly one path from every element to the anchor", Check: checkStructPathUniqueness})
	registerDesignRule(Rule{ID: "design-set-shared-anchor", Description: "Structs sharing a Set have identical anchor attributes", Check: checkSetSharedAnchor})
	registerDesignRule(Rule{ID: "design-sibling-discriminator", Description: "disjoint siblings sharing a Set require a discriminator", Check: checkSiblingDiscriminator})
}

// atomSetOf flattens a Struct's elements+anchor into a set of AtomRefs,
// ignoring nested-edge (Set) references.
func atomSetOf(refs []Ref) map[AtomRef]bool {
	out := make(map[AtomRef]bool)
	for _, r := range refs {
		if r.Kind == RefAtomKind {
			out[r.Atom] = true
		}
	}
	return out
}

// checkDesignCoverage verifies every Class atom is reachable from some
// Struct and some Set. Attribute, Association and AssociationEnd atoms are
// not checked. Classes that are pure generalization superclasses fully
// dominated by a complete covering generalization are exempt, since no
// instance of that class ever exists outside its subclasses.
func checkDesignCoverage(cat *Catalog) []Diagnostic {
	exemptSuperclass := make(map[AtomRef]bool)
	for _, g := range cat.Generalizations() {
		if g.Complete {
			exemptSuperclass[g.Superclass] = true
		}
	}

	inStruct := make(map[AtomRef]bool)
	for _, s := range cat.Structs() {
		for atom := range atomSetOf(s.Elements) {
			inStruct[atom] = true
		}
		for atom := range atomSetOf(s.Anchor) {
			inStruct[atom] = true
		}
	}
	inSet := make(map[AtomRef]bool)
	for _, set := range cat.Sets() {
		if set.SingleClass != InvalidRef {
			inSet[set.SingleClass] = true
			continue
		}
		for _, structRef := range set.Contents {
			st := cat.edges[structRef].(*Struct)
			for atom := range atomSetOf(st.Elements) {
				inSet[atom] = true
			}
			for atom := range atomSetOf(st.Anchor) {
				inSet[atom] = true
			}
		}
	}

	var diags []Diagnostic
	for _, cls := range cat.Classes() {
		ref := classRefOf(cat, cls)
		if exemptSuperclass[ref] {
			continue
		}
		if !inStruct[ref] || !inSet[ref] {
			diags = append(diags, Diagnostic{
				Severity:       SeverityError,
				Message:        fmt.Sprintf("class %q is not covered by both a Struct and a Set", cls.Name),
				OffendingNames: []string{cls.Name},
			})
		}
	}
	return diags
}

// checkNestingDepth walks each Set's Structs and rejects Set-within-Set
// nesting deeper than one level (a Struct element referring to a Set whose
// own Structs refer to another Set).
func checkNestingDepth(cat *Catalog) []Diagnostic {
	var diags []Diagnostic
	var depthOf func(setRef EdgeRef, visiting map[EdgeRef]bool) int
	depthOf = func(setRef EdgeRef, visiting map[EdgeRef]bool) int {
		if visiting[setRef] {
			return 0
		}
		visiting[setRef] = true
		set := cat.edges[setRef].(*Set)
		maxChild := 0
		for _, structRef := range set.Contents {
			st := cat.edges[structRef].(*Struct)
			for _, r := range append(append([]Ref{}, st.Elements...), st.Anchor...) {
				if r.Kind != RefEdgeKind {
					continue
				}
				if childSet, ok := cat.edges[r.Edge].(*Set); ok {
					_ = childSet
					d := 1 + depthOf(r.Edge, visiting)
					if d > maxChild {
						maxChild = d
					}
				}
			}
		}
		return maxChild
	}

	for i, set := range cat.Sets() {
		ref := EdgeRef(0)
		for er, e := range cat.edges {
			if e == EdgeValue(set) {
				ref = EdgeRef(er)
				break
			}
		}
		_ = i
		depth := depthOf(ref, map[EdgeRef]bool{})
		if depth > 1 {
			diags = append(diags, Diagnostic{
				Severity:       SeverityError,
				Message:        fmt.Sprintf("set %q nests Sets to depth %d, exceeding the JSON_NESTED limit of 1", set.Name, depth),
				OffendingNames: []string{set.Name},
			})
		}
	}
	return diags
}

func checkAnchorNonEmpty(cat *Catalog) []Diagnostic {
	var diags []Diagnostic
	for _, s := range cat.Structs() {
		if len(s.Anchor) == 0 {
			diags = append(diags, Diagnostic{
				Severity:       SeverityError,
				Message:        fmt.Sprintf("struct %q has an empty anchor", s.Name),
				OffendingNames: []string{s.Name},
			})
		}
	}
	return diags
}

func checkAnchorDisjoint(cat *Catalog) []Diagnostic {
	var diags []Diagnostic
	for _, s := range cat.Structs() {
		anchorSet := atomSetOf(s.Anchor)
		for atom := range atomSetOf(s.Elements) {
			if anchorSet[atom] {
				diags = append(diags, Diagnostic{
					Severity:       SeverityError,
					Message:        fmt.Sprintf("struct %q: anchor and non-anchor elements are not disjoint", s.Name),
					OffendingNames: []string{s.Name},
				})
				break
			}
		}
	}
	return diags
}

// checkStructConnected verifies the union of elements+anchor, and the
// anchor alone, each form a connected sub-hypergraph of the domain graph.
func checkStructConnected(cat *Catalog) []Diagnostic {
	var diags []Diagnostic
	adj := cat.domainAdjacency(true)

	connected := func(atoms map[AtomRef]bool) bool {
		if len(atoms) <= 1 {
			return true
		}
		var start AtomRef
		for a := range atoms {
			start = a
			break
		}
		visited := map[AtomRef]bool{start: true}
		queue := []AtomRef{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, hop := range adj[cur] {
				if atoms[hop.To] && !visited[hop.To] {
					visited[hop.To] = true
					queue = append(queue, hop.To)
				}
			}
		}
		return len(visited) == len(atoms)
	}

	for _, s := range cat.Structs() {
		all := atomSetOf(s.Elements)
		for a := range atomSetOf(s.Anchor) {
			all[a] = true
		}
		if !connected(all) {
			diags = append(diags, Diagnostic{
				Severity:       SeverityError,
				Message:        fmt.Sprintf("struct %q elements and anchor do not form a connected sub-hypergraph", s.Name),
				OffendingNames: []string{s.Name},
			})
		}
		if !connected(atomSetOf(s.Anchor)) {
			diags = append(diags, Diagnostic{
				Severity:       SeverityError,
				Message:        fmt.Sprintf("struct %q anchor alone is not connected", s.Name),
				OffendingNames: []string{s.Name},
			})
		}
	}
	return diags
}

// checkStructNoSharedChain verifies no two atoms referenced (directly, as
// classes) by the same Struct lie on the same generalization chain.
func checkStructNoSharedChain(cat *Catalog) []Diagnostic {
	var diags []Diagnostic
	for _, s := range cat.Structs() {
		all := atomSetOf(s.Elements)
		for a := range atomSetOf(s.Anchor) {
			all[a] = true
		}
		var classRefs []AtomRef
		for ref := range all {
			if _, ok := cat.atoms[ref].(*Class); ok {
				classRefs = append(classRefs, ref)
			}
		}
		for i := 0; i < len(classRefs); i++ {
			ci := cat.GeneralizationClosure(classRefs[i])
			closureSet := make(map[AtomRef]bool)
			for _, r := range ci {
				closureSet[r] = true
			}
			for j := i + 1; j < len(classRefs); j++ {
				if classRefs[i] == classRefs[j] {
					continue
				}
				onChain := closureSet[classRefs[j]]
				for _, r := range cat.GeneralizationClosure(classRefs[j]) {
					if r == classRefs[i] {
						onChain = true
					}
				}
				if onChain {
					diags = append(diags, Diagnostic{
						Severity: SeverityError,
						Message: fmt.Sprintf("struct %q: %q and %q are on the same generalization chain",
							s.Name, cat.atoms[classRefs[i]].AtomName(), cat.atoms[classRefs[j]].AtomName()),
						OffendingNames: []string{s.Name},
					})
				}
			}
		}
	}
	return diags
}

func checkStructPathUniqueness(cat *Catalog) []Diagnostic {
	var diags []Diagnostic
	for _, s := range cat.Structs() {
		for _, r := range s.Elements {
			if _, err := cat.StructPath(s, r); err != nil {
				diags = append(diags, Diagnostic{
					Severity:       SeverityError,
					Message:        fmt.Sprintf("struct %q: element %q does not have a unique path to the anchor: %v", s.Name, r.Name(cat), err),
					OffendingNames: []string{s.Name},
				})
			}
		}
	}
	return diags
}

// checkSetSharedAnchor verifies every Struct inside a given Set has the
// same anchor attribute signature.
func checkSetSharedAnchor(cat *Catalog) []Diagnostic {
	var diags []Diagnostic
	for _, set := range cat.Sets() {
		if len(set.Contents) < 2 {
			continue
		}
		var signatures []string
		for _, structRef := range set.Contents {
			st := cat.edges[structRef].(*Struct)
			signatures = append(signatures, anchorSignature(cat, st))
		}
		first := signatures[0]
		for i := 1; i < len(signatures); i++ {
			if signatures[i] != first {
				diags = append(diags, Diagnostic{
					Severity:       SeverityError,
					Message:        fmt.Sprintf("set %q: Structs do not share identical anchor attributes", set.Name),
					OffendingNames: []string{set.Name},
				})
				break
			}
		}
	}
	return diags
}

func anchorSignature(cat *Catalog, s *Struct) string {
	sig := ""
	for _, r := range s.Anchor {
		sig += r.Name(cat) + "|"
	}
	return sig
}

// checkSiblingDiscriminator reports every pair of Structs in the same Set
// whose class membership (elements plus anchor) is identical, since nothing
// in the data would tell their rows apart. The data model has no
// discriminator atom kind; this rule does not look at generalizations or
// attributes, so Structs that differ by any one class pass it.
func checkSiblingDiscriminator(cat *Catalog) []Diagnostic {
	var diags []Diagnostic
	for _, set := range cat.Sets() {
		if len(set.Contents) < 2 {
			continue
		}
		structClasses := make([]map[AtomRef]bool, len(set.Contents))
		for i, structRef := range set.Contents {
			st := cat.edges[structRef].(*Struct)
			classes := make(map[AtomRef]bool)
			for ref := range atomSetOf(append(append([]Ref{}, st.Elements...), st.Anchor...)) {
				if _, ok := cat.atoms[ref].(*Class); ok {
					classes[ref] = true
				}
			}
			structClasses[i] = classes
		}
		for i := 0; i < len(structClasses); i++ {
			for j := i + 1; j < len(structClasses); j++ {
				if sameClassSet(structClasses[i], structClasses[j]) {
					st1 := cat.edges[set.Contents[i]].(*Struct)
					st2 := cat.edges[set.Contents[j]].(*Struct)
					diags = append(diags, Diagnostic{
						Severity: SeverityError,
						Message: fmt.Sprintf("set %q: structs %q and %q are identical in class membership; a sibling discriminator is required to distinguish them",
							set.Name, st1.Name, st2.Name),
						OffendingNames: []string{set.Name, st1.Name, st2.Name},
					})
				}
			}
		}
	}
	return diags
}

func sameClassSet(a, b map[AtomRef]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
