package dorm

import "fmt"

func init() {
	registerDomainRule(Rule{ID: "domain-nonempty", Description: "the catalog is non-empty", Check: checkNonEmpty})
	registerDomainRule(Rule{ID: "domain-unique-names", Description: "names are globally unique", Check: checkUniqueNames})
	registerDomainRule(Rule{ID: "domain-connected", Description: "the atom graph is connected", Check: checkDomainConnected})
	registerDomainRule(Rule{ID: "domain-identifier", Description: "identifier placement rules", Check: checkIdentifierPlacement})
	registerDomainRule(Rule{ID: "domain-assoc-roles", Description: "association ends have distinct role names", Check: checkAssociationRoles})
	registerDomainRule(Rule{ID: "domain-gen-acyclic", Description: "generalizations are acyclic and single-superclass", Check: checkGeneralizationAcyclic})
	registerDomainRule(Rule{ID: "domain-attr-cardinality", Description: "attribute distinct-values respect class cardinality", Check: checkAttributeCardinality})
}

func checkNonEmpty(cat *Catalog) []Diagnostic {
	if cat.AtomCount() == 0 {
		return []Diagnostic{{Severity: SeverityError, Message: "catalog has no atoms"}}
	}
	return nil
}

func checkUniqueNames(cat *Catalog) []Diagnostic {
	var diags []Diagnostic
	for _, name := range cat.DuplicateNames() {
		diags = append(diags, Diagnostic{
			Severity:       SeverityError,
			Message:        fmt.Sprintf("name %q is used more than once", name),
			OffendingNames: []string{name},
		})
	}
	return diags
}

// checkDomainConnected verifies that the graph of classes, linked by
// associations and generalizations, is a single connected component.
func checkDomainConnected(cat *Catalog) []Diagnostic {
	classes := cat.Classes()
	if len(classes) <= 1 {
		return nil
	}
	adj := cat.domainAdjacency(true)
	refName := make(map[AtomRef]string)
	for name, ref := range cat.atomIndex {
		refName[ref] = name
	}

	start := classRefOf(cat, classes[0])
	visited := map[AtomRef]bool{start: true}
	queue := []AtomRef{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, hop := range adj[cur] {
			if !visited[hop.To] {
				visited[hop.To] = true
				queue = append(queue, hop.To)
			}
		}
	}

	var unreached []string
	for _, cls := range classes {
		ref := classRefOf(cat, cls)
		if !visited[ref] {
			unreached = append(unreached, refName[ref])
		}
	}
	if len(unreached) == 0 {
		return nil
	}
	return []Diagnostic{{
		Severity:       SeverityError,
		Message:        "domain atom graph is not connected",
		OffendingNames: unreached,
	}}
}

func classRefOf(cat *Catalog, cls *Class) AtomRef {
	ref, _ := cat.AtomByName(cls.Name)
	return ref
}

// checkIdentifierPlacement enforces: every non-generalization-rooted class
// has exactly one identifier attribute; the top of every generalization has
// an identifier; no non-top class carries an identifier.
func checkIdentifierPlacement(cat *Catalog) []Diagnostic {
	var diags []Diagnostic

	// A class is "non-top" if it appears as a subclass of some
	// generalization.
	nonTop := make(map[AtomRef]bool)
	tops := make(map[AtomRef]bool)
	for _, g := range cat.Generalizations() {
		tops[g.Superclass] = true
		for _, sc := range g.Subclasses {
			nonTop[sc.Class] = true
		}
	}

	for _, cls := range cat.Classes() {
		ref := classRefOf(cat, cls)
		idCount := 0
		for _, attrRef := range cls.Attributes {
			if cat.atoms[attrRef].(*Attribute).IsIdentifier {
				idCount++
			}
		}
		switch {
		case nonTop[ref]:
			if idCount != 0 {
				diags = append(diags, Diagnostic{
					Severity:       SeverityError,
					Message:        fmt.Sprintf("non-top class %q must not carry an identifier attribute", cls.Name),
					OffendingNames: []string{cls.Name},
				})
			}
		case tops[ref]:
			if idCount != 1 {
				diags = append(diags, Diagnostic{
					Severity:       SeverityError,
					Message:        fmt.Sprintf("generalization root %q must have exactly one identifier attribute", cls.Name),
					OffendingNames: []string{cls.Name},
				})
			}
		default:
			if idCount != 1 {
				diags = append(diags, Diagnostic{
					Severity:       SeverityError,
					Message:        fmt.Sprintf("class %q must have exactly one identifier attribute", cls.Name),
					OffendingNames: []string{cls.Name},
				})
			}
		}
	}
	return diags
}

func checkAssociationRoles(cat *Catalog) []Diagnostic {
	var diags []Diagnostic
	for _, assoc := range cat.Associations() {
		end0 := cat.atoms[assoc.Ends[0]].(*AssociationEnd)
		end1 := cat.atoms[assoc.Ends[1]].(*AssociationEnd)
		if end0.Role == end1.Role {
			diags = append(diags, Diagnostic{
				Severity:       SeverityError,
				Message:        fmt.Sprintf("association %q: both ends share role name %q", assoc.Name, end0.Role),
				OffendingNames: []string{assoc.Name, end0.Name, end1.Name},
			})
		}
	}
	return diags
}

// genColor is used by the three-color DFS cycle check, mirroring the
// teacher's relation-graph cycle detector.
type genColor int

const (
	genWhite genColor = iota
	genGray
	genBlack
)

// checkGeneralizationAcyclic enforces that no class reaches itself by
// following superclass links (each class already has ≤1 superclass by
// construction, since Class.Superclass is a single AtomRef).
func checkGeneralizationAcyclic(cat *Catalog) []Diagnostic {
	colors := make(map[AtomRef]genColor)
	var diags []Diagnostic

	var dfs func(ref AtomRef, path []string) bool
	dfs = func(ref AtomRef, path []string) bool {
		colors[ref] = genGray
		cls := cat.atoms[ref].(*Class)
		path = append(path, cls.Name)
		if cls.Superclass != InvalidRef {
			switch colors[cls.Superclass] {
			case genGray:
				cycleNames := append(append([]string{}, path...), cat.atoms[cls.Superclass].(*Class).Name)
				diags = append(diags, Diagnostic{
					Severity:       SeverityError,
					Message:        "cycle in generalization superclass chain",
					OffendingNames: cycleNames,
				})
				return true
			case genWhite:
				if dfs(cls.Superclass, path) {
					return true
				}
			}
		}
		colors[ref] = genBlack
		return false
	}

	for _, cls := range cat.Classes() {
		ref := classRefOf(cat, cls)
		if colors[ref] == genWhite {
			dfs(ref, nil)
		}
	}
	return diags
}

func checkAttributeCardinality(cat *Catalog) []Diagnostic {
	var diags []Diagnostic
	for _, cls := range cat.Classes() {
		for _, attrRef := range cls.Attributes {
			attr := cat.atoms[attrRef].(*Attribute)
			if attr.IsIdentifier {
				if attr.DistinctValues != cls.InstanceCount {
					diags = append(diags, Diagnostic{
						Severity:       SeverityError,
						Message:        fmt.Sprintf("identifier attribute %q must have distinct-values equal to class %q's instance count", attr.Name, cls.Name),
						OffendingNames: []string{attr.Name, cls.Name},
					})
				}
				continue
			}
			if attr.DistinctValues > cls.InstanceCount {
				diags = append(diags, Diagnostic{
					Severity:       SeverityError,
					Message:        fmt.Sprintf("attribute %q distinct-values (%d) exceeds class %q instance count (%d)", attr.Name, attr.DistinctValues, cls.Name, cls.InstanceCount),
					OffendingNames: []string{attr.Name, cls.Name},
				})
			}
		}
	}
	return diags
}
