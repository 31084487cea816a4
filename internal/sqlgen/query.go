package sqlgen

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pthm/dorm"
	"github.com/pthm/dorm/internal/sqlgen/sqldsl"
)

// Query is a domain-level query (§4.4, §6): project names the
// attribute/association-end references to return, pattern names the
// classes and associations the query ranges over, and filter is a flat
// conjunctive predicate string referencing attributes by name.
//
// Filter is carried verbatim rather than parsed into an AST: the distilled
// domain model has no expression grammar of its own, so filter fragments
// are rewritten textually (attribute name -> physical column) and appended
// as a raw SQL WHERE clause, matching how sqldsl.Raw is used elsewhere for
// caller-supplied fragments.
//
// Document selects an alternate projection shape used by the migration
// planner when draining into a JSON_NESTED target: instead of one SQL
// column per Project entry, TranslateQuery emits a single jsonb_build_object
// expression grouping attributes by owning class, matching the document
// generateNestedTable's table expects at insert time.
type Query struct {
	Project  []string
	Pattern  []string
	Filter   string
	Document bool
}

// Result is the outcome of translating a Query against a Schema.
type Result struct {
	Statement              sqldsl.SQLer
	FromClauseDeduplicated bool
	Warnings               []dorm.Diagnostic
}

// TranslateQuery implements the §4.4 algorithm: generalization expansion,
// table mapping, join synthesis, projection synthesis, filter translation,
// and UNION ALL assembly of the surviving concrete branches.
func TranslateQuery(cat *dorm.Catalog, schema Schema, q Query) (Result, error) {
	if len(q.Project) == 0 || len(q.Pattern) == 0 {
		return Result{}, dorm.ErrParse
	}

	patternClasses, err := resolvePatternClasses(cat, q.Pattern)
	if err != nil {
		return Result{}, err
	}

	branches, err := expandGeneralizations(cat, patternClasses)
	if err != nil {
		return Result{}, err
	}
	if len(branches) == 0 {
		return Result{}, dorm.ErrEmptyExpansion
	}

	var warnings []dorm.Diagnostic
	var blocks []sqldsl.QueryBlock
	seen := make(map[string]bool)
	dedup := false

	for _, branch := range branches {
		block, branchDedup, branchWarnings, err := translateBranch(cat, schema, branch, q)
		if err != nil {
			return Result{}, err
		}
		warnings = append(warnings, branchWarnings...)
		if branchDedup {
			dedup = true
		}
		key := block.Query.SQL()
		if seen[key] {
			continue
		}
		seen[key] = true
		block.Comments = []string{"-- branch: " + branchLabel(cat, branch)}
		blocks = append(blocks, block)
	}

	rendered := sqldsl.RenderUnionBlocks(blocks)
	return Result{
		Statement:              sqldsl.Raw(rendered),
		FromClauseDeduplicated: dedup,
		Warnings:               warnings,
	}, nil
}

func resolvePatternClasses(cat *dorm.Catalog, pattern []string) ([]dorm.AtomRef, error) {
	var out []dorm.AtomRef
	for _, name := range pattern {
		ref, err := cat.AtomByName(name)
		if err == nil {
			if _, isClass := cat.Atom(ref).(*dorm.Class); isClass {
				out = append(out, ref)
				continue
			}
			if assoc, isAssoc := cat.Atom(ref).(*dorm.Association); isAssoc {
				end0 := cat.Atom(assoc.Ends[0]).(*dorm.AssociationEnd)
				end1 := cat.Atom(assoc.Ends[1]).(*dorm.AssociationEnd)
				out = append(out, end0.Class, end1.Class)
				continue
			}
		}
		return nil, dorm.ErrUnknownName
	}
	return dedupRefs(out), nil
}

func dedupRefs(refs []dorm.AtomRef) []dorm.AtomRef {
	seen := make(map[dorm.AtomRef]bool)
	var out []dorm.AtomRef
	for _, r := range refs {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// expandGeneralizations replaces each pattern class with subclasses by its
// leaf subclasses, producing one branch (list of concrete classes) per
// combination. Classes without subclasses pass through unchanged.
func expandGeneralizations(cat *dorm.Catalog, classes []dorm.AtomRef) ([][]dorm.AtomRef, error) {
	options := make([][]dorm.AtomRef, len(classes))
	for i, ref := range classes {
		leaves := leafSubclasses(cat, ref)
		if len(leaves) == 0 {
			options[i] = []dorm.AtomRef{ref}
		} else {
			options[i] = leaves
		}
	}

	branches := [][]dorm.AtomRef{{}}
	for _, opts := range options {
		var next [][]dorm.AtomRef
		for _, branch := range branches {
			for _, opt := range opts {
				nb := append(append([]dorm.AtomRef{}, branch...), opt)
				next = append(next, nb)
			}
		}
		branches = next
	}
	return branches, nil
}

func leafSubclasses(cat *dorm.Catalog, class dorm.AtomRef) []dorm.AtomRef {
	var direct []dorm.AtomRef
	for _, g := range cat.Generalizations() {
		if g.Superclass != class {
			continue
		}
		for _, sc := range g.Subclasses {
			direct = append(direct, sc.Class)
		}
	}
	if len(direct) == 0 {
		return nil
	}
	var leaves []dorm.AtomRef
	for _, d := range direct {
		sub := leafSubclasses(cat, d)
		if len(sub) == 0 {
			leaves = append(leaves, d)
		} else {
			leaves = append(leaves, sub...)
		}
	}
	return leaves
}

// branchLabel names a concrete branch by its leaf classes, so the rendered
// UNION ALL carries a comment tying each SELECT back to the generalization
// subclass it came from.
func branchLabel(cat *dorm.Catalog, branch []dorm.AtomRef) string {
	names := make([]string, len(branch))
	for i, ref := range branch {
		names[i] = cat.Atom(ref).AtomName()
	}
	return strings.Join(names, ", ")
}

// chooseSet picks the Set an atom belongs to, preferring the
// lexicographically smallest name when more than one Set contains it and
// recording a warning when that happens (mirrors the tie-break every other
// Set-resolution site in this package already applies).
func chooseSet(cat *dorm.Catalog, ref dorm.AtomRef) (*dorm.Set, []dorm.Diagnostic) {
	sets := cat.SetsContaining(ref)
	if len(sets) == 0 {
		return nil, nil
	}
	sort.Slice(sets, func(a, b int) bool { return sets[a].Name < sets[b].Name })
	var warnings []dorm.Diagnostic
	if len(sets) > 1 {
		warnings = append(warnings, dorm.Diagnostic{
			Severity: dorm.SeverityWarning,
			Message:  fmt.Sprintf("atom %q is contained by more than one Set; choosing %q", cat.Atom(ref).AtomName(), sets[0].Name),
		})
	}
	return sets[0], warnings
}

// associationEndColumn resolves a loose association end to the physical FK
// column generateFlatTable places for it. The column is named after the
// Set holding the end's own class (the "near" side) but lives on the table
// of the Set holding the opposite ("far") end's class -- matching
// generateFlatTable's "other_id on set" placement exactly (schema.go). A
// same-Set end carries no physical FK column: ok is false.
func associationEndColumn(cat *dorm.Catalog, end *dorm.AssociationEnd, ref dorm.AtomRef) (col string, owner dorm.AtomRef, ok bool) {
	assoc := cat.Atom(end.Association).(*dorm.Association)
	farRef := assoc.Ends[0]
	if farRef == ref {
		farRef = assoc.Ends[1]
	}
	far := cat.Atom(farRef).(*dorm.AssociationEnd)

	nearSet, _ := chooseSet(cat, end.Class)
	farSet, _ := chooseSet(cat, far.Class)
	if nearSet == nil || farSet == nil || nearSet.Name == farSet.Name {
		return "", 0, false
	}
	return snakeCase(nearSet.Name) + "_id", far.Class, true
}

// columnNameFor resolves a projected attribute or association-end to its
// FLAT physical column name and the class atom whose table owns that
// column, matching the naming generateFlatTable gives the same reference
// (§4.3).
func columnNameFor(cat *dorm.Catalog, ref dorm.AtomRef) (col string, owner dorm.AtomRef, ok bool) {
	switch v := cat.Atom(ref).(type) {
	case *dorm.Attribute:
		return snakeCase(cat.Atom(v.Class).AtomName()) + "_" + snakeCase(v.Name), v.Class, true
	case *dorm.AssociationEnd:
		return associationEndColumn(cat, v, ref)
	default:
		return "", 0, false
	}
}

// nestedFieldFor resolves a projected attribute or association-end to its
// place in a JSON_NESTED document: an attribute nests under its owning
// class's key (classKey, field), while an association-end's FK slot sits
// at the document's top level (field only, topLevel true) exactly where
// its FLAT counterpart sits as a top-level table column.
func nestedFieldFor(cat *dorm.Catalog, ref dorm.AtomRef) (classKey, field string, owner dorm.AtomRef, topLevel, ok bool) {
	switch v := cat.Atom(ref).(type) {
	case *dorm.Attribute:
		return snakeCase(cat.Atom(v.Class).AtomName()), snakeCase(v.Name), v.Class, false, true
	case *dorm.AssociationEnd:
		col, owner, ok := associationEndColumn(cat, v, ref)
		if !ok {
			return "", "", 0, false, false
		}
		return "", col, owner, true, true
	default:
		return "", "", 0, false, false
	}
}

// projectionExprFor builds the SQL expression reading a projected name out
// of the branch's tables, under either paradigm: a qualified column under
// FLAT, a value->path extraction under JSON_NESTED.
func projectionExprFor(cat *dorm.Catalog, schema Schema, classTable map[dorm.AtomRef]string, tableAlias map[string]string, ref dorm.AtomRef) (sqldsl.Expr, error) {
	// tableOf also accepts an owner that is a superclass of a branch class.
	tableOf := func(owner dorm.AtomRef) (string, bool) {
		if table, ok := classTable[owner]; ok {
			return table, true
		}
		for cls, table := range classTable {
			for _, anc := range cat.GeneralizationClosure(cls) {
				if anc == owner {
					return table, true
				}
			}
		}
		return "", false
	}
	if schema.Paradigm == JSONNested {
		classKey, field, owner, topLevel, ok := nestedFieldFor(cat, ref)
		if !ok {
			return nil, dorm.ErrDanglingPredicate
		}
		table, present := tableOf(owner)
		if !present {
			return nil, dorm.ErrDanglingPredicate
		}
		alias := tableAlias[table]
		if topLevel {
			return sqldsl.Raw(fmt.Sprintf("%s.value->>'%s'", alias, field)), nil
		}
		return sqldsl.Raw(fmt.Sprintf("%s.value->'%s'->>'%s'", alias, classKey, field)), nil
	}

	col, owner, ok := columnNameFor(cat, ref)
	if !ok {
		return nil, dorm.ErrDanglingPredicate
	}
	table, present := tableOf(owner)
	if !present {
		return nil, dorm.ErrDanglingPredicate
	}
	return sqldsl.Col{Table: tableAlias[table], Column: col}, nil
}

// fkEquality builds the ON predicate for a loose-end join: referencerAlias
// holds the FK slot named after referencedSetName (a column under FLAT, a
// top-level document key under JSON_NESTED), referencedAlias is the table
// whose identifier it targets.
func fkEquality(schema Schema, referencerAlias, referencedSetName, referencedAlias string) sqldsl.Expr {
	fkCol := snakeCase(referencedSetName) + "_id"
	if schema.Paradigm == JSONNested {
		return sqldsl.Raw(fmt.Sprintf("(%s.value->>'%s')::bigint = %s.key", referencerAlias, fkCol, referencedAlias))
	}
	return sqldsl.Raw(fmt.Sprintf("%s.%s = %s.id", referencerAlias, fkCol, referencedAlias))
}

// loosePredicate returns the join ON expression connecting Sets p and q
// when one references the other via a loose association end, in whichever
// direction generateFlatTable actually placed the FK column.
func loosePredicate(cat *dorm.Catalog, schema Schema, p, q *dorm.Set, aliasP, aliasQ string) (sqldsl.Expr, bool) {
	if looseEndTargetSets(cat, q)[p.Name] {
		return fkEquality(schema, aliasP, q.Name, aliasQ), true
	}
	if looseEndTargetSets(cat, p)[q.Name] {
		return fkEquality(schema, aliasQ, p.Name, aliasP), true
	}
	return nil, false
}

// findJoinPredicate looks for a direct domain-path hop (an Association or
// Generalization edge) connecting t's representative class to any
// already-placed table's representative class, and translates that hop
// into a loose-end FK equality (§4.4 step 3). Longer paths are outside this
// translator's scope and fall back to the caller's CROSS JOIN.
func findJoinPredicate(cat *dorm.Catalog, schema Schema, classSet map[dorm.AtomRef]*dorm.Set, classOfTable map[string]dorm.AtomRef, placed []string, t string, tableAlias map[string]string) sqldsl.Expr {
	newRef := classOfTable[t]
	newSet := classSet[newRef]
	for _, p := range placed {
		oldRef := classOfTable[p]
		oldSet := classSet[oldRef]
		paths, err := cat.DomainPaths(oldRef, newRef, true)
		if err != nil || len(paths) == 0 || len(paths[0].Hops) != 1 {
			continue
		}
		if expr, ok := loosePredicate(cat, schema, oldSet, newSet, tableAlias[p], tableAlias[t]); ok {
			return expr
		}
	}
	return nil
}

var filterIdentRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// translateFilter rewrites a Query.Filter's bare attribute/association-end
// names into their qualified physical form (§4.4 step 5): a column
// reference under FLAT, a value->path extraction under JSON_NESTED.
// Identifiers the catalog doesn't recognize (SQL keywords, literals) pass
// through unchanged; identifiers that resolve to an atom whose class is
// absent from the branch's pattern produce ErrDanglingPredicate.
func translateFilter(cat *dorm.Catalog, schema Schema, classTable map[dorm.AtomRef]string, tableAlias map[string]string, filter string) (sqldsl.Expr, error) {
	var rewriteErr error
	rewritten := filterIdentRe.ReplaceAllStringFunc(filter, func(tok string) string {
		if rewriteErr != nil {
			return tok
		}
		ref, err := cat.AtomByName(tok)
		if err != nil {
			return tok
		}
		expr, exprErr := projectionExprFor(cat, schema, classTable, tableAlias, ref)
		if exprErr != nil {
			rewriteErr = fmt.Errorf("%w: filter references %q whose class is not in the query pattern", dorm.ErrDanglingPredicate, tok)
			return tok
		}
		return expr.SQL()
	})
	if rewriteErr != nil {
		return nil, rewriteErr
	}
	return sqldsl.Raw(rewritten), nil
}

// docField is one projected name's contribution to a JSON_NESTED document
// column: its source-side value expression plus where it lands in the
// nested document shape.
type docField struct {
	classKey string
	field    string
	topLevel bool
	valueSQL string
}

// buildDocumentExpr renders a jsonb_build_object expression nesting
// per-class attribute groups (in first-seen class order) alongside any
// top-level association-end FK slots, mirroring the column layout
// generateFlatTable gives a FLAT table so the same projected names produce
// the same document shape under either target paradigm.
func buildDocumentExpr(fields []docField) string {
	groups := make(map[string][][2]string)
	var classOrder []string
	var topLevelArgs []string
	for _, f := range fields {
		if f.topLevel {
			topLevelArgs = append(topLevelArgs, fmt.Sprintf("'%s', %s", f.field, f.valueSQL))
			continue
		}
		if _, seen := groups[f.classKey]; !seen {
			classOrder = append(classOrder, f.classKey)
		}
		groups[f.classKey] = append(groups[f.classKey], [2]string{f.field, f.valueSQL})
	}

	var args []string
	for _, classKey := range classOrder {
		var inner []string
		for _, kv := range groups[classKey] {
			inner = append(inner, fmt.Sprintf("'%s', %s", kv[0], kv[1]))
		}
		args = append(args, fmt.Sprintf("'%s', jsonb_build_object(%s)", classKey, strings.Join(inner, ", ")))
	}
	args = append(args, topLevelArgs...)
	return "jsonb_build_object(" + strings.Join(args, ", ") + ")"
}

// translateBranch runs table mapping, join synthesis, projection and
// filter translation for one concrete (generalization-free) branch. Each
// class resolves to a table and an alias (t0, t1, ...); projected columns
// are qualified with their owning class's alias so a pattern spanning more
// than one physical table never emits an ambiguous column reference.
func translateBranch(cat *dorm.Catalog, schema Schema, branch []dorm.AtomRef, q Query) (sqldsl.QueryBlock, bool, []dorm.Diagnostic, error) {
	var warnings []dorm.Diagnostic

	classTable := make(map[dorm.AtomRef]string, len(branch))
	classSet := make(map[dorm.AtomRef]*dorm.Set, len(branch))
	var fromTables []string
	for _, ref := range branch {
		set, setWarnings := chooseSet(cat, ref)
		warnings = append(warnings, setWarnings...)
		if set == nil {
			return sqldsl.QueryBlock{}, false, nil, dorm.ErrDisconnected
		}
		table := schema.SetTable[set.Name]
		classTable[ref] = table
		classSet[ref] = set
		fromTables = append(fromTables, table)
	}

	dedup := false
	seenTable := make(map[string]bool)
	var dedupedFrom []string
	tableAlias := make(map[string]string)
	classOfTable := make(map[string]dorm.AtomRef)
	for i, t := range fromTables {
		if seenTable[t] {
			dedup = true
			warnings = append(warnings, dorm.Diagnostic{
				Severity: dorm.SeverityWarning,
				Message:  fmt.Sprintf("table %q is needed by more than one pattern class; it appears once in the FROM clause", t),
			})
			continue
		}
		seenTable[t] = true
		tableAlias[t] = fmt.Sprintf("t%d", len(dedupedFrom))
		classOfTable[t] = branch[i]
		dedupedFrom = append(dedupedFrom, t)
	}

	var projCols []sqldsl.Expr
	var docFields []docField
	for _, p := range q.Project {
		ref, err := cat.AtomByName(p)
		if err != nil {
			return sqldsl.QueryBlock{}, false, nil, dorm.ErrUnknownName
		}
		expr, err := projectionExprFor(cat, schema, classTable, tableAlias, ref)
		if err != nil {
			return sqldsl.QueryBlock{}, false, nil, err
		}
		if q.Document {
			classKey, field, _, topLevel, ok := nestedFieldFor(cat, ref)
			if !ok {
				return sqldsl.QueryBlock{}, false, nil, dorm.ErrDanglingPredicate
			}
			docFields = append(docFields, docField{classKey: classKey, field: field, topLevel: topLevel, valueSQL: expr.SQL()})
			continue
		}
		projCols = append(projCols, expr)
	}
	if q.Document {
		projCols = []sqldsl.Expr{sqldsl.Raw(buildDocumentExpr(docFields))}
	}

	stmt := sqldsl.SelectStmt{
		ColumnExprs: projCols,
		FromExpr:    sqldsl.TableAs(dedupedFrom[0], tableAlias[dedupedFrom[0]]),
	}
	placed := []string{dedupedFrom[0]}
	for _, t := range dedupedFrom[1:] {
		on := findJoinPredicate(cat, schema, classSet, classOfTable, placed, t, tableAlias)
		joinType := "CROSS"
		if on != nil {
			joinType = "INNER"
		} else {
			warnings = append(warnings, dorm.Diagnostic{
				Severity: dorm.SeverityWarning,
				Message:  fmt.Sprintf("no direct association connects %q to the rest of the pattern; falling back to CROSS JOIN", t),
			})
		}
		stmt.Joins = append(stmt.Joins, sqldsl.JoinClause{Type: joinType, TableExpr: sqldsl.TableAs(t, tableAlias[t]), On: on})
		placed = append(placed, t)
	}

	if q.Filter != "" {
		filterExpr, err := translateFilter(cat, schema, classTable, tableAlias, q.Filter)
		if err != nil {
			return sqldsl.QueryBlock{}, false, nil, err
		}
		stmt.Where = filterExpr
	}
	return sqldsl.QueryBlock{Query: stmt}, dedup, warnings, nil
}
