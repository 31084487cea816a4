// Package sqlgen turns a checked dorm.Catalog into SQL: table definitions
// for the two physical paradigms (§4.3), SPJ statements for domain queries
// (§4.4), and staged-rebuild migration plans between two catalogs (§4.5).
package sqlgen

import (
	"fmt"
	"sort"

	"github.com/pthm/dorm"
	"github.com/pthm/dorm/internal/sqlgen/sqldsl"
)

// Paradigm selects the physical representation a Set compiles to.
type Paradigm int

const (
	// FLAT emits one relational table per Set, columns for every attribute
	// reachable from the Set's Structs plus foreign keys for loose ends.
	FLAT Paradigm = iota
	// JSONNested emits one table per Set with a surrogate key and a jsonb
	// document column holding nested Structs/Sets.
	JSONNested
)

// Schema is the ordered set of DDL statements a Catalog compiles to under a
// given paradigm. Order matches §4.3: topologically by foreign-key
// dependency, anchors before referrers.
type Schema struct {
	Paradigm Paradigm
	Tables   []sqldsl.CreateTableStmt
	// SetTable maps a Set's name to the table name it compiled to, so the
	// query translator and migration planner can look up physical targets.
	SetTable map[string]string
}

// dataTypeToSQL maps a domain attribute's data-type name to a PostgreSQL
// column type. Unknown names pass through unchanged, letting a caller use
// native PostgreSQL type names directly in the domain file.
func dataTypeToSQL(dataType string, size int) string {
	switch dataType {
	case "string", "text":
		if size > 0 {
			return fmt.Sprintf("varchar(%d)", size)
		}
		return "text"
	case "int", "integer":
		return "integer"
	case "bigint", "long":
		return "bigint"
	case "bool", "boolean":
		return "boolean"
	case "float", "double":
		return "double precision"
	case "numeric", "decimal":
		return "numeric"
	case "timestamp", "datetime":
		return "timestamptz"
	case "date":
		return "date"
	default:
		return dataType
	}
}

func tableNameForSet(name string) string { return "dorm_" + snakeCase(name) }

func snakeCase(name string) string {
	out := make([]rune, 0, len(name)+4)
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			out = append(out, r-'A'+'a')
			continue
		}
		if r == ' ' || r == '-' {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// GenerateSchema compiles cat's Sets into a Schema under paradigm. Sets are
// ordered by referential dependency (anchor-before-referrer, §4.3); within
// a FLAT table attribute columns are ordered by class name then attribute
// order, with no distinction between anchor and non-anchor classes.
func GenerateSchema(cat *dorm.Catalog, paradigm Paradigm) (Schema, error) {
	sets := cat.Sets()
	ordered, err := orderSetsByDependency(cat, sets)
	if err != nil {
		return Schema{}, err
	}

	schema := Schema{Paradigm: paradigm, SetTable: make(map[string]string)}
	for _, set := range ordered {
		table := tableNameForSet(set.Name)
		schema.SetTable[set.Name] = table
		var stmt sqldsl.CreateTableStmt
		switch paradigm {
		case JSONNested:
			stmt = generateNestedTable(table, set)
		default:
			stmt, err = generateFlatTable(cat, table, set)
			if err != nil {
				return Schema{}, err
			}
		}
		schema.Tables = append(schema.Tables, stmt)
	}
	return schema, nil
}

// orderSetsByDependency performs a topological sort of Sets by loose
// association-end references between them, so a foreign-key target's table
// is created before the table referencing it. Cycles cannot occur here
// because the Checker's design-connectivity rules already bound legal
// designs; any cycle surfaces as ErrInternalAssertion rather than being
// silently broken.
func orderSetsByDependency(cat *dorm.Catalog, sets []*dorm.Set) ([]*dorm.Set, error) {
	byName := make(map[string]*dorm.Set, len(sets))
	for _, s := range sets {
		byName[s.Name] = s
	}
	deps := make(map[string]map[string]bool, len(sets))
	for _, s := range sets {
		deps[s.Name] = looseEndTargetSets(cat, s)
	}

	var order []*dorm.Set
	visited := make(map[string]int) // 0 unvisited, 1 visiting, 2 done
	var visit func(name string) error
	visit = func(name string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			return dorm.ErrInternalAssertion
		}
		visited[name] = 1
		depNames := make([]string, 0, len(deps[name]))
		for d := range deps[name] {
			if d != name {
				depNames = append(depNames, d)
			}
		}
		sort.Strings(depNames)
		for _, d := range depNames {
			if err := visit(d); err != nil {
				return err
			}
		}
		visited[name] = 2
		order = append(order, byName[name])
		return nil
	}

	names := make([]string, 0, len(sets))
	for _, s := range sets {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// looseEndTargetSets returns the names of Sets referenced by a loose
// association end belonging to a class covered by set: an end whose class
// is in set but whose opposite end's class is covered by a different Set.
func looseEndTargetSets(cat *dorm.Catalog, set *dorm.Set) map[string]bool {
	targets := make(map[string]bool)
	classes := setClasses(cat, set)
	for _, assoc := range cat.Associations() {
		end0 := cat.Atom(assoc.Ends[0]).(*dorm.AssociationEnd)
		end1 := cat.Atom(assoc.Ends[1]).(*dorm.AssociationEnd)
		for _, pair := range [][2]*dorm.AssociationEnd{{end0, end1}, {end1, end0}} {
			near, far := pair[0], pair[1]
			if !classes[near.Class] {
				continue
			}
			if classes[far.Class] {
				continue // same Set, no cross-table FK needed
			}
			for _, other := range cat.Sets() {
				if other.Name == set.Name {
					continue
				}
				if setClasses(cat, other)[far.Class] {
					targets[other.Name] = true
				}
			}
		}
	}
	return targets
}

func setClasses(cat *dorm.Catalog, set *dorm.Set) map[dorm.AtomRef]bool {
	out := make(map[dorm.AtomRef]bool)
	if set.SingleClass != dorm.InvalidRef {
		out[set.SingleClass] = true
		return out
	}
	for _, structRef := range set.Contents {
		st := cat.Edge(structRef).(*dorm.Struct)
		for _, r := range append(append([]dorm.Ref{}, st.Elements...), st.Anchor...) {
			if r.Kind == dorm.RefAtomKind {
				if cls, ok := cat.Atom(r.Atom).(*dorm.Class); ok {
					_ = cls
					out[r.Atom] = true
				}
			}
		}
	}
	return out
}

// generateFlatTable builds the CreateTableStmt for one Set under FLAT: a
// column per attribute of every class covered and of its superclasses, a
// foreign key per loose end, and a discriminator column per generalization
// whose siblings share the Set. The primary key is the identifier columns
// of every covered class, anchor or not; loose-end FK columns are not part
// of it. A surrogate bigserial "id" key is added only when no covered class
// has an identifier attribute.
func generateFlatTable(cat *dorm.Catalog, table string, set *dorm.Set) (sqldsl.CreateTableStmt, error) {
	stmt := sqldsl.CreateTableStmt{Name: table, IfNotExists: true}
	seen := make(map[string]bool)
	var pk []string

	addClassColumns := func(classRef dorm.AtomRef, isAnchor bool) {
		cls := cat.Atom(classRef).(*dorm.Class)
		for _, attrRef := range cls.Attributes {
			attr := cat.Atom(attrRef).(*dorm.Attribute)
			colName := snakeCase(cls.Name) + "_" + snakeCase(attr.Name)
			if seen[colName] {
				continue
			}
			seen[colName] = true
			stmt.Columns = append(stmt.Columns, sqldsl.ColumnDef{
				Name:    colName,
				Type:    dataTypeToSQL(attr.DataType, attr.Size),
				NotNull: attr.IsIdentifier,
			})
			if isAnchor && attr.IsIdentifier {
				pk = append(pk, colName)
			}
		}
	}

	classes := setClasses(cat, set)
	var classRefs []dorm.AtomRef
	for ref := range classes {
		classRefs = append(classRefs, ref)
	}
	sort.Slice(classRefs, func(i, j int) bool {
		return cat.Atom(classRefs[i]).AtomName() < cat.Atom(classRefs[j]).AtomName()
	})
	for _, ref := range classRefs {
		for _, cls := range cat.GeneralizationClosure(ref) {
			addClassColumns(cls, true)
		}
	}

	for _, other := range cat.Sets() {
		if other.Name == set.Name {
			continue
		}
		targets := looseEndTargetSets(cat, other)
		if !targets[set.Name] {
			continue
		}
		fkCol := snakeCase(other.Name) + "_id"
		if !seen[fkCol] {
			seen[fkCol] = true
			stmt.Columns = append(stmt.Columns, sqldsl.ColumnDef{Name: fkCol, Type: "bigint"})
			stmt.ForeignKeys = append(stmt.ForeignKeys, sqldsl.ForeignKeyDef{
				Columns: []string{fkCol}, RefTable: tableNameForSet(other.Name), RefColumns: []string{"id"},
			})
		}
	}

	for _, g := range cat.Generalizations() {
		siblingsInSet := 0
		for _, sc := range g.Subclasses {
			if classes[sc.Class] {
				siblingsInSet++
			}
		}
		if siblingsInSet > 1 {
			discCol := snakeCase(g.Name) + "_kind"
			if !seen[discCol] {
				seen[discCol] = true
				stmt.Columns = append(stmt.Columns, sqldsl.ColumnDef{Name: discCol, Type: "text", NotNull: true})
			}
		}
	}

	if len(pk) == 0 {
		stmt.Columns = append([]sqldsl.ColumnDef{{Name: "id", Type: "bigserial", PrimaryKey: true, NotNull: true}}, stmt.Columns...)
	} else {
		stmt.PrimaryKey = pk
	}
	return stmt, nil
}

// generateNestedTable builds the two-column (key, value jsonb) table for a
// top-level Set under JSON_NESTED. Column content below the surrogate key
// is not expressed as SQL; it is produced at insert-time by
// buildDocumentExpr (query.go), which nests projected attributes under
// their owning class's key.
func generateNestedTable(table string, set *dorm.Set) sqldsl.CreateTableStmt {
	return sqldsl.CreateTableStmt{
		Name:        table,
		IfNotExists: true,
		Columns: []sqldsl.ColumnDef{
			{Name: "key", Type: "bigserial", PrimaryKey: true, NotNull: true},
			{Name: "value", Type: "jsonb", NotNull: true},
		},
	}
}
