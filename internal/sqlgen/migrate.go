package sqlgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/pthm/dorm"
	"github.com/pthm/dorm/internal/sqlgen/sqldsl"
)

// StepKind distinguishes the three statement shapes a migration Plan emits
// (§4.5): CreateTable precedes InsertInto for the same Set, and Analyze
// follows every insert for that Set's table.
type StepKind int

const (
	StepCreateTable StepKind = iota
	StepInsertInto
	StepAnalyze
)

// Step is one statement in an ordered migration Plan.
type Step struct {
	Kind      StepKind
	SetName   string
	Statement sqldsl.SQLer
}

// Plan is the ordered list of statements that drains a source catalog into
// a freshly generated target schema, plus a checksum of the target schema
// so re-running Plan twice against an already-migrated target is detectable
// as a no-op by the caller (pkg/migrator.Migrator.Apply).
type Plan struct {
	Steps    []Step
	Checksum string
}

// PlanMigration builds the staged-rebuild plan described in §4.5: for
// every Set in the target design (ordered anchor-before-referrer), create
// its table, translate a query against the source design that retrieves
// exactly the attributes the target Set needs and insert its results, then
// request a statistics refresh.
//
// source and target must share the same domain (§4.5 precondition); this
// is not re-validated here, since the Checker already guarantees each
// catalog is independently well-formed and the caller is responsible for
// having derived target from source's domain.
func PlanMigration(source *dorm.Catalog, sourceParadigm Paradigm, target *dorm.Catalog, targetParadigm Paradigm) (Plan, error) {
	sourceSchema, err := GenerateSchema(source, sourceParadigm)
	if err != nil {
		return Plan{}, fmt.Errorf("generating source schema: %w", err)
	}
	targetSchema, err := GenerateSchema(target, targetParadigm)
	if err != nil {
		return Plan{}, fmt.Errorf("generating target schema: %w", err)
	}

	var steps []Step
	for _, table := range targetSchema.Tables {
		steps = append(steps, Step{Kind: StepCreateTable, SetName: table.Name, Statement: table})
	}

	targetSets := target.Sets()
	ordered, err := orderSetsByDependency(target, targetSets)
	if err != nil {
		return Plan{}, err
	}
	for _, set := range ordered {
		pattern, project := targetSetProjection(target, set)
		q := Query{Project: project, Pattern: pattern, Document: targetParadigm == JSONNested}
		result, err := TranslateQuery(source, sourceSchema, q)
		if err != nil {
			return Plan{}, fmt.Errorf("translating read for set %q: %w", set.Name, err)
		}

		var columns []string
		if targetParadigm == JSONNested {
			// generateNestedTable's table has only (key, value); key is a
			// bigserial surrogate the database assigns, so the insert
			// supplies only the jsonb document TranslateQuery built above.
			columns = []string{"value"}
		} else {
			columns, err = targetInsertColumns(target, project)
			if err != nil {
				return Plan{}, fmt.Errorf("resolving insert columns for set %q: %w", set.Name, err)
			}
		}
		insert := sqldsl.InsertStmt{
			Table:   targetSchema.SetTable[set.Name],
			Columns: columns,
			Source:  result.Statement,
		}
		steps = append(steps, Step{Kind: StepInsertInto, SetName: set.Name, Statement: insert})
		steps = append(steps, Step{Kind: StepAnalyze, SetName: set.Name, Statement: sqldsl.AnalyzeStmt{Table: targetSchema.SetTable[set.Name]}})
	}

	return Plan{Steps: steps, Checksum: checksumSchema(targetSchema)}, nil
}

// PlanSchema builds a create-only Plan for a freshly generated schema, with
// no data migration: used by callers standing up a schema for the first
// time (catalogAction --create without --translate).
func PlanSchema(schema Schema) Plan {
	var steps []Step
	for _, table := range schema.Tables {
		steps = append(steps, Step{Kind: StepCreateTable, SetName: table.Name, Statement: table})
	}
	return Plan{Steps: steps, Checksum: checksumSchema(schema)}
}

// targetSetProjection lists the attribute/association-end names a target
// Set needs projected from the source, derived from the classes the Set
// covers. Classes are visited in sorted-name order (matching
// generateFlatTable's own classRefs sort in schema.go) so the pattern,
// projection, and therefore the INSERT column list and generated SQL stay
// byte-identical across runs (§8).
func targetSetProjection(cat *dorm.Catalog, set *dorm.Set) (pattern, project []string) {
	classes := setClasses(cat, set)
	classRefs := make([]dorm.AtomRef, 0, len(classes))
	for ref := range classes {
		classRefs = append(classRefs, ref)
	}
	sort.Slice(classRefs, func(i, j int) bool {
		return cat.Atom(classRefs[i]).AtomName() < cat.Atom(classRefs[j]).AtomName()
	})

	for _, ref := range classRefs {
		cls := cat.Atom(ref).(*dorm.Class)
		pattern = append(pattern, cls.Name)
		for _, attrRef := range cls.Attributes {
			project = append(project, cat.Atom(attrRef).AtomName())
		}
	}
	return pattern, project
}

// targetInsertColumns resolves each projected attribute name to the
// physical column it lands in, giving InsertStmt an explicit column list
// that stays aligned with the SELECT's projection order regardless of the
// surrogate id/foreign-key columns generateFlatTable adds around it.
func targetInsertColumns(target *dorm.Catalog, project []string) ([]string, error) {
	columns := make([]string, 0, len(project))
	for _, p := range project {
		ref, err := target.AtomByName(p)
		if err != nil {
			return nil, err
		}
		col, _, ok := columnNameFor(target, ref)
		if !ok {
			return nil, dorm.ErrDanglingPredicate
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// checksumSchema hashes a deterministic rendering of a Schema's DDL so
// Migrator.Apply can detect an already-migrated target and skip re-insertion.
func checksumSchema(schema Schema) string {
	h := sha256.New()
	for _, t := range schema.Tables {
		_, _ = h.Write([]byte(t.SQL()))
	}
	return hex.EncodeToString(h.Sum(nil))
}
