// Package compiler provides the public, thin-wrapper API for compiling a
// checked dorm.Catalog to SQL. It re-exports the internal/sqlgen types and
// functions needed by external consumers; for applying a migration plan to
// a live sink, use pkg/migrator instead.
package compiler

import (
	"fmt"

	"github.com/pthm/dorm"
	"github.com/pthm/dorm/internal/sqlgen"
)

// Paradigm selects the physical representation a Set compiles to.
type Paradigm = sqlgen.Paradigm

const (
	FLAT       = sqlgen.FLAT
	JSONNested = sqlgen.JSONNested
)

// Schema is the ordered set of DDL statements a Catalog compiles to.
type Schema = sqlgen.Schema

// Query is a domain-level query (project, pattern, filter).
type Query = sqlgen.Query

// Result is the outcome of translating a Query against a Schema.
type Result = sqlgen.Result

// Plan is an ordered migration plan between two catalogs.
type Plan = sqlgen.Plan

// GenerateSchema compiles a checked Catalog's Sets into DDL under paradigm.
var GenerateSchema = sqlgen.GenerateSchema

// TranslateQuery compiles a domain-level Query into an executable SPJ
// statement against schema.
var TranslateQuery = sqlgen.TranslateQuery

// PlanMigration builds a staged-rebuild plan draining source into target.
var PlanMigration = sqlgen.PlanMigration

// PlanSchema builds a create-only Plan for a freshly generated schema.
var PlanSchema = sqlgen.PlanSchema

// Compile is the common-case entry point: check cat, then generate its
// schema under paradigm. Returns the checker's diagnostics unconditionally
// so warnings are visible even on success. err is non-nil when the checker
// reported at least one error-severity diagnostic, in which case the
// returned Schema is the zero value, or when schema generation fails.
func Compile(cat *dorm.Catalog, paradigm Paradigm) (Schema, dorm.Diagnostics, error) {
	diags := dorm.Check(cat)
	if diags.HasErrors() {
		return Schema{}, diags, fmt.Errorf("dorm: catalog failed %d invariant check(s)", len(diags.Errors))
	}
	schema, err := GenerateSchema(cat, paradigm)
	return schema, diags, err
}
