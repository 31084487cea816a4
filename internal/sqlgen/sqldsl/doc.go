// Package sqldsl provides a type-safe DSL for building the PostgreSQL
// statements emitted by the schema generator, query translator, and
// migration planner.
//
// # Overview
//
// Rather than constructing SQL strings through concatenation or templating,
// this package provides typed building blocks that compose together to form
// complete statements. Each compiler walks the catalog and assembles these
// types; only the final SQL() call turns them into text.
//
// # Core Interfaces
//
//   - Expr: Represents SQL expressions (columns, raw fragments)
//   - TableExpr: Represents a FROM/JOIN table source (plain table or aliased)
//   - SQLer: Represents complete SQL statements (SELECT, CREATE TABLE, INSERT)
//
// # Expression Types
//
//	Col{Table: "t0", Column: "book_title"}   // column reference: t0.book_title
//	Raw("author_age>100")                    // raw SQL (escape hatch), used for
//	                                          // the query translator's caller-supplied
//	                                          // filter predicate
//
// # Statement Types
//
// SELECT statements, built from a FromExpr plus zero or more Joins:
//
//	SelectStmt{
//	    ColumnExprs: []Expr{Col{Table: "t0", Column: "book_title"}},
//	    FromExpr:    TableAs("dorm_books", "t0"),
//	    Joins: []JoinClause{
//	        {Type: "CROSS", TableExpr: TableAs("dorm_authors", "t1")},
//	    },
//	    Where: Raw("t0.book_title = 'Dune'"),
//	}
//
// Data definition and movement, used by the schema generator and migration
// planner respectively:
//
//	CreateTableStmt{Name: "employee", Columns: []ColumnDef{...}}
//	InsertStmt{Table: "employee", Columns: []string{"id", "name"}, Source: selectStmt}
//
// # Design Rationale
//
// Type safety: incorrect nesting or missing fields are compile errors
// instead of malformed SQL discovered at migration time.
//
// Composition: complex UNION ALL queries are built from per-branch
// SelectStmt values and rendered together with RenderUnionBlocks, so each
// branch can be built, tested, and labeled independently.
package sqldsl
