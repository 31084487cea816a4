// Package dorm implements the catalog kernel for a dynamic object-relational
// mapping: a typed hypergraph representation of a domain model plus a chosen
// physical design, a consistency checker over that hypergraph, and the
// traversal primitives the schema generator, query translator, and migration
// planner (package internal/sqlgen) build on.
//
// # Pipeline
//
// The kernel is a pipeline around a single in-memory Catalog:
//
//	Loader (pkg/loader) -> Catalog -> Checker -> {SchemaGen, Translator, Migrator}
//
// A Catalog is constructed once by the loader, checked, and then handed to
// any number of compilers; it is never mutated after construction.
//
// # Basic usage
//
//	cat, err := loader.BuildCatalog(domainDoc, designDoc)
//	diags := dorm.Check(cat)
//	if diags.HasErrors() {
//	    return diags
//	}
//	schema, err := compiler.GenerateSchema(cat, compiler.FLAT)
package dorm
