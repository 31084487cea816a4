package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pthm/dorm"
	"github.com/pthm/dorm/internal/cli"
	"github.com/pthm/dorm/pkg/compiler"
	"github.com/pthm/dorm/pkg/loader"
)

var (
	queryParadigm string
	queryFile     string
	queryDB       string
)

// queryExecutorCmd implements queryExecutor (§6): translate every query in
// --query-file against the compiled schema of the configured domain/design
// catalog and run it against the database, printing each result set.
var queryExecutorCmd = &cobra.Command{
	Use:   "queryExecutor",
	Short: "Translate and run a query file against a compiled schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQueryExecutor(cmd.Context())
	},
}

func init() {
	f := queryExecutorCmd.Flags()
	f.StringVar(&queryParadigm, "paradigm", "", "physical paradigm of the compiled schema: FLAT or JSON_NESTED")
	f.StringVar(&queryFile, "query-file", "", "path to the query document")
	f.StringVar(&queryDB, "db", "", "database URL")
}

func runQueryExecutor(ctx context.Context) error {
	domainDoc, err := loader.LoadDomain(cfg.Domain)
	if err != nil {
		return cli.InvalidInputError("loading domain document", err)
	}
	designDoc, err := loader.LoadDesign(cfg.Design)
	if err != nil {
		return cli.InvalidInputError("loading design document", err)
	}
	cat, err := loader.BuildCatalog(domainDoc, designDoc)
	if err != nil {
		return cli.InvalidInputError("building catalog", err)
	}

	diags := dorm.Check(cat)
	if diags.HasErrors() {
		reportDiagnostics(diags)
		return cli.CheckerFailureError(fmt.Sprintf("%d invariant violation(s)", len(diags.Errors)), nil)
	}

	paradigm, err := parseParadigm(resolveString(queryParadigm, cfg.Paradigm))
	if err != nil {
		return cli.InvalidInputError("parsing --paradigm", err)
	}
	schema, err := compiler.GenerateSchema(cat, paradigm)
	if err != nil {
		return cli.CheckerFailureError("generating schema", err)
	}

	qfile := resolveString(queryFile, cfg.Query.File)
	queries, err := loader.LoadQueries(qfile)
	if err != nil {
		return cli.InvalidInputError("loading query file", err)
	}

	dsn, err := resolveDSN(queryDB)
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return cli.SinkError("connecting to database", err)
	}
	defer pool.Close()

	for i, qd := range queries {
		if err := ctx.Err(); err != nil {
			return cli.CancelledError(fmt.Sprintf("cancelled before query %d", i), dorm.ErrCancelled)
		}
		q := compiler.Query{Project: qd.Project, Pattern: qd.Pattern, Filter: qd.Filter}
		result, err := compiler.TranslateQuery(cat, schema, q)
		if err != nil {
			return cli.CheckerFailureError(fmt.Sprintf("translating query %d", i), err)
		}
		for _, w := range result.Warnings {
			fmt.Printf("warning[%s]: %s\n", w.RuleID, w.Message)
		}

		stmt := result.Statement.SQL()
		rows, err := pool.Query(ctx, stmt)
		if err != nil {
			return cli.SinkError(fmt.Sprintf("executing query %d", i), err)
		}
		if !quiet {
			fmt.Printf("-- query %d: %s\n", i, stmt)
		}
		fields := rows.FieldDescriptions()
		names := make([]string, len(fields))
		for j, f := range fields {
			names[j] = string(f.Name)
		}
		fmt.Println(strings.Join(names, "\t"))
		for rows.Next() {
			vals, err := rows.Values()
			if err != nil {
				rows.Close()
				return cli.SinkError(fmt.Sprintf("reading query %d results", i), err)
			}
			strs := make([]string, len(vals))
			for j, v := range vals {
				strs[j] = fmt.Sprintf("%v", v)
			}
			fmt.Println(strings.Join(strs, "\t"))
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return cli.SinkError(fmt.Sprintf("query %d", i), err)
		}
	}

	return nil
}
