package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/pthm/dorm"
	"github.com/pthm/dorm/internal/cli"
	"github.com/pthm/dorm/pkg/compiler"
	"github.com/pthm/dorm/pkg/loader"
	"github.com/pthm/dorm/pkg/migrator"
)

var (
	catalogParadigm  string
	catalogCreate    bool
	catalogSupersede bool
	catalogTranslate bool
	catalogSrcSch    string
	catalogSrcKind   string
	catalogDryRun    bool
	catalogForce     bool
	catalogDB        string
)

// catalogActionCmd implements catalogAction (§6): compile a domain or
// design catalog's schema and, depending on the flags given, apply it to
// the database (--create/--supersede) and optionally drain a prior
// catalog's data into it (--translate).
var catalogActionCmd = &cobra.Command{
	Use:   "catalogAction {domain|design}",
	Short: "Check and compile a catalog, optionally applying it to the database",
	Long: `catalogAction loads the configured domain document (and, when the
"design" kind is given, the design document layered on top of it), checks it
against the domain and design invariants, and compiles its Sets into schema
DDL under --paradigm.

With --create or --supersede the generated DDL is applied with CREATE TABLE
IF NOT EXISTS; existing tables are left in place, not dropped or replaced.
With --translate, --src-sch
and --src-kind name a prior catalog's serialized blob and paradigm; a
migration plan draining its data into the new schema is built and applied.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := args[0]
		if kind != "domain" && kind != "design" {
			return cli.InvalidInputError(fmt.Sprintf("unknown catalog kind %q, expected domain or design", kind), nil)
		}
		return runCatalogAction(cmd.Context(), kind)
	},
}

func init() {
	f := catalogActionCmd.Flags()
	f.StringVar(&catalogParadigm, "paradigm", "", "target physical paradigm: FLAT or JSON_NESTED")
	f.BoolVar(&catalogCreate, "create", false, "create the target schema fresh")
	f.BoolVar(&catalogSupersede, "supersede", false, "apply the target schema like --create; existing tables are not dropped")
	f.BoolVar(&catalogTranslate, "translate", false, "migrate data from a prior catalog into the new schema")
	f.StringVar(&catalogSrcSch, "src-sch", "", "path to the prior catalog's serialized blob (required with --translate)")
	f.StringVar(&catalogSrcKind, "src-kind", "", "prior catalog's physical paradigm: FLAT or JSON_NESTED (required with --translate)")
	f.BoolVar(&catalogDryRun, "dry-run", false, "render generated SQL without applying it")
	f.BoolVar(&catalogForce, "force", false, "re-apply even if the target schema already matches")
	f.StringVar(&catalogDB, "db", "", "database URL")
}

func parseParadigm(s string) (compiler.Paradigm, error) {
	switch strings.ToUpper(s) {
	case "", "FLAT":
		return compiler.FLAT, nil
	case "JSON_NESTED":
		return compiler.JSONNested, nil
	default:
		return 0, fmt.Errorf("unknown paradigm %q, expected FLAT or JSON_NESTED", s)
	}
}

func runCatalogAction(ctx context.Context, kind string) error {
	domainDoc, err := loader.LoadDomain(cfg.Domain)
	if err != nil {
		return cli.InvalidInputError("loading domain document", err)
	}

	var designDoc *loader.DesignDocument
	if kind == "design" {
		designDoc, err = loader.LoadDesign(cfg.Design)
		if err != nil {
			return cli.InvalidInputError("loading design document", err)
		}
	}

	cat, err := loader.BuildCatalog(domainDoc, designDoc)
	if err != nil {
		return cli.InvalidInputError("building catalog", err)
	}

	diags := dorm.Check(cat)
	reportDiagnostics(diags)
	if diags.HasErrors() {
		return cli.CheckerFailureError(fmt.Sprintf("%d invariant violation(s)", len(diags.Errors)), nil)
	}

	if kind == "domain" {
		if !quiet {
			fmt.Println("domain catalog is valid.")
		}
		return nil
	}

	paradigm, err := parseParadigm(resolveString(catalogParadigm, cfg.Paradigm))
	if err != nil {
		return cli.InvalidInputError("parsing --paradigm", err)
	}

	schema, err := compiler.GenerateSchema(cat, paradigm)
	if err != nil {
		return cli.CheckerFailureError("generating schema", err)
	}

	if !catalogCreate && !catalogSupersede && !catalogTranslate {
		if !quiet {
			fmt.Println("design catalog compiles; no --create/--supersede/--translate given, nothing applied.")
		}
		return nil
	}

	dsn, err := resolveDSN(catalogDB)
	if err != nil {
		return err
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return cli.SinkError("connecting to database", err)
	}
	defer func() { _ = db.Close() }()

	dryRun := resolveBool(catalogDryRun, cfg.Migrate.DryRun)
	force := resolveBool(catalogForce, cfg.Migrate.Force)

	var plan compiler.Plan
	if catalogTranslate {
		if catalogSrcSch == "" || catalogSrcKind == "" {
			return cli.InvalidInputError("--translate requires --src-sch and --src-kind", nil)
		}
		srcParadigm, err := parseParadigm(catalogSrcKind)
		if err != nil {
			return cli.InvalidInputError("parsing --src-kind", err)
		}
		blob, err := os.ReadFile(catalogSrcSch)
		if err != nil {
			return cli.InvalidInputError("reading --src-sch", err)
		}
		srcCat, err := dorm.UnmarshalCatalogBlob(blob)
		if err != nil {
			return cli.InvalidInputError("parsing --src-sch", err)
		}
		plan, err = compiler.PlanMigration(srcCat, srcParadigm, cat, paradigm)
		if err != nil {
			return cli.CheckerFailureError("planning migration", err)
		}
	} else {
		plan = compiler.PlanSchema(schema)
	}

	m := migrator.NewMigrator(db)
	opts := migrator.Options{Force: force}
	if dryRun {
		opts.DryRun = os.Stdout
	}
	skipped, err := m.Apply(ctx, plan, opts)
	if err != nil {
		switch {
		case dorm.IsCancelled(err):
			return cli.CancelledError("migration cancelled", err)
		case dorm.IsSinkError(err):
			return cli.SinkError("applying migration", err)
		default:
			return cli.GeneralError("applying migration", err)
		}
	}
	if dryRun || quiet {
		return nil
	}
	if skipped {
		fmt.Println("target schema unchanged, migration skipped. Use --force to re-apply.")
	} else {
		fmt.Println("schema applied successfully.")
	}

	if blob, err := cat.MarshalBlob(); err == nil {
		_ = os.WriteFile(resolveString(catalogSrcSch, "dorm.catalog.blob"), blob, 0o644)
	}

	return nil
}

// resolveDSN gets the database DSN from flag or config.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.InvalidInputError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.InvalidInputError("database URL is required (use --db or set in config)", nil)
	}
	return dsn, nil
}

func reportDiagnostics(diags dorm.Diagnostics) {
	for _, w := range diags.Warnings {
		fmt.Fprintf(os.Stderr, "warning[%s]: %s\n", w.RuleID, w.Message)
	}
	for _, e := range diags.Errors {
		fmt.Fprintf(os.Stderr, "error[%s]: %s\n", e.RuleID, e.Message)
	}
}
