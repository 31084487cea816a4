package migrator

import (
	"context"

	"github.com/pthm/dorm"
	"github.com/pthm/dorm/internal/sqlgen"
)

// Migrate builds a migration plan from source to target catalogs (§4.5)
// and applies it to db in one call. This is the common-case entry point;
// use Migrator.Apply directly for dry-run, force, or cancellation control.
func Migrate(ctx context.Context, db Execer, source *dorm.Catalog, sourceParadigm sqlgen.Paradigm, target *dorm.Catalog, targetParadigm sqlgen.Paradigm) error {
	plan, err := sqlgen.PlanMigration(source, sourceParadigm, target, targetParadigm)
	if err != nil {
		return err
	}
	_, err = NewMigrator(db).Apply(ctx, plan, Options{})
	return err
}
