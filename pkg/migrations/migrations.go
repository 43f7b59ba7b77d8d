// Package migrations holds the schema history of the library database.
// Migration files register themselves with Migrations from init.
package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

// Status summarizes what has been applied.
type Status struct {
	Applied   []string `json:"applied"`
	Unapplied []string `json:"unapplied"`
	LastGroup int64    `json:"last_group"`
}

func newMigrator(ctx context.Context, db *bun.DB) (*migrate.Migrator, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return migrator, nil
}

// BringUpToDate applies every pending migration as one group. The returned
// group has ID 0 when there was nothing to do.
func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator, err := newMigrator(ctx, db)
	if err != nil {
		return nil, err
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return group, nil
}

// Rollback undoes the most recent group.
func Rollback(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator, err := newMigrator(ctx, db)
	if err != nil {
		return nil, err
	}
	group, err := migrator.Rollback(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return group, nil
}

func CurrentStatus(ctx context.Context, db *bun.DB) (*Status, error) {
	migrator, err := newMigrator(ctx, db)
	if err != nil {
		return nil, err
	}
	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	status := &Status{Applied: []string{}, Unapplied: []string{}}
	for _, m := range ms {
		if m.IsApplied() {
			status.Applied = append(status.Applied, m.Name)
		} else {
			status.Unapplied = append(status.Unapplied, m.Name)
		}
	}
	status.LastGroup = ms.LastGroupID()
	return status, nil
}

// Create writes a new Go migration file into the migrations directory.
func Create(ctx context.Context, db *bun.DB, name string) (*migrate.MigrationFile, error) {
	migrator, err := newMigrator(ctx, db)
	if err != nil {
		return nil, err
	}
	mf, err := migrator.CreateGoMigration(ctx, name, migrate.WithGoTemplate(goTemplate))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return mf, nil
}

const goTemplate = `package %s

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("")
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
`
