package devconnect

import (
	"context"
	"database/sql"
	"sync"

	"github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// MigrationsSourceLabel names the embedded migrations in reports
const MigrationsSourceLabel = "data/sql/migrations"

var registerModels sync.Once

// RegisterModels registers the store models with the persistence layer
func RegisterModels() {
	registerModels.Do(func() {
		persistence.RegisterModel((*User)(nil))
		persistence.RegisterModel((*Profile)(nil))
		persistence.RegisterModel((*Post)(nil))
	})
}

// NewPersistence wraps db in a persistence client with the embedded
// migrations registered. Call Migrate to apply them.
func NewPersistence(cfg persistence.Config, db *sql.DB) (*persistence.Client, error) {
	RegisterModels()

	client, err := persistence.New(cfg, db, sqlitedialect.New())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "unable to create persistence client")
	}

	dir, err := MigrationsDir()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "unable to open migrations")
	}

	client.RegisterDialectMigrations(
		dir,
		persistence.WithDialectSourceLabel(MigrationsSourceLabel),
		persistence.WithValidationTargets("sqlite"),
	)

	return client, nil
}

// Migrate validates the registered migrations and applies pending ones
func Migrate(ctx context.Context, client *persistence.Client, logger Logger) error {
	if logger == nil {
		logger = defLogger{}
	}

	if err := client.ValidateDialects(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "invalid migrations")
	}

	if err := client.Migrate(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "migration failed")
	}

	if report := client.Report(); report != nil && !report.IsZero() {
		logger.Info("migrations applied", "report", report.String())
		return nil
	}

	logger.Debug("no new migrations to run")
	return nil
}
