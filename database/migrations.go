/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// MigrationManager creates the tables of registered models and applies
// versioned migrations exactly once.
type MigrationManager struct {
	db         *bun.DB
	registry   ModelRegistry
	logger     Logger
	migrations []MigrationItem
}

// Migration is an applied migration record.
type Migration struct {
	bun.BaseModel `bun:"table:cms_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// NewMigrationManager constructs a MigrationManager. A nil registry means
// the default registry.
func NewMigrationManager(db *bun.DB, registry ModelRegistry, logger Logger) *MigrationManager {
	if registry == nil {
		registry = defaultRegistry
	}
	if logger == nil {
		logger = GetLogger()
	}
	return &MigrationManager{
		db:       db,
		registry: registry,
		logger:   logger,
	}
}

// AddMigration appends versioned migrations.
func (mm *MigrationManager) AddMigration(items ...MigrationItem) {
	mm.migrations = append(mm.migrations, items...)
}

// RunMigrations registers the models on the Bun DB, creates missing tables
// and executes pending migrations in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		SetQueriesSilent(true)
		defer SetQueriesSilent(false)
	}

	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}

	instances := mm.registry.Instances()
	mm.db.RegisterModel(instances...)

	if err := mm.createTable(ctx, mm.db, (*Migration)(nil)); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	for _, model := range instances {
		if err := mm.createTable(ctx, mm.db, model); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}

	migrations := make([]MigrationItem, len(mm.migrations))
	copy(migrations, mm.migrations)
	sort.SliceStable(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	mm.logger.Info("Database migrations completed", "tables", len(instances), "migrations", len(migrations))
	return nil
}

func (mm *MigrationManager) createTable(ctx context.Context, db bun.IDB, model interface{}) error {
	_, err := db.NewCreateTable().
		Model(model).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     migration.Version,
				Name:        migration.Name,
				AppliedAt:   time.Now(),
				Description: migration.Description,
			}).
			Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	return nil
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}

// CreateIndex returns a migration step creating a (unique) index on the
// table of model. An index that already exists is not an error.
func CreateIndex(model interface{}, name string, unique bool, columns ...string) MigrationFunc {
	return func(ctx context.Context, db bun.IDB) error {
		q := db.NewCreateIndex().
			Model(model).
			Index(name).
			Column(columns...)
		if unique {
			q = q.Unique()
		}
		if db.Dialect().Name() != dialect.MySQL {
			q = q.IfNotExists()
		}
		_, err := q.Exec(ctx)
		if is, kind := IsSqlError(err); is && (kind == ExistIndexErr || kind == ExistTableErr) {
			return nil
		}
		return err
	}
}
