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
)

// Open creates a factory for cfg, connects and, when enabled, migrates and
// seeds the database.
func Open(ctx context.Context, cfg *Config, registry ModelRegistry, migrations ...MigrationItem) (*BaseDatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	factory := NewDatabaseFactory()
	if _, err := factory.CreateFromConfig(&cfg.ConnectionConfig); err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx, cfg, registry, migrations...); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return factory, nil
}

// OpenMemory opens a migrated in-memory sqlite database.
func OpenMemory(ctx context.Context, registry ModelRegistry, migrations ...MigrationItem) (*BaseDatabaseFactory, error) {
	return Open(ctx, &Config{
		ConnectionConfig: *MemoryConfig(),
		MigrateConfig:    MigrateConfig{EnableMigrateOnStartup: true},
	}, registry, migrations...)
}
