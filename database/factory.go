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
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// SupportedTypes lists the accepted ConnectionConfig.Type values.
func SupportedTypes() []string {
	types := make([]string, 0, len(dialects))
	for name := range dialects {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// BaseDatabaseFactory creates a configured database manager and drives its
// initialization: connect, migrate, seed.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger: GetLogger(),
	}
}

// CreateFromConfig constructs a database manager from the given connection
// configuration after applying DB_* environment overrides.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if _, ok := dialects[cfg.Type]; !ok {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, SupportedTypes())
	}

	overrideFromEnv(cfg)

	manager := NewDatabaseManager(cfg)
	manager.SetLogger(f.logger)

	f.manager = manager
	return manager, nil
}

type envOverride struct {
	key   string
	apply func(cfg *ConnectionConfig, value string)
}

func intEnv(set func(cfg *ConnectionConfig, v int)) func(*ConnectionConfig, string) {
	return func(cfg *ConnectionConfig, value string) {
		if v, err := strconv.Atoi(value); err == nil {
			set(cfg, v)
		}
	}
}

func secondsEnv(set func(cfg *ConnectionConfig, d time.Duration)) func(*ConnectionConfig, string) {
	return intEnv(func(cfg *ConnectionConfig, v int) { set(cfg, time.Duration(v)*time.Second) })
}

var envOverrides = []envOverride{
	{"DB_HOST", func(c *ConnectionConfig, v string) { c.Host = v }},
	{"DB_PORT", intEnv(func(c *ConnectionConfig, v int) { c.Port = v })},
	{"DB_USERNAME", func(c *ConnectionConfig, v string) { c.Username = v }},
	{"DB_PASSWORD", func(c *ConnectionConfig, v string) { c.Password = v }},
	{"DB_NAME", func(c *ConnectionConfig, v string) { c.DBName = v }},
	{"DB_SSLMODE", func(c *ConnectionConfig, v string) { c.SSLMode = v }},
	{"DB_MAX_IDLE_CONNS", intEnv(func(c *ConnectionConfig, v int) { c.MaxIdleConns = v })},
	{"DB_MAX_OPEN_CONNS", intEnv(func(c *ConnectionConfig, v int) { c.MaxOpenConns = v })},
	{"DB_CONN_MAX_LIFETIME", secondsEnv(func(c *ConnectionConfig, d time.Duration) { c.ConnMaxLifetime = d })},
	{"DB_ENABLE_RECONNECT", func(c *ConnectionConfig, v string) { c.EnableReconnect = v == "true" }},
	{"DB_RECONNECT_INTERVAL", secondsEnv(func(c *ConnectionConfig, d time.Duration) { c.ReconnectInterval = d })},
	{"DB_ENABLE_QUERY_LOG", func(c *ConnectionConfig, v string) { c.EnableQueryLog = v == "true" }},
	{"DB_ENABLE_METRICS", func(c *ConnectionConfig, v string) { c.EnableMetrics = v == "true" }},
}

// overrideFromEnv overrides configuration values from environment variables.
func overrideFromEnv(cfg *ConnectionConfig) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.key); v != "" {
			o.apply(cfg, v)
		}
	}
}

// InitializeDatabase connects to the database, then runs migrations and seeds
// as enabled by cfg.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, cfg *Config, registry ModelRegistry, migrations ...MigrationItem) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}

	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg != nil && cfg.MigrateConfig.EnableMigrateOnStartup {
		if err := f.manager.RunMigrations(ctx, registry, migrations...); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
		if cfg.SeedConfig.EnableSeedOnMigrate {
			if err := f.manager.SeedData(ctx, cfg.SeedConfig); err != nil {
				return fmt.Errorf("failed to seed database: %w", err)
			}
		}
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the database connection managed by the factory.
func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

// GetHealthStatus returns the current database health status from the manager.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

// GetStats returns database connection statistics from the manager.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
