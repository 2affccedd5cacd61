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
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

// dialectSpec opens one kind of database. Content is multilingual and dated,
// so every DSN asks for UTF-8 text and UTC timestamps.
type dialectSpec struct {
	driver  string
	dsn     func(cfg *ConnectionConfig) string
	dialect func() schema.Dialect
	// setup runs once after the first ping.
	setup []string
}

var dialects = map[string]*dialectSpec{
	"mysql": {
		driver: "mysql",
		dsn: func(cfg *ConnectionConfig) string {
			query := url.Values{
				"charset":      {"utf8mb4"},
				"collation":    {"utf8mb4_unicode_ci"},
				"parseTime":    {"true"},
				"loc":          {"UTC"},
				"timeout":      {cfg.ConnectTimeout.String()},
				"readTimeout":  {cfg.ReadTimeout.String()},
				"writeTimeout": {cfg.WriteTimeout.String()},
			}
			return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, query.Encode())
		},
		dialect: func() schema.Dialect { return mysqldialect.New() },
	},
	"postgres": {
		driver: "postgres",
		dsn: func(cfg *ConnectionConfig) string {
			sslMode := cfg.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			dsn := url.URL{
				Scheme: "postgres",
				User:   url.UserPassword(cfg.Username, cfg.Password),
				Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
				Path:   "/" + cfg.DBName,
				RawQuery: url.Values{
					"sslmode":                   {sslMode},
					"connect_timeout":           {fmt.Sprint(int(cfg.ConnectTimeout.Seconds()))},
					"fallback_application_name": {"ormcms"},
				}.Encode(),
			}
			return dsn.String()
		},
		dialect: func() schema.Dialect { return pgdialect.New() },
		setup:   []string{"SET TIME ZONE 'UTC'", "SET client_encoding = 'UTF8'"},
	},
	"sqlite": {
		driver: sqliteshim.ShimName,
		dsn: func(cfg *ConnectionConfig) string {
			if cfg.DBName == "" || cfg.DBName == ":memory:" {
				return ":memory:"
			}
			return cfg.DBName + ".db"
		},
		dialect: func() schema.Dialect { return sqlitedialect.New() },
	},
}

func init() {
	dialects["postgresql"] = dialects["postgres"]
	dialects["sqlite3"] = dialects["sqlite"]
}

type defaultDatabaseManager struct {
	config *ConnectionConfig
	logger Logger

	mu     sync.RWMutex
	db     *bun.DB
	health *HealthStatus

	stop context.CancelFunc
	done chan struct{}
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// If config is nil, the default configuration is used.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{config: config, logger: GetLogger(), health: &HealthStatus{}}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db != nil {
		return nil
	}

	db, err := dm.open(ctx)
	if err != nil {
		return err
	}
	dm.db = db
	dm.logger.Info("Database connected", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)

	if dm.config.HealthCheckInterval > 0 && dm.stop == nil {
		monitor, stop := context.WithCancel(context.Background())
		dm.stop, dm.done = stop, make(chan struct{})
		go dm.monitor(monitor)
	}
	return nil
}

// open connects and pings without touching the manager state.
func (dm *defaultDatabaseManager) open(ctx context.Context) (*bun.DB, error) {
	cfg := dm.config
	spec, ok := dialects[cfg.Type]
	if !ok {
		return nil, errors.Errorf("unsupported database type: %s", cfg.Type)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}

	sqlDB, err := sql.Open(spec.driver, spec.dsn(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create database connection")
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db := bun.NewDB(sqlDB, spec.dialect())
	if cfg.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true), bundebug.FromEnv("BUNDEBUG")))
	}
	if cfg.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(cfg.SlowQueryTime, os.Stdout))
	}
	if cfg.EnableMetrics {
		db.AddQueryHook(NewMetricsHook(cfg.Type))
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "database connection test failed")
	}
	for _, stmt := range spec.setup {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "database setup %q", stmt)
		}
	}
	return db, nil
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	stop, done := dm.stop, dm.done
	dm.stop, dm.done = nil, nil
	dm.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db = nil
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
	} else {
		dm.logger.Info("Database connection closed")
	}
	return err
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	db := dm.GetDB()
	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}
	if db == nil {
		status.LastError = "database not initialized"
		return dm.record(status)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}
	stats := db.DB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return dm.record(status)
}

func (dm *defaultDatabaseManager) lastHealth() *HealthStatus {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.health
}

func (dm *defaultDatabaseManager) record(status *HealthStatus) *HealthStatus {
	dm.mu.Lock()
	dm.health = status
	dm.mu.Unlock()
	return status
}

// monitor checks the connection every HealthCheckInterval and swaps in a new
// connection after a failed check when reconnecting is enabled.
func (dm *defaultDatabaseManager) monitor(ctx context.Context) {
	defer close(dm.done)
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		status := dm.HealthCheck(checkCtx)
		cancel()
		if !status.Healthy && dm.config.EnableReconnect {
			dm.reconnect(ctx)
		}
	}
}

func (dm *defaultDatabaseManager) reconnect(ctx context.Context) {
	for try := 1; try <= dm.config.MaxReconnectTries; try++ {
		dm.logger.Info("Starting database reconnect", "try", try)
		select {
		case <-ctx.Done():
			return
		case <-time.After(dm.config.ReconnectInterval):
		}

		openCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
		db, err := dm.open(openCtx)
		cancel()
		if err != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", try)
			continue
		}

		dm.mu.Lock()
		old := dm.db
		dm.db = db
		dm.mu.Unlock()
		if old != nil {
			_ = old.Close()
		}
		dm.logger.Info("Reconnect succeeded")
		return
	}
	dm.logger.Error("Max reconnect attempts reached, stopping", "tries", dm.config.MaxReconnectTries)
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	db := dm.GetDB()
	if db == nil {
		return &DBStats{}
	}
	stats := db.DB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context, registry ModelRegistry, migrations ...MigrationItem) error {
	db := dm.GetDB()
	if db == nil {
		return errors.New("database not initialized")
	}
	mm := NewMigrationManager(db, registry, dm.logger)
	mm.AddMigration(migrations...)
	return mm.RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) SeedData(ctx context.Context, cfg SeedConfig) error {
	db := dm.GetDB()
	if db == nil {
		return errors.New("database not initialized")
	}
	return NewSeeder(db, cfg, dm.logger).Run(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if logger != nil {
		dm.logger = logger
	}
}
