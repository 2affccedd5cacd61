// Package database provides connection management for mysql, postgres and
// sqlite through Bun, table creation for registered models, versioned
// migrations, SQL seed files, query log and metrics hooks, health checks and
// SQL error classification.
package database
