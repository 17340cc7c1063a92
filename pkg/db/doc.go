// Package db provides PostgreSQL plumbing shared by the service:
// a pgxpool connection factory with startup retries, a transaction
// helper, and goose migrations over an embedded filesystem.
//
// Configuration is environment-based; embed Config in the application
// config struct and parse it with caarlos0/env:
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL (required)
//	DATABASE_MAX_OPEN_CONNS     - Maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 5)
//	DATABASE_RETRY_ATTEMPTS     - Connection retry attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//	DATABASE_MIGRATIONS_TABLE   - Migrations table name (default: schema_migrations)
//
// WithTx wraps a function in a transaction with rollback on error or
// panic; the slug registry and entity store rely on it for their
// atomic reserve-and-swap writes.
package db
