// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// startup retries, goose schema migrations, and a few error helpers shared
// by the pgx-backed stores.
package pg
