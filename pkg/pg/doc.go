// Package pg connects to PostgreSQL through pgx and provides durable
// session and permission-profile stores.
//
// Connect builds a pgxpool with retry; Healthcheck wraps Ping for
// readiness probes; Migrate applies the embedded goose migrations that
// create the sessions and rbac_profiles tables. SessionStore and
// ProfileStore accept anything with pgx's Exec and Query methods, so a
// pool, a connection or a transaction all work.
package pg
