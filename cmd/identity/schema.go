package identity

import _ "embed"

// The application schema covers users, posts, comments and likes. Only users
// and posts are reached by the API; comments and likes exist for data parity.
// Every statement is idempotent. The SQLite store applies its DDL on open; the
// Postgres DDL only through ApplyPostgresSchema.

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string
