// Package identity is the credential store: users, their normalized login keys
// and password hashes.
//
// Three backends implement Store: MemoryStore (tests and single-process dev),
// PostgresStore (pgx) and SQLiteStore (modernc.org/sqlite). Uniqueness of
// username and email is enforced by the backend, never by a read-then-write check
// in callers, so concurrent registrations race safely.
//
// The store only ever sees password hashes. Hashing happens in security/password.
package identity
