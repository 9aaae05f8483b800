// Package password provides password hashing and verification for postboard.
//
// New hashes are Argon2id in a PHC-like encoded string. Verification also accepts
// bcrypt hashes ($2a$/$2b$/$2y$) written by the legacy deployment, so imported
// accounts keep working until they are rehashed.
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify and are validated accordingly.
// - Verification refuses hashes with parameters that exceed reasonable bounds.
// - Hasher bounds the number of concurrent memory-hard computations.
package password
