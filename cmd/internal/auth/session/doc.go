// Package session implements account registration, credential login and the
// verified identity that travels on a request context.
//
// Login issues a stateless bearer token (security/token); there is no server-side
// session row, so a token stays valid until it expires. Unknown identifiers and
// wrong passwords fail identically, including a dummy password verification on the
// unknown-identifier path so both cost about the same.
//
// Transport (HTTP) integration lives in auth/api.
package session
