// Package authapi exposes registration and login over HTTP and provides the
// bearer-token middleware that guards protected routes.
//
// Responses keep the historical wire shapes: successes and credential failures
// carry a "message" field, server-side failures an "error" field. With
// Config.StrictStatus set, conflicts and validation failures get precise status
// codes (409, 400) instead of a generic 500.
package authapi
