// Package auth provides credential verification for comm-relay.
//
// Credentials are HS256-signed JWTs whose "sub" claim carries the user id.
// The Authenticator combines token verification with a user lookup so callers
// get either a full user record or a uniform failure. HTTP requests carry the
// credential as a bearer header or, for clients that cannot set headers (the
// WebSocket endpoint), a "token" query parameter.
package auth
