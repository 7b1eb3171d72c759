// Package registry tracks the one live connection each user may hold.
//
// The Registry is created once at process start and shared by every relay
// session. Register is last-writer-wins per user: a reconnect replaces and
// closes the previous channel. Deliver is best-effort — an offline recipient
// is a normal false result, never an error.
//
// Extension point: multi-device fan-out would generalize the per-user value
// from one Channel to a set, with Deliver fanning out and Unregister removing
// only the specific stale channel. Not implemented; one connection per user
// is the intended policy.
package registry
