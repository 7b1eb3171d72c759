// Package store provides persistent storage for comm-relay using SQLite.
//
// # Data Models
//
//   - User: registered accounts, read-only to the relay
//   - Conversation: a canonical two-user pair (user_low < user_high)
//   - Message: immutable direct messages with a mutable read flag
//   - ConversationSummary: read-side listing rows with unread counts
//
// # Conversation Pair Uniqueness
//
// Each unordered user pair maps to at most one conversation. The pair is
// stored lower-id-first and guarded by UNIQUE(user_low, user_high), so a
// concurrent create loses with ErrDuplicateConversation and the caller
// re-queries for the winner's row.
//
// # Message Ordering
//
// Message IDs are assigned by SQLite's rowid, so history order (ORDER BY id)
// is exactly the order in which appends completed.
//
// # SQLite Configuration
//
// The store uses WAL mode with foreign keys enabled. The schema is created
// automatically on startup. Use NewSQLiteStore(":memory:") for integration
// tests and NewMockStore() for unit tests.
package store
