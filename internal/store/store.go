// ABOUTME: Store interface and data types for comm-relay persistence
// ABOUTME: Defines User, Conversation, Message structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateConversation is returned when trying to create a conversation
// for a user pair that already has one. Callers should re-query the pair and
// use the existing row.
var ErrDuplicateConversation = errors.New("conversation already exists")

// User is a registered account. The relay only reads users; account
// management is owned by the identity service.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	PhotoURL  string
	RoleID    int64
	Status    string
	CreatedAt time.Time
}

// DisplayName returns the name shown to other users.
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// Conversation pairs two users. The pair is stored canonically with
// UserLow < UserHigh so each unordered pair maps to exactly one row.
type Conversation struct {
	ID        int64
	UserLow   int64
	UserHigh  int64
	CreatedAt time.Time
}

// Member reports whether userID is one of the conversation's two parties.
func (c *Conversation) Member(userID int64) bool {
	return userID == c.UserLow || userID == c.UserHigh
}

// Message is a single direct message. Immutable once stored except for the
// read flag, which MarkConversationRead flips.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	SenderName     string // joined display name, populated on reads
	Body           string
	SentAt         time.Time
	Read           bool
}

// LastMessage is the most recent message preview in a conversation summary.
type LastMessage struct {
	Body   string
	SentAt time.Time
}

// ConversationSummary is one row of a user's conversation list: who the
// other party is, how many messages are unread, and the latest message.
type ConversationSummary struct {
	ConversationID    int64
	OtherUserID       int64
	OtherUserName     string
	OtherUserPhotoURL string
	UnreadCount       int64
	LastMessage       *LastMessage
}

// Store defines the interface for user, conversation and message persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)

	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id int64) (*Conversation, error)
	GetConversationByPair(ctx context.Context, userLow, userHigh int64) (*Conversation, error)
	ListConversationSummaries(ctx context.Context, userID int64) ([]*ConversationSummary, error)

	// Messages
	AppendMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, conversationID int64) ([]*Message, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID int64) error

	// Close releases any resources held by the store
	Close() error
}
