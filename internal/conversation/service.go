// ABOUTME: Conversation service is the central layer for message persistence
// ABOUTME: Resolves user pairs to conversations and appends messages; record first, then deliver

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chambee/comm-relay/internal/store"
)

// ErrEmptyBody is returned when a message body is empty after trimming.
var ErrEmptyBody = errors.New("message body is empty")

// ErrSelfConversation is returned when both sides of a pair are the same user.
var ErrSelfConversation = errors.New("cannot converse with self")

// ErrUnknownUser is returned when resolving a pair against a user that does
// not exist.
var ErrUnknownUser = errors.New("unknown user")

// ConversationStore defines what the service needs from storage
type ConversationStore interface {
	GetUser(ctx context.Context, id int64) (*store.User, error)
	CreateConversation(ctx context.Context, conv *store.Conversation) error
	GetConversation(ctx context.Context, id int64) (*store.Conversation, error)
	GetConversationByPair(ctx context.Context, userLow, userHigh int64) (*store.Conversation, error)
	ListConversationSummaries(ctx context.Context, userID int64) ([]*store.ConversationSummary, error)
	AppendMessage(ctx context.Context, msg *store.Message) error
	ListMessages(ctx context.Context, conversationID int64) ([]*store.Message, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID int64) error
}

// Service maps user pairs to durable conversations and owns the message
// persistence path. All messages flow through Append — history is the source
// of truth, not a side effect of delivery.
type Service struct {
	store  ConversationStore
	logger *slog.Logger
}

// New creates a conversation Service. Pass nil logger for default.
func New(store ConversationStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger.With("component", "conversation"),
	}
}

// ResolveOrCreate maps an unordered user pair to exactly one conversation id,
// creating the row on first contact. The pair is canonicalized lower-id-first
// before lookup, so both orderings hit the same row.
//
// Two sessions resolving the same new pair concurrently may both miss the
// lookup; the store's uniqueness constraint decides the winner and the loser
// re-queries, so the pair-uniqueness invariant holds under the race.
func (s *Service) ResolveOrCreate(ctx context.Context, userA, userB int64) (int64, error) {
	if userA == userB {
		return 0, ErrSelfConversation
	}

	low, high := userA, userB
	if low > high {
		low, high = high, low
	}

	conv, err := s.store.GetConversationByPair(ctx, low, high)
	if err == nil {
		return conv.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("looking up conversation: %w", err)
	}

	// Confirmed miss. Verify both parties exist before creating — the relay
	// validates its own sender upstream, but the recipient id comes straight
	// off the wire.
	for _, id := range []int64{low, high} {
		if _, err := s.store.GetUser(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, fmt.Errorf("%w: %d", ErrUnknownUser, id)
			}
			return 0, fmt.Errorf("checking user %d: %w", id, err)
		}
	}

	newConv := &store.Conversation{UserLow: low, UserHigh: high}
	err = s.store.CreateConversation(ctx, newConv)
	if err == nil {
		s.logger.Debug("conversation created", "id", newConv.ID, "user_low", low, "user_high", high)
		return newConv.ID, nil
	}

	if errors.Is(err, store.ErrDuplicateConversation) {
		// Lost the create race; the winner's row is authoritative
		existing, lookupErr := s.store.GetConversationByPair(ctx, low, high)
		if lookupErr != nil {
			return 0, fmt.Errorf("retry lookup after duplicate: %w", lookupErr)
		}
		s.logger.Debug("found existing conversation after race", "id", existing.ID)
		return existing.ID, nil
	}

	return 0, fmt.Errorf("creating conversation: %w", err)
}

// Append records a message and returns the persisted record with its
// store-assigned id and timestamp. Callers must not report the message as
// sent to anyone if Append fails.
func (s *Service) Append(ctx context.Context, conversationID, senderID int64, body string) (*store.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	msg := &store.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}

	s.logger.Debug("message appended",
		"id", msg.ID,
		"conversation_id", conversationID,
		"sender_id", senderID)
	return msg, nil
}

// History returns all messages in the conversation, oldest first.
func (s *Service) History(ctx context.Context, conversationID int64) ([]*store.Message, error) {
	return s.store.ListMessages(ctx, conversationID)
}

// MarkRead flags every message in the conversation not sent by readerID as read.
func (s *Service) MarkRead(ctx context.Context, conversationID, readerID int64) error {
	return s.store.MarkConversationRead(ctx, conversationID, readerID)
}

// Summaries returns the user's conversation list with unread counts.
func (s *Service) Summaries(ctx context.Context, userID int64) ([]*store.ConversationSummary, error) {
	return s.store.ListConversationSummaries(ctx, userID)
}

// Get returns conversation metadata.
func (s *Service) Get(ctx context.Context, conversationID int64) (*store.Conversation, error) {
	return s.store.GetConversation(ctx, conversationID)
}
