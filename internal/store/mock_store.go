// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject failures

package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu            sync.RWMutex
	users         map[int64]*User
	conversations map[int64]*Conversation
	pairIndex     map[[2]int64]int64 // (userLow, userHigh) -> conversation ID
	messages      map[int64][]*Message
	nextUserID    int64
	nextConvID    int64
	nextMsgID     int64

	// AppendErr, when set, is returned by AppendMessage. Used to simulate
	// persistence failures.
	AppendErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:         make(map[int64]*User),
		conversations: make(map[int64]*Conversation),
		pairIndex:     make(map[[2]int64]int64),
		messages:      make(map[int64][]*Message),
	}
}

// CreateUser stores a new user and assigns an ID.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextUserID++
	u := *user
	u.ID = m.nextUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = &u
	user.ID = u.ID
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *u
	return &result, nil
}

// CreateConversation stores a new conversation, enforcing pair uniqueness the
// way the SQLite UNIQUE index does.
func (m *MockStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conv.UserLow >= conv.UserHigh {
		return fmt.Errorf("conversation pair not canonical: (%d, %d)", conv.UserLow, conv.UserHigh)
	}

	key := [2]int64{conv.UserLow, conv.UserHigh}
	if _, exists := m.pairIndex[key]; exists {
		return ErrDuplicateConversation
	}

	m.nextConvID++
	c := *conv
	c.ID = m.nextConvID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.conversations[c.ID] = &c
	m.pairIndex[key] = c.ID
	conv.ID = c.ID
	return nil
}

// GetConversation retrieves a conversation by ID.
func (m *MockStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *c
	return &result, nil
}

// GetConversationByPair retrieves the conversation for a canonical pair.
func (m *MockStore) GetConversationByPair(ctx context.Context, userLow, userHigh int64) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.pairIndex[[2]int64{userLow, userHigh}]
	if !ok {
		return nil, ErrNotFound
	}
	result := *m.conversations[id]
	return &result, nil
}

// ListConversationSummaries returns summaries for the user's conversations.
func (m *MockStore) ListConversationSummaries(ctx context.Context, userID int64) ([]*ConversationSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var summaries []*ConversationSummary
	for _, c := range m.conversations {
		if !c.Member(userID) {
			continue
		}
		otherID := c.UserLow
		if otherID == userID {
			otherID = c.UserHigh
		}
		sum := &ConversationSummary{
			ConversationID: c.ID,
			OtherUserID:    otherID,
		}
		if other, ok := m.users[otherID]; ok {
			sum.OtherUserName = other.DisplayName()
			sum.OtherUserPhotoURL = other.PhotoURL
		}
		for _, msg := range m.messages[c.ID] {
			if !msg.Read && msg.SenderID != userID {
				sum.UnreadCount++
			}
		}
		if msgs := m.messages[c.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			sum.LastMessage = &LastMessage{Body: last.Body, SentAt: last.SentAt}
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// AppendMessage stores a message, assigning an ID and server timestamp.
func (m *MockStore) AppendMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AppendErr != nil {
		return m.AppendErr
	}

	m.nextMsgID++
	stored := *msg
	stored.ID = m.nextMsgID
	stored.SentAt = time.Now().UTC()
	stored.Read = false
	if sender, ok := m.users[stored.SenderID]; ok {
		stored.SenderName = sender.DisplayName()
	}
	m.messages[stored.ConversationID] = append(m.messages[stored.ConversationID], &stored)

	msg.ID = stored.ID
	msg.SentAt = stored.SentAt
	msg.SenderName = stored.SenderName
	msg.Read = false
	return nil
}

// ListMessages returns the conversation's messages, oldest first.
func (m *MockStore) ListMessages(ctx context.Context, conversationID int64) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[conversationID]
	result := make([]*Message, len(msgs))
	for i, msg := range msgs {
		copied := *msg
		result[i] = &copied
	}
	return result, nil
}

// MarkConversationRead flags messages not sent by readerID as read.
func (m *MockStore) MarkConversationRead(ctx context.Context, conversationID, readerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range m.messages[conversationID] {
		if msg.SenderID != readerID {
			msg.Read = true
		}
	}
	return nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
