// ABOUTME: Relay session drives one authenticated connection from attach to close
// ABOUTME: Reads frames, persists via the conversation service, delivers best-effort

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/chambee/comm-relay/internal/conversation"
	"github.com/chambee/comm-relay/internal/metrics"
	"github.com/chambee/comm-relay/internal/registry"
	"github.com/chambee/comm-relay/internal/store"
)

// State is the lifecycle phase of a session. Transitions only move forward.
type State int32

const (
	// StateConnecting covers the window between upgrade and credential check.
	StateConnecting State = iota
	// StateAuthenticated means the user is known but the session is not yet
	// registered for delivery.
	StateAuthenticated
	// StateActive means the session is registered and relaying frames.
	StateActive
	// StateClosed is terminal; the registry entry is released.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport is the session's view of its connection: inbound frames plus the
// outbound Channel the registry tracks.
type Transport interface {
	registry.Channel
	ReadMessage() ([]byte, error)
}

// Router is the slice of the registry a session needs.
type Router interface {
	Register(userID int64, ch registry.Channel)
	Unregister(userID int64, ch registry.Channel)
	Deliver(userID int64, payload []byte) bool
}

// Conversations is the persistence surface a session uses per frame.
type Conversations interface {
	ResolveOrCreate(ctx context.Context, userA, userB int64) (int64, error)
	Append(ctx context.Context, conversationID, senderID int64, body string) (*store.Message, error)
}

const defaultStoreTimeout = 5 * time.Second

// Session relays messages for one authenticated user over one connection.
// Construct with NewSession after authentication succeeds, then call Run.
type Session struct {
	user          *store.User
	conn          Transport
	router        Router
	conversations Conversations
	storeTimeout  time.Duration
	logger        *slog.Logger
	state         atomic.Int32
}

// NewSession builds a session for an authenticated user. storeTimeout bounds
// each frame's store work; zero means the default.
func NewSession(user *store.User, conn Transport, router Router, conversations Conversations, storeTimeout time.Duration, logger *slog.Logger) *Session {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		user:          user,
		conn:          conn,
		router:        router,
		conversations: conversations,
		storeTimeout:  storeTimeout,
		logger:        logger.With("component", "relay", "user_id", user.ID),
	}
	s.state.Store(int32(StateAuthenticated))
	return s
}

// State returns the session's current lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Run registers the session for delivery and relays frames until the
// connection fails or the context is canceled. The registry entry is released
// exactly once on the way out, whatever the exit path.
func (s *Session) Run(ctx context.Context) {
	s.router.Register(s.user.ID, s.conn)
	s.state.Store(int32(StateActive))
	s.logger.Info("session active")

	defer func() {
		s.state.Store(int32(StateClosed))
		s.router.Unregister(s.user.ID, s.conn)
		s.logger.Info("session closed")
	}()

	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Debug("read ended", "error", err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.handleFrame(ctx, data)
	}
}

// handleFrame processes one inbound frame. Frame-level failures notify the
// sender and keep the session alive; only transport errors end it.
func (s *Session) handleFrame(ctx context.Context, data []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		metrics.RecordRejectedFrame("malformed")
		s.notifyError("invalid message format")
		return
	}
	if frame.RecipientID <= 0 {
		metrics.RecordRejectedFrame("missing_recipient")
		s.notifyError("id_destinatario is required")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	convID, err := s.conversations.ResolveOrCreate(ctx, s.user.ID, frame.RecipientID)
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrSelfConversation):
			metrics.RecordRejectedFrame("self_recipient")
			s.notifyError("cannot send a message to yourself")
		case errors.Is(err, conversation.ErrUnknownUser):
			metrics.RecordRejectedFrame("unknown_recipient")
			s.notifyError("recipient does not exist")
		default:
			s.logger.Error("conversation resolve failed", "recipient_id", frame.RecipientID, "error", err)
			s.notifyError("message could not be sent")
		}
		return
	}

	msg, err := s.conversations.Append(ctx, convID, s.user.ID, frame.Body)
	if err != nil {
		if errors.Is(err, conversation.ErrEmptyBody) {
			metrics.RecordRejectedFrame("empty_body")
			s.notifyError("contenido must not be empty")
			return
		}
		// Persistence failed: the message does not exist, so nobody may see
		// it. Only the sender learns about the failure.
		s.logger.Error("message persist failed", "conversation_id", convID, "error", err)
		s.notifyError("message could not be saved")
		return
	}

	payload, err := json.Marshal(newWireMessage(msg, s.user.DisplayName()))
	if err != nil {
		s.logger.Error("encoding outbound message", "error", err)
		return
	}

	delivered := s.router.Deliver(frame.RecipientID, payload)
	metrics.RecordMessage(delivered)
	if !delivered {
		s.logger.Debug("recipient offline, stored only", "recipient_id", frame.RecipientID, "message_id", msg.ID)
	}

	// Echo the stored record back so the sender sees the authoritative id and
	// timestamp.
	if err := s.conn.Send(payload); err != nil {
		s.logger.Debug("confirmation send failed", "error", err)
	}
}

func (s *Session) notifyError(msg string) {
	payload, err := json.Marshal(ErrorNotice{Error: msg})
	if err != nil {
		return
	}
	if err := s.conn.Send(payload); err != nil {
		s.logger.Debug("error notice send failed", "error", err)
	}
}
