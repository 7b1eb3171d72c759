// ABOUTME: REST handlers for the conversation read API
// ABOUTME: Conversation list, message history, mark-read, and health

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chambee/comm-relay/internal/auth"
	"github.com/chambee/comm-relay/internal/store"
)

type conversationSummaryResponse struct {
	ConversationID    int64                `json:"conversation_id"`
	OtherUserID       int64                `json:"other_user_id"`
	OtherUserName     string               `json:"other_user_name"`
	OtherUserPhotoURL string               `json:"other_user_photo_url,omitempty"`
	UnreadCount       int64                `json:"unread_count"`
	LastMessage       *lastMessageResponse `json:"last_message,omitempty"`
}

type lastMessageResponse struct {
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

type messageResponse struct {
	ID                int64     `json:"id"`
	ConversationID    int64     `json:"conversation_id"`
	SenderID          int64     `json:"sender_id"`
	SenderDisplayName string    `json:"sender_display_name"`
	Body              string    `json:"body"`
	SentAt            time.Time `json:"sent_at"`
	Read              bool      `json:"read"`
}

// handleHealth reports liveness; no auth required.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListConversations handles GET /api/conversations
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	summaries, err := s.conversations.Summaries(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("listing conversations", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	resp := make([]conversationSummaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		item := conversationSummaryResponse{
			ConversationID:    sum.ConversationID,
			OtherUserID:       sum.OtherUserID,
			OtherUserName:     sum.OtherUserName,
			OtherUserPhotoURL: sum.OtherUserPhotoURL,
			UnreadCount:       sum.UnreadCount,
		}
		if sum.LastMessage != nil {
			item.LastMessage = &lastMessageResponse{
				Body:   sum.LastMessage.Body,
				SentAt: sum.LastMessage.SentAt,
			}
		}
		resp = append(resp, item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListMessages handles GET /api/conversations/{id}/messages
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	_, conv, ok := s.memberConversation(w, r)
	if !ok {
		return
	}

	messages, err := s.conversations.History(r.Context(), conv.ID)
	if err != nil {
		s.logger.Error("listing messages", "conversation_id", conv.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	resp := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, messageResponse{
			ID:                msg.ID,
			ConversationID:    msg.ConversationID,
			SenderID:          msg.SenderID,
			SenderDisplayName: msg.SenderName,
			Body:              msg.Body,
			SentAt:            msg.SentAt,
			Read:              msg.Read,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleMarkRead handles POST /api/conversations/{id}/read
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, conv, ok := s.memberConversation(w, r)
	if !ok {
		return
	}

	if err := s.conversations.MarkRead(r.Context(), conv.ID, user.ID); err != nil {
		s.logger.Error("marking conversation read", "conversation_id", conv.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark conversation read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// memberConversation resolves the {id} URL parameter and enforces that the
// authenticated user is a party to the conversation. On failure the response
// is already written and ok is false.
func (s *Server) memberConversation(w http.ResponseWriter, r *http.Request) (*store.User, *store.Conversation, bool) {
	user := auth.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil, nil, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return nil, nil, false
	}

	conv, err := s.conversations.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return nil, nil, false
		}
		s.logger.Error("loading conversation", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return nil, nil, false
	}

	if !conv.Member(user.ID) {
		writeError(w, http.StatusForbidden, "not a conversation member")
		return nil, nil, false
	}

	return user, conv, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone; nothing more to do
		return
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
