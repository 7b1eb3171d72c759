// ABOUTME: Wire formats exchanged over a relay session
// ABOUTME: Inbound send frames, outbound message records, and error notices

package relay

import (
	"time"

	"github.com/chambee/comm-relay/internal/store"
)

// InboundFrame is what a client sends to dispatch a message. The field names
// are fixed by the deployed mobile clients and must not change.
type InboundFrame struct {
	RecipientID int64  `json:"id_destinatario"`
	Body        string `json:"contenido"`
}

// WireMessage is the persisted message as broadcast to both parties. The
// sender receives it as confirmation; the recipient receives it as delivery.
type WireMessage struct {
	ID                int64     `json:"id"`
	ConversationID    int64     `json:"conversation_id"`
	SenderID          int64     `json:"sender_id"`
	SenderDisplayName string    `json:"sender_display_name"`
	Body              string    `json:"body"`
	SentAt            time.Time `json:"sent_at"`
}

// ErrorNotice is sent only to the offending sender; the recipient never sees
// another user's failures.
type ErrorNotice struct {
	Error string `json:"error"`
}

func newWireMessage(msg *store.Message, senderName string) WireMessage {
	return WireMessage{
		ID:                msg.ID,
		ConversationID:    msg.ConversationID,
		SenderID:          msg.SenderID,
		SenderDisplayName: senderName,
		Body:              msg.Body,
		SentAt:            msg.SentAt,
	}
}
