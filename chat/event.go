package chat

import (
	"encoding/json"

	"github.com/studiswap/studiswap/models"
)

// Outbound event discriminants.
const (
	EventTypeMessage = "message"
	EventTypeTyping  = "typing"
)

// InboundFrame is the client→server wire shape. Exactly one of the fields
// is expected per frame.
type InboundFrame struct {
	Message *string `json:"message"`
	Typing  *bool   `json:"typing"`
}

// MessageEvent is the server→client broadcast for one persisted message.
type MessageEvent struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	SenderID       uint   `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	SenderName     string `json:"sender_name"`
	MessageID      uint   `json:"message_id"`
	Timestamp      string `json:"timestamp"`
	IsRead         bool   `json:"is_read"`
}

// TypingEvent is the ephemeral typing indicator. Never persisted.
type TypingEvent struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
	User     string `json:"user"`
}

// NewMessageEvent renders the broadcast frame for a just-persisted message.
func NewMessageEvent(msg *models.Message, sender Identity) MessageEvent {
	return MessageEvent{
		Type:           EventTypeMessage,
		Message:        msg.Content,
		SenderID:       sender.UserID,
		SenderUsername: sender.Username,
		SenderName:     sender.DisplayName(),
		MessageID:      msg.ID,
		Timestamp:      models.FormatChatTimestamp(msg.CreatedAt),
		IsRead:         false,
	}
}

func encodeEvent(event interface{}) ([]byte, error) {
	return json.Marshal(event)
}
