package chat

import (
	"time"

	"github.com/zhouzirui/mindwell/backend/internal/analysis/triage"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// Message is one immutable entry of a conversation log.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	Sender         Sender          `json:"sender"`
	Content        string          `json:"content"`
	Category       triage.Category `json:"category,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// IsCrisisReply reports whether the message is a system reply to a crisis utterance.
func (m Message) IsCrisisReply() bool {
	return m.Sender == SenderSystem && m.Category == triage.Crisis
}
