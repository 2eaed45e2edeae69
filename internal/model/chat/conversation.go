package chat

import "time"

// Conversation 表示一个匿名会话的标识。
type Conversation struct {
	ID        string    `json:"conversationId"`
	CreatedAt time.Time `json:"createdAt"`
}
