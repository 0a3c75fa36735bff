package model

import (
	"time"
)

type ChatAuthor string

const (
	AuthorHuman ChatAuthor = "human"
	AuthorAI    ChatAuthor = "ai"
)

// ChatMessage is one append-only row of a notebook's chat transcript. The
// session id equals the notebook id. The auto-increment primary key doubles
// as the monotonic ordering of the transcript.
type ChatMessage struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string     `gorm:"index:idx_session_created;type:varchar(36);not null" json:"sessionId"`
	Author      ChatAuthor `gorm:"size:10;not null" json:"author"`
	Content     string     `gorm:"type:text" json:"content"`
	Segments    string     `gorm:"type:json" json:"segments,omitempty"`  // structured segments + citations, opaque to the backend
	ClientMsgID string     `gorm:"size:50;index" json:"clientMsgId"`     // dedup key for optimistic sends
	CreatedAt   time.Time  `gorm:"index:idx_session_created" json:"createdAt"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
