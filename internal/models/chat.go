package models

import "time"

// ChatRole — автор реплики в диалоге с ассистентом.
type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// ChatMessage — одна реплика диалога.
type ChatMessage struct {
	Role      ChatRole          `json:"role"`
	Text      string            `json:"text"`
	Timestamp time.Time         `json:"timestamp"`
	Sources   []GroundingSource `json:"sources,omitempty"`
}
