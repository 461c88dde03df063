package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatType string

const (
	ChatTypeDepartment ChatType = "department"
	ChatTypeGroup      ChatType = "group"
	ChatTypeDirect     ChatType = "direct"
)

// Chat is a room scoped to one department. Exactly one active
// department-type chat exists per department; group and direct rooms are
// created explicitly.
type Chat struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Department     string             `bson:"department" json:"department" validate:"required"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description" json:"description"`
	Type           ChatType           `bson:"type" json:"type" validate:"required,oneof=department group direct"`
	ParticipantIDs []string           `bson:"participant_ids" json:"participant_ids"`
	LastMessage    *LastMessage       `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastActivity   time.Time          `bson:"last_activity" json:"last_activity"`
	IsActive       bool               `bson:"is_active" json:"is_active"`
	CreatedBy      string             `bson:"created_by" json:"created_by"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// LastMessage is the denormalized newest-message snapshot cached on the
// chat for list views. It is refreshed only by sends, never by edits.
type LastMessage struct {
	MessageID  primitive.ObjectID `bson:"message_id" json:"message_id"`
	Content    string             `bson:"content" json:"content"`
	SenderID   string             `bson:"sender_id" json:"sender_id"`
	SenderName string             `bson:"sender_name" json:"sender_name"`
	SentAt     time.Time          `bson:"sent_at" json:"sent_at"`
	Type       MessageType        `bson:"type" json:"type"`
}

// ChatWithMeta is a chat annotated for one caller's list view.
type ChatWithMeta struct {
	*Chat
	UnreadCount int64 `json:"unread_count"`
}

// ChatWithParticipants is a chat with its active membership populated.
type ChatWithParticipants struct {
	*Chat
	Participants []*ParticipantWithMeta `json:"participants"`
}
