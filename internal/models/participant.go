package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ParticipantRole string

const (
	RoleAdmin     ParticipantRole = "admin"
	RoleModerator ParticipantRole = "moderator"
	RoleMember    ParticipantRole = "member"
)

// Rank orders roles for participant listings, admins first.
func (r ParticipantRole) Rank() int {
	switch r {
	case RoleAdmin:
		return 0
	case RoleModerator:
		return 1
	default:
		return 2
	}
}

// Participant binds one user to one chat. At most one row exists per
// (chat_id, user_id); re-joining reactivates the row instead of
// duplicating it.
type Participant struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ChatID            primitive.ObjectID   `bson:"chat_id" json:"chat_id" validate:"required"`
	UserID            string               `bson:"user_id" json:"user_id" validate:"required"`
	UserName          string               `bson:"user_name" json:"user_name"`
	UserEmail         string               `bson:"user_email" json:"user_email"`
	Department        string               `bson:"department" json:"department"`
	Role              ParticipantRole      `bson:"role" json:"role"`
	JoinedAt          time.Time            `bson:"joined_at" json:"joined_at"`
	LastSeenAt        time.Time            `bson:"last_seen_at" json:"last_seen_at"`
	LastMessageReadAt time.Time            `bson:"last_message_read_at" json:"last_message_read_at"`
	Notifications     NotificationSettings `bson:"notifications" json:"notifications"`
	IsActive          bool                 `bson:"is_active" json:"is_active"`
	LeftAt            *time.Time           `bson:"left_at,omitempty" json:"left_at,omitempty"`
	CreatedAt         time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at" json:"updated_at"`
}

type NotificationSettings struct {
	Muted        bool `bson:"muted" json:"muted"`
	MentionsOnly bool `bson:"mentions_only" json:"mentions_only"`
}

// Online reports whether the participant was seen within window of now.
func (p *Participant) Online(now time.Time, window time.Duration) bool {
	return !p.LastSeenAt.IsZero() && now.Sub(p.LastSeenAt) <= window
}

// ParticipantWithMeta is a participant annotated with derived presence.
type ParticipantWithMeta struct {
	*Participant
	IsOnline bool `json:"is_online"`
}

// Employee is a read-only projection of the host application's employee
// records, used to auto-enroll department chats.
type Employee struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Department string             `bson:"department" json:"department"`
	Role       string             `bson:"role" json:"role"`
	IsActive   bool               `bson:"is_active" json:"is_active"`
}
