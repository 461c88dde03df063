package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeFile  MessageType = "file"
	MessageTypeImage MessageType = "image"
)

const (
	// MaxContentLength bounds message content, in characters.
	MaxContentLength = 5000

	// DeletedContent replaces the content of a tombstoned message. The
	// original content is unrecoverable through any read path.
	DeletedContent = "This message has been deleted"
)

// Message is one unit of communication within a chat. Lifecycle:
// created -> edited* -> deleted (terminal).
type Message struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ChatID           primitive.ObjectID  `bson:"chat_id" json:"chat_id" validate:"required"`
	SenderID         string              `bson:"sender_id" json:"sender_id" validate:"required"`
	SenderName       string              `bson:"sender_name" json:"sender_name"`
	SenderDepartment string              `bson:"sender_department" json:"sender_department"`
	Content          string              `bson:"content" json:"content"`
	Type             MessageType         `bson:"type" json:"type"`
	File             *FileMeta           `bson:"file,omitempty" json:"file,omitempty"`
	ReplyTo          *primitive.ObjectID `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	IsEdited         bool                `bson:"is_edited" json:"is_edited"`
	EditedAt         *time.Time          `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
	IsDeleted        bool                `bson:"is_deleted" json:"is_deleted"`
	DeletedAt        *time.Time          `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	ReadBy           []ReadReceipt       `bson:"read_by" json:"read_by"`
	Mentions         []string            `bson:"mentions,omitempty" json:"mentions,omitempty"`
	Reactions        []Reaction          `bson:"reactions,omitempty" json:"reactions,omitempty"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updated_at"`
}

// FileMeta references an uploaded file; storage mechanics live elsewhere.
type FileMeta struct {
	Name     string `bson:"name" json:"name"`
	Size     int64  `bson:"size" json:"size"`
	MimeType string `bson:"mime_type" json:"mime_type"`
	URL      string `bson:"url" json:"url"`
}

// ReadReceipt records one reader of a message. A message's read_by list
// never contains two entries for the same user.
type ReadReceipt struct {
	UserID   string    `bson:"user_id" json:"user_id"`
	UserName string    `bson:"user_name" json:"user_name"`
	ReadAt   time.Time `bson:"read_at" json:"read_at"`
}

type Reaction struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Emoji     string    `bson:"emoji" json:"emoji"`
	ReactedAt time.Time `bson:"reacted_at" json:"reacted_at"`
}

// Mutable checks whether userID may edit or delete the message. The
// missing-vs-forbidden distinction is deliberately collapsed; only the
// author ever learns a message is tombstoned.
func (m *Message) Mutable(userID string) error {
	if m == nil || m.SenderID != userID {
		return ErrNotFoundOrForbidden
	}
	if m.IsDeleted {
		return ErrAlreadyDeleted
	}
	return nil
}

// ReadByUser reports whether userID already has a read receipt.
func (m *Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// MessageWithMeta is a message annotated for one caller's view.
type MessageWithMeta struct {
	*Message
	IsOwnMessage bool          `json:"is_own_message"`
	ReplyPreview *ReplyPreview `json:"reply_preview,omitempty"`
}

// ReplyPreview is the best-effort excerpt of a reply target. A missing
// target degrades to no preview rather than failing the read.
type ReplyPreview struct {
	MessageID  primitive.ObjectID `json:"message_id"`
	Content    string             `json:"content"`
	SenderID   string             `json:"sender_id"`
	SenderName string             `json:"sender_name"`
	IsDeleted  bool               `json:"is_deleted"`
}
