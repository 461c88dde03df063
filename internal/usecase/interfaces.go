package usecase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/facilityhub/dept-chat/internal/models"
)

// MessagingUsecase orchestrates the chat directory, participant registry
// and message store. It is the only layer with cross-entity invariants;
// every method checks caller identity and membership before mutating.
type MessagingUsecase interface {
	GetOrCreateDepartmentChat(ctx context.Context, caller models.Identity) (*models.ChatWithParticipants, error)
	CreateChat(ctx context.Context, caller models.Identity, params CreateChatParams) (*models.ChatWithParticipants, error)
	ListChats(ctx context.Context, caller models.Identity, params ListChatsParams) ([]*models.ChatWithMeta, *Pagination, error)
	GetChat(ctx context.Context, caller models.Identity, chatID primitive.ObjectID) (*models.ChatWithMeta, error)
	LeaveChat(ctx context.Context, caller models.Identity, chatID primitive.ObjectID) error

	ListMessages(ctx context.Context, caller models.Identity, chatID primitive.ObjectID, params ListMessagesParams) ([]*models.MessageWithMeta, *Pagination, error)
	SendMessage(ctx context.Context, caller models.Identity, chatID primitive.ObjectID, params SendMessageParams) (*models.MessageWithMeta, error)
	EditMessage(ctx context.Context, caller models.Identity, messageID primitive.ObjectID, params EditMessageParams) (*models.MessageWithMeta, error)
	DeleteMessage(ctx context.Context, caller models.Identity, messageID primitive.ObjectID) (*models.MessageWithMeta, error)

	MarkChatRead(ctx context.Context, caller models.Identity, chatID primitive.ObjectID, params MarkReadParams) error
	ListParticipants(ctx context.Context, caller models.Identity, chatID primitive.ObjectID) ([]*models.ParticipantWithMeta, error)
	UpdatePresence(ctx context.Context, caller models.Identity) error
}

type ListChatsParams struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search" validate:"omitempty,max=100"`
}

type CreateChatParams struct {
	Name        string          `json:"name" validate:"required_if=Type group,omitempty,min=1,max=100"`
	Description string          `json:"description" validate:"max=500"`
	Type        models.ChatType `json:"type" validate:"required,oneof=group direct"`
	MemberIDs   []string        `json:"member_ids" validate:"required,min=1,dive,mongodb"`
}

type ListMessagesParams struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Before string `query:"before" validate:"omitempty"` // RFC 3339
}

type SendMessageParams struct {
	Content  string             `json:"content" validate:"required,min=1,max=5000"`
	Type     models.MessageType `json:"type" validate:"omitempty,oneof=text file image"`
	ReplyTo  string             `json:"reply_to" validate:"omitempty,mongodb"`
	Mentions []string           `json:"mentions" validate:"omitempty,dive,mongodb"`
	File     *models.FileMeta   `json:"file,omitempty"`
}

type EditMessageParams struct {
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

type MarkReadParams struct {
	LastMessageID string `json:"last_message_id" validate:"omitempty,mongodb"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func newPagination(page, limit int, total int64) *Pagination {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return &Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
	}
}
