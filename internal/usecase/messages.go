package usecase

import (
	"context"
	"errors"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/facilityhub/dept-chat/internal/events"
	"github.com/facilityhub/dept-chat/internal/models"
)

func (uc *messagingUsecase) ListMessages(ctx context.Context, caller models.Identity, chatID primitive.ObjectID, params ListMessagesParams) ([]*models.MessageWithMeta, *Pagination, error) {
	if !caller.Valid() {
		return nil, nil, models.ErrUnauthorized
	}
	if _, err := uc.requireParticipant(ctx, chatID, caller.ID); err != nil {
		return nil, nil, err
	}
	page, limit, skip := uc.normalizePage(params.Page, params.Limit)

	var before *time.Time
	if params.Before != "" {
		t, err := time.Parse(time.RFC3339, params.Before)
		if err != nil {
			return nil, nil, models.ValidationError("before must be an RFC 3339 timestamp")
		}
		before = &t
	}

	// Pagination walks backward through history (newest-first), but each
	// page is served oldest-first so it reads top to bottom.
	messages, total, err := uc.messageRepo.ListChatMessages(ctx, chatID, int64(limit), skip, before)
	if err != nil {
		return nil, nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	views, err := uc.annotateMessages(ctx, messages, caller)
	if err != nil {
		return nil, nil, err
	}

	if err := uc.participantRepo.MarkSeen(ctx, chatID, caller.ID, time.Now()); err != nil {
		log.Warnw(ctx, "failed to update last seen", "chat_id", chatID.Hex(), "error", err)
	}
	return views, newPagination(page, limit, total), nil
}

func (uc *messagingUsecase) SendMessage(ctx context.Context, caller models.Identity, chatID primitive.ObjectID, params SendMessageParams) (*models.MessageWithMeta, error) {
	if !caller.Valid() {
		return nil, models.ErrUnauthorized
	}
	if _, err := uc.requireParticipant(ctx, chatID, caller.ID); err != nil {
		return nil, err
	}
	if err := uc.validate.Validate(params); err != nil {
		return nil, err
	}

	messageType := params.Type
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	var replyTo *primitive.ObjectID
	var replyPreview *models.ReplyPreview
	if params.ReplyTo != "" {
		target, err := uc.resolveReplyTarget(ctx, chatID, params.ReplyTo)
		if err != nil {
			return nil, err
		}
		replyTo = &target.ID
		replyPreview = previewOf(target)
	}

	now := time.Now()
	message := &models.Message{
		ChatID:           chatID,
		SenderID:         caller.ID,
		SenderName:       caller.Name,
		SenderDepartment: caller.Department,
		Content:          params.Content,
		Type:             messageType,
		File:             params.File,
		ReplyTo:          replyTo,
		Mentions:         params.Mentions,
		// A sender's own message counts as read by them from the start.
		ReadBy: []models.ReadReceipt{{
			UserID:   caller.ID,
			UserName: caller.Name,
			ReadAt:   now,
		}},
	}
	if err := uc.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	if err := uc.chatRepo.UpdateLastMessage(ctx, chatID, &models.LastMessage{
		MessageID:  message.ID,
		Content:    message.Content,
		SenderID:   message.SenderID,
		SenderName: message.SenderName,
		SentAt:     message.CreatedAt,
		Type:       message.Type,
	}); err != nil {
		log.Warnw(ctx, "failed to refresh last-message cache", "chat_id", chatID.Hex(), "error", err)
	}

	if err := uc.participantRepo.MarkSeen(ctx, chatID, caller.ID, message.CreatedAt); err != nil {
		log.Warnw(ctx, "failed to update last seen", "chat_id", chatID.Hex(), "error", err)
	}

	uc.publish(ctx, events.Event{
		Pattern:   events.PatternMessageSent,
		ChatID:    chatID.Hex(),
		MessageID: message.ID.Hex(),
		UserID:    caller.ID,
		At:        message.CreatedAt,
		Data: map[string]any{
			"type":     string(message.Type),
			"mentions": message.Mentions,
		},
	})

	return &models.MessageWithMeta{
		Message:      message,
		IsOwnMessage: true,
		ReplyPreview: replyPreview,
	}, nil
}

func (uc *messagingUsecase) EditMessage(ctx context.Context, caller models.Identity, messageID primitive.ObjectID, params EditMessageParams) (*models.MessageWithMeta, error) {
	if !caller.Valid() {
		return nil, models.ErrUnauthorized
	}
	if err := uc.validate.Validate(params); err != nil {
		return nil, err
	}

	message, err := uc.getMutable(ctx, messageID, caller.ID)
	if err != nil {
		return nil, err
	}

	updated, err := uc.messageRepo.SetContent(ctx, messageID, caller.ID, params.Content, time.Now())
	if errors.Is(err, models.ErrNotFound) {
		// Deleted between the check and the update.
		return nil, models.ErrAlreadyDeleted
	}
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, events.Event{
		Pattern:   events.PatternMessageEdited,
		ChatID:    message.ChatID.Hex(),
		MessageID: messageID.Hex(),
		UserID:    caller.ID,
		At:        *updated.EditedAt,
	})
	return &models.MessageWithMeta{Message: updated, IsOwnMessage: true}, nil
}

func (uc *messagingUsecase) DeleteMessage(ctx context.Context, caller models.Identity, messageID primitive.ObjectID) (*models.MessageWithMeta, error) {
	if !caller.Valid() {
		return nil, models.ErrUnauthorized
	}

	message, err := uc.getMutable(ctx, messageID, caller.ID)
	if err != nil {
		return nil, err
	}

	deleted, err := uc.messageRepo.SoftDelete(ctx, messageID, caller.ID, time.Now())
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrAlreadyDeleted
	}
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, events.Event{
		Pattern:   events.PatternMessageDeleted,
		ChatID:    message.ChatID.Hex(),
		MessageID: messageID.Hex(),
		UserID:    caller.ID,
		At:        *deleted.DeletedAt,
	})
	return &models.MessageWithMeta{Message: deleted, IsOwnMessage: true}, nil
}

// MarkChatRead moves the caller's read cutoff and appends read receipts
// with the same cutoff, so the unread count and the per-message receipt
// views can never disagree.
func (uc *messagingUsecase) MarkChatRead(ctx context.Context, caller models.Identity, chatID primitive.ObjectID, params MarkReadParams) error {
	if !caller.Valid() {
		return models.ErrUnauthorized
	}
	if _, err := uc.requireParticipant(ctx, chatID, caller.ID); err != nil {
		return err
	}
	if err := uc.validate.Validate(params); err != nil {
		return err
	}

	now := time.Now()
	cutoff := now
	if params.LastMessageID != "" {
		id, err := primitive.ObjectIDFromHex(params.LastMessageID)
		if err != nil {
			return models.ValidationError("invalid last message id")
		}
		message, err := uc.messageRepo.GetByID(ctx, id)
		if err != nil || message.ChatID != chatID {
			return models.ValidationError("last message not found in this chat")
		}
		cutoff = message.CreatedAt
	}

	if err := uc.participantRepo.MarkRead(ctx, chatID, caller.ID, cutoff, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrAccessDenied
		}
		return err
	}
	if _, err := uc.messageRepo.AppendReadReceipts(ctx, chatID, models.ReadReceipt{
		UserID:   caller.ID,
		UserName: caller.Name,
		ReadAt:   now,
	}, cutoff); err != nil {
		return err
	}

	uc.publish(ctx, events.Event{
		Pattern: events.PatternChatRead,
		ChatID:  chatID.Hex(),
		UserID:  caller.ID,
		At:      now,
	})
	return nil
}

// getMutable loads a message and applies the ownership and tombstone
// checks before any mutation; nothing is written when they fail.
func (uc *messagingUsecase) getMutable(ctx context.Context, messageID primitive.ObjectID, userID string) (*models.Message, error) {
	message, err := uc.messageRepo.GetByID(ctx, messageID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrNotFoundOrForbidden
	}
	if err != nil {
		return nil, err
	}
	if err := message.Mutable(userID); err != nil {
		return nil, err
	}
	return message, nil
}

func (uc *messagingUsecase) resolveReplyTarget(ctx context.Context, chatID primitive.ObjectID, replyTo string) (*models.Message, error) {
	id, err := primitive.ObjectIDFromHex(replyTo)
	if err != nil {
		return nil, models.ValidationError("invalid reply target id")
	}
	target, err := uc.messageRepo.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ValidationError("reply target not found in this chat")
	}
	if err != nil {
		return nil, err
	}
	if target.ChatID != chatID {
		return nil, models.ValidationError("reply target not found in this chat")
	}
	return target, nil
}

// annotateMessages decorates a page with ownership flags and best-effort
// reply previews; an unresolvable target drops the preview, not the page.
func (uc *messagingUsecase) annotateMessages(ctx context.Context, messages []*models.Message, caller models.Identity) ([]*models.MessageWithMeta, error) {
	replyIDs := make([]primitive.ObjectID, 0)
	seen := make(map[primitive.ObjectID]bool)
	for _, m := range messages {
		if m.ReplyTo != nil && !seen[*m.ReplyTo] {
			seen[*m.ReplyTo] = true
			replyIDs = append(replyIDs, *m.ReplyTo)
		}
	}

	targets := make(map[primitive.ObjectID]*models.Message, len(replyIDs))
	if len(replyIDs) > 0 {
		resolved, err := uc.messageRepo.GetByIDs(ctx, replyIDs)
		if err != nil {
			log.Warnw(ctx, "failed to resolve reply targets", "error", err)
		} else {
			for _, t := range resolved {
				targets[t.ID] = t
			}
		}
	}

	views := make([]*models.MessageWithMeta, 0, len(messages))
	for _, m := range messages {
		view := &models.MessageWithMeta{
			Message:      m,
			IsOwnMessage: m.SenderID == caller.ID,
		}
		if m.ReplyTo != nil {
			if target, ok := targets[*m.ReplyTo]; ok {
				view.ReplyPreview = previewOf(target)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// previewOf excerpts a reply target. A tombstoned target already carries
// the placeholder content, so deleted originals stay unrecoverable.
func previewOf(target *models.Message) *models.ReplyPreview {
	return &models.ReplyPreview{
		MessageID:  target.ID,
		Content:    target.Content,
		SenderID:   target.SenderID,
		SenderName: target.SenderName,
		IsDeleted:  target.IsDeleted,
	}
}
