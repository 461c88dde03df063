package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/facilityhub/dept-chat/internal/config"
	"github.com/facilityhub/dept-chat/internal/events"
	"github.com/facilityhub/dept-chat/internal/models"
	"github.com/facilityhub/dept-chat/internal/repo/mongodb"
	"github.com/facilityhub/dept-chat/pkg/util"
	"github.com/facilityhub/dept-chat/pkg/validator"
)

type messagingUsecase struct {
	chatRepo        mongodb.ChatRepository
	participantRepo mongodb.ParticipantRepository
	messageRepo     mongodb.MessageRepository
	directory       mongodb.EmployeeDirectory
	publisher       events.Publisher
	validate        *validator.Validator
	chatConfig      config.ChatConfig
}

func NewMessagingUsecase(
	cfg *config.Config,
	chatRepo mongodb.ChatRepository,
	participantRepo mongodb.ParticipantRepository,
	messageRepo mongodb.MessageRepository,
	directory mongodb.EmployeeDirectory,
	publisher events.Publisher,
) MessagingUsecase {
	return &messagingUsecase{
		chatRepo:        chatRepo,
		participantRepo: participantRepo,
		messageRepo:     messageRepo,
		directory:       directory,
		publisher:       publisher,
		validate:        validator.New(),
		chatConfig:      cfg.Chat,
	}
}

func (uc *messagingUsecase) GetOrCreateDepartmentChat(ctx context.Context, caller models.Identity) (*models.ChatWithParticipants, error) {
	if !caller.Valid() {
		return nil, models.ErrUnauthorized
	}

	chat, err := uc.chatRepo.GetActiveDepartmentChat(ctx, caller.Department)
	switch {
	case errors.Is(err, models.ErrNotFound):
		chat, err = uc.provisionDepartmentChat(ctx, caller)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := uc.ensureCallerMembership(ctx, chat, caller); err != nil {
			return nil, err
		}
	}

	participants, err := uc.ListParticipants(ctx, caller, chat.ID)
	if err != nil {
		return nil, err
	}
	return &models.ChatWithParticipants{Chat: chat, Participants: participants}, nil
}

// provisionDepartmentChat creates the single department room and enrolls
// every active department employee, the requester as admin. The upsert in
// EnsureDepartmentChat makes concurrent first-accesses converge on one
// room; membership rows are idempotent, so a losing racer re-ensuring them
// is harmless.
func (uc *messagingUsecase) provisionDepartmentChat(ctx context.Context, caller models.Identity) (*models.Chat, error) {
	employees, err := uc.directory.ListActiveByDepartment(ctx, caller.Department)
	if err != nil {
		return nil, fmt.Errorf("list department employees: %w", err)
	}

	participantIDs := util.ConvertList(employees, func(e *models.Employee) string {
		return e.ID.Hex()
	})
	if !util.SliceIncludes(participantIDs, caller.ID) {
		participantIDs = append(participantIDs, caller.ID)
	}

	chat, err := uc.chatRepo.EnsureDepartmentChat(ctx, &models.Chat{
		Department:     caller.Department,
		Name:           fmt.Sprintf("%s Department", caller.Department),
		Description:    fmt.Sprintf("Department chat for %s", caller.Department),
		Type:           models.ChatTypeDepartment,
		ParticipantIDs: participantIDs,
		CreatedBy:      caller.ID,
	})
	if err != nil {
		return nil, err
	}

	for _, e := range employees {
		role := models.RoleMember
		if e.ID.Hex() == chat.CreatedBy {
			role = models.RoleAdmin
		}
		if _, err := uc.participantRepo.Ensure(ctx, &models.Participant{
			ChatID:     chat.ID,
			UserID:     e.ID.Hex(),
			UserName:   e.Name,
			UserEmail:  e.Email,
			Department: e.Department,
			Role:       role,
		}); err != nil {
			return nil, fmt.Errorf("enroll employee %s: %w", e.ID.Hex(), err)
		}
	}

	// The requester may not be in the directory snapshot yet.
	if err := uc.ensureCallerMembership(ctx, chat, caller); err != nil {
		return nil, err
	}
	return chat, nil
}

func (uc *messagingUsecase) ensureCallerMembership(ctx context.Context, chat *models.Chat, caller models.Identity) error {
	_, err := uc.participantRepo.GetActive(ctx, chat.ID, caller.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	role := models.RoleMember
	if chat.CreatedBy == caller.ID {
		role = models.RoleAdmin
	}
	if _, err := uc.participantRepo.Ensure(ctx, &models.Participant{
		ChatID:     chat.ID,
		UserID:     caller.ID,
		UserName:   caller.Name,
		UserEmail:  caller.Email,
		Department: caller.Department,
		Role:       role,
	}); err != nil {
		return err
	}
	if err := uc.chatRepo.AddParticipantID(ctx, chat.ID, caller.ID); err != nil {
		return err
	}
	if !util.SliceIncludes(chat.ParticipantIDs, caller.ID) {
		chat.ParticipantIDs = append(chat.ParticipantIDs, caller.ID)
	}
	return nil
}

func (uc *messagingUsecase) CreateChat(ctx context.Context, caller models.Identity, params CreateChatParams) (*models.ChatWithParticipants, error) {
	if !caller.Valid() {
		return nil, models.ErrUnauthorized
	}
	if err := uc.validate.Validate(params); err != nil {
		return nil, err
	}
	if params.Type == models.ChatTypeDirect && len(params.MemberIDs) != 1 {
		return nil, models.ValidationError("a direct chat needs exactly one other member")
	}

	memberIDs := make([]primitive.ObjectID, 0, len(params.MemberIDs))
	for _, id := range params.MemberIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, models.ValidationError("invalid member id %q", id)
		}
		memberIDs = append(memberIDs, oid)
	}

	members, err := uc.directory.GetByIDs(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve members: %w", err)
	}
	if len(members) != len(memberIDs) {
		return nil, models.ValidationError("one or more members do not exist")
	}
	for _, m := range members {
		if !m.IsActive || m.Department != caller.Department {
			return nil, models.ValidationError("members must be active employees of your department")
		}
	}

	participantIDs := []string{caller.ID}
	for _, m := range members {
		if !util.SliceIncludes(participantIDs, m.ID.Hex()) {
			participantIDs = append(participantIDs, m.ID.Hex())
		}
	}

	chat := &models.Chat{
		Department:     caller.Department,
		Name:           params.Name,
		Description:    params.Description,
		Type:           params.Type,
		ParticipantIDs: participantIDs,
		IsActive:       true,
		CreatedBy:      caller.ID,
	}
	if err := uc.chatRepo.Create(ctx, chat); err != nil {
		return nil, err
	}

	if _, err := uc.participantRepo.Ensure(ctx, &models.Participant{
		ChatID:     chat.ID,
		UserID:     caller.ID,
		UserName:   caller.Name,
		UserEmail:  caller.Email,
		Department: caller.Department,
		Role:       models.RoleAdmin,
	}); err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.ID.Hex() == caller.ID {
			continue
		}
		if _, err := uc.participantRepo.Ensure(ctx, &models.Participant{
			ChatID:     chat.ID,
			UserID:     m.ID.Hex(),
			UserName:   m.Name,
			UserEmail:  m.Email,
			Department: m.Department,
			Role:       models.RoleMember,
		}); err != nil {
			return nil, err
		}
	}

	participants, err := uc.ListParticipants(ctx, caller, chat.ID)
	if err != nil {
		return nil, err
	}
	return &models.ChatWithParticipants{Chat: chat, Participants: participants}, nil
}

func (uc *messagingUsecase) ListChats(ctx context.Context, caller models.Identity, params ListChatsParams) ([]*models.ChatWithMeta, *Pagination, error) {
	if !caller.Valid() {
		return nil, nil, models.ErrUnauthorized
	}
	if err := uc.validate.Validate(params); err != nil {
		return nil, nil, err
	}
	page, limit, skip := uc.normalizePage(params.Page, params.Limit)

	chats, total, err := uc.chatRepo.ListUserChats(ctx, caller.ID, caller.Department, int64(limit), skip, params.Search)
	if err != nil {
		return nil, nil, err
	}

	annotated := make([]*models.ChatWithMeta, 0, len(chats))
	for _, chat := range chats {
		meta := &models.ChatWithMeta{Chat: chat}
		unread, err := uc.unreadCount(ctx, chat.ID, caller.ID)
		if err != nil {
			return nil, nil, err
		}
		meta.UnreadCount = unread
		annotated = append(annotated, meta)
	}
	return annotated, newPagination(page, limit, total), nil
}

func (uc *messagingUsecase) GetChat(ctx context.Context, caller models.Identity, chatID primitive.ObjectID) (*models.ChatWithMeta, error) {
	if !caller.Valid() {
		return nil, models.ErrUnauthorized
	}
	if _, err := uc.requireParticipant(ctx, chatID, caller.ID); err != nil {
		return nil, err
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrAccessDenied
		}
		return nil, err
	}
	unread, err := uc.unreadCount(ctx, chatID, caller.ID)
	if err != nil {
		return nil, err
	}
	return &models.ChatWithMeta{Chat: chat, UnreadCount: unread}, nil
}

func (uc *messagingUsecase) LeaveChat(ctx context.Context, caller models.Identity, chatID primitive.ObjectID) error {
	if !caller.Valid() {
		return models.ErrUnauthorized
	}
	if _, err := uc.requireParticipant(ctx, chatID, caller.ID); err != nil {
		return err
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.Type == models.ChatTypeDepartment {
		return models.ValidationError("department chats cannot be left")
	}

	now := time.Now()
	if err := uc.participantRepo.Deactivate(ctx, chatID, caller.ID, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrAccessDenied
		}
		return err
	}
	return uc.chatRepo.RemoveParticipantID(ctx, chatID, caller.ID)
}

func (uc *messagingUsecase) ListParticipants(ctx context.Context, caller models.Identity, chatID primitive.ObjectID) ([]*models.ParticipantWithMeta, error) {
	if !caller.Valid() {
		return nil, models.ErrUnauthorized
	}
	if _, err := uc.requireParticipant(ctx, chatID, caller.ID); err != nil {
		return nil, err
	}

	participants, err := uc.participantRepo.ListActive(ctx, chatID)
	if err != nil {
		return nil, err
	}
	sort.Slice(participants, func(i, j int) bool {
		if participants[i].Role.Rank() != participants[j].Role.Rank() {
			return participants[i].Role.Rank() < participants[j].Role.Rank()
		}
		return participants[i].UserName < participants[j].UserName
	})

	now := time.Now()
	return util.ConvertList(participants, func(p *models.Participant) *models.ParticipantWithMeta {
		return &models.ParticipantWithMeta{
			Participant: p,
			IsOnline:    p.Online(now, uc.chatConfig.PresenceWindow),
		}
	}), nil
}

func (uc *messagingUsecase) UpdatePresence(ctx context.Context, caller models.Identity) error {
	if !caller.Valid() {
		return models.ErrUnauthorized
	}
	return uc.participantRepo.MarkSeenAll(ctx, caller.ID, time.Now())
}

// requireParticipant gates every chat-scoped operation. A missing chat and
// a missing membership both come back as AccessDenied so outsiders cannot
// probe which chats exist.
func (uc *messagingUsecase) requireParticipant(ctx context.Context, chatID primitive.ObjectID, userID string) (*models.Participant, error) {
	p, err := uc.participantRepo.GetActive(ctx, chatID, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// unreadCount is derived on every read rather than stored, so it cannot
// drift: messages newer than the participant's read cutoff, sent by
// someone else and not deleted.
func (uc *messagingUsecase) unreadCount(ctx context.Context, chatID primitive.ObjectID, userID string) (int64, error) {
	p, err := uc.participantRepo.GetActive(ctx, chatID, userID)
	if errors.Is(err, models.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uc.messageRepo.CountUnread(ctx, chatID, userID, p.LastMessageReadAt)
}

func (uc *messagingUsecase) normalizePage(page, limit int) (int, int, int64) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = uc.chatConfig.DefaultPageSize
	}
	if limit > uc.chatConfig.MaxPageSize {
		limit = uc.chatConfig.MaxPageSize
	}
	return page, limit, int64(page-1) * int64(limit)
}

func (uc *messagingUsecase) publish(ctx context.Context, event events.Event) {
	if uc.publisher == nil {
		return
	}
	uc.publisher.Publish(ctx, event)
	log.Debugw(ctx, "chat event emitted", "pattern", event.Pattern, "chat_id", event.ChatID)
}
