package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/facilityhub/dept-chat/internal/config"
	"github.com/facilityhub/dept-chat/internal/events"
	"github.com/facilityhub/dept-chat/internal/models"
)

// In-memory stand-ins for the Mongo repositories, mirroring their filter
// and upsert semantics so usecase tests exercise the real invariants.

type fakeChatRepo struct {
	mu    sync.Mutex
	chats map[primitive.ObjectID]*models.Chat
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{chats: make(map[primitive.ObjectID]*models.Chat)}
}

func cloneChat(c *models.Chat) *models.Chat {
	out := *c
	out.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	if c.LastMessage != nil {
		last := *c.LastMessage
		out.LastMessage = &last
	}
	return &out
}

func (r *fakeChatRepo) Create(ctx context.Context, chat *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	chat.ID = primitive.NewObjectID()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	chat.LastActivity = now
	r.chats[chat.ID] = cloneChat(chat)
	return nil
}

func (r *fakeChatRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneChat(chat), nil
}

func (r *fakeChatRepo) GetActiveDepartmentChat(ctx context.Context, department string) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chat := range r.chats {
		if chat.Type == models.ChatTypeDepartment && chat.IsActive && chat.Department == department {
			return cloneChat(chat), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeChatRepo) EnsureDepartmentChat(ctx context.Context, chat *models.Chat) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.chats {
		if existing.Type == models.ChatTypeDepartment && existing.IsActive && existing.Department == chat.Department {
			return cloneChat(existing), nil
		}
	}
	now := time.Now()
	chat.ID = primitive.NewObjectID()
	chat.IsActive = true
	chat.LastActivity = now
	chat.CreatedAt = now
	chat.UpdatedAt = now
	r.chats[chat.ID] = cloneChat(chat)
	return cloneChat(chat), nil
}

func (r *fakeChatRepo) ListUserChats(ctx context.Context, userID, department string, limit, skip int64, search string) ([]*models.Chat, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*models.Chat
	needle := strings.ToLower(search)
	for _, chat := range r.chats {
		if !chat.IsActive || chat.Department != department {
			continue
		}
		member := false
		for _, id := range chat.ParticipantIDs {
			if id == userID {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(chat.Name), needle) &&
			!strings.Contains(strings.ToLower(chat.Description), needle) {
			continue
		}
		matched = append(matched, cloneChat(chat))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].LastActivity.After(matched[j].LastActivity)
	})
	total := int64(len(matched))
	if skip >= total {
		return nil, total, nil
	}
	matched = matched[skip:]
	if int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeChatRepo) AddParticipantID(ctx context.Context, chatID primitive.ObjectID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatID]
	if !ok {
		return models.ErrNotFound
	}
	for _, id := range chat.ParticipantIDs {
		if id == userID {
			return nil
		}
	}
	chat.ParticipantIDs = append(chat.ParticipantIDs, userID)
	return nil
}

func (r *fakeChatRepo) RemoveParticipantID(ctx context.Context, chatID primitive.ObjectID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatID]
	if !ok {
		return models.ErrNotFound
	}
	kept := chat.ParticipantIDs[:0]
	for _, id := range chat.ParticipantIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	chat.ParticipantIDs = kept
	return nil
}

func (r *fakeChatRepo) UpdateLastMessage(ctx context.Context, chatID primitive.ObjectID, last *models.LastMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatID]
	if !ok || !chat.LastActivity.Before(last.SentAt) {
		return nil
	}
	snapshot := *last
	chat.LastMessage = &snapshot
	chat.LastActivity = last.SentAt
	chat.UpdatedAt = last.SentAt
	return nil
}

func (r *fakeChatRepo) Deactivate(ctx context.Context, chatID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatID]
	if !ok {
		return models.ErrNotFound
	}
	chat.IsActive = false
	return nil
}

type fakeParticipantRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{rows: make(map[string]*models.Participant)}
}

func participantKey(chatID primitive.ObjectID, userID string) string {
	return chatID.Hex() + "/" + userID
}

func cloneParticipant(p *models.Participant) *models.Participant {
	out := *p
	if p.LeftAt != nil {
		left := *p.LeftAt
		out.LeftAt = &left
	}
	return &out
}

func (r *fakeParticipantRepo) Ensure(ctx context.Context, p *models.Participant) (*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	key := participantKey(p.ChatID, p.UserID)
	if existing, ok := r.rows[key]; ok {
		existing.UserName = p.UserName
		existing.UserEmail = p.UserEmail
		existing.Department = p.Department
		existing.IsActive = true
		existing.LeftAt = nil
		existing.UpdatedAt = now
		return cloneParticipant(existing), nil
	}
	row := &models.Participant{
		ID:         primitive.NewObjectID(),
		ChatID:     p.ChatID,
		UserID:     p.UserID,
		UserName:   p.UserName,
		UserEmail:  p.UserEmail,
		Department: p.Department,
		Role:       p.Role,
		JoinedAt:   now,
		LastSeenAt: now,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.rows[key] = row
	return cloneParticipant(row), nil
}

func (r *fakeParticipantRepo) GetActive(ctx context.Context, chatID primitive.ObjectID, userID string) (*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[participantKey(chatID, userID)]
	if !ok || !row.IsActive {
		return nil, models.ErrNotFound
	}
	return cloneParticipant(row), nil
}

func (r *fakeParticipantRepo) ListActive(ctx context.Context, chatID primitive.ObjectID) ([]*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Participant
	for _, row := range r.rows {
		if row.ChatID == chatID && row.IsActive {
			out = append(out, cloneParticipant(row))
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) MarkSeen(ctx context.Context, chatID primitive.ObjectID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[participantKey(chatID, userID)]; ok && row.IsActive {
		row.LastSeenAt = at
		row.UpdatedAt = at
	}
	return nil
}

func (r *fakeParticipantRepo) MarkSeenAll(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID && row.IsActive {
			row.LastSeenAt = at
			row.UpdatedAt = at
		}
	}
	return nil
}

func (r *fakeParticipantRepo) MarkRead(ctx context.Context, chatID primitive.ObjectID, userID string, cutoff, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[participantKey(chatID, userID)]
	if !ok || !row.IsActive {
		return models.ErrNotFound
	}
	row.LastMessageReadAt = cutoff
	row.LastSeenAt = at
	row.UpdatedAt = at
	return nil
}

func (r *fakeParticipantRepo) Deactivate(ctx context.Context, chatID primitive.ObjectID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[participantKey(chatID, userID)]
	if !ok || !row.IsActive {
		return models.ErrNotFound
	}
	row.IsActive = false
	left := at
	row.LeftAt = &left
	row.UpdatedAt = at
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	seq      int
	messages []*models.Message
	order    map[primitive.ObjectID]int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{order: make(map[primitive.ObjectID]int)}
}

func cloneMessage(m *models.Message) *models.Message {
	out := *m
	out.ReadBy = append([]models.ReadReceipt(nil), m.ReadBy...)
	out.Mentions = append([]string(nil), m.Mentions...)
	if m.ReplyTo != nil {
		id := *m.ReplyTo
		out.ReplyTo = &id
	}
	if m.EditedAt != nil {
		at := *m.EditedAt
		out.EditedAt = &at
	}
	if m.DeletedAt != nil {
		at := *m.DeletedAt
		out.DeletedAt = &at
	}
	return &out
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	message.ID = primitive.NewObjectID()
	message.CreatedAt = now
	message.UpdatedAt = now
	r.seq++
	r.order[message.ID] = r.seq
	r.messages = append(r.messages, cloneMessage(message))
	return nil
}

func (r *fakeMessageRepo) find(id primitive.ObjectID) *models.Message {
	for _, m := range r.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.find(id)
	if m == nil {
		return nil, models.ErrNotFound
	}
	return cloneMessage(m), nil
}

func (r *fakeMessageRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, id := range ids {
		if m := r.find(id); m != nil {
			out = append(out, cloneMessage(m))
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) ListChatMessages(ctx context.Context, chatID primitive.ObjectID, limit, skip int64, before *time.Time) ([]*models.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*models.Message
	for _, m := range r.messages {
		if m.ChatID != chatID || m.IsDeleted {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		matched = append(matched, cloneMessage(m))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return r.order[matched[i].ID] > r.order[matched[j].ID]
	})
	total := int64(len(matched))
	if skip >= total {
		return nil, total, nil
	}
	matched = matched[skip:]
	if int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeMessageRepo) SetContent(ctx context.Context, id primitive.ObjectID, senderID, content string, at time.Time) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.find(id)
	if m == nil || m.SenderID != senderID || m.IsDeleted {
		return nil, models.ErrNotFound
	}
	m.Content = content
	m.IsEdited = true
	edited := at
	m.EditedAt = &edited
	m.UpdatedAt = at
	return cloneMessage(m), nil
}

func (r *fakeMessageRepo) SoftDelete(ctx context.Context, id primitive.ObjectID, senderID string, at time.Time) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.find(id)
	if m == nil || m.SenderID != senderID || m.IsDeleted {
		return nil, models.ErrNotFound
	}
	m.Content = models.DeletedContent
	m.IsDeleted = true
	deleted := at
	m.DeletedAt = &deleted
	m.UpdatedAt = at
	return cloneMessage(m), nil
}

func (r *fakeMessageRepo) AppendReadReceipts(ctx context.Context, chatID primitive.ObjectID, receipt models.ReadReceipt, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var modified int64
	for _, m := range r.messages {
		if m.ChatID != chatID || m.SenderID == receipt.UserID || m.CreatedAt.After(cutoff) {
			continue
		}
		if m.ReadByUser(receipt.UserID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, receipt)
		modified++
	}
	return modified, nil
}

func (r *fakeMessageRepo) CountUnread(ctx context.Context, chatID primitive.ObjectID, userID string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.messages {
		if m.ChatID == chatID && !m.IsDeleted && m.SenderID != userID && m.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

type fakeDirectory struct {
	employees []*models.Employee
}

func (d *fakeDirectory) ListActiveByDepartment(ctx context.Context, department string) ([]*models.Employee, error) {
	var out []*models.Employee
	for _, e := range d.employees {
		if e.IsActive && e.Department == department {
			out = append(out, e)
		}
	}
	return out, nil
}

func (d *fakeDirectory) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Employee, error) {
	var out []*models.Employee
	for _, id := range ids {
		for _, e := range d.employees {
			if e.ID == id {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) patterns() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Pattern)
	}
	return out
}

type fixture struct {
	uc           MessagingUsecase
	chats        *fakeChatRepo
	participants *fakeParticipantRepo
	messages     *fakeMessageRepo
	directory    *fakeDirectory
	publisher    *fakePublisher
}

func newFixture(employees ...*models.Employee) *fixture {
	f := &fixture{
		chats:        newFakeChatRepo(),
		participants: newFakeParticipantRepo(),
		messages:     newFakeMessageRepo(),
		directory:    &fakeDirectory{employees: employees},
		publisher:    &fakePublisher{},
	}
	cfg := &config.Config{
		Chat: config.ChatConfig{
			PresenceWindow:  5 * time.Minute,
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
	f.uc = NewMessagingUsecase(cfg, f.chats, f.participants, f.messages, f.directory, f.publisher)
	return f
}

func identityOf(e *models.Employee) models.Identity {
	return models.Identity{
		ID:         e.ID.Hex(),
		Name:       e.Name,
		Email:      e.Email,
		Department: e.Department,
		Role:       e.Role,
	}
}

func employee(name, department string) *models.Employee {
	return &models.Employee{
		ID:         primitive.NewObjectID(),
		Name:       name,
		Email:      strings.ToLower(name) + "@facilityhub.test",
		Department: department,
		Role:       "staff",
		IsActive:   true,
	}
}
