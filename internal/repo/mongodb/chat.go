package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/facilityhub/dept-chat/internal/models"
)

const chatsCollection = "chats"

type ChatRepository interface {
	Create(ctx context.Context, chat *models.Chat) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	GetActiveDepartmentChat(ctx context.Context, department string) (*models.Chat, error)
	EnsureDepartmentChat(ctx context.Context, chat *models.Chat) (*models.Chat, error)
	ListUserChats(ctx context.Context, userID, department string, limit, skip int64, search string) ([]*models.Chat, int64, error)
	AddParticipantID(ctx context.Context, chatID primitive.ObjectID, userID string) error
	RemoveParticipantID(ctx context.Context, chatID primitive.ObjectID, userID string) error
	UpdateLastMessage(ctx context.Context, chatID primitive.ObjectID, last *models.LastMessage) error
	Deactivate(ctx context.Context, chatID primitive.ObjectID) error
}

type chatRepo struct {
	collection *mongo.Collection
}

func NewChatRepository(db *DB) ChatRepository {
	return &chatRepo{
		collection: db.Database.Collection(chatsCollection),
	}
}

func (r *chatRepo) Create(ctx context.Context, chat *models.Chat) error {
	now := time.Now()
	chat.ID = primitive.NewObjectID()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	if chat.LastActivity.IsZero() {
		chat.LastActivity = now
	}

	if _, err := r.collection.InsertOne(ctx, chat); err != nil {
		return fmt.Errorf("create chat: %w", err)
	}
	return nil
}

func (r *chatRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return &chat, nil
}

func (r *chatRepo) GetActiveDepartmentChat(ctx context.Context, department string) (*models.Chat, error) {
	filter := bson.M{
		"department": department,
		"type":       models.ChatTypeDepartment,
		"is_active":  true,
	}

	var chat models.Chat
	err := r.collection.FindOne(ctx, filter).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get department chat: %w", err)
	}
	return &chat, nil
}

// EnsureDepartmentChat atomically creates the department chat if absent and
// returns the winning document either way. Concurrent first-accesses race on
// the partial unique (department, type) index; losers read the winner back.
func (r *chatRepo) EnsureDepartmentChat(ctx context.Context, chat *models.Chat) (*models.Chat, error) {
	now := time.Now()
	filter := bson.M{
		"department": chat.Department,
		"type":       models.ChatTypeDepartment,
		"is_active":  true,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"department":      chat.Department,
			"name":            chat.Name,
			"description":     chat.Description,
			"type":            models.ChatTypeDepartment,
			"participant_ids": chat.ParticipantIDs,
			"last_activity":   now,
			"is_active":       true,
			"created_by":      chat.CreatedBy,
			"created_at":      now,
			"updated_at":      now,
		},
	}
	opts := options.
		FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var ensured models.Chat
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ensured)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the insert race against the unique index; the winner exists.
		return r.GetActiveDepartmentChat(ctx, chat.Department)
	}
	if err != nil {
		return nil, fmt.Errorf("ensure department chat: %w", err)
	}
	return &ensured, nil
}

func (r *chatRepo) ListUserChats(ctx context.Context, userID, department string, limit, skip int64, search string) ([]*models.Chat, int64, error) {
	filter := bson.M{
		"department":      department,
		"is_active":       true,
		"participant_ids": userID,
	}
	if search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	var chats []*models.Chat
	var total int64

	group.Go(func() error {
		opts := options.Find().
			SetSort(bson.D{{Key: "last_activity", Value: -1}}).
			SetSkip(skip).
			SetLimit(limit)
		cursor, err := r.collection.Find(ctx, filter, opts)
		if err != nil {
			return fmt.Errorf("find chats: %w", err)
		}
		if err := cursor.All(ctx, &chats); err != nil {
			return fmt.Errorf("decode chats: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		var err error
		total, err = r.collection.CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("count chats: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, 0, err
	}
	return chats, total, nil
}

func (r *chatRepo) AddParticipantID(ctx context.Context, chatID primitive.ObjectID, userID string) error {
	update := bson.M{
		"$addToSet": bson.M{"participant_ids": userID},
		"$set":      bson.M{"updated_at": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": chatID}, update)
	if err != nil {
		return fmt.Errorf("add participant id: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *chatRepo) RemoveParticipantID(ctx context.Context, chatID primitive.ObjectID, userID string) error {
	update := bson.M{
		"$pull": bson.M{"participant_ids": userID},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": chatID}, update)
	if err != nil {
		return fmt.Errorf("remove participant id: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateLastMessage refreshes the last-message cache, guarded by sent_at so
// a slower, older send can never regress the cache under concurrency. A
// zero match means a newer message is already cached, which is not an error.
func (r *chatRepo) UpdateLastMessage(ctx context.Context, chatID primitive.ObjectID, last *models.LastMessage) error {
	filter := bson.M{
		"_id":           chatID,
		"last_activity": bson.M{"$lt": last.SentAt},
	}
	update := bson.M{
		"$set": bson.M{
			"last_message":  last,
			"last_activity": last.SentAt,
			"updated_at":    time.Now(),
		},
	}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("update last message: %w", err)
	}
	return nil
}

func (r *chatRepo) Deactivate(ctx context.Context, chatID primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{"is_active": false, "updated_at": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": chatID}, update)
	if err != nil {
		return fmt.Errorf("deactivate chat: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
