package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/facilityhub/dept-chat/internal/models"
)

const messagesCollection = "messages"

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Message, error)
	ListChatMessages(ctx context.Context, chatID primitive.ObjectID, limit, skip int64, before *time.Time) ([]*models.Message, int64, error)
	SetContent(ctx context.Context, id primitive.ObjectID, senderID, content string, at time.Time) (*models.Message, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID, senderID string, at time.Time) (*models.Message, error)
	AppendReadReceipts(ctx context.Context, chatID primitive.ObjectID, receipt models.ReadReceipt, cutoff time.Time) (int64, error)
	CountUnread(ctx context.Context, chatID primitive.ObjectID, userID string, since time.Time) (int64, error)
}

type messageRepo struct {
	collection *mongo.Collection
}

func NewMessageRepository(db *DB) MessageRepository {
	return &messageRepo{
		collection: db.Database.Collection(messagesCollection),
	}
}

func (r *messageRepo) Create(ctx context.Context, message *models.Message) error {
	now := time.Now()
	message.ID = primitive.NewObjectID()
	message.CreatedAt = now
	message.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (r *messageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var message models.Message
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &message, nil
}

func (r *messageRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("get messages by ids: %w", err)
	}
	var messages []*models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

// ListChatMessages returns non-deleted messages newest-first along with the
// total match count. Callers reverse the page for chronological display.
func (r *messageRepo) ListChatMessages(ctx context.Context, chatID primitive.ObjectID, limit, skip int64, before *time.Time) ([]*models.Message, int64, error) {
	filter := bson.M{
		"chat_id":    chatID,
		"is_deleted": false,
	}
	if before != nil {
		filter["created_at"] = bson.M{"$lt": *before}
	}

	group, ctx := errgroup.WithContext(ctx)
	var messages []*models.Message
	var total int64

	group.Go(func() error {
		opts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetSkip(skip).
			SetLimit(limit)
		cursor, err := r.collection.Find(ctx, filter, opts)
		if err != nil {
			return fmt.Errorf("find messages: %w", err)
		}
		if err := cursor.All(ctx, &messages); err != nil {
			return fmt.Errorf("decode messages: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		var err error
		total, err = r.collection.CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("count messages: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// SetContent applies an edit. The sender_id and is_deleted guards in the
// filter make a concurrent delete win over a racing edit.
func (r *messageRepo) SetContent(ctx context.Context, id primitive.ObjectID, senderID, content string, at time.Time) (*models.Message, error) {
	filter := bson.M{
		"_id":        id,
		"sender_id":  senderID,
		"is_deleted": false,
	}
	update := bson.M{
		"$set": bson.M{
			"content":    content,
			"is_edited":  true,
			"edited_at":  at,
			"updated_at": at,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Message
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	return &updated, nil
}

// SoftDelete tombstones a message: content is overwritten in place so the
// original is unrecoverable, while the document stays addressable for
// thread integrity.
func (r *messageRepo) SoftDelete(ctx context.Context, id primitive.ObjectID, senderID string, at time.Time) (*models.Message, error) {
	filter := bson.M{
		"_id":        id,
		"sender_id":  senderID,
		"is_deleted": false,
	}
	update := bson.M{
		"$set": bson.M{
			"content":    models.DeletedContent,
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var deleted models.Message
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&deleted)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("soft delete: %w", err)
	}
	return &deleted, nil
}

// AppendReadReceipts pushes one receipt onto every message of the chat sent
// by someone else at or before cutoff that the reader has not yet read.
// Repeated calls match nothing and are a no-op.
func (r *messageRepo) AppendReadReceipts(ctx context.Context, chatID primitive.ObjectID, receipt models.ReadReceipt, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"chat_id":         chatID,
		"created_at":      bson.M{"$lte": cutoff},
		"sender_id":       bson.M{"$ne": receipt.UserID},
		"read_by.user_id": bson.M{"$ne": receipt.UserID},
	}
	update := bson.M{
		"$push": bson.M{"read_by": receipt},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("append read receipts: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *messageRepo) CountUnread(ctx context.Context, chatID primitive.ObjectID, userID string, since time.Time) (int64, error) {
	filter := bson.M{
		"chat_id":    chatID,
		"created_at": bson.M{"$gt": since},
		"sender_id":  bson.M{"$ne": userID},
		"is_deleted": false,
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
