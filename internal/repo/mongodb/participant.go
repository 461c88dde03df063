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

	"github.com/facilityhub/dept-chat/internal/models"
)

const participantsCollection = "chat_participants"

type ParticipantRepository interface {
	Ensure(ctx context.Context, p *models.Participant) (*models.Participant, error)
	GetActive(ctx context.Context, chatID primitive.ObjectID, userID string) (*models.Participant, error)
	ListActive(ctx context.Context, chatID primitive.ObjectID) ([]*models.Participant, error)
	MarkSeen(ctx context.Context, chatID primitive.ObjectID, userID string, at time.Time) error
	MarkSeenAll(ctx context.Context, userID string, at time.Time) error
	MarkRead(ctx context.Context, chatID primitive.ObjectID, userID string, cutoff, at time.Time) error
	Deactivate(ctx context.Context, chatID primitive.ObjectID, userID string, at time.Time) error
}

type participantRepo struct {
	collection *mongo.Collection
}

func NewParticipantRepository(db *DB) ParticipantRepository {
	return &participantRepo{
		collection: db.Database.Collection(participantsCollection),
	}
}

// Ensure is an idempotent membership upsert: an active row is left alone
// (display fields refreshed), an inactive row is reactivated with left_at
// cleared, a missing row is inserted with the given role. The role of an
// existing row is never changed here.
func (r *participantRepo) Ensure(ctx context.Context, p *models.Participant) (*models.Participant, error) {
	now := time.Now()
	filter := bson.M{
		"chat_id": p.ChatID,
		"user_id": p.UserID,
	}
	update := bson.M{
		"$set": bson.M{
			"user_name":  p.UserName,
			"user_email": p.UserEmail,
			"department": p.Department,
			"is_active":  true,
			"left_at":    nil,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"chat_id":              p.ChatID,
			"user_id":              p.UserID,
			"role":                 p.Role,
			"joined_at":            now,
			"last_seen_at":         now,
			"last_message_read_at": time.Time{},
			"notifications":        p.Notifications,
			"created_at":           now,
		},
	}
	opts := options.
		FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var ensured models.Participant
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ensured); err != nil {
		return nil, fmt.Errorf("ensure participant: %w", err)
	}
	return &ensured, nil
}

func (r *participantRepo) GetActive(ctx context.Context, chatID primitive.ObjectID, userID string) (*models.Participant, error) {
	filter := bson.M{
		"chat_id":   chatID,
		"user_id":   userID,
		"is_active": true,
	}

	var p models.Participant
	err := r.collection.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &p, nil
}

func (r *participantRepo) ListActive(ctx context.Context, chatID primitive.ObjectID) ([]*models.Participant, error) {
	filter := bson.M{
		"chat_id":   chatID,
		"is_active": true,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	var participants []*models.Participant
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	return participants, nil
}

func (r *participantRepo) MarkSeen(ctx context.Context, chatID primitive.ObjectID, userID string, at time.Time) error {
	filter := bson.M{
		"chat_id":   chatID,
		"user_id":   userID,
		"is_active": true,
	}
	update := bson.M{
		"$set": bson.M{"last_seen_at": at, "updated_at": at},
	}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

func (r *participantRepo) MarkSeenAll(ctx context.Context, userID string, at time.Time) error {
	filter := bson.M{
		"user_id":   userID,
		"is_active": true,
	}
	update := bson.M{
		"$set": bson.M{"last_seen_at": at, "updated_at": at},
	}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("mark seen all: %w", err)
	}
	return nil
}

func (r *participantRepo) MarkRead(ctx context.Context, chatID primitive.ObjectID, userID string, cutoff, at time.Time) error {
	filter := bson.M{
		"chat_id":   chatID,
		"user_id":   userID,
		"is_active": true,
	}
	update := bson.M{
		"$set": bson.M{
			"last_message_read_at": cutoff,
			"last_seen_at":         at,
			"updated_at":           at,
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Deactivate soft-removes a membership; left_at is set exactly when
// is_active flips to false.
func (r *participantRepo) Deactivate(ctx context.Context, chatID primitive.ObjectID, userID string, at time.Time) error {
	filter := bson.M{
		"chat_id":   chatID,
		"user_id":   userID,
		"is_active": true,
	}
	update := bson.M{
		"$set": bson.M{
			"is_active":  false,
			"left_at":    at,
			"updated_at": at,
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("deactivate participant: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
