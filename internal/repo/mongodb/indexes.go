package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/facilityhub/dept-chat/internal/models"
)

// EnsureIndexes creates the indexes the messaging core relies on. The
// partial unique index on chats is what makes department-chat provisioning
// race-safe; the unique participant index enforces one row per
// (chat_id, user_id).
func EnsureIndexes(ctx context.Context, db *DB) error {
	chatIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "department", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"type":      models.ChatTypeDepartment,
					"is_active": true,
				}),
		},
		{
			Keys: bson.D{{Key: "participant_ids", Value: 1}, {Key: "last_activity", Value: -1}},
		},
	}
	if _, err := db.Database.Collection(chatsCollection).Indexes().CreateMany(ctx, chatIndexes); err != nil {
		return fmt.Errorf("create chat indexes: %w", err)
	}

	participantIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}},
		},
	}
	if _, err := db.Database.Collection(participantsCollection).Indexes().CreateMany(ctx, participantIndexes); err != nil {
		return fmt.Errorf("create participant indexes: %w", err)
	}

	messageIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "sender_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}
	if _, err := db.Database.Collection(messagesCollection).Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}

	return nil
}
