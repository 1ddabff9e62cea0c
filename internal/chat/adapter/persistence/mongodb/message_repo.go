package mongodb

import (
	"context"
	"time"

	"talkwire/internal/chat/domain/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMessageRepository implements the MessageRepository interface using MongoDB
type MongoMessageRepository struct {
	db                 *mongo.Database
	messagesCollection *mongo.Collection
}

// NewMongoMessageRepository creates a new MongoDB message repository and ensures its indexes
func NewMongoMessageRepository(db *mongo.Database) (*MongoMessageRepository, error) {
	repo := &MongoMessageRepository{
		db:                 db,
		messagesCollection: db.Collection("messages"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Conversation lookups filter on both participants and sort by creation time.
	conversationIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "sender_id", Value: 1},
			{Key: "recipient_id", Value: 1},
			{Key: "created_at", Value: 1},
		},
	}
	if _, err := repo.messagesCollection.Indexes().CreateOne(ctx, conversationIndex); err != nil {
		return nil, err
	}

	return repo, nil
}

// CreateMessage persists a new message
func (r *MongoMessageRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = primitive.NewObjectID().Hex()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := r.messagesCollection.InsertOne(ctx, msg)
	return err
}

// GetConversation returns all messages between the two users, oldest first
func (r *MongoMessageRepository) GetConversation(ctx context.Context, userID, peerID string) ([]*model.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": userID, "recipient_id": peerID},
		bson.M{"sender_id": peerID, "recipient_id": userID},
	}}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.messagesCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := make([]*model.Message, 0)
	for cursor.Next(ctx) {
		var msg model.Message
		if err := cursor.Decode(&msg); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	return messages, cursor.Err()
}
