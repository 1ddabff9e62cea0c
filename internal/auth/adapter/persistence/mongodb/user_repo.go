package mongodb

import (
	"context"
	"time"

	"talkwire/internal/auth/domain/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository implements the UserRepository interface using MongoDB
type MongoUserRepository struct {
	db              *mongo.Database
	usersCollection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoDB user repository and ensures its indexes
func NewMongoUserRepository(db *mongo.Database) (*MongoUserRepository, error) {
	repo := &MongoUserRepository{
		db:              db,
		usersCollection: db.Collection("users"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Handle index (unique): one account per handle
	handleIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "handle", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := repo.usersCollection.Indexes().CreateOne(ctx, handleIndex); err != nil {
		return nil, err
	}

	// ID index for UUID lookups
	idIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetSparse(true),
	}
	if _, err := repo.usersCollection.Indexes().CreateOne(ctx, idIndex); err != nil {
		return nil, err
	}

	return repo, nil
}

// CreateUser creates a new user in the database
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}

	doc := bson.M{
		"id":            user.ID,
		"handle":        user.Handle,
		"password_hash": user.PasswordHash,
		"created_at":    user.CreatedAt,
		"updated_at":    user.UpdatedAt,
	}
	if user.FullName != "" {
		doc["full_name"] = user.FullName
	}
	if user.AvatarURL != "" {
		doc["avatar_url"] = user.AvatarURL
	}

	_, err := r.usersCollection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrHandleTaken
		}
		return err
	}

	return nil
}

// GetUserByHandle retrieves a user by handle
func (r *MongoUserRepository) GetUserByHandle(ctx context.Context, handle string) (*model.User, error) {
	var user model.User
	err := r.usersCollection.FindOne(ctx, bson.M{"handle": handle}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	r.ensureID(&user)
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	var err error

	// UUID string ids live in the "id" field; legacy documents may key on ObjectID.
	if objectID, objErr := primitive.ObjectIDFromHex(id); objErr == nil {
		err = r.usersCollection.FindOne(ctx, bson.M{"$or": bson.A{
			bson.M{"id": id},
			bson.M{"_id": objectID},
		}}).Decode(&user)
	} else {
		err = r.usersCollection.FindOne(ctx, bson.M{"id": id}).Decode(&user)
	}

	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	r.ensureID(&user)
	return &user, nil
}

// UpdateUser persists mutable profile fields
func (r *MongoUserRepository) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"full_name":  user.FullName,
		"avatar_url": user.AvatarURL,
		"updated_at": user.UpdatedAt,
	}}

	result, err := r.usersCollection.UpdateOne(ctx, bson.M{"id": user.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// ListUsersExcept returns all users except the given one, newest first
func (r *MongoUserRepository) ListUsersExcept(ctx context.Context, userID string) ([]*model.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"password_hash": 0})

	cursor, err := r.usersCollection.Find(ctx, bson.M{"id": bson.M{"$ne": userID}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*model.User
	for cursor.Next(ctx) {
		var user model.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		r.ensureID(&user)
		users = append(users, &user)
	}
	return users, cursor.Err()
}

func (r *MongoUserRepository) ensureID(user *model.User) {
	if user.ID == "" && !user.ObjectID.IsZero() {
		user.ID = user.ObjectID.Hex()
	}
}
