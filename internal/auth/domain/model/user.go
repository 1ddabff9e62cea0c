package model

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Domain errors shared by repositories and use cases
var (
	ErrUserNotFound = errors.New("user not found")
	ErrHandleTaken  = errors.New("handle is already taken")
)

// User represents a chat participant
type User struct {
	ID           string             `json:"id" bson:"id,omitempty"`
	ObjectID     primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Handle       string             `json:"handle" bson:"handle"`
	FullName     string             `json:"fullName,omitempty" bson:"full_name,omitempty"`
	PasswordHash string             `json:"-" bson:"password_hash"`
	AvatarURL    string             `json:"avatarUrl,omitempty" bson:"avatar_url,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Sanitized returns a copy safe to serialize to clients.
func (u *User) Sanitized() *User {
	cp := *u
	cp.PasswordHash = ""
	return &cp
}
