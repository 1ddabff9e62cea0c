package repository

import (
	"context"

	"talkwire/internal/auth/domain/model"
)

// UserRepository defines persistence operations for users
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByHandle(ctx context.Context, handle string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	// ListUsersExcept returns every user except the given one, for the contact sidebar.
	ListUsersExcept(ctx context.Context, userID string) ([]*model.User, error)
}
