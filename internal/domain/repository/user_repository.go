package repository

import (
	"context"

	"github.com/oksasatya/feedstream/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
// AddPostRef/RemovePostRef maintain the owner set (the list of posts a user
// created); RemovePostRef is idempotent so reconciliation can retry it.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	AddPostRef(ctx context.Context, userID, postID string) error
	RemovePostRef(ctx context.Context, userID, postID string) error
	ListPostRefs(ctx context.Context, userID string) ([]string, error)
}
