package repository

import (
	"context"

	"github.com/oksasatya/feedstream/internal/domain/entity"
)

// PostRepository defines the interface for post-related database operations.
// List returns posts ordered by creation time, newest first.
type PostRepository interface {
	Create(ctx context.Context, p *entity.Post) error
	GetByID(ctx context.Context, id string) (*entity.Post, error)
	List(ctx context.Context, offset, limit int) ([]entity.Post, error)
	Update(ctx context.Context, p *entity.Post) error
	Delete(ctx context.Context, id string) error
	CountAll(ctx context.Context) (int64, error)
}
