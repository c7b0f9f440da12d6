package post

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("post not found")

	// ErrIDTaken means the generated id is already used by another post.
	ErrIDTaken = errors.New("post id already taken")

	// ErrAuthorNotFound means the author row no longer exists.
	ErrAuthorNotFound = errors.New("post author not found")
)

type Repo interface {
	Create(ctx context.Context, p *Post) error
	GetByID(ctx context.Context, id string) (*Post, error)
	List(ctx context.Context, limit, offset int) ([]*Post, error)
	Delete(ctx context.Context, id string) error
}
