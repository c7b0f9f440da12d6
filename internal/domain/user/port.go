package user

import (
	"context"
	"errors"
)

// Repo enforces username and email uniqueness on Create.
type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, error)
	MarkVerified(ctx context.Context, id int64) (*User, error)
}

var (
	ErrNotFound = errors.New("user not found")
	ErrConflict = errors.New("user already exists")
)
