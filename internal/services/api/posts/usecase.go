package posts

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Quill/internal/domain/post"

	"github.com/google/uuid"
)

const (
	idLength = 8

	// maxIDAttempts bounds how many fresh ids Create tries after collisions.
	maxIDAttempts = 5

	idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

var ErrForbidden = errors.New("forbidden")

type Usecase struct {
	repo  post.Repo
	clk   func() time.Time
	newID func() string
}

func New(repo post.Repo, clk func() time.Time) *Usecase {
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{repo: repo, clk: clk, newID: shortID}
}

// shortID derives 8 base62 characters from the random tail of a UUID.
func shortID() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[8:])
	buf := make([]byte, idLength)
	for i := range buf {
		buf[i] = idAlphabet[n%62]
		n /= 62
	}
	return string(buf)
}

func (u *Usecase) Create(ctx context.Context, authorID int64, title, content string) (*post.Post, error) {
	p := &post.Post{
		Title:     title,
		Content:   content,
		Published: u.clk(),
		AuthorID:  authorID,
	}
	for attempt := 1; ; attempt++ {
		p.ID = u.newID()
		err := u.repo.Create(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, post.ErrIDTaken) || attempt == maxIDAttempts {
			return nil, fmt.Errorf("create post: %w", err)
		}
	}
}

func (u *Usecase) Get(ctx context.Context, id string) (*post.Post, error) {
	return u.repo.GetByID(ctx, id)
}

func (u *Usecase) List(ctx context.Context, limit, offset int) ([]*post.Post, error) {
	return u.repo.List(ctx, limit, offset)
}

func (u *Usecase) Delete(ctx context.Context, requesterID int64, id string) error {
	cur, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur.AuthorID != requesterID {
		return ErrForbidden
	}
	return u.repo.Delete(ctx, id)
}
