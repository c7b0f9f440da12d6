package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Quill/internal/domain/post"

	"github.com/jackc/pgx/v5"
)

var _ post.Repo = (*PostRepo)(nil)

type PostRepo struct {
	db *DB
}

func NewPostRepo(db *DB) *PostRepo { return &PostRepo{db: db} }

const (
	postColumns = `id, title, content, published, author_id`

	qPostInsert = `
INSERT INTO posts (id, title, content, published, author_id)
VALUES ($1, $2, $3, $4, $5);`

	qPostByID = `
SELECT ` + postColumns + `
FROM posts
WHERE id = $1;`

	qPostList = `
SELECT ` + postColumns + `
FROM posts
ORDER BY published, id
LIMIT $1 OFFSET $2;`

	qPostDelete = `DELETE FROM posts WHERE id = $1;`
)

func (r *PostRepo) Create(ctx context.Context, p *post.Post) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.execQueryer(ctx).Exec(ctx, qPostInsert, p.ID, p.Title, p.Content, p.Published, p.AuthorID)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return post.ErrIDTaken
		case isForeignKeyViolation(err):
			return post.ErrAuthorNotFound
		}
		return fmt.Errorf("post insert: %w", err)
	}
	return nil
}

func (r *PostRepo) GetByID(ctx context.Context, id string) (*post.Post, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var p post.Post
	if err := scanPost(r.db.execQueryer(ctx).QueryRow(ctx, qPostByID, id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) List(ctx context.Context, limit, offset int) ([]*post.Post, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qPostList, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var out []*post.Post
	for rows.Next() {
		var p post.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *PostRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qPostDelete, id)
	if err != nil {
		return fmt.Errorf("post delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return post.ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row, out *post.Post) error {
	if err := row.Scan(&out.ID, &out.Title, &out.Content, &out.Published, &out.AuthorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.ErrNotFound
		}
		return fmt.Errorf("scan post: %w", err)
	}
	return nil
}
