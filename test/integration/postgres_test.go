//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Quill/internal/domain/outbox"
	"github.com/NordCoder/Quill/internal/domain/post"
	"github.com/NordCoder/Quill/internal/domain/user"
	pg "github.com/NordCoder/Quill/internal/repository/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, repo *pg.UserRepo, suffix string) *user.User {
	t.Helper()
	u := &user.User{Username: "it_" + suffix, Email: "it_" + suffix + "@example.com", PasswordHash: "not_used_for_itests"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepo_CreateGetVerify(t *testing.T) {
	db := OpenDB(t, LoadCfg().DBDSN)
	repo := pg.NewUserRepo(db)
	ctx := context.Background()

	u := seedUser(t, repo, Unique())
	require.NotZero(t, u.ID)
	assert.False(t, u.Verified)
	assert.False(t, u.CreatedAt.IsZero())

	byName, err := repo.GetByUsername(ctx, u.Username)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	got, err := repo.MarkVerified(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	again, err := repo.MarkVerified(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, again.Verified)

	_, err = repo.GetByID(ctx, -1)
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = repo.MarkVerified(ctx, -1)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUserRepo_Conflicts(t *testing.T) {
	db := OpenDB(t, LoadCfg().DBDSN)
	repo := pg.NewUserRepo(db)
	ctx := context.Background()

	sfx := Unique()
	u := seedUser(t, repo, sfx)

	sameName := &user.User{Username: u.Username, Email: "other_" + sfx + "@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, repo.Create(ctx, sameName), user.ErrConflict)

	sameEmail := &user.User{Username: "other_" + sfx, Email: u.Email, PasswordHash: "x"}
	assert.ErrorIs(t, repo.Create(ctx, sameEmail), user.ErrConflict)
}

func TestUserRepo_ConcurrentConflicts(t *testing.T) {
	db := OpenDB(t, LoadCfg().DBDSN)
	repo := pg.NewUserRepo(db)
	ctx := context.Background()
	const n = 8

	run := func(t *testing.T, mk func(i int) *user.User) {
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			ok        int
			conflicts int
			other     []error
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := repo.Create(ctx, mk(i))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, user.ErrConflict):
					conflicts++
				default:
					other = append(other, err)
				}
			}(i)
		}
		wg.Wait()
		assert.Empty(t, other)
		assert.Equal(t, 1, ok)
		assert.Equal(t, n-1, conflicts)
	}

	t.Run("same username", func(t *testing.T) {
		sfx := Unique()
		run(t, func(i int) *user.User {
			return &user.User{Username: "race_" + sfx, Email: fmt.Sprintf("race_%s_%d@example.com", sfx, i), PasswordHash: "x"}
		})
	})

	t.Run("same email", func(t *testing.T) {
		sfx := Unique()
		run(t, func(i int) *user.User {
			return &user.User{Username: fmt.Sprintf("race_%s_%d", sfx, i), Email: "race_" + sfx + "@example.com", PasswordHash: "x"}
		})
	})
}

func TestPostRepo_Lifecycle(t *testing.T) {
	db := OpenDB(t, LoadCfg().DBDSN)
	users := pg.NewUserRepo(db)
	posts := pg.NewPostRepo(db)
	ctx := context.Background()

	author := seedUser(t, users, Unique())
	id := PostID()
	p := &post.Post{ID: id, Title: "hello", Content: "world", Published: time.Now().UTC().Truncate(time.Microsecond), AuthorID: author.ID}
	require.NoError(t, posts.Create(ctx, p))
	assert.ErrorIs(t, posts.Create(ctx, p), post.ErrIDTaken)

	got, err := posts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, author.ID, got.AuthorID)
	assert.True(t, p.Published.Equal(got.Published))

	list, err := posts.List(ctx, 1000, 0)
	require.NoError(t, err)
	var found bool
	for _, it := range list {
		found = found || it.ID == id
	}
	assert.True(t, found)

	orphan := &post.Post{ID: PostID(), Title: "x", Content: "y", Published: time.Now().UTC(), AuthorID: -1}
	assert.ErrorIs(t, posts.Create(ctx, orphan), post.ErrAuthorNotFound)

	require.NoError(t, posts.Delete(ctx, id))
	assert.ErrorIs(t, posts.Delete(ctx, id), post.ErrNotFound)
	_, err = posts.GetByID(ctx, id)
	assert.ErrorIs(t, err, post.ErrNotFound)
}

// drainOutbox marks leftovers from earlier runs as sent so later picks only see fresh rows.
func drainOutbox(t *testing.T, repo *pg.OutboxRepo) {
	t.Helper()
	ctx := context.Background()
	for {
		old, err := repo.PickBatch(ctx, 100, time.Hour)
		require.NoError(t, err)
		if len(old) == 0 {
			return
		}
		keys := make([]string, 0, len(old))
		for _, m := range old {
			keys = append(keys, m.IdempotencyKey)
		}
		require.NoError(t, repo.MarkSuccess(ctx, keys))
	}
}

func TestOutboxRepo_EnqueuePickMark(t *testing.T) {
	db := OpenDB(t, LoadCfg().DBDSN)
	repo := pg.NewOutboxRepo(db)
	ctx := context.Background()

	drainOutbox(t, repo)

	key := "it-" + Unique()
	msg := outbox.Message{
		IdempotencyKey: key,
		Kind:           outbox.KindVerificationRequested,
		Data:           []byte(`{"email":"a@example.com"}`),
		Traceparent:    "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	require.NoError(t, repo.Enqueue(ctx, msg))
	require.NoError(t, repo.Enqueue(ctx, msg), "duplicate key is a no-op")
	assert.Error(t, repo.Enqueue(ctx, outbox.Message{Kind: outbox.KindVerificationRequested}))

	batch, err := repo.PickBatch(ctx, 10, time.Hour)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, key, batch[0].IdempotencyKey)
	assert.Equal(t, outbox.StatusInProgress, batch[0].Status)
	assert.Equal(t, msg.Traceparent, batch[0].Traceparent)
	assert.JSONEq(t, string(msg.Data), string(batch[0].Data))

	again, err := repo.PickBatch(ctx, 10, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, again, "in-progress rows stay hidden until the ttl passes")

	stale, err := repo.PickBatch(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, stale, 1, "expired in-progress rows are picked again")

	require.NoError(t, repo.MarkSuccess(ctx, []string{key}))
	done, err := repo.PickBatch(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestOutboxRepo_ConcurrentPickIsDisjoint(t *testing.T) {
	db := OpenDB(t, LoadCfg().DBDSN)
	repo := pg.NewOutboxRepo(db)
	ctx := context.Background()
	const total = 20

	drainOutbox(t, repo)
	sfx := Unique()
	want := map[string]bool{}
	for i := 0; i < total; i++ {
		key := fmt.Sprintf("race-%s-%02d", sfx, i)
		want[key] = true
		require.NoError(t, repo.Enqueue(ctx, outbox.Message{IdempotencyKey: key, Kind: outbox.KindVerificationRequested, Data: []byte(`{}`)}))
	}

	const workers = 4
	batches := make([][]outbox.Message, workers)
	errs := make([]error, workers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			<-start
			batches[w], errs[w] = repo.PickBatch(ctx, total, time.Hour)
		}(w)
	}
	close(start)
	wg.Wait()

	seen := map[string]int{}
	var ours []string
	for w := range batches {
		require.NoError(t, errs[w])
		for _, m := range batches[w] {
			seen[m.IdempotencyKey]++
			if want[m.IdempotencyKey] {
				ours = append(ours, m.IdempotencyKey)
			}
		}
	}
	for key, cnt := range seen {
		assert.Equal(t, 1, cnt, "row %s claimed by more than one worker", key)
	}
	assert.Len(t, ours, total)

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	require.NoError(t, repo.MarkSuccess(ctx, keys))
}

func TestTransactor_CommitAndRollback(t *testing.T) {
	db := OpenDB(t, LoadCfg().DBDSN)
	tx := pg.NewTransactor(db, nil)
	users := pg.NewUserRepo(db)
	box := pg.NewOutboxRepo(db)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		sfx := Unique()
		var id int64
		err := tx.WithTx(ctx, func(ctx context.Context) error {
			u := &user.User{Username: "tx_" + sfx, Email: "tx_" + sfx + "@example.com", PasswordHash: "x"}
			if err := users.Create(ctx, u); err != nil {
				return err
			}
			id = u.ID
			return box.Enqueue(ctx, outbox.Message{IdempotencyKey: "tx-" + sfx, Kind: outbox.KindVerificationRequested, Data: []byte(`{}`)})
		})
		require.NoError(t, err)
		_, err = users.GetByID(ctx, id)
		assert.NoError(t, err)
	})

	t.Run("rollback", func(t *testing.T) {
		sfx := Unique()
		boom := errors.New("boom")
		var id int64
		err := tx.WithTx(ctx, func(ctx context.Context) error {
			u := &user.User{Username: "rb_" + sfx, Email: "rb_" + sfx + "@example.com", PasswordHash: "x"}
			if err := users.Create(ctx, u); err != nil {
				return err
			}
			id = u.ID
			return boom
		})
		require.ErrorIs(t, err, boom)
		_, err = users.GetByID(ctx, id)
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("nested joins outer", func(t *testing.T) {
		sfx := Unique()
		boom := errors.New("outer failed")
		err := tx.WithTx(ctx, func(ctx context.Context) error {
			if err := tx.WithTx(ctx, func(ctx context.Context) error {
				return users.Create(ctx, &user.User{Username: "nest_" + sfx, Email: "nest_" + sfx + "@example.com", PasswordHash: "x"})
			}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)
		_, err = users.GetByUsername(ctx, "nest_"+sfx)
		assert.ErrorIs(t, err, user.ErrNotFound)
	})
}

func TestDB_Ping(t *testing.T) {
	db := OpenDB(t, LoadCfg().DBDSN)
	assert.NoError(t, db.Ping(context.Background()))
}
