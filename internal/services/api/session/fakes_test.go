package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NordCoder/Quill/internal/domain/user"
)

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*user.User
	failOn string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*user.User{}}
}

var errStoreDown = errors.New("store down")

func (m *memUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "create" {
		return errStoreDown
	}
	for _, ex := range m.byID {
		if ex.Username == u.Username || ex.Email == u.Email {
			return user.ErrConflict
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now().UTC()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "get" {
		return nil, errStoreDown
	}
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) List(_ context.Context, limit, offset int) ([]*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*user.User, 0, len(m.byID))
	for id := int64(1); id <= m.nextID; id++ {
		if u, ok := m.byID[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUsers) MarkVerified(_ context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.Verified = true
	cp := *u
	return &cp, nil
}

func (m *memUsers) delete(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

type sentLink struct {
	email string
	link  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentLink
	err  error
}

func (n *recordingNotifier) SendVerification(_ context.Context, email, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentLink{email: email, link: link})
	return n.err
}

func (n *recordingNotifier) last() (sentLink, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentLink{}, false
	}
	return n.sent[len(n.sent)-1], true
}
