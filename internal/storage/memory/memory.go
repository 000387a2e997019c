package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"receipts/internal/core"
)

type session struct {
	userID    int64
	expiresAt time.Time
}

// Store keeps users, sessions and receipts in process memory.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	receipts map[int64]core.Receipt
	users    map[int64]core.User
	sessions map[string]session
	now      func() time.Time
}

func New() *Store {
	return &Store{
		receipts: make(map[int64]core.Receipt),
		users:    make(map[int64]core.User),
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// CreateReceipt stores the receipt and returns its id.
func (s *Store) CreateReceipt(_ context.Context, r core.Receipt) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	r.CreatedAt = s.now().UTC()
	s.receipts[r.ID] = r
	return r.ID, nil
}

func (s *Store) DeleteReceipt(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[id]
	if !ok || r.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.receipts, id)
	return nil
}

func (s *Store) GetReceipt(_ context.Context, userID, id int64) (core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[id]
	if !ok || r.UserID != userID {
		return core.Receipt{}, core.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListReceipts(_ context.Context, userID int64) ([]core.Receipt, error) {
	return s.filter(func(r core.Receipt) bool { return r.UserID == userID }), nil
}

func (s *Store) ListReceiptsBetween(_ context.Context, userID int64, start, end core.Date) ([]core.Receipt, error) {
	return s.filter(func(r core.Receipt) bool {
		return r.UserID == userID && !r.Date.Before(start.Time) && !r.Date.After(end.Time)
	}), nil
}

func (s *Store) filter(keep func(core.Receipt) bool) []core.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Receipt, 0, len(s.receipts))
	for _, r := range s.receipts {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return core.User{}, core.ErrUsernameTaken
		}
	}
	u := core.User{ID: s.id(), Username: username, PasswordHash: passwordHash, CreatedAt: s.now().UTC()}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateSession(_ context.Context, token string, userID int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *Store) SessionUser(_ context.Context, token string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return 0, core.ErrNotFound
	}
	if !now.Before(sess.expiresAt) {
		delete(s.sessions, token)
		return 0, core.ErrNotFound
	}
	return sess.userID, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// PurgeExpiredSessions drops sessions that expired at or before now.
func (s *Store) PurgeExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (s *Store) Ping(context.Context) error { return nil }
