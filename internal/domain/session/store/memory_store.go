// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
)

// MemoryStore is an in-process Store. It enforces the same referential rules as the
// SQL backends so tests exercise identical semantics.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
}

type memActivity struct {
	seq int64
	a   *model.Activity
}

type memHistory struct {
	seq int64
	h   *model.StatusHistory
}

type memData struct {
	seq        int64
	users      map[string]*model.User
	sessions   map[string]*model.Session
	activities []memActivity
	history    []memHistory
	archives   map[string]*model.SessionArchive
	stats      map[string]*model.UserSessionStats
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{
		users:    make(map[string]*model.User),
		sessions: make(map[string]*model.Session),
		archives: make(map[string]*model.SessionArchive),
		stats:    make(map[string]*model.UserSessionStats),
	}}
}

// Atomic runs fn under the write lock and restores the previous state if fn fails.
func (m *MemoryStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.snapshot()
	if err := fn(m.data); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) write(fn func(d *memData) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.data)
}

func (m *MemoryStore) PutUser(ctx context.Context, u *model.User) error {
	return m.write(func(d *memData) error { return d.PutUser(ctx, u) })
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetUser(ctx, id)
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	return m.write(func(d *memData) error { return d.DeleteUser(ctx, id) })
}

func (m *MemoryStore) PutSession(ctx context.Context, s *model.Session) error {
	return m.write(func(d *memData) error { return d.PutSession(ctx, s) })
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetSession(ctx, id)
}

func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	return m.write(func(d *memData) error { return d.DeleteSession(ctx, id) })
}

func (m *MemoryStore) QuerySessions(ctx context.Context, filter SessionFilter) ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.QuerySessions(ctx, filter)
}

func (m *MemoryStore) AppendActivity(ctx context.Context, a *model.Activity) error {
	return m.write(func(d *memData) error { return d.AppendActivity(ctx, a) })
}

func (m *MemoryStore) QueryActivities(ctx context.Context, filter ActivityFilter) ([]*model.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.QueryActivities(ctx, filter)
}

func (m *MemoryStore) CountActivities(ctx context.Context, filter ActivityFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.CountActivities(ctx, filter)
}

func (m *MemoryStore) AppendStatusHistory(ctx context.Context, h *model.StatusHistory) error {
	return m.write(func(d *memData) error { return d.AppendStatusHistory(ctx, h) })
}

func (m *MemoryStore) ListStatusHistory(ctx context.Context, sessionID string) ([]*model.StatusHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.ListStatusHistory(ctx, sessionID)
}

func (m *MemoryStore) GetArchive(ctx context.Context, sessionID string) (*model.SessionArchive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetArchive(ctx, sessionID)
}

func (m *MemoryStore) PutArchive(ctx context.Context, a *model.SessionArchive) error {
	return m.write(func(d *memData) error { return d.PutArchive(ctx, a) })
}

func (m *MemoryStore) GetUserStats(ctx context.Context, userID string) (*model.UserSessionStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetUserStats(ctx, userID)
}

func (m *MemoryStore) PutUserStats(ctx context.Context, st *model.UserSessionStats) error {
	return m.write(func(d *memData) error { return d.PutUserStats(ctx, st) })
}

// --- memData implements Tx without locking; callers hold MemoryStore.mu. ---

func (d *memData) snapshot() *memData {
	return &memData{
		seq:        d.seq,
		users:      maps.Clone(d.users),
		sessions:   maps.Clone(d.sessions),
		activities: append([]memActivity(nil), d.activities...),
		history:    append([]memHistory(nil), d.history...),
		archives:   maps.Clone(d.archives),
		stats:      maps.Clone(d.stats),
	}
}

func (d *memData) nextSeq() int64 {
	d.seq++
	return d.seq
}

func (d *memData) PutUser(_ context.Context, u *model.User) error {
	for id, other := range d.users {
		if id != u.ID && other.Username == u.Username {
			return fmt.Errorf("%w: username %q", ErrDuplicate, u.Username)
		}
	}
	d.users[u.ID] = cloneUser(u)
	return nil
}

func (d *memData) GetUser(_ context.Context, id string) (*model.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (d *memData) DeleteUser(_ context.Context, id string) error {
	if _, ok := d.users[id]; !ok {
		return ErrNotFound
	}
	for _, s := range d.sessions {
		if s.OwnerID == id {
			return ErrUserReferenced
		}
	}
	for _, a := range d.activities {
		if a.a.UserID == id {
			return ErrUserReferenced
		}
	}
	for _, h := range d.history {
		if h.h.ChangedBy == id {
			return ErrUserReferenced
		}
	}
	delete(d.users, id)
	delete(d.stats, id)
	return nil
}

func (d *memData) PutSession(_ context.Context, s *model.Session) error {
	if _, ok := d.users[s.OwnerID]; !ok {
		return fmt.Errorf("%w: owner %q does not exist", ErrConstraint, s.OwnerID)
	}
	d.sessions[s.ID] = s.Clone()
	return nil
}

func (d *memData) GetSession(_ context.Context, id string) (*model.Session, error) {
	s, ok := d.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (d *memData) DeleteSession(_ context.Context, id string) error {
	if _, ok := d.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(d.sessions, id)
	delete(d.archives, id)

	acts := d.activities[:0:0]
	for _, a := range d.activities {
		if a.a.SessionID != id {
			acts = append(acts, a)
		}
	}
	d.activities = acts

	hist := d.history[:0:0]
	for _, h := range d.history {
		if h.h.SessionID != id {
			hist = append(hist, h)
		}
	}
	d.history = hist
	return nil
}

func (d *memData) QuerySessions(_ context.Context, filter SessionFilter) ([]*model.Session, error) {
	out := make([]*model.Session, 0)
	for _, s := range d.sessions {
		if filter.OwnerID != "" && s.OwnerID != filter.OwnerID {
			continue
		}
		if !statusIn(s.Status, filter.Statuses) {
			continue
		}
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *memData) AppendActivity(_ context.Context, a *model.Activity) error {
	if _, ok := d.sessions[a.SessionID]; !ok {
		return fmt.Errorf("%w: session %q does not exist", ErrConstraint, a.SessionID)
	}
	if a.UserID != "" {
		if _, ok := d.users[a.UserID]; !ok {
			return fmt.Errorf("%w: user %q does not exist", ErrConstraint, a.UserID)
		}
	}
	d.activities = append(d.activities, memActivity{seq: d.nextSeq(), a: cloneActivity(a)})
	return nil
}

func (d *memData) matchActivities(filter ActivityFilter) []memActivity {
	var out []memActivity
	for _, a := range d.activities {
		if filter.SessionID != "" && a.a.SessionID != filter.SessionID {
			continue
		}
		if filter.UserID != "" && a.a.UserID != filter.UserID {
			continue
		}
		if !typeIn(a.a.Type, filter.Types) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (d *memData) QueryActivities(_ context.Context, filter ActivityFilter) ([]*model.Activity, error) {
	matched := d.matchActivities(filter)
	sort.Slice(matched, func(i, j int) bool {
		ai, aj := matched[i].a, matched[j].a
		if !ai.CreatedAt.Equal(aj.CreatedAt) {
			return ai.CreatedAt.After(aj.CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	out := make([]*model.Activity, 0, len(matched))
	for _, a := range matched {
		out = append(out, cloneActivity(a.a))
	}
	return out, nil
}

func (d *memData) CountActivities(_ context.Context, filter ActivityFilter) (int, error) {
	return len(d.matchActivities(ActivityFilter{
		SessionID: filter.SessionID,
		UserID:    filter.UserID,
		Types:     filter.Types,
	})), nil
}

func (d *memData) AppendStatusHistory(_ context.Context, h *model.StatusHistory) error {
	if _, ok := d.sessions[h.SessionID]; !ok {
		return fmt.Errorf("%w: session %q does not exist", ErrConstraint, h.SessionID)
	}
	if h.ChangedBy != "" {
		if _, ok := d.users[h.ChangedBy]; !ok {
			return fmt.Errorf("%w: user %q does not exist", ErrConstraint, h.ChangedBy)
		}
	}
	d.history = append(d.history, memHistory{seq: d.nextSeq(), h: cloneHistory(h)})
	return nil
}

func (d *memData) ListStatusHistory(_ context.Context, sessionID string) ([]*model.StatusHistory, error) {
	var matched []memHistory
	for _, h := range d.history {
		if h.h.SessionID == sessionID {
			matched = append(matched, h)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		hi, hj := matched[i].h, matched[j].h
		if !hi.ChangedAt.Equal(hj.ChangedAt) {
			return hi.ChangedAt.Before(hj.ChangedAt)
		}
		return matched[i].seq < matched[j].seq
	})
	out := make([]*model.StatusHistory, 0, len(matched))
	for _, h := range matched {
		out = append(out, cloneHistory(h.h))
	}
	return out, nil
}

func (d *memData) GetArchive(_ context.Context, sessionID string) (*model.SessionArchive, error) {
	a, ok := d.archives[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneArchive(a), nil
}

func (d *memData) PutArchive(_ context.Context, a *model.SessionArchive) error {
	if _, ok := d.sessions[a.SessionID]; !ok {
		return fmt.Errorf("%w: session %q does not exist", ErrConstraint, a.SessionID)
	}
	d.archives[a.SessionID] = cloneArchive(a)
	return nil
}

func (d *memData) GetUserStats(_ context.Context, userID string) (*model.UserSessionStats, error) {
	st, ok := d.stats[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneStats(st), nil
}

func (d *memData) PutUserStats(_ context.Context, st *model.UserSessionStats) error {
	if _, ok := d.users[st.UserID]; !ok {
		return fmt.Errorf("%w: user %q does not exist", ErrConstraint, st.UserID)
	}
	d.stats[st.UserID] = cloneStats(st)
	return nil
}
