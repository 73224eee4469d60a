// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package gormstore is the relational store backend for server databases (Postgres).
// Referential rules are enforced in the store itself so behaviour is identical on
// every gorm dialect.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite" // Pure Go driver for the sqlite dialector

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
)

// Store implements store.Store on top of gorm.
type Store struct {
	gormTx
}

var _ store.Store = (*Store)(nil)

// OpenPostgres connects to a Postgres database and migrates the schema.
func OpenPostgres(dsn string) (*Store, error) {
	return Open(postgres.Open(dsn))
}

// OpenSQLite opens a SQLite file through gorm using the pure Go driver.
func OpenSQLite(path string) (*Store, error) {
	return Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path),
	})
}

// Open wraps any gorm dialector and runs AutoMigrate.
func Open(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger(), TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("gormstore: open: %w", err)
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("gormstore: migrate: %w", err)
	}
	return &Store{gormTx{db: db}}, nil
}

// Atomic runs fn inside a gorm transaction.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) with(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

// duplicate maps unique-index violations onto store.ErrDuplicate. Dialects
// without error translation are matched on the driver message.
func duplicate(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

func (t *gormTx) exists(ctx context.Context, m any, where string, args ...any) (bool, error) {
	var n int64
	if err := t.with(ctx).Model(m).Where(where, args...).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *gormTx) requireUser(ctx context.Context, id string) error {
	ok, err := t.exists(ctx, &userRow{}, "id = ?", id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %q does not exist", store.ErrConstraint, id)
	}
	return nil
}

func (t *gormTx) requireSession(ctx context.Context, id string) error {
	ok, err := t.exists(ctx, &sessionRow{}, "id = ?", id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: session %q does not exist", store.ErrConstraint, id)
	}
	return nil
}

// --- Users ---

func (t *gormTx) PutUser(ctx context.Context, u *model.User) error {
	taken, err := t.exists(ctx, &userRow{}, "username = ? AND id <> ?", u.Username, u.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: username %q", store.ErrDuplicate, u.Username)
	}
	row := userRow{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
	return duplicate(t.with(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "email"}),
	}).Create(&row).Error)
}

func (t *gormTx) GetUser(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	if err := t.with(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &model.User{ID: row.ID, Username: row.Username, Email: row.Email, CreatedAt: row.CreatedAt.UTC()}, nil
}

func (t *gormTx) DeleteUser(ctx context.Context, id string) error {
	return t.with(ctx).Transaction(func(tx *gorm.DB) error {
		inner := &gormTx{db: tx}
		for _, ref := range []struct {
			model any
			where string
		}{
			{&sessionRow{}, "owner_id = ?"},
			{&activityRow{}, "user_id = ?"},
			{&historyRow{}, "changed_by = ?"},
		} {
			used, err := inner.exists(ctx, ref.model, ref.where, id)
			if err != nil {
				return err
			}
			if used {
				return store.ErrUserReferenced
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&statsRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&userRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

// --- Sessions ---

func toSessionRow(s *model.Session) sessionRow {
	return sessionRow{
		ID:             s.ID,
		Title:          s.Title,
		Description:    s.Description,
		Status:         string(s.Status),
		Visibility:     string(s.Visibility),
		OwnerID:        s.OwnerID,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		LastModifiedBy: s.LastModifiedBy,
	}
}

func (r sessionRow) toModel() *model.Session {
	return &model.Session{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Status:         model.Status(r.Status),
		Visibility:     model.Visibility(r.Visibility),
		OwnerID:        r.OwnerID,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
		StartedAt:      utcPtr(r.StartedAt),
		CompletedAt:    utcPtr(r.CompletedAt),
		LastModifiedBy: r.LastModifiedBy,
	}
}

func (t *gormTx) PutSession(ctx context.Context, s *model.Session) error {
	if err := t.requireUser(ctx, s.OwnerID); err != nil {
		return err
	}
	row := toSessionRow(s)
	return t.with(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "status", "visibility", "owner_id",
			"updated_at", "started_at", "completed_at", "last_modified_by",
		}),
	}).Create(&row).Error
}

func (t *gormTx) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var row sessionRow
	if err := t.with(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (t *gormTx) DeleteSession(ctx context.Context, id string) error {
	return t.with(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&activityRow{}, &historyRow{}, &archiveRow{}} {
			if err := tx.Where("session_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&sessionRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (t *gormTx) QuerySessions(ctx context.Context, filter store.SessionFilter) ([]*model.Session, error) {
	q := t.with(ctx).Model(&sessionRow{})
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(filter.Statuses))
	}
	rows := make([]sessionRow, 0)
	if err := q.Order("created_at DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// --- Activities ---

func (t *gormTx) AppendActivity(ctx context.Context, a *model.Activity) error {
	if err := t.requireSession(ctx, a.SessionID); err != nil {
		return err
	}
	if a.UserID != "" {
		if err := t.requireUser(ctx, a.UserID); err != nil {
			return err
		}
	}
	meta, err := encodeMap(a.Metadata)
	if err != nil {
		return err
	}
	row := activityRow{
		ID:          a.ID,
		SessionID:   a.SessionID,
		Action:      string(a.Type),
		Description: a.Description,
		UserID:      a.UserID,
		CreatedAt:   a.CreatedAt,
		OldStatus:   string(a.OldStatus),
		NewStatus:   string(a.NewStatus),
		Metadata:    meta,
	}
	return t.with(ctx).Create(&row).Error
}

func (t *gormTx) activityQuery(ctx context.Context, filter store.ActivityFilter) *gorm.DB {
	q := t.with(ctx).Model(&activityRow{})
	if filter.SessionID != "" {
		q = q.Where("session_id = ?", filter.SessionID)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, ty := range filter.Types {
			types = append(types, string(ty))
		}
		q = q.Where("action IN ?", types)
	}
	return q
}

func (t *gormTx) QueryActivities(ctx context.Context, filter store.ActivityFilter) ([]*model.Activity, error) {
	q := t.activityQuery(ctx, filter).Order("created_at DESC").Order("seq DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	rows := make([]activityRow, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Activity, 0, len(rows))
	for _, r := range rows {
		meta, err := decodeMap(r.Metadata)
		if err != nil {
			return nil, err
		}
		out = append(out, &model.Activity{
			ID:          r.ID,
			SessionID:   r.SessionID,
			Type:        model.ActivityType(r.Action),
			Description: r.Description,
			UserID:      r.UserID,
			CreatedAt:   r.CreatedAt.UTC(),
			OldStatus:   model.Status(r.OldStatus),
			NewStatus:   model.Status(r.NewStatus),
			Metadata:    meta,
		})
	}
	return out, nil
}

func (t *gormTx) CountActivities(ctx context.Context, filter store.ActivityFilter) (int, error) {
	var n int64
	if err := t.activityQuery(ctx, filter).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// --- Status history ---

func (t *gormTx) AppendStatusHistory(ctx context.Context, h *model.StatusHistory) error {
	if err := t.requireSession(ctx, h.SessionID); err != nil {
		return err
	}
	if h.ChangedBy != "" {
		if err := t.requireUser(ctx, h.ChangedBy); err != nil {
			return err
		}
	}
	meta, err := encodeMap(h.Metadata)
	if err != nil {
		return err
	}
	row := historyRow{
		ID:         h.ID,
		SessionID:  h.SessionID,
		FromStatus: string(h.FromStatus),
		ToStatus:   string(h.ToStatus),
		ChangedBy:  h.ChangedBy,
		ChangedAt:  h.ChangedAt,
		Reason:     h.Reason,
		Metadata:   meta,
		IPAddress:  h.IPAddress,
	}
	if h.DurationInPreviousStatus != nil {
		ms := h.DurationInPreviousStatus.Milliseconds()
		row.DurationPrev = &ms
	}
	return t.with(ctx).Create(&row).Error
}

func (t *gormTx) ListStatusHistory(ctx context.Context, sessionID string) ([]*model.StatusHistory, error) {
	rows := make([]historyRow, 0)
	if err := t.with(ctx).Where("session_id = ?", sessionID).
		Order("changed_at ASC").Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*model.StatusHistory, 0, len(rows))
	for _, r := range rows {
		meta, err := decodeMap(r.Metadata)
		if err != nil {
			return nil, err
		}
		h := &model.StatusHistory{
			ID:         r.ID,
			SessionID:  r.SessionID,
			FromStatus: model.Status(r.FromStatus),
			ToStatus:   model.Status(r.ToStatus),
			ChangedBy:  r.ChangedBy,
			ChangedAt:  r.ChangedAt.UTC(),
			Reason:     r.Reason,
			Metadata:   meta,
			IPAddress:  r.IPAddress,
		}
		if r.DurationPrev != nil {
			d := time.Duration(*r.DurationPrev) * time.Millisecond
			h.DurationInPreviousStatus = &d
		}
		out = append(out, h)
	}
	return out, nil
}

// --- Archives ---

func (t *gormTx) GetArchive(ctx context.Context, sessionID string) (*model.SessionArchive, error) {
	var row archiveRow
	if err := t.with(ctx).Where("session_id = ?", sessionID).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	snapshot, err := decodeMap(row.StatsSnapshot)
	if err != nil {
		return nil, err
	}
	return &model.SessionArchive{
		SessionID:     row.SessionID,
		ArchivedBy:    row.ArchivedBy,
		ArchivedAt:    row.ArchivedAt.UTC(),
		Reason:        row.Reason,
		StatsSnapshot: snapshot,
		RestoredAt:    utcPtr(row.RestoredAt),
		RestoredBy:    row.RestoredBy,
	}, nil
}

func (t *gormTx) PutArchive(ctx context.Context, a *model.SessionArchive) error {
	if err := t.requireSession(ctx, a.SessionID); err != nil {
		return err
	}
	snapshot, err := encodeMap(a.StatsSnapshot)
	if err != nil {
		return err
	}
	row := archiveRow{
		SessionID:     a.SessionID,
		ArchivedBy:    a.ArchivedBy,
		ArchivedAt:    a.ArchivedAt,
		Reason:        a.Reason,
		StatsSnapshot: snapshot,
		RestoredAt:    a.RestoredAt,
		RestoredBy:    a.RestoredBy,
	}
	return t.with(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// --- Stats ---

func (t *gormTx) GetUserStats(ctx context.Context, userID string) (*model.UserSessionStats, error) {
	var row statsRow
	if err := t.with(ctx).Where("user_id = ?", userID).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	var st model.UserSessionStats
	if err := json.Unmarshal([]byte(row.Payload), &st); err != nil {
		return nil, fmt.Errorf("gormstore: decode stats for %s: %w", userID, err)
	}
	return &st, nil
}

func (t *gormTx) PutUserStats(ctx context.Context, st *model.UserSessionStats) error {
	if err := t.requireUser(ctx, st.UserID); err != nil {
		return err
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	row := statsRow{
		UserID:            st.UserID,
		TotalSessions:     st.TotalSessions,
		CompletedSessions: st.CompletedSessions,
		CompletionRate:    st.CompletionRate,
		ProductivityScore: st.ProductivityScore,
		Payload:           string(payload),
		LastCalculated:    st.LastCalculated,
	}
	return t.with(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// --- helpers ---

func statusStrings(in []model.Status) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func encodeMap(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("gormstore: encode metadata: %w", err)
	}
	return string(b), nil
}

func decodeMap(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("gormstore: decode metadata: %w", err)
	}
	return m, nil
}
