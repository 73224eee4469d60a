// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/persistence/sqlite"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SqliteStore implements Store using SQLite.
type SqliteStore struct {
	sqliteTx
	DB *sql.DB
}

// NewSqliteStore opens (and migrates) the database at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := sqlite.Migrate(context.Background(), db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session store: migration failed: %w", err)
	}
	return &SqliteStore{sqliteTx: sqliteTx{q: db}, DB: db}, nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

// Atomic runs fn inside a single SQL transaction.
func (s *SqliteStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqliteTx{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type sqliteTx struct {
	q queryer
}

// --- Users ---

func (t *sqliteTx) PutUser(ctx context.Context, u *model.User) error {
	_, err := t.q.ExecContext(ctx, `
	INSERT INTO users (id, username, email, created_at_ms) VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET username = excluded.username, email = excluded.email`,
		u.ID, u.Username, u.Email, toMS(u.CreatedAt))
	return mapConstraint(err)
}

func (t *sqliteTx) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	var created int64
	err := t.q.QueryRowContext(ctx, "SELECT id, username, email, created_at_ms FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Username, &u.Email, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = fromMS(created)
	return &u, nil
}

func (t *sqliteTx) DeleteUser(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		if isForeignKeyErr(err) {
			return ErrUserReferenced
		}
		return err
	}
	return requireAffected(res)
}

// --- Sessions ---

const sessionColumns = `id, title, description, status, visibility, owner_id, created_at_ms, updated_at_ms,
	started_at_ms, completed_at_ms, last_modified_by`

func (t *sqliteTx) PutSession(ctx context.Context, s *model.Session) error {
	_, err := t.q.ExecContext(ctx, `
	INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		status = excluded.status,
		visibility = excluded.visibility,
		owner_id = excluded.owner_id,
		updated_at_ms = excluded.updated_at_ms,
		started_at_ms = excluded.started_at_ms,
		completed_at_ms = excluded.completed_at_ms,
		last_modified_by = excluded.last_modified_by`,
		s.ID, s.Title, s.Description, s.Status, s.Visibility, s.OwnerID,
		toMS(s.CreatedAt), toMS(s.UpdatedAt), nullMS(s.StartedAt), nullMS(s.CompletedAt), s.LastModifiedBy)
	return mapConstraint(err)
}

func (t *sqliteTx) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := t.q.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (t *sqliteTx) DeleteSession(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (t *sqliteTx) QuerySessions(ctx context.Context, filter SessionFilter) ([]*model.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE 1=1"
	var args []any

	if filter.OwnerID != "" {
		query += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if len(filter.Statuses) > 0 {
		query += " AND status IN (" + placeholders(len(filter.Statuses)) + ")"
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	query += " ORDER BY created_at_ms DESC, id ASC"

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := make([]*model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*model.Session, error) {
	var s model.Session
	var created, updated int64
	var started, completed sql.NullInt64
	if err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Status, &s.Visibility, &s.OwnerID,
		&created, &updated, &started, &completed, &s.LastModifiedBy); err != nil {
		return nil, err
	}
	s.CreatedAt = fromMS(created)
	s.UpdatedAt = fromMS(updated)
	s.StartedAt = msPtr(started)
	s.CompletedAt = msPtr(completed)
	return &s, nil
}

// --- Activities ---

func (t *sqliteTx) AppendActivity(ctx context.Context, a *model.Activity) error {
	meta, err := marshalMap(a.Metadata)
	if err != nil {
		return err
	}
	_, err = t.q.ExecContext(ctx, `
	INSERT INTO session_activities (id, session_id, action, description, user_id, created_at_ms, old_status, new_status, metadata_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.Type, a.Description, nullString(a.UserID), toMS(a.CreatedAt), a.OldStatus, a.NewStatus, meta)
	return mapConstraint(err)
}

func activityWhere(filter ActivityFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if filter.SessionID != "" {
		where += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.UserID != "" {
		where += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if len(filter.Types) > 0 {
		where += " AND action IN (" + placeholders(len(filter.Types)) + ")"
		for _, ty := range filter.Types {
			args = append(args, ty)
		}
	}
	return where, args
}

func (t *sqliteTx) QueryActivities(ctx context.Context, filter ActivityFilter) ([]*model.Activity, error) {
	where, args := activityWhere(filter)
	query := `SELECT id, session_id, action, description, COALESCE(user_id, ''), created_at_ms, old_status, new_status, metadata_json
	FROM session_activities` + where + " ORDER BY created_at_ms DESC, seq DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := make([]*model.Activity, 0)
	for rows.Next() {
		var a model.Activity
		var created int64
		var meta sql.NullString
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Type, &a.Description, &a.UserID, &created,
			&a.OldStatus, &a.NewStatus, &meta); err != nil {
			return nil, err
		}
		a.CreatedAt = fromMS(created)
		if a.Metadata, err = unmarshalMap(meta); err != nil {
			return nil, err
		}
		results = append(results, &a)
	}
	return results, rows.Err()
}

func (t *sqliteTx) CountActivities(ctx context.Context, filter ActivityFilter) (int, error) {
	where, args := activityWhere(filter)
	var n int
	err := t.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM session_activities"+where, args...).Scan(&n)
	return n, err
}

// --- Status history ---

func (t *sqliteTx) AppendStatusHistory(ctx context.Context, h *model.StatusHistory) error {
	meta, err := marshalMap(h.Metadata)
	if err != nil {
		return err
	}
	var dur any
	if h.DurationInPreviousStatus != nil {
		dur = h.DurationInPreviousStatus.Milliseconds()
	}
	_, err = t.q.ExecContext(ctx, `
	INSERT INTO session_status_history (id, session_id, from_status, to_status, changed_by, changed_at_ms, reason, metadata_json, ip_address, duration_prev_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.SessionID, h.FromStatus, h.ToStatus, nullString(h.ChangedBy), toMS(h.ChangedAt),
		h.Reason, meta, h.IPAddress, dur)
	return mapConstraint(err)
}

func (t *sqliteTx) ListStatusHistory(ctx context.Context, sessionID string) ([]*model.StatusHistory, error) {
	rows, err := t.q.QueryContext(ctx, `
	SELECT id, session_id, from_status, to_status, COALESCE(changed_by, ''), changed_at_ms, reason, metadata_json, ip_address, duration_prev_ms
	FROM session_status_history WHERE session_id = ? ORDER BY changed_at_ms ASC, seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := make([]*model.StatusHistory, 0)
	for rows.Next() {
		var h model.StatusHistory
		var changed int64
		var meta sql.NullString
		var dur sql.NullInt64
		if err := rows.Scan(&h.ID, &h.SessionID, &h.FromStatus, &h.ToStatus, &h.ChangedBy, &changed,
			&h.Reason, &meta, &h.IPAddress, &dur); err != nil {
			return nil, err
		}
		h.ChangedAt = fromMS(changed)
		if h.Metadata, err = unmarshalMap(meta); err != nil {
			return nil, err
		}
		if dur.Valid {
			d := time.Duration(dur.Int64) * time.Millisecond
			h.DurationInPreviousStatus = &d
		}
		results = append(results, &h)
	}
	return results, rows.Err()
}

// --- Archives ---

func (t *sqliteTx) GetArchive(ctx context.Context, sessionID string) (*model.SessionArchive, error) {
	var a model.SessionArchive
	var archived int64
	var restored sql.NullInt64
	var snapshot sql.NullString
	err := t.q.QueryRowContext(ctx, `
	SELECT session_id, COALESCE(archived_by, ''), archived_at_ms, reason, stats_snapshot_json, restored_at_ms, COALESCE(restored_by, '')
	FROM session_archives WHERE session_id = ?`, sessionID).
		Scan(&a.SessionID, &a.ArchivedBy, &archived, &a.Reason, &snapshot, &restored, &a.RestoredBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.ArchivedAt = fromMS(archived)
	a.RestoredAt = msPtr(restored)
	if a.StatsSnapshot, err = unmarshalMap(snapshot); err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *sqliteTx) PutArchive(ctx context.Context, a *model.SessionArchive) error {
	snapshot, err := marshalMap(a.StatsSnapshot)
	if err != nil {
		return err
	}
	_, err = t.q.ExecContext(ctx, `
	INSERT INTO session_archives (session_id, archived_by, archived_at_ms, reason, stats_snapshot_json, restored_at_ms, restored_by)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		archived_by = excluded.archived_by,
		archived_at_ms = excluded.archived_at_ms,
		reason = excluded.reason,
		stats_snapshot_json = excluded.stats_snapshot_json,
		restored_at_ms = excluded.restored_at_ms,
		restored_by = excluded.restored_by`,
		a.SessionID, nullString(a.ArchivedBy), toMS(a.ArchivedAt), a.Reason, snapshot,
		nullMS(a.RestoredAt), nullString(a.RestoredBy))
	return mapConstraint(err)
}

// --- Stats ---

func (t *sqliteTx) GetUserStats(ctx context.Context, userID string) (*model.UserSessionStats, error) {
	var payload string
	err := t.q.QueryRowContext(ctx, "SELECT payload_json FROM user_session_stats WHERE user_id = ?", userID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var st model.UserSessionStats
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return nil, fmt.Errorf("session store: decode stats for %s: %w", userID, err)
	}
	return &st, nil
}

func (t *sqliteTx) PutUserStats(ctx context.Context, st *model.UserSessionStats) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = t.q.ExecContext(ctx, `
	INSERT INTO user_session_stats (user_id, total_sessions, completed_sessions, completion_rate, productivity_score, payload_json, last_calculated_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		total_sessions = excluded.total_sessions,
		completed_sessions = excluded.completed_sessions,
		completion_rate = excluded.completion_rate,
		productivity_score = excluded.productivity_score,
		payload_json = excluded.payload_json,
		last_calculated_ms = excluded.last_calculated_ms`,
		st.UserID, st.TotalSessions, st.CompletedSessions, st.CompletionRate, st.ProductivityScore,
		string(payload), toMS(st.LastCalculated))
	return mapConstraint(err)
}

// --- helpers ---

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullMS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMS(*t)
}

func msPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMS(v.Int64)
	return &t
}

func marshalMap(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("session store: encode metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMap(v sql.NullString) (map[string]any, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(v.String), &m); err != nil {
		return nil, fmt.Errorf("session store: decode metadata: %w", err)
	}
	return m, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isForeignKeyErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func mapConstraint(err error) error {
	switch {
	case isForeignKeyErr(err):
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	case isUniqueErr(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
