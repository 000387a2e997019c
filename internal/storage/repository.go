package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"receipts/internal/core"

	_ "modernc.org/sqlite"
)

const timestampLayout = "2006-01-02 15:04:05"

const receiptColumns = `id, user_id, date, amount_cents, category, vendor, image_key, created_at`

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func dsn(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateReceipt(ctx context.Context, rc core.Receipt) (int64, error) {
	if err := rc.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO receipts (user_id, date, amount_cents, category, vendor, image_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rc.UserID, rc.Date.String(), rc.Amount.Cents, string(rc.Category), rc.Vendor, rc.ImageKey,
		r.now().UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("insert receipt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read receipt id: %w", err)
	}

	slog.InfoContext(ctx, "Receipt saved to SQLite",
		"id", id,
		"user_id", rc.UserID,
		"amount_cents", rc.Amount.Cents,
		"category", rc.Category,
		"date", rc.Date.String())

	return id, nil
}

func (r *SQLiteRepository) DeleteReceipt(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete receipt rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Receipt deleted from SQLite", "id", id, "user_id", userID)
	return nil
}

func (r *SQLiteRepository) GetReceipt(ctx context.Context, userID, id int64) (core.Receipt, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE id = ? AND user_id = ?`, id, userID)
	rc, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Receipt{}, core.ErrNotFound
	}
	if err != nil {
		return core.Receipt{}, fmt.Errorf("get receipt: %w", err)
	}
	return rc, nil
}

func (r *SQLiteRepository) ListReceipts(ctx context.Context, userID int64) ([]core.Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return collectReceipts(rows)
}

func (r *SQLiteRepository) ListReceiptsBetween(ctx context.Context, userID int64, start, end core.Date) ([]core.Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date DESC, id DESC`, userID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list receipts between: %w", err)
	}
	return collectReceipts(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReceipt(s scanner) (core.Receipt, error) {
	var (
		rc                      core.Receipt
		date, category, created string
	)
	if err := s.Scan(&rc.ID, &rc.UserID, &date, &rc.Amount.Cents, &category, &rc.Vendor, &rc.ImageKey, &created); err != nil {
		return core.Receipt{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("parse receipt date %q: %w", date, err)
	}
	rc.Date = d
	rc.Category = core.Category(category)
	rc.CreatedAt = parseTimestamp(created)
	return rc, nil
}

func collectReceipts(rows *sql.Rows) ([]core.Receipt, error) {
	defer rows.Close()
	out := []core.Receipt{}
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return out, nil
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, now.Format(timestampLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, core.ErrUsernameTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("read user id: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", id, "username", username)
	return core.User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now.Truncate(time.Second)}, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) getUser(ctx context.Context, query string, arg any) (core.User, error) {
	var (
		u       core.User
		created string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = parseTimestamp(created)
	return u, nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SessionUser(ctx context.Context, token string, now time.Time) (int64, error) {
	var userID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM sessions WHERE token = ? AND expires_at > ?`, token, now.Unix()).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get session: %w", err)
	}
	return userID, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions that expired before now.
func (r *SQLiteRepository) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.InfoContext(ctx, "Expired sessions purged", "count", n)
	}
	return n, nil
}
