package ports

import (
	"context"
	"time"

	"receipts/internal/core"
)

// Ports for outbound adapters. Every receipt operation is scoped to one owner;
// a receipt owned by someone else behaves exactly like a missing one.
type (
	ReceiptWriter interface {
		CreateReceipt(ctx context.Context, r core.Receipt) (int64, error)
		// DeleteReceipt returns core.ErrNotFound when userID owns no receipt with id.
		DeleteReceipt(ctx context.Context, userID, id int64) error
	}

	ReceiptReader interface {
		// GetReceipt returns core.ErrNotFound for missing or foreign receipts.
		GetReceipt(ctx context.Context, userID, id int64) (core.Receipt, error)
		// ListReceipts returns all receipts of userID, newest date first.
		ListReceipts(ctx context.Context, userID int64) ([]core.Receipt, error)
	}

	// ReceiptLister feeds the report engine.
	ReceiptLister interface {
		// ListReceiptsBetween returns receipts of userID dated within [start, end], newest first.
		ListReceiptsBetween(ctx context.Context, userID int64, start, end core.Date) ([]core.Receipt, error)
	}

	ReceiptStore interface {
		ReceiptWriter
		ReceiptReader
		ReceiptLister
	}

	UserStore interface {
		// CreateUser returns core.ErrUsernameTaken on a duplicate username.
		CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
	}

	SessionStore interface {
		CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
		// SessionUser returns core.ErrNotFound for unknown or expired tokens.
		SessionUser(ctx context.Context, token string, now time.Time) (int64, error)
		DeleteSession(ctx context.Context, token string) error
		// PurgeExpiredSessions removes expired sessions and reports how many went.
		PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	}

	// Store is everything the web application persists.
	Store interface {
		ReceiptStore
		UserStore
		SessionStore
		Ping(ctx context.Context) error
		Close() error
	}
)
