package worker

import (
	"context"
	"errors"
	"fmt"

	"receipts/internal/amqp"
	"receipts/internal/core"
	applog "receipts/internal/log"
	"receipts/internal/metrics"
	"receipts/internal/sheets/google"
)

// Mirror is the spreadsheet side of the sync.
type Mirror interface {
	AppendReceipt(ctx context.Context, r core.Receipt, username string) (string, error)
	DeleteReceipt(ctx context.Context, id int64) error
}

// Source loads the data a mirrored row needs.
type Source interface {
	GetReceipt(ctx context.Context, userID, id int64) (core.Receipt, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
}

// SyncWorker applies receipt events from the broker to a Google Sheets mirror.
type SyncWorker struct {
	store  Source
	mirror Mirror
	logger *applog.Logger
}

func NewSyncWorker(store Source, mirror Mirror, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Default(applog.ComponentWorker)
	}
	return &SyncWorker{store: store, mirror: mirror, logger: logger}
}

// HandleEvent is the amqp consumer callback. Returning an error requeues the event.
func (w *SyncWorker) HandleEvent(ctx context.Context, evt *amqp.ReceiptEvent) error {
	var err error
	switch evt.Type {
	case amqp.EventReceiptCreated:
		err = w.handleCreated(ctx, evt)
	case amqp.EventReceiptDeleted:
		err = w.handleDeleted(ctx, evt)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown receipt event", "type", evt.Type)
		return nil
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SheetsMirrored.WithLabelValues(string(evt.Type), status).Inc()
	return err
}

func (w *SyncWorker) handleCreated(ctx context.Context, evt *amqp.ReceiptEvent) error {
	fields := applog.NewFields().WithUser(evt.UserID).WithOperation(applog.OpSync)
	fields[applog.FieldReceiptID] = evt.ReceiptID

	receipt, err := w.store.GetReceipt(ctx, evt.UserID, evt.ReceiptID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before the worker caught up; the delete event will follow.
		w.logger.WarnContext(ctx, "Receipt no longer exists, skipping mirror", fields.ToSlice()...)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get receipt %d: %w", evt.ReceiptID, err)
	}

	username := ""
	if user, err := w.store.GetUser(ctx, evt.UserID); err == nil {
		username = user.Username
	} else {
		w.logger.WarnContext(ctx, "Could not resolve receipt owner", append(fields.ToSlice(), applog.FieldError, err.Error())...)
	}

	ref, err := w.mirror.AppendReceipt(ctx, receipt, username)
	if err != nil {
		return fmt.Errorf("append receipt %d to sheets: %w", evt.ReceiptID, err)
	}

	w.logger.InfoContext(ctx, "Receipt mirrored to sheets",
		append(fields.ToSlice(), "sheets_ref", ref, applog.FieldAmountCents, receipt.Amount.Cents)...)
	return nil
}

func (w *SyncWorker) handleDeleted(ctx context.Context, evt *amqp.ReceiptEvent) error {
	fields := applog.NewFields().WithUser(evt.UserID).WithOperation(applog.OpDelete)
	fields[applog.FieldReceiptID] = evt.ReceiptID

	err := w.mirror.DeleteReceipt(ctx, evt.ReceiptID)
	if errors.Is(err, google.ErrRowNotFound) {
		w.logger.WarnContext(ctx, "Receipt row not present in sheets", fields.ToSlice()...)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete receipt %d from sheets: %w", evt.ReceiptID, err)
	}

	w.logger.InfoContext(ctx, "Receipt removed from sheets", fields.ToSlice()...)
	return nil
}
