package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"receipts/internal/amqp"
	"receipts/internal/core"
	"receipts/internal/images"
	applog "receipts/internal/log"
	"receipts/internal/metrics"
	"receipts/internal/ports"
)

// EventPublisher is the subset of the AMQP client the service needs.
type EventPublisher interface {
	PublishReceiptEvent(ctx context.Context, evt *amqp.ReceiptEvent) error
}

// ReceiptService orchestrates receipts across the record store, the image
// store and the event broker. Broker failures never fail a request.
type ReceiptService struct {
	store     ports.ReceiptStore
	images    images.Store
	publisher EventPublisher
	logger    *applog.Logger
	slog      *applog.StructuredLogger
	now       func() time.Time
	onChange  []func(userID int64)
}

func NewReceiptService(store ports.ReceiptStore, imgs images.Store, publisher EventPublisher) *ReceiptService {
	logger := applog.Default(applog.ComponentReceipt)
	return &ReceiptService{
		store:     store,
		images:    imgs,
		publisher: publisher,
		logger:    logger,
		slog:      applog.NewStructuredLogger(logger),
		now:       time.Now,
	}
}

// OnChange registers fn to run after a user's receipts were added or removed.
func (s *ReceiptService) OnChange(fn func(userID int64)) {
	s.onChange = append(s.onChange, fn)
}

func (s *ReceiptService) changed(userID int64) {
	for _, fn := range s.onChange {
		fn(userID)
	}
}

// Upload validates the form, stores the image then the record, and publishes
// a created event. Validation problems come back as FieldErrors.
func (s *ReceiptService) Upload(ctx context.Context, userID int64, form UploadForm, image io.Reader) (core.Receipt, error) {
	now := s.now()
	rc, ferrs := form.Receipt(userID, now)
	if image == nil {
		if ferrs == nil {
			ferrs = FieldErrors{}
		}
		ferrs["image"] = "This field is required."
	}
	if ferrs != nil {
		for field := range ferrs {
			metrics.UploadRejections.WithLabelValues(field).Inc()
		}
		return core.Receipt{}, ferrs
	}

	up, err := images.Prepare(image, now)
	if err != nil {
		if errors.Is(err, images.ErrUnsupportedType) {
			metrics.UploadRejections.WithLabelValues("image").Inc()
			return core.Receipt{}, FieldErrors{"image": "Upload a valid image. The file you uploaded was either not an image or a corrupted image."}
		}
		return core.Receipt{}, fmt.Errorf("read image: %w", err)
	}
	if err := s.images.Put(ctx, up.Key, up.ContentType, up.Body); err != nil {
		if derr := s.images.Delete(ctx, up.Key); derr != nil {
			s.logger.WarnContext(ctx, "Failed to remove partial image", applog.FieldImageKey, up.Key, applog.FieldError, derr)
		}
		if errors.Is(err, images.ErrTooLarge) {
			metrics.UploadRejections.WithLabelValues("image").Inc()
			return core.Receipt{}, FieldErrors{"image": "Image files must be 10 MB or smaller."}
		}
		return core.Receipt{}, fmt.Errorf("store image: %w", err)
	}
	rc.ImageKey = up.Key

	id, err := s.store.CreateReceipt(ctx, rc)
	if err != nil {
		if derr := s.images.Delete(ctx, up.Key); derr != nil {
			s.logger.WarnContext(ctx, "Failed to remove orphaned image", applog.FieldImageKey, up.Key, applog.FieldError, derr)
		}
		return core.Receipt{}, fmt.Errorf("save receipt: %w", err)
	}
	rc.ID = id

	metrics.ReceiptsUploaded.WithLabelValues(string(rc.Category)).Inc()
	s.slog.LogReceiptCreated(ctx, userID, id, rc.Date.String(), rc.Amount.Cents, string(rc.Category), rc.ImageKey)
	s.publish(ctx, amqp.EventReceiptCreated, id, userID)
	s.changed(userID)
	return rc, nil
}

// Delete removes a receipt owned by userID. Foreign or missing ids yield core.ErrNotFound.
func (s *ReceiptService) Delete(ctx context.Context, userID, id int64) error {
	rc, err := s.store.GetReceipt(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteReceipt(ctx, userID, id); err != nil {
		return err
	}
	if rc.ImageKey != "" {
		if err := s.images.Delete(ctx, rc.ImageKey); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete receipt image",
				applog.FieldReceiptID, id, applog.FieldImageKey, rc.ImageKey, applog.FieldError, err)
		}
	}
	metrics.ReceiptsDeleted.Inc()
	s.logger.InfoContext(ctx, "Receipt deleted", applog.FieldUserID, userID, applog.FieldReceiptID, id)
	s.publish(ctx, amqp.EventReceiptDeleted, id, userID)
	s.changed(userID)
	return nil
}

func (s *ReceiptService) Get(ctx context.Context, userID, id int64) (core.Receipt, error) {
	return s.store.GetReceipt(ctx, userID, id)
}

func (s *ReceiptService) List(ctx context.Context, userID int64) ([]core.Receipt, error) {
	rs, err := s.store.ListReceipts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return rs, nil
}

// Dashboard returns every receipt of userID newest first with totals.
func (s *ReceiptService) Dashboard(ctx context.Context, userID int64) (core.DashboardSummary, error) {
	rs, err := s.List(ctx, userID)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	return core.Summarize(rs), nil
}

// OpenImage streams the image of a receipt owned by userID.
func (s *ReceiptService) OpenImage(ctx context.Context, userID, id int64) (io.ReadCloser, string, error) {
	rc, err := s.store.GetReceipt(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	if rc.ImageKey == "" {
		return nil, "", core.ErrNotFound
	}
	body, ct, err := s.images.Open(ctx, rc.ImageKey)
	if errors.Is(err, images.ErrNotFound) {
		return nil, "", core.ErrNotFound
	}
	return body, ct, err
}

func (s *ReceiptService) publish(ctx context.Context, t amqp.EventType, id, userID int64) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping receipt event", "type", t)
		return
	}
	if err := s.publisher.PublishReceiptEvent(ctx, amqp.NewReceiptEvent(t, id, userID)); err != nil {
		metrics.EventsPublished.WithLabelValues(string(t), "error").Inc()
		s.logger.ErrorContext(ctx, "Failed to publish receipt event",
			applog.FieldReceiptID, id, "type", t, applog.FieldError, err)
		return
	}
	metrics.EventsPublished.WithLabelValues(string(t), "ok").Inc()
}
