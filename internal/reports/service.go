package reports

import (
	"context"
	"fmt"
	"time"

	applog "receipts/internal/log"
	"receipts/internal/ports"
)

// Service resolves a window, fetches the user's receipts and aggregates them.
type Service struct {
	store        ports.ReceiptLister
	logger       *applog.Logger
	now          func() time.Time
	lookbackDays int
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLookbackDays sets how far back a missing start date reaches.
// Non-positive values keep DefaultLookbackDays.
func WithLookbackDays(days int) Option {
	return func(s *Service) { s.lookbackDays = days }
}

// WithLogger routes debug output through l under the reports component.
func WithLogger(l *applog.Logger) Option {
	return func(s *Service) { s.logger = l.WithComponent(applog.ComponentReports) }
}

// NewService returns a Service reading receipts from store.
func NewService(store ports.ReceiptLister, opts ...Option) *Service {
	s := &Service{
		store:        store,
		logger:       applog.Default(applog.ComponentReports),
		now:          time.Now,
		lookbackDays: DefaultLookbackDays,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Resolve applies the service clock and lookback to raw query values.
func (s *Service) Resolve(rawStart, rawEnd string) DateRange {
	return ResolveDateRangeWithLookback(rawStart, rawEnd, s.now(), s.lookbackDays)
}

// Report builds the report for userID over the resolved window.
func (s *Service) Report(ctx context.Context, userID int64, rng DateRange) (Report, error) {
	if rng.StartDefaulted || rng.EndDefaulted {
		s.logger.DebugContext(ctx, "Report window defaulted",
			applog.FieldUserID, userID,
			"start_defaulted", rng.StartDefaulted,
			"end_defaulted", rng.EndDefaulted)
	}

	receipts, err := s.store.ListReceiptsBetween(ctx, userID, rng.Start, rng.End)
	if err != nil {
		return Report{}, fmt.Errorf("list receipts for report: %w", err)
	}

	rep := Build(userID, receipts, rng)

	if s.logger.DebugEnabled(ctx) {
		fields := applog.NewFields().
			WithUser(userID).
			WithRange(rng.Start.String(), rng.End.String()).
			WithOperation(applog.OpReport)
		fields[applog.FieldCount] = rep.Count
		fields["monthly_labels"] = rep.Monthly.Labels
		fields["monthly_totals"] = rep.Monthly.Totals
		fields["category_labels"] = rep.Categories.Labels
		fields["category_totals"] = rep.Categories.Totals
		fields["weekly"] = rep.Weekly
		s.logger.DebugContext(ctx, "Report built", fields.ToSlice()...)
	}
	return rep, nil
}
