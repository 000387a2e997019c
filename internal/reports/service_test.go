package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"receipts/internal/core"
	"receipts/internal/storage/memory"
)

type failingLister struct{}

func (failingLister) ListReceiptsBetween(context.Context, int64, core.Date, core.Date) ([]core.Receipt, error) {
	return nil, errors.New("db down")
}

func TestServiceReportUsesStoreAndClock(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, r := range []core.Receipt{
		rc(1, 2025, 1, 5, 2000, core.CategoryFood),
		rc(1, 2025, 6, 20, 1000, core.CategoryTransport),
		rc(2, 2025, 6, 21, 700, core.CategoryHealth),
	} {
		if _, err := store.CreateReceipt(ctx, r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(store, WithClock(func() time.Time { return now }), WithLookbackDays(30))

	rng := svc.Resolve("", "")
	if !rng.StartDefaulted || rng.Start.String() != "2025-06-01" {
		t.Fatalf("unexpected window %+v", rng)
	}
	rep, err := svc.Report(ctx, 1, rng)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.Count != 1 || rep.Categories.Labels[0] != "Transportation" {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestServiceReportPropagatesStoreError(t *testing.T) {
	svc := NewService(failingLister{})
	_, err := svc.Report(context.Background(), 1, svc.Resolve("", ""))
	if err == nil {
		t.Fatalf("expected error")
	}
}
