package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfTruncates(t *testing.T) {
	got := DateOf(time.Date(2025, 3, 9, 23, 59, 1, 0, time.UTC))
	if !got.Equal(NewDate(2025, 3, 9).Time) {
		t.Fatalf("expected 2025-03-09, got %s", got)
	}
	if got.FirstOfMonth().String() != "2025-03-01" {
		t.Fatalf("unexpected first of month %s", got.FirstOfMonth())
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("zero should be allowed, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
	if err := (Money{Cents: MaxAmountCents + 1}).Validate(); err == nil {
		t.Fatalf("expected error above max")
	}
}

func TestReceiptValidate(t *testing.T) {
	good := Receipt{
		UserID:   1,
		Date:     NewDate(2025, 1, 1),
		Amount:   Money{Cents: 100},
		Category: CategoryFood,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		mutate func(r *Receipt)
		want   error
	}{
		{func(r *Receipt) { r.UserID = 0 }, ErrMissingOwner},
		{func(r *Receipt) { r.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{func(r *Receipt) { r.Category = "groceries" }, ErrInvalidCategory},
		{func(r *Receipt) { r.Vendor = strings.Repeat("v", 101) }, ErrVendorTooLong},
	}
	for i, tc := range cases {
		r := good
		tc.mutate(&r)
		if err := r.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}

	r := good
	r.Vendor = strings.Repeat("é", 100)
	if err := r.Validate(); err != nil {
		t.Fatalf("100 runes should be allowed, got %v", err)
	}
}

func TestCategoryLabels(t *testing.T) {
	want := map[Category]string{
		CategoryFood:      "Food & Dining",
		CategoryTransport: "Transportation",
		CategoryOther:     "Other",
	}
	for c, l := range want {
		if c.Label() != l {
			t.Fatalf("%s: expected %q, got %q", c, l, c.Label())
		}
	}
	if len(Categories()) != 8 {
		t.Fatalf("expected 8 categories, got %d", len(Categories()))
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory(""); err != nil || c != CategoryOther {
		t.Fatalf("empty should default to other, got %q %v", c, err)
	}
	if c, err := ParseCategory(" Health "); err != nil || c != CategoryHealth {
		t.Fatalf("expected health, got %q %v", c, err)
	}
	if _, err := ParseCategory("crypto"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	if s := Summarize(nil); s.TopCategory != NoDataLabel || s.TotalSpent.Cents != 0 {
		t.Fatalf("unexpected empty summary %+v", s)
	}
	rs := []Receipt{
		{Amount: Money{Cents: 500}, Category: CategoryTransport},
		{Amount: Money{Cents: 300}, Category: CategoryFood},
		{Amount: Money{Cents: 300}, Category: CategoryFood},
	}
	s := Summarize(rs)
	if s.TotalSpent.Cents != 1100 {
		t.Fatalf("expected 1100, got %d", s.TotalSpent.Cents)
	}
	if s.TopCategory != "Food & Dining" {
		t.Fatalf("expected Food & Dining, got %q", s.TopCategory)
	}
}
