package services

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"receipts/internal/core"
)

// FieldErrors maps a form field name to a user-facing message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+": "+v)
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// UploadForm holds the raw values of the upload page.
type UploadForm struct {
	Date     string
	Amount   string
	Category string
	Vendor   string
}

// Receipt converts the form into a receipt for userID. An empty date means today.
// A nil FieldErrors means the receipt is valid.
func (f UploadForm) Receipt(userID int64, now time.Time) (core.Receipt, FieldErrors) {
	errs := FieldErrors{}
	r := core.Receipt{UserID: userID, Vendor: strings.TrimSpace(f.Vendor)}

	if strings.TrimSpace(f.Date) == "" {
		r.Date = core.DateOf(now)
	} else if d, err := core.ParseDate(f.Date); err != nil {
		errs["date"] = "Enter a valid date (YYYY-MM-DD)."
	} else {
		r.Date = d
	}

	if strings.TrimSpace(f.Amount) == "" {
		errs["amount"] = "This field is required."
	} else if cents, err := core.ParseDecimalToCents(f.Amount); errors.Is(err, core.ErrAmountPrecision) {
		errs["amount"] = "Ensure that there are no more than 2 decimal places."
	} else if err != nil {
		errs["amount"] = "Enter a non-negative amount with at most 8 digits before the decimal point."
	} else {
		r.Amount = core.Money{Cents: cents}
	}

	if c, err := core.ParseCategory(f.Category); err != nil {
		errs["category"] = "Select a valid choice."
	} else {
		r.Category = c
	}

	if utf8.RuneCountInString(r.Vendor) > core.MaxVendorLength {
		errs["vendor"] = "Ensure this value has at most 100 characters."
	}

	if len(errs) > 0 {
		return core.Receipt{}, errs
	}
	if err := r.Validate(); err != nil {
		errs[fieldFor(err)] = err.Error()
		return core.Receipt{}, errs
	}
	return r, nil
}

func fieldFor(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount"
	case errors.Is(err, core.ErrInvalidCategory):
		return "category"
	case errors.Is(err, core.ErrVendorTooLong):
		return "vendor"
	default:
		return "date"
	}
}
