package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxVendorLength = 100

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Receipt is one photographed expense owned by a single user.
	Receipt struct {
		ID        int64
		UserID    int64
		Date      Date
		Amount    Money
		Category  Category
		Vendor    string
		ImageKey  string
		CreatedAt time.Time
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrAmountPrecision = errors.New("amount has more than 2 decimal places")
	ErrInvalidCategory = errors.New("invalid category")
	ErrVendorTooLong   = errors.New("vendor too long (max 100 characters)")
	ErrMissingOwner    = errors.New("receipt has no owner")
	ErrNotFound        = errors.New("not found")
	ErrUsernameTaken   = errors.New("username already taken")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location, returned as a UTC date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

func (m Money) Validate() error {
	if m.Cents < 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

func (r Receipt) Validate() error {
	if r.UserID <= 0 {
		return ErrMissingOwner
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if !r.Category.Valid() {
		return ErrInvalidCategory
	}
	if utf8.RuneCountInString(r.Vendor) > MaxVendorLength {
		return ErrVendorTooLong
	}
	return nil
}

// VendorOrDash returns the vendor, or "-" when none was recorded.
func (r Receipt) VendorOrDash() string {
	if strings.TrimSpace(r.Vendor) == "" {
		return "-"
	}
	return r.Vendor
}
