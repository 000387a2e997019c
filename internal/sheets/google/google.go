package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"receipts/internal/core"
	applog "receipts/internal/log"
)

// ErrRowNotFound is returned when no row carries the receipt id.
var ErrRowNotFound = errors.New("receipt row not found")

// Client mirrors receipts into a single sheet of a spreadsheet.
// Column A holds the receipt id and is used to locate rows on delete.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewClient creates a Sheets client authenticated with service account credentials.
func NewClient(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// credentialsJSON resolves service account credentials from, in order,
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE and
// GOOGLE_APPLICATION_CREDENTIALS.
func credentialsJSON(ctx context.Context, logger *applog.Logger) ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		logger.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	}
	for _, key := range []string{"GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		path := strings.TrimSpace(os.Getenv(key))
		if path == "" {
			continue
		}
		logger.DebugContext(ctx, "Reading service account credentials", "path", path, "source", key)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		return data, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// newSheetsService authenticates over a pooled transport. The oauth2 client
// carries the token source, so option.WithHTTPClient keeps the credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	logger := applog.Default(applog.ComponentSheets)

	data, err := credentialsJSON(ctx, logger)
	if err != nil {
		return nil, err
	}
	creds, err := goauth.CredentialsFromJSON(ctx, data, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	base := pooledHTTPClient()
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), creds.TokenSource)
	client.Timeout = base.Timeout

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Sheets service ready", "project", creds.ProjectID)
	return service, nil
}

func pooledHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Client{
		Timeout: time.Minute,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}

// AppendReceipt writes one row for r after the last used row and returns its A1 range.
func (c *Client) AppendReceipt(ctx context.Context, r core.Receipt, username string) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if r.ID <= 0 {
		return "", fmt.Errorf("receipt without id")
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, columnRange(c.sheetName)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.sheetName, err)
	}
	if row := findRow(resp.Values, r.ID); row > 0 {
		// Redelivered event: the row is already there.
		return rowRange(c.sheetName, row), nil
	}

	nextRow := len(resp.Values) + 1
	ref := rowRange(c.sheetName, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{receiptRow(r, username)}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", ref, err)
	}
	return ref, nil
}

// DeleteReceipt clears the row whose first column equals id.
// A missing row is reported as ErrRowNotFound.
func (c *Client) DeleteReceipt(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, columnRange(c.sheetName)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", columnRange(c.sheetName), err)
	}
	row := findRow(resp.Values, id)
	if row == 0 {
		return ErrRowNotFound
	}

	ref := rowRange(c.sheetName, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, ref, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", ref, err)
	}
	return nil
}
