package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"receipts/internal/auth"
	"receipts/internal/core"
	"receipts/internal/images"
	applog "receipts/internal/log"
	"receipts/internal/reports"
	"receipts/internal/services"
	"receipts/internal/storage/memory"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

const testPassword = "correct-horse-42"

type testEnv struct {
	srv   *Server
	store *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	imgs, err := images.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	logger := applog.New(applog.Config{Level: applog.ParseLevel("error"), Component: applog.ComponentHTTP})

	srv, err := NewServer(":0", Deps{
		Receipts:     services.NewReceiptService(store, imgs, nil),
		Reports:      reports.NewService(store),
		Auth:         auth.NewManager(store, store, time.Hour, false),
		Store:        store,
		Logger:       logger,
		RateLimitRPM: 1000,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store}
}

func (e *testEnv) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response (status %d)", rec.Code)
	return nil
}

// signup creates username through the signup page and returns its session cookie and id.
func (e *testEnv) signup(t *testing.T, username string) (*http.Cookie, int64) {
	t.Helper()
	rec := e.do(postForm("/signup/", url.Values{
		"username":  {username},
		"password1": {testPassword},
		"password2": {testPassword},
	}), nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard/" {
		t.Fatalf("signup: expected 303 to /dashboard/, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	u, err := e.store.GetUserByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	return sessionCookie(t, rec), u.ID
}

func (e *testEnv) seed(t *testing.T, userID int64, date core.Date, cents int64, cat core.Category, vendor string) int64 {
	t.Helper()
	id, err := e.store.CreateReceipt(context.Background(), core.Receipt{
		UserID: userID, Date: date, Amount: core.Money{Cents: cents}, Category: cat, Vendor: vendor,
	})
	if err != nil {
		t.Fatalf("seed receipt: %v", err)
	}
	return id
}

func uploadRequest(t *testing.T, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "receipt.png")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(image)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	env := newTestEnv(t)
	paths := []string{"/dashboard/", "/upload/", "/reports/", "/reports/data", "/export/", "/export/report/", "/receipt/1/"}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodGet, p, nil), nil)
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("expected 303, got %d", rec.Code)
			}
			want := "/login/?next=" + url.QueryEscape(p)
			if got := rec.Header().Get("Location"); got != want {
				t.Fatalf("expected redirect to %q, got %q", want, got)
			}
		})
	}
}

func TestPublicPages(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []string{"/", "/login/", "/signup/", "/logout-page/", "/healthz", "/readyz", "/static/style.css", "/static/charts.js"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, p, nil), nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", p, rec.Code)
		}
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/login/", nil), nil)
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing X-Frame-Options")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "script-src 'self'") {
		t.Errorf("unexpected CSP %q", rec.Header().Get("Content-Security-Policy"))
	}
	if !strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("missing request id")
	}
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(postForm("/signup/", url.Values{
		"username":  {"alice"},
		"password1": {testPassword},
		"password2": {"something-else"},
	}), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "alice") {
		t.Errorf("form should keep the submitted username")
	}

	env.signup(t, "bob")
	rec = env.do(postForm("/signup/", url.Values{
		"username":  {"bob"},
		"password1": {testPassword},
		"password2": {testPassword},
	}), nil)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "already exists") {
		t.Fatalf("duplicate username: expected 422 with message, got %d", rec.Code)
	}
}

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "carol")

	rec := env.do(postForm("/login/", url.Values{"username": {"carol"}, "password": {"wrong-password"}}), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad credentials: expected 422, got %d", rec.Code)
	}

	rec = env.do(postForm("/login/", url.Values{
		"username": {"carol"},
		"password": {testPassword},
		"next":     {"/reports/"},
	}), nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/reports/" {
		t.Fatalf("login: expected 303 to /reports/, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	cookie := sessionCookie(t, rec)

	rec = env.do(postForm("/login/", url.Values{
		"username": {"carol"},
		"password": {testPassword},
		"next":     {"//evil.example"},
	}), nil)
	if rec.Header().Get("Location") != "/dashboard/" {
		t.Fatalf("external next must fall back to dashboard, got %q", rec.Header().Get("Location"))
	}

	if rec := env.do(httptest.NewRequest(http.MethodGet, "/dashboard/", nil), cookie); rec.Code != http.StatusOK {
		t.Fatalf("dashboard with session: expected 200, got %d", rec.Code)
	}

	rec = env.do(httptest.NewRequest(http.MethodPost, "/logout/", nil), cookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/logout-page/" {
		t.Fatalf("logout: expected 303 to /logout-page/, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := env.do(httptest.NewRequest(http.MethodGet, "/dashboard/", nil), cookie); rec.Code != http.StatusSeeOther {
		t.Fatalf("dashboard after logout: expected 303, got %d", rec.Code)
	}
}

func TestUploadFlow(t *testing.T) {
	env := newTestEnv(t)
	cookie, userID := env.signup(t, "dave")

	rec := env.do(uploadRequest(t, map[string]string{
		"date": "2025-01-15", "amount": "12.50", "category": "food", "vendor": "Corner Deli",
	}, pngHeader), cookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard/" {
		t.Fatalf("upload: expected 303 to /dashboard/, got %d: %s", rec.Code, rec.Body.String())
	}

	list, err := env.store.ListReceipts(context.Background(), userID)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one stored receipt, got %d (%v)", len(list), err)
	}
	rc := list[0]
	if rc.Amount.Cents != 1250 || rc.Category != core.CategoryFood || rc.ImageKey == "" {
		t.Fatalf("unexpected receipt %+v", rc)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/dashboard/", nil), cookie)
	body := rec.Body.String()
	for _, want := range []string{"Corner Deli", "$12.50", "Food &amp; Dining"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if rec.Header().Get("Cache-Control") == "" || !strings.Contains(rec.Header().Get("Cache-Control"), "no-store") {
		t.Errorf("dashboard must not be cached")
	}

	detail := "/receipt/" + itoa(rc.ID) + "/"
	if rec := env.do(httptest.NewRequest(http.MethodGet, detail, nil), cookie); rec.Code != http.StatusOK {
		t.Fatalf("detail: expected 200, got %d", rec.Code)
	}
	rec = env.do(httptest.NewRequest(http.MethodGet, detail+"image", nil), cookie)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("image: expected 200 image/png, got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.Equal(rec.Body.Bytes(), pngHeader) {
		t.Errorf("image bytes differ")
	}
}

func TestUploadValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie, userID := env.signup(t, "erin")

	tests := []struct {
		name   string
		fields map[string]string
		image  []byte
		field  string
	}{
		{"missing amount", map[string]string{"date": "2025-01-15", "category": "food"}, pngHeader, "This field is required."},
		{"bad category", map[string]string{"amount": "3", "category": "rent"}, pngHeader, "Select a valid choice."},
		{"not an image", map[string]string{"amount": "3", "category": "food"}, []byte("plain text"), "Upload a valid image"},
		{"no image", map[string]string{"amount": "3", "category": "food"}, nil, "This field is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(uploadRequest(t, tt.fields, tt.image), cookie)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.field) {
				t.Errorf("expected message %q in form", tt.field)
			}
		})
	}

	if list, _ := env.store.ListReceipts(context.Background(), userID); len(list) != 0 {
		t.Fatalf("rejected uploads must not store receipts, got %d", len(list))
	}
}

func TestForeignReceiptsAreNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, ownerID := env.signup(t, "frank")
	otherCookie, _ := env.signup(t, "grace")
	id := env.seed(t, ownerID, core.NewDate(2025, 1, 2), 500, core.CategoryOther, "Kiosk")
	path := "/receipt/" + itoa(id) + "/"

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, path, nil),
		httptest.NewRequest(http.MethodGet, path+"image", nil),
		httptest.NewRequest(http.MethodPost, "/delete/"+itoa(id)+"/", nil),
		httptest.NewRequest(http.MethodPost, "/delete/999/", nil),
		httptest.NewRequest(http.MethodGet, "/receipt/abc/", nil),
	} {
		if rec := env.do(req, otherCookie); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", req.Method, req.URL.Path, rec.Code)
		}
	}

	if _, err := env.store.GetReceipt(context.Background(), ownerID, id); err != nil {
		t.Fatalf("owner's receipt must survive: %v", err)
	}
}

func TestDeleteOwnReceipt(t *testing.T) {
	env := newTestEnv(t)
	cookie, userID := env.signup(t, "heidi")
	id := env.seed(t, userID, core.NewDate(2025, 1, 2), 500, core.CategoryOther, "Kiosk")

	rec := env.do(httptest.NewRequest(http.MethodPost, "/delete/"+itoa(id)+"/", nil), cookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard/" {
		t.Fatalf("expected 303 to dashboard, got %d", rec.Code)
	}
	if _, err := env.store.GetReceipt(context.Background(), userID, id); err == nil {
		t.Fatal("receipt should be gone")
	}
}

func fetchReport(t *testing.T, env *testEnv, cookie *http.Cookie, query string) reportPayload {
	t.Helper()
	rec := env.do(httptest.NewRequest(http.MethodGet, "/reports/data"+query, nil), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("reports data: expected 200, got %d", rec.Code)
	}
	var p reportPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return p
}

func TestReportData(t *testing.T) {
	env := newTestEnv(t)
	cookie, userID := env.signup(t, "ivan")
	_, otherID := env.signup(t, "judy")

	env.seed(t, userID, core.NewDate(2025, 1, 5), 1000, core.CategoryFood, "A")       // Sunday
	env.seed(t, userID, core.NewDate(2025, 1, 20), 2000, core.CategoryTransport, "B") // Monday
	env.seed(t, userID, core.NewDate(2025, 2, 10), 3000, core.CategoryFood, "C")      // Monday
	env.seed(t, userID, core.NewDate(2025, 3, 1), 9900, core.CategoryFood, "outside")
	env.seed(t, otherID, core.NewDate(2025, 1, 6), 7700, core.CategoryFood, "foreign")

	p := fetchReport(t, env, cookie, "?start_date=2025-01-01&end_date=2025-02-28")
	if p.StartDate != "2025-01-01" || p.EndDate != "2025-02-28" {
		t.Fatalf("unexpected window %s..%s", p.StartDate, p.EndDate)
	}
	if strings.Join(p.MonthlyLabels, ",") != "Jan 2025,Feb 2025" {
		t.Fatalf("unexpected monthly labels %v", p.MonthlyLabels)
	}
	if p.MonthlyTotals[0] != 30 || p.MonthlyTotals[1] != 30 {
		t.Fatalf("unexpected monthly totals %v", p.MonthlyTotals)
	}
	if strings.Join(p.CategoryLabels, ",") != "Food & Dining,Transportation" {
		t.Fatalf("unexpected category labels %v", p.CategoryLabels)
	}
	if p.WeeklyData != [7]float64{10, 50, 0, 0, 0, 0, 0} {
		t.Fatalf("unexpected weekly data %v", p.WeeklyData)
	}
	if p.Count != 3 || p.Total != "60.00" {
		t.Fatalf("unexpected totals: count %d total %s", p.Count, p.Total)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/reports/?start_date=2025-01-01&end_date=2025-02-28", nil), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("reports page: expected 200, got %d", rec.Code)
	}
	for _, want := range []string{`id="report-data"`, `"weekly_data":[10,50,0,0,0,0,0]`, `"monthly_labels":["Jan 2025","Feb 2025"]`} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("reports page missing %s", want)
		}
	}
}

func TestReportMalformedDatesFallBack(t *testing.T) {
	env := newTestEnv(t)
	cookie, _ := env.signup(t, "kim")
	p := fetchReport(t, env, cookie, "?start_date=not-a-date&end_date=2025-13-40")
	if p.StartDate == "" || p.EndDate == "" || p.Count != 0 {
		t.Fatalf("expected a defaulted empty report, got %+v", p)
	}
	if p.WeeklyData != [7]float64{} || len(p.CategoryPercentages) != 0 {
		t.Fatalf("empty report must have zero series, got %+v", p)
	}
}

func TestReportCacheInvalidatedOnUpload(t *testing.T) {
	env := newTestEnv(t)
	cookie, userID := env.signup(t, "leo")
	query := "?start_date=2025-01-01&end_date=2025-12-31"

	if p := fetchReport(t, env, cookie, query); p.Count != 0 {
		t.Fatalf("expected empty report, got %d", p.Count)
	}
	if env.srv.reportCache.Size() != 1 {
		t.Fatalf("report should be cached")
	}

	rec := env.do(uploadRequest(t, map[string]string{
		"date": "2025-06-01", "amount": "4.20", "category": "health",
	}, pngHeader), cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("upload failed: %d", rec.Code)
	}
	if env.srv.reportCache.Size() != 0 {
		t.Fatalf("upload must invalidate the user's cached reports")
	}
	if p := fetchReport(t, env, cookie, query); p.Count != 1 {
		t.Fatalf("expected fresh report with one receipt, got %d", p.Count)
	}

	list, _ := env.store.ListReceipts(context.Background(), userID)
	env.do(httptest.NewRequest(http.MethodPost, "/delete/"+itoa(list[0].ID)+"/", nil), cookie)
	if p := fetchReport(t, env, cookie, query); p.Count != 0 {
		t.Fatalf("expected report without deleted receipt, got %d", p.Count)
	}
}

func TestExports(t *testing.T) {
	env := newTestEnv(t)
	cookie, userID := env.signup(t, "mia")
	env.seed(t, userID, core.NewDate(2025, 1, 5), 1000, core.CategoryFood, "Deli")
	env.seed(t, userID, core.NewDate(2025, 2, 5), 250, core.CategoryTransport, "Bus")

	tests := []struct {
		path        string
		filename    string
		contentType string
		firstLine   string
	}{
		{"/export/", "receipts_export.csv", "text/csv", "date,vendor,category,amount"},
		{"/export/report/", "spending_report.csv", "text/csv", "Date,Vendor,Category,Amount"},
		{"/export/?format=xlsx", "receipts_export.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodGet, tt.path, nil), cookie)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("content type %q, want %q", got, tt.contentType)
			}
			if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, tt.filename) {
				t.Errorf("disposition %q, want filename %s", got, tt.filename)
			}
			if tt.firstLine != "" {
				lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
				if strings.TrimSpace(lines[0]) != tt.firstLine || len(lines) != 3 {
					t.Errorf("unexpected csv body %q", rec.Body.String())
				}
			} else if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
				t.Errorf("xlsx body should be a zip archive")
			}
		})
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/export/report/", nil), cookie)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if strings.TrimSpace(lines[1]) != "2025-02-05,Bus,Transportation,2.50" {
		t.Errorf("report rows must be newest first with labels, got %q", lines[1])
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.srv.store = failingPinger{}
	rec := env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil), nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"not ready"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return context.DeadlineExceeded }

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
