package http

import (
	"bytes"
	"net/http"
	"strconv"

	"receipts/internal/export"
	applog "receipts/internal/log"
	"receipts/internal/metrics"
	"receipts/internal/reports"
)

// reportPayload is the chart data shared by the reports page and /reports/data.
type reportPayload struct {
	StartDate           string     `json:"start_date"`
	EndDate             string     `json:"end_date"`
	WeeklyData          [7]float64 `json:"weekly_data"`
	MonthlyLabels       []string   `json:"monthly_labels"`
	MonthlyTotals       []float64  `json:"monthly_totals"`
	CategoryLabels      []string   `json:"category_labels"`
	CategoryTotals      []float64  `json:"category_totals"`
	CategoryPercentages []float64  `json:"category_percentages"`
	Total               string     `json:"total"`
	Count               int        `json:"count"`
}

func newReportPayload(rep reports.Report) reportPayload {
	return reportPayload{
		StartDate:           rep.Range.Start.String(),
		EndDate:             rep.Range.End.String(),
		WeeklyData:          rep.Weekly,
		MonthlyLabels:       rep.Monthly.Labels,
		MonthlyTotals:       rep.Monthly.Totals,
		CategoryLabels:      rep.Categories.Labels,
		CategoryTotals:      rep.Categories.Totals,
		CategoryPercentages: rep.Categories.Percentages,
		Total:               rep.Total.String(),
		Count:               rep.Count,
	}
}

type categoryRow struct {
	Label      string
	Total      float64
	Percentage float64
}

type reportsPage struct {
	Payload    reportPayload
	Categories []categoryRow
	Total      string
	Count      int
}

// report resolves the window from the query and serves the report from the
// cache when an identical window was computed since the user's last change.
func (s *Server) report(r *http.Request, userID int64) (reports.Report, error) {
	q := ParseReportQuery(r)
	rng := s.reports.Resolve(q.StartDate, q.EndDate)
	key := reportCachePrefix(userID) + rng.Key()

	if rep, ok := s.reportCache.Get(key); ok {
		metrics.ReportCache.WithLabelValues("hit").Inc()
		return rep, nil
	}
	metrics.ReportCache.WithLabelValues("miss").Inc()

	rep, err := s.reports.Report(r.Context(), userID, rng)
	if err != nil {
		return reports.Report{}, err
	}
	metrics.ReportsBuilt.Inc()
	s.reportCache.Set(key, rep)
	return rep, nil
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	u := mustUser(r)
	rep, err := s.report(r, u.ID)
	if err != nil {
		s.failRequest(w, r, "Failed to build report", err, applog.OpReport)
		return
	}

	page := reportsPage{
		Payload: newReportPayload(rep),
		Total:   rep.Total.String(),
		Count:   rep.Count,
	}
	for i, label := range rep.Categories.Labels {
		page.Categories = append(page.Categories, categoryRow{
			Label:      label,
			Total:      rep.Categories.Totals[i],
			Percentage: rep.Categories.Percentages[i],
		})
	}
	s.render(w, r, http.StatusOK, "reports", page)
}

func (s *Server) handleReportData(w http.ResponseWriter, r *http.Request) {
	u := mustUser(r)
	rep, err := s.report(r, u.ID)
	if err != nil {
		s.failRequest(w, r, "Failed to build report", err, applog.OpReport)
		return
	}
	resp := NewResponse().NoStore().JSON(newReportPayload(rep))
	if err := resp.Err(); err != nil {
		s.failRequest(w, r, "Failed to encode report", err, applog.OpReport)
		return
	}
	resp.Write(w)
}

// handleExportDataset downloads every receipt of the user as raw fields,
// CSV by default or XLSX with ?format=xlsx.
func (s *Server) handleExportDataset(w http.ResponseWriter, r *http.Request) {
	u := mustUser(r)
	receipts, err := s.receipts.List(r.Context(), u.ID)
	if err != nil {
		s.failRequest(w, r, "Failed to list receipts for export", err, applog.OpExport)
		return
	}

	format := export.ParseFormat(r.URL.Query().Get("format"))
	var buf bytes.Buffer
	if err := export.NewDataset(receipts).Write(&buf, format); err != nil {
		s.failRequest(w, r, "Failed to encode export", err, applog.OpExport)
		return
	}
	s.logger.InfoContext(r.Context(), "Receipts exported",
		applog.FieldUserID, u.ID, applog.FieldCount, len(receipts), "format", string(format))
	NewResponse().
		NoStore().
		Attachment(format.Filename(), format.ContentType()).
		Header("Content-Length", strconv.Itoa(buf.Len())).
		Body(buf.Bytes()).
		Write(w)
}

// handleExportReport downloads the spending report CSV with display labels.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	u := mustUser(r)
	receipts, err := s.receipts.List(r.Context(), u.ID)
	if err != nil {
		s.failRequest(w, r, "Failed to list receipts for report export", err, applog.OpExport)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReportCSV(&buf, receipts); err != nil {
		s.failRequest(w, r, "Failed to encode report export", err, applog.OpExport)
		return
	}
	NewResponse().
		NoStore().
		Attachment(export.ReportFilename, "text/csv").
		Body(buf.Bytes()).
		Write(w)
}
