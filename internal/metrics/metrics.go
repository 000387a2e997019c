package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReceiptsUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipts_uploaded_total",
		Help: "Total number of receipts stored, labelled by category.",
	}, []string{"category"})

	ReceiptsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipts_deleted_total",
		Help: "Total number of receipts deleted by their owners.",
	})

	UploadRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipts_upload_rejections_total",
		Help: "Uploads refused before storage, labelled by form field.",
	}, []string{"field"})

	ReportsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipts_reports_built_total",
		Help: "Total number of spending reports aggregated from the store.",
	})

	ReportCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipts_report_cache_total",
		Help: "Report cache lookups, labelled by result (hit or miss).",
	}, []string{"result"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipts_events_published_total",
		Help: "Receipt events sent to the broker, labelled by type and status.",
	}, []string{"type", "status"})

	SheetsMirrored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipts_sheets_mirrored_total",
		Help: "Receipt events applied to the spreadsheet mirror, labelled by type and status.",
	}, []string{"type", "status"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipts_http_rate_limited_total",
		Help: "Requests rejected by the per-IP rate limiter.",
	})

	SuspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipts_http_suspicious_requests_total",
		Help: "Requests flagged by the suspicious pattern detector.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "receipts_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds, labelled by method and status class.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"method", "status"})
)
