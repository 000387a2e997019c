package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"receipts/internal/images"
	"receipts/internal/services"
)

// maxUploadRequestBytes leaves room for the form fields around the image.
const maxUploadRequestBytes = images.MaxUploadBytes + 1<<20

// UploadRequest is the decoded upload form. Image is nil when no file was sent.
type UploadRequest struct {
	Form  services.UploadForm
	Image multipart.File
}

// Close releases the uploaded file, if any.
func (u *UploadRequest) Close() error {
	if u.Image == nil {
		return nil
	}
	return u.Image.Close()
}

// ImageReader returns the image as an io.Reader, or a nil interface when absent.
func (u *UploadRequest) ImageReader() io.Reader {
	if u.Image == nil {
		return nil
	}
	return u.Image
}

var errRequestTooLarge = errors.New("request body too large")

// ParseUploadRequest reads the multipart upload form. Oversized bodies yield
// errRequestTooLarge; a missing image is not an error.
func ParseUploadRequest(w http.ResponseWriter, r *http.Request) (*UploadRequest, error) {
	if r.ContentLength > maxUploadRequestBytes {
		return nil, errRequestTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequestBytes)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errRequestTooLarge
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, err
		}
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
	}

	req := &UploadRequest{
		Form: services.UploadForm{
			Date:     sanitizeInput(r.FormValue("date")),
			Amount:   sanitizeInput(r.FormValue("amount")),
			Category: sanitizeInput(r.FormValue("category")),
			Vendor:   sanitizeInput(r.FormValue("vendor")),
		},
	}
	if r.MultipartForm != nil {
		if f, _, err := r.FormFile("image"); err == nil {
			req.Image = f
		}
	}
	return req, nil
}

// ReportQuery holds the raw report window; bounds are resolved by the reports service.
type ReportQuery struct {
	StartDate string
	EndDate   string
}

func ParseReportQuery(r *http.Request) ReportQuery {
	q := r.URL.Query()
	return ReportQuery{
		StartDate: sanitizeInput(q.Get("start_date")),
		EndDate:   sanitizeInput(q.Get("end_date")),
	}
}

// CredentialsForm is the login form.
type CredentialsForm struct {
	Username string
	Password string
	Next     string
}

func ParseCredentialsForm(r *http.Request) (CredentialsForm, error) {
	if err := r.ParseForm(); err != nil {
		return CredentialsForm{}, err
	}
	return CredentialsForm{
		Username: sanitizeInput(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
		Next:     r.Form.Get("next"),
	}, nil
}
