package http

import (
	"errors"
	"io"
	"net/http"

	"receipts/internal/core"
	applog "receipts/internal/log"
	"receipts/internal/services"
)

type uploadPage struct {
	Form       services.UploadForm
	Errors     services.FieldErrors
	Categories []core.Category
}

func newUploadPage(form services.UploadForm, errs services.FieldErrors) uploadPage {
	return uploadPage{Form: form, Errors: errs, Categories: core.Categories()}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home", nil)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	u := mustUser(r)
	summary, err := s.receipts.Dashboard(r.Context(), u.ID)
	if err != nil {
		s.failRequest(w, r, "Failed to load dashboard", err, applog.OpList)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard", summary)
}

func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "upload", newUploadPage(services.UploadForm{}, nil))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	u := mustUser(r)
	req, err := ParseUploadRequest(w, r)
	if errors.Is(err, errRequestTooLarge) {
		s.render(w, r, http.StatusRequestEntityTooLarge, "upload",
			newUploadPage(services.UploadForm{}, services.FieldErrors{"image": "Image files must be 10 MB or smaller."}))
		return
	}
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	defer req.Close()

	_, err = s.receipts.Upload(r.Context(), u.ID, req.Form, req.ImageReader())
	var fieldErrs services.FieldErrors
	if errors.As(err, &fieldErrs) {
		s.render(w, r, http.StatusUnprocessableEntity, "upload", newUploadPage(req.Form, fieldErrs))
		return
	}
	if err != nil {
		s.failRequest(w, r, "Failed to save receipt", err, applog.OpCreate)
		return
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	u := mustUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.failRequest(w, r, "Invalid receipt id", err, applog.OpDelete)
		return
	}
	if err := s.receipts.Delete(r.Context(), u.ID, id); err != nil {
		s.failRequest(w, r, "Failed to delete receipt", err, applog.OpDelete)
		return
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (s *Server) handleReceiptDetail(w http.ResponseWriter, r *http.Request) {
	u := mustUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.failRequest(w, r, "Invalid receipt id", err, applog.OpRead)
		return
	}
	rc, err := s.receipts.Get(r.Context(), u.ID, id)
	if err != nil {
		s.failRequest(w, r, "Failed to load receipt", err, applog.OpRead)
		return
	}
	s.render(w, r, http.StatusOK, "receipt_detail", rc)
}

func (s *Server) handleReceiptImage(w http.ResponseWriter, r *http.Request) {
	u := mustUser(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.failRequest(w, r, "Invalid receipt id", err, applog.OpRead)
		return
	}
	body, contentType, err := s.receipts.OpenImage(r.Context(), u.ID, id)
	if err != nil {
		s.failRequest(w, r, "Failed to open receipt image", err, applog.OpRead)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, body); err != nil {
		s.logger.WarnContext(r.Context(), "Image stream interrupted", applog.FieldReceiptID, id, applog.FieldError, err)
	}
}
