package http

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
)

// ResponseBuilder provides a fluent API for non-HTML responses: JSON payloads
// and file downloads.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       []byte
	err        error
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// NoStore forbids caching of user-specific data.
func (b *ResponseBuilder) NoStore() *ResponseBuilder {
	return b.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
}

// Attachment marks the response as a download named filename.
func (b *ResponseBuilder) Attachment(filename, contentType string) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.headers["Content-Disposition"] = mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	return b
}

// JSON encodes v as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("encode json: %w", err)
		return b
	}
	b.headers["Content-Type"] = "application/json"
	b.body = data
	return b
}

func (b *ResponseBuilder) Body(content []byte) *ResponseBuilder {
	b.body = content
	return b
}

// Err reports an encoding failure recorded while building.
func (b *ResponseBuilder) Err() error {
	return b.err
}

// Write sends the built response. A builder holding an encoding error writes a bare 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}
