// Package images stores the photographs attached to receipts.
package images

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
)

// MaxUploadBytes caps a single receipt image.
const MaxUploadBytes = 10 << 20

var (
	ErrTooLarge        = errors.New("image exceeds 10 MiB")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrNotFound        = errors.New("image not found")
	ErrInvalidKey      = errors.New("invalid image key")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store persists image bytes under opaque keys.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// Upload is a sniffed, size-checked image ready to be stored.
type Upload struct {
	Key         string
	ContentType string
	Body        io.Reader
}

// Prepare sniffs the content type of r and assigns a new key dated by now.
// The returned body replays the sniffed bytes and fails with ErrTooLarge past MaxUploadBytes.
func Prepare(r io.Reader, now time.Time) (Upload, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Upload{}, fmt.Errorf("read image header: %w", err)
	}
	if len(head) == 0 {
		return Upload{}, ErrUnsupportedType
	}
	ct := http.DetectContentType(head)
	ext, ok := allowedTypes[ct]
	if !ok {
		return Upload{}, fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
	return Upload{
		Key:         NewKey(now, ext),
		ContentType: ct,
		Body:        &limitedReader{r: br, remaining: MaxUploadBytes},
	}, nil
}

// NewKey returns receipts/<yyyy>/<mm>/<uuid><ext>.
func NewKey(now time.Time, ext string) string {
	return path.Join("receipts", now.UTC().Format("2006"), now.UTC().Format("01"), uuid.NewString()+ext)
}

// ContentTypeForKey infers a content type from the key extension.
func ContentTypeForKey(key string) string {
	ext := path.Ext(key)
	for ct, e := range allowedTypes {
		if e == ext {
			return ct
		}
	}
	return "application/octet-stream"
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
