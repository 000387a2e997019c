package images

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestPrepareSniffsAndKeys(t *testing.T) {
	now := time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC)
	up, err := Prepare(bytes.NewReader(pngHeader), now)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if up.ContentType != "image/png" {
		t.Fatalf("expected image/png, got %s", up.ContentType)
	}
	if !strings.HasPrefix(up.Key, "receipts/2025/04/") || !strings.HasSuffix(up.Key, ".png") {
		t.Fatalf("unexpected key %s", up.Key)
	}
	body, _ := io.ReadAll(up.Body)
	if !bytes.Equal(body, pngHeader) {
		t.Fatalf("body must replay sniffed bytes")
	}
}

func TestPrepareRejects(t *testing.T) {
	if _, err := Prepare(strings.NewReader("just some text"), time.Now()); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := Prepare(strings.NewReader(""), time.Now()); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType for empty, got %v", err)
	}

	big := io.MultiReader(bytes.NewReader(pngHeader), bytes.NewReader(make([]byte, MaxUploadBytes)))
	up, err := Prepare(big, time.Now())
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, err := io.Copy(io.Discard, up.Body); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key := "receipts/2025/01/abc.png"
	if err := s.Put(ctx, key, "image/png", bytes.NewReader(pngHeader)); err != nil {
		t.Fatalf("put: %v", err)
	}
	rc, ct, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if ct != "image/png" || !bytes.Equal(data, pngHeader) {
		t.Fatalf("unexpected content %q %q", ct, data)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := s.Open(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("deleting a missing image should be a no-op, got %v", err)
	}
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	s, _ := NewLocalStore(t.TempDir())
	for _, key := range []string{"", "../etc/passwd", "/abs/path.png", "a/../../b.png"} {
		if err := s.Put(context.Background(), key, "image/png", bytes.NewReader(pngHeader)); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("%q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

type recordingWriter struct {
	steps []string
}

func (w *recordingWriter) Write(p []byte) (int, error) { return len(p), nil }

func (w *recordingWriter) Close() error {
	w.steps = append(w.steps, "close")
	return nil
}

func TestCommitObjectAbortsBeforeClose(t *testing.T) {
	w := &recordingWriter{}
	abort := func() { w.steps = append(w.steps, "abort") }

	r := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(ErrTooLarge))
	if err := commitObject(w, abort, r); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if strings.Join(w.steps, ",") != "abort,close" {
		t.Fatalf("writer must be aborted before close, got %v", w.steps)
	}

	w = &recordingWriter{}
	if err := commitObject(w, abort, strings.NewReader("whole")); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if strings.Join(w.steps, ",") != "close" {
		t.Fatalf("successful copy should only close, got %v", w.steps)
	}
}
