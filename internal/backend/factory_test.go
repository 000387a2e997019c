package backend

import (
	"context"
	"path/filepath"
	"testing"

	"receipts/internal/config"
	"receipts/internal/storage"
	"receipts/internal/storage/memory"
)

func TestFromAppConfig(t *testing.T) {
	cfg := config.Defaults()
	c, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if c.Data != SQLiteBackend || c.Images != LocalImages {
		t.Fatalf("unexpected backend config %+v", c)
	}

	cfg.ImageBackend = "gcs"
	if _, err := FromAppConfig(cfg); err == nil {
		t.Fatal("gcs without bucket should fail")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory local", Config{Data: MemoryBackend, Images: LocalImages, ImageDir: "x"}, false},
		{"sqlite without path", Config{Data: SQLiteBackend, Images: LocalImages, ImageDir: "x"}, true},
		{"unknown data", Config{Data: "sheets", Images: LocalImages, ImageDir: "x"}, true},
		{"unknown images", Config{Data: MemoryBackend, Images: "s3"}, true},
		{"local without dir", Config{Data: MemoryBackend, Images: LocalImages}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	f := NewFactory(nil)

	b, err := f.CreateBackend(context.Background(), Config{
		Data:     MemoryBackend,
		Images:   LocalImages,
		ImageDir: filepath.Join(dir, "images"),
	})
	if err != nil {
		t.Fatalf("CreateBackend memory: %v", err)
	}
	if _, ok := b.Store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", b.Store)
	}
	if b.Publisher != nil {
		t.Fatal("publisher should be nil without AMQP")
	}
	if err := b.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	b, err = f.CreateBackend(context.Background(), Config{
		Data:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(dir, "db", "receipts.db"),
		Images:       LocalImages,
		ImageDir:     filepath.Join(dir, "images"),
	})
	if err != nil {
		t.Fatalf("CreateBackend sqlite: %v", err)
	}
	if _, ok := b.Store.(*storage.SQLiteRepository); !ok {
		t.Fatalf("expected sqlite store, got %T", b.Store)
	}
	if err := b.Store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := b.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}
