package fs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

func TestFSBackend_New_RequiresBaseDir(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for empty base directory")
	}
}

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	key := "uploads/ab/cdef_report.txt"

	// Upload
	data := []byte("hello fs")
	if err := backend.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		t.Fatalf("upload: %v", err)
	}

	// GetObjectMeta
	meta, err := backend.GetObjectMeta(ctx, key)
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	if meta.Size != int64(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), meta.Size)
	}
	if meta.Key != key {
		t.Fatalf("expected key %q, got %q", key, meta.Key)
	}

	// Download
	rc, err := backend.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != string(data) {
		t.Fatalf("download mismatch: %q", string(got))
	}

	// Delete
	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Ensure file removed
	if _, err := os.Stat(filepath.Join(tmp, key)); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	// Empty shard directories are cleaned up as well
	if _, err := os.Stat(filepath.Join(tmp, "uploads")); !os.IsNotExist(err) {
		t.Fatalf("expected empty directories removed, stat err=%v", err)
	}
}

func TestFSBackend_DetectsContentType(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	key := "pages/index.html"
	html := []byte("<html><body><h1>Hi</h1></body></html>")
	if err := backend.UploadWithParams(ctx, bytes.NewReader(html), simplecms.UploadParams{ObjectKey: key}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	meta, err := backend.GetObjectMeta(ctx, key)
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	if !strings.HasPrefix(meta.ContentType, "text/html") {
		t.Fatalf("expected detected html content type, got %q", meta.ContentType)
	}
}

func TestFSBackend_URLMethods_NoPrefix(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()
	if _, err := backend.GetDownloadURL(ctx, "a/b", ""); err == nil {
		t.Fatalf("expected error without urlPrefix")
	}
}

func TestFSBackend_DownloadURL_WithPrefix(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp, URLPrefix: "http://localhost:8080/files"})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()

	url, err := backend.GetDownloadURL(ctx, "uploads/ab/cdef", "quarterly report.pdf")
	if err != nil {
		t.Fatalf("download url: %v", err)
	}
	want := "http://localhost:8080/files/download/uploads/ab/cdef?filename=quarterly+report.pdf"
	if url != want {
		t.Fatalf("expected %q, got %q", want, url)
	}

	url, err = backend.GetDownloadURL(ctx, "uploads/ab/cdef", "")
	if err != nil {
		t.Fatalf("download url: %v", err)
	}
	if url != "http://localhost:8080/files/download/uploads/ab/cdef" {
		t.Fatalf("unexpected url without filename: %q", url)
	}
}

func TestFSBackend_MissingObject(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()

	if _, err := backend.GetObjectMeta(ctx, "missing/key"); err == nil {
		t.Fatalf("expected error for missing meta")
	}
	if _, err := backend.Download(ctx, "missing/key"); err == nil {
		t.Fatalf("expected error for missing download")
	}
	if err := backend.Delete(ctx, "missing/key"); err == nil {
		t.Fatalf("expected error for missing delete")
	}
}
