package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/logger"
	"local.dev/portfolio-backend/internal/metrics"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

var owner = auth.Session{UID: "owner", Email: "owner@example.com", Admin: true}

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR fake image body")

func newTestService(t *testing.T) (*Service, string, *audit.Logger) {
	t.Helper()
	st, err := store.NewMemory("")
	if err != nil {
		t.Fatal(err)
	}
	al := audit.New(st, logger.Nop(), metrics.Nop(), 24*time.Hour)
	root := t.TempDir()
	return NewService(NewLocalUploader(root, "/uploads"), al), root, al
}

func TestBlobSHA(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"},
		{"hello\n", "ce013625030ba8dba906f756967f9e9ca394464a"},
	}
	for _, tt := range tests {
		if got := BlobSHA([]byte(tt.in)); got != tt.want {
			t.Errorf("BlobSHA(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestUpload_WritesAndRejectsDuplicate(t *testing.T) {
	svc, root, al := newTestService(t)
	ctx := context.Background()

	res, err := svc.Upload(ctx, owner, "products", "Photo.PNG", bytes.NewReader(pngData))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if res.Path != "products/Photo.png" || res.FileName != "Photo.png" {
		t.Errorf("result = %+v", res)
	}
	if res.URL != "/uploads/products/Photo.png" {
		t.Errorf("URL = %q", res.URL)
	}
	if res.SHA != BlobSHA(pngData) {
		t.Errorf("SHA = %s, want %s", res.SHA, BlobSHA(pngData))
	}
	got, err := os.ReadFile(filepath.Join(root, "products", "Photo.png"))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if !bytes.Equal(got, pngData) {
		t.Errorf("written bytes differ")
	}

	_, err = svc.Upload(ctx, owner, "products", "Photo.png", bytes.NewReader(pngData))
	if !models.IsKind(err, models.KindConflict) {
		t.Errorf("duplicate err = %v, want conflict", err)
	}

	page, err := al.List(ctx, "", audit.MaxLimit)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Logs) != 1 || page.Logs[0].Action != audit.ActionUpload {
		t.Errorf("audit logs = %+v, want one upload entry", page.Logs)
	}
}

func TestUpload_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	tests := []struct {
		name string
		dir  string
		file string
		data []byte
	}{
		{"empty", "", "a.png", nil},
		{"not an image", "", "notes.txt", []byte("just some text")},
		{"escaping path", "../secret", "a.png", pngData},
		{"hidden dir", "images/.git", "a.png", pngData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), owner, tt.dir, tt.file, bytes.NewReader(tt.data))
			if !models.IsKind(err, models.KindValidation) {
				t.Errorf("err = %v, want validation", err)
			}
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	svc, _, _ := newTestService(t)
	big := make([]byte, MaxBytes+1)
	copy(big, pngData)
	_, err := svc.Upload(context.Background(), owner, "", "big.png", bytes.NewReader(big))
	if !models.IsKind(err, models.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestCleanDir(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", DefaultDir, false},
		{"/products/", "products", false},
		{"a\\b", "a/b", false},
		{"a/./b", "a/b", false},
		{"a/../..", "", true},
		{"..", "", true},
	}
	for _, tt := range tests {
		got, err := cleanDir(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("cleanDir(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("cleanDir(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeBase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo"},
		{"my photo (1).jpg", "my-photo--1-"},
		{"../../evil.png", "evil"},
		{"C:\\Users\\me\\cat.gif", "cat"},
		{"", "img"},
		{".png", "img"},
	}
	for _, tt := range tests {
		if got := sanitizeBase(tt.in); got != tt.want {
			t.Errorf("sanitizeBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
