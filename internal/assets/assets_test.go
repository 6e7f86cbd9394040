package assets

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-logo")

func newLocalDedup(t *testing.T) (*Deduplicator, *LocalDir) {
	t.Helper()
	dir := NewLocalDir(filepath.Join(t.TempDir(), "marcas"), "/marcas")
	dir.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return NewDeduplicator(dir, zap.NewNop()), dir
}

func TestSameUploadTwiceIsDuplicate(t *testing.T) {
	dedup, dir := newLocalDedup(t)
	ctx := context.Background()

	first, err := dedup.Store(ctx, "mi logo.png", "image/png", pngBytes)
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if first.Duplicate {
		t.Fatal("first upload must not be a duplicate")
	}
	wantName := "1700000000000-" + Hash(pngBytes)[:8] + "-mi_logo.png"
	if first.FileName != wantName || first.URL != "/marcas/"+wantName {
		t.Fatalf("unexpected result %+v", first)
	}

	second, err := dedup.Store(ctx, "other-name.png", "image/png", pngBytes)
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if !second.Duplicate || second.URL != first.URL {
		t.Fatalf("expected duplicate of %s, got %+v", first.URL, second)
	}

	entries, err := os.ReadDir(dir.Dir())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single stored file, got %d", len(entries))
	}
}

func TestDifferentBytesStoredSeparately(t *testing.T) {
	dedup, _ := newLocalDedup(t)
	ctx := context.Background()

	a, err := dedup.Store(ctx, "a.svg", "image/svg+xml", []byte("<svg>a</svg>"))
	if err != nil {
		t.Fatalf("upload a: %v", err)
	}
	b, err := dedup.Store(ctx, "b.svg", "image/svg+xml", []byte("<svg>b</svg>"))
	if err != nil {
		t.Fatalf("upload b: %v", err)
	}
	if b.Duplicate || a.URL == b.URL {
		t.Fatalf("expected distinct uploads, got %+v and %+v", a, b)
	}
}

func TestValidateRejectsTypeAndSize(t *testing.T) {
	if err := Validate("image/gif", 10); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if err := Validate("", 10); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType for empty type, got %v", err)
	}
	if err := Validate("image/png", MaxSize+1); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if err := Validate("image/png", 0); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if err := Validate("image/jpeg; charset=binary", MaxSize); err != nil {
		t.Fatalf("expected parameters to be ignored, got %v", err)
	}
}

func TestStoreRejectsOversizedPayload(t *testing.T) {
	dedup, dir := newLocalDedup(t)
	big := bytes.Repeat([]byte{1}, MaxSize+1)
	if _, err := dedup.Store(context.Background(), "big.png", "image/png", big); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := os.Stat(dir.Dir()); !os.IsNotExist(err) {
		t.Fatal("rejected upload must not create the directory")
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"logo.png":            "logo.png",
		"mi logo (1).png":     "mi_logo__1_.png",
		"../../etc/passwd":    "passwd",
		`C:\fakepath\ñu.webp`: "_u.webp",
		"":                    "logo",
	}
	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

type failingTarget struct{}

func (failingTarget) Name() string { return "failing" }

func (failingTarget) Find(context.Context, string) (Result, bool, error) {
	return Result{}, false, errors.New("lookup down")
}

func (failingTarget) Put(context.Context, string, string, string, []byte) (Result, error) {
	return Result{}, errors.New("bucket down")
}

func TestStoreSurfacesPutFailure(t *testing.T) {
	dedup := NewDeduplicator(failingTarget{}, zap.NewNop())
	_, err := dedup.Store(context.Background(), "a.png", "image/png", pngBytes)
	if err == nil || !strings.Contains(err.Error(), "bucket down") {
		t.Fatalf("expected put failure, got %v", err)
	}
}
