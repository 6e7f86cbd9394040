// Package assets stores uploaded brand logos, reusing an existing copy when
// the same bytes were uploaded before.
package assets

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// MaxSize is the largest accepted upload.
const MaxSize = 5 << 20

var allowedTypes = map[string]bool{
	"image/jpeg":    true,
	"image/jpg":     true,
	"image/png":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

var (
	ErrEmpty           = errors.New("empty upload")
	ErrTooLarge        = errors.New("upload exceeds 5 MiB")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var uploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tresde_uploads_total",
		Help: "Logo uploads by outcome",
	},
	[]string{"target", "outcome"},
)

// Result describes where an upload ended up.
type Result struct {
	URL       string
	FileName  string
	Duplicate bool
}

// Target is a place uploads can be written to and looked up by content hash.
type Target interface {
	Name() string
	Find(ctx context.Context, hash string) (Result, bool, error)
	Put(ctx context.Context, hash, fileName, contentType string, payload []byte) (Result, error)
}

// Deduplicator validates an upload and stores it unless identical bytes are
// already present in the target.
type Deduplicator struct {
	target Target
	logger *zap.Logger
}

func NewDeduplicator(target Target, logger *zap.Logger) *Deduplicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduplicator{target: target, logger: logger}
}

func (d *Deduplicator) Target() string {
	return d.target.Name()
}

func (d *Deduplicator) Store(ctx context.Context, fileName, contentType string, payload []byte) (Result, error) {
	if err := Validate(contentType, int64(len(payload))); err != nil {
		return Result{}, err
	}
	hash := Hash(payload)

	found, ok, err := d.target.Find(ctx, hash)
	switch {
	case err != nil:
		// A failed lookup only costs a duplicate copy; keep going.
		d.logger.Warn("duplicate lookup failed", zap.String("target", d.target.Name()), zap.Error(err))
	case ok:
		uploadsTotal.WithLabelValues(d.target.Name(), "duplicate").Inc()
		found.Duplicate = true
		return found, nil
	}

	res, err := d.target.Put(ctx, hash, SanitizeName(fileName), contentType, payload)
	if err != nil {
		uploadsTotal.WithLabelValues(d.target.Name(), "error").Inc()
		return Result{}, fmt.Errorf("store upload: %w", err)
	}
	uploadsTotal.WithLabelValues(d.target.Name(), "stored").Inc()
	return res, nil
}

// Validate checks the declared content type and size of an upload.
func Validate(contentType string, size int64) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !allowedTypes[strings.ToLower(mediaType)] {
		return ErrUnsupportedType
	}
	if size == 0 {
		return ErrEmpty
	}
	if size > MaxSize {
		return ErrTooLarge
	}
	return nil
}

// Hash is the hex MD5 digest used as the content identity. It only detects
// accidental re-uploads and is not a security boundary.
func Hash(payload []byte) string {
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeName keeps the base name with anything outside [a-zA-Z0-9.-]
// replaced by an underscore.
func SanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "logo"
	}
	return unsafeNameChars.ReplaceAllString(base, "_")
}
