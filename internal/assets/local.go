package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalDir keeps uploads in a directory served under URLPrefix.
type LocalDir struct {
	dir       string
	urlPrefix string
	now       func() time.Time
}

func NewLocalDir(dir, urlPrefix string) *LocalDir {
	return &LocalDir{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/"), now: time.Now}
}

func (l *LocalDir) Name() string { return "local" }

func (l *LocalDir) Dir() string { return l.dir }

// Find re-hashes every file in the directory; unreadable entries are skipped.
func (l *LocalDir) Find(_ context.Context, hash string) (Result, bool, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("read upload dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			continue
		}
		if Hash(contents) == hash {
			return l.result(entry.Name()), true, nil
		}
	}
	return Result{}, false, nil
}

func (l *LocalDir) Put(_ context.Context, hash, fileName, _ string, payload []byte) (Result, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create upload dir: %w", err)
	}
	name := fmt.Sprintf("%d-%s-%s", l.now().UnixMilli(), hash[:8], fileName)
	if err := os.WriteFile(filepath.Join(l.dir, name), payload, 0o644); err != nil {
		return Result{}, fmt.Errorf("write upload: %w", err)
	}
	return l.result(name), nil
}

func (l *LocalDir) result(name string) Result {
	return Result{URL: l.urlPrefix + "/" + name, FileName: name}
}
