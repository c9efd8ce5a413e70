// Package uploads stores profile pictures on local disk. It implements
// eduAuth.FileStore.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrOutsideRoot is returned by Remove for paths not produced by Save.
var ErrOutsideRoot = errors.New("path outside upload directory")

// MaxSize bounds a single stored file.
const MaxSize = 5 << 20

var ErrTooLarge = errors.New("upload exceeds size limit")

// Local writes files under Dir and hands back "<Prefix>/<name>" paths, which
// is what gets persisted on the principal and served under the same prefix.
type Local struct {
	Dir    string
	Prefix string
}

func NewLocal(dir, prefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Dir: dir, Prefix: strings.TrimSuffix(prefix, "/")}, nil
}

// Save stores r under a fresh uuid name that keeps the original extension.
func (l *Local) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stored := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(name)))

	f, err := os.OpenFile(filepath.Join(l.Dir, stored), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, MaxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(filepath.Join(l.Dir, stored))
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path.Join(l.Prefix, stored), nil
}

// Remove deletes a file previously returned by Save. A missing file is not
// an error.
func (l *Local) Remove(_ context.Context, stored string) error {
	name := path.Base(stored)
	if name == "." || name == "/" || path.Join(l.Prefix, name) != path.Clean(stored) {
		return ErrOutsideRoot
	}
	if err := os.Remove(filepath.Join(l.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
