// Package filekv stores each key as <dir>/<key>.json.
package filekv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var rename = os.Rename

type KV struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) (*KV, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &KV{dir: dir}, nil
}

func (k *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	path, err := k.path(key)
	if err != nil {
		return nil, false, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// SetMany stages every value in a temp file before renaming any of them, so
// a write or disk-full failure leaves all keys at their old values. If a
// rename fails, keys already replaced are restored from their previous
// contents. A process crash between renames can still leave keys out of step.
func (k *KV) SetMany(ctx context.Context, values map[string][]byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	staged := make(map[string]string, len(values))
	cleanup := func() {
		for tmp := range staged {
			_ = os.Remove(tmp)
		}
	}

	for key, raw := range values {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		path, err := k.path(key)
		if err != nil {
			cleanup()
			return err
		}
		tmp, err := os.CreateTemp(k.dir, key+".*.tmp")
		if err != nil {
			cleanup()
			return err
		}
		staged[tmp.Name()] = path
		if _, err := tmp.Write(raw); err != nil {
			_ = tmp.Close()
			cleanup()
			return err
		}
		if err := tmp.Sync(); err != nil {
			_ = tmp.Close()
			cleanup()
			return err
		}
		if err := tmp.Close(); err != nil {
			cleanup()
			return err
		}
	}

	previous := make(map[string][]byte, len(staged))
	for _, path := range staged {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			previous[path] = raw
		case !errors.Is(err, fs.ErrNotExist):
			cleanup()
			return err
		}
	}

	replaced := make([]string, 0, len(staged))
	for tmp, path := range staged {
		if err := rename(tmp, path); err != nil {
			cleanup()
			if rerr := restore(replaced, previous); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
		delete(staged, tmp)
		replaced = append(replaced, path)
	}
	return nil
}

func restore(paths []string, previous map[string][]byte) error {
	var errs []error
	for _, path := range paths {
		raw, existed := previous[path]
		if !existed {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if err := os.WriteFile(path, raw, 0o600); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (k *KV) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(k.dir, key+".json"), nil
}
