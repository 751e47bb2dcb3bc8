package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/gofrs/flock"
)

type codec struct {
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

var (
	jsonCodec = codec{
		marshal: func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		},
		unmarshal: json.Unmarshal,
	}
	yamlCodec = codec{
		marshal: yaml.Marshal,
		unmarshal: func(b []byte, v any) error {
			return yaml.Unmarshal(b, v)
		},
	}
)

// File is a remote.Store persisted to a JSON or YAML
// file, chosen by extension (.yaml and .yml select YAML).
//
// Updates take an exclusive lock on "<path>.lock", merge
// with the current file content and replace the file
// atomically, so several processes may share it.
type File struct {
	path  string
	codec codec
	lock  *flock.Flock

	mu     sync.RWMutex
	values map[string]any
}

// OpenFile loads the store at path. A missing file is an
// empty store; its directory is created on first write.
func OpenFile(path string) (*File, error) {
	const errCtx = "opening file store"

	c := jsonCodec

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		c = yamlCodec
	}

	f := &File{
		path:  path,
		codec: c,
		lock:  flock.New(path + ".lock"),
	}

	values, err := f.read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	f.values = values

	return f, nil
}

// Path returns the file backing the store.
func (f *File) Path() string { return f.path }

// Get returns the value stored at key as of the last
// load or update.
func (f *File) Get(key string) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.values[key]

	return v, ok
}

// Update stores value at key and persists the store; a
// nil value deletes the key.
func (f *File) Update(key string, value any) error {
	const errCtx = "updating file store"

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("%s: lock: %w", errCtx, err)
	}

	defer func() {
		if err := f.lock.Unlock(); err != nil {
			slog.Warn(
				"cannot release store lock",
				"path", f.path,
				"error", err,
			)
		}
	}()

	values, err := f.read()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if value == nil {
		delete(values, key)
	} else {
		values[key] = value
	}

	if err := f.write(values); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	f.values = values

	return nil
}

// Reload re-reads the file, picking up writes made by
// other processes.
func (f *File) Reload() error {
	const errCtx = "reloading file store"

	values, err := f.read()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	f.mu.Lock()
	f.values = values
	f.mu.Unlock()

	return nil
}

func (f *File) read() (map[string]any, error) {
	values := make(map[string]any)

	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	if len(strings.TrimSpace(string(b))) == 0 {
		return values, nil
	}

	if err := f.codec.unmarshal(b, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}

	if values == nil {
		values = make(map[string]any)
	}

	return values, nil
}

func (f *File) write(values map[string]any) error {
	b, err := f.codec.marshal(values)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmp, err := os.CreateTemp(
		filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp",
	)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error wins

		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}

	return nil
}
