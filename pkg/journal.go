// Package pkg provides utilities shared by the zest commands.
package pkg

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const defaultJournalDir = "zest-journal"

// ErrJournalClosed is returned by Append once the journal is closed.
var ErrJournalClosed = errors.New("journal closed")

// Journal is an append-only log of entries of type T kept on disk. Entries are
// replayed in append order. It is safe for concurrent use.
type Journal[T any] interface {
	Path() string
	Len() int
	Append(entry T) error
	Replay(fn func(seq int, entry T) error) error
	Close() error
	Discard() error
}

type gobJournal[T any] struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *gob.Encoder
	entries int
}

// OpenJournal creates an empty journal file in dir. An empty dir means a
// zest-journal directory under the system temp dir.
func OpenJournal[T any](dir string) (Journal[T], error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), defaultJournalDir)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Error("Failed to create journal directory", "path", dir, "error", err)
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "run-*.gob")
	if err != nil {
		slog.Error("Failed to create journal file", "dir", dir, "error", err)
		return nil, fmt.Errorf("create journal file: %w", err)
	}

	slog.Debug("Opened journal", "path", file.Name())

	return &gobJournal[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// Path implements Journal.
func (j *gobJournal[T]) Path() string {
	return j.path
}

// Len implements Journal.
func (j *gobJournal[T]) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.entries
}

// Append implements Journal.
func (j *gobJournal[T]) Append(entry T) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return fmt.Errorf("append to %s: %w", j.path, ErrJournalClosed)
	}

	if err := j.encoder.Encode(entry); err != nil {
		slog.Error("Failed to encode journal entry", "path", j.path, "seq", j.entries, "error", err)
		return fmt.Errorf("encode entry %d: %w", j.entries, err)
	}

	j.entries++

	return nil
}

// Replay implements Journal. It stops at the first error fn returns.
func (j *gobJournal[T]) Replay(fn func(seq int, entry T) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(j.path)
	if err != nil {
		slog.Error("Failed to open journal", "path", j.path, "error", err)
		return fmt.Errorf("open journal: %w", err)
	}
	defer closeQuietly(file, j.path)

	return replay(file, j.entries, fn)
}

// Close implements Journal. Closing twice is a no-op.
func (j *gobJournal[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.close()
}

// Discard implements Journal. It closes the journal and deletes its file.
func (j *gobJournal[T]) Discard() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	closeErr := j.close()

	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		slog.Error("Failed to remove journal", "path", j.path, "error", err)
		return errors.Join(closeErr, fmt.Errorf("remove journal: %w", err))
	}

	return closeErr
}

func (j *gobJournal[T]) close() error {
	if j.file == nil {
		return nil
	}

	err := j.file.Close()
	j.file = nil

	if err != nil {
		slog.Error("Failed to close journal", "path", j.path, "error", err)
		return fmt.Errorf("close journal: %w", err)
	}

	slog.Debug("Closed journal", "path", j.path, "entries", j.entries)

	return nil
}

func replay[T any](r io.Reader, entries int, fn func(int, T) error) error {
	decoder := gob.NewDecoder(r)

	for seq := range entries {
		// gob leaves zero fields untouched, so each entry decodes into a fresh value.
		var entry T
		if err := decoder.Decode(&entry); err != nil {
			return fmt.Errorf("decode entry %d: %w", seq, err)
		}

		if err := fn(seq, entry); err != nil {
			return err
		}
	}

	return nil
}

func closeQuietly(file *os.File, path string) {
	if err := file.Close(); err != nil {
		slog.Warn("Failed to close journal reader", "path", path, "error", err)
	}
}
