package exporter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
)

// WriteFunc renders one output file
type WriteFunc func(w io.Writer) error

type batchEntry struct {
	path  string
	rows  int
	write WriteFunc
}

// Batch publishes a set of output files together. Commit stages every file
// next to its destination and renames them into place only once all of
// them were written. A failed commit leaves the previous outputs as they
// were.
type Batch struct {
	logger  *slog.Logger
	entries []batchEntry
}

// NewBatch creates an empty batch
func NewBatch(logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{logger: logger}
}

// AddCSV adds a CSV file to the batch
func (b *Batch) AddCSV(path string, options WriteOptions) {
	b.entries = append(b.entries, batchEntry{
		path: path,
		rows: len(options.Records),
		write: func(w io.Writer) error {
			return WriteCSV(w, options)
		},
	})
}

// Add adds a file rendered by write
func (b *Batch) Add(path string, write WriteFunc) {
	b.entries = append(b.entries, batchEntry{path: path, write: write})
}

// Paths returns the destination of every file in insertion order
func (b *Batch) Paths() []string {
	paths := make([]string, len(b.entries))
	for i, e := range b.entries {
		paths[i] = e.path
	}
	return paths
}

// Commit writes every file of the batch
func (b *Batch) Commit(ctx context.Context) error {
	staged := make([]string, len(b.entries))
	cleanup := func() {
		for _, tmp := range staged {
			if tmp != "" {
				os.Remove(tmp)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range b.entries {
		i, entry := i, entry
		g.Go(func() error {
			tmp, err := stage(gctx, entry)
			staged[i] = tmp
			return err
		})
	}
	if err := g.Wait(); err != nil {
		cleanup()
		return err
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return err
	}

	if err := b.publish(ctx, staged); err != nil {
		cleanup()
		return err
	}
	return nil
}

// rename is swapped in tests to simulate a failing filesystem
var rename = os.Rename

// publish renames every staged file into place. Existing destinations are
// moved aside first; if any rename fails, the files already published are
// removed and the previous ones restored. Published entries are cleared
// from staged.
func (b *Batch) publish(ctx context.Context, staged []string) error {
	for _, entry := range b.entries {
		if info, err := os.Lstat(entry.path); err == nil && !info.Mode().IsRegular() {
			return apperrors.NewStorageError("output path is not a regular file", nil).WithContext("path", entry.path)
		}
	}

	backups := make([]string, len(b.entries))
	published := make([]bool, len(b.entries))
	rollback := func() {
		for i := len(b.entries) - 1; i >= 0; i-- {
			if published[i] {
				os.Remove(b.entries[i].path)
			}
			if backups[i] != "" {
				if err := rename(backups[i], b.entries[i].path); err != nil {
					b.logger.ErrorContext(ctx, "Failed to restore previous output",
						slog.String("path", b.entries[i].path),
						slog.String("backup", backups[i]),
						slog.String("error", err.Error()))
				}
			}
		}
	}

	for i, entry := range b.entries {
		if _, err := os.Lstat(entry.path); err == nil {
			backup := staged[i] + ".prev"
			if err := rename(entry.path, backup); err != nil {
				rollback()
				return apperrors.NewStorageError("failed to move previous output aside", err).WithContext("path", entry.path)
			}
			backups[i] = backup
		}
		if err := rename(staged[i], entry.path); err != nil {
			rollback()
			return apperrors.NewStorageError("failed to publish output", err).WithContext("path", entry.path)
		}
		published[i] = true
		staged[i] = ""
	}

	for i, entry := range b.entries {
		if backups[i] != "" {
			os.Remove(backups[i])
		}
		b.logger.DebugContext(ctx, "Output written",
			slog.String("path", entry.path),
			slog.Int("records", entry.rows))
	}
	return nil
}

// stage writes entry to a temporary file in the destination directory and
// returns its name; the file is removed again on failure.
func stage(ctx context.Context, entry batchEntry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(entry.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create output directory", err).WithContext("path", dir)
	}

	base := filepath.Base(entry.path)
	ext := filepath.Ext(base)
	f, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, ext)+"-*"+ext)
	if err != nil {
		return "", apperrors.NewStorageError("failed to create staging file", err).WithContext("path", entry.path)
	}

	buf := bufio.NewWriter(f)
	err = entry.write(buf)
	if err == nil {
		err = buf.Flush()
	}
	if err == nil {
		err = f.Chmod(0644)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", apperrors.NewStorageError(fmt.Sprintf("failed to write %s", base), err).WithContext("path", entry.path)
	}
	return f.Name(), nil
}
