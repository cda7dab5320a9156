package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Row is one decoded line of a table, in column order.
type Row []string

// Table is a flat CSV file with a fixed header. All access goes through the
// table's lock: any number of readers, or a single writer whose read phase
// is covered by the same lock as its write.
type Table struct {
	name    string
	path    string
	columns []string

	mu sync.RWMutex
}

// NewTable returns a table stored at path. The file is not touched until
// EnsureInitialized or a write is called.
func NewTable(name, path string, columns []string) *Table {
	return &Table{name: name, path: path, columns: slices.Clone(columns)}
}

// Tx gives access to a table while its lock is held. It must not be used
// after the function it was passed to returns.
type Tx struct {
	t        *Table
	writable bool
}

// Read runs fn while holding the table's read lock.
func (t *Table) Read(fn func(tx *Tx) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fn(&Tx{t: t})
}

// Write runs fn while holding the table's write lock, so a load followed by
// an append or rewrite inside fn is one critical section.
func (t *Table) Write(fn func(tx *Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureInitialized(); err != nil {
		return err
	}
	return fn(&Tx{t: t, writable: true})
}

// EnsureInitialized creates the file with only the header row when it is
// missing, empty or holds nothing but blank lines. Any other content is
// never modified.
func (t *Table) EnsureInitialized() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ensureInitialized()
}

// LoadAll returns every data row in file order.
func (t *Table) LoadAll() ([]Row, error) {
	var rows []Row
	err := t.Read(func(tx *Tx) error {
		var err error
		rows, err = tx.LoadAll()
		return err
	})
	return rows, err
}

// AppendOne adds a row at the end of the file. Uniqueness is the caller's
// concern.
func (t *Table) AppendOne(row Row) error {
	return t.Write(func(tx *Tx) error { return tx.AppendOne(row) })
}

// RewriteAll replaces all data rows, keeping the header.
func (t *Table) RewriteAll(rows []Row) error {
	return t.Write(func(tx *Tx) error { return tx.RewriteAll(rows) })
}

// LoadAll returns every data row in file order. A missing or empty file
// reads as a header-only table.
func (tx *Tx) LoadAll() ([]Row, error) {
	f, err := os.Open(tx.t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", tx.t.name, err)
	}
	defer f.Close()

	return tx.t.decode(f)
}

// AppendOne adds a row without rewriting existing ones.
func (tx *Tx) AppendOne(row Row) error {
	if !tx.writable {
		return fmt.Errorf("append to %s: read-only transaction", tx.t.name)
	}
	if len(row) != len(tx.t.columns) {
		return fmt.Errorf("append to %s: got %d fields, want %d", tx.t.name, len(row), len(tx.t.columns))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("encode %s: %w", tx.t.name, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode %s: %w", tx.t.name, err)
	}

	f, err := os.OpenFile(tx.t.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", tx.t.name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat %s: %w", tx.t.name, err)
	}

	if err := appendRecord(f, info.Size(), buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("append to %s: %w", tx.t.name, err)
	}
	return f.Close()
}

// appendTarget is the part of *os.File that appendRecord needs.
type appendTarget interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
}

// appendRecord writes one encoded record at the end of f, which is size
// bytes long. On failure f is cut back to size so no partial record stays
// behind.
func appendRecord(f appendTarget, size int64, record []byte) error {
	_, err := f.Write(record)
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		if terr := f.Truncate(size); terr != nil {
			return errors.Join(err, fmt.Errorf("truncate: %w", terr))
		}
		return err
	}
	return nil
}

// RewriteAll replaces all data rows with rows, keeping the header. The new
// content is written to a temporary file and renamed over the table.
func (tx *Tx) RewriteAll(rows []Row) error {
	if !tx.writable {
		return fmt.Errorf("rewrite %s: read-only transaction", tx.t.name)
	}
	for _, row := range rows {
		if len(row) != len(tx.t.columns) {
			return fmt.Errorf("rewrite %s: got %d fields, want %d", tx.t.name, len(row), len(tx.t.columns))
		}
	}
	return tx.t.replace(rows)
}

func (t *Table) ensureInitialized() error {
	info, err := os.Stat(t.path)
	switch {
	case err == nil && info.Size() > 0:
		blank, err := t.isBlank()
		if err != nil || !blank {
			return err
		}
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat %s: %w", t.name, err)
	}
	return t.replace(nil)
}

// isBlank reports whether the file holds no record at all, e.g. only
// newlines. Such a file gets a header like an empty one.
func (t *Table) isBlank() (bool, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", t.name, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	_, err = cr.Read()
	return errors.Is(err, io.EOF), nil
}

func (t *Table) decode(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(t.columns)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, t.corrupt(err)
	}
	if !slices.Equal(header, t.columns) {
		return nil, &CorruptDataError{Table: t.name, Line: 1, Err: fmt.Errorf("unexpected header %q", header)}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, t.corrupt(err)
		}
		rows = append(rows, Row(rec))
	}
}

func (t *Table) corrupt(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &CorruptDataError{Table: t.name, Line: pe.StartLine, Err: pe.Err}
	}
	return fmt.Errorf("read %s: %w", t.name, err)
}

func (t *Table) replace(rows []Row) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.columns); err != nil {
		return fmt.Errorf("encode %s: %w", t.name, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("encode %s: %w", t.name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode %s: %w", t.name, err)
	}
	return writeFileAtomic(t.path, buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
