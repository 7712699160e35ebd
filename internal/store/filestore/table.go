package filestore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// table reads and writes one CSV file holding rows of T.
type table[T any] struct {
	path      string
	header    []string
	marshal   func(T) []string
	unmarshal func([]string) (T, error)
}

// readAll returns every row. A missing file holds no rows.
func (t table[T]) readAll() ([]T, error) {
	f, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(t.path), err)
	}
	defer f.Close()

	rows, err := t.read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(t.path), err)
	}
	return rows, nil
}

func (t table[T]) read(r io.Reader) ([]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(t.header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	out := make([]T, 0, len(records)-1)
	for i, rec := range records[1:] {
		v, err := t.unmarshal(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// writeAll replaces the file contents atomically.
func (t table[T]) writeAll(rows []T) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(t.header); err != nil {
		tmp.Close()
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(t.marshal(row)); err != nil {
			tmp.Close()
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing %s: %w", filepath.Base(t.path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(t.path), err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(t.path), err)
	}
	return nil
}

// append adds rows to the end of the file, writing the header first if
// the file is new.
func (t table[T]) append(rows ...T) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating dir: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(t.path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filepath.Base(t.path), err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(t.header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, row := range rows {
		if err := cw.Write(t.marshal(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
