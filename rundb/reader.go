package rundb

// This file contains the run reader: metadata parsing, restartable row
// iteration over the compressed row file, blob access, and a post-hoc
// integrity check for finalized runs.

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/klauspost/compress/gzip"
)

// Reader opens a finalized run for replay. Values are returned as the
// text they were stored as; converting them back to numbers is up to the
// caller, typically guided by the "columns" metadata key.
type Reader struct {
	dir      string
	dataPath string
	metadata map[string]any
}

// OpenReader opens run id inside basedir. It fails with a not-exist
// error (matchable via errors.Is with fs.ErrNotExist) when the metadata
// file or the compressed row file is absent. Readers never mutate a run.
func OpenReader(basedir string, id int) (*Reader, error) {
	dir := filepath.Join(basedir, strconv.Itoa(id))

	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open run %d metadata: %w", id, err)
	}
	var metadata map[string]any
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse run %d metadata: %w", id, err)
	}

	dataPath := filepath.Join(dir, DataFileGz)
	if _, err := os.Stat(dataPath); err != nil {
		return nil, fmt.Errorf("failed to open run %d row file: %w", id, err)
	}

	return &Reader{dir: dir, dataPath: dataPath, metadata: metadata}, nil
}

// Dir returns the run directory path.
func (r *Reader) Dir() string { return r.dir }

// DataPath returns the compressed row file path.
func (r *Reader) DataPath() string { return r.dataPath }

// Metadata returns the metadata mapping parsed at open.
func (r *Reader) Metadata() map[string]any { return r.metadata }

// Rows returns a fresh iterator over all rows from the start of the
// decompressed stream. Each call restarts from the beginning. Close the
// iterator when done.
func (r *Reader) Rows() (*RowIter, error) {
	f, err := os.Open(r.dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open row file: %w", err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decompress row file: %w", err)
	}
	cr := csv.NewReader(gz)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	return &RowIter{f: f, gz: gz, cr: cr}, nil
}

// AllRows materializes every row, in order. It is restartable: each call
// re-reads the full file.
func (r *Reader) AllRows() ([][]string, error) {
	it, err := r.Rows()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows [][]string
	for it.Next() {
		row := it.Row()
		rows = append(rows, append([]string(nil), row...))
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Blob returns the raw bytes of a previously stored blob. A missing blob
// yields a not-exist error.
func (r *Reader) Blob(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", name, err)
	}
	return data, nil
}

// RowIter lazily decodes rows from one pass over the compressed stream.
type RowIter struct {
	f   *os.File
	gz  *gzip.Reader
	cr  *csv.Reader
	row []string
	err error
}

// Next advances to the next row. It returns false at the end of the
// stream or on error; check Err afterwards.
func (it *RowIter) Next() bool {
	if it.err != nil {
		return false
	}
	row, err := it.cr.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		it.err = err
		return false
	}
	it.row = row
	return true
}

// Row returns the current row. Valid until the next call to Next.
func (it *RowIter) Row() []string { return it.row }

// Err returns the first decode error encountered, if any.
func (it *RowIter) Err() error {
	if it.err != nil {
		return fmt.Errorf("failed to decode row: %w", it.err)
	}
	return nil
}

// Close releases the underlying file.
func (it *RowIter) Close() error {
	it.gz.Close()
	return it.f.Close()
}

// Verify checks a finalized run: the compressed stream must decode fully
// (gzip checksums intact) and, when the metadata carries a "columns"
// list, every row must have exactly that many fields. It returns the
// number of rows checked.
func Verify(basedir string, id int) (int, error) {
	r, err := OpenReader(basedir, id)
	if err != nil {
		return 0, err
	}

	wantCols := -1
	if cols, ok := r.metadata["columns"].([]any); ok {
		wantCols = len(cols)
	}

	it, err := r.Rows()
	if err != nil {
		return 0, err
	}
	defer it.Close()

	n := 0
	for it.Next() {
		if wantCols >= 0 && len(it.Row()) != wantCols {
			return n, fmt.Errorf("%w: row %d has %d fields, metadata declares %d columns",
				ErrIntegrity, n, len(it.Row()), wantCols)
		}
		n++
	}
	if err := it.Err(); err != nil {
		return n, fmt.Errorf("%w: %s", ErrIntegrity, err)
	}
	return n, nil
}

// Entry pairs a run id with its parsed metadata, for listings.
type Entry struct {
	ID       int
	Metadata map[string]any
}

// List loads every readable finalized run in basedir, ordered by id.
// Runs that cannot be opened (unfinalized or damaged) are skipped.
func List(basedir string) ([]Entry, error) {
	dirents, err := os.ReadDir(basedir)
	if err != nil {
		return nil, fmt.Errorf("failed to read base directory: %w", err)
	}

	var entries []Entry
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		id, err := strconv.Atoi(d.Name())
		if err != nil || id < 0 {
			continue
		}
		r, err := OpenReader(basedir, id)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{ID: id, Metadata: r.Metadata()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}
