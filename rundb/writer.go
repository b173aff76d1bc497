package rundb

// This file contains the run writer: id allocation, the streamed
// tab-separated row file, metadata and blob storage, and the
// compress-verify-remove finalization sequence.

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Reserved filenames inside a run directory.
const (
	DataFile     = "data.tsv"
	DataFileGz   = "data.tsv.gz"
	MetadataFile = "metadata.json"
)

const (
	// DefaultMaxID bounds the sequential id scan in Open.
	DefaultMaxID = 1000000
	// DefaultSyncEvery is the number of appended rows between fsyncs.
	DefaultSyncEvery = 10
)

// Writer owns one run directory and streams rows into it.
//
// Rows go to data.tsv until Close, which writes the metadata side-file,
// produces a verified data.tsv.gz and removes the uncompressed original.
// The caller populates Metadata freely before Close; it is saved exactly
// once, at Close. Appending rows or blobs after Close is not supported.
type Writer struct {
	// Metadata is an open string-keyed mapping saved as indented JSON
	// when the writer is closed. Unrecognized keys are preserved as-is.
	Metadata map[string]any

	id       int
	dir      string
	dataPath string

	f  *os.File
	cw *csv.Writer

	syncEvery int
	sinceSync int

	logger zerolog.Logger
}

type writerConfig struct {
	maxID     int
	syncEvery int
	logger    zerolog.Logger
}

// WriterOption configures a Writer at Open time.
type WriterOption func(*writerConfig)

// WithMaxID bounds the id scan. Open fails with ErrNoFreeID once every
// id up to and including max is taken.
func WithMaxID(max int) WriterOption {
	return func(c *writerConfig) { c.maxID = max }
}

// WithSyncEvery sets how many appended rows may accumulate before the
// row file is flushed and fsynced.
func WithSyncEvery(n int) WriterOption {
	return func(c *writerConfig) { c.syncEvery = n }
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) WriterOption {
	return func(c *writerConfig) { c.logger = logger }
}

// Open creates basedir if absent and allocates the lowest free integer
// run id by creating its directory. Losing a directory-creation race
// moves on to the next integer, so concurrent writers in the same
// basedir each get a distinct run.
func Open(basedir string, opts ...WriterOption) (*Writer, error) {
	cfg := writerConfig{
		maxID:     DefaultMaxID,
		syncEvery: DefaultSyncEvery,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.MkdirAll(basedir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	id := -1
	for i := 0; i <= cfg.maxID; i++ {
		err := os.Mkdir(filepath.Join(basedir, strconv.Itoa(i)), 0o755)
		if err == nil {
			id = i
			break
		}
		if os.IsExist(err) {
			continue
		}
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	if id < 0 {
		return nil, fmt.Errorf("%w: max id %d", ErrNoFreeID, cfg.maxID)
	}

	dir := filepath.Join(basedir, strconv.Itoa(id))
	dataPath := filepath.Join(dir, DataFile)

	f, err := os.Create(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create row file: %w", err)
	}

	cw := csv.NewWriter(f)
	cw.Comma = '\t'

	cfg.logger.Debug().Int("id", id).Str("dir", dir).Msg("Run directory allocated")

	return &Writer{
		Metadata:  make(map[string]any),
		id:        id,
		dir:       dir,
		dataPath:  dataPath,
		f:         f,
		cw:        cw,
		syncEvery: cfg.syncEvery,
		logger:    cfg.logger,
	}, nil
}

// ID returns the integer run id within the base directory.
func (w *Writer) ID() int { return w.id }

// Dir returns the run directory path.
func (w *Writer) Dir() string { return w.dir }

// DataPath returns the current row file path: data.tsv while the run is
// open, data.tsv.gz after a successful Close.
func (w *Writer) DataPath() string { return w.dataPath }

// Append writes one row of scalar values as a tab-delimited, CSV-escaped
// line. Values are serialized as text; see FormatValue for the encoding.
// Every Nth append the row file is flushed and fsynced to bound data
// loss on a crash.
func (w *Writer) Append(values ...any) error {
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = FormatValue(v)
	}
	if len(record) == 1 && record[0] == "" {
		// csv.Writer emits a single empty field as a blank line, which
		// csv.Reader silently skips on replay. Quote the field so the
		// row survives the round trip. The preceding Append always
		// flushed, so writing to the file directly cannot reorder.
		if _, err := w.f.WriteString("\"\"\n"); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	} else {
		if err := w.cw.Write(record); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
		w.cw.Flush()
		if err := w.cw.Error(); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	w.sinceSync++
	if w.sinceSync >= w.syncEvery {
		w.sinceSync = 0
		if err := w.f.Sync(); err != nil {
			return fmt.Errorf("failed to sync row file: %w", err)
		}
	}
	return nil
}

// AppendRows appends a batch of rows. The fsync cadence counts rows, not
// calls, so a large batch still syncs.
func (w *Writer) AppendRows(rows [][]any) error {
	for _, row := range rows {
		if err := w.Append(row...); err != nil {
			return err
		}
	}
	return nil
}

// AddBlob stores arbitrary bytes under name inside the run directory and
// returns the written path. The three reserved filenames are rejected
// with ErrReservedName and the existing file is left untouched.
func (w *Writer) AddBlob(name string, data []byte) (string, error) {
	switch name {
	case DataFile, DataFileGz, MetadataFile:
		return "", fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %q: %w", name, err)
	}
	return path, nil
}

// Close finalizes the run: metadata is written as indented JSON, the row
// file is flushed, fsynced and closed, a gzip copy is produced and
// verified byte-for-byte against the original, and only then is the
// original removed. On a digest mismatch Close returns ErrIntegrity and
// keeps both files for inspection; a failed removal is swallowed because
// the verified compressed copy is already authoritative.
func (w *Writer) Close() error {
	md, err := json.MarshalIndent(w.Metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, MetadataFile), md, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	w.cw.Flush()
	err = w.cw.Error()
	err = multierr.Append(err, w.f.Sync())
	err = multierr.Append(err, w.f.Close())
	if err != nil {
		return fmt.Errorf("failed to finalize row file: %w", err)
	}

	gzPath := w.dataPath + ".gz"
	if err := compressFile(w.dataPath, gzPath); err != nil {
		return err
	}

	equal, err := filesEqual(w.dataPath, gzPath)
	if err != nil {
		return fmt.Errorf("failed to verify compressed row file: %w", err)
	}
	if !equal {
		return fmt.Errorf("%w: keeping both %s and %s", ErrIntegrity, w.dataPath, gzPath)
	}

	if err := os.Remove(w.dataPath); err != nil {
		// Another process may still hold the file open. The compressed
		// copy is verified, so a stray original is harmless leftover.
		w.logger.Debug().Err(err).Str("path", w.dataPath).Msg("Failed to remove uncompressed row file")
	}
	w.dataPath = gzPath

	w.logger.Debug().Int("id", w.id).Str("data", w.dataPath).Msg("Run closed")
	return nil
}

// compressFile streams src through gzip into dst and fsyncs dst.
func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open row file for compression: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create compressed row file: %w", err)
	}

	gz := gzip.NewWriter(out)
	_, err = io.Copy(gz, in)
	err = multierr.Append(err, gz.Close())
	err = multierr.Append(err, out.Sync())
	err = multierr.Append(err, out.Close())
	if err != nil {
		return fmt.Errorf("failed to compress row file: %w", err)
	}
	return nil
}

// FormatValue serializes one scalar the way Append stores it on disk.
// Floats use the shortest representation that round-trips.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
