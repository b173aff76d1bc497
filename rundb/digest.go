package rundb

// This file contains the whole-file content digest used to verify that a
// compressed row file decompresses to exactly the bytes that were
// appended.

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// filesEqual reports whether decompressing the gzip file at compressed
// yields byte-for-byte the contents of uncompressed. Both files are read
// in full; acceptable for this domain's data volumes.
func filesEqual(uncompressed, compressed string) (bool, error) {
	plain, err := fileDigest(uncompressed)
	if err != nil {
		return false, err
	}
	unzipped, err := gzipDigest(compressed)
	if err != nil {
		return false, err
	}
	return bytes.Equal(plain, unzipped), nil
}

func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("failed to digest %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

func gzipDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read gzip header of %s: %w", path, err)
	}
	defer gz.Close()

	h := md5.New()
	if _, err := io.Copy(h, gz); err != nil {
		return nil, fmt.Errorf("failed to digest %s: %w", path, err)
	}
	return h.Sum(nil), nil
}
