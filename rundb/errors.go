package rundb

import "errors"

var (
	// ErrNoFreeID means every run id up to the configured maximum is
	// already taken in the base directory.
	ErrNoFreeID = errors.New("no free run id")

	// ErrIntegrity means the compressed row file did not decompress to
	// the exact bytes of the uncompressed original. Both files are kept.
	ErrIntegrity = errors.New("compressed row file does not match original")

	// ErrReservedName means a blob name collides with one of the run's
	// own files (data.tsv, data.tsv.gz, metadata.json).
	ErrReservedName = errors.New("blob name is reserved")
)
