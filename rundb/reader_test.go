package rundb

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderNotFound(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenReader(dir, 0)
	require.ErrorIs(t, err, fs.ErrNotExist)

	w, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, w.Append(1))
	require.NoError(t, w.Close())

	// Finalized run opens; a different id still fails.
	_, err = OpenReader(dir, 0)
	require.NoError(t, err)
	_, err = OpenReader(dir, 1)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReaderMissingBlob(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, w.Append(1))
	require.NoError(t, w.Close())

	r, err := OpenReader(dir, 0)
	require.NoError(t, err)
	_, err = r.Blob("nope.png")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReaderRowsRestartable(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(dir)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, w.Append(i, float64(i)*0.5))
	}
	require.NoError(t, w.Close())

	r, err := OpenReader(dir, 0)
	require.NoError(t, err)

	// Two full passes through the iterator, then two through AllRows;
	// every pass sees the whole file from the start.
	for pass := 0; pass < 2; pass++ {
		it, err := r.Rows()
		require.NoError(t, err)
		n := 0
		for it.Next() {
			require.Len(t, it.Row(), 2)
			n++
		}
		require.NoError(t, it.Err())
		require.NoError(t, it.Close())
		require.Equal(t, 5, n)
	}
	for pass := 0; pass < 2; pass++ {
		rows, err := r.AllRows()
		require.NoError(t, err)
		require.Len(t, rows, 5)
		require.Equal(t, []string{"0", "0"}, rows[0])
		require.Equal(t, []string{"4", "2"}, rows[4])
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(dir)
	require.NoError(t, err)
	w.Metadata["columns"] = []string{"time", "v"}
	require.NoError(t, w.Append(0.0, 1.0))
	require.NoError(t, w.Append(1.0, 2.0))
	require.NoError(t, w.Close())

	n, err := Verify(dir, 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestVerifyColumnMismatch(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(dir)
	require.NoError(t, err)
	w.Metadata["columns"] = []string{"time", "v", "missing"}
	require.NoError(t, w.Append(0.0, 1.0))
	require.NoError(t, w.Close())

	_, err = Verify(dir, 0)
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestList(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 3; i++ {
		w, err := Open(dir)
		require.NoError(t, err)
		w.Metadata["type"] = "0D"
		require.NoError(t, w.Append(i))
		require.NoError(t, w.Close())
	}

	// An unfinalized run is skipped by listings.
	w, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, w.Append(99))

	entries, err := List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		require.Equal(t, i, e.ID)
		require.Equal(t, "0D", e.Metadata["type"])
	}
}
