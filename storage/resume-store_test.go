package storage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResumeStore(t *testing.T, s ResumeStoreLister) {
	defer func() {
		require.NoError(t, s.Close())
	}()
	ih1 := metainfo.HashBytes([]byte("01234567890123456789"))
	ih2 := metainfo.HashBytes([]byte("abcdefghijabcdefghij"))

	_, err := s.Get(ih1)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(ih1), ErrNotFound)

	require.NoError(t, s.Put(ih1, []byte("d3:fooi1ee")))
	require.NoError(t, s.Put(ih2, []byte("de")))
	b, err := s.Get(ih1)
	require.NoError(t, err)
	assert.Equal(t, "d3:fooi1ee", string(b))

	// Returned slices don't alias the store.
	b[0] = 'x'
	b, err = s.Get(ih1)
	require.NoError(t, err)
	assert.Equal(t, "d3:fooi1ee", string(b))

	require.NoError(t, s.Put(ih1, []byte("d3:fooi2ee")))
	b, err = s.Get(ih1)
	require.NoError(t, err)
	assert.Equal(t, "d3:fooi2ee", string(b))

	ihs, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []metainfo.Hash{ih1, ih2}, ihs)

	require.NoError(t, s.Delete(ih1))
	_, err = s.Get(ih1)
	require.ErrorIs(t, err, ErrNotFound)
	ihs, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []metainfo.Hash{ih2}, ihs)
}

func TestMapResumeStore(t *testing.T) {
	testResumeStore(t, NewMapResumeStore())
}

func TestFileResumeStore(t *testing.T) {
	s, err := NewFileResumeStore(t.TempDir())
	require.NoError(t, err)
	testResumeStore(t, s)
}

func TestBoltResumeStore(t *testing.T) {
	s, err := NewBoltResumeStore(t.TempDir())
	require.NoError(t, err)
	testResumeStore(t, s)
}

func TestFileResumeStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileResumeStore(dir)
	require.NoError(t, err)
	ih := metainfo.HashBytes([]byte("01234567890123456789"))
	require.NoError(t, s.Put(ih, []byte("de")))
	b, err := os.ReadFile(filepath.Join(dir, ih.HexString()+".fastresume"))
	require.NoError(t, err)
	assert.Equal(t, "de", string(b))
	// No temporary files are left behind, and stray files aren't listed.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.fastresume"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o600))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	ihs, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []metainfo.Hash{ih}, ihs)
}

func TestBoltResumeStorePersists(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBoltResumeStore(dir)
	require.NoError(t, err)
	ih := metainfo.HashBytes([]byte("01234567890123456789"))
	require.NoError(t, s.Put(ih, []byte("de")))
	require.NoError(t, s.Close())
	s, err = NewBoltResumeStore(dir)
	require.NoError(t, err)
	defer s.Close()
	b, err := s.Get(ih)
	require.NoError(t, err)
	assert.Equal(t, "de", string(b))
}

func TestFileResumeStoreWithOpts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "resume")
	s, err := NewFileResumeStoreWithOpts(NewFileResumeStoreOpts{
		Dir:    dir,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	testResumeStore(t, s)
	_, err = os.Stat(dir)
	require.NoError(t, err)
}
