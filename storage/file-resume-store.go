package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/anacrolix/sync"
	"github.com/anacrolix/torrent/metainfo"
)

const resumeFileExt = ".fastresume"

type NewFileResumeStoreOpts struct {
	Dir    string
	Logger *slog.Logger
}

// Keeps each blob in "<hex info-hash>.fastresume" in a directory. Writes go through a temporary
// file and a rename, so readers never see a partial blob.
type fileResumeStore struct {
	dir    string
	logger *slog.Logger
	// Serializes writes to the same file.
	mu sync.Mutex
}

var _ ResumeStoreLister = (*fileResumeStore)(nil)

func NewFileResumeStore(dir string) (ResumeStoreLister, error) {
	return NewFileResumeStoreWithOpts(NewFileResumeStoreOpts{Dir: dir})
}

func NewFileResumeStoreWithOpts(opts NewFileResumeStoreOpts) (ResumeStoreLister, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	err := os.MkdirAll(opts.Dir, 0o750)
	if err != nil {
		return nil, err
	}
	return &fileResumeStore{
		dir:    opts.Dir,
		logger: opts.Logger.With(slog.String("dir", opts.Dir)),
	}, nil
}

func (me *fileResumeStore) path(ih metainfo.Hash) string {
	return filepath.Join(me.dir, ih.HexString()+resumeFileExt)
}

func (me *fileResumeStore) Get(ih metainfo.Hash) ([]byte, error) {
	b, err := os.ReadFile(me.path(ih))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (me *fileResumeStore) Put(ih metainfo.Hash, b []byte) error {
	me.mu.Lock()
	defer me.mu.Unlock()
	path := me.path(ih)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, err = f.Write(b)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	err = os.Rename(tmp, path)
	if err != nil {
		return err
	}
	me.logger.Debug("wrote resume data", slog.String("infohash", ih.HexString()), slog.Int("bytes", len(b)))
	return nil
}

func (me *fileResumeStore) Delete(ih metainfo.Hash) error {
	err := os.Remove(me.path(ih))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// Lists the info-hashes of well-named files. Others are skipped with a warning.
func (me *fileResumeStore) List() (ret []metainfo.Hash, err error) {
	entries, err := os.ReadDir(me.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), resumeFileExt)
		if !ok || e.IsDir() {
			continue
		}
		var ih metainfo.Hash
		if err := ih.FromHexString(name); err != nil {
			me.logger.Warn("skipping resume file", slog.String("name", e.Name()), slog.Any("err", err))
			continue
		}
		ret = append(ret, ih)
	}
	return
}

func (me *fileResumeStore) Close() error {
	return nil
}

func (me *fileResumeStore) String() string {
	return fmt.Sprintf("resume files in %q", me.dir)
}
