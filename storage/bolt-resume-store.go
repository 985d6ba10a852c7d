package storage

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	"go.etcd.io/bbolt"
)

const boltResumeDbFileName = "resume.db"

var resumeDataBucketKey = []byte("resume-data")

// Keeps blobs in a bbolt database in a single bucket keyed by raw info-hash.
type boltResumeStore struct {
	db     *bbolt.DB
	logger *slog.Logger
}

var _ ResumeStoreLister = (*boltResumeStore)(nil)

func NewBoltResumeStore(dir string) (ResumeStoreLister, error) {
	return NewBoltResumeStoreLogger(dir, slog.Default())
}

func NewBoltResumeStoreLogger(dir string, logger *slog.Logger) (ResumeStoreLister, error) {
	p := filepath.Join(dir, boltResumeDbFileName)
	db, err := bbolt.Open(p, 0o660, &bbolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", p, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resumeDataBucketKey)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &boltResumeStore{db, logger.With(slog.String("db", p))}, nil
}

func (me *boltResumeStore) Get(ih metainfo.Hash) (ret []byte, err error) {
	err = me.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(resumeDataBucketKey).Get(ih[:])
		if v == nil {
			return ErrNotFound
		}
		// Values are only valid for the transaction.
		ret = bytes.Clone(v)
		return nil
	})
	return
}

func (me *boltResumeStore) Put(ih metainfo.Hash, b []byte) error {
	return me.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(resumeDataBucketKey).Put(ih[:], b)
	})
}

func (me *boltResumeStore) Delete(ih metainfo.Hash) error {
	return me.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(resumeDataBucketKey)
		if bucket.Get(ih[:]) == nil {
			return ErrNotFound
		}
		return bucket.Delete(ih[:])
	})
}

func (me *boltResumeStore) List() (ret []metainfo.Hash, err error) {
	err = me.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(resumeDataBucketKey).ForEach(func(k, _ []byte) error {
			if len(k) != len(metainfo.Hash{}) {
				me.logger.Warn("skipping malformed key", slog.Int("len", len(k)))
				return nil
			}
			var ih metainfo.Hash
			copy(ih[:], k)
			ret = append(ret, ih)
			return nil
		})
	})
	return
}

func (me *boltResumeStore) Close() error {
	err := me.db.Close()
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return nil
	}
	return err
}
