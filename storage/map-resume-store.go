package storage

import (
	"slices"
	"sync"

	"github.com/anacrolix/torrent/metainfo"
)

// Keeps blobs in memory. Useful for tests and for sessions that hand blobs to the caller through
// alerts only.
type mapResumeStore struct {
	m sync.Map
}

var _ ResumeStoreLister = (*mapResumeStore)(nil)

func NewMapResumeStore() ResumeStoreLister {
	return &mapResumeStore{}
}

func (me *mapResumeStore) Get(ih metainfo.Hash) ([]byte, error) {
	v, ok := me.m.Load(ih)
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v.([]byte)), nil
}

func (me *mapResumeStore) Put(ih metainfo.Hash, b []byte) error {
	me.m.Store(ih, slices.Clone(b))
	return nil
}

func (me *mapResumeStore) Delete(ih metainfo.Hash) error {
	if _, loaded := me.m.LoadAndDelete(ih); !loaded {
		return ErrNotFound
	}
	return nil
}

func (me *mapResumeStore) List() (ret []metainfo.Hash, err error) {
	me.m.Range(func(k, _ any) bool {
		ret = append(ret, k.(metainfo.Hash))
		return true
	})
	return
}

func (me *mapResumeStore) Close() error {
	me.m.Clear()
	return nil
}
