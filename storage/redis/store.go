// Package redis keeps resume data in a single Redis hash, one field per torrent.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/redis/go-redis/v9"

	"github.com/anacrolix/fastresume/storage"
)

const (
	DefaultKey     = "fastresume:resume-data:v1"
	DefaultTimeout = 5 * time.Second
)

type Store struct {
	client redis.UniversalClient
	key    string
	// Bounds each operation, since the store interface has no context.
	Timeout time.Duration
}

var _ storage.ResumeStoreLister = (*Store)(nil)

// An empty key uses DefaultKey. Close doesn't close the client.
func NewStore(client redis.UniversalClient, key string) *Store {
	storeKey := strings.TrimSpace(key)
	if storeKey == "" {
		storeKey = DefaultKey
	}
	return &Store{
		client:  client,
		key:     storeKey,
		Timeout: DefaultTimeout,
	}
}

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Timeout)
}

func (s *Store) Get(ih metainfo.Hash) ([]byte, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	b, err := s.client.HGet(ctx, s.key, ih.HexString()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	return b, err
}

func (s *Store) Put(ih metainfo.Hash, b []byte) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.HSet(ctx, s.key, ih.HexString(), b).Err()
}

func (s *Store) Delete(ih metainfo.Hash) error {
	ctx, cancel := s.ctx()
	defer cancel()
	n, err := s.client.HDel(ctx, s.key, ih.HexString()).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) List() (ret []metainfo.Hash, err error) {
	ctx, cancel := s.ctx()
	defer cancel()
	fields, err := s.client.HKeys(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return
	}
	for _, f := range fields {
		var ih metainfo.Hash
		if ih.FromHexString(f) != nil {
			continue
		}
		ret = append(ret, ih)
	}
	return
}

func (s *Store) Close() error {
	return nil
}
