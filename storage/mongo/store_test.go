package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anacrolix/fastresume/storage"
)

// Set to a mongodb:// URI to run against a real server.
const uriEnv = "FASTRESUME_TEST_MONGO_URI"

func TestStore(t *testing.T) {
	uri := os.Getenv(uriEnv)
	if uri == "" {
		t.Skipf("%s not set", uriEnv)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbName := fmt.Sprintf("fastresume_test_%d", time.Now().UnixNano())
	s, err := Connect(ctx, uri, dbName)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, s.client.Database(dbName).Drop(context.Background()))
		require.NoError(t, s.Close())
	}()

	ih := metainfo.HashBytes([]byte("torrent"))
	_, err = s.Get(ih)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, s.Put(ih, []byte("d1:ai1ee")))
	require.NoError(t, s.Put(ih, []byte("d1:ai2ee")))
	b, err := s.Get(ih)
	require.NoError(t, err)
	assert.Equal(t, "d1:ai2ee", string(b))
	ihs, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []metainfo.Hash{ih}, ihs)
	require.NoError(t, s.Delete(ih))
	require.ErrorIs(t, s.Delete(ih), storage.ErrNotFound)
}
