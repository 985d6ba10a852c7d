// Package mongo keeps resume data in a MongoDB collection, one document per torrent.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anacrolix/fastresume/storage"
)

const (
	DefaultCollection = "resume_data"
	DefaultTimeout    = 10 * time.Second
)

type resumeDoc struct {
	ID        string `bson:"_id"`
	Data      []byte `bson:"data"`
	UpdatedAt int64  `bson:"updatedAt"`
}

type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	// Bounds each operation, since the store interface has no context.
	Timeout time.Duration
	// Disconnect the client on Close.
	ownsClient bool
}

var _ storage.ResumeStoreLister = (*Store)(nil)

// Uses the "resume_data" collection of the database. The client stays open on Close.
func NewStore(client *mongo.Client, dbName string) *Store {
	return &Store{
		client:     client,
		collection: client.Database(dbName).Collection(DefaultCollection),
		Timeout:    DefaultTimeout,
	}
}

// Connects to uri and returns a store that disconnects on Close.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	s := NewStore(client, dbName)
	s.ownsClient = true
	return s, nil
}

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Timeout)
}

func (s *Store) Get(ih metainfo.Hash) ([]byte, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	var doc resumeDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": ih.HexString()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func (s *Store) Put(ih metainfo.Hash, b []byte) error {
	ctx, cancel := s.ctx()
	defer cancel()
	update := bson.M{
		"$set": bson.M{
			"data":      b,
			"updatedAt": time.Now().Unix(),
		},
	}
	_, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": ih.HexString()},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) Delete(ih metainfo.Hash) error {
	ctx, cancel := s.ctx()
	defer cancel()
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": ih.HexString()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) List() (ret []metainfo.Hash, err error) {
	ctx, cancel := s.ctx()
	defer cancel()
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err = cursor.Decode(&doc); err != nil {
			return
		}
		var ih metainfo.Hash
		if ih.FromHexString(doc.ID) != nil {
			continue
		}
		ret = append(ret, ih)
	}
	err = cursor.Err()
	return
}

func (s *Store) Close() error {
	if !s.ownsClient {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.Disconnect(ctx)
}
