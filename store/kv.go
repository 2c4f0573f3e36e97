package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type kvEntry struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoKV stores key-value entries as documents in the kv collection.
type MongoKV struct {
	db *DB
}

func (db *DB) KeyValue() *MongoKV {
	return &MongoKV{db: db}
}

func (s *MongoKV) Get(ctx context.Context, key string) ([]byte, error) {
	var e kvEntry
	err := s.db.KV().FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

func (s *MongoKV) Set(ctx context.Context, key string, value []byte) error {
	set := bson.M{"value": value, "updatedAt": time.Now()}
	_, err := s.db.KV().UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": set}, options.Update().SetUpsert(true))
	return err
}

func (s *MongoKV) Delete(ctx context.Context, key string) error {
	_, err := s.db.KV().DeleteOne(ctx, bson.M{"_id": key})
	return err
}
