package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	booksCollection = "books"
	kvCollection    = "kv"
)

// DB holds the MongoDB collections of the reader: accounts, the library and
// the key-value records.
type DB struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoDB connects, pings and makes sure the indexes exist.
func NewMongoDB(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	db := &DB{client: client, database: client.Database(dbName)}
	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	slog.Info("connected to mongodb", "db", dbName)
	return db, nil
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	_, err := db.Users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	return nil
}

func (db *DB) Users() *mongo.Collection {
	return db.database.Collection(usersCollection)
}

func (db *DB) Books() *mongo.Collection {
	return db.database.Collection(booksCollection)
}

func (db *DB) KV() *mongo.Collection {
	return db.database.Collection(kvCollection)
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.client.Disconnect(ctx)
}
