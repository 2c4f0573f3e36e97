package store

import (
	"context"
	"fmt"

	"github.com/kevinaaaquil/lexireader/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) AllBooks(ctx context.Context) ([]models.Book, error) {
	cur, err := db.Books().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// PutAllBooks replaces every stored book with books and removes the ones no longer present.
func (db *DB) PutAllBooks(ctx context.Context, books []models.Book) error {
	ids := make([]string, 0, len(books))
	writes := make([]mongo.WriteModel, 0, len(books)+1)
	for _, b := range books {
		ids = append(ids, b.ID)
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": b.ID}).
			SetReplacement(b).
			SetUpsert(true))
	}
	writes = append(writes, mongo.NewDeleteManyModel().SetFilter(bson.M{"_id": bson.M{"$nin": ids}}))

	if _, err := db.Books().BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("bulk write books: %w", err)
	}
	return nil
}
