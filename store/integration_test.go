package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/kevinaaaquil/lexireader/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startContainer(t *testing.T, image, port string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{port},
			WaitingFor:   wait.ForListeningPort(nat.Port(port)),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cont.Terminate(ctx) })

	host, err := cont.Host(ctx)
	require.NoError(t, err)
	mapped, err := cont.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

func TestMongoStore(t *testing.T) {
	addr := startContainer(t, "mongo:7", "27017/tcp")
	ctx := context.Background()

	db, err := NewMongoDB(ctx, "mongodb://"+addr, "lexireader_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Disconnect(context.Background()) })

	t.Run("books", func(t *testing.T) {
		err := db.PutAllBooks(ctx, []models.Book{
			{ID: "b1", Title: "One", Category: models.CategoryBook},
			{ID: "b2", Title: "Two", Category: models.CategoryStory, TotalLessons: 3, CurrentLesson: 2},
		})
		require.NoError(t, err)

		err = db.PutAllBooks(ctx, []models.Book{
			{ID: "b2", Title: "Two v2", Category: models.CategoryStory, TotalLessons: 3, CurrentLesson: 3},
		})
		require.NoError(t, err)

		books, err := db.AllBooks(ctx)
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Two v2", books[0].Title)
		assert.Equal(t, 3, books[0].CurrentLesson)

		require.NoError(t, db.PutAllBooks(ctx, nil))
		books, err = db.AllBooks(ctx)
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("kv", func(t *testing.T) {
		kv := db.KeyValue()
		_, err := kv.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, kv.Set(ctx, "k", []byte(`{"a":1}`)))
		require.NoError(t, kv.Set(ctx, "k", []byte(`{"a":2}`)))
		got, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":2}`, string(got))

		require.NoError(t, kv.Delete(ctx, "k"))
		_, err = kv.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("users", func(t *testing.T) {
		u, err := db.UserByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, u)

		id, err := db.CreateUser(ctx, &models.User{Email: "reader@example.com", Password: "hash"})
		require.NoError(t, err)

		u, err = db.UserByEmail(ctx, " Reader@Example.com")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, id, u.ID)
		assert.False(t, u.CreatedAt.IsZero())

		_, err = db.CreateUser(ctx, &models.User{Email: "READER@example.com", Password: "other"})
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestRedisKV(t *testing.T) {
	addr := startContainer(t, "redis:7-alpine", "6379/tcp")
	ctx := context.Background()

	kv, err := NewRedisKV(ctx, RedisConfig{Addr: addr, Prefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	_, err = kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte("v")))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
