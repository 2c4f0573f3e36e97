package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataByISBN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "isbn:9780140449136", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"volumeInfo":{"title":"Crime and Punishment","subtitle":"A Novel","authors":["Fyodor Dostoyevsky"]}}]}`))
	}))
	defer server.Close()

	meta, err := NewMetadataClient(server.URL, nil).ByISBN(context.Background(), "978-0-14-044913-6")
	require.NoError(t, err)
	assert.Equal(t, "Crime and Punishment: A Novel", meta.Title)
	assert.Equal(t, []string{"Fyodor Dostoyevsky"}, meta.Authors)
}

func TestMetadataByISBNNoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	defer server.Close()

	client := NewMetadataClient(server.URL, nil)
	_, err := client.ByISBN(context.Background(), "123")
	require.Error(t, err)
	_, err = client.ByISBN(context.Background(), " ")
	require.Error(t, err)
}
