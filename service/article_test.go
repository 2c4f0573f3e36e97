package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>The Quiet Harbour</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>The Quiet Harbour</h1>
<p>Every morning the fishermen set out before dawn, rowing past the lighthouse while the town was still asleep. They knew the tides the way other people know the streets of their neighbourhood.</p>
<p>By noon the boats came back heavy with the catch, and the market filled with voices haggling over prices. Children ran between the stalls, and the gulls circled overhead waiting for scraps.</p>
<p>In the evening the harbour grew quiet again, and the only sound was the water slapping gently against the hulls of the boats tied up for the night.</p>
</article>
</body></html>`

func TestArticleFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	article, err := NewArticleFetcher(nil).Fetch(context.Background(), server.URL+"/harbour")
	require.NoError(t, err)
	assert.Contains(t, article.Title, "Quiet Harbour")
	assert.Contains(t, article.Text, "fishermen set out before dawn")
	assert.False(t, strings.Contains(article.Text, "Home"))
}

func TestArticleFetchRejects(t *testing.T) {
	fetcher := NewArticleFetcher(nil)

	_, err := fetcher.Fetch(context.Background(), "ftp://example.com/file")
	require.Error(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err = fetcher.Fetch(context.Background(), server.URL)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
