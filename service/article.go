package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// maxArticleBytes bounds how much HTML we read from an untrusted URL.
const maxArticleBytes = 10 * 1024 * 1024

type Article struct {
	Title    string
	Text     string
	ImageURL string
	SiteName string
}

type ArticleFetcher struct {
	httpClient *http.Client
}

func NewArticleFetcher(httpClient *http.Client) *ArticleFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ArticleFetcher{httpClient: httpClient}
}

// Fetch downloads rawURL and extracts the readable article from it.
func (f *ArticleFetcher) Fetch(ctx context.Context, rawURL string) (*Article, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid article url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: "article fetch"}
	}
	if resp.ContentLength > maxArticleBytes {
		return nil, fmt.Errorf("article is %d bytes, limit is %d", resp.ContentLength, maxArticleBytes)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read article: %w", err)
	}
	if len(body) > maxArticleBytes {
		return nil, fmt.Errorf("article exceeds %d bytes", maxArticleBytes)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no readable text at %s", parsed.Host)
	}
	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = parsed.Host
	}
	return &Article{
		Title:    title,
		Text:     text,
		ImageURL: article.Image,
		SiteName: article.SiteName,
	}, nil
}
