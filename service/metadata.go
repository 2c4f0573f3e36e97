package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const googleBooksBase = "https://www.googleapis.com/books/v1/volumes"

type googleBooksVolumesResp struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title    string   `json:"title"`
			Subtitle string   `json:"subtitle"`
			Authors  []string `json:"authors"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

type BookMetadata struct {
	Title   string
	Authors []string
	ISBN    string
}

// MetadataClient looks up titles by ISBN in the Google Books catalogue.
type MetadataClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewMetadataClient(baseURL string, httpClient *http.Client) *MetadataClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = googleBooksBase
	}
	if httpClient == nil {
		// short timeout so a hung lookup doesn't stall imports
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &MetadataClient{baseURL: baseURL, httpClient: httpClient}
}

func (c *MetadataClient) ByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = strings.ReplaceAll(strings.TrimSpace(isbn), "-", "")
	if isbn == "" {
		return nil, fmt.Errorf("isbn is required")
	}
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google books returned %d", resp.StatusCode)
	}
	var data googleBooksVolumesResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if data.TotalItems == 0 || len(data.Items) == 0 {
		return nil, fmt.Errorf("no volume found for isbn %s", isbn)
	}
	vi := data.Items[0].VolumeInfo
	meta := &BookMetadata{Title: vi.Title, Authors: vi.Authors, ISBN: isbn}
	if vi.Subtitle != "" {
		meta.Title = meta.Title + ": " + vi.Subtitle
	}
	return meta, nil
}
