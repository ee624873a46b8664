// Package milvus is a minimal REST client for the Milvus v2 HTTP API,
// covering only the two calls the ingestion pipeline needs: batched
// nearest-neighbor search and batched insert.
package milvus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/psi-alpha/genesis-dm/ingest"
)

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
	}
}

type searchParams struct {
	MetricType string         `json:"metricType"`
	Params     map[string]any `json:"params"`
}

type searchRequest struct {
	CollectionName string       `json:"collectionName"`
	Data           [][]float32  `json:"data"`
	AnnsField      string       `json:"annsField"`
	Limit          int          `json:"limit"`
	OutputFields   []string     `json:"outputFields"`
	SearchParams   searchParams `json:"searchParams"`
}

// Search issues one batched cosine nearest-neighbor query and regroups
// the flat hit list the API returns into one group per query vector.
func (c *Client) Search(ctx context.Context, collection string, vectors [][]float32, limit int, field string, nprobe int) ([][]ingest.SearchHit, error) {
	req := searchRequest{
		CollectionName: collection,
		Data:           vectors,
		AnnsField:      field,
		Limit:          limit,
		OutputFields:   []string{"id"},
		SearchParams: searchParams{
			MetricType: "COSINE",
			Params:     map[string]any{"nprobe": nprobe},
		},
	}

	var flat []ingest.SearchHit
	if err := c.postJSON(ctx, "/v2/vectordb/entities/search", req, &flat); err != nil {
		return nil, err
	}

	return groupHits(flat, len(vectors), limit), nil
}

// groupHits slices the concatenated per-query hit lists back apart.
// An empty collection yields no hits at all, which maps to empty
// groups for every query.
func groupHits(flat []ingest.SearchHit, queries, limit int) [][]ingest.SearchHit {
	groups := make([][]ingest.SearchHit, queries)
	if limit <= 0 {
		return groups
	}

	for i := range groups {
		start := i * limit
		if start >= len(flat) {
			break
		}

		groups[i] = flat[start:min(start+limit, len(flat))]
	}

	return groups
}

type insertRequest struct {
	CollectionName string          `json:"collectionName"`
	Data           []ingest.Record `json:"data"`
}

type insertResult struct {
	InsertCount *int `json:"insertCount"`
}

// Insert writes all records in one call. Returns the count the store
// reports, falling back to the number of submitted records when the
// response omits it.
func (c *Client) Insert(ctx context.Context, collection string, records []ingest.Record) (int, error) {
	var res insertResult
	err := c.postJSON(ctx, "/v2/vectordb/entities/insert", insertRequest{
		CollectionName: collection,
		Data:           records,
	}, &res)
	if err != nil {
		return 0, err
	}

	if res.InsertCount != nil {
		return *res.InsertCount, nil
	}

	return len(records), nil
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("milvus POST %s failed: %s", path, resp.Status)
	}

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if api.Code != 0 {
		return fmt.Errorf("milvus POST %s failed: code %d: %s", path, api.Code, api.Message)
	}

	if out != nil && len(api.Data) > 0 {
		if err := json.Unmarshal(api.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}

	return nil
}

var _ ingest.VectorStore = (*Client)(nil)
