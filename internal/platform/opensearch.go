// Package platform holds thin wrappers over infrastructure the daemon talks
// to directly: the OpenSearch cluster, the shared subprocess executor, and
// an optional Redis-backed cache.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v4"
)

// SearchClient is the C1 Search Client contract: a typed wrapper over the
// OpenSearch HTTP client exposing only the handful of operations the rest of
// the daemon needs. Everything downstream of it (query shape, result
// unmarshaling) lives in pkg/searchquery and the calling package.
type SearchClient struct {
	client *opensearch.Client
}

// NewSearchClient dials the configured OpenSearch cluster. It does not block
// on connectivity — the first call that fails surfaces the error.
func NewSearchClient(url string, timeout time.Duration) (*SearchClient, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{url},
		Transport: &http.Transport{
			ResponseHeaderTimeout: timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating opensearch client: %w", err)
	}
	return &SearchClient{client: client}, nil
}

func (c *SearchClient) perform(ctx context.Context, method, path string, body any, query string) (map[string]any, int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	if query != "" {
		path = path + "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Transport.Perform(req)
	if err != nil {
		return nil, 0, fmt.Errorf("performing opensearch request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading opensearch response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("opensearch returned %d: %s", resp.StatusCode, string(raw))
	}

	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("decoding opensearch response: %w", err)
		}
	}
	return decoded, resp.StatusCode, nil
}

// Search executes a query against the given index pattern (which may contain
// wildcards such as "suricata-*") and returns the raw decoded response body.
func (c *SearchClient) Search(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	result, _, err := c.perform(ctx, http.MethodPost, "/"+index+"/_search", body, "")
	return result, err
}

// IndexStat is one row of /_cat/indices output.
type IndexStat struct {
	Name         string
	SizeBytes    int64
	CreationDate string // raw creation.date.string, parsed by the caller (pkg/indexclassifier owns date semantics)
}

// CatIndices lists every index with its byte size and creation date string.
// Unlike Search/Info, /_cat/indices responds with a top-level JSON array, so
// this bypasses perform()'s object-shaped decode.
func (c *SearchClient) CatIndices(ctx context.Context) ([]IndexStat, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"/_cat/indices?format=json&h=index,store.size,creation.date.string&bytes=b", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Transport.Perform(req)
	if err != nil {
		return nil, fmt.Errorf("performing opensearch request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading opensearch response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("opensearch returned %d: %s", resp.StatusCode, string(raw))
	}

	var rows []struct {
		Index        string `json:"index"`
		StoreSize    string `json:"store.size"`
		CreationDate string `json:"creation.date.string"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decoding cat indices response: %w", err)
	}

	out := make([]IndexStat, 0, len(rows))
	for _, row := range rows {
		var size int64
		fmt.Sscanf(row.StoreSize, "%d", &size)
		out = append(out, IndexStat{
			Name:         row.Index,
			SizeBytes:    size,
			CreationDate: row.CreationDate,
		})
	}
	return out, nil
}

// DeleteIndex deletes a single index by name.
func (c *SearchClient) DeleteIndex(ctx context.Context, name string) error {
	_, _, err := c.perform(ctx, http.MethodDelete, "/"+name, nil, "")
	return err
}

// Info returns cluster info; used as a liveness/reachability probe.
func (c *SearchClient) Info(ctx context.Context) (map[string]any, error) {
	return c.perform(ctx, http.MethodGet, "/", nil, "")
}

// PutILMPolicy applies a single ILM policy body.
func (c *SearchClient) PutILMPolicy(ctx context.Context, name string, policy map[string]any) error {
	_, _, err := c.perform(ctx, http.MethodPut, "/_plugins/_ism/policies/"+name, policy, "")
	return err
}

// IsNotFound reports whether err represents a 404 from OpenSearch.
func IsNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "opensearch returned 404")
}
