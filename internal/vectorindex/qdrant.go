package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pdf-chat-backend/models"
)

// QdrantBackend talks to Qdrant over its REST API. One collection backs one index.
type QdrantBackend struct {
	url    string
	apiKey string
	client *http.Client
}

func NewQdrantBackend(url, apiKey string, timeout time.Duration) *QdrantBackend {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantBackend{
		url:    strings.TrimRight(url, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (q *QdrantBackend) Name() string { return "qdrant" }

// qdrantDistance maps metric names to Qdrant's distance enum.
func qdrantDistance(metric string) string {
	switch strings.ToLower(metric) {
	case "dotproduct", "dot":
		return "Dot"
	case "euclidean":
		return "Euclid"
	default:
		return "Cosine"
	}
}

type qdrantStatusError struct {
	method string
	path   string
	status int
	body   string
}

func (e *qdrantStatusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.path, e.status, e.body)
}

func (q *QdrantBackend) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.url+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &qdrantStatusError{method: method, path: path, status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type qdrantCollectionInfo struct {
	Result struct {
		Status      string `json:"status"`
		PointsCount int64  `json:"points_count"`
	} `json:"result"`
}

func (q *QdrantBackend) collection(ctx context.Context, name string) (*qdrantCollectionInfo, error) {
	var info qdrantCollectionInfo
	err := q.do(ctx, http.MethodGet, "/collections/"+name, nil, &info)
	var statusErr *qdrantStatusError
	if errors.As(err, &statusErr) && statusErr.status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (q *QdrantBackend) IndexExists(ctx context.Context, spec IndexSpec) (bool, error) {
	info, err := q.collection(ctx, spec.Name)
	return info != nil, err
}

func (q *QdrantBackend) CreateIndex(ctx context.Context, spec IndexSpec) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     spec.Dimension,
			"distance": qdrantDistance(spec.Metric),
		},
	}
	return q.do(ctx, http.MethodPut, "/collections/"+spec.Name, body, nil)
}

// IndexReady is true once the collection reports green.
func (q *QdrantBackend) IndexReady(ctx context.Context, spec IndexSpec) (bool, error) {
	info, err := q.collection(ctx, spec.Name)
	if err != nil || info == nil {
		return false, err
	}
	if info.Result.Status == "red" {
		return false, fmt.Errorf("qdrant collection %s is red", spec.Name)
	}
	return info.Result.Status == "green", nil
}

func (q *QdrantBackend) Upsert(ctx context.Context, spec IndexSpec, records []models.EmbeddedChunk) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     r.ID,
			"vector": r.Vector,
			"payload": map[string]any{
				"chunk_id":   r.ID,
				"text":       r.Text,
				"source":     r.Source,
				"page":       r.Page,
				"order":      r.Order,
				"updated_at": r.UpdatedAt.Format(time.RFC3339),
			},
		}
	}
	return q.do(ctx, http.MethodPut, "/collections/"+spec.Name+"/points?wait=true", map[string]any{"points": points}, nil)
}

type qdrantPayload struct {
	ChunkID string `json:"chunk_id"`
	Text    string `json:"text"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
	Order   int    `json:"order"`
}

func (q *QdrantBackend) Search(ctx context.Context, spec IndexSpec, vector []float32, k int) ([]Match, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64       `json:"score"`
			Payload qdrantPayload `json:"payload"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, "/collections/"+spec.Name+"/points/search", req, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		matches = append(matches, Match{
			Chunk: models.Chunk{
				ID:     r.Payload.ChunkID,
				Text:   r.Payload.Text,
				Source: r.Payload.Source,
				Page:   r.Payload.Page,
				Order:  r.Payload.Order,
			},
			Score: r.Score,
		})
	}
	return matches, nil
}

func (q *QdrantBackend) Count(ctx context.Context, spec IndexSpec) (int64, error) {
	var resp struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost, "/collections/"+spec.Name+"/points/count", map[string]any{"exact": true}, &resp)
	return resp.Result.Count, err
}

// Reset drops and recreates the collection.
func (q *QdrantBackend) Reset(ctx context.Context, spec IndexSpec) error {
	if err := q.do(ctx, http.MethodDelete, "/collections/"+spec.Name, nil, nil); err != nil {
		return err
	}
	return q.CreateIndex(ctx, spec)
}
