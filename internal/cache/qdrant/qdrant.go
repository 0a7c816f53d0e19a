// Package qdrant stores embeddings as points of a Qdrant collection, one
// point per model and text.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// pointNamespace derives stable point ids from model and text.
var pointNamespace = uuid.MustParse("6f1d4c7e-2b4a-4f0e-9a53-7c1e8d2b9f10")

var errNotFound = errors.New("qdrant: not found")

// Storage is a minimal REST client to Qdrant implementing
// domain.EmbeddingCache. The collection is created on the first write,
// sized after the vectors being written, with Euclid distance so stored
// vectors come back unnormalized.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu      sync.Mutex
	created bool
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// PointID is the id under which the embedding of text by model is stored.
func PointID(model, text string) string {
	return uuid.NewSHA1(pointNamespace, []byte(model+"\x00"+text)).String()
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float64 `json:"vector"`
	Payload payload   `json:"payload"`
}

type payload struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

func (s *Storage) Get(ctx context.Context, model string, texts []string) (map[string][]float64, error) {
	if len(texts) == 0 {
		return map[string][]float64{}, nil
	}
	ids := make([]string, len(texts))
	for i, t := range texts {
		ids[i] = PointID(model, t)
	}
	req := map[string]any{"ids": ids, "with_vector": true, "with_payload": true}
	var resp struct {
		Result []point `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points", s.url, s.collection), req, &resp)
	if errors.Is(err, errNotFound) {
		return map[string][]float64{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float64, len(resp.Result))
	for _, p := range resp.Result {
		if p.Payload.Model != model || len(p.Vector) == 0 {
			continue
		}
		out[p.Payload.Text] = p.Vector
	}
	return out, nil
}

func (s *Storage) Put(ctx context.Context, model string, vectors map[string][]float64) error {
	if len(vectors) == 0 {
		return nil
	}
	points := make([]point, 0, len(vectors))
	dim := 0
	for t, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("qdrant: mixed vector lengths %d and %d", dim, len(v))
		}
		points = append(points, point{ID: PointID(model, t), Vector: v, Payload: payload{Model: model, Text: t}})
	}
	if err := s.ensureCollection(ctx, dim); err != nil {
		return err
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body, nil)
}

// Clear drops the collection.
func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.do(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil, nil)
	if err != nil && !errors.Is(err, errNotFound) {
		return err
	}
	s.created = false
	return nil
}

func (s *Storage) ensureCollection(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return nil
	}
	url := fmt.Sprintf("%s/collections/%s", s.url, s.collection)
	err := s.do(ctx, http.MethodGet, url, nil, nil)
	if errors.Is(err, errNotFound) {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Euclid",
			},
		}
		err = s.do(ctx, http.MethodPut, url, body, nil)
	}
	if err != nil {
		return err
	}
	s.created = true
	return nil
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", errNotFound, method, url)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
