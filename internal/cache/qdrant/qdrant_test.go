package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQdrant serves the subset of the REST API the cache uses.
type fakeQdrant struct {
	mu       sync.Mutex
	exists   bool
	size     int
	distance string
	points   map[string]point
	apiKeys  []string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
	path := strings.TrimPrefix(r.URL.Path, "/collections/emb")
	switch {
	case path == "" && r.Method == http.MethodGet:
		if !f.exists {
			http.NotFound(w, r)
		}
	case path == "" && r.Method == http.MethodPut:
		var body struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.exists, f.size, f.distance = true, body.Vectors.Size, body.Vectors.Distance
		f.points = map[string]point{}
	case path == "" && r.Method == http.MethodDelete:
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		f.exists, f.points = false, nil
	case path == "/points" && r.Method == http.MethodPut:
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Points []point `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			f.points[p.ID] = p
		}
	case path == "/points" && r.Method == http.MethodPost:
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		var body struct {
			IDs []string `json:"ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		var found []point
		for _, id := range body.IDs {
			if p, ok := f.points[id]; ok {
				found = append(found, p)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": found})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func newTestStorage(t *testing.T) (*Storage, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewStorage(Config{URL: srv.URL + "/", APIKey: "k", Collection: "emb"}), fake
}

func TestStorage_MissingCollectionIsAllMisses(t *testing.T) {
	s, _ := newTestStorage(t)
	got, err := s.Get(context.Background(), "m", []string{"Go"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStorage_PutThenGet(t *testing.T) {
	s, fake := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "m", map[string][]float64{"Go": {3, 4}, "Rust": {1, 0}}))
	assert.Equal(t, 2, fake.size)
	assert.Equal(t, "Euclid", fake.distance)

	got, err := s.Get(ctx, "m", []string{"Go", "Zig", "Rust"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]float64{"Go": {3, 4}, "Rust": {1, 0}}, got)

	other, err := s.Get(ctx, "other-model", []string{"Go"})
	require.NoError(t, err)
	assert.Empty(t, other)
	assert.Contains(t, fake.apiKeys, "k")
}

func TestStorage_Clear(t *testing.T) {
	s, fake := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "m", map[string][]float64{"Go": {1}}))
	require.NoError(t, s.Clear(ctx))
	assert.False(t, fake.exists)
	require.NoError(t, s.Clear(ctx))

	// The collection is recreated on the next write.
	require.NoError(t, s.Put(ctx, "m", map[string][]float64{"Go": {1}}))
	assert.True(t, fake.exists)
}

func TestStorage_RejectsMixedLengths(t *testing.T) {
	s, _ := newTestStorage(t)
	err := s.Put(context.Background(), "m", map[string][]float64{"a": {1}, "b": {1, 2}})
	assert.Error(t, err)
}

func TestPointID_StableAndModelScoped(t *testing.T) {
	assert.Equal(t, PointID("m", "Go"), PointID("m", "Go"))
	assert.NotEqual(t, PointID("m", "Go"), PointID("n", "Go"))
	assert.Len(t, PointID("m", "Go"), 36)
}
