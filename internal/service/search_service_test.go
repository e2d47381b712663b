package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES 记录请求并返回固定的搜索结果
type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
	hits     string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = io.WriteString(w, f.hits)
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusNotFound)
	default:
		_, _ = io.WriteString(w, `{"acknowledged":true,"errors":false,"items":[]}`)
	}
}

func newSearchService(t *testing.T, f *fixture, es *fakeES) *SearchService {
	t.Helper()
	srv := httptest.NewServer(es)
	t.Cleanup(srv.Close)
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewSearchService(f.db, client, "images-test", f.log)
}

func TestSearchDisabled(t *testing.T) {
	f := newFixture(t)
	s := NewSearchService(f.db, nil, "", f.log)
	assert.False(t, s.Enabled())

	_, err := s.Search(context.Background(), "cat", 1, 10)
	assert.ErrorIs(t, err, ErrSearchDisabled)
	_, err = s.Reindex(context.Background())
	assert.ErrorIs(t, err, ErrSearchDisabled)
}

func TestSearchKeepsHitOrder(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	first := f.createImage(t, alice, "Cat")
	second := f.createImage(t, alice, "Cat Nap")

	es := &fakeES{hits: `{"hits":{"total":{"value":2},"hits":[
		{"_source":{"image_id":2,"title":"Cat Nap"}},
		{"_source":{"image_id":1,"title":"Cat"}}
	]}}`}
	s := newSearchService(t, f, es)

	resp, err := s.Search(context.Background(), "cat", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
	require.Len(t, resp.List, 2)
	assert.Equal(t, second.ID, resp.List[0].ID)
	assert.Equal(t, first.ID, resp.List[1].ID)

	var query map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(es.bodies[0]), &query))
	match := query["query"].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "cat", match["query"])
}

func TestIndexImageAndReindex(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	img := f.createImage(t, alice, "Cat")
	f.createImage(t, alice, "Dog")

	es := &fakeES{}
	s := newSearchService(t, f, es)

	require.NoError(t, s.IndexImage(context.Background(), img))
	assert.Equal(t, "PUT /images-test/_doc/image_1", es.requests[0])
	assert.Contains(t, es.bodies[0], `"username":"alice"`)

	n, err := s.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, es.requests, "HEAD /images-test")
	assert.Contains(t, es.requests, "PUT /images-test")
	assert.Contains(t, es.requests, "POST /_bulk")
}
