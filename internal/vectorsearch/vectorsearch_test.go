package vectorsearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	c := Classify("Posttraumatic stress disorder criteria require exposure to trauma")
	assert.Equal(t, "Trauma- and Stressor-Related Disorders", c.Domain)
	assert.Equal(t, "Diagnostic Criteria", c.Category)
	assert.Equal(t, "Trauma- and Stressor-Related Disorders: Diagnostic Criteria", c.Title)

	c = Classify("Prevalence of alcohol use is higher among young adults")
	assert.Equal(t, "Substance-Related and Addictive Disorders", c.Domain)
	assert.Equal(t, "Prevalence", c.Category)
}

func TestClassify_Fallback(t *testing.T) {
	c := Classify("The clinician should document the encounter.")
	assert.Equal(t, FallbackDomain, c.Domain)
	assert.Equal(t, FallbackCategory, c.Category)
	assert.Equal(t, FallbackDomain, c.Title)

	assert.Equal(t, FallbackDomain, Classify("").Domain)
}

func TestClassify_MostHitsWins(t *testing.T) {
	// one depression keyword against three anxiety ones
	c := Classify("Depression often co-occurs with panic, worry and anxiety.")
	assert.Equal(t, "Anxiety Disorders", c.Domain)

	// tie goes to the earlier rule
	c = Classify("Depression and anxiety")
	assert.Equal(t, "Depressive Disorders", c.Domain)
}

func TestClassify_CategoryWithoutDomain(t *testing.T) {
	c := Classify("The criteria must be documented at least once.")
	assert.Equal(t, FallbackDomain, c.Domain)
	assert.Equal(t, "Diagnostic Criteria", c.Category)
	assert.Equal(t, "General Clinical Reference: Diagnostic Criteria", c.Title)
}

func TestDemoSearcher_RanksByOverlap(t *testing.T) {
	hits, err := NewDemoSearcher().Search(context.Background(), Query{Text: "PTSD trauma risk factors", TopK: 3})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.LessOrEqual(t, len(hits), 3)
	assert.Equal(t, "ptsd-risk", hits[0].ID)
	assert.Equal(t, "Trauma- and Stressor-Related Disorders", hits[0].Domain)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestDemoSearcher_FilterAndEmptyQuery(t *testing.T) {
	s := NewDemoSearcher()
	hits, err := s.Search(context.Background(), Query{
		Text:   "criteria",
		Filter: map[string]any{"section": "Insomnia Disorder"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "insomnia-criteria", hits[0].ID)

	hits, err = s.Search(context.Background(), Query{Text: "the of and"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestNewClient_NotConfigured(t *testing.T) {
	_, err := NewClient(config.VectorConfig{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/records/namespaces/dsm5/search", r.URL.Path)
		assert.Equal(t, "pc-key", r.Header.Get("Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		query := body["query"].(map[string]any)
		assert.Equal(t, "panic attacks", query["inputs"].(map[string]any)["text"])
		assert.Equal(t, float64(2), query["top_k"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"hits":[
			{"_id":"a","_score":0.91,"fields":{"text":"Panic disorder is marked by recurrent panic attacks","source":"dsm5.pdf"}},
			{"_id":"b","_score":0.40,"fields":{"chunk_text":"Document the visit."}}
		]}}`))
	}))
	defer srv.Close()

	c, err := NewClient(config.VectorConfig{APIKey: "pc-key", IndexHost: srv.URL, Namespace: "dsm5", TopK: 5}, zap.NewNop())
	require.NoError(t, err)

	hits, err := c.Search(context.Background(), Query{Text: "panic attacks", TopK: 2})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, 0.91, hits[0].Score)
	assert.Equal(t, "dsm5.pdf", hits[0].Source)
	assert.Equal(t, "Anxiety Disorders", hits[0].Domain)
	assert.Equal(t, "Document the visit.", hits[1].Text)
	assert.Equal(t, FallbackDomain, hits[1].Domain)
}

func TestClient_SearchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHENTICATED","message":"invalid api key"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(config.VectorConfig{APIKey: "bad", IndexHost: srv.URL, Namespace: "dsm5"}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Search(context.Background(), Query{Text: "panic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, Query) ([]Hit, error) {
	return nil, errors.New("index unreachable")
}

func TestFallbackSearcher(t *testing.T) {
	s := NewFallbackSearcher(failingSearcher{}, NewDemoSearcher(), zap.NewNop())
	hits, err := s.Search(context.Background(), Query{Text: "insomnia sleep"})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "demo", hits[0].Source)
	assert.True(t, s.Primary())

	s = NewFallbackSearcher(nil, NewDemoSearcher(), zap.NewNop())
	assert.False(t, s.Primary())
	_, err = s.Search(context.Background(), Query{Text: "insomnia"})
	require.NoError(t, err)
}
