package httpapi

import (
	"net/http"
	"strings"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/vectorsearch"

	"go.uber.org/zap"
)

const maxTopK = 50

type SearchHandler struct {
	searcher vectorsearch.Searcher
	topK     int
	logger   *zap.Logger
}

func NewSearchHandler(searcher vectorsearch.Searcher, defaultTopK int, logger *zap.Logger) *SearchHandler {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &SearchHandler{searcher: searcher, topK: defaultTopK, logger: logger}
}

type SearchResponse struct {
	Query string             `json:"query"`
	Hits  []vectorsearch.Hit `json:"hits"`
}

// Search runs a clinical reference lookup: {"query", "top_k", "filter"}.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var q vectorsearch.Query
	if err := readBodyJSON(r, maxBodyBytes, &q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if q.TopK <= 0 {
		q.TopK = h.topK
	}
	if q.TopK > maxTopK {
		q.TopK = maxTopK
	}

	hits, err := h.searcher.Search(r.Context(), q)
	if err != nil {
		h.logger.Warn("Reference search failed", zap.Error(err), zap.String("request_id", RequestID(r.Context())))
		writeError(w, http.StatusBadGateway, "reference search failed")
		return
	}
	if hits == nil {
		hits = []vectorsearch.Hit{}
	}
	writeJSON(w, http.StatusOK, Ok(SearchResponse{Query: q.Text, Hits: hits}))
}
