package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/karlvoss/aisle/internal/catalog"
	"github.com/karlvoss/aisle/internal/recommend"
)

func (s *Server) handleStoreSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "query parameter q is required")
		return
	}

	priceMax := queryFloat(r, "price_max", 0)
	limit := queryInt(r, "limit", 20)
	results := s.index.Search(query, priceMax, limit)

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": entriesOut(results),
	})
}

func (s *Server) handleStoreCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.index.Categories()})
}

func (s *Server) handleStoreCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	entries := s.index.InCategory(category)
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "category_not_found", "no items in category "+category)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"items":    entriesOut(entries),
	})
}

func (s *Server) handleStorePopular(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	writeJSON(w, http.StatusOK, map[string]any{"items": entriesOut(s.index.Popular(limit))})
}

// handleSuggestions answers with the merged suggestion groups for a list,
// optionally anchored on a specific item via ?anchor=.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "suggestions_unavailable", "no recommendation data configured")
		return
	}

	l, err := s.store.GetList(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	q := recommend.Query{
		ListKeys: l.Keys(),
		Now:      time.Now(),
	}
	if anchor := r.URL.Query().Get("anchor"); anchor != "" {
		q.Anchor = anchor
		q.AnchorKey = catalog.NormalizeKey(anchor)
	}

	writeJSON(w, http.StatusOK, s.engine.Suggest(r.Context(), q))
}

// entriesOut keeps JSON arrays non-nil for empty result sets.
func entriesOut(entries []*catalog.Entry) []*catalog.Entry {
	if entries == nil {
		return []*catalog.Entry{}
	}
	return entries
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return fallback
	}
	return f
}
