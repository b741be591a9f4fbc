// Package server exposes the HTTP surface of the assistant: voice command
// endpoints, list CRUD for the UI, the store browse API, orders, and
// suggestions.
//
// Handlers stay thin: parse the request, call one collaborator, shape the
// response. All interpretation and list semantics live in the nlu, catalog,
// list, and recommend packages.
package server

import (
	"log/slog"
	"net/http"

	"github.com/karlvoss/aisle/internal/catalog"
	"github.com/karlvoss/aisle/internal/list"
	"github.com/karlvoss/aisle/internal/nlu"
	"github.com/karlvoss/aisle/internal/observe"
	"github.com/karlvoss/aisle/internal/recommend"
	"github.com/karlvoss/aisle/pkg/provider/stt"
)

// Server bundles the collaborators behind the HTTP surface.
type Server struct {
	index    *catalog.Index
	router   *nlu.Router
	executor *list.Executor
	store    list.Store
	engine   *recommend.Engine

	// transcriber is nil when no STT provider is configured; the voice audio
	// endpoints then answer 503 while the text endpoints keep working.
	transcriber stt.Provider

	metrics *observe.Metrics
	logger  *slog.Logger
}

// New builds a Server. transcriber, engine, and metrics may be nil.
func New(idx *catalog.Index, router *nlu.Router, executor *list.Executor, store list.Store, engine *recommend.Engine, transcriber stt.Provider, metrics *observe.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		index:       idx,
		router:      router,
		executor:    executor,
		store:       store,
		engine:      engine,
		transcriber: transcriber,
		metrics:     metrics,
		logger:      logger,
	}
}

// Routes mounts every endpoint on a fresh mux, wrapped in the tracing and
// metrics middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/voice/transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /v1/lists/{id}/voice", s.handleVoiceAudio)
	mux.HandleFunc("POST /v1/lists/{id}/command", s.handleTextCommand)

	mux.HandleFunc("POST /v1/lists", s.handleCreateList)
	mux.HandleFunc("GET /v1/lists", s.handleLists)
	mux.HandleFunc("GET /v1/lists/{id}", s.handleGetList)
	mux.HandleFunc("DELETE /v1/lists/{id}", s.handleDeleteList)
	mux.HandleFunc("GET /v1/lists/{id}/share", s.handleShareList)

	mux.HandleFunc("POST /v1/lists/{id}/items", s.handleAddItem)
	mux.HandleFunc("PATCH /v1/lists/{id}/items/{itemID}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /v1/lists/{id}/items/{itemID}", s.handleRemoveItem)
	mux.HandleFunc("POST /v1/lists/{id}/items/{itemID}/decrement", s.handleDecrementItem)

	mux.HandleFunc("POST /v1/lists/{id}/order", s.handlePlaceOrder)
	mux.HandleFunc("GET /v1/orders", s.handleOrderHistory)

	mux.HandleFunc("GET /v1/lists/{id}/suggestions", s.handleSuggestions)

	mux.HandleFunc("GET /v1/store/search", s.handleStoreSearch)
	mux.HandleFunc("GET /v1/store/categories", s.handleStoreCategories)
	mux.HandleFunc("GET /v1/store/categories/{category}", s.handleStoreCategory)
	mux.HandleFunc("GET /v1/store/popular", s.handleStorePopular)

	return observe.Middleware(s.metrics)(mux)
}
