package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wealthpath/goalengine/internal/cache"
	"github.com/wealthpath/goalengine/internal/engine"
	"github.com/wealthpath/goalengine/internal/models"
)

// Server wraps the engine and cache behind chi routes.
type Server struct {
	engine *engine.Engine
	cache  *cache.Cache
	log    zerolog.Logger
}

// NewRouter builds the full chi.Router for the demo HTTP surface: POST
// /analyze, POST /recommend, POST /compare, and the cache-control
// endpoints.
func NewRouter(e *engine.Engine, c *cache.Cache, log zerolog.Logger) http.Handler {
	s := &Server{engine: e, cache: c, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/recommend", s.handleRecommend)
	r.Post("/compare", s.handleCompare)

	r.Route("/cache", func(cr chi.Router) {
		cr.Get("/stats", s.handleCacheStats)
		cr.Post("/save", s.handleCacheSave)
		cr.Post("/load", s.handleCacheLoad)
		cr.Post("/invalidate", s.handleCacheInvalidate)
		cr.Post("/configure", s.handleCacheConfigure)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := req.Goal.toGoal()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid target_date: "+err.Error())
		return
	}
	profile := req.Profile.toProfile()

	result, err := s.engine.Analyze(r.Context(), goal, profile, req.toAnalyzeOptions())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := req.Goal.toGoal()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid target_date: "+err.Error())
		return
	}
	profile := req.Profile.toProfile()

	recs, err := s.engine.Recommend(r.Context(), goal, profile, engine.RecommendOptions{
		AnalyzeOptions: req.toAnalyzeOptions(),
		TopK:           req.TopK,
		MinDelta:       req.MinDelta,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"recommendations": recs})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Goals) == 0 {
		respondError(w, http.StatusBadRequest, "goals must not be empty")
		return
	}

	goals := make([]models.Goal, 0, len(req.Goals))
	for _, gr := range req.Goals {
		g, err := gr.toGoal()
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid target_date: "+err.Error())
			return
		}
		goals = append(goals, g)
	}
	profile := req.Profile.toProfile()

	comparison := s.engine.Compare(r.Context(), goals, profile, req.toAnalyzeOptionsForCompare())
	respondJSON(w, http.StatusOK, comparisonResponse(comparison))
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCacheSave(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		respondError(w, http.StatusBadRequest, "missing path query parameter")
		return
	}
	if err := s.cache.Save(path); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleCacheLoad(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		respondError(w, http.StatusBadRequest, "missing path query parameter")
		return
	}
	s.cache.Load(path)
	respondJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	s.cache.Invalidate(pattern)
	respondJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (s *Server) handleCacheConfigure(w http.ResponseWriter, r *http.Request) {
	var req ConfigureCacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxEntries < 0 || req.TTLSeconds < 0 {
		respondError(w, http.StatusBadRequest, "max_entries and ttl_seconds must be non-negative")
		return
	}

	s.cache.Configure(cache.Config{
		MaxEntries: req.MaxEntries,
		TTL:        time.Duration(req.TTLSeconds) * time.Second,
	})
	respondJSON(w, http.StatusOK, s.cache.Stats())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondEngineError maps the engine's sentinel error taxonomy onto HTTP
// status codes.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidGoal), errors.Is(err, models.ErrInvalidProfile),
		errors.Is(err, models.ErrInvalidHorizon), errors.Is(err, models.ErrScheduleMismatch),
		errors.Is(err, models.ErrInsufficientTrials), errors.Is(err, models.ErrTrialCountExceedsLimit):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrBusyRejected):
		respondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, models.ErrDeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
