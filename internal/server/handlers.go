package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/agrisage/agrisage/internal/geo"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		s.respondError(w, http.StatusBadRequest, "location is required")
		return
	}
	snap, err := s.weather.Snapshot(r.Context(), location)
	if err != nil {
		s.respondWeatherError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWeatherTimeline(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		s.respondError(w, http.StatusBadRequest, "location is required")
		return
	}
	// The query steers the horizon: "next 3 weeks" fetches 21 days.
	query := r.URL.Query().Get("query")
	tl := s.extractor.Extract(query)
	series, err := s.weather.Series(r.Context(), location, tl)
	if err != nil {
		s.respondWeatherError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, series)
}

type askRequest struct {
	Query    string `json:"query"`
	Location string `json:"location"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Location == "" {
		s.respondError(w, http.StatusBadRequest, "location is required")
		return
	}
	s.logger.Debug("ask request",
		zap.String("query", req.Query), zap.String("location", req.Location))
	record, err := s.composer.Answer(r.Context(), req.Query, req.Location)
	if err != nil {
		s.respondWeatherError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, record)
}

type refreshRequest struct {
	Location string `json:"location,omitempty"`
}

// handleRefresh drops the weather cache and the index unit together so
// the next query rebuilds both from fresh data.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := s.weather.ClearCache(); err != nil {
		s.logger.Error("weather cache clear failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.engine.Refresh(r.Context()); err != nil {
		s.logger.Error("index refresh failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Status(r.Context())
	resp := map[string]interface{}{
		"index_exists": st.IndexExists,
		"chunk_count":  st.ChunkCount,
		"embedder":     st.Embedder,
	}
	if !st.BuiltAt.IsZero() {
		resp["index_built_at"] = st.BuiltAt
	}
	if age, ok := s.weather.CacheAge(); ok {
		resp["weather_cache_age_minutes"] = int(age.Minutes())
	}
	resp["cached_locations"] = s.weather.CachedLocations()
	s.respondJSON(w, http.StatusOK, resp)
}

// respondWeatherError maps geocoding failures to 404; everything else is
// a 500.
func (s *Server) respondWeatherError(w http.ResponseWriter, err error) {
	var geoErr *geo.GeocodeError
	if errors.As(err, &geoErr) {
		s.respondError(w, http.StatusNotFound, geoErr.Error())
		return
	}
	s.logger.Error("request failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
