package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labrat/labrat/internal/engine"
	"github.com/labrat/labrat/internal/store"
)

type HealthResponse struct {
	Status           string `json:"status"`
	ExperimentsCount int    `json:"experiments_count"`
	DBSizeBytes      int64  `json:"db_size_bytes"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	experiments, err := s.store.ListExperiments(r.Context())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var dbSize int64
	row := s.store.DB().QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	_ = row.Scan(&dbSize)

	writeJSON(w, HealthResponse{
		Status:           "ok",
		ExperimentsCount: len(experiments),
		DBSizeBytes:      dbSize,
		UptimeSeconds:    int64(time.Since(s.startTime).Seconds()),
	})
}

// BeaconRequest is an incoming tracking hit: an assignment ("a") or a
// conversion ("c").
type BeaconRequest struct {
	ExperimentID string         `json:"e"`
	UserID       string         `json:"u"`
	Variant      string         `json:"v"`
	Type         string         `json:"t"`
	Properties   map[string]any `json:"p,omitempty"`
}

func (s *Server) handleBeacon(w http.ResponseWriter, r *http.Request) {
	// CORS: beacons arrive from customer sites
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BeaconRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.ExperimentID == "" || req.UserID == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	if req.Type != "a" && req.Type != "c" {
		http.Error(w, "Invalid beacon type", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	exp, err := s.store.GetExperiment(ctx, req.ExperimentID)
	if err != nil {
		http.Error(w, "Experiment not found", http.StatusBadRequest)
		return
	}

	// Hits for paused or completed experiments are dropped, not errors:
	// stale snippets keep firing after an experiment ends.
	if exp.Status != store.StatusRunning {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch req.Type {
	case "a":
		if !exp.HasVariant(req.Variant) {
			http.Error(w, "Invalid variant", http.StatusBadRequest)
			return
		}
		err = s.store.RecordAssignment(ctx, exp.ID, req.UserID, req.Variant, time.Now())
	case "c":
		err = s.store.RecordConversion(ctx, req.UserID, exp.GoalEvent, req.Properties, time.Now())
	}
	if err != nil {
		http.Error(w, "Failed to record event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExperimentConfigResponse is the public shape served to the tracker.
type ExperimentConfigResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Variants  []string `json:"variants"`
	GoalEvent string   `json:"goal_event"`
	Status    string   `json:"status"`
}

func (s *Server) handleExperimentList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	experiments, err := s.store.ListExperiments(r.Context())
	if err != nil {
		http.Error(w, "Failed to list experiments", http.StatusInternalServerError)
		return
	}

	response := make([]ExperimentConfigResponse, 0, len(experiments))
	for _, exp := range experiments {
		response = append(response, configResponse(exp))
	}
	writeJSON(w, response)
}

// handleExperimentAPI routes /api/experiments/{id} and
// /api/experiments/{id}/{view}. The bare config read is public; the
// analytics views require the token.
func (s *Server) handleExperimentAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/experiments/")
	parts := strings.SplitN(strings.Trim(path, "/"), "/", 2)
	if parts[0] == "" {
		http.Error(w, "Experiment id required", http.StatusBadRequest)
		return
	}
	experimentID := parts[0]

	if len(parts) == 1 {
		exp, err := s.store.GetExperiment(r.Context(), experimentID)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Experiment not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, configResponse(exp))
		return
	}

	if !s.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	var payload any
	var err error

	switch parts[1] {
	case "results":
		payload, err = s.engine.Results(ctx, experimentID)
	case "significance":
		payload, err = s.engine.Significance(ctx, experimentID)
	case "comparison":
		payload, err = s.engine.Comparison(ctx, experimentID)
	case "timeseries":
		granularity := r.URL.Query().Get("granularity")
		if granularity == "" {
			granularity = string(store.GranularityDay)
		}
		var g store.Granularity
		g, err = store.ParseGranularity(granularity)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		payload, err = s.engine.TimeSeries(ctx, experimentID, g)
	case "recommendation":
		payload, err = s.engine.Recommendation(ctx, experimentID)
	default:
		http.Error(w, "Unknown view", http.StatusNotFound)
		return
	}

	switch {
	case errors.Is(err, engine.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	default:
		writeJSON(w, payload)
	}
}

func configResponse(exp *store.Experiment) ExperimentConfigResponse {
	return ExperimentConfigResponse{
		ID:        exp.ID,
		Name:      exp.Name,
		Variants:  exp.Variants,
		GoalEvent: exp.GoalEvent,
		Status:    string(exp.Status),
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
