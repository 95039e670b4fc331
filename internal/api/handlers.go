package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atmoslab/fluxpro/internal/output"
	"github.com/atmoslab/fluxpro/internal/storage"
	"github.com/atmoslab/fluxpro/pkg/version"
)

// Response helpers

type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

type successResponse struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	File    string `json:"file"`
	Sample  int    `json:"sample"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Code:    status,
		Message: message,
	})
}

// Handlers

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version.GetShortVersion(),
		File:    s.table.Path,
		Sample:  s.table.Sample,
	})
}

// handleGetGases returns the gases present in the loaded output file.
func (s *Server) handleGetGases(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, successResponse{
		Status: "ok",
		Data:   s.table.Gases,
	})
}

// handleGetAllSeries returns chart data for every gas.
func (s *Server) handleGetAllSeries(w http.ResponseWriter, r *http.Request) {
	series := make([]output.Series, 0, len(s.table.Gases))
	for _, gas := range s.table.Gases {
		series = append(series, s.table.Series(gas))
	}
	s.writeJSON(w, http.StatusOK, successResponse{
		Status: "ok",
		Data:   series,
	})
}

// handleGetSeries returns chart data for one gas.
func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	gas := chi.URLParam(r, "gas")
	if !s.table.HasGas(gas) {
		s.writeError(w, http.StatusNotFound, "Gas not found: "+gas)
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{
		Status: "ok",
		Data:   s.table.Series(gas),
	})
}

// handleGetRuns returns stored runs with optional filtering.
func (s *Server) handleGetRuns(w http.ResponseWriter, r *http.Request) {
	filter := storage.RunFilter{}

	// Parse query parameters
	if input := r.URL.Query().Get("input"); input != "" {
		filter.InputFile = input
	}

	if since := r.URL.Query().Get("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			filter.Since = t
		} else if d, err := time.ParseDuration(since); err == nil {
			filter.Since = time.Now().Add(-d)
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			filter.Limit = l
		}
	} else {
		filter.Limit = 100 // Default limit
	}

	runs, err := s.storage.GetRuns(r.Context(), filter)
	if err != nil {
		s.logger.Error("Failed to get runs", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{
		Status: "ok",
		Data:   runs,
	})
}

// handleGetRun returns a single stored run and its flux records.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	run, err := s.storage.GetRun(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Run not found")
		return
	}

	records, err := s.storage.GetFluxRecords(r.Context(), id)
	if err != nil {
		s.logger.Error("Failed to get flux records", zap.Int64("run", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve flux records")
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{
		Status: "ok",
		Data: map[string]interface{}{
			"run":     run,
			"records": records,
		},
	})
}

// handleGetGasStats returns statistics for a gas across stored runs.
func (s *Server) handleGetGasStats(w http.ResponseWriter, r *http.Request) {
	gas := chi.URLParam(r, "gas")
	if gas == "" {
		s.writeError(w, http.StatusBadRequest, "Gas required")
		return
	}

	// Parse period (default 24h)
	period := 24 * time.Hour
	if p := r.URL.Query().Get("period"); p != "" {
		if d, err := time.ParseDuration(p); err == nil {
			period = d
		}
	}

	stats, err := s.storage.GetGasStats(r.Context(), gas, period)
	if err != nil {
		s.logger.Error("Failed to get stats", zap.String("gas", gas), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve statistics")
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{
		Status: "ok",
		Data:   stats,
	})
}
