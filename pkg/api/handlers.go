package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// maxRequestBody caps POST bodies; a request is just {"url": "..."}
const maxRequestBody = 64 << 10

type runCrawlerRequest struct {
	URL string `json:"url"`
}

type runCrawlerResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleRunCrawler accepts any URL string; an unusable one produces a failing checklist, not a 400
func (s *Server) handleRunCrawler(w http.ResponseWriter, r *http.Request) {
	var req runCrawlerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.respondWithJSON(w, http.StatusBadRequest, runCrawlerResponse{Success: false, Error: "Invalid request body: " + err.Error()})
		return
	}

	id := s.registry.Spawn(req.URL, s.run)
	s.log.WithFields(logrus.Fields{"task_id": id, "url": req.URL}).Info("Crawl requested")
	s.respondWithJSON(w, http.StatusOK, runCrawlerResponse{Success: true, TaskID: id})
}

func (s *Server) handleCrawlerResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task_id")
	status, ok := s.registry.Poll(id)
	if !ok {
		s.respondWithError(w, http.StatusNotFound, "Task not found")
		return
	}
	s.respondWithJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"tasks":         s.registry.Len(),
		"tasks_pending": s.registry.Pending(),
	})
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.log.Errorf("Encoding response: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
