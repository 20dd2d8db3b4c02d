package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hokan/hokan/internal/store"
)

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type indexRequest struct {
	// Paths are files or directories on the server's filesystem.
	Paths []string `json:"paths"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := s.manager.ListCollections(r.Context())
	if err != nil {
		s.logger.Error("list collections failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{"collections": names})
}

func (s *Server) handleCollectionInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, err := s.manager.CollectionInfo(r.Context(), name)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query must not be empty")
		return
	}
	if req.K <= 0 {
		req.K = 5
	}
	s.logger.Debug("search request",
		zap.String("collection", name),
		zap.String("query", req.Query),
		zap.Int("k", req.K))

	results, err := s.manager.Search(r.Context(), name, req.Query, req.K)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"collection": name,
		"results":    results,
	})
}

func (s *Server) handleIndexDocuments(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Paths) == 0 {
		s.respondError(w, http.StatusBadRequest, "paths must not be empty")
		return
	}

	report, err := s.manager.IndexDocuments(r.Context(), name, req.Paths)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	source := chi.URLParam(r, "source")
	deleted, err := s.manager.DeleteBySource(r.Context(), name, source)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"collection": name,
		"source":     source,
		"deleted":    deleted,
	})
}

// respondStoreError maps a missing collection to 404 and everything else to 500.
func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrCollectionNotFound) {
		s.respondError(w, http.StatusNotFound, "collection not found")
		return
	}
	s.logger.Error("store operation failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
