package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/bookworm/internal/models"
)

const (
	defaultListLimit   = 50
	maxListLimit       = 500
	defaultSearchLimit = 10
)

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("text")
	s.logger.Debug("recommend request", zap.String("query", query))
	rec, err := s.recommender.Recommend(r.Context(), query)
	if err != nil {
		s.logger.Error("recommendation failed", zap.String("query", query), zap.Error(err))
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var input models.BookInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.logger.Debug("add book request", zap.String("title", input.Title))
	res, err := s.ingest.AddBook(r.Context(), input)
	if err != nil {
		s.logger.Error("add book failed", zap.Error(err))
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid book id", http.StatusBadRequest)
		return
	}
	book, err := s.store.GetBook(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.respondError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	books, err := s.store.ListBooks(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list books failed", zap.Error(err))
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"books": books, "offset": offset, "limit": limit})
}

func (s *Server) handleSearchBooks(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		http.Error(w, "catalog search not enabled", http.StatusNotImplemented)
		return
	}
	limit, err := queryInt(r, "limit", defaultSearchLimit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	q := r.URL.Query().Get("q")
	hits, err := s.catalog.Search(r.Context(), q, limit)
	if err != nil {
		s.logger.Error("catalog search failed", zap.String("query", q), zap.Error(err))
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": q, "hits": hits})
}

func (s *Server) handlePopulate(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	// a started run completes even if the client goes away
	ctx := context.WithoutCancel(r.Context())
	report, err := s.pager.RunPage(ctx, cursor)
	if err != nil {
		s.logger.Error("populate failed", zap.String("cursor", cursor), zap.Error(err))
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleStartPopulate(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	ctx := context.WithoutCancel(r.Context())
	resp, err := s.pager.StartPage(ctx, cursor)
	if err != nil {
		s.logger.Error("start populate failed", zap.String("cursor", cursor), zap.Error(err))
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		http.Error(w, "status not available", http.StatusNotImplemented)
		return
	}
	st, err := s.status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, models.Validationf("invalid %s %q", key, raw)
	}
	return n, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes err as a plain-text body with a status derived from its kind.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
