package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var query models.AskQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ask request", zap.String("question", query.Question), zap.Int("top_k", query.TopK))
	result := s.engine.Ask(query.Question, query.TopK)
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": s.store.Categories(),
	})
}

func (s *Server) handleCategoryPairs(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if dec, err := url.PathUnescape(category); err == nil {
		category = dec
	}
	pairs := s.store.PairsIn(category)
	if len(pairs) == 0 {
		s.respondError(w, http.StatusNotFound, "category not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"qa_pairs": pairs,
	})
}

func (s *Server) handleAddPair(w http.ResponseWriter, r *http.Request) {
	var input models.QAPairInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("add pair request", zap.String("category", input.Category), zap.String("question", input.Question))
	pair, err := s.engine.AddEntry(input)
	if err != nil {
		if models.IsValidationError(err) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("add pair failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"category": input.Category,
		"qa_pair":  pair,
		"status":   "added",
	})
}

func (s *Server) handleSearchPairs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	hits, err := s.store.Search(q, limit)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query": q,
		"hits":  hits,
	})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req models.TrainRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	s.logger.Debug("train request", zap.Int("epochs", req.Epochs), zap.Int("batch_size", req.BatchSize))
	result, err := s.engine.Train(req)
	if err != nil {
		if models.IsValidationError(err) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("training failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		s.respondError(w, http.StatusNotImplemented, "schedules not enabled")
		return
	}
	var input models.ScheduleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sched, err := s.schedules.Create(r.Context(), input)
	if err != nil {
		if models.IsValidationError(err) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("create schedule failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, sched)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		s.respondError(w, http.StatusNotImplemented, "schedules not enabled")
		return
	}
	week := 0
	if raw := r.URL.Query().Get("week"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "week must be a positive integer")
			return
		}
		week = n
	}
	list, err := s.schedules.List(r.Context(), week)
	if err != nil {
		s.logger.Error("list schedules failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"schedules": list})
}

func (s *Server) handleWeeklySchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		s.respondError(w, http.StatusNotImplemented, "schedules not enabled")
		return
	}
	week, err := strconv.Atoi(chi.URLParam(r, "week"))
	if err != nil || week < 1 {
		s.respondError(w, http.StatusBadRequest, "week must be a positive integer")
		return
	}
	view, err := s.schedules.WeeklyView(r.Context(), week)
	if err != nil {
		s.logger.Error("weekly view failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"week": week,
		"days": view,
	})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		s.respondError(w, http.StatusNotImplemented, "schedules not enabled")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	sched, err := s.schedules.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "schedule not found")
		return
	}
	s.respondJSON(w, http.StatusOK, sched)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		s.respondError(w, http.StatusNotImplemented, "schedules not enabled")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	var input models.ScheduleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sched, err := s.schedules.Update(r.Context(), id, input)
	if err != nil {
		if models.IsValidationError(err) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, sched)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		s.respondError(w, http.StatusNotImplemented, "schedules not enabled")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	if err := s.schedules.Delete(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "schedule not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	categories, pairs := s.store.Counts()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"categories":    categories,
		"qa_pairs":      pairs,
		"neural_active": s.engine.NeuralActive(),
		"strategy":      s.engine.StrategyName(),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
