package http

import (
	"net/http"

	"tracker/internal/log"
	"tracker/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Ready(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Backend not ready", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.Overview(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHabits(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.Habits(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.Expenses(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGym(w http.ResponseWriter, r *http.Request) {
	exercise := sanitizeInput(r.URL.Query().Get("exercise"))
	view, err := s.tracker.Gym(r.Context(), exercise)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type exercisesResponse struct {
	Exercises []string           `json:"exercises"`
	Warnings  []services.Warning `json:"warnings,omitempty"`
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	names, warns, err := s.tracker.Exercises(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exercisesResponse{Exercises: names, Warnings: warns})
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req habitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := req.entry()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.tracker.RecordHabit(r.Context(), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := req.entry()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.tracker.RecordExpense(r.Context(), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleCreateGymSet(w http.ResponseWriter, r *http.Request) {
	var req gymRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	set, err := req.entry()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.tracker.RecordGymSet(r.Context(), set)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}
