package api

import (
	"encoding/json/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/readquestapp/readquest-server/internal/http/response"
	"github.com/readquestapp/readquest-server/internal/service"
)

// handleGetSummary returns the caller's gamification overview.
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	summary, err := s.gamificationService.GetSummary(r.Context(), user.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, summary, s.logger)
}

// handleGetUserSummary returns another user's gamification overview.
func (s *Server) handleGetUserSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.gamificationService.GetSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, summary, s.logger)
}

// handleEvaluate runs a rule evaluation pass for the caller.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	result, err := s.gamificationService.Evaluate(r.Context(), user.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

// handleRecordStreak counts a qualifying reading day for the caller.
func (s *Server) handleRecordStreak(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	updated, err := s.gamificationService.RecordActivity(r.Context(), user.ID, time.Now())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, updated.Gamification.Streak, s.logger)
}

// handleListAchievements returns the static achievement catalog.
func (s *Server) handleListAchievements(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.gamificationService.AchievementRules(), s.logger)
}

// handleListBadges returns the static badge catalog.
func (s *Server) handleListBadges(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.gamificationService.BadgeRules(), s.logger)
}

// AddExperienceRequest is the librarian experience grant payload.
type AddExperienceRequest struct {
	Points int `json:"points"`
}

// handleAddExperience grants raw experience to a user. Librarian only.
func (s *Server) handleAddExperience(w http.ResponseWriter, r *http.Request) {
	var req AddExperienceRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.gamificationService.AddExperience(r.Context(), chi.URLParam(r, "id"), req.Points)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, user, s.logger)
}

// handleAwardAchievement manually unlocks an achievement. Librarian only.
func (s *Server) handleAwardAchievement(w http.ResponseWriter, r *http.Request) {
	librarian := currentUser(r.Context())

	var req service.AwardAchievementRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.gamificationService.Award(r.Context(), librarian.ID, chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, user, s.logger)
}

// handleResetGamification clears a user's gamification state. Librarian only.
func (s *Server) handleResetGamification(w http.ResponseWriter, r *http.Request) {
	user, err := s.gamificationService.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, user, s.logger)
}
