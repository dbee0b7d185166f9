package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/readquestapp/readquest-server/internal/http/response"
	"github.com/readquestapp/readquest-server/internal/service"
)

// handleStartReading moves the caller's progress on the book into the
// reading state, creating the record on first touch.
func (s *Server) handleStartReading(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "id")

	progress, err := s.progressService.StartReading(r.Context(), user.ID, bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, progress, s.logger)
}

// handleSetStatus transitions the caller's progress record.
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "id")

	var req service.SetStatusRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	progress, err := s.progressService.SetStatus(r.Context(), user.ID, bookID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, progress, s.logger)
}

// handleGetProgress returns the caller's progress record for the book.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "id")

	progress, err := s.progressService.Get(r.Context(), user.ID, bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, progress, s.logger)
}

// handleListProgress returns all of the caller's progress records.
func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	records, err := s.progressService.ListForUser(r.Context(), user.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, records, s.logger)
}

// handleStartSession opens a reading session on a chapter.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "id")

	var req service.StartSessionRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	progress, err := s.progressService.StartSession(r.Context(), user.ID, bookID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, progress, s.logger)
}

// handleEndSession closes the open reading session and reports what the
// activity earned.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "id")

	var req service.EndSessionRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.progressService.EndSession(r.Context(), user.ID, bookID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// handleMarkChapterRead records a chapter as read.
func (s *Server) handleMarkChapterRead(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "id")

	var req service.ChapterRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	progress, err := s.progressService.MarkChapterRead(r.Context(), user.ID, bookID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, progress, s.logger)
}

// handleCompleteChapter marks a chapter finished and reports the
// experience and unlocks it earned.
func (s *Server) handleCompleteChapter(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "id")

	var req service.ChapterRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.progressService.CompleteChapter(r.Context(), user.ID, bookID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// handleAddBookmark saves a bookmark on the caller's progress record.
func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "id")

	var req service.AddBookmarkRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	bookmark, err := s.progressService.AddBookmark(r.Context(), user.ID, bookID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, bookmark, s.logger)
}

// handleAddNote saves a chapter note.
func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "id")

	var req service.AddNoteRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	note, err := s.progressService.AddNote(r.Context(), user.ID, bookID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, note, s.logger)
}

// handleDeleteNote removes a note by ID.
func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "id")
	noteID := chi.URLParam(r, "noteID")

	if err := s.progressService.DeleteNote(r.Context(), user.ID, bookID, noteID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleSubmitQuiz records a chapter quiz attempt.
func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "id")

	var req service.SubmitQuizRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	result, err := s.progressService.SubmitQuiz(r.Context(), user.ID, bookID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, result, s.logger)
}
