package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	auth "github.com/sirdavid001/online-exam-system/internal/auth/middleware"
	"github.com/sirdavid001/online-exam-system/internal/exam"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// subjectID extracts the authenticated user's numeric ID from the context.
func subjectID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(auth.SubjectFromContext(r.Context()), 10, 64)
	return id, err == nil
}

func urlID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exam.ErrCourseNotFound),
		errors.Is(err, exam.ErrQuestionNotFound),
		errors.Is(err, exam.ErrResultNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, exam.ErrMaxAttempts),
		errors.Is(err, exam.ErrAttemptConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, exam.ErrCourseUnavailable):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, exam.ErrNoQuestions),
		errors.Is(err, exam.ErrNoScorableQuestions):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
