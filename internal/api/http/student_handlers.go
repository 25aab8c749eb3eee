package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirdavid001/online-exam-system/internal/exam"
	syncx "github.com/sirdavid001/online-exam-system/internal/sync"
)

// GET /courses: published courses, for the exam list screen.
func ListCoursesHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		courses, err := repo.ListCourses(r.Context(), exam.CourseListOpts{PublishedOnly: true, Q: q})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if courses == nil {
			courses = []exam.Course{}
		}
		writeJSON(w, http.StatusOK, courses)
	}
}

// GET /courses/{courseID}/summary: the pre-exam screen: totals plus how
// many attempts the student has left.
func CourseSummaryHandler(repo exam.Repo, svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := urlID(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		studentID, ok := subjectID(r)
		if !ok {
			http.Error(w, "bad subject", http.StatusUnauthorized)
			return
		}
		course, err := repo.GetCourse(r.Context(), courseID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		taken, err := svc.AttemptsTaken(r.Context(), studentID, courseID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		remaining := course.MaxAttempts - taken
		if remaining < 0 {
			remaining = 0
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"course":             course,
			"attempts_taken":     taken,
			"remaining_attempts": remaining,
		})
	}
}

// POST /courses/{courseID}/attempts: start an attempt; returns the question
// set as presented (shuffled if the course says so, answer keys stripped).
func StartAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := urlID(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		studentID, ok := subjectID(r)
		if !ok {
			http.Error(w, "bad subject", http.StatusUnauthorized)
			return
		}
		started, err := svc.StartAttempt(r.Context(), studentID, courseID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, started)
	}
}

type submitRequest struct {
	// Keys are question IDs as strings; values are option tokens. Anything
	// absent or non-canonical scores as unanswered.
	Answers map[string]string `json:"answers"`
}

type submitResponse struct {
	Result   exam.Result `json:"result"`
	TimedOut bool        `json:"timed_out"`
	Message  string      `json:"message"`
}

// POST /courses/{courseID}/attempts/submit
func SubmitAttemptHandler(svc *exam.Service, events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := urlID(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		studentID, ok := subjectID(r)
		if !ok {
			http.Error(w, "bad subject", http.StatusUnauthorized)
			return
		}
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		answers := make(map[int64]string, len(req.Answers))
		for k, v := range req.Answers {
			if id, err := strconv.ParseInt(k, 10, 64); err == nil {
				answers[id] = v
			}
		}

		result, timedOut, err := svc.SubmitAttempt(r.Context(), studentID, courseID, answers)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		payload, _ := json.Marshal(result)
		key := fmt.Sprintf("%d:%d:%d", studentID, courseID, result.AttemptNumber)
		_ = events.Append(r.Context(), syncx.EventAttemptSubmitted, key, string(payload))

		status := "did not pass"
		if result.Passed {
			status = "passed"
		}
		writeJSON(w, http.StatusCreated, submitResponse{
			Result:   result,
			TimedOut: timedOut,
			Message: fmt.Sprintf("Attempt %d submitted. Score: %s/%d (%s%%). You %s.",
				result.AttemptNumber, result.Marks.StringFixed(2),
				result.TotalPossibleMarks, result.Percentage.StringFixed(2), status),
		})
	}
}

// GET /courses/{courseID}/results: the student's own attempt history.
func MyResultsHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := urlID(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		studentID, ok := subjectID(r)
		if !ok {
			http.Error(w, "bad subject", http.StatusUnauthorized)
			return
		}
		results, err := repo.ResultsForStudent(r.Context(), studentID, courseID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if results == nil {
			results = []exam.Result{}
		}
		writeJSON(w, http.StatusOK, results)
	}
}
