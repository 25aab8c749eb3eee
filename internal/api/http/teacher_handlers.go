package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sirdavid001/online-exam-system/internal/exam"
	"github.com/sirdavid001/online-exam-system/internal/importer"
	"github.com/sirdavid001/online-exam-system/internal/storage"
	syncx "github.com/sirdavid001/online-exam-system/internal/sync"
)

const maxUploadBytes = 10 << 20

// errorPreviewLimit caps how many row errors the upload response lists inline.
const errorPreviewLimit = 8

// POST /teacher/courses
func CreateCourseHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c exam.Course
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(c.Name) == "" {
			http.Error(w, "course name is required", http.StatusBadRequest)
			return
		}
		if c.MaxAttempts <= 0 {
			c.MaxAttempts = 1
		}
		created, err := repo.CreateCourse(r.Context(), c)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// PUT /teacher/courses/{courseID}
func UpdateCourseHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := urlID(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		var c exam.Course
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		c.ID = courseID
		if err := repo.UpdateCourse(r.Context(), c); err != nil {
			writeDomainError(w, err)
			return
		}
		updated, err := repo.GetCourse(r.Context(), courseID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// DELETE /teacher/courses/{courseID}: cascades to questions.
func DeleteCourseHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := urlID(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		if err := repo.DeleteCourse(r.Context(), courseID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /teacher/courses: all courses including drafts.
func ListAllCoursesHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		courses, err := repo.ListCourses(r.Context(), exam.CourseListOpts{Q: q})
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

// POST /teacher/courses/{courseID}/questions: single question, validated the
// same way an imported row is.
func AddQuestionHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := urlID(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		var q exam.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q.CourseID = courseID
		if strings.TrimSpace(q.Text) == "" {
			http.Error(w, "question text is required", http.StatusBadRequest)
			return
		}
		if q.Marks <= 0 {
			http.Error(w, "marks must be greater than 0", http.StatusBadRequest)
			return
		}
		for _, opt := range q.Options() {
			if strings.TrimSpace(opt) == "" {
				http.Error(w, "all four options are required", http.StatusBadRequest)
				return
			}
		}
		if !q.Answer.Valid() {
			http.Error(w, "answer must be Option1..Option4", http.StatusBadRequest)
			return
		}
		if q.Difficulty == "" {
			q.Difficulty = exam.DifficultyIntermediate
		}
		created, err := repo.InsertQuestion(r.Context(), q)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := repo.RefreshAssessmentTotals(r.Context(), courseID); err != nil {
			log.Printf("refresh totals for course %d: %v", courseID, err)
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// GET /teacher/courses/{courseID}/questions: with answer keys, for review.
func ListQuestionsHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := urlID(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		qs, err := repo.QuestionsForCourse(r.Context(), courseID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if qs == nil {
			qs = []exam.Question{}
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

// DELETE /teacher/questions/{questionID}
func DeleteQuestionHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID, ok := urlID(r, "questionID")
		if !ok {
			http.Error(w, "bad question id", http.StatusBadRequest)
			return
		}
		if err := repo.DeleteQuestion(r.Context(), questionID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /teacher/uploads/*: fetch an archived upload by its blob key, for
// re-checking a disputed import against the original bytes.
func DownloadUploadHandler(blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if key == "" {
			http.Error(w, "missing key", http.StatusBadRequest)
			return
		}
		rc, err := blobs.Get(key)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.Copy(w, rc)
	}
}

type uploadResponse struct {
	Imported      int      `json:"imported"`
	ProcessedRows int      `json:"processed_rows"`
	Errors        []string `json:"errors"`
	MoreErrors    int      `json:"more_errors,omitempty"`
	ArchiveKey    string   `json:"archive_key,omitempty"`
}

// UploadQuestionsHandler handles POST /teacher/courses/{courseID}/questions/upload.
// Multipart form: "file" holds the delimited text, "has_header" defaults to
// true. Valid rows are committed in one transaction even when other rows
// fail; the raw upload is archived first so a disputed import can be
// replayed byte for byte.
func UploadQuestionsHandler(repo exam.Repo, blobs storage.BlobStore, events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := urlID(r, "courseID")
		if !ok {
			http.Error(w, "bad course id", http.StatusBadRequest)
			return
		}
		if _, err := repo.GetCourse(r.Context(), courseID); err != nil {
			writeDomainError(w, err)
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, "bad multipart form", http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "form field 'file' is required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		raw, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
		if err != nil {
			http.Error(w, "read upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(raw) > maxUploadBytes {
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}

		hasHeader := true
		if v := r.FormValue("has_header"); v != "" {
			hasHeader = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
		}

		archiveKey := fmt.Sprintf("uploads/courses/%d/%s.csv", courseID, uuid.NewString())
		if _, err := blobs.Put(archiveKey, bytes.NewReader(raw)); err != nil {
			log.Printf("archive upload %s: %v", archiveKey, err)
			archiveKey = ""
		}

		outcome, err := importer.Parse(raw, courseID, hasHeader)
		if err != nil {
			var missing *importer.MissingColumnsError
			switch {
			case errors.As(err, &missing),
				errors.Is(err, importer.ErrEmptyFile),
				errors.Is(err, importer.ErrUnreadableEncoding):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		imported := 0
		if len(outcome.Questions) > 0 {
			imported, err = repo.InsertQuestions(r.Context(), courseID, outcome.Questions)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}

		meta, _ := json.Marshal(map[string]any{
			"course_id":      courseID,
			"imported":       imported,
			"row_errors":     len(outcome.Errors),
			"processed_rows": outcome.ProcessedRows,
			"archive_key":    archiveKey,
		})
		_ = events.Append(r.Context(), syncx.EventQuestionsImported,
			fmt.Sprintf("course:%d", courseID), string(meta))

		resp := uploadResponse{
			Imported:      imported,
			ProcessedRows: outcome.ProcessedRows,
			Errors:        outcome.Errors,
			ArchiveKey:    archiveKey,
		}
		if len(resp.Errors) > errorPreviewLimit {
			resp.MoreErrors = len(resp.Errors) - errorPreviewLimit
			resp.Errors = resp.Errors[:errorPreviewLimit]
		}
		if resp.Errors == nil {
			resp.Errors = []string{}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
