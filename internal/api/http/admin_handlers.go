package http

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/sirdavid001/online-exam-system/internal/exam"
)

// GET /admin/results?course_id=&student_id=&limit=&offset=
func ListResultsHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts exam.ResultListOpts
		q := r.URL.Query()
		opts.CourseID, _ = strconv.ParseInt(q.Get("course_id"), 10, 64)
		opts.StudentID, _ = strconv.ParseInt(q.Get("student_id"), 10, 64)
		opts.Limit, _ = strconv.Atoi(q.Get("limit"))
		opts.Offset, _ = strconv.Atoi(q.Get("offset"))

		results, err := repo.ListResults(r.Context(), opts)
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

// DELETE /admin/results/{resultID}
func DeleteResultHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resultID, ok := urlID(r, "resultID")
		if !ok {
			http.Error(w, "bad result id", http.StatusBadRequest)
			return
		}
		if err := repo.DeleteResult(r.Context(), resultID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ExportResultsHandler streams every result as CSV for offline reporting.
// GET /admin/results/export
func ExportResultsHandler(repo exam.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := repo.ExportResults(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)

		cw := csv.NewWriter(w)
		_ = cw.Write([]string{
			"student", "course", "attempt", "marks", "total_marks",
			"correct", "wrong", "unanswered", "percentage", "passed", "submitted_at",
		})
		for _, row := range rows {
			_ = cw.Write([]string{
				row.StudentUsername,
				row.CourseName,
				strconv.Itoa(row.AttemptNumber),
				row.Marks.StringFixed(2),
				strconv.Itoa(row.TotalPossibleMarks),
				strconv.Itoa(row.CorrectAnswers),
				strconv.Itoa(row.WrongAnswers),
				strconv.Itoa(row.Unanswered),
				row.Percentage.StringFixed(2),
				strconv.FormatBool(row.Passed),
				row.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		cw.Flush()
	}
}
