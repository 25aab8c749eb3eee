package exam

import "context"

type CourseListOpts struct {
	PublishedOnly bool
	Q             string // substring match on name/code
	Limit         int
	Offset        int
}

type ResultListOpts struct {
	CourseID  int64 // 0 = all
	StudentID int64 // 0 = all
	Limit     int
	Offset    int
}

// ResultExportRow is a Result joined with the display fields the reporting
// collaborators need.
type ResultExportRow struct {
	Result
	StudentUsername string
	CourseName      string
}

// Repo is the full persistence surface. The scoring engine itself only needs
// the narrower AttemptRepo subset (service.go).
type Repo interface {
	AttemptRepo

	CreateCourse(ctx context.Context, c Course) (Course, error)
	UpdateCourse(ctx context.Context, c Course) error
	DeleteCourse(ctx context.Context, id int64) error
	ListCourses(ctx context.Context, opts CourseListOpts) ([]Course, error)

	InsertQuestion(ctx context.Context, q Question) (Question, error)
	// InsertQuestions persists the batch in a single transaction and refreshes
	// the owning course's derived aggregates before committing.
	InsertQuestions(ctx context.Context, courseID int64, qs []Question) (int, error)
	DeleteQuestion(ctx context.Context, id int64) error
	// RefreshAssessmentTotals recomputes question_number and total_marks from
	// the current question set. Call it after any bulk insert/delete.
	RefreshAssessmentTotals(ctx context.Context, courseID int64) error

	ResultsForStudent(ctx context.Context, studentID, courseID int64) ([]Result, error)
	ListResults(ctx context.Context, opts ResultListOpts) ([]Result, error)
	DeleteResult(ctx context.Context, id int64) error
	ExportResults(ctx context.Context) ([]ResultExportRow, error)
}
