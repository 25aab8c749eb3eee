package exam_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirdavid001/online-exam-system/internal/db"
	"github.com/sirdavid001/online-exam-system/internal/exam"

	_ "modernc.org/sqlite" // driver for "sqlite"
)

func newTestStore(t *testing.T) *exam.SQLStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return exam.NewSQLStore(dbh, "sqlite")
}

func seedSQLCourse(t *testing.T, store *exam.SQLStore) exam.Course {
	t.Helper()
	course, err := store.CreateCourse(context.Background(), exam.Course{
		Name:                 "Databases II",
		Code:                 "CSC302",
		Level:                "300",
		Semester:             "SECOND",
		DurationMinutes:      45,
		PassMark:             40,
		MaxAttempts:          2,
		NegativeMarkPerWrong: dec("0.50"),
		ShuffleQuestions:     true,
		IsPublished:          true,
	})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	return course
}

func TestSQLStore_CourseRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	course := seedSQLCourse(t, store)

	got, err := store.GetCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if got.Name != "Databases II" || got.Code != "CSC302" {
		t.Fatalf("course fields lost: %+v", got)
	}
	if got.NegativeMarkPerWrong.StringFixed(2) != "0.50" {
		t.Fatalf("decimal round trip: %s", got.NegativeMarkPerWrong)
	}
	if !got.ShuffleQuestions || !got.IsPublished {
		t.Fatalf("boolean round trip: %+v", got)
	}

	got.Name = "Databases II (revised)"
	got.IsPublished = false
	if err := store.UpdateCourse(ctx, got); err != nil {
		t.Fatalf("update course: %v", err)
	}
	updated, err := store.GetCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if updated.Name != "Databases II (revised)" || updated.IsPublished {
		t.Fatalf("update not persisted: %+v", updated)
	}

	if _, err := store.GetCourse(ctx, 99999); err != exam.ErrCourseNotFound {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestSQLStore_ListCoursesPublishedOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedSQLCourse(t, store)
	if _, err := store.CreateCourse(ctx, exam.Course{Name: "Draft Course", MaxAttempts: 1}); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	all, err := store.ListCourses(ctx, exam.CourseListOpts{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(all))
	}

	published, err := store.ListCourses(ctx, exam.CourseListOpts{PublishedOnly: true})
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if len(published) != 1 || published[0].Name != "Databases II" {
		t.Fatalf("published filter wrong: %+v", published)
	}
}

func TestSQLStore_InsertQuestionsRefreshesTotals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	course := seedSQLCourse(t, store)

	n, err := store.InsertQuestions(ctx, course.ID, []exam.Question{
		{Marks: 10, Text: "Q1", Option1: "a", Option2: "b", Option3: "c", Option4: "d", Answer: exam.Option1, Difficulty: exam.DifficultyBeginner},
		{Marks: 5, Text: "Q2", Option1: "a", Option2: "b", Option3: "c", Option4: "d", Answer: exam.Option2, Difficulty: exam.DifficultyAdvanced},
	})
	if err != nil {
		t.Fatalf("insert questions: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}

	got, err := store.GetCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if got.QuestionNumber != 2 || got.TotalMarks != 15 {
		t.Fatalf("aggregates stale: %d questions, %d marks", got.QuestionNumber, got.TotalMarks)
	}

	qs, err := store.QuestionsForCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 2 || qs[0].Answer != exam.Option1 || qs[1].Difficulty != exam.DifficultyAdvanced {
		t.Fatalf("question round trip: %+v", qs)
	}

	// Deleting one question refreshes the aggregates again.
	if err := store.DeleteQuestion(ctx, qs[0].ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	got, err = store.GetCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if got.QuestionNumber != 1 || got.TotalMarks != 5 {
		t.Fatalf("aggregates stale after delete: %d questions, %d marks", got.QuestionNumber, got.TotalMarks)
	}
}

func TestSQLStore_QuestionsByIDsKeepsCallerOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	course := seedSQLCourse(t, store)

	if _, err := store.InsertQuestions(ctx, course.ID, []exam.Question{
		{Marks: 1, Text: "Q1", Option1: "a", Option2: "b", Option3: "c", Option4: "d", Answer: exam.Option1, Difficulty: exam.DifficultyIntermediate},
		{Marks: 1, Text: "Q2", Option1: "a", Option2: "b", Option3: "c", Option4: "d", Answer: exam.Option1, Difficulty: exam.DifficultyIntermediate},
		{Marks: 1, Text: "Q3", Option1: "a", Option2: "b", Option3: "c", Option4: "d", Answer: exam.Option1, Difficulty: exam.DifficultyIntermediate},
	}); err != nil {
		t.Fatalf("insert questions: %v", err)
	}
	all, err := store.QuestionsForCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}

	// Shuffled session order plus one ID that no longer exists.
	want := []int64{all[2].ID, all[0].ID, 424242, all[1].ID}
	got, err := store.QuestionsByIDs(ctx, course.ID, want)
	if err != nil {
		t.Fatalf("by ids: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(got))
	}
	if got[0].ID != all[2].ID || got[1].ID != all[0].ID || got[2].ID != all[1].ID {
		t.Fatalf("order not preserved: %d %d %d", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestSQLStore_ResultUniquenessAndListing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	course := seedSQLCourse(t, store)

	base := exam.Result{
		StudentID:          7,
		CourseID:           course.ID,
		AttemptNumber:      1,
		Marks:              dec("8.75"),
		TotalPossibleMarks: 15,
		TotalQuestions:     2,
		CorrectAnswers:     1,
		WrongAnswers:       1,
		Percentage:         dec("58.33"),
		Passed:             true,
		CreatedAt:          time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	first, err := store.InsertResult(ctx, base)
	if err != nil {
		t.Fatalf("insert result: %v", err)
	}
	if first.ID == 0 {
		t.Fatalf("expected generated ID")
	}

	// Same (student, course, attempt) slot must conflict.
	if _, err := store.InsertResult(ctx, base); err != exam.ErrAttemptConflict {
		t.Fatalf("expected ErrAttemptConflict, got %v", err)
	}

	n, err := store.CountResults(ctx, 7, course.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 result, got %d", n)
	}

	got, err := store.ResultsForStudent(ctx, 7, course.ID)
	if err != nil {
		t.Fatalf("results for student: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	r := got[0]
	if r.Marks.StringFixed(2) != "8.75" || r.Percentage.StringFixed(2) != "58.33" || !r.Passed {
		t.Fatalf("result round trip: %+v", r)
	}
	if !r.CreatedAt.Equal(base.CreatedAt) {
		t.Fatalf("created_at round trip: %v", r.CreatedAt)
	}

	rows, err := store.ExportResults(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 1 || rows[0].CourseName != "Databases II" {
		t.Fatalf("export rows: %+v", rows)
	}
	// No matching user row: username comes back empty rather than failing.
	if rows[0].StudentUsername != "" {
		t.Fatalf("expected empty username, got %q", rows[0].StudentUsername)
	}

	if err := store.DeleteResult(ctx, first.ID); err != nil {
		t.Fatalf("delete result: %v", err)
	}
	if err := store.DeleteResult(ctx, first.ID); err != exam.ErrResultNotFound {
		t.Fatalf("expected ErrResultNotFound, got %v", err)
	}
}

func TestSQLStore_DeleteCourseCascadesQuestions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	course := seedSQLCourse(t, store)

	if _, err := store.InsertQuestions(ctx, course.ID, []exam.Question{
		{Marks: 1, Text: "Q1", Option1: "a", Option2: "b", Option3: "c", Option4: "d", Answer: exam.Option1, Difficulty: exam.DifficultyIntermediate},
	}); err != nil {
		t.Fatalf("insert questions: %v", err)
	}

	if err := store.DeleteCourse(ctx, course.ID); err != nil {
		t.Fatalf("delete course: %v", err)
	}
	qs, err := store.QuestionsForCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("questions after delete: %v", err)
	}
	if len(qs) != 0 {
		t.Fatalf("expected cascade delete, got %d questions", len(qs))
	}
}
