package exam

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/sirdavid001/online-exam-system/internal/session"
)

var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrResultNotFound      = errors.New("result not found")
	ErrNoQuestions         = errors.New("no questions available for this course")
	ErrCourseUnavailable   = errors.New("course is not open for attempts")
	ErrMaxAttempts         = errors.New("maximum attempts reached for this exam")
	ErrNoScorableQuestions = errors.New("no valid exam questions found for scoring")
	// ErrAttemptConflict surfaces the storage-layer uniqueness of
	// (student, course, attempt_number); a racing duplicate submission must
	// fail here rather than overwrite.
	ErrAttemptConflict = errors.New("attempt slot already recorded")
)

// AttemptRepo is the persistence slice the scoring engine needs.
type AttemptRepo interface {
	GetCourse(ctx context.Context, id int64) (Course, error)
	// QuestionsForCourse returns the full current question set in ID order.
	QuestionsForCourse(ctx context.Context, courseID int64) ([]Question, error)
	// QuestionsByIDs returns the questions of the course whose IDs appear in
	// ids, in the order ids gives them. IDs that no longer exist are skipped.
	QuestionsByIDs(ctx context.Context, courseID int64, ids []int64) ([]Question, error)
	CountResults(ctx context.Context, studentID, courseID int64) (int, error)
	InsertResult(ctx context.Context, r Result) (Result, error)
}

// Service orchestrates the attempt lifecycle: start, submit/score, count.
type Service struct {
	repo     AttemptRepo
	sessions session.Store
	now      func() time.Time
	perm     func(n int) []int
}

type Option func(*Service)

// WithClock overrides the wall clock, for deterministic timeout tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPerm overrides the shuffle permutation source.
func WithPerm(perm func(n int) []int) Option {
	return func(s *Service) { s.perm = perm }
}

func NewService(repo AttemptRepo, sessions session.Store, opts ...Option) *Service {
	s := &Service{repo: repo, sessions: sessions, now: time.Now, perm: rand.Perm}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttemptsTaken counts the completed attempts for (student, course).
func (s *Service) AttemptsTaken(ctx context.Context, studentID, courseID int64) (int, error) {
	return s.repo.CountResults(ctx, studentID, courseID)
}

// StartAttempt selects (and optionally shuffles) the question set, records
// the session state, and returns the exam as presented to the student.
// Nothing is written to persistent storage.
func (s *Service) StartAttempt(ctx context.Context, studentID, courseID int64) (StartedExam, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return StartedExam{}, err
	}
	if !course.AvailableNow(s.now()) {
		return StartedExam{}, ErrCourseUnavailable
	}
	taken, err := s.repo.CountResults(ctx, studentID, courseID)
	if err != nil {
		return StartedExam{}, err
	}
	if taken >= course.MaxAttempts {
		return StartedExam{}, ErrMaxAttempts
	}

	questions, err := s.repo.QuestionsForCourse(ctx, courseID)
	if err != nil {
		return StartedExam{}, err
	}
	if len(questions) == 0 {
		return StartedExam{}, ErrNoQuestions
	}

	if course.ShuffleQuestions {
		shuffled := make([]Question, len(questions))
		for i, j := range s.perm(len(questions)) {
			shuffled[i] = questions[j]
		}
		questions = shuffled
	}

	ids := make([]int64, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	err = s.sessions.Put(ctx, studentID, courseID, session.ExamSession{
		QuestionIDs: ids,
		StartedAt:   s.now(),
	})
	if err != nil {
		return StartedExam{}, err
	}

	// Strip answer keys and explanations before handing questions out.
	presented := make([]Question, len(questions))
	for i, q := range questions {
		q.Answer = ""
		q.Explanation = ""
		presented[i] = q
	}
	return StartedExam{
		Course:          course,
		Questions:       presented,
		AttemptNumber:   taken + 1,
		DurationSeconds: course.DurationMinutes * 60,
	}, nil
}

// SubmitAttempt scores the submitted answers against the session's question
// set (or the course's full current set when no session exists), persists
// exactly one Result, and clears the session. The returned bool flags a
// submission past the course duration; it never blocks or alters the score.
func (s *Service) SubmitAttempt(ctx context.Context, studentID, courseID int64, answers map[int64]string) (Result, bool, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Result{}, false, err
	}

	// Re-checked here even though StartAttempt already did: submission can
	// race with earlier completed attempts.
	taken, err := s.repo.CountResults(ctx, studentID, courseID)
	if err != nil {
		return Result{}, false, err
	}
	if taken >= course.MaxAttempts {
		return Result{}, false, ErrMaxAttempts
	}

	sess, hasSession, err := s.sessions.Get(ctx, studentID, courseID)
	if err != nil {
		return Result{}, false, err
	}

	var questions []Question
	if hasSession && len(sess.QuestionIDs) > 0 {
		questions, err = s.repo.QuestionsByIDs(ctx, courseID, sess.QuestionIDs)
	} else {
		// Fallback keeps compatibility when session state is unavailable.
		questions, err = s.repo.QuestionsForCourse(ctx, courseID)
	}
	if err != nil {
		return Result{}, false, err
	}
	if len(questions) == 0 {
		return Result{}, false, ErrNoScorableQuestions
	}

	timedOut := false
	if hasSession && !sess.StartedAt.IsZero() {
		deadline := sess.StartedAt.Add(time.Duration(course.DurationMinutes) * time.Minute)
		timedOut = s.now().After(deadline)
	}

	result := scoreSubmission(course, questions, answers)
	result.StudentID = studentID
	result.CourseID = courseID
	result.AttemptNumber = taken + 1
	result.CreatedAt = s.now()

	created, err := s.repo.InsertResult(ctx, result)
	if err != nil {
		return Result{}, false, err
	}
	// Best effort: the result is already durable.
	_ = s.sessions.Delete(ctx, studentID, courseID)
	return created, timedOut, nil
}
