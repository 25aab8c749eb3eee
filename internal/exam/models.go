package exam

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnswerKey identifies which of a question's four options is correct.
type AnswerKey string

const (
	Option1 AnswerKey = "Option1"
	Option2 AnswerKey = "Option2"
	Option3 AnswerKey = "Option3"
	Option4 AnswerKey = "Option4"
)

// Valid reports whether k is one of the four canonical option tokens.
func (k AnswerKey) Valid() bool {
	switch k {
	case Option1, Option2, Option3, Option4:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "BEGINNER"
	DifficultyIntermediate Difficulty = "INTERMEDIATE"
	DifficultyAdvanced     Difficulty = "ADVANCED"
)

// Course is an exam definition. QuestionNumber and TotalMarks are derived
// aggregates recomputed from the question set; never treat them as inputs.
type Course struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Code            string `json:"code,omitempty"`
	Level           string `json:"level,omitempty"`    // JUPEB, 100..600, PG
	Semester        string `json:"semester,omitempty"` // FIRST|SECOND|SUMMER
	AcademicSession string `json:"academic_session,omitempty"`

	QuestionNumber int `json:"question_number"`
	TotalMarks     int `json:"total_marks"`

	DurationMinutes      int             `json:"duration_minutes"`
	PassMark             int             `json:"pass_mark"` // percentage, 0..100
	MaxAttempts          int             `json:"max_attempts"`
	NegativeMarkPerWrong decimal.Decimal `json:"negative_mark_per_wrong"`
	ShuffleQuestions     bool            `json:"shuffle_questions"`
	IsPublished          bool            `json:"is_published"`
	AvailableFrom        *time.Time      `json:"available_from,omitempty"`
	AvailableUntil       *time.Time      `json:"available_until,omitempty"`
	Instructions         string          `json:"instructions,omitempty"`
}

// AvailableNow reports whether the course can be taken at the given instant.
func (c Course) AvailableNow(at time.Time) bool {
	if !c.IsPublished {
		return false
	}
	if c.AvailableFrom != nil && at.Before(*c.AvailableFrom) {
		return false
	}
	if c.AvailableUntil != nil && at.After(*c.AvailableUntil) {
		return false
	}
	return true
}

// Question belongs to exactly one course; deleting the course deletes it.
type Question struct {
	ID          int64      `json:"id"`
	CourseID    int64      `json:"course_id"`
	Marks       int        `json:"marks"`
	Text        string     `json:"text"`
	Option1     string     `json:"option1"`
	Option2     string     `json:"option2"`
	Option3     string     `json:"option3"`
	Option4     string     `json:"option4"`
	Answer      AnswerKey  `json:"answer,omitempty"`
	Explanation string     `json:"explanation,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
}

// Options returns the four option texts in position order.
func (q Question) Options() [4]string {
	return [4]string{q.Option1, q.Option2, q.Option3, q.Option4}
}

// Result is one immutable record per completed attempt. Invariants:
// CorrectAnswers + WrongAnswers + Unanswered == TotalQuestions, and
// (StudentID, CourseID, AttemptNumber) is unique at the storage layer.
type Result struct {
	ID            int64 `json:"id"`
	StudentID     int64 `json:"student_id"`
	CourseID      int64 `json:"course_id"`
	AttemptNumber int   `json:"attempt_number"`

	Marks              decimal.Decimal `json:"marks"`
	TotalPossibleMarks int             `json:"total_possible_marks"`
	TotalQuestions     int             `json:"total_questions"`

	CorrectAnswers int `json:"correct_answers"`
	WrongAnswers   int `json:"wrong_answers"`
	Unanswered     int `json:"unanswered"`

	Percentage decimal.Decimal `json:"percentage"`
	Passed     bool            `json:"passed"`
	CreatedAt  time.Time       `json:"created_at"`
}

// StartedExam is what StartAttempt hands to the presentation layer: the
// question set in presented order, with answer keys and explanations stripped.
type StartedExam struct {
	Course          Course     `json:"course"`
	Questions       []Question `json:"questions"`
	AttemptNumber   int        `json:"attempt_number"`
	DurationSeconds int        `json:"duration_seconds"`
}
