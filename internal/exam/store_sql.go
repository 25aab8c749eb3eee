package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// SQLStore implements Repo on database/sql. The same statements run against
// both drivers: sqlite accepts the $N placeholder style postgres uses.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// insertID runs an INSERT and reports the generated row ID for either driver.
func (s *SQLStore) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	if s.driver == "postgres" {
		var id int64
		err := s.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

/* ---------------------------------- courses ---------------------------------- */

const courseColumns = `id, course_name, course_code, level, semester, academic_session,
	question_number, total_marks, duration_minutes, pass_mark, max_attempts,
	negative_mark_per_wrong, shuffle_questions, is_published, available_from, available_until, instructions`

func scanCourse(row interface{ Scan(...any) error }) (Course, error) {
	var (
		c                  Course
		negative           string
		shuffle, published int
		from, until        sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Level, &c.Semester, &c.AcademicSession,
		&c.QuestionNumber, &c.TotalMarks, &c.DurationMinutes, &c.PassMark, &c.MaxAttempts,
		&negative, &shuffle, &published, &from, &until, &c.Instructions)
	if err != nil {
		return Course{}, err
	}
	c.NegativeMarkPerWrong, err = decimal.NewFromString(negative)
	if err != nil {
		return Course{}, fmt.Errorf("bad negative_mark_per_wrong %q: %w", negative, err)
	}
	c.ShuffleQuestions = shuffle != 0
	c.IsPublished = published != 0
	c.AvailableFrom = unixPtr(from)
	c.AvailableUntil = unixPtr(until)
	return c, nil
}

func (s *SQLStore) GetCourse(ctx context.Context, id int64) (Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id=$1`, id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, ErrCourseNotFound
	}
	return c, err
}

func (s *SQLStore) CreateCourse(ctx context.Context, c Course) (Course, error) {
	id, err := s.insertID(ctx, `INSERT INTO courses
		(course_name, course_code, level, semester, academic_session,
		 duration_minutes, pass_mark, max_attempts, negative_mark_per_wrong,
		 shuffle_questions, is_published, available_from, available_until, instructions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		c.Name, c.Code, c.Level, c.Semester, c.AcademicSession,
		c.DurationMinutes, c.PassMark, c.MaxAttempts, c.NegativeMarkPerWrong.StringFixed(2),
		btoi(c.ShuffleQuestions), btoi(c.IsPublished), nullUnix(c.AvailableFrom), nullUnix(c.AvailableUntil), c.Instructions)
	if err != nil {
		return Course{}, err
	}
	c.ID = id
	c.QuestionNumber = 0
	c.TotalMarks = 0
	return c, nil
}

func (s *SQLStore) UpdateCourse(ctx context.Context, c Course) error {
	res, err := s.db.ExecContext(ctx, `UPDATE courses SET
		course_name=$1, course_code=$2, level=$3, semester=$4, academic_session=$5,
		duration_minutes=$6, pass_mark=$7, max_attempts=$8, negative_mark_per_wrong=$9,
		shuffle_questions=$10, is_published=$11, available_from=$12, available_until=$13, instructions=$14
		WHERE id=$15`,
		c.Name, c.Code, c.Level, c.Semester, c.AcademicSession,
		c.DurationMinutes, c.PassMark, c.MaxAttempts, c.NegativeMarkPerWrong.StringFixed(2),
		btoi(c.ShuffleQuestions), btoi(c.IsPublished), nullUnix(c.AvailableFrom), nullUnix(c.AvailableUntil), c.Instructions,
		c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCourseNotFound
	}
	return nil
}

func (s *SQLStore) DeleteCourse(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCourseNotFound
	}
	return nil
}

func (s *SQLStore) ListCourses(ctx context.Context, opts CourseListOpts) ([]Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses`
	var conds []string
	var args []any
	if opts.PublishedOnly {
		conds = append(conds, "is_published=1")
	}
	if opts.Q != "" {
		args = append(args, "%"+opts.Q+"%")
		n := fmt.Sprintf("$%d", len(args))
		conds = append(conds, "(course_name LIKE "+n+" OR course_code LIKE "+n+")")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY course_name"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

/* --------------------------------- questions --------------------------------- */

const questionColumns = `id, course_id, marks, question, option1, option2, option3, option4, answer, explanation, difficulty`

func scanQuestion(row interface{ Scan(...any) error }) (Question, error) {
	var q Question
	err := row.Scan(&q.ID, &q.CourseID, &q.Marks, &q.Text,
		&q.Option1, &q.Option2, &q.Option3, &q.Option4,
		&q.Answer, &q.Explanation, &q.Difficulty)
	return q, err
}

func (s *SQLStore) QuestionsForCourse(ctx context.Context, courseID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE course_id=$1 ORDER BY id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) QuestionsByIDs(ctx context.Context, courseID int64, ids []int64) ([]Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, courseID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE course_id=$1 AND id IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[int64]Question, len(ids))
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reassemble in the caller's (session) order; vanished IDs drop out.
	out := make([]Question, 0, len(byID))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *SQLStore) InsertQuestion(ctx context.Context, q Question) (Question, error) {
	id, err := s.insertID(ctx, `INSERT INTO questions
		(course_id, marks, question, option1, option2, option3, option4, answer, explanation, difficulty)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		q.CourseID, q.Marks, q.Text, q.Option1, q.Option2, q.Option3, q.Option4,
		string(q.Answer), q.Explanation, string(q.Difficulty))
	if err != nil {
		return Question{}, err
	}
	q.ID = id
	if err := s.RefreshAssessmentTotals(ctx, q.CourseID); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) InsertQuestions(ctx context.Context, courseID int64, qs []Question) (int, error) {
	if len(qs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, q := range qs {
		_, err = tx.ExecContext(ctx, `INSERT INTO questions
			(course_id, marks, question, option1, option2, option3, option4, answer, explanation, difficulty)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			courseID, q.Marks, q.Text, q.Option1, q.Option2, q.Option3, q.Option4,
			string(q.Answer), q.Explanation, string(q.Difficulty))
		if err != nil {
			return 0, err
		}
	}
	_, err = tx.ExecContext(ctx, refreshTotalsSQL, courseID)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return len(qs), nil
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	var courseID int64
	err := s.db.QueryRowContext(ctx, `SELECT course_id FROM questions WHERE id=$1`, id).Scan(&courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrQuestionNotFound
	}
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id); err != nil {
		return err
	}
	return s.RefreshAssessmentTotals(ctx, courseID)
}

const refreshTotalsSQL = `UPDATE courses SET
	question_number=(SELECT COUNT(*) FROM questions WHERE course_id=$1),
	total_marks=(SELECT COALESCE(SUM(marks),0) FROM questions WHERE course_id=$1)
	WHERE id=$1`

func (s *SQLStore) RefreshAssessmentTotals(ctx context.Context, courseID int64) error {
	_, err := s.db.ExecContext(ctx, refreshTotalsSQL, courseID)
	return err
}

/* ---------------------------------- results ---------------------------------- */

const resultColumns = `id, student_id, course_id, attempt_number, marks, total_possible_marks,
	total_questions, correct_answers, wrong_answers, unanswered, percentage, passed, created_at`

func scanResult(row interface{ Scan(...any) error }) (Result, error) {
	var (
		r                 Result
		marks, percentage string
		passed            int
		createdAt         int64
	)
	err := row.Scan(&r.ID, &r.StudentID, &r.CourseID, &r.AttemptNumber,
		&marks, &r.TotalPossibleMarks, &r.TotalQuestions,
		&r.CorrectAnswers, &r.WrongAnswers, &r.Unanswered,
		&percentage, &passed, &createdAt)
	if err != nil {
		return Result{}, err
	}
	if r.Marks, err = decimal.NewFromString(marks); err != nil {
		return Result{}, fmt.Errorf("bad marks %q: %w", marks, err)
	}
	if r.Percentage, err = decimal.NewFromString(percentage); err != nil {
		return Result{}, fmt.Errorf("bad percentage %q: %w", percentage, err)
	}
	r.Passed = passed != 0
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return r, nil
}

func (s *SQLStore) CountResults(ctx context.Context, studentID, courseID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM results WHERE student_id=$1 AND course_id=$2`,
		studentID, courseID).Scan(&n)
	return n, err
}

func (s *SQLStore) InsertResult(ctx context.Context, r Result) (Result, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	id, err := s.insertID(ctx, `INSERT INTO results
		(student_id, course_id, attempt_number, marks, total_possible_marks, total_questions,
		 correct_answers, wrong_answers, unanswered, percentage, passed, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.StudentID, r.CourseID, r.AttemptNumber, r.Marks.StringFixed(2),
		r.TotalPossibleMarks, r.TotalQuestions,
		r.CorrectAnswers, r.WrongAnswers, r.Unanswered,
		r.Percentage.StringFixed(2), btoi(r.Passed), r.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return Result{}, ErrAttemptConflict
		}
		return Result{}, err
	}
	r.ID = id
	return r, nil
}

func (s *SQLStore) ResultsForStudent(ctx context.Context, studentID, courseID int64) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE student_id=$1 AND course_id=$2
		 ORDER BY created_at DESC, attempt_number DESC`,
		studentID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

func (s *SQLStore) ListResults(ctx context.Context, opts ResultListOpts) ([]Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results`
	var conds []string
	var args []any
	if opts.CourseID != 0 {
		args = append(args, opts.CourseID)
		conds = append(conds, fmt.Sprintf("course_id=$%d", len(args)))
	}
	if opts.StudentID != 0 {
		args = append(args, opts.StudentID)
		conds = append(conds, fmt.Sprintf("student_id=$%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, attempt_number DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

func collectResults(rows *sql.Rows) ([]Result, error) {
	var out []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteResult(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResultNotFound
	}
	return nil
}

func (s *SQLStore) ExportResults(ctx context.Context) ([]ResultExportRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		r.id, r.student_id, r.course_id, r.attempt_number, r.marks, r.total_possible_marks,
		r.total_questions, r.correct_answers, r.wrong_answers, r.unanswered, r.percentage,
		r.passed, r.created_at, COALESCE(u.username,''), c.course_name
		FROM results r
		JOIN courses c ON c.id = r.course_id
		LEFT JOIN users u ON u.id = r.student_id
		ORDER BY r.created_at DESC, r.attempt_number DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ResultExportRow
	for rows.Next() {
		var (
			row               ResultExportRow
			marks, percentage string
			passed            int
			createdAt         int64
		)
		err := rows.Scan(&row.ID, &row.StudentID, &row.CourseID, &row.AttemptNumber,
			&marks, &row.TotalPossibleMarks, &row.TotalQuestions,
			&row.CorrectAnswers, &row.WrongAnswers, &row.Unanswered,
			&percentage, &passed, &createdAt, &row.StudentUsername, &row.CourseName)
		if err != nil {
			return nil, err
		}
		if row.Marks, err = decimal.NewFromString(marks); err != nil {
			return nil, fmt.Errorf("bad marks %q: %w", marks, err)
		}
		if row.Percentage, err = decimal.NewFromString(percentage); err != nil {
			return nil, fmt.Errorf("bad percentage %q: %w", percentage, err)
		}
		row.Passed = passed != 0
		row.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}
