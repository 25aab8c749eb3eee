// Package importer turns an uploaded delimited text file into validated,
// not-yet-persisted question records. Whole-file problems (encoding, empty
// input, unresolved columns) are fatal; everything else is a per-row error
// that never aborts the batch.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sirdavid001/online-exam-system/internal/exam"
)

var (
	ErrUnreadableEncoding = errors.New("unable to decode file: upload UTF-8 encoded text")
	ErrEmptyFile          = errors.New("uploaded file is empty")
)

// MissingColumnsError is fatal: the column mapping applies to every row, so
// an unresolved required column fails the whole file.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// Outcome is the result of parsing one upload. Questions and Errors are
// independent: a batch can produce both. ProcessedRows excludes the header.
type Outcome struct {
	Questions     []exam.Question
	Errors        []string
	ProcessedRows int
}

// expectedOrder is the positional layout used when the file has no header.
var expectedOrder = []string{
	"question", "marks", "option1", "option2", "option3", "option4",
	"answer", "difficulty", "explanation",
}

var requiredFields = []string{
	"question", "marks", "option1", "option2", "option3", "option4", "answer",
}

var headerAliases = map[string][]string{
	"question":    {"question", "question_text", "prompt"},
	"marks":       {"marks", "mark", "score"},
	"option1":     {"option1", "opt1", "a"},
	"option2":     {"option2", "opt2", "b"},
	"option3":     {"option3", "opt3", "c"},
	"option4":     {"option4", "opt4", "d"},
	"answer":      {"answer", "correct_answer", "correct", "key"},
	"difficulty":  {"difficulty", "level"},
	"explanation": {"explanation", "solution", "notes"},
}

var answerTokens = map[string]exam.AnswerKey{
	"option1": exam.Option1, "option2": exam.Option2,
	"option3": exam.Option3, "option4": exam.Option4,
	"1": exam.Option1, "2": exam.Option2, "3": exam.Option3, "4": exam.Option4,
	"a": exam.Option1, "b": exam.Option2, "c": exam.Option3, "d": exam.Option4,
}

var difficultyTokens = map[string]exam.Difficulty{
	"beginner":     exam.DifficultyBeginner,
	"basic":        exam.DifficultyBeginner,
	"intermediate": exam.DifficultyIntermediate,
	"medium":       exam.DifficultyIntermediate,
	"advanced":     exam.DifficultyAdvanced,
	"hard":         exam.DifficultyAdvanced,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes, sniffs, and validates the upload, binding each valid row to
// courseID. Persistence is the caller's job (single bulk insert, then a
// course-aggregate refresh).
func Parse(raw []byte, courseID int64, hasHeader bool) (Outcome, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return Outcome{}, ErrUnreadableEncoding
	}
	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return Outcome{}, ErrEmptyFile
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var cols map[string]int
	rowNum := 1
	if hasHeader {
		header, err := r.Read()
		if err != nil {
			return Outcome{}, ErrEmptyFile
		}
		cols, err = resolveColumns(header)
		if err != nil {
			return Outcome{}, err
		}
		rowNum = 2
	}

	var out Outcome
	for ; ; rowNum++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		out.ProcessedRows++
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}

		q, err := parseRow(record, cols, courseID)
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		out.Questions = append(out.Questions, q)
	}
	return out, nil
}

// resolveColumns maps each canonical field to a column index through the
// alias table, case-insensitively. Returns MissingColumnsError if any
// required field stays unresolved.
func resolveColumns(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cols := make(map[string]int, len(headerAliases))
	for canonical, aliases := range headerAliases {
		for _, alias := range aliases {
			if i, ok := byName[alias]; ok {
				cols[canonical] = i
				break
			}
		}
	}

	var missing []string
	for _, f := range requiredFields {
		if _, ok := cols[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}
	return cols, nil
}

func field(record []string, cols map[string]int, name string, pos int) string {
	if cols != nil {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	// Headerless: positional, missing trailing fields read as empty.
	if pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func parseRow(record []string, cols map[string]int, courseID int64) (exam.Question, error) {
	var v [9]string
	for i, name := range expectedOrder {
		v[i] = field(record, cols, name, i)
	}
	text, rawMarks := v[0], v[1]
	opts := [4]string{v[2], v[3], v[4], v[5]}
	rawAnswer, rawDifficulty, explanation := v[6], v[7], v[8]

	if text == "" {
		return exam.Question{}, errors.New("Question text is required.")
	}
	marks, err := strconv.Atoi(rawMarks)
	if err != nil {
		return exam.Question{}, fmt.Errorf("Marks must be a positive integer, got '%s'.", rawMarks)
	}
	if marks <= 0 {
		return exam.Question{}, errors.New("Marks must be greater than 0.")
	}
	if opts[0] == "" || opts[1] == "" || opts[2] == "" || opts[3] == "" {
		return exam.Question{}, errors.New("All four options are required.")
	}
	answer, err := normalizeAnswer(rawAnswer, opts)
	if err != nil {
		return exam.Question{}, err
	}

	return exam.Question{
		CourseID:    courseID,
		Marks:       marks,
		Text:        text,
		Option1:     opts[0],
		Option2:     opts[1],
		Option3:     opts[2],
		Option4:     opts[3],
		Answer:      answer,
		Explanation: explanation,
		Difficulty:  normalizeDifficulty(rawDifficulty),
	}, nil
}

// normalizeAnswer accepts the canonical token set first, then falls back to a
// case-insensitive match against the literal option texts.
func normalizeAnswer(raw string, opts [4]string) (exam.AnswerKey, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if key, ok := answerTokens[token]; ok {
		return key, nil
	}
	for i, opt := range opts {
		if token == strings.ToLower(strings.TrimSpace(opt)) {
			return exam.AnswerKey(fmt.Sprintf("Option%d", i+1)), nil
		}
	}
	return "", fmt.Errorf("Invalid answer value '%s'. Use Option1-Option4, A-D, 1-4, or exact option text.", raw)
}

// normalizeDifficulty degrades to the default instead of erroring: an
// unrecognized difficulty should never sink an otherwise valid row.
func normalizeDifficulty(raw string) exam.Difficulty {
	token := strings.ToLower(strings.TrimSpace(raw))
	if d, ok := difficultyTokens[token]; ok {
		return d
	}
	return exam.DifficultyIntermediate
}
