package importer_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirdavid001/online-exam-system/internal/exam"
	"github.com/sirdavid001/online-exam-system/internal/importer"
)

func TestParse_BasicHeaderFile(t *testing.T) {
	csv := "question,marks,option1,option2,option3,option4,answer,difficulty,explanation\n" +
		"What is 2+2?,2,1,3,4,5,C,beginner,Simple addition\n" +
		"Capital of France?,1,Paris,Lyon,Nice,Lille,2,,\n"

	out, err := importer.Parse([]byte(csv), 42, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("expected 0 errors, got %v", out.Errors)
	}
	if out.ProcessedRows != 2 || len(out.Questions) != 2 {
		t.Fatalf("expected 2 rows / 2 questions, got %d / %d", out.ProcessedRows, len(out.Questions))
	}

	q := out.Questions[0]
	if q.CourseID != 42 || q.Marks != 2 || q.Answer != exam.Option3 {
		t.Fatalf("row 1 mismatch: %+v", q)
	}
	if q.Difficulty != exam.DifficultyBeginner {
		t.Fatalf("expected BEGINNER, got %s", q.Difficulty)
	}
	if q.Explanation != "Simple addition" {
		t.Fatalf("explanation mismatch: %q", q.Explanation)
	}

	q = out.Questions[1]
	if q.Answer != exam.Option2 {
		t.Fatalf("numeric answer token should map to Option2, got %s", q.Answer)
	}
	if q.Difficulty != exam.DifficultyIntermediate {
		t.Fatalf("blank difficulty should default to INTERMEDIATE, got %s", q.Difficulty)
	}
}

func TestParse_AnswerTokenForms(t *testing.T) {
	// Every accepted spelling of "first option" lands on Option1.
	for _, raw := range []string{"Option1", "option1", "A", "a", "1", "red"} {
		csv := "question,marks,option1,option2,option3,option4,answer\n" +
			"Pick one,1,Red,Green,Blue,Black," + raw + "\n"
		out, err := importer.Parse([]byte(csv), 1, true)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", raw, err)
		}
		if len(out.Errors) != 0 {
			t.Fatalf("%q: unexpected row errors: %v", raw, out.Errors)
		}
		if out.Questions[0].Answer != exam.Option1 {
			t.Fatalf("%q: expected Option1, got %s", raw, out.Questions[0].Answer)
		}
	}
}

func TestParse_HeaderAliases(t *testing.T) {
	csv := "prompt,score,a,b,c,d,key,level,notes\n" +
		"Aliased headers?,3,w,x,y,z,d,hard,ok\n"
	out, err := importer.Parse([]byte(csv), 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected row errors: %v", out.Errors)
	}
	q := out.Questions[0]
	if q.Answer != exam.Option4 || q.Difficulty != exam.DifficultyAdvanced || q.Explanation != "ok" {
		t.Fatalf("alias resolution mismatch: %+v", q)
	}
}

func TestParse_HeaderlessPositional(t *testing.T) {
	// Trailing difficulty and explanation omitted: padded as empty.
	data := "Only question?,5,p,q,r,s,option4\n"
	out, err := importer.Parse([]byte(data), 9, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected row errors: %v", out.Errors)
	}
	q := out.Questions[0]
	if q.Answer != exam.Option4 || q.Difficulty != exam.DifficultyIntermediate || q.Explanation != "" {
		t.Fatalf("positional parse mismatch: %+v", q)
	}
}

func TestParse_RowErrorsDoNotAbortBatch(t *testing.T) {
	csv := "question,marks,option1,option2,option3,option4,answer\n" +
		",1,a,b,c,d,A\n" + // missing text
		"Bad marks,zero,a,b,c,d,A\n" + // non-integer marks
		"Zero marks,0,a,b,c,d,A\n" + // non-positive marks
		"Missing option,1,a,,c,d,A\n" + // blank option2
		"Bad answer,1,a,b,c,d,E\n" + // unmappable answer
		"Good row,1,a,b,c,d,A\n"

	out, err := importer.Parse([]byte(csv), 1, true)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if out.ProcessedRows != 6 {
		t.Fatalf("expected 6 processed rows, got %d", out.ProcessedRows)
	}
	if len(out.Questions) != 1 {
		t.Fatalf("expected exactly the good row to survive, got %d", len(out.Questions))
	}
	if len(out.Errors) != 5 {
		t.Fatalf("expected 5 row errors, got %d: %v", len(out.Errors), out.Errors)
	}

	// Row numbering starts at 2 with a header, and each message names its row.
	wantPrefixes := []string{"Row 2:", "Row 3:", "Row 4:", "Row 5:", "Row 6:"}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(out.Errors[i], prefix) {
			t.Fatalf("error %d: expected prefix %q, got %q", i, prefix, out.Errors[i])
		}
	}
	if !strings.Contains(out.Errors[0], "Question text is required.") {
		t.Fatalf("unexpected message: %q", out.Errors[0])
	}
	if !strings.Contains(out.Errors[1], "Marks must be a positive integer, got 'zero'.") {
		t.Fatalf("unexpected message: %q", out.Errors[1])
	}
	if !strings.Contains(out.Errors[2], "Marks must be greater than 0.") {
		t.Fatalf("unexpected message: %q", out.Errors[2])
	}
	if !strings.Contains(out.Errors[3], "All four options are required.") {
		t.Fatalf("unexpected message: %q", out.Errors[3])
	}
	if !strings.Contains(out.Errors[4], "Invalid answer value 'E'.") {
		t.Fatalf("unexpected message: %q", out.Errors[4])
	}
}

func TestParse_DelimiterSniffing(t *testing.T) {
	cases := map[string]string{
		"semicolon": "question;marks;option1;option2;option3;option4;answer\nQ?;1;a;b;c;d;A\n",
		"tab":       "question\tmarks\toption1\toption2\toption3\toption4\tanswer\nQ?\t1\ta\tb\tc\td\tA\n",
		"pipe":      "question|marks|option1|option2|option3|option4|answer\nQ?|1|a|b|c|d|A\n",
	}
	for name, data := range cases {
		out, err := importer.Parse([]byte(data), 1, true)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if len(out.Questions) != 1 || len(out.Errors) != 0 {
			t.Fatalf("%s: expected clean single-row parse, got %d questions, errors %v",
				name, len(out.Questions), out.Errors)
		}
	}
}

func TestParse_StripsUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF},
		[]byte("question,marks,option1,option2,option3,option4,answer\nQ?,1,a,b,c,d,A\n")...)
	out, err := importer.Parse(data, 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(out.Questions))
	}
}

func TestParse_FatalErrors(t *testing.T) {
	if _, err := importer.Parse([]byte{0xFF, 0xFE, 0x00}, 1, true); !errors.Is(err, importer.ErrUnreadableEncoding) {
		t.Fatalf("expected ErrUnreadableEncoding, got %v", err)
	}
	if _, err := importer.Parse([]byte("   \n\t\n"), 1, true); !errors.Is(err, importer.ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}

	_, err := importer.Parse([]byte("question,marks\nQ?,1\n"), 1, true)
	var missing *importer.MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	want := []string{"option1", "option2", "option3", "option4", "answer"}
	if len(missing.Missing) != len(want) {
		t.Fatalf("expected missing %v, got %v", want, missing.Missing)
	}
	for i, f := range want {
		if missing.Missing[i] != f {
			t.Fatalf("expected missing %v, got %v", want, missing.Missing)
		}
	}
}

func TestParse_AnswerByLiteralOptionText(t *testing.T) {
	csv := "question,marks,option1,option2,option3,option4,answer\n" +
		"Pick the fruit,1,Stone,Apple,Glass,Wood,  APPLE  \n"
	out, err := importer.Parse([]byte(csv), 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected row errors: %v", out.Errors)
	}
	if out.Questions[0].Answer != exam.Option2 {
		t.Fatalf("literal text match should give Option2, got %s", out.Questions[0].Answer)
	}
}

func TestParse_QuotedFieldsWithDelimiter(t *testing.T) {
	csv := "question,marks,option1,option2,option3,option4,answer\n" +
		`"Comma, inside question?",1,a,b,c,d,A` + "\n"
	out, err := importer.Parse([]byte(csv), 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("unexpected row errors: %v", out.Errors)
	}
	if out.Questions[0].Text != "Comma, inside question?" {
		t.Fatalf("quoted field mangled: %q", out.Questions[0].Text)
	}
}
