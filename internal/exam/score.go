package exam

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// scoreSubmission runs the scoring algorithm over the resolved question set:
// exact decimal accumulation, negative marking per wrong answer, floor at
// zero, round-half-up to two places for both final score and percentage.
// Identity and attempt fields are left for the caller to fill in.
func scoreSubmission(course Course, questions []Question, answers map[int64]string) Result {
	raw := decimal.Zero
	var correct, wrong, unanswered, totalPossible int

	for _, q := range questions {
		totalPossible += q.Marks
		selected := AnswerKey(answers[q.ID])
		switch {
		case !selected.Valid():
			unanswered++
		case selected == q.Answer:
			correct++
			raw = raw.Add(decimal.NewFromInt(int64(q.Marks)))
		default:
			wrong++
		}
	}

	deduction := decimal.NewFromInt(int64(wrong)).Mul(course.NegativeMarkPerWrong)
	final := raw.Sub(deduction)
	if final.IsNegative() {
		final = decimal.Zero
	}
	// decimal.Round is half-away-from-zero, which equals half-up for the
	// non-negative values produced here.
	final = final.Round(2)

	percentage := decimal.Zero.Round(2)
	if totalPossible > 0 {
		percentage = final.Div(decimal.NewFromInt(int64(totalPossible))).Mul(hundred).Round(2)
	}

	return Result{
		Marks:              final,
		TotalPossibleMarks: totalPossible,
		TotalQuestions:     len(questions),
		CorrectAnswers:     correct,
		WrongAnswers:       wrong,
		Unanswered:         unanswered,
		Percentage:         percentage,
		Passed:             percentage.GreaterThanOrEqual(decimal.NewFromInt(int64(course.PassMark))),
	}
}
