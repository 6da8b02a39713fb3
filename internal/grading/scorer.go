package grading

import (
	"math"

	"github.com/mind-engage/mindengage-mocktest/internal/exam"
)

// Score grades answers against questions in paper order. It is pure: the
// same questions and answers always produce the same summary.
//
// A question is correct only when it was answered, has a defined key and the
// selected index equals that key. Malformed selections count as answered and wrong.
func Score(questions []exam.Question, answers exam.Answers) exam.Summary {
	sum := exam.Summary{
		Total:            len(questions),
		PerQuestion:      make([]exam.Outcome, 0, len(questions)),
		SubjectBreakdown: map[string]exam.SubjectStats{},
	}

	for pos, q := range questions {
		id := exam.IDFor(q, pos)
		subject := q.SubjectOrDefault()
		out := exam.Outcome{
			ID:           id.Key(),
			Position:     pos,
			CorrectIndex: copyInt(q.CorrectIndex),
			Subject:      subject,
		}

		if sel, ok := answers[id.Key()]; ok {
			out.Answered = true
			if !sel.Malformed {
				out.SelectedIndex = copyInt(&sel.Index)
			}
			out.IsCorrect = !sel.Malformed && q.CorrectIndex != nil && sel.Index == *q.CorrectIndex
		}

		stats := sum.SubjectBreakdown[subject]
		stats.Total++
		if out.Answered {
			sum.AnsweredCount++
			stats.Attempted++
			if out.IsCorrect {
				sum.CorrectCount++
				stats.Correct++
			} else {
				sum.WrongCount++
			}
		}
		sum.SubjectBreakdown[subject] = stats
		sum.PerQuestion = append(sum.PerQuestion, out)
	}

	sum.UnansweredCount = sum.Total - sum.AnsweredCount
	sum.Percent = Percent(sum.CorrectCount, sum.Total)
	return sum
}

// Percent is round(correct/total*100), or 0 for an empty paper.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
