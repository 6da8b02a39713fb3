package grading

import "github.com/mind-engage/mindengage-mocktest/internal/exam"

// Marking is a per-question marking scheme; unanswered questions score zero.
type Marking struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
}

// DefaultMarking is the +4/-1 scheme used by JEE Main and NEET.
var DefaultMarking = Marking{Correct: 4, Wrong: -1}

var markings = map[exam.Category]Marking{
	exam.CategoryJEE:  DefaultMarking,
	exam.CategoryNEET: DefaultMarking,
}

// MarkingFor returns the scheme for a category, falling back to DefaultMarking.
func MarkingFor(c exam.Category) Marking {
	if m, ok := markings[c]; ok {
		return m
	}
	return DefaultMarking
}

func (m Marking) Weighted(correct, wrong int) int {
	return correct*m.Correct + wrong*m.Wrong
}
