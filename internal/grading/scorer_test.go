package grading_test

import (
	"encoding/json"
	"testing"

	"github.com/mind-engage/mindengage-mocktest/internal/exam"
	"github.com/mind-engage/mindengage-mocktest/internal/grading"
)

func idx(i int) *int { return &i }

func question(correct *int, subject string) exam.Question {
	return exam.Question{Text: "q", Options: []string{"a", "b", "c", "d"}, CorrectIndex: correct, Subject: subject}
}

func mustAnswers(t *testing.T, raw string) exam.Answers {
	t.Helper()
	a, err := exam.ParseAnswers([]byte(raw))
	if err != nil {
		t.Fatalf("ParseAnswers(%s): %v", raw, err)
	}
	return a
}

func TestScore_PhysicsChemistryScenario(t *testing.T) {
	qs := []exam.Question{
		question(idx(1), "Physics"),
		question(idx(0), "Physics"),
		question(idx(2), "Chemistry"),
	}
	sum := grading.Score(qs, mustAnswers(t, `{"0":1,"1":1}`))

	if sum.Total != 3 || sum.AnsweredCount != 2 || sum.CorrectCount != 1 || sum.WrongCount != 1 || sum.Percent != 33 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.UnansweredCount != 1 {
		t.Fatalf("unanswered = %d, want 1", sum.UnansweredCount)
	}
	want := map[string]exam.SubjectStats{
		"Physics":   {Total: 2, Attempted: 2, Correct: 1},
		"Chemistry": {Total: 1, Attempted: 0, Correct: 0},
	}
	if len(sum.SubjectBreakdown) != len(want) {
		t.Fatalf("breakdown = %+v", sum.SubjectBreakdown)
	}
	for k, v := range want {
		if sum.SubjectBreakdown[k] != v {
			t.Fatalf("breakdown[%s] = %+v, want %+v", k, sum.SubjectBreakdown[k], v)
		}
	}

	q2 := sum.PerQuestion[2]
	if q2.Answered || q2.SelectedIndex != nil || q2.IsCorrect || q2.Position != 2 || q2.ID != "2" {
		t.Fatalf("unanswered outcome = %+v", q2)
	}
	if !sum.PerQuestion[0].IsCorrect || sum.PerQuestion[1].IsCorrect {
		t.Fatalf("per question = %+v", sum.PerQuestion)
	}
}

func TestScore_EmptyPaper(t *testing.T) {
	sum := grading.Score(nil, mustAnswers(t, `{"0":1}`))
	if sum.Total != 0 || sum.Percent != 0 || len(sum.PerQuestion) != 0 || sum.AnsweredCount != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestScore_ZeroIsAnAnswer(t *testing.T) {
	sum := grading.Score([]exam.Question{question(idx(0), "")}, mustAnswers(t, `{"0":0}`))
	if sum.CorrectCount != 1 || sum.Percent != 100 {
		t.Fatalf("summary = %+v", sum)
	}
	if _, ok := sum.SubjectBreakdown[exam.UnspecifiedSubject]; !ok {
		t.Fatalf("expected %q bucket, got %+v", exam.UnspecifiedSubject, sum.SubjectBreakdown)
	}
}

func TestScore_StableIDsAndMixedKeys(t *testing.T) {
	qs := []exam.Question{
		{ID: "q-alpha", Text: "a", Options: []string{"x", "y"}, CorrectIndex: idx(1)},
		{Text: "b", Options: []string{"x", "y"}, CorrectIndex: idx(0)},
	}
	// "0" must not address q-alpha once it has a stable id.
	sum := grading.Score(qs, mustAnswers(t, `{"q-alpha":1,"0":0,"1":0}`))
	if sum.CorrectCount != 2 || sum.AnsweredCount != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.PerQuestion[0].ID != "q-alpha" || sum.PerQuestion[1].ID != "1" {
		t.Fatalf("ids = %s, %s", sum.PerQuestion[0].ID, sum.PerQuestion[1].ID)
	}
}

func TestScore_MalformedAndOutOfRangeAreWrong(t *testing.T) {
	qs := []exam.Question{question(idx(1), "Maths"), question(idx(2), "Maths"), question(idx(3), "Maths")}
	sum := grading.Score(qs, mustAnswers(t, `{"0":"abc","1":99,"2":-1}`))
	if sum.AnsweredCount != 3 || sum.CorrectCount != 0 || sum.WrongCount != 3 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.PerQuestion[0].SelectedIndex != nil {
		t.Fatalf("malformed selection should have no index: %+v", sum.PerQuestion[0])
	}
	if got := sum.PerQuestion[1].SelectedIndex; got == nil || *got != 99 {
		t.Fatalf("out of range selection = %v", got)
	}
}

func TestScore_NoAnswerKeyIsWrongWhenAnswered(t *testing.T) {
	sum := grading.Score([]exam.Question{question(nil, "Biology")}, mustAnswers(t, `{"0":1}`))
	if sum.CorrectCount != 0 || sum.WrongCount != 1 || sum.PerQuestion[0].CorrectIndex != nil {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestScore_Invariants(t *testing.T) {
	qs := []exam.Question{
		question(idx(0), "Physics"), question(idx(1), ""), question(nil, "Chemistry"),
		question(idx(3), "Biology"), question(idx(2), "Physics"),
	}
	payloads := []string{`{}`, `{"0":0}`, `{"0":1,"1":1,"2":1,"3":3,"4":2}`, `{"2":0,"4":"x"}`, `{"9":1}`}
	for _, raw := range payloads {
		sum := grading.Score(qs, mustAnswers(t, raw))
		if sum.AnsweredCount+sum.UnansweredCount != sum.Total {
			t.Fatalf("%s: answered+unanswered != total: %+v", raw, sum)
		}
		if sum.CorrectCount > sum.AnsweredCount || sum.AnsweredCount > sum.Total {
			t.Fatalf("%s: count ordering broken: %+v", raw, sum)
		}
		if sum.CorrectCount+sum.WrongCount > sum.AnsweredCount {
			t.Fatalf("%s: correct+wrong > answered: %+v", raw, sum)
		}
		subjectTotal := 0
		for _, s := range sum.SubjectBreakdown {
			subjectTotal += s.Total
		}
		if subjectTotal != sum.Total {
			t.Fatalf("%s: subject totals %d != %d", raw, subjectTotal, sum.Total)
		}
		for _, o := range sum.PerQuestion {
			if o.IsCorrect && (!o.Answered || o.SelectedIndex == nil || o.CorrectIndex == nil || *o.SelectedIndex != *o.CorrectIndex) {
				t.Fatalf("%s: inconsistent outcome %+v", raw, o)
			}
		}
	}
}

func TestScore_Idempotent(t *testing.T) {
	qs := []exam.Question{question(idx(0), "Physics"), question(idx(1), "Chemistry"), question(idx(2), "")}
	a := mustAnswers(t, `{"0":0,"1":2}`)
	first, _ := json.Marshal(grading.Score(qs, a))
	second, _ := json.Marshal(grading.Score(qs, a))
	if string(first) != string(second) {
		t.Fatalf("non-deterministic summary:\n%s\n%s", first, second)
	}
}

func TestPercentRounding(t *testing.T) {
	cases := []struct{ correct, total, want int }{
		{0, 0, 0}, {1, 3, 33}, {2, 3, 67}, {1, 2, 50}, {1, 8, 13}, {3, 3, 100},
	}
	for _, c := range cases {
		if got := grading.Percent(c.correct, c.total); got != c.want {
			t.Errorf("Percent(%d,%d) = %d, want %d", c.correct, c.total, got, c.want)
		}
	}
}

func TestMarking(t *testing.T) {
	m := grading.MarkingFor(exam.CategoryJEE)
	if got := m.Weighted(8, 2); got != 30 {
		t.Fatalf("Weighted(8,2) = %d, want 30", got)
	}
	if grading.MarkingFor("OTHER") != grading.DefaultMarking {
		t.Fatalf("unknown category should use default marking")
	}
}
