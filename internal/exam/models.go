package exam

import (
	"strconv"
	"strings"
	"time"
)

// Category is the exam family a paper belongs to.
type Category string

const (
	CategoryJEE  Category = "JEE"
	CategoryNEET Category = "NEET"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryJEE, CategoryNEET:
		return true
	}
	return false
}

// UnspecifiedSubject is the breakdown bucket for questions without a subject label.
const UnspecifiedSubject = "Unspecified"

type Question struct {
	ID           string   `json:"id,omitempty"`
	Text         string   `json:"text" validate:"required"`
	Options      []string `json:"options" validate:"min=2,dive,required"`
	CorrectIndex *int     `json:"correct_index,omitempty"` // nil when the paper defines no key
	Subject      string   `json:"subject,omitempty"`
}

func (q Question) SubjectOrDefault() string {
	if s := strings.TrimSpace(q.Subject); s != "" {
		return s
	}
	return UnspecifiedSubject
}

type Paper struct {
	ID             string     `json:"id" validate:"required"`
	Title          string     `json:"title" validate:"required"`
	Category       Category   `json:"category" validate:"required,oneof=JEE NEET"`
	DurationMin    int        `json:"duration_min" validate:"gt=0"`
	TotalQuestions int        `json:"total_questions" validate:"gte=0"`
	Version        int        `json:"version"`
	Questions      []Question `json:"questions" validate:"dive"`

	CreatedAt int64 `json:"created_at,omitempty"`
}

// StudentView returns a copy of the paper without answer keys.
func (p Paper) StudentView() Paper {
	out := p
	out.Questions = make([]Question, len(p.Questions))
	for i, q := range p.Questions {
		q.CorrectIndex = nil
		out.Questions[i] = q
	}
	return out
}

// PaperSummary is the list view of a paper.
type PaperSummary struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Category       Category `json:"category"`
	DurationMin    int      `json:"duration_min"`
	TotalQuestions int      `json:"total_questions"`
	Version        int      `json:"version"`
}

// QuestionID addresses a question either by its stored id or, when the
// store assigned none, by its zero-based position in the paper.
type QuestionID struct {
	stable     string
	position   int
	positional bool
}

func StableID(id string) QuestionID { return QuestionID{stable: id} }

func PositionalID(pos int) QuestionID { return QuestionID{position: pos, positional: true} }

// IDFor resolves the identifier of the question at pos.
func IDFor(q Question, pos int) QuestionID {
	if id := strings.TrimSpace(q.ID); id != "" {
		return StableID(id)
	}
	return PositionalID(pos)
}

func (id QuestionID) IsPositional() bool { return id.positional }

// Key is the answers-map key for this identifier.
func (id QuestionID) Key() string {
	if id.positional {
		return strconv.Itoa(id.position)
	}
	return id.stable
}

func (id QuestionID) String() string { return id.Key() }

// Selection is one submitted value. Malformed values count as answered but
// can never be correct.
type Selection struct {
	Index     int
	Malformed bool
}

// Answers maps QuestionID.Key() to the learner's selection. Missing keys are unanswered.
type Answers map[string]Selection

type Outcome struct {
	ID            string `json:"id"`
	Position      int    `json:"position"`
	Answered      bool   `json:"answered"`
	SelectedIndex *int   `json:"selected_index"`
	CorrectIndex  *int   `json:"correct_index"`
	IsCorrect     bool   `json:"is_correct"`
	Subject       string `json:"subject"`
}

type SubjectStats struct {
	Total     int `json:"total"`
	Attempted int `json:"attempted"`
	Correct   int `json:"correct"`
}

type Summary struct {
	Total            int                     `json:"total"`
	AnsweredCount    int                     `json:"answered_count"`
	UnansweredCount  int                     `json:"unanswered_count"`
	CorrectCount     int                     `json:"correct_count"`
	WrongCount       int                     `json:"wrong_count"`
	Percent          int                     `json:"percent"`
	PerQuestion      []Outcome               `json:"per_question"`
	SubjectBreakdown map[string]SubjectStats `json:"subject_breakdown"`
}

// Result is one scored submission. Results are append-only.
type Result struct {
	ID           string `json:"id"`
	UserPhone    string `json:"user_phone"`
	PaperID      string `json:"paper_id"`
	PaperTitle   string `json:"paper_title"`
	PaperVersion int    `json:"paper_version"`
	Summary
	CreatedAt time.Time `json:"created_at"`
}

// RankEntry is a cached ranking row for one learner on one paper.
type RankEntry struct {
	PaperID           string    `json:"paper_id"`
	UserPhone         string    `json:"user_phone"`
	Rank              int       `json:"rank"`
	TotalParticipants int       `json:"total_participants"`
	Score             int       `json:"score"`
	ComputedAt        time.Time `json:"computed_at,omitempty"`
}
