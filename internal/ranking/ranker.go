package ranking

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-mocktest/internal/exam"
	"github.com/mind-engage/mindengage-mocktest/internal/grading"
)

// Variant selects how a learner's attempts are folded into one score.
type Variant string

const (
	// VariantAggregate sums correct answers across all of a learner's attempts.
	// Learners with equal sums keep the order in which they first submitted.
	VariantAggregate Variant = "aggregate"
	// VariantBest ranks each learner by their best single attempt under the
	// paper's marking scheme; ties go to the earlier submission.
	VariantBest Variant = "best"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantBest:
		return VariantBest, nil
	case VariantAggregate:
		return VariantAggregate, nil
	}
	return "", fmt.Errorf("%w: unknown ranking variant %q", exam.ErrInvalidInput, s)
}

// Aggregate ranks learners by the sum of CorrectCount over all their results.
// results must be in submission order (as ListResultsForPaper returns them).
func Aggregate(paperID string, results []exam.Result, now time.Time) []exam.RankEntry {
	sums := map[string]int{}
	order := make([]string, 0)
	for _, r := range results {
		if _, seen := sums[r.UserPhone]; !seen {
			order = append(order, r.UserPhone)
		}
		sums[r.UserPhone] += r.CorrectCount
	}
	sort.SliceStable(order, func(i, j int) bool { return sums[order[i]] > sums[order[j]] })

	out := make([]exam.RankEntry, len(order))
	for i, phone := range order {
		out[i] = exam.RankEntry{
			PaperID:           paperID,
			UserPhone:         phone,
			Rank:              i + 1,
			TotalParticipants: len(order),
			Score:             sums[phone],
			ComputedAt:        now,
		}
	}
	return out
}

type attempt struct {
	phone string
	score int
	at    time.Time
	id    string
}

// earlier reports whether a should win a tie against b.
func (a attempt) earlier(b attempt) bool {
	if !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	return a.id < b.id
}

// BestAttempt ranks learners by their best weighted score. Ties between
// learners are broken by the earlier submission time, then by phone.
func BestAttempt(paperID string, results []exam.Result, m grading.Marking, now time.Time) []exam.RankEntry {
	best := map[string]attempt{}
	for _, r := range results {
		a := attempt{phone: r.UserPhone, score: m.Weighted(r.CorrectCount, r.WrongCount), at: r.CreatedAt, id: r.ID}
		cur, ok := best[r.UserPhone]
		if !ok || a.score > cur.score || (a.score == cur.score && a.earlier(cur)) {
			best[r.UserPhone] = a
		}
	}

	list := make([]attempt, 0, len(best))
	for _, a := range best {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		if !list[i].at.Equal(list[j].at) {
			return list[i].at.Before(list[j].at)
		}
		return list[i].phone < list[j].phone
	})

	out := make([]exam.RankEntry, len(list))
	for i, a := range list {
		out[i] = exam.RankEntry{
			PaperID:           paperID,
			UserPhone:         a.phone,
			Rank:              i + 1,
			TotalParticipants: len(list),
			Score:             a.score,
			ComputedAt:        now,
		}
	}
	return out
}

// Find returns the entry for phone.
func Find(entries []exam.RankEntry, phone string) (exam.RankEntry, error) {
	for _, e := range entries {
		if e.UserPhone == phone {
			return e, nil
		}
	}
	return exam.RankEntry{}, fmt.Errorf("%w: no ranking for %s", exam.ErrNotFound, phone)
}
