package exam

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryStore struct {
	mu      sync.RWMutex
	papers  map[string]Paper
	results []Result
	byID    map[string]int
	ranks   map[string]map[string]RankEntry // paperID -> phone -> entry
	now     func() time.Time
}

func NewInMemoryStore() Store {
	return &memoryStore{
		papers: map[string]Paper{},
		byID:   map[string]int{},
		ranks:  map[string]map[string]RankEntry{},
		now:    time.Now,
	}
}

func (m *memoryStore) PutPaper(_ context.Context, p Paper) (Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.papers[p.ID]; ok {
		p.Version = prev.Version + 1
		p.CreatedAt = prev.CreatedAt
	} else {
		p.Version = 1
		p.CreatedAt = m.now().Unix()
	}
	p.Questions = append([]Question(nil), p.Questions...)
	m.papers[p.ID] = p
	return p, nil
}

func (m *memoryStore) GetPaper(_ context.Context, id string) (Paper, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.papers[id]
	if !ok {
		return Paper{}, fmt.Errorf("%w: paper %s", ErrNotFound, id)
	}
	p.Questions = append([]Question(nil), p.Questions...)
	return p, nil
}

func (m *memoryStore) ListPapers(_ context.Context, opts ListOpts) ([]PaperSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(opts.Q))
	out := make([]PaperSummary, 0, len(m.papers))
	for _, p := range m.papers {
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Title), q) {
			continue
		}
		out = append(out, summarize(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, opts.Limit, opts.Offset), nil
}

func (m *memoryStore) AppendResult(_ context.Context, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byID[r.ID]; dup {
		return fmt.Errorf("%w: duplicate result id %s", ErrInvalidInput, r.ID)
	}
	m.byID[r.ID] = len(m.results)
	m.results = append(m.results, cloneResult(r))
	return nil
}

func (m *memoryStore) GetResult(_ context.Context, id string) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return Result{}, fmt.Errorf("%w: result %s", ErrNotFound, id)
	}
	return cloneResult(m.results[i]), nil
}

func (m *memoryStore) ListResults(_ context.Context, opts ResultListOpts) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Result, 0)
	for _, r := range m.results {
		if opts.PaperID != "" && r.PaperID != opts.PaperID {
			continue
		}
		if opts.UserPhone != "" && r.UserPhone != opts.UserPhone {
			continue
		}
		out = append(out, cloneResult(r))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, opts.Limit, opts.Offset), nil
}

func (m *memoryStore) ListResultsForPaper(_ context.Context, paperID string) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Result, 0)
	for _, r := range m.results {
		if r.PaperID == paperID {
			out = append(out, cloneResult(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) PaperIDsWithResults(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]bool{}
	out := make([]string, 0)
	for _, r := range m.results {
		if !seen[r.PaperID] {
			seen[r.PaperID] = true
			out = append(out, r.PaperID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryStore) UpsertRankEntries(_ context.Context, paperID string, entries []RankEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byPhone, ok := m.ranks[paperID]
	if !ok {
		byPhone = map[string]RankEntry{}
		m.ranks[paperID] = byPhone
	}
	for _, e := range entries {
		byPhone[e.UserPhone] = e
	}
	return nil
}

func (m *memoryStore) ListRankEntries(_ context.Context, paperID string) ([]RankEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RankEntry, 0, len(m.ranks[paperID]))
	for _, e := range m.ranks[paperID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].UserPhone < out[j].UserPhone
	})
	return out, nil
}

// cloneResult copies the per-question and subject data so stored results
// never share memory with callers.
func cloneResult(r Result) Result {
	if r.PerQuestion != nil {
		pq := make([]Outcome, len(r.PerQuestion))
		for i, o := range r.PerQuestion {
			if o.SelectedIndex != nil {
				v := *o.SelectedIndex
				o.SelectedIndex = &v
			}
			if o.CorrectIndex != nil {
				v := *o.CorrectIndex
				o.CorrectIndex = &v
			}
			pq[i] = o
		}
		r.PerQuestion = pq
	}
	if r.SubjectBreakdown != nil {
		sb := make(map[string]SubjectStats, len(r.SubjectBreakdown))
		for k, v := range r.SubjectBreakdown {
			sb[k] = v
		}
		r.SubjectBreakdown = sb
	}
	return r
}

func summarize(p Paper) PaperSummary {
	total := p.TotalQuestions
	if total == 0 {
		total = len(p.Questions)
	}
	return PaperSummary{
		ID:             p.ID,
		Title:          p.Title,
		Category:       p.Category,
		DurationMin:    p.DurationMin,
		TotalQuestions: total,
		Version:        p.Version,
	}
}

func page[T any](in []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return in[:0]
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
