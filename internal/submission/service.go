package submission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-mocktest/internal/exam"
	"github.com/mind-engage/mindengage-mocktest/internal/grading"
	"github.com/mind-engage/mindengage-mocktest/internal/ranking"
	syncx "github.com/mind-engage/mindengage-mocktest/internal/sync"
)

// Service scores submissions and ranks learners. Paper and learner identity
// are always passed in by the caller.
type Service struct {
	store  exam.Store
	events syncx.Appender
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithIDs(newID func() string) Option    { return func(s *Service) { s.newID = newID } }

// WithEvents records a ResultSubmitted event for each stored result.
func WithEvents(a syncx.Appender) Option { return func(s *Service) { s.events = a } }

func New(store exam.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score grades answers for paperID and appends the result.
func (s *Service) Score(ctx context.Context, paperID, userPhone string, answers exam.Answers) (exam.Result, error) {
	userPhone = strings.TrimSpace(userPhone)
	if strings.TrimSpace(paperID) == "" || userPhone == "" {
		return exam.Result{}, fmt.Errorf("%w: paper id and user phone required", exam.ErrInvalidInput)
	}
	if answers == nil {
		return exam.Result{}, fmt.Errorf("%w: answers required", exam.ErrInvalidInput)
	}
	p, err := s.store.GetPaper(ctx, paperID)
	if err != nil {
		return exam.Result{}, err
	}

	r := exam.Result{
		ID:           s.newID(),
		UserPhone:    userPhone,
		PaperID:      p.ID,
		PaperTitle:   p.Title,
		PaperVersion: p.Version,
		Summary:      grading.Score(p.Questions, answers),
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.store.AppendResult(ctx, r); err != nil {
		return exam.Result{}, fmt.Errorf("store result: %w", err)
	}

	if s.events != nil {
		ev, err := syncx.NewEvent(syncx.TypeResultSubmitted, r.ID, map[string]any{
			"paper_id":      r.PaperID,
			"user_phone":    r.UserPhone,
			"correct_count": r.CorrectCount,
			"wrong_count":   r.WrongCount,
			"percent":       r.Percent,
		})
		if err == nil {
			err = s.events.Append(ctx, ev)
		}
		if err != nil {
			// the result is already stored; the event log is best effort
			log.Printf("event log: result %s: %v", r.ID, err)
		}
	}
	return r, nil
}

// RankAll ranks every learner with a result on paperID. The aggregate
// variant also refreshes the stored rank entries.
func (s *Service) RankAll(ctx context.Context, paperID string, v ranking.Variant) ([]exam.RankEntry, error) {
	results, err := s.store.ListResultsForPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no results for paper %s", exam.ErrNotFound, paperID)
	}
	now := s.now().UTC().Truncate(time.Millisecond)

	switch v {
	case ranking.VariantAggregate:
		entries := ranking.Aggregate(paperID, results, now)
		if err := s.store.UpsertRankEntries(ctx, paperID, entries); err != nil {
			return nil, fmt.Errorf("store rank entries: %w", err)
		}
		return entries, nil
	case ranking.VariantBest, "":
		mk, err := s.marking(ctx, paperID)
		if err != nil {
			return nil, err
		}
		return ranking.BestAttempt(paperID, results, mk, now), nil
	}
	return nil, fmt.Errorf("%w: unknown ranking variant %q", exam.ErrInvalidInput, v)
}

// RankFor returns one learner's entry from a fresh ranking.
func (s *Service) RankFor(ctx context.Context, paperID, userPhone string, v ranking.Variant) (exam.RankEntry, error) {
	userPhone = strings.TrimSpace(userPhone)
	if userPhone == "" {
		return exam.RankEntry{}, fmt.Errorf("%w: user phone required", exam.ErrInvalidInput)
	}
	entries, err := s.RankAll(ctx, paperID, v)
	if err != nil {
		return exam.RankEntry{}, err
	}
	return ranking.Find(entries, userPhone)
}

// RefreshAll recomputes the stored aggregate ranking of every paper with results.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	ids, err := s.store.PaperIDsWithResults(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := s.RankAll(ctx, id, ranking.VariantAggregate); err != nil {
			errs = append(errs, fmt.Errorf("paper %s: %w", id, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// SavePaper validates and stores a paper, returning it with its new version.
func (s *Service) SavePaper(ctx context.Context, p exam.Paper) (exam.Paper, error) {
	if err := exam.ValidatePaper(&p); err != nil {
		return exam.Paper{}, err
	}
	if p.TotalQuestions != len(p.Questions) {
		log.Printf("paper %s: declares %d questions, has %d", p.ID, p.TotalQuestions, len(p.Questions))
	}
	return s.store.PutPaper(ctx, p)
}

func (s *Service) Paper(ctx context.Context, id string) (exam.Paper, error) {
	return s.store.GetPaper(ctx, id)
}

func (s *Service) Papers(ctx context.Context, opts exam.ListOpts) ([]exam.PaperSummary, error) {
	return s.store.ListPapers(ctx, opts)
}

func (s *Service) Result(ctx context.Context, id string) (exam.Result, error) {
	return s.store.GetResult(ctx, id)
}

func (s *Service) Results(ctx context.Context, opts exam.ResultListOpts) ([]exam.Result, error) {
	return s.store.ListResults(ctx, opts)
}

// marking falls back to DefaultMarking only when the paper has been removed.
func (s *Service) marking(ctx context.Context, paperID string) (grading.Marking, error) {
	p, err := s.store.GetPaper(ctx, paperID)
	if errors.Is(err, exam.ErrNotFound) {
		return grading.DefaultMarking, nil
	}
	if err != nil {
		return grading.Marking{}, fmt.Errorf("marking for paper %s: %w", paperID, err)
	}
	return grading.MarkingFor(p.Category), nil
}

// StoredRanking serves the aggregate ranking from the stored rank entries,
// computing and storing it first when nothing has been stored yet.
func (s *Service) StoredRanking(ctx context.Context, paperID string) ([]exam.RankEntry, error) {
	entries, err := s.store.ListRankEntries(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return entries, nil
	}
	return s.RankAll(ctx, paperID, ranking.VariantAggregate)
}
