package exam

import "context"

type ListOpts struct {
	Q        string
	Category Category
	Limit    int
	Offset   int
}

type ResultListOpts struct {
	PaperID   string // filter by paper
	UserPhone string // filter by learner
	Limit     int
	Offset    int
}

type Store interface {
	PutPaper(ctx context.Context, p Paper) (Paper, error)   // bumps Version
	GetPaper(ctx context.Context, id string) (Paper, error) // full paper, with keys
	ListPapers(ctx context.Context, opts ListOpts) ([]PaperSummary, error)

	AppendResult(ctx context.Context, r Result) error
	GetResult(ctx context.Context, id string) (Result, error)
	ListResults(ctx context.Context, opts ResultListOpts) ([]Result, error) // newest first
	// ListResultsForPaper returns every result for a paper ordered by created_at, id.
	ListResultsForPaper(ctx context.Context, paperID string) ([]Result, error)
	PaperIDsWithResults(ctx context.Context) ([]string, error)

	UpsertRankEntries(ctx context.Context, paperID string, entries []RankEntry) error
	// ListRankEntries reads the last stored aggregate ranking, ordered by rank.
	ListRankEntries(ctx context.Context, paperID string) ([]RankEntry, error)
}
