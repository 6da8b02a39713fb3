// Command rankctl prints and archives paper rankings from the configured database.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/mind-engage/mindengage-mocktest/internal/config"
	"github.com/mind-engage/mindengage-mocktest/internal/db"
	"github.com/mind-engage/mindengage-mocktest/internal/exam"
	"github.com/mind-engage/mindengage-mocktest/internal/export"
	"github.com/mind-engage/mindengage-mocktest/internal/ranking"
	"github.com/mind-engage/mindengage-mocktest/internal/storage"
	"github.com/mind-engage/mindengage-mocktest/internal/submission"
)

func main() {
	paperID := flag.String("paper", "", "paper id to rank")
	variant := flag.String("variant", string(ranking.VariantBest), "ranking variant: best|aggregate")
	user := flag.String("user", "", "show only this learner's entry")
	archive := flag.Bool("out", false, "archive the ranking workbook under BLOB_BASE_PATH")
	refresh := flag.Bool("refresh", false, "recompute stored aggregate rankings for every paper and exit")
	cached := flag.Bool("cached", false, "read the stored aggregate ranking instead of recomputing it")
	flag.Parse()

	if err := run(*paperID, *variant, *user, *archive, *refresh, *cached); err != nil {
		color.Red("rankctl: %v", err)
		os.Exit(1)
	}
}

func run(paperID, variant, user string, archive, refresh, cached bool) error {
	cfg := config.FromEnv()
	if cfg.DBDriver == "memory" {
		return fmt.Errorf("DB_DRIVER=memory has nothing to rank")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbh.Close()
	svc := submission.New(exam.NewSQLStore(dbh, cfg.DBDriver))

	if refresh {
		n, err := svc.RefreshAll(ctx)
		color.Green("refreshed %d papers", n)
		return err
	}

	if paperID == "" {
		return fmt.Errorf("-paper is required")
	}
	v, err := ranking.ParseVariant(variant)
	if err != nil {
		return err
	}
	p, err := svc.Paper(ctx, paperID)
	if err != nil {
		return err
	}

	if cached && v != ranking.VariantAggregate {
		return fmt.Errorf("-cached only applies to the aggregate variant")
	}

	var entries []exam.RankEntry
	switch {
	case cached:
		if entries, err = svc.StoredRanking(ctx, paperID); err != nil {
			return err
		}
		if user != "" {
			e, err := ranking.Find(entries, user)
			if err != nil {
				return err
			}
			entries = []exam.RankEntry{e}
		}
	case user != "":
		e, err := svc.RankFor(ctx, paperID, user, v)
		if err != nil {
			return err
		}
		entries = []exam.RankEntry{e}
	default:
		if entries, err = svc.RankAll(ctx, paperID, v); err != nil {
			return err
		}
	}

	color.Yellow("\n%s (%s, v%d) - %s ranking", p.Title, p.ID, p.Version, v)
	printEntries(entries)

	if !archive {
		return nil
	}
	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.WriteLeaderboard(&buf, p, entries); err != nil {
		return err
	}
	key, err := bs.Put(storage.LeaderboardKey(p.ID, string(v), time.Now()), &buf)
	if err != nil {
		return err
	}
	loc, err := bs.Locate(key)
	if err != nil {
		return err
	}
	color.Green("archived %s", loc)
	return nil
}

func printEntries(entries []exam.RankEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Rank", "Phone", "Score", "Participants"})
	for _, e := range entries {
		table.Append([]string{
			strconv.Itoa(e.Rank),
			e.UserPhone,
			strconv.Itoa(e.Score),
			strconv.Itoa(e.TotalParticipants),
		})
	}
	table.Render()
}
