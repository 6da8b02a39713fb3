package storage

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// BlobStore keeps exported artifacts such as leaderboard workbooks.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	// Locate returns where a stored key can be read from (a file:// URL for FSStore).
	Locate(key string) (string, error)
}

// LeaderboardKey is the archive key for a paper's ranking export taken at t.
func LeaderboardKey(paperID, variant string, t time.Time) string {
	id := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(paperID)
	return fmt.Sprintf("leaderboards/%s/%s-%s.xlsx", id, variant, t.UTC().Format("20060102T150405Z"))
}
