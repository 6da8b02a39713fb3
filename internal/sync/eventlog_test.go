package syncx_test

import (
	"context"
	"testing"

	"github.com/mind-engage/mindengage-mocktest/internal/db"
	syncx "github.com/mind-engage/mindengage-mocktest/internal/sync"
)

func TestEventRepo_Append(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	defer dbh.Close()

	ev, err := syncx.NewEvent(syncx.TypeResultSubmitted, "r1", map[string]any{"paper_id": "p1"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	repo := syncx.NewEventRepo(dbh)
	for i := 0; i < 2; i++ {
		if err := repo.Append(ctx, ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	var n int
	var data string
	if err := dbh.QueryRow(`SELECT COUNT(*), MAX(data) FROM event_log WHERE typ=$1 AND key=$2`, syncx.TypeResultSubmitted, "r1").
		Scan(&n, &data); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 2 || data != `{"paper_id":"p1"}` {
		t.Fatalf("rows=%d data=%s", n, data)
	}
}

func TestMemoryLog_Offsets(t *testing.T) {
	var m syncx.MemoryLog
	for _, k := range []string{"a", "b"} {
		_ = m.Append(context.Background(), syncx.Event{Type: syncx.TypeResultSubmitted, Key: k})
	}
	evs := m.Events()
	if len(evs) != 2 || evs[0].Offset != 1 || evs[1].Offset != 2 || evs[1].Key != "b" {
		t.Fatalf("events = %+v", evs)
	}
}
