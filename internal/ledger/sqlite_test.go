package ledger_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jaloliddin1006/psyBot/internal/ledger"
	"github.com/jaloliddin1006/psyBot/internal/store"
)

func openTestLedger(t *testing.T) (*ledger.SQLite, string) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	repo, err := store.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return ledger.NewSQLite(repo.DB()), path
}

func TestSQLite_RecordIdempotent(t *testing.T) {
	ctx := context.Background()
	led, _ := openTestLedger(t)

	if sent, err := led.AlreadySent(ctx, 7, "2025-05-05", "16:00"); err != nil || sent {
		t.Fatalf("fresh: want (false, nil), got (%v, %v)", sent, err)
	}
	if err := led.RecordSent(ctx, 7, "2025-05-05", "16:00"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := led.RecordSent(ctx, 7, "2025-05-05", "16:00"); err != nil {
		t.Fatalf("re-record must be a no-op: %v", err)
	}
	if sent, err := led.AlreadySent(ctx, 7, "2025-05-05", "16:00"); err != nil || !sent {
		t.Fatalf("after record: want (true, nil), got (%v, %v)", sent, err)
	}
}

// Dedup state must survive a process restart: the weekly message may not be
// re-sent after a mid-week redeploy.
func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	repo, err := store.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	led := ledger.NewSQLite(repo.DB())
	if err := led.RecordSent(ctx, 7, "2025-05-11", "week:2025-W19"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	repo2, err := store.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo2.Close()
	led2 := ledger.NewSQLite(repo2.DB())

	sent, err := led2.AlreadySent(ctx, 7, "2025-05-11", "week:2025-W19")
	if err != nil || !sent {
		t.Fatalf("after reopen: want (true, nil), got (%v, %v)", sent, err)
	}
}

func TestSQLite_Prune(t *testing.T) {
	ctx := context.Background()
	led, _ := openTestLedger(t)

	_ = led.RecordSent(ctx, 1, "2025-05-03", "16:00")
	_ = led.RecordSent(ctx, 1, "2025-05-05", "16:00")

	if err := led.Prune(ctx, "2025-05-05"); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if sent, _ := led.AlreadySent(ctx, 1, "2025-05-03", "16:00"); sent {
		t.Fatal("old entry should be pruned")
	}
	if sent, _ := led.AlreadySent(ctx, 1, "2025-05-05", "16:00"); !sent {
		t.Fatal("current entry must survive")
	}
}
