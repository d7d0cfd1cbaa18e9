//go:build integration

package processor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mutige-mungos/mungo-shift/internal/storage"
	"github.com/mutige-mungos/mungo-shift/internal/upstream"
)

// Integration test that wires a real fetcher against a test upstream, the
// file store in a temp dir and a mock notifier.

func TestIntegration_FullRun(t *testing.T) {
	feed := `[{
		"meta": {"generated": {"human": "2025-06-01 12:00:00"}},
		"codes": [
			{"game": "Borderlands 4", "code": "aaaaa-aaaaa-aaaaa-aaaaa-aaaaa", "reward": "Golden Key", "expires": "2099-12-31", "archived": "2025-05-01T00:00:00Z"},
			{"game": "Borderlands 3", "code": "ZZZZZ-ZZZZZ-ZZZZZ-ZZZZZ-ZZZZZ"},
			{"title": "New BL4 code", "shift": "BBBBB-BBBBB-BBBBB-BBBBB-BBBBB", "prize": "3 Golden Keys"},
			{"game": "Borderlands 4", "code": "CCCCC-CCCCC-CCCCC-CCCCC-CCCCC", "expired": "true"},
			"not a record"
		]
	}]`

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	fetcher := upstream.New(upstream.Options{URL: srv.URL, TTL: time.Minute})
	pipeline := NewPipeline(fetcher, nil, time.UTC)

	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "state", "seen.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	notif := &mockNotifier{}
	trigger := NewTrigger(pipeline, store, notif, nil)

	result, err := trigger.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{codeA, codeB}
	if fmt.Sprint(result.NewCodes) != fmt.Sprint(want) {
		t.Errorf("NewCodes = %v, want %v", result.NewCodes, want)
	}
	if len(notif.sent) != 1 || len(notif.sent[0]) != 2 {
		t.Fatalf("expected one notification with 2 codes, got %v", notif.sent)
	}
	if notif.sent[0][1].Reward != "3 Golden Keys" {
		t.Errorf("reward = %q, want fallback prize field", notif.sent[0][1].Reward)
	}

	seen, err := store.GetSeen(context.Background())
	if err != nil {
		t.Fatalf("GetSeen() error = %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("expected 2 seen codes, got %d", len(seen))
	}

	// Read path uses the cache populated by the forced run.
	dataset, err := pipeline.LoadActive(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("LoadActive() error = %v", err)
	}
	if dataset.GeneratedAt != "2025-06-01T12:00:00.000Z" {
		t.Errorf("GeneratedAt = %q", dataset.GeneratedAt)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}

	// --- Second run with same data: nothing new, no further notifications ---
	notif.sent = nil
	result, err = trigger.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if len(result.NewCodes) != 0 {
		t.Errorf("expected no new codes on second run, got %v", result.NewCodes)
	}
	if len(notif.sent) != 0 {
		t.Errorf("expected no notifications on second run, got %d", len(notif.sent))
	}
}

// Verify that the mock types satisfy the interfaces.
var _ SeenStore = (*mockStore)(nil)
var _ CodeNotifier = (*mockNotifier)(nil)
var _ CodeSource = (*mockSource)(nil)
var _ SeenStore = (*storage.FileStore)(nil)
