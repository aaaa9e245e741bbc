package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
)

// pausingReader holds the first ReadMonth after it has read the ledger,
// so a write can land between the read and the cache fill.
type pausingReader struct {
	*memory.Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (p *pausingReader) ReadMonth(ctx context.Context, userID int64, month time.Time) (core.MonthLedger, error) {
	ml, err := p.Store.ReadMonth(ctx, userID, month)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return ml, err
}

func TestSummaryComputedBeforeWriteIsNotCached(t *testing.T) {
	env := newTestEnv(t)
	reader := &pausingReader{Store: env.store, read: make(chan struct{}), release: make(chan struct{})}
	env.srv.agg = services.NewAggregator(reader)

	done := make(chan int)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/report?month=2025-03", nil)
		req.Header.Set("Authorization", "Bearer "+env.token)
		rr := httptest.NewRecorder()
		env.srv.Handler.ServeHTTP(rr, req)
		done <- rr.Code
	}()

	select {
	case <-reader.read:
	case <-time.After(5 * time.Second):
		t.Fatal("report request never reached the store")
	}

	rr := env.do(t, http.MethodPost, "/api/expense", map[string]any{"type": "食", "amount": "100", "entry_date": "2025-03-10"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	close(reader.release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("report status=%d", code)
	}

	view := decode[core.SummaryView](t, env.do(t, http.MethodGet, "/api/report?month=2025-03", nil))
	if view.TotalExpense != 100 {
		t.Fatalf("stale summary cached: total expense %v", view.TotalExpense)
	}
}

func TestSummaryCachedWithoutWrites(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/expense", map[string]any{"type": "食", "amount": 40, "entry_date": "2025-03-02"})

	env.do(t, http.MethodGet, "/api/report?month=2025-03", nil)
	if _, ok := env.srv.summaryCache.Get(summaryKey(env.user.ID, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))); !ok {
		t.Fatal("expected summary to be cached")
	}

	env.srv.invalidate(env.user.ID)
	if env.srv.summaryCache.Size() != 0 {
		t.Fatalf("cache size after invalidate = %d", env.srv.summaryCache.Size())
	}
}
