package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/logger"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

var owner = auth.Session{UID: "u1", Email: "owner@example.com", Admin: true}

type countingRecorder struct {
	auditFailures int
}

func (c *countingRecorder) RecordRequest(string, int, time.Duration) {}
func (c *countingRecorder) RecordAuditFailure(string)                { c.auditFailures++ }
func (c *countingRecorder) RecordInquirySubmitted(string)            {}
func (c *countingRecorder) RecordRateLimited(string)                 {}

func newTestLogger(t *testing.T) (*Logger, *store.Memory, *time.Time) {
	t.Helper()
	st, _ := store.NewMemory("")
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(st, logger.Nop(), &countingRecorder{}, 30*24*time.Hour)
	l.now = func() time.Time { return now }
	return l, st, &now
}

func TestRecord_CommitsWithTransaction(t *testing.T) {
	l, st, _ := newTestLogger(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_ = st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := l.Record(tx, owner, Entry{Action: ActionDelete, Entity: EntityProduct, EntityID: "p1"}); err != nil {
			return err
		}
		return boom
	})
	page, err := l.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(page.Logs) != 0 {
		t.Fatalf("rolled back tx left %d logs", len(page.Logs))
	}

	if err := st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return l.Record(tx, owner, Entry{Action: ActionDelete, Entity: EntityProduct, EntityID: "p1"})
	}); err != nil {
		t.Fatalf("RunTransaction error: %v", err)
	}
	page, _ = l.List(ctx, "", 10)
	if len(page.Logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(page.Logs))
	}
	got := page.Logs[0]
	if got.Action != ActionDelete || got.EntityID != "p1" || got.UserEmail != "owner@example.com" || got.Level != LevelInfo {
		t.Errorf("log = %+v", got)
	}
}

func TestList_PaginatesNewestFirst(t *testing.T) {
	l, _, now := newTestLogger(t)
	ctx := context.Background()
	base := *now
	for i := 0; i < 5; i++ {
		l.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		if _, err := l.Create(ctx, owner, Entry{Action: ActionUpdate, EntityID: string(rune('a' + i))}); err != nil {
			t.Fatal(err)
		}
	}
	l.now = func() time.Time { return base.Add(time.Hour) }

	var seen []string
	cursor := ""
	for pages := 0; pages < 5; pages++ {
		page, err := l.List(ctx, cursor, 2)
		if err != nil {
			t.Fatalf("List error: %v", err)
		}
		for _, lg := range page.Logs {
			seen = append(seen, lg.EntityID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	want := []string{"e", "d", "c", "b", "a"}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen = %v, want %v", seen, want)
		}
	}
}

func TestList_PrunesExpired(t *testing.T) {
	l, _, now := newTestLogger(t)
	ctx := context.Background()
	base := *now

	l.now = func() time.Time { return base.Add(-31 * 24 * time.Hour) }
	_, _ = l.Create(ctx, owner, Entry{Action: ActionCreate, EntityID: "old"})
	l.now = func() time.Time { return base.Add(-time.Hour) }
	_, _ = l.Create(ctx, owner, Entry{Action: ActionCreate, EntityID: "new"})
	l.now = func() time.Time { return base }

	page, err := l.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(page.Logs) != 1 || page.Logs[0].EntityID != "new" {
		t.Errorf("logs = %+v, want only the recent one", page.Logs)
	}
}

func TestList_UnknownCursor(t *testing.T) {
	l, _, _ := newTestLogger(t)
	_, err := l.List(context.Background(), "missing", 10)
	if !models.IsKind(err, models.KindValidation) {
		t.Errorf("err = %v, want validation error", err)
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) Create(context.Context, string, string, any) (string, error) {
	return "", errors.New("unavailable")
}

func TestAppend_FailureIsCountedNotReturned(t *testing.T) {
	st, _ := store.NewMemory("")
	rec := &countingRecorder{}
	l := New(failingStore{Store: st}, logger.Nop(), rec, time.Hour)

	l.Append(context.Background(), owner, Entry{Action: ActionUpload, Entity: EntityImage})
	if rec.auditFailures != 1 {
		t.Errorf("auditFailures = %d, want 1", rec.auditFailures)
	}
}

func TestCreate_RequiresAction(t *testing.T) {
	l, _, _ := newTestLogger(t)
	if _, err := l.Create(context.Background(), owner, Entry{}); !models.IsKind(err, models.KindValidation) {
		t.Errorf("err = %v, want validation error", err)
	}
}
