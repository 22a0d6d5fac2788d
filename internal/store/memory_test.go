package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testDoc struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (d *testDoc) SetID(id string) { d.ID = id }

func mustCreate(t *testing.T, m *Memory, coll, id string, v any) string {
	t.Helper()
	got, err := m.Create(context.Background(), coll, id, v)
	if err != nil {
		t.Fatalf("Create(%s) error: %v", id, err)
	}
	return got
}

func TestMemory_CRUD(t *testing.T) {
	ctx := context.Background()
	m, _ := NewMemory("")

	id := mustCreate(t, m, "docs", "", testDoc{Name: "a", Order: 1})
	if id == "" {
		t.Fatal("generated id is empty")
	}

	snap, err := m.Get(ctx, "docs", id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	doc, err := Decode[testDoc](snap)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if doc.ID != id || doc.Name != "a" {
		t.Errorf("doc = %+v, want id %q name a", doc, id)
	}

	if _, err := m.Create(ctx, "docs", id, testDoc{}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Create duplicate err = %v, want ErrAlreadyExists", err)
	}

	if err := m.Update(ctx, "docs", id, map[string]any{"order": 5}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	snap, _ = m.Get(ctx, "docs", id)
	doc, _ = Decode[testDoc](snap)
	if doc.Order != 5 || doc.Name != "a" {
		t.Errorf("after update doc = %+v", doc)
	}

	if err := m.Update(ctx, "docs", "missing", map[string]any{"order": 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing err = %v, want ErrNotFound", err)
	}

	if err := m.Delete(ctx, "docs", id); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := m.Get(ctx, "docs", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
}

func TestMemory_Query(t *testing.T) {
	ctx := context.Background()
	m, _ := NewMemory("")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mustCreate(t, m, "docs", "a", testDoc{Name: "x", Order: 3, CreatedAt: base, Tags: []string{"go"}})
	mustCreate(t, m, "docs", "b", testDoc{Name: "y", Order: 1, CreatedAt: base.Add(time.Hour)})
	mustCreate(t, m, "docs", "c", testDoc{Name: "x", Order: 2, CreatedAt: base.Add(90 * time.Second)})
	mustCreate(t, m, "docs", "d", map[string]any{"name": "no order"})

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"default id order", Query{Collection: "docs"}, []string{"a", "b", "c", "d"}},
		{"order asc skips missing field", Query{Collection: "docs"}.OrderBy("order", false), []string{"b", "c", "a"}},
		{"order desc", Query{Collection: "docs"}.OrderBy("order", true), []string{"a", "c", "b"}},
		{"where eq", Query{Collection: "docs"}.Where("name", OpEq, "x"), []string{"a", "c"}},
		{"where gt int", Query{Collection: "docs"}.Where("order", OpGt, 1), []string{"a", "c"}},
		{"time compare", Query{Collection: "docs"}.Where("createdAt", OpLt, base.Add(time.Minute*2)), []string{"a", "c"}},
		{"array contains", Query{Collection: "docs"}.Where("tags", OpArrayContains, "go"), []string{"a"}},
		{"limit", Query{Collection: "docs", Limit: 2}.OrderBy("order", false), []string{"b", "c"}},
		{"start after", Query{Collection: "docs", StartAfter: "c"}.OrderBy("order", false), []string{"a"}},
		{"createdAt desc", Query{Collection: "docs"}.OrderBy("createdAt", true), []string{"b", "c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps, err := m.Query(ctx, tt.q)
			if err != nil {
				t.Fatalf("Query error: %v", err)
			}
			var got []string
			for _, s := range snaps {
				got = append(got, s.ID())
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("ids = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMemory_QueryUnknownCursor(t *testing.T) {
	m, _ := NewMemory("")
	_, err := m.Query(context.Background(), Query{Collection: "docs", StartAfter: "nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemory_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	m, _ := NewMemory("")
	mustCreate(t, m, "docs", "a", testDoc{Name: "a", Order: 1})

	boom := errors.New("boom")
	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Update("docs", "a", map[string]any{"order": 9}); err != nil {
			return err
		}
		if _, err := tx.Create("docs", "b", testDoc{Name: "b"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	snap, _ := m.Get(ctx, "docs", "a")
	doc, _ := Decode[testDoc](snap)
	if doc.Order != 1 {
		t.Errorf("order = %d, want 1 (rolled back)", doc.Order)
	}
	if _, err := m.Get(ctx, "docs", "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("b exists after rollback")
	}
}

func TestMemory_TransactionCommitIsAtomic(t *testing.T) {
	ctx := context.Background()
	m, _ := NewMemory("")
	mustCreate(t, m, "docs", "a", testDoc{Name: "a", Order: 1})

	// 第二個寫入失敗時，第一個也不能生效
	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		_ = tx.Update("docs", "a", map[string]any{"order": 2})
		return tx.Update("docs", "missing", map[string]any{"order": 3})
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	snap, _ := m.Get(ctx, "docs", "a")
	doc, _ := Decode[testDoc](snap)
	if doc.Order != 1 {
		t.Errorf("order = %d, want 1", doc.Order)
	}
}

func TestMemory_TransactionReadAfterWrite(t *testing.T) {
	m, _ := NewMemory("")
	mustCreate(t, m, "docs", "a", testDoc{Name: "a"})
	err := m.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.Set("docs", "a", testDoc{Name: "b"}); err != nil {
			return err
		}
		_, err := tx.Get("docs", "a")
		return err
	})
	if !errors.Is(err, ErrReadAfterWrite) {
		t.Errorf("err = %v, want ErrReadAfterWrite", err)
	}
}

func TestMemory_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m, err := NewMemory(dir)
	if err != nil {
		t.Fatalf("NewMemory error: %v", err)
	}
	mustCreate(t, m, "docs", "a", testDoc{Name: "persisted", Order: 7})
	if err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.Create("other", "z", testDoc{Name: "tx"})
		return err
	}); err != nil {
		t.Fatalf("RunTransaction error: %v", err)
	}

	reloaded, err := NewMemory(dir)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	snap, err := reloaded.Get(ctx, "docs", "a")
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	doc, _ := Decode[testDoc](snap)
	if doc.Name != "persisted" || doc.Order != 7 {
		t.Errorf("doc = %+v", doc)
	}
	if _, err := reloaded.Get(ctx, "other", "z"); err != nil {
		t.Errorf("tx write not persisted: %v", err)
	}
}
