package section

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

func TestDecode_LegacyShapes(t *testing.T) {
	tests := []struct {
		name string
		t    Type
		raw  map[string]any
		want Data
	}{
		{
			name: "categorized legacy grouped by categories order",
			t:    TypeCategorized,
			raw: map[string]any{
				"categories": []any{"Backend", "Frontend"},
				"items": []any{
					map[string]any{"category": "Frontend", "name": "React"},
					map[string]any{"category": "Backend", "name": "Go"},
					map[string]any{"category": "Infra", "name": "Docker"},
					map[string]any{"category": "Backend", "name": "PostgreSQL"},
				},
			},
			want: CategorizedData{Items: []CategoryGroup{
				{Title: "Backend", Items: []string{"Go", "PostgreSQL"}},
				{Title: "Frontend", Items: []string{"React"}},
				{Title: "Infra", Items: []string{"Docker"}},
			}},
		},
		{
			name: "history items alias",
			t:    TypeHistory,
			raw: map[string]any{"items": []any{
				map[string]any{"date": "2020年4月", "details": []any{"入学"}},
				map[string]any{"date": "2024年3月", "details": "卒業"},
			}},
			want: HistoryData{Histories: []HistoryEntry{
				{Date: "2020年4月", Details: []string{"入学"}},
				{Date: "2024年3月", Details: []string{"卒業"}},
			}},
		},
		{
			name: "profile legacy names, current wins",
			t:    TypeProfile,
			raw: map[string]any{
				"name": "山田", "from": "大阪", "affiliation": "旧大学",
				"university": "新大学", "imageUrl": "/img/me.png",
			},
			want: ProfileData{Name: "山田", Hometown: "大阪", University: "新大学", ProfileImage: "/img/me.png"},
		},
		{
			name: "categorized legacy mixed with current groups",
			t:    TypeCategorized,
			raw: map[string]any{
				"categories": []any{"Web"},
				"items": []any{
					map[string]any{"title": "Cloud", "items": []any{"GCP"}},
					map[string]any{"category": "Web", "name": "React"},
				},
			},
			want: CategorizedData{Items: []CategoryGroup{
				{Title: "Web", Items: []string{"React"}},
				{Title: "Cloud", Items: []string{"GCP"}},
			}},
		},
		{
			name: "history with both keys keeps every entry",
			t:    TypeHistory,
			raw: map[string]any{
				"histories": []any{map[string]any{"date": "2022年4月", "details": []any{"入社"}}},
				"items":     []any{map[string]any{"date": "2018年4月", "details": []any{"入学"}}},
			},
			want: HistoryData{Histories: []HistoryEntry{
				{Date: "2022年4月", Details: []string{"入社"}},
				{Date: "2018年4月", Details: []string{"入学"}},
			}},
		},
		{
			name: "profile with one legacy key keeps current fields",
			t:    TypeProfile,
			raw:  map[string]any{"name": "山田", "from": "大阪", "hobbies": "登山"},
			want: ProfileData{Name: "山田", Hometown: "大阪", Hobbies: "登山"},
		},
		{
			name: "current shape untouched",
			t:    TypeList,
			raw:  map[string]any{"lists": []any{map[string]any{"title": "x", "items": []any{"y"}}}},
			want: ListData{Lists: []TitledList{{Title: "x", Items: []string{"y"}}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.t, tt.raw)
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestMigrate(t *testing.T) {
	svc, st, al := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, CreateInput{ID: "tools", DisplayName: "ツール", Type: "categorized"})
	mustCreate(t, svc, CreateInput{ID: "skills", DisplayName: "スキル", Type: "list"})
	legacy := map[string]any{
		"categories": []any{"Web"},
		"items":      []any{map[string]any{"category": "Web", "name": "React"}},
	}
	if err := st.Set(ctx, models.CollSections, "tools", legacy); err != nil {
		t.Fatal(err)
	}

	want := CategorizedData{Items: []CategoryGroup{{Title: "Web", Items: []string{"React"}}}}

	// 遷移前：讀取時在記憶體內轉換，store 仍是舊格式
	sec, _ := svc.Get(ctx, "tools")
	if !reflect.DeepEqual(sec.Data, Data(want)) {
		t.Errorf("legacy data read = %#v, want %#v", sec.Data, want)
	}
	if !storedIsLegacy(t, st, TypeCategorized, "tools") {
		t.Error("reading must not rewrite the stored document")
	}

	dry, err := svc.Migrate(ctx, owner, true)
	if err != nil {
		t.Fatalf("dry run error: %v", err)
	}
	if dry.Scanned != 2 || !reflect.DeepEqual(dry.Migrated, []string{"tools"}) {
		t.Errorf("dry run report = %+v", dry)
	}
	if !storedIsLegacy(t, st, TypeCategorized, "tools") {
		t.Error("dry run must not write")
	}

	before := auditCount(t, al)
	rep, err := svc.Migrate(ctx, owner, false)
	if err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	if !reflect.DeepEqual(rep.Migrated, []string{"tools"}) || len(rep.Failed) != 0 {
		t.Errorf("report = %+v", rep)
	}
	if storedIsLegacy(t, st, TypeCategorized, "tools") {
		t.Error("stored document is still legacy after Migrate")
	}
	sec, _ = svc.Get(ctx, "tools")
	if !reflect.DeepEqual(sec.Data, Data(want)) {
		t.Errorf("migrated data = %#v", sec.Data)
	}
	if n := auditCount(t, al) - before; n != 1 {
		t.Errorf("audit entries = %d, want 1", n)
	}

	again, _ := svc.Migrate(ctx, owner, false)
	if len(again.Migrated) != 0 {
		t.Errorf("second run migrated %v", again.Migrated)
	}
}

func storedIsLegacy(t *testing.T, st *store.Memory, typ Type, id string) bool {
	t.Helper()
	return IsLegacy(typ, storedRaw(t, st, id))
}

func storedRaw(t *testing.T, st *store.Memory, id string) map[string]any {
	t.Helper()
	snap, err := st.Get(context.Background(), models.CollSections, id)
	if err != nil {
		t.Fatalf("Get sections/%s: %v", id, err)
	}
	raw, err := rawData(snap)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestSort_LegacyHistoryKeepsEntries(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateInput{ID: "career", DisplayName: "経歴", Type: "history"})
	legacy := map[string]any{"items": []any{
		map[string]any{"date": "2020年4月", "details": []any{"入社"}},
		map[string]any{"date": "2019年4月", "details": []any{"卒業"}},
	}}
	if err := st.Set(ctx, models.CollSections, "career", legacy); err != nil {
		t.Fatal(err)
	}

	sec, err := svc.Sort(ctx, owner, "career", "")
	if err != nil {
		t.Fatalf("Sort error: %v", err)
	}
	want := HistoryData{Histories: []HistoryEntry{
		{Date: "2019年4月", Details: []string{"卒業"}},
		{Date: "2020年4月", Details: []string{"入社"}},
	}}
	if !reflect.DeepEqual(sec.Data, Data(want)) {
		t.Errorf("sorted data = %#v, want %#v", sec.Data, want)
	}
	got, _ := svc.Get(ctx, "career")
	if !reflect.DeepEqual(got.Data, Data(want)) {
		t.Errorf("stored data = %#v, want %#v", got.Data, want)
	}
	if _, ok := storedRaw(t, st, "career")["items"]; ok {
		t.Error("stored document still has the items key")
	}
}

func TestEdit_LegacyProfileKeepsFields(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateInput{ID: "me", DisplayName: "プロフィール", Type: "profile"})
	legacy := map[string]any{"name": "山田", "from": "大阪", "hobbies": "登山"}
	if err := st.Set(ctx, models.CollSections, "me", legacy); err != nil {
		t.Fatal(err)
	}

	sec, _ := svc.Get(ctx, "me")
	if p := sec.Data.(ProfileData); p.Name != "山田" || p.Hometown != "大阪" {
		t.Errorf("Get profile = %+v", p)
	}

	if _, err := svc.Edit(ctx, owner, "me", []EditOp{{Op: OpSet, Path: "university", Value: raw("東大")}}); err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	want := map[string]any{"name": "山田", "hometown": "大阪", "hobbies": "登山", "university": "東大"}
	if got := storedRaw(t, st, "me"); !reflect.DeepEqual(got, want) {
		t.Errorf("stored doc = %v, want %v", got, want)
	}
}

func TestRenderHTML_LegacyCategorized(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateInput{ID: "tools", DisplayName: "ツール", Type: "categorized"})
	legacy := map[string]any{
		"categories": []any{"Web"},
		"items":      []any{map[string]any{"category": "Web", "name": "React"}},
	}
	if err := st.Set(ctx, models.CollSections, "tools", legacy); err != nil {
		t.Fatal(err)
	}
	out, err := svc.RenderHTML(ctx, "tools")
	if err != nil {
		t.Fatalf("RenderHTML error: %v", err)
	}
	for _, want := range []string{"Web", "React"} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q: %s", want, out)
		}
	}
}

func TestEdit_UnreadableDataIsNotOverwritten(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateInput{ID: "skills", DisplayName: "スキル", Type: "list"})
	broken := map[string]any{"lists": "Go, TypeScript"}
	if err := st.Set(ctx, models.CollSections, "skills", broken); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Edit(ctx, owner, "skills", []EditOp{{Op: OpAdd, Path: "lists", Value: raw(TitledList{Title: "x"})}})
	if !models.IsKind(err, models.KindConflict) {
		t.Fatalf("Edit err = %v, want conflict", err)
	}
	if got := storedRaw(t, st, "skills"); !reflect.DeepEqual(got, broken) {
		t.Errorf("stored doc = %v, want unchanged %v", got, broken)
	}

	// PUT は全体を置き換えるので読めないデータでも直せる
	if _, err := svc.Update(ctx, owner, "skills", []byte(`{"lists":[{"title":"言語","items":["Go"]}]}`)); err != nil {
		t.Errorf("Update error: %v", err)
	}
}
