package catalog

import (
	"context"
	"reflect"
	"testing"
	"time"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/logger"
	"local.dev/portfolio-backend/internal/metrics"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

var owner = auth.Session{UID: "owner", Email: "owner@example.com", Admin: true}

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *audit.Logger) {
	t.Helper()
	st, err := store.NewMemory("")
	if err != nil {
		t.Fatal(err)
	}
	al := audit.New(st, logger.Nop(), metrics.Nop(), 24*time.Hour)
	svc := NewService(st, al)
	svc.now = func() time.Time { return fixedNow }
	return svc, al
}

func auditCount(t *testing.T, al *audit.Logger) int {
	t.Helper()
	page, err := al.List(context.Background(), "", audit.MaxLimit)
	if err != nil {
		t.Fatal(err)
	}
	return len(page.Logs)
}

func TestCreateProduct_Defaults(t *testing.T) {
	svc, al := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, owner, ProductInput{
		Title:        "  ポートフォリオ  ",
		Technologies: []string{" Go ", "", "React"},
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}
	if p.ID == "" {
		t.Fatal("id is empty")
	}
	if p.Title != "ポートフォリオ" {
		t.Errorf("Title = %q, want trimmed", p.Title)
	}
	if p.Status != models.StatusPublic || p.DeployStatus != models.DeployNotLive {
		t.Errorf("status = %q/%q, want 公開/未公開", p.Status, p.DeployStatus)
	}
	if p.CreatedYear != 2025 || p.CreatedMonth != 3 {
		t.Errorf("created = %d/%d, want 2025/3", p.CreatedYear, p.CreatedMonth)
	}
	if !reflect.DeepEqual(p.Technologies, []string{"Go", "React"}) {
		t.Errorf("Technologies = %v", p.Technologies)
	}
	if got := auditCount(t, al); got != 1 {
		t.Errorf("audit entries = %d, want 1", got)
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	svc, al := newTestService(t)
	tests := []struct {
		name string
		in   ProductInput
	}{
		{"missing title", ProductInput{Title: "  "}},
		{"unknown status", ProductInput{Title: "x", Status: "draft"}},
		{"unknown deploy status", ProductInput{Title: "x", DeployStatus: "live"}},
		{"month out of range", ProductInput{Title: "x", CreatedMonth: 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), owner, tt.in)
			if !models.IsKind(err, models.KindValidation) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
	if got := auditCount(t, al); got != 0 {
		t.Errorf("audit entries = %d, want 0", got)
	}
}

func TestProducts_PrivateHiddenFromPublic(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pub, _ := svc.CreateProduct(ctx, owner, ProductInput{Title: "公開作品", CreatedYear: 2024})
	priv, _ := svc.CreateProduct(ctx, owner, ProductInput{Title: "下書き", Status: models.StatusPrivate, CreatedYear: 2022})

	page, err := svc.ListProducts(ctx, ProductQuery{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].ID != pub.ID {
		t.Errorf("public list = %+v, want only %s", page.Items, pub.ID)
	}
	if page.PageSize != PublicPageSize {
		t.Errorf("PageSize = %d, want %d", page.PageSize, PublicPageSize)
	}

	page, _ = svc.ListProducts(ctx, ProductQuery{}, true)
	if page.Total != 2 || page.PageSize != AdminPageSize {
		t.Errorf("admin list total=%d size=%d, want 2/%d", page.Total, page.PageSize, AdminPageSize)
	}

	if _, err := svc.GetProduct(ctx, priv.ID, false); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("public GetProduct(private) err = %v, want not found", err)
	}
	if _, err := svc.GetProduct(ctx, priv.ID, true); err != nil {
		t.Errorf("admin GetProduct(private) err = %v", err)
	}

	years, _ := svc.ProductYears(ctx, false)
	if !reflect.DeepEqual(years, []int{2024}) {
		t.Errorf("public years = %v, want [2024]", years)
	}
	years, _ = svc.ProductYears(ctx, true)
	if !reflect.DeepEqual(years, []int{2024, 2022}) {
		t.Errorf("admin years = %v, want [2024 2022]", years)
	}

	if _, err := svc.ListProducts(ctx, ProductQuery{Sort: "bogus"}, false); !models.IsKind(err, models.KindValidation) {
		t.Errorf("bad sort err = %v, want validation", err)
	}
}

func TestUpdateProduct_KeepsCreatedAt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreateProduct(ctx, owner, ProductInput{Title: "v1"})

	svc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	got, err := svc.UpdateProduct(ctx, owner, p.ID, ProductInput{Title: "v2", Status: models.StatusPrivate})
	if err != nil {
		t.Fatalf("UpdateProduct error: %v", err)
	}
	if !got.CreatedAt.Equal(fixedNow) || !got.UpdatedAt.Equal(fixedNow.Add(time.Hour)) {
		t.Errorf("times = %v/%v", got.CreatedAt, got.UpdatedAt)
	}
	if got.Title != "v2" || got.Status != models.StatusPrivate {
		t.Errorf("product = %+v", got)
	}

	if _, err := svc.UpdateProduct(ctx, owner, "missing", ProductInput{Title: "x"}); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("update missing err = %v, want not found", err)
	}
	if err := svc.DeleteProduct(ctx, owner, p.ID); err != nil {
		t.Fatalf("DeleteProduct error: %v", err)
	}
	if err := svc.DeleteProduct(ctx, owner, p.ID); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("second delete err = %v, want not found", err)
	}
}

func TestTechnologies_UniqueTrimmedName(t *testing.T) {
	svc, al := newTestService(t)
	ctx := context.Background()

	goTech, err := svc.CreateTechnology(ctx, owner, TechnologyInput{Name: "Go", Category: "backend"})
	if err != nil {
		t.Fatalf("CreateTechnology error: %v", err)
	}
	if _, err := svc.CreateTechnology(ctx, owner, TechnologyInput{Name: " Go "}); !models.IsKind(err, models.KindConflict) {
		t.Errorf("duplicate err = %v, want conflict", err)
	}
	if _, err := svc.CreateTechnology(ctx, owner, TechnologyInput{Name: "  "}); !models.IsKind(err, models.KindValidation) {
		t.Errorf("blank err = %v, want validation", err)
	}
	react, _ := svc.CreateTechnology(ctx, owner, TechnologyInput{Name: "React", Category: "frontend"})

	if _, err := svc.UpdateTechnology(ctx, owner, react.ID, TechnologyInput{Name: "Go"}); !models.IsKind(err, models.KindConflict) {
		t.Errorf("rename to taken err = %v, want conflict", err)
	}
	// 自己的名稱不算重複
	if _, err := svc.UpdateTechnology(ctx, owner, goTech.ID, TechnologyInput{Name: "Go", Category: "lang"}); err != nil {
		t.Errorf("update same name err = %v", err)
	}

	list, _ := svc.ListTechnologies(ctx, "")
	if len(list) != 2 {
		t.Fatalf("technologies = %d, want 2", len(list))
	}
	list, _ = svc.ListTechnologies(ctx, "frontend")
	if len(list) != 1 || list[0].Name != "React" {
		t.Errorf("frontend = %+v", list)
	}
	if got := auditCount(t, al); got != 3 {
		t.Errorf("audit entries = %d, want 3", got)
	}
}

func TestCategories_ReorderByPatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	web, err := svc.CreateCategory(ctx, owner, CategoryInput{Name: "Web"})
	if err != nil {
		t.Fatal(err)
	}
	mobile, _ := svc.CreateCategory(ctx, owner, CategoryInput{Name: "Mobile"})
	if web.Order != 1 || mobile.Order != 2 {
		t.Fatalf("orders = %d/%d, want 1/2", web.Order, mobile.Order)
	}

	two, one := 2, 1
	if _, err := svc.PatchCategory(ctx, owner, web.ID, CategoryPatch{Order: &two}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.PatchCategory(ctx, owner, mobile.ID, CategoryPatch{Order: &one}); err != nil {
		t.Fatal(err)
	}
	cats, _ := svc.ListCategories(ctx)
	if len(cats) != 2 || cats[0].Name != "Mobile" || cats[1].Name != "Web" {
		t.Errorf("categories = %+v, want Mobile then Web", cats)
	}

	if _, err := svc.CreateCategory(ctx, owner, CategoryInput{Name: " Web "}); !models.IsKind(err, models.KindConflict) {
		t.Errorf("duplicate category err = %v, want conflict", err)
	}
	mob := "Mobile"
	if _, err := svc.PatchCategory(ctx, owner, web.ID, CategoryPatch{Name: &mob}); !models.IsKind(err, models.KindConflict) {
		t.Errorf("rename to taken err = %v, want conflict", err)
	}
	if _, err := svc.PatchCategory(ctx, owner, web.ID, CategoryPatch{}); !models.IsKind(err, models.KindValidation) {
		t.Errorf("empty patch err = %v, want validation", err)
	}
}

func TestCategories_ReorderSwapWithTiedOrders(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	web, _ := svc.CreateCategory(ctx, owner, CategoryInput{Name: "Web"})
	mobile, _ := svc.CreateCategory(ctx, owner, CategoryInput{Name: "Mobile"})
	// PATCH で同じ order になった状態
	two := 2
	if _, err := svc.PatchCategory(ctx, owner, web.ID, CategoryPatch{Order: &two}); err != nil {
		t.Fatal(err)
	}
	before, _ := svc.ListCategories(ctx)

	if err := svc.ReorderCategories(ctx, owner, web.ID, mobile.ID); err != nil {
		t.Fatalf("ReorderCategories error: %v", err)
	}
	after, _ := svc.ListCategories(ctx)
	if after[0].ID != before[1].ID || after[1].ID != before[0].ID {
		t.Errorf("categories after = %+v, want reverse of %+v", after, before)
	}
}

func TestCategories_ReorderSwap(t *testing.T) {
	svc, al := newTestService(t)
	ctx := context.Background()
	a, _ := svc.CreateCategory(ctx, owner, CategoryInput{Name: "A"})
	b, _ := svc.CreateCategory(ctx, owner, CategoryInput{Name: "B"})
	before := auditCount(t, al)

	if err := svc.ReorderCategories(ctx, owner, a.ID, b.ID); err != nil {
		t.Fatalf("ReorderCategories error: %v", err)
	}
	cats, _ := svc.ListCategories(ctx)
	if cats[0].Name != "B" || cats[1].Name != "A" {
		t.Errorf("categories = %+v, want B then A", cats)
	}
	if got := auditCount(t, al); got != before+1 {
		t.Errorf("audit entries = %d, want %d", got, before+1)
	}
	if err := svc.ReorderCategories(ctx, owner, a.ID, a.ID); !models.IsKind(err, models.KindValidation) {
		t.Errorf("same id err = %v, want validation", err)
	}
	if err := svc.ReorderCategories(ctx, owner, a.ID, "missing"); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("missing err = %v, want not found", err)
	}
}

func TestActivities(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateActivity(ctx, owner, ActivityInput{Title: "ハッカソン", Category: "Event"})
	if err != nil {
		t.Fatalf("CreateActivity error: %v", err)
	}
	second, _ := svc.CreateActivity(ctx, owner, ActivityInput{Title: "登壇", Category: "Talk"})
	if first.Order != 1 || second.Order != 2 {
		t.Errorf("orders = %d/%d, want 1/2", first.Order, second.Order)
	}
	if _, err := svc.CreateActivity(ctx, owner, ActivityInput{Title: "x"}); !models.IsKind(err, models.KindValidation) {
		t.Errorf("missing category err = %v, want validation", err)
	}

	if err := svc.ReorderActivities(ctx, owner, first.ID, second.ID); err != nil {
		t.Fatal(err)
	}
	page, _ := svc.ListActivities(ctx, ActivityQuery{}, false)
	if len(page.Items) != 2 || page.Items[0].ID != second.ID {
		t.Errorf("activities = %+v, want %s first", page.Items, second.ID)
	}

	page, _ = svc.ListActivities(ctx, ActivityQuery{Category: "Event"}, false)
	if page.Total != 1 || page.Items[0].ID != first.ID {
		t.Errorf("Event activities = %+v", page.Items)
	}

	desc := "更新"
	got, err := svc.PatchActivity(ctx, owner, first.ID, ActivityPatch{Description: &desc})
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != desc || got.Title != "ハッカソン" || got.Order != 2 {
		t.Errorf("patched = %+v", got)
	}

	// PUT で order 省略時は維持
	got, err = svc.UpdateActivity(ctx, owner, first.ID, ActivityInput{Title: "ハッカソン2025", Category: "Event"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Order != 2 || got.Description != "" {
		t.Errorf("updated = %+v", got)
	}

	if err := svc.DeleteActivity(ctx, owner, first.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetActivity(ctx, first.ID); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("get deleted err = %v, want not found", err)
	}
}

func TestActivities_Paging(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 8; i++ {
		if _, err := svc.CreateActivity(ctx, owner, ActivityInput{Title: "a", Category: "c"}); err != nil {
			t.Fatal(err)
		}
	}
	page, _ := svc.ListActivities(ctx, ActivityQuery{Page: 2}, false)
	if len(page.Items) != 2 || page.TotalPages != 2 {
		t.Errorf("page 2 = %d items / %d pages, want 2/2", len(page.Items), page.TotalPages)
	}
	page, _ = svc.ListActivities(ctx, ActivityQuery{}, false)
	if len(page.Items) != 8 {
		t.Errorf("unpaged = %d items, want 8", len(page.Items))
	}
}
