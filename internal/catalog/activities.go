package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

type ActivityInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Date        string `json:"date,omitempty"`
	Link        string `json:"link,omitempty"`
	Image       string `json:"image,omitempty"`
	Order       *int   `json:"order,omitempty"`
}

func (in *ActivityInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" {
		return models.NewValidationError("title", "必須です")
	}
	if in.Category == "" {
		return models.NewValidationError("category", "必須です")
	}
	return nil
}

func (in ActivityInput) apply(a *models.Activity) {
	a.Title = in.Title
	a.Description = in.Description
	a.Category = in.Category
	a.Date = in.Date
	a.Link = in.Link
	a.Image = in.Image
	if in.Order != nil {
		a.Order = *in.Order
	}
}

// ActivityPatch 只更新有帶的欄位（常用於調整 order）
type ActivityPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Date        *string `json:"date,omitempty"`
	Link        *string `json:"link,omitempty"`
	Image       *string `json:"image,omitempty"`
	Order       *int    `json:"order,omitempty"`
}

func (p ActivityPatch) fields() (map[string]any, error) {
	f := map[string]any{}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return nil, models.NewValidationError("title", "必須です")
		}
		f["title"] = t
	}
	if p.Category != nil {
		c := strings.TrimSpace(*p.Category)
		if c == "" {
			return nil, models.NewValidationError("category", "必須です")
		}
		f["category"] = c
	}
	if p.Description != nil {
		f["description"] = *p.Description
	}
	if p.Date != nil {
		f["date"] = *p.Date
	}
	if p.Link != nil {
		f["link"] = *p.Link
	}
	if p.Image != nil {
		f["image"] = *p.Image
	}
	if p.Order != nil {
		f["order"] = *p.Order
	}
	if len(f) == 0 {
		return nil, models.NewValidationError("body", "更新する項目がありません")
	}
	return f, nil
}

type ActivityQuery struct {
	Category string
	Page     int // 0 = 全部
}

func sortByOrder[T any](items []T, order func(T) int, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		oi, oj := order(items[i]), order(items[j])
		if oi != oj {
			return oi < oj
		}
		return id(items[i]) < id(items[j])
	})
}

func (s *Service) ListActivities(ctx context.Context, q ActivityQuery, admin bool) (Page[models.Activity], error) {
	snaps, err := s.st.Query(ctx, store.Query{Collection: models.CollActivities})
	if err != nil {
		return Page[models.Activity]{}, err
	}
	all, err := store.DecodeAll[models.Activity](snaps)
	if err != nil {
		return Page[models.Activity]{}, err
	}
	out := all[:0]
	for _, a := range all {
		if q.Category == "" || a.Category == q.Category {
			out = append(out, a)
		}
	}
	sortByOrder(out, func(a models.Activity) int { return a.Order }, func(a models.Activity) string { return a.ID })

	size := 0
	if q.Page > 0 {
		size = PublicPageSize
		if admin {
			size = AdminPageSize
		}
	}
	return Paginate(out, q.Page, size), nil
}

func (s *Service) GetActivity(ctx context.Context, id string) (models.Activity, error) {
	snap, err := s.st.Get(ctx, models.CollActivities, id)
	if err != nil {
		return models.Activity{}, mapErr(err, audit.EntityActivity, id)
	}
	return store.Decode[models.Activity](snap)
}

// CreateActivity：order 省略時為目前最大值 + 1
func (s *Service) CreateActivity(ctx context.Context, sess auth.Session, in ActivityInput) (models.Activity, error) {
	if err := in.normalize(); err != nil {
		return models.Activity{}, err
	}
	now := s.now().UTC()
	a := models.Activity{CreatedAt: now, UpdatedAt: now}
	in.apply(&a)

	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if in.Order == nil {
			highest, err := maxOrderTx(tx, models.CollActivities)
			if err != nil {
				return err
			}
			a.Order = highest + 1
		}
		id, err := tx.Create(models.CollActivities, "", a)
		if err != nil {
			return err
		}
		a.ID = id
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionCreate,
			Entity:   audit.EntityActivity,
			EntityID: id,
			Details:  map[string]any{"title": a.Title, "order": a.Order},
		})
	})
	if err != nil {
		return models.Activity{}, mapErr(err, audit.EntityActivity, "")
	}
	return a, nil
}

// UpdateActivity 整筆覆蓋；order 省略時保留原值
func (s *Service) UpdateActivity(ctx context.Context, sess auth.Session, id string, in ActivityInput) (models.Activity, error) {
	if err := in.normalize(); err != nil {
		return models.Activity{}, err
	}
	var out models.Activity
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Get(models.CollActivities, id)
		if err != nil {
			return err
		}
		a, err := store.Decode[models.Activity](snap)
		if err != nil {
			return err
		}
		in.apply(&a)
		a.UpdatedAt = s.now().UTC()
		if err := tx.Set(models.CollActivities, id, a); err != nil {
			return err
		}
		out = a
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionUpdate,
			Entity:   audit.EntityActivity,
			EntityID: id,
			Details:  map[string]any{"title": a.Title},
		})
	})
	if err != nil {
		return models.Activity{}, mapErr(err, audit.EntityActivity, id)
	}
	return out, nil
}

func (s *Service) PatchActivity(ctx context.Context, sess auth.Session, id string, p ActivityPatch) (models.Activity, error) {
	f, err := p.fields()
	if err != nil {
		return models.Activity{}, err
	}
	var out models.Activity
	err = s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Get(models.CollActivities, id)
		if err != nil {
			return err
		}
		a, err := store.Decode[models.Activity](snap)
		if err != nil {
			return err
		}
		f["updatedAt"] = s.now().UTC()
		if err := tx.Update(models.CollActivities, id, f); err != nil {
			return err
		}
		patchActivity(&a, f)
		out = a
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionUpdate,
			Entity:   audit.EntityActivity,
			EntityID: id,
			Details:  map[string]any{"fields": fieldNames(f)},
		})
	})
	if err != nil {
		return models.Activity{}, mapErr(err, audit.EntityActivity, id)
	}
	return out, nil
}

func patchActivity(a *models.Activity, f map[string]any) {
	for k, v := range f {
		switch k {
		case "title":
			a.Title = v.(string)
		case "description":
			a.Description = v.(string)
		case "category":
			a.Category = v.(string)
		case "date":
			a.Date = v.(string)
		case "link":
			a.Link = v.(string)
		case "image":
			a.Image = v.(string)
		case "order":
			a.Order = v.(int)
		}
	}
	a.UpdatedAt = fieldTime(f, a.UpdatedAt)
}

func fieldTime(f map[string]any, def time.Time) time.Time {
	if t, ok := f["updatedAt"].(time.Time); ok {
		return t
	}
	return def
}

func (s *Service) DeleteActivity(ctx context.Context, sess auth.Session, id string) error {
	return s.deleteDoc(ctx, sess, models.CollActivities, audit.EntityActivity, id)
}

func (s *Service) ReorderActivities(ctx context.Context, sess auth.Session, a, b string) error {
	return s.swapOrder(ctx, sess, models.CollActivities, audit.EntityActivity, a, b)
}
