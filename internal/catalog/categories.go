package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

type CategoryInput struct {
	Name  string `json:"name"`
	Order *int   `json:"order,omitempty"`
}

type CategoryPatch struct {
	Name  *string `json:"name,omitempty"`
	Order *int    `json:"order,omitempty"`
}

func (s *Service) ListCategories(ctx context.Context) ([]models.ActivityCategory, error) {
	snaps, err := s.st.Query(ctx, store.Query{Collection: models.CollActivityCategories})
	if err != nil {
		return nil, err
	}
	cats, err := store.DecodeAll[models.ActivityCategory](snaps)
	if err != nil {
		return nil, err
	}
	sortByOrder(cats, func(c models.ActivityCategory) int { return c.Order }, func(c models.ActivityCategory) string { return c.ID })
	return cats, nil
}

func (s *Service) CreateCategory(ctx context.Context, sess auth.Session, in CategoryInput) (models.ActivityCategory, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.ActivityCategory{}, models.NewValidationError("name", "必須です")
	}
	now := s.now().UTC()
	c := models.ActivityCategory{Name: name, CreatedAt: now, UpdatedAt: now}

	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		taken, err := nameTakenTx(tx, models.CollActivityCategories, name, "")
		if err != nil {
			return err
		}
		if taken {
			return models.NewConflictError(fmt.Sprintf("カテゴリ「%s」は既に存在します。", name))
		}
		if in.Order != nil {
			c.Order = *in.Order
		} else {
			highest, err := maxOrderTx(tx, models.CollActivityCategories)
			if err != nil {
				return err
			}
			c.Order = highest + 1
		}
		id, err := tx.Create(models.CollActivityCategories, "", c)
		if err != nil {
			return err
		}
		c.ID = id
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionCreate,
			Entity:   audit.EntityActivityCategory,
			EntityID: id,
			Details:  map[string]any{"name": name, "order": c.Order},
		})
	})
	if err != nil {
		return models.ActivityCategory{}, mapErr(err, audit.EntityActivityCategory, name)
	}
	return c, nil
}

// PatchCategory：改名只改分類文件本身，不會同步到活動的 category
func (s *Service) PatchCategory(ctx context.Context, sess auth.Session, id string, p CategoryPatch) (models.ActivityCategory, error) {
	f := map[string]any{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return models.ActivityCategory{}, models.NewValidationError("name", "必須です")
		}
		f["name"] = name
	}
	if p.Order != nil {
		f["order"] = *p.Order
	}
	if len(f) == 0 {
		return models.ActivityCategory{}, models.NewValidationError("body", "更新する項目がありません")
	}

	var out models.ActivityCategory
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Get(models.CollActivityCategories, id)
		if err != nil {
			return err
		}
		c, err := store.Decode[models.ActivityCategory](snap)
		if err != nil {
			return err
		}
		if name, ok := f["name"].(string); ok && name != c.Name {
			taken, err := nameTakenTx(tx, models.CollActivityCategories, name, id)
			if err != nil {
				return err
			}
			if taken {
				return models.NewConflictError(fmt.Sprintf("カテゴリ「%s」は既に存在します。", name))
			}
			c.Name = name
		}
		if p.Order != nil {
			c.Order = *p.Order
		}
		c.UpdatedAt = s.now().UTC()
		f["updatedAt"] = c.UpdatedAt
		if err := tx.Update(models.CollActivityCategories, id, f); err != nil {
			return err
		}
		out = c
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionUpdate,
			Entity:   audit.EntityActivityCategory,
			EntityID: id,
			Details:  map[string]any{"fields": fieldNames(f)},
		})
	})
	if err != nil {
		return models.ActivityCategory{}, mapErr(err, audit.EntityActivityCategory, id)
	}
	return out, nil
}

func (s *Service) DeleteCategory(ctx context.Context, sess auth.Session, id string) error {
	return s.deleteDoc(ctx, sess, models.CollActivityCategories, audit.EntityActivityCategory, id)
}

func (s *Service) ReorderCategories(ctx context.Context, sess auth.Session, a, b string) error {
	return s.swapOrder(ctx, sess, models.CollActivityCategories, audit.EntityActivityCategory, a, b)
}

// fieldNames 給 audit 的 details 用（不含 updatedAt）
func fieldNames(f map[string]any) []string {
	names := make([]string, 0, len(f))
	for k := range f {
		if k != "updatedAt" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}
