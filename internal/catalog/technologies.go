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

type TechnologyInput struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

func (in *TechnologyInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return models.NewValidationError("name", "必須です")
	}
	return nil
}

// ListTechnologies 依分類、名稱排序；category 不為空時只回傳該分類
func (s *Service) ListTechnologies(ctx context.Context, category string) ([]models.Technology, error) {
	snaps, err := s.st.Query(ctx, store.Query{Collection: models.CollTechnologies})
	if err != nil {
		return nil, err
	}
	all, err := store.DecodeAll[models.Technology](snaps)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, t := range all {
		if category == "" || t.Category == category {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return compareTitle(out[i].Category, out[j].Category) < 0
		}
		return compareTitle(out[i].Name, out[j].Name) < 0
	})
	return out, nil
}

// nameTakenTx 檢查 trim 後的名稱是否已被其他文件使用
func nameTakenTx(tx store.Tx, coll, name, exceptID string) (bool, error) {
	snaps, err := tx.Query(store.Query{Collection: coll}.Where("name", store.OpEq, name))
	if err != nil {
		return false, err
	}
	for _, s := range snaps {
		if s.ID() != exceptID {
			return true, nil
		}
	}
	return false, nil
}

// CreateTechnology：名稱檢查與新增在同一個 transaction 內
func (s *Service) CreateTechnology(ctx context.Context, sess auth.Session, in TechnologyInput) (models.Technology, error) {
	if err := in.normalize(); err != nil {
		return models.Technology{}, err
	}
	t := models.Technology{Name: in.Name, Category: in.Category, CreatedAt: s.now().UTC()}
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		taken, err := nameTakenTx(tx, models.CollTechnologies, t.Name, "")
		if err != nil {
			return err
		}
		if taken {
			return models.NewConflictError(fmt.Sprintf("技術「%s」は既に登録されています。", t.Name))
		}
		id, err := tx.Create(models.CollTechnologies, "", t)
		if err != nil {
			return err
		}
		t.ID = id
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionCreate,
			Entity:   audit.EntityTechnology,
			EntityID: id,
			Details:  map[string]any{"name": t.Name},
		})
	})
	if err != nil {
		return models.Technology{}, mapErr(err, audit.EntityTechnology, t.Name)
	}
	return t, nil
}

func (s *Service) UpdateTechnology(ctx context.Context, sess auth.Session, id string, in TechnologyInput) (models.Technology, error) {
	if err := in.normalize(); err != nil {
		return models.Technology{}, err
	}
	var out models.Technology
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Get(models.CollTechnologies, id)
		if err != nil {
			return err
		}
		t, err := store.Decode[models.Technology](snap)
		if err != nil {
			return err
		}
		taken, err := nameTakenTx(tx, models.CollTechnologies, in.Name, id)
		if err != nil {
			return err
		}
		if taken {
			return models.NewConflictError(fmt.Sprintf("技術「%s」は既に登録されています。", in.Name))
		}
		t.Name, t.Category = in.Name, in.Category
		if err := tx.Set(models.CollTechnologies, id, t); err != nil {
			return err
		}
		out = t
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionUpdate,
			Entity:   audit.EntityTechnology,
			EntityID: id,
			Details:  map[string]any{"name": t.Name},
		})
	})
	if err != nil {
		return models.Technology{}, mapErr(err, audit.EntityTechnology, id)
	}
	return out, nil
}

func (s *Service) DeleteTechnology(ctx context.Context, sess auth.Session, id string) error {
	return s.deleteDoc(ctx, sess, models.CollTechnologies, audit.EntityTechnology, id)
}
