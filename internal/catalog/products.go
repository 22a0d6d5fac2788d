package catalog

import (
	"context"
	"sort"
	"strings"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

type ProductInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Image        string   `json:"image"`
	Link         string   `json:"link,omitempty"`
	GithubURL    string   `json:"githubUrl,omitempty"`
	Category     string   `json:"category,omitempty"`
	Technologies []string `json:"technologies"`
	Status       string   `json:"status,omitempty"`
	DeployStatus string   `json:"deployStatus,omitempty"`
	CreatedYear  int      `json:"createdYear,omitempty"`
	CreatedMonth int      `json:"createdMonth,omitempty"`
}

// normalize 補上預設值並檢查欄位
func (in *ProductInput) normalize(now func() (int, int)) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" {
		return models.NewValidationError("title", "必須です")
	}
	if in.Status == "" {
		in.Status = models.StatusPublic
	}
	if in.Status != models.StatusPublic && in.Status != models.StatusPrivate {
		return models.NewValidationError("status", "「公開」または「非公開」を指定してください")
	}
	if in.DeployStatus == "" {
		in.DeployStatus = models.DeployNotLive
	}
	if in.DeployStatus != models.DeployLive && in.DeployStatus != models.DeployNotLive {
		return models.NewValidationError("deployStatus", "「公開中」または「未公開」を指定してください")
	}
	y, m := now()
	if in.CreatedYear == 0 {
		in.CreatedYear = y
	}
	if in.CreatedMonth == 0 {
		in.CreatedMonth = m
	}
	if in.CreatedMonth < 1 || in.CreatedMonth > 12 {
		return models.NewValidationError("createdMonth", "1〜12 を指定してください")
	}
	techs := make([]string, 0, len(in.Technologies))
	for _, t := range in.Technologies {
		if t = strings.TrimSpace(t); t != "" {
			techs = append(techs, t)
		}
	}
	in.Technologies = techs
	return nil
}

func (s *Service) yearMonth() (int, int) {
	n := s.now()
	return n.Year(), int(n.Month())
}

func (in ProductInput) apply(p *models.Product) {
	p.Title = in.Title
	p.Description = in.Description
	p.Image = in.Image
	p.Link = in.Link
	p.GithubURL = in.GithubURL
	p.Category = in.Category
	p.Technologies = in.Technologies
	p.Status = in.Status
	p.DeployStatus = in.DeployStatus
	p.CreatedYear = in.CreatedYear
	p.CreatedMonth = in.CreatedMonth
}

func (s *Service) allProducts(ctx context.Context) ([]models.Product, error) {
	snaps, err := s.st.Query(ctx, store.Query{Collection: models.CollProducts})
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[models.Product](snaps)
}

// ListProducts：訪客看不到非公開的作品
func (s *Service) ListProducts(ctx context.Context, q ProductQuery, admin bool) (Page[models.Product], error) {
	if !validProductSort(q.Sort) {
		return Page[models.Product]{}, models.NewValidationError("sort", "不明な並び順です")
	}
	all, err := s.allProducts(ctx)
	if err != nil {
		return Page[models.Product]{}, err
	}
	if !admin {
		visible := all[:0]
		for _, p := range all {
			if p.Status != models.StatusPrivate {
				visible = append(visible, p)
			}
		}
		all = visible
	}
	size := PublicPageSize
	if admin {
		size = AdminPageSize
	}
	return Paginate(FilterProducts(all, q), q.Page, size), nil
}

func (s *Service) GetProduct(ctx context.Context, id string, admin bool) (models.Product, error) {
	snap, err := s.st.Get(ctx, models.CollProducts, id)
	if err != nil {
		return models.Product{}, mapErr(err, audit.EntityProduct, id)
	}
	p, err := store.Decode[models.Product](snap)
	if err != nil {
		return models.Product{}, err
	}
	if !admin && p.Status == models.StatusPrivate {
		return models.Product{}, models.NewNotFoundError(entityLabels[audit.EntityProduct], id)
	}
	return p, nil
}

func (s *Service) CreateProduct(ctx context.Context, sess auth.Session, in ProductInput) (models.Product, error) {
	if err := in.normalize(s.yearMonth); err != nil {
		return models.Product{}, err
	}
	now := s.now().UTC()
	p := models.Product{CreatedAt: now, UpdatedAt: now}
	in.apply(&p)

	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		id, err := tx.Create(models.CollProducts, "", p)
		if err != nil {
			return err
		}
		p.ID = id
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionCreate,
			Entity:   audit.EntityProduct,
			EntityID: id,
			Details:  map[string]any{"title": p.Title},
		})
	})
	if err != nil {
		return models.Product{}, mapErr(err, audit.EntityProduct, "")
	}
	return p, nil
}

// UpdateProduct 整筆覆蓋；createdAt 保留
func (s *Service) UpdateProduct(ctx context.Context, sess auth.Session, id string, in ProductInput) (models.Product, error) {
	if err := in.normalize(s.yearMonth); err != nil {
		return models.Product{}, err
	}
	var out models.Product
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Get(models.CollProducts, id)
		if err != nil {
			return err
		}
		p, err := store.Decode[models.Product](snap)
		if err != nil {
			return err
		}
		in.apply(&p)
		p.UpdatedAt = s.now().UTC()
		if err := tx.Set(models.CollProducts, id, p); err != nil {
			return err
		}
		out = p
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionUpdate,
			Entity:   audit.EntityProduct,
			EntityID: id,
			Details:  map[string]any{"title": p.Title, "status": p.Status},
		})
	})
	if err != nil {
		return models.Product{}, mapErr(err, audit.EntityProduct, id)
	}
	return out, nil
}

func (s *Service) DeleteProduct(ctx context.Context, sess auth.Session, id string) error {
	return s.deleteDoc(ctx, sess, models.CollProducts, audit.EntityProduct, id)
}

// ProductYears 回傳作品的年份（新到舊），給篩選下拉選單用
func (s *Service) ProductYears(ctx context.Context, admin bool) ([]int, error) {
	all, err := s.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[int]bool{}
	years := []int{}
	for _, p := range all {
		if !admin && p.Status == models.StatusPrivate {
			continue
		}
		if !seen[p.CreatedYear] {
			seen[p.CreatedYear] = true
			years = append(years, p.CreatedYear)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}
