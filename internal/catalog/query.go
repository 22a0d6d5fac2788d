package catalog

import (
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"local.dev/portfolio-backend/internal/models"
)

// 每頁筆數：訪客 6、管理畫面 10
const (
	PublicPageSize = 6
	AdminPageSize  = 10
)

// 作品的排序
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortTitleAsc  = "title_asc"
	SortTitleDesc = "title_desc"
)

type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// Paginate 切出第 page 頁（從 1 開始）；size <= 0 代表不分頁
func Paginate[T any](items []T, page, size int) Page[T] {
	total := len(items)
	if size <= 0 {
		if items == nil {
			items = []T{}
		}
		return Page[T]{Items: items, Total: total, Page: 1, PageSize: total, TotalPages: 1}
	}
	if page < 1 {
		page = 1
	}
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return Page[T]{
		Items:      append([]T{}, items[start:end]...),
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
	}
}

// collate.Collator 不能同時使用
var (
	collatorMu sync.Mutex
	collator   = collate.New(language.Japanese)
)

// compareTitle 依日文的排序規則比較
func compareTitle(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

type ProductQuery struct {
	Category     string
	Status       string
	DeployStatus string
	Year         int
	Month        int
	Technologies []string // 任一符合即可
	Sort         string
	Page         int
}

func (q ProductQuery) match(p models.Product) bool {
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	if q.Status != "" && p.Status != q.Status {
		return false
	}
	if q.DeployStatus != "" && p.DeployStatus != q.DeployStatus {
		return false
	}
	if q.Year != 0 && p.CreatedYear != q.Year {
		return false
	}
	if q.Month != 0 && p.CreatedMonth != q.Month {
		return false
	}
	if len(q.Technologies) > 0 && !anyOf(p.Technologies, q.Technologies) {
		return false
	}
	return true
}

func anyOf(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// FilterProducts 篩選後排序（不分頁）
func FilterProducts(all []models.Product, q ProductQuery) []models.Product {
	out := make([]models.Product, 0, len(all))
	for _, p := range all {
		if q.match(p) {
			out = append(out, p)
		}
	}
	sortProducts(out, q.Sort)
	return out
}

func ym(p models.Product) int { return p.CreatedYear*100 + p.CreatedMonth }

func sortProducts(ps []models.Product, by string) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		switch by {
		case SortOldest:
			if ym(a) != ym(b) {
				return ym(a) < ym(b)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		case SortTitleAsc:
			return compareTitle(a.Title, b.Title) < 0
		case SortTitleDesc:
			return compareTitle(a.Title, b.Title) > 0
		default:
			if ym(a) != ym(b) {
				return ym(a) > ym(b)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
}

func validProductSort(s string) bool {
	switch s {
	case "", SortNewest, SortOldest, SortTitleAsc, SortTitleDesc:
		return true
	}
	return false
}
