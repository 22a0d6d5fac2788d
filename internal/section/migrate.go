package section

import (
	"context"
	"encoding/json"
	"fmt"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

// 舊版 profile 的欄位 -> 目前的欄位
var legacyProfileFields = map[string]string{
	"from":        "hometown",
	"affiliation": "university",
	"imageUrl":    "profileImage",
}

// IsLegacy 判斷 document 是否還是舊格式：
//   - categorized：{categories, items: [{category, name}]}
//   - history：有 items（histories 可能同時存在）
//   - profile：from / affiliation / imageUrl
func IsLegacy(t Type, raw map[string]any) bool {
	switch t {
	case TypeCategorized:
		if _, ok := raw["categories"]; ok {
			return true
		}
		items, _ := raw["items"].([]any)
		if len(items) == 0 {
			return false
		}
		first, _ := items[0].(map[string]any)
		_, hasCategory := first["category"]
		_, hasTitle := first["title"]
		return hasCategory && !hasTitle
	case TypeHistory:
		_, hasItems := raw["items"]
		return hasItems
	case TypeProfile:
		for k := range legacyProfileFields {
			if _, ok := raw[k]; ok {
				return true
			}
		}
	case TypeList:
	}
	return false
}

// convertLegacy 把舊格式轉成目前的格式，內容不丟棄
func convertLegacy(t Type, raw map[string]any) (Data, error) {
	switch t {
	case TypeCategorized:
		return convertCategorized(raw), nil
	case TypeHistory:
		return convertHistory(raw), nil
	case TypeProfile:
		return convertProfile(raw)
	}
	return nil, fmt.Errorf("section: no conversion for %s", t)
}

// 依 categories 的順序分組；categories 沒列到的分類接在後面。
// 已經是 {title, items} 的項目直接併入同名的分組。
func convertCategorized(raw map[string]any) CategorizedData {
	var order []string
	groups := map[string][]string{}
	addCategory := func(c string) {
		if _, ok := groups[c]; !ok {
			groups[c] = []string{}
			order = append(order, c)
		}
	}
	if cats, ok := raw["categories"].([]any); ok {
		for _, c := range cats {
			if s, ok := c.(string); ok {
				addCategory(s)
			}
		}
	}
	items, _ := raw["items"].([]any)
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if title, ok := m["title"].(string); ok {
			if _, legacy := m["category"]; !legacy {
				addCategory(title)
				groups[title] = append(groups[title], stringList(m["items"])...)
				continue
			}
		}
		cat, _ := m["category"].(string)
		name, _ := m["name"].(string)
		addCategory(cat)
		if name != "" {
			groups[cat] = append(groups[cat], name)
		}
	}
	out := CategorizedData{Items: make([]CategoryGroup, 0, len(order))}
	for _, c := range order {
		out.Items = append(out.Items, CategoryGroup{Title: c, Items: groups[c]})
	}
	return out
}

func stringList(v any) []string {
	out := []string{}
	switch d := v.(type) {
	case []any:
		for _, x := range d {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		out = append(out, d)
	}
	return out
}

// histories 在前，items 接在後面；兩者同時存在時都保留
func convertHistory(raw map[string]any) HistoryData {
	out := HistoryData{Histories: []HistoryEntry{}}
	for _, key := range []string{"histories", "items"} {
		entries, _ := raw[key].([]any)
		for _, it := range entries {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			date, _ := m["date"].(string)
			out.Histories = append(out.Histories, HistoryEntry{Date: date, Details: stringList(m["details"])})
		}
	}
	return out
}

func convertProfile(raw map[string]any) (Data, error) {
	cur := map[string]any{}
	for k, v := range raw {
		if _, legacy := legacyProfileFields[k]; !legacy {
			cur[k] = v
		}
	}
	for old, now := range legacyProfileFields {
		v, ok := raw[old]
		if !ok {
			continue
		}
		// 兩種欄位都有時以新的為準
		if existing, _ := cur[now].(string); existing == "" {
			cur[now] = v
		}
	}
	b, err := json.Marshal(cur)
	if err != nil {
		return nil, err
	}
	var p ProfileData
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

type MigrationReport struct {
	Scanned  int      `json:"scanned"`
	Migrated []string `json:"migrated"`
	Failed   []string `json:"failed"`
	DryRun   bool     `json:"dryRun"`
}

// Migrate 掃過所有區塊，把舊格式的 data 改寫成目前的格式（一次性的批次作業）
func (s *Service) Migrate(ctx context.Context, sess auth.Session, dryRun bool) (MigrationReport, error) {
	report := MigrationReport{Migrated: []string{}, Failed: []string{}, DryRun: dryRun}

	snaps, err := s.st.Query(ctx, store.Query{Collection: models.CollSectionMeta})
	if err != nil {
		return report, err
	}
	metas, err := store.DecodeAll[models.SectionMeta](snaps)
	if err != nil {
		return report, err
	}
	sortMetas(metas)

	for _, meta := range metas {
		report.Scanned++
		t, err := ParseType(meta.Type)
		if err != nil {
			report.Failed = append(report.Failed, meta.ID)
			continue
		}
		migrated := false
		err = s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
			migrated = false
			dsnap, err := tx.Get(models.CollSections, meta.ID)
			if err != nil {
				return err
			}
			raw, err := rawData(dsnap)
			if err != nil {
				return err
			}
			if !IsLegacy(t, raw) {
				return nil
			}
			d, err := Decode(t, raw)
			if err != nil {
				return err
			}
			if err := s.validator.ValidateData(ctx, d); err != nil {
				return err
			}
			migrated = true
			if dryRun {
				return nil
			}
			encoded, err := Encode(d)
			if err != nil {
				return err
			}
			if err := tx.Set(models.CollSections, meta.ID, encoded); err != nil {
				return err
			}
			return s.audit.Record(tx, sess, audit.Entry{
				Action:   audit.ActionMigrate,
				Entity:   audit.EntitySection,
				EntityID: meta.ID,
				Details:  map[string]any{"type": string(t)},
			})
		})
		switch {
		case err == nil:
			if migrated {
				report.Migrated = append(report.Migrated, meta.ID)
			}
		case isNotFound(err):
			// data 文件不存在，沒有東西要轉
		case models.IsKind(err, models.KindValidation):
			report.Failed = append(report.Failed, meta.ID)
		default:
			return report, fmt.Errorf("migrate %s: %w", meta.ID, err)
		}
	}
	return report, nil
}
