package section

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type Service struct {
	st        store.Store
	audit     *audit.Logger
	validator *Validator
	renderer  *Renderer
}

func NewService(st store.Store, al *audit.Logger) (*Service, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &Service{st: st, audit: al, validator: v, renderer: r}, nil
}

type CreateInput struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
	Order       *int   `json:"order,omitempty"`
	SortOrder   string `json:"sortOrder,omitempty"`
	Editable    *bool  `json:"editable,omitempty"`
}

type MetaPatch struct {
	DisplayName *string `json:"displayName,omitempty"`
	Order       *int    `json:"order,omitempty"`
	Editable    *bool   `json:"editable,omitempty"`
	SortOrder   *string `json:"sortOrder,omitempty"`
}

// sortMetas：order 升冪，相同時用 id，讓顯示順序是全序
func sortMetas(metas []models.SectionMeta) {
	sort.SliceStable(metas, func(i, j int) bool {
		if metas[i].Order != metas[j].Order {
			return metas[i].Order < metas[j].Order
		}
		return metas[i].ID < metas[j].ID
	})
}

// assemble 把 meta 與 data 合併（讀取用）；data 缺少或無法解讀時用空的 skeleton
func assemble(meta models.SectionMeta, raw map[string]any) (Section, bool) {
	t, err := ParseType(meta.Type)
	if err != nil {
		return Section{}, false
	}
	d, err := Decode(t, raw)
	if err != nil {
		d = Skeleton(t)
	}
	return Section{ID: meta.ID, Meta: meta, Data: d}, true
}

func rawData(snap store.Snapshot) (map[string]any, error) {
	raw := map[string]any{}
	if err := snap.DataTo(&raw); err != nil {
		return nil, fmt.Errorf("decode section %s: %w", snap.ID(), err)
	}
	return raw, nil
}

// List 同時讀 sectionMeta 與 sections，依 order 排好回傳
func (s *Service) List(ctx context.Context) ([]Section, error) {
	var (
		metas []models.SectionMeta
		datas = map[string]map[string]any{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snaps, err := s.st.Query(gctx, store.Query{Collection: models.CollSectionMeta})
		if err != nil {
			return err
		}
		metas, err = store.DecodeAll[models.SectionMeta](snaps)
		return err
	})
	g.Go(func() error {
		snaps, err := s.st.Query(gctx, store.Query{Collection: models.CollSections})
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			raw, err := rawData(snap)
			if err != nil {
				return err
			}
			datas[snap.ID()] = raw
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortMetas(metas)
	out := make([]Section, 0, len(metas))
	for _, m := range metas {
		if sec, ok := assemble(m, datas[m.ID]); ok {
			out = append(out, sec)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (Section, error) {
	snap, err := s.st.Get(ctx, models.CollSectionMeta, id)
	if errors.Is(err, store.ErrNotFound) {
		return Section{}, models.NewNotFoundError("セクション", id)
	}
	if err != nil {
		return Section{}, err
	}
	meta, err := store.Decode[models.SectionMeta](snap)
	if err != nil {
		return Section{}, err
	}
	var raw map[string]any
	if dsnap, err := s.st.Get(ctx, models.CollSections, id); err == nil {
		if raw, err = rawData(dsnap); err != nil {
			return Section{}, err
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return Section{}, err
	}
	sec, ok := assemble(meta, raw)
	if !ok {
		return Section{}, models.NewValidationError("type", fmt.Sprintf("不明な種類です: %q", meta.Type))
	}
	return sec, nil
}

// RenderHTML 回傳區塊的 HTML 片段
func (s *Service) RenderHTML(ctx context.Context, id string) (string, error) {
	sec, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.renderer.RenderString(sec)
}

func validSortOrder(v string) bool {
	return v == "" || v == SortAsc || v == SortDesc
}

func (s *Service) Create(ctx context.Context, sess auth.Session, in CreateInput) (Section, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if !validID.MatchString(in.ID) {
		return Section{}, models.NewValidationError("id", "英数字・ハイフン・アンダースコアのみ使用できます")
	}
	if in.DisplayName == "" {
		return Section{}, models.NewValidationError("displayName", "必須です")
	}
	t, err := ParseType(in.Type)
	if err != nil {
		return Section{}, err
	}
	if !validSortOrder(in.SortOrder) {
		return Section{}, models.NewValidationError("sortOrder", "asc または desc を指定してください")
	}

	meta := models.SectionMeta{
		ID:          in.ID,
		DisplayName: in.DisplayName,
		Type:        string(t),
		Editable:    true,
		SortOrder:   in.SortOrder,
	}
	if in.Editable != nil {
		meta.Editable = *in.Editable
	}
	data := Skeleton(t)
	encoded, err := Encode(data)
	if err != nil {
		return Section{}, err
	}

	err = s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Get(models.CollSectionMeta, in.ID); err == nil {
			return models.NewConflictError(fmt.Sprintf("セクション %s は既に存在します。", in.ID))
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if in.Order != nil {
			meta.Order = *in.Order
		} else {
			snaps, err := tx.Query(store.Query{Collection: models.CollSectionMeta})
			if err != nil {
				return err
			}
			metas, err := store.DecodeAll[models.SectionMeta](snaps)
			if err != nil {
				return err
			}
			meta.Order = nextOrder(metas)
		}

		if _, err := tx.Create(models.CollSectionMeta, in.ID, meta); err != nil {
			return err
		}
		if err := tx.Set(models.CollSections, in.ID, encoded); err != nil {
			return err
		}
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionCreate,
			Entity:   audit.EntitySection,
			EntityID: in.ID,
			Details:  map[string]any{"type": string(t), "order": meta.Order},
		})
	})
	if err != nil {
		return Section{}, mapStoreErr(err, in.ID)
	}
	return Section{ID: in.ID, Meta: meta, Data: data}, nil
}

// nextOrder = 目前最大的 order + 1（沒有任何區塊時是 1）
func nextOrder(metas []models.SectionMeta) int {
	highest := 0
	for _, m := range metas {
		if m.Order > highest {
			highest = m.Order
		}
	}
	return highest + 1
}

// loadTx 在 transaction 內讀 meta 與 data（寫入用）。
// data 無法解讀時不以 skeleton 代替，避免之後整個覆蓋掉原本的內容。
func loadTx(tx store.Tx, id string) (Section, error) {
	meta, t, err := loadMetaTx(tx, id)
	if err != nil {
		return Section{}, err
	}
	var raw map[string]any
	if dsnap, err := tx.Get(models.CollSections, id); err == nil {
		if raw, err = rawData(dsnap); err != nil {
			return Section{}, err
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return Section{}, err
	}
	d, err := Decode(t, raw)
	if err != nil {
		conflict := models.NewConflictError(fmt.Sprintf("セクション %s のデータを読み取れないため更新できません。", id))
		conflict.Err = err
		return Section{}, conflict
	}
	return Section{ID: meta.ID, Meta: meta, Data: d}, nil
}

func loadMetaTx(tx store.Tx, id string) (models.SectionMeta, Type, error) {
	snap, err := tx.Get(models.CollSectionMeta, id)
	if err != nil {
		return models.SectionMeta{}, "", err
	}
	meta, err := store.Decode[models.SectionMeta](snap)
	if err != nil {
		return models.SectionMeta{}, "", err
	}
	t, err := ParseType(meta.Type)
	if err != nil {
		return models.SectionMeta{}, "", err
	}
	return meta, t, nil
}

// save 寫入整個 data（覆蓋）。年表會先依 meta.sortOrder 排序。
func (s *Service) save(tx store.Tx, sess auth.Session, sec *Section, action string, details map[string]any) error {
	if h, ok := sec.Data.(HistoryData); ok {
		SortHistories(h.Histories, sec.Meta.SortOrder)
		sec.Data = h
	}
	encoded, err := Encode(sec.Data)
	if err != nil {
		return err
	}
	if err := tx.Set(models.CollSections, sec.ID, encoded); err != nil {
		return err
	}
	if details == nil {
		details = map[string]any{}
	}
	details["type"] = string(sec.Data.Type())
	return s.audit.Record(tx, sess, audit.Entry{
		Action:   action,
		Entity:   audit.EntitySection,
		EntityID: sec.ID,
		Details:  details,
	})
}

func requireEditable(meta models.SectionMeta) error {
	if !meta.Editable {
		return models.NewValidationError("editable", "このセクションは編集できません")
	}
	return nil
}

// Update 用 body 整個覆蓋 data；不需要讀舊的 data
func (s *Service) Update(ctx context.Context, sess auth.Session, id string, body []byte) (Section, error) {
	var out Section
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		meta, t, err := loadMetaTx(tx, id)
		if err != nil {
			return err
		}
		if err := requireEditable(meta); err != nil {
			return err
		}
		if err := s.validator.Validate(ctx, t, body); err != nil {
			return err
		}
		d, err := DecodeJSON(t, body)
		if err != nil {
			return models.NewValidationError("data", err.Error())
		}
		sec := Section{ID: meta.ID, Meta: meta, Data: d}
		if err := s.save(tx, sess, &sec, audit.ActionUpdate, nil); err != nil {
			return err
		}
		out = sec
		return nil
	})
	if err != nil {
		return Section{}, mapStoreErr(err, id)
	}
	return out, nil
}

// Edit 在目前的 data 上套用編輯操作，再整個寫回
func (s *Service) Edit(ctx context.Context, sess auth.Session, id string, ops []EditOp) (Section, error) {
	if len(ops) == 0 {
		return Section{}, models.NewValidationError("ops", "操作がありません")
	}
	var out Section
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		sec, err := loadTx(tx, id)
		if err != nil {
			return err
		}
		if err := requireEditable(sec.Meta); err != nil {
			return err
		}
		d, err := Apply(sec.Data, ops)
		if err != nil {
			return err
		}
		if err := s.validator.ValidateData(ctx, d); err != nil {
			return err
		}
		sec.Data = d
		if err := s.save(tx, sess, &sec, audit.ActionUpdate, map[string]any{"ops": len(ops)}); err != nil {
			return err
		}
		out = sec
		return nil
	})
	if err != nil {
		return Section{}, mapStoreErr(err, id)
	}
	return out, nil
}

// Sort 立即排序年表；order 為空時用 meta.sortOrder
func (s *Service) Sort(ctx context.Context, sess auth.Session, id, order string) (Section, error) {
	if !validSortOrder(order) {
		return Section{}, models.NewValidationError("order", "asc または desc を指定してください")
	}
	var out Section
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		sec, err := loadTx(tx, id)
		if err != nil {
			return err
		}
		if err := requireEditable(sec.Meta); err != nil {
			return err
		}
		if _, ok := sec.Data.(HistoryData); !ok {
			return models.NewValidationError("type", "並び替えできるのは history のみです")
		}
		configured := sec.Meta.SortOrder
		if order != "" {
			sec.Meta.SortOrder = order
		}
		if err := s.save(tx, sess, &sec, audit.ActionReorder, map[string]any{"sortOrder": sec.Meta.SortOrder}); err != nil {
			return err
		}
		// 明確指定的方向只用在這次排序，不寫回 meta
		sec.Meta.SortOrder = configured
		out = sec
		return nil
	})
	if err != nil {
		return Section{}, mapStoreErr(err, id)
	}
	return out, nil
}

// PatchMeta 只更新有帶的欄位
func (s *Service) PatchMeta(ctx context.Context, sess auth.Session, id string, p MetaPatch) (models.SectionMeta, error) {
	fields := map[string]any{}
	if p.DisplayName != nil {
		name := strings.TrimSpace(*p.DisplayName)
		if name == "" {
			return models.SectionMeta{}, models.NewValidationError("displayName", "必須です")
		}
		fields["displayName"] = name
	}
	if p.Order != nil {
		fields["order"] = *p.Order
	}
	if p.Editable != nil {
		fields["editable"] = *p.Editable
	}
	if p.SortOrder != nil {
		if !validSortOrder(*p.SortOrder) {
			return models.SectionMeta{}, models.NewValidationError("sortOrder", "asc または desc を指定してください")
		}
		fields["sortOrder"] = *p.SortOrder
	}
	if len(fields) == 0 {
		return models.SectionMeta{}, models.NewValidationError("meta", "更新する項目がありません")
	}

	var out models.SectionMeta
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Get(models.CollSectionMeta, id)
		if err != nil {
			return err
		}
		meta, err := store.Decode[models.SectionMeta](snap)
		if err != nil {
			return err
		}
		if v, ok := fields["displayName"].(string); ok {
			meta.DisplayName = v
		}
		if p.Order != nil {
			meta.Order = *p.Order
		}
		if p.Editable != nil {
			meta.Editable = *p.Editable
		}
		if p.SortOrder != nil {
			meta.SortOrder = *p.SortOrder
		}
		if err := tx.Update(models.CollSectionMeta, id, fields); err != nil {
			return err
		}
		out = meta
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionUpdate,
			Entity:   audit.EntitySection,
			EntityID: id,
			Details:  map[string]any{"meta": fields},
		})
	})
	if err != nil {
		return models.SectionMeta{}, mapStoreErr(err, id)
	}
	return out, nil
}

// Delete 刪除 sections 與 sectionMeta 兩份文件
func (s *Service) Delete(ctx context.Context, sess auth.Session, id string) error {
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		_, metaErr := tx.Get(models.CollSectionMeta, id)
		if metaErr != nil && !errors.Is(metaErr, store.ErrNotFound) {
			return metaErr
		}
		_, dataErr := tx.Get(models.CollSections, id)
		if dataErr != nil && !errors.Is(dataErr, store.ErrNotFound) {
			return dataErr
		}
		if metaErr != nil && dataErr != nil {
			return store.ErrNotFound
		}
		if err := tx.Delete(models.CollSectionMeta, id); err != nil {
			return err
		}
		if err := tx.Delete(models.CollSections, id); err != nil {
			return err
		}
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionDelete,
			Entity:   audit.EntitySection,
			EntityID: id,
		})
	})
	return mapStoreErr(err, id)
}

// Reorder 在同一個 transaction 內交換兩個區塊的 order
func (s *Service) Reorder(ctx context.Context, sess auth.Session, a, b string) ([]models.SectionMeta, error) {
	if a == "" || b == "" || a == b {
		return nil, models.NewValidationError("ids", "異なる2つのセクションを指定してください")
	}
	var out []models.SectionMeta
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		metas := make([]models.SectionMeta, 0, 2)
		for _, id := range []string{a, b} {
			snap, err := tx.Get(models.CollSectionMeta, id)
			if err != nil {
				return err
			}
			m, err := store.Decode[models.SectionMeta](snap)
			if err != nil {
				return err
			}
			metas = append(metas, m)
		}
		ma, mb := metas[0], metas[1]
		ma.Order, mb.Order = models.SwappedOrders(ma.ID, mb.ID, ma.Order, mb.Order)
		if err := tx.Update(models.CollSectionMeta, ma.ID, map[string]any{"order": ma.Order}); err != nil {
			return err
		}
		if err := tx.Update(models.CollSectionMeta, mb.ID, map[string]any{"order": mb.Order}); err != nil {
			return err
		}
		out = []models.SectionMeta{ma, mb}
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionReorder,
			Entity:   audit.EntitySection,
			EntityID: ma.ID,
			Details:  map[string]any{"swappedWith": mb.ID, "order": ma.Order},
		})
	})
	if err != nil {
		return nil, mapStoreErr(err, a+","+b)
	}
	return out, nil
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }

// mapStoreErr 把 store 的 sentinel 轉成 APIError；已經是 APIError 就原樣回傳
func mapStoreErr(err error, id string) error {
	if err == nil {
		return nil
	}
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return models.NewNotFoundError("セクション", id)
	case errors.Is(err, store.ErrAlreadyExists):
		return models.NewConflictError(fmt.Sprintf("セクション %s は既に存在します。", id))
	}
	return err
}
