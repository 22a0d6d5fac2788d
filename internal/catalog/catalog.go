// Package catalog 管理作品、技術、活動與活動分類。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

type Service struct {
	st    store.Store
	audit *audit.Logger
	now   func() time.Time
}

func NewService(st store.Store, al *audit.Logger) *Service {
	return &Service{st: st, audit: al, now: time.Now}
}

// entity 名稱（錯誤訊息用）
var entityLabels = map[string]string{
	audit.EntityProduct:          "作品",
	audit.EntityTechnology:       "技術",
	audit.EntityActivity:         "活動",
	audit.EntityActivityCategory: "活動カテゴリ",
}

func mapErr(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return models.NewNotFoundError(entityLabels[entity], id)
	case errors.Is(err, store.ErrAlreadyExists):
		return models.NewConflictError(fmt.Sprintf("%s %s は既に存在します。", entityLabels[entity], id))
	}
	return err
}

// orderField 只讀 order 欄位
type orderField struct {
	Order int `json:"order" firestore:"order"`
}

// maxOrderTx 回傳 coll 內最大的 order（沒有文件時是 0）
func maxOrderTx(tx store.Tx, coll string) (int, error) {
	snaps, err := tx.Query(store.Query{Collection: coll})
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, s := range snaps {
		var o orderField
		if err := s.DataTo(&o); err != nil {
			return 0, err
		}
		if o.Order > highest {
			highest = o.Order
		}
	}
	return highest, nil
}

// swapOrder 在同一個 transaction 內交換兩份文件的 order
func (s *Service) swapOrder(ctx context.Context, sess auth.Session, coll, entity, a, b string) error {
	if a == "" || b == "" || a == b {
		return models.NewValidationError("ids", "異なる2つの項目を指定してください")
	}
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		var orders [2]orderField
		for i, id := range []string{a, b} {
			snap, err := tx.Get(coll, id)
			if err != nil {
				return err
			}
			if err := snap.DataTo(&orders[i]); err != nil {
				return err
			}
		}
		na, nb := models.SwappedOrders(a, b, orders[0].Order, orders[1].Order)
		now := s.now().UTC()
		if err := tx.Update(coll, a, map[string]any{"order": na, "updatedAt": now}); err != nil {
			return err
		}
		if err := tx.Update(coll, b, map[string]any{"order": nb, "updatedAt": now}); err != nil {
			return err
		}
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionReorder,
			Entity:   entity,
			EntityID: a,
			Details:  map[string]any{"swappedWith": b, "order": na},
		})
	})
	return mapErr(err, entity, a+","+b)
}

// deleteDoc 刪除一份文件並記錄；不存在時回傳 NotFound
func (s *Service) deleteDoc(ctx context.Context, sess auth.Session, coll, entity, id string) error {
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Get(coll, id); err != nil {
			return err
		}
		if err := tx.Delete(coll, id); err != nil {
			return err
		}
		return s.audit.Record(tx, sess, audit.Entry{Action: audit.ActionDelete, Entity: entity, EntityID: id})
	})
	return mapErr(err, entity, id)
}
