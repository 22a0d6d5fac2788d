// Package audit 記錄管理者的每一個寫入操作。
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/logger"
	"local.dev/portfolio-backend/internal/metrics"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

// 操作種類
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionReorder = "reorder"
	ActionStatus  = "status_change"
	ActionReply   = "reply"
	ActionUpload  = "upload"
	ActionMigrate = "migrate"
)

// 對象種類
const (
	EntitySection          = "section"
	EntityProduct          = "product"
	EntityTechnology       = "technology"
	EntityActivity         = "activity"
	EntityActivityCategory = "activityCategory"
	EntityInquiry          = "inquiry"
	EntityImage            = "image"
)

const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
	pruneBatch   = 200
)

type Entry struct {
	Action   string
	Entity   string
	EntityID string
	Details  map[string]any
	Level    string
}

type Page struct {
	Logs       []models.AdminLog `json:"logs"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

type Logger struct {
	st        store.Store
	log       logger.Logger
	rec       metrics.Recorder
	retention time.Duration
	now       func() time.Time
}

func New(st store.Store, log logger.Logger, rec metrics.Recorder, retention time.Duration) *Logger {
	return &Logger{st: st, log: log, rec: rec, retention: retention, now: time.Now}
}

func (l *Logger) build(sess auth.Session, e Entry) models.AdminLog {
	level := e.Level
	if level == "" {
		level = LevelInfo
	}
	return models.AdminLog{
		Action:    e.Action,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		UserID:    sess.UID,
		UserEmail: sess.Email,
		Details:   e.Details,
		Level:     level,
		CreatedAt: l.now().UTC(),
	}
}

// Record 把紀錄寫進呼叫端的 transaction，跟它描述的寫入一起成功或失敗
func (l *Logger) Record(tx store.Tx, sess auth.Session, e Entry) error {
	if _, err := tx.Create(models.CollAdminLogs, "", l.build(sess, e)); err != nil {
		return fmt.Errorf("audit %s %s: %w", e.Action, e.Entity, err)
	}
	return nil
}

// Append 用在無法跟 store 同一個 transaction 的操作（例如上傳）。
// 失敗不影響原本的操作，只記 WARN 並計數。
func (l *Logger) Append(ctx context.Context, sess auth.Session, e Entry) {
	if _, err := l.Create(ctx, sess, e); err != nil {
		l.log.Warn("audit log write failed",
			logger.String("action", e.Action),
			logger.String("entity", e.Entity),
			logger.String("entityId", e.EntityID),
			logger.Error(err),
		)
		l.rec.RecordAuditFailure(e.Action)
	}
}

// Create 直接新增一筆紀錄並回傳（POST /admin-logs）
func (l *Logger) Create(ctx context.Context, sess auth.Session, e Entry) (models.AdminLog, error) {
	if e.Action == "" {
		return models.AdminLog{}, models.NewValidationError("action", "必須です")
	}
	entry := l.build(sess, e)
	id, err := l.st.Create(ctx, models.CollAdminLogs, "", entry)
	if err != nil {
		return models.AdminLog{}, err
	}
	entry.ID = id
	return entry, nil
}

// List 依 createdAt 由新到舊分頁。回傳前先刪掉超過保存期限的紀錄（失敗只記 log）。
func (l *Logger) List(ctx context.Context, cursor string, limit int) (Page, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if n, err := l.Prune(ctx); err != nil {
		l.log.Warn("audit prune failed", logger.Error(err))
	} else if n > 0 {
		l.log.Info("audit pruned", logger.Int("deleted", n))
	}

	q := store.Query{Collection: models.CollAdminLogs, StartAfter: cursor, Limit: limit + 1}.
		OrderBy("createdAt", true)
	snaps, err := l.st.Query(ctx, q)
	if errors.Is(err, store.ErrNotFound) {
		return Page{}, models.NewValidationError("cursor", "存在しないカーソルです")
	}
	if err != nil {
		return Page{}, err
	}
	logs, err := store.DecodeAll[models.AdminLog](snaps)
	if err != nil {
		return Page{}, err
	}

	page := Page{Logs: logs}
	if len(logs) > limit {
		page.Logs = logs[:limit]
		page.NextCursor = logs[limit-1].ID
	}
	return page, nil
}

// Prune 刪除超過保存期限的紀錄，一次最多 pruneBatch 筆
func (l *Logger) Prune(ctx context.Context) (int, error) {
	cutoff := l.now().Add(-l.retention).UTC()
	q := store.Query{Collection: models.CollAdminLogs, Limit: pruneBatch}.
		Where("createdAt", store.OpLt, cutoff)
	snaps, err := l.st.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, s := range snaps {
		if err := l.st.Delete(ctx, models.CollAdminLogs, s.ID()); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
