// Package inquiry 處理訪客的問い合わせ與管理者的回覆。
package inquiry

import (
	"context"
	"errors"
	"html"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/metrics"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/store"
)

// DefaultCategory 是沒有指定分類時的值
const DefaultCategory = "その他"

const (
	SortNewest = "newest"
	SortOldest = "oldest"
)

const maxMessageLen = 5000

type SubmitInput struct {
	Category     string `json:"category"`
	Subject      string `json:"subject"`
	Message      string `json:"message"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
}

// ListQuery 的 Statuses 為空時不篩選
type ListQuery struct {
	Statuses []string
	Category string
	Q        string
	Sort     string
}

type Service struct {
	st        store.Store
	audit     *audit.Logger
	limiter   *Limiter
	rec       metrics.Recorder
	policy    *bluemonday.Policy
	ownerName string
	now       func() time.Time
}

func NewService(st store.Store, al *audit.Logger, limiter *Limiter, rec metrics.Recorder, ownerName string) *Service {
	return &Service{
		st:        st,
		audit:     al,
		limiter:   limiter,
		rec:       rec,
		policy:    bluemonday.StrictPolicy(),
		ownerName: ownerName,
		now:       time.Now,
	}
}

// clean 去掉所有 HTML 後還原成純文字
func (s *Service) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *Service) normalize(in SubmitInput) (SubmitInput, error) {
	in.Category = s.clean(in.Category)
	in.Subject = s.clean(in.Subject)
	in.Message = s.clean(in.Message)
	in.ContactName = s.clean(in.ContactName)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)

	if in.Subject == "" {
		return in, models.NewValidationError("subject", "必須です")
	}
	if in.Message == "" {
		return in, models.NewValidationError("message", "必須です")
	}
	if len([]rune(in.Message)) > maxMessageLen {
		return in, models.NewValidationError("message", "長すぎます")
	}
	if in.ContactEmail == "" {
		return in, models.NewValidationError("contactEmail", "必須です")
	}
	addr, err := mail.ParseAddress(in.ContactEmail)
	if err != nil {
		return in, models.NewValidationError("contactEmail", "メールアドレスの形式が正しくありません")
	}
	in.ContactEmail = addr.Address
	if in.Category == "" {
		in.Category = DefaultCategory
	}
	return in, nil
}

// Submit 是公開的送信。client 是限流用的 key（通常是 IP）。
func (s *Service) Submit(ctx context.Context, client string, in SubmitInput) (models.Inquiry, error) {
	in, err := s.normalize(in)
	if err != nil {
		return models.Inquiry{}, err
	}
	if s.limiter != nil && !s.limiter.Allow(client) {
		s.rec.RecordRateLimited("inquiry_submit")
		return models.Inquiry{}, models.NewRateLimitedError()
	}

	now := s.now().UTC()
	q := models.Inquiry{
		Category:     in.Category,
		Subject:      in.Subject,
		Message:      in.Message,
		ContactName:  in.ContactName,
		ContactEmail: in.ContactEmail,
		Status:       models.InquiryPending,
		Replies:      []models.Reply{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := s.st.Create(ctx, models.CollInquiries, "", q)
	if err != nil {
		return models.Inquiry{}, err
	}
	q.ID = id
	s.rec.RecordInquirySubmitted(q.Category)
	return q, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Inquiry, error) {
	snap, err := s.st.Get(ctx, models.CollInquiries, id)
	if err != nil {
		return models.Inquiry{}, mapErr(err, id)
	}
	q, err := store.Decode[models.Inquiry](snap)
	if err != nil {
		return models.Inquiry{}, err
	}
	if q.Replies == nil {
		q.Replies = []models.Reply{}
	}
	return q, nil
}

// List 先依 createdAt 新到舊取出，再套用篩選
func (s *Service) List(ctx context.Context, lq ListQuery) ([]models.Inquiry, error) {
	for _, st := range lq.Statuses {
		if !validStatus(st) {
			return nil, models.NewValidationError("status", "不明なステータスです: "+st)
		}
	}
	if lq.Sort != "" && lq.Sort != SortNewest && lq.Sort != SortOldest {
		return nil, models.NewValidationError("sort", "不明な並び順です")
	}

	snaps, err := s.st.Query(ctx, store.Query{Collection: models.CollInquiries}.OrderBy("createdAt", true))
	if err != nil {
		return nil, err
	}
	all, err := store.DecodeAll[models.Inquiry](snaps)
	if err != nil {
		return nil, err
	}
	out := make([]models.Inquiry, 0, len(all))
	for _, q := range all {
		if lq.match(q) {
			if q.Replies == nil {
				q.Replies = []models.Reply{}
			}
			out = append(out, q)
		}
	}
	if lq.Sort == SortOldest {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	}
	return out, nil
}

func (lq ListQuery) match(q models.Inquiry) bool {
	if len(lq.Statuses) > 0 {
		hit := false
		for _, st := range lq.Statuses {
			if q.Status == st {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if lq.Category != "" && q.Category != lq.Category {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(lq.Q)); term != "" {
		hay := strings.ToLower(q.ContactName + "\n" + q.ContactEmail + "\n" + q.Subject)
		if !strings.Contains(hay, term) {
			return false
		}
	}
	return true
}

func validStatus(st string) bool {
	switch st {
	case models.InquiryPending, models.InquiryInProgress, models.InquiryResolved:
		return true
	}
	return false
}

// SetStatus 每次呼叫都記一筆 audit（即使狀態沒變）
func (s *Service) SetStatus(ctx context.Context, sess auth.Session, id, status string) (models.Inquiry, error) {
	if !validStatus(status) {
		return models.Inquiry{}, models.NewValidationError("status", "pending / in_progress / resolved のいずれかを指定してください")
	}
	var out models.Inquiry
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Get(models.CollInquiries, id)
		if err != nil {
			return err
		}
		q, err := store.Decode[models.Inquiry](snap)
		if err != nil {
			return err
		}
		from := q.Status
		q.Status = status
		q.UpdatedAt = s.now().UTC()
		if err := tx.Update(models.CollInquiries, id, map[string]any{"status": status, "updatedAt": q.UpdatedAt}); err != nil {
			return err
		}
		out = q
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionStatus,
			Entity:   audit.EntityInquiry,
			EntityID: id,
			Details:  map[string]any{"from": from, "to": status},
		})
	})
	if err != nil {
		return models.Inquiry{}, mapErr(err, id)
	}
	if out.Replies == nil {
		out.Replies = []models.Reply{}
	}
	return out, nil
}

// Reply 在 transaction 內讀出 replies 再整串寫回，並發回覆不會互相覆蓋。
// 第一次回覆時 pending 會自動變成 in_progress。
func (s *Service) Reply(ctx context.Context, sess auth.Session, id, message string) (models.Inquiry, error) {
	message = s.clean(message)
	if message == "" {
		return models.Inquiry{}, models.NewValidationError("message", "必須です")
	}
	if len([]rune(message)) > maxMessageLen {
		return models.Inquiry{}, models.NewValidationError("message", "長すぎます")
	}

	var out models.Inquiry
	err := s.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		snap, err := tx.Get(models.CollInquiries, id)
		if err != nil {
			return err
		}
		q, err := store.Decode[models.Inquiry](snap)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		r := models.Reply{
			ID:         uuid.NewString(),
			Message:    message,
			SenderType: models.SenderAdmin,
			SenderName: s.ownerName,
			CreatedAt:  now,
		}
		q.Replies = append(q.Replies, r)
		if q.Status == models.InquiryPending {
			q.Status = models.InquiryInProgress
		}
		q.UpdatedAt = now
		if err := tx.Update(models.CollInquiries, id, map[string]any{
			"replies":   q.Replies,
			"status":    q.Status,
			"updatedAt": now,
		}); err != nil {
			return err
		}
		out = q
		return s.audit.Record(tx, sess, audit.Entry{
			Action:   audit.ActionReply,
			Entity:   audit.EntityInquiry,
			EntityID: id,
			Details:  map[string]any{"replyId": r.ID, "status": q.Status},
		})
	})
	if err != nil {
		return models.Inquiry{}, mapErr(err, id)
	}
	return out, nil
}

func mapErr(err error, id string) error {
	if err == nil {
		return nil
	}
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, store.ErrNotFound) {
		return models.NewNotFoundError("お問い合わせ", id)
	}
	return err
}
