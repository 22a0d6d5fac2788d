// Package auth 驗證管理者的 bearer token，並把 Session 放進 request context。
package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNoToken      = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Session 是驗證過的身分；每個 request 各自帶一份，不存在全域
type Session struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email,omitempty"`
	Admin     bool      `json:"admin"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Dev       bool      `json:"dev,omitempty"` // NO_AUTH 模式產生的
}

// Key 回傳「身分鍵」：email(小寫) 優先，沒有就用 uid
func (s Session) Key() string {
	return pickKey(s.Email, s.UID)
}

func pickKey(email, uid string) string {
	e := strings.TrimSpace(strings.ToLower(email))
	u := strings.TrimSpace(uid)
	if e != "" {
		return e
	}
	return u
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// BearerToken 取出 "Bearer xxx" 的 token；不是 Bearer 就回傳空字串
func BearerToken(authorization string) string {
	if !strings.HasPrefix(authorization, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
}
