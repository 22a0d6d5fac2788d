package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier 把 Authorization header 轉成 Session
type Verifier interface {
	Verify(ctx context.Context, authorization string) (Session, error)
}

// IDTokenVerifier 是 *fbauth.Client 的子集，測試時可換掉
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// Admins 是允許管理的身分清單（email 不分大小寫）
type Admins struct {
	emails map[string]bool
	uids   map[string]bool
}

func NewAdmins(emails, uids []string) Admins {
	a := Admins{emails: map[string]bool{}, uids: map[string]bool{}}
	for _, e := range emails {
		if e = strings.TrimSpace(strings.ToLower(e)); e != "" {
			a.emails[e] = true
		}
	}
	for _, u := range uids {
		if u = strings.TrimSpace(u); u != "" {
			a.uids[u] = true
		}
	}
	return a
}

func (a Admins) Contains(email, uid string) bool {
	return a.emails[strings.ToLower(strings.TrimSpace(email))] || a.uids[strings.TrimSpace(uid)]
}

// FirebaseVerifier 用 Firebase Auth 驗簽
type FirebaseVerifier struct {
	client IDTokenVerifier
	admins Admins
}

func NewFirebaseVerifier(client IDTokenVerifier, admins Admins) *FirebaseVerifier {
	return &FirebaseVerifier{client: client, admins: admins}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, authorization string) (Session, error) {
	idToken := BearerToken(authorization)
	if idToken == "" {
		return Session{}, ErrNoToken
	}
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	// 從 claims 撈 email；沒有就只有 UID
	email, _ := tok.Claims["email"].(string)
	return Session{
		UID:       tok.UID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Admin:     v.admins.Contains(email, tok.UID),
		IssuedAt:  time.Unix(tok.IssuedAt, 0).UTC(),
		ExpiresAt: time.Unix(tok.Expires, 0).UTC(),
	}, nil
}

// DevVerifier 給 NO_AUTH 模式用：不驗簽，所有身分都視為管理者。
//
//	Authorization: Debug owner@example.com   直接把字串當身分
//	Authorization: Bearer <jwt>               只解 payload 取 email / uid
type DevVerifier struct {
	now func() time.Time
}

func NewDevVerifier() *DevVerifier {
	return &DevVerifier{now: time.Now}
}

func (v *DevVerifier) Verify(_ context.Context, authorization string) (Session, error) {
	now := v.now().UTC()
	sess := Session{Admin: true, Dev: true, IssuedAt: now, ExpiresAt: now.Add(time.Hour)}

	switch {
	case strings.HasPrefix(authorization, "Debug "):
		key := strings.TrimSpace(strings.TrimPrefix(authorization, "Debug "))
		if key == "" {
			return Session{}, ErrNoToken
		}
		if strings.Contains(key, "@") {
			sess.Email = strings.ToLower(key)
		}
		sess.UID = key
		return sess, nil

	case strings.HasPrefix(authorization, "Bearer "):
		email, uid, err := devClaims(BearerToken(authorization))
		if err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if email == "" && uid == "" {
			return Session{}, ErrInvalidToken
		}
		sess.Email = strings.ToLower(email)
		sess.UID = uid
		if sess.UID == "" {
			sess.UID = sess.Email
		}
		return sess, nil
	}
	return Session{}, ErrNoToken
}

// NewDevSession 用 DEV_UID cookie 的值建立 session
func (v *DevVerifier) NewDevSession(uid string) Session {
	now := v.now().UTC()
	return Session{UID: uid, Admin: true, Dev: true, IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
}

// devClaims 只解 JWT payload（*不驗簽*）
func devClaims(raw string) (email, uid string, err error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", "", err
	}
	get := func(k string) string {
		if v, ok := claims[k]; ok && v != nil {
			return strings.TrimSpace(fmt.Sprintf("%v", v))
		}
		return ""
	}
	email = get("email")
	uid = get("user_id")
	if uid == "" {
		uid = get("uid")
	}
	if uid == "" {
		uid = get("sub")
	}
	return email, uid, nil
}
