package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// TokenPair 是 refresh 後拿到的新 token
type TokenPair struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"` // 秒
	UserID       string `json:"userId"`
}

// Refresher 用 refresh token 向 Secure Token API 換新的 ID token
type Refresher struct {
	endpoint string
	apiKey   string
	client   *resty.Client
}

// client 為 nil 時用預設的 10 秒 timeout；不重試
func NewRefresher(endpoint, apiKey string, client *http.Client) *Refresher {
	var rc *resty.Client
	if client != nil {
		rc = resty.NewWithClient(client)
	} else {
		rc = resty.New().SetTimeout(10 * time.Second)
	}
	rc.SetHeader("Accept", "application/json")
	return &Refresher{endpoint: endpoint, apiKey: apiKey, client: rc}
}

// Secure Token API 的回應欄位是 snake_case，expires_in 是字串
type secureTokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, ErrNoToken
	}
	if r.apiKey == "" {
		return TokenPair{}, fmt.Errorf("auth: refresh not configured (FIREBASE_API_KEY)")
	}

	var out secureTokenResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("key", r.apiKey).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		}).
		SetResult(&out).
		SetError(&out).
		Post(r.endpoint)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: refresh request: %w", err)
	}
	if resp.IsError() || out.Error != nil {
		msg := resp.Status()
		if out.Error != nil {
			msg = out.Error.Message
		}
		// 4xx = refresh token 過期或被撤銷
		if code := resp.StatusCode(); code >= 400 && code < 500 {
			return TokenPair{}, fmt.Errorf("%w: %s", ErrInvalidToken, msg)
		}
		return TokenPair{}, fmt.Errorf("auth: refresh failed: %s", msg)
	}
	if out.IDToken == "" {
		return TokenPair{}, fmt.Errorf("auth: refresh response has no id_token")
	}

	expires, _ := strconv.Atoi(out.ExpiresIn)
	return TokenPair{
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresIn:    expires,
		UserID:       out.UserID,
	}, nil
}
