// Package media 處理管理畫面的圖片上傳。
package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/models"
)

// MaxBytes 是單張圖片的上限
const MaxBytes = 20 << 20

// DefaultDir 是沒指定 path 時的存放位置
const DefaultDir = "images"

var ErrExists = errors.New("media: object already exists")

// Uploader 把檔案寫到目的地；同名檔案已存在時回傳 ErrExists，不覆蓋。
type Uploader interface {
	Put(ctx context.Context, objectPath, contentType string, data []byte) (url string, err error)
}

type Result struct {
	Path     string `json:"path"`
	FileName string `json:"fileName"`
	SHA      string `json:"sha"`
	URL      string `json:"url"`
}

type Service struct {
	up    Uploader
	audit *audit.Logger
}

func NewService(up Uploader, al *audit.Logger) *Service {
	return &Service{up: up, audit: al}
}

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

// Upload 檢查內容是圖片後寫到 dir/<檔名>。
// 上傳沒辦法跟 store 同一個 transaction，audit 之後再補寫。
func (s *Service) Upload(ctx context.Context, sess auth.Session, dir, fileName string, r io.Reader) (Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return Result{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Result{}, models.NewValidationError("file", "空のファイルです")
	}
	if len(data) > MaxBytes {
		return Result{}, models.NewValidationError("file", "ファイルサイズが大きすぎます（上限 20MB）")
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mtype := http.DetectContentType(head)
	ext, ok := extByType[mtype]
	if !ok {
		// 判斷不出來時才看副檔名
		if e := strings.ToLower(filepath.Ext(fileName)); allowedExt[e] {
			ext = e
		} else {
			return Result{}, models.NewValidationError("file", "対応していない画像形式です: "+mtype)
		}
	}

	dir, err = cleanDir(dir)
	if err != nil {
		return Result{}, err
	}
	name := sanitizeBase(fileName) + ext
	objectPath := path.Join(dir, name)

	url, err := s.up.Put(ctx, objectPath, mtype, data)
	if errors.Is(err, ErrExists) {
		return Result{}, models.NewConflictError(fmt.Sprintf("同名のファイル %s が既に存在します。", objectPath))
	}
	if err != nil {
		return Result{}, err
	}

	res := Result{Path: objectPath, FileName: name, SHA: BlobSHA(data), URL: url}
	s.audit.Append(ctx, sess, audit.Entry{
		Action:   audit.ActionUpload,
		Entity:   audit.EntityImage,
		EntityID: objectPath,
		Details:  map[string]any{"size": len(data), "contentType": mtype, "sha": res.SHA},
	})
	return res, nil
}

// cleanDir 只允許相對路徑，不能跳出根目錄
func cleanDir(dir string) (string, error) {
	dir = strings.Trim(strings.TrimSpace(strings.ReplaceAll(dir, "\\", "/")), "/")
	if dir == "" {
		return DefaultDir, nil
	}
	cleaned := path.Clean(dir)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", models.NewValidationError("path", "不正なパスです")
	}
	for _, seg := range strings.Split(cleaned, "/") {
		if strings.HasPrefix(seg, ".") {
			return "", models.NewValidationError("path", "不正なパスです")
		}
	}
	return cleaned, nil
}

func sanitizeBase(fileName string) string {
	fileName = filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	base = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || r == '.' ||
			(r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, ".")
	if base == "" || base == "-" {
		base = "img"
	}
	return base
}

// BlobSHA 與 git 對同一內容算出的 blob id 相同
func BlobSHA(data []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
