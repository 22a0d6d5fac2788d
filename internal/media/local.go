package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LocalUploader 把檔案寫到本機目錄，由 /uploads/ 對外提供
type LocalUploader struct {
	root    string
	urlBase string
}

func NewLocalUploader(root, urlBase string) *LocalUploader {
	return &LocalUploader{root: root, urlBase: urlBase}
}

func (l *LocalUploader) Put(_ context.Context, objectPath, _ string, data []byte) (string, error) {
	dst := filepath.Join(l.root, filepath.FromSlash(objectPath))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", ErrExists
	}
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return l.urlBase + "/" + objectPath, nil
}
