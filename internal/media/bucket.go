package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// BucketUploader 寫到 Cloud Storage（Firebase Storage 的 bucket）
type BucketUploader struct {
	bucket *storage.BucketHandle
	name   string
}

func NewBucketUploader(bucket *storage.BucketHandle, name string) *BucketUploader {
	return &BucketUploader{bucket: bucket, name: name}
}

func (b *BucketUploader) Put(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	// DoesNotExist：同名物件存在時由伺服器回 412
	w := b.bucket.Object(objectPath).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", mapBucketErr(err)
	}
	if err := w.Close(); err != nil {
		return "", mapBucketErr(err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.name, objectPath), nil
}

func mapBucketErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return ErrExists
	}
	return fmt.Errorf("bucket write: %w", err)
}
