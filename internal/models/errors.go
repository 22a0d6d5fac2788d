package models

import (
	"errors"
	"fmt"
)

// ErrorKind 對應 HTTP 層的錯誤分類
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthorized
	KindForbidden
	KindValidation
	KindNotFound
	KindConflict
	KindRateLimited
)

// APIError 是 service 層回傳、httpx 負責轉成狀態碼的錯誤。
// Message 直接顯示給使用者（日文）。
type APIError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// AsAPIError 取出 err 鏈上的 *APIError；沒有就包成 Internal。
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternalError(err)
}

func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func NewUnauthorizedError(reason string) *APIError {
	return &APIError{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: "認証が必要です: " + reason}
}

func NewForbiddenError() *APIError {
	return &APIError{Kind: KindForbidden, Code: "FORBIDDEN", Message: "この操作を行う権限がありません。"}
}

// 缺少必填欄位或值不合法
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("入力内容が正しくありません（%s）: %s", field, reason),
	}
}

func NewNotFoundError(entity, id string) *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s が見つかりません: %s", entity, id),
	}
}

func NewConflictError(reason string) *APIError {
	return &APIError{Kind: KindConflict, Code: "CONFLICT", Message: reason}
}

func NewRateLimitedError() *APIError {
	return &APIError{
		Kind:    KindRateLimited,
		Code:    "RATE_LIMITED",
		Message: "リクエストが多すぎます。しばらく待ってから再度お試しください。",
	}
}

// 細節只寫進 log，回給前端的是一般訊息
func NewInternalError(err error) *APIError {
	return &APIError{
		Kind:    KindInternal,
		Code:    "INTERNAL_ERROR",
		Message: "内部エラーが発生しました。",
		Err:     err,
	}
}
