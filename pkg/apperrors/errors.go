package apperrors

import (
	"errors"
	"net/http"
)

// Kind 错误类别
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidToken
	KindTokenExpired
	KindPermissionDenied
	KindTenantMismatch
	KindValidation
	KindNotFound
	KindSetTooLarge
	KindUnsupported
	KindStore
)

// Error 带类别的业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建业务错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 包装底层错误
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf 提取错误类别，非业务错误返回KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ========== 快捷构造方法 ==========

func InvalidToken(message string) *Error {
	return New(KindInvalidToken, message)
}

func TokenExpired(message string) *Error {
	return New(KindTokenExpired, message)
}

func PermissionDenied(message string) *Error {
	return New(KindPermissionDenied, message)
}

func TenantMismatch(message string) *Error {
	return New(KindTenantMismatch, message)
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func SetTooLarge(message string) *Error {
	return New(KindSetTooLarge, message)
}

func Unsupported(message string) *Error {
	return New(KindUnsupported, message)
}

func Store(err error) *Error {
	// 存储错误不向客户端暴露内部细节
	return Wrap(KindStore, "store failure", err)
}

// HTTPStatus 错误类别到HTTP状态码的映射
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidToken, KindTokenExpired, KindPermissionDenied, KindTenantMismatch:
		return http.StatusUnauthorized
	case KindValidation, KindSetTooLarge:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
