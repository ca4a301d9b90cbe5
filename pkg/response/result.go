package response

import (
	"io"
	"net/http"

	"syncgate/pkg/apperrors"
)

// BodyKind 响应体类型
type BodyKind int

const (
	KindObject BodyKind = iota + 1
	KindStream
	KindFile
	KindPlainText
	KindStatus
)

// Result 调度器统一的操作结果，由传输层按客户端要求的编码写出
type Result struct {
	StatusCode  int
	ContentType string
	Kind        BodyKind
	Value       interface{}
	Reader      io.Reader
	FileName    string
}

// Object 对象结果，按response头选择的编码序列化
func Object(value interface{}) *Result {
	return &Result{
		StatusCode: http.StatusOK,
		Kind:       KindObject,
		Value:      value,
	}
}

// ObjectWithStatus 指定状态码的对象结果
func ObjectWithStatus(value interface{}, statusCode int) *Result {
	return &Result{
		StatusCode: statusCode,
		Kind:       KindObject,
		Value:      value,
	}
}

// OK 无数据的成功结果。
// 返回对象而非裸状态码，部分HTTP客户端把空body当作失败。
func OK() *Result {
	return Object("OK")
}

// Status 只有状态码的结果
func Status(statusCode int) *Result {
	return &Result{
		StatusCode: statusCode,
		Kind:       KindStatus,
	}
}

// PlainText 纯文本结果
func PlainText(value string, statusCode int) *Result {
	return &Result{
		StatusCode:  statusCode,
		ContentType: "text/plain",
		Kind:        KindPlainText,
		Value:       value,
	}
}

// Stream 二进制流结果
func Stream(reader io.Reader, mimeType string) *Result {
	return &Result{
		StatusCode:  http.StatusOK,
		ContentType: mimeType,
		Kind:        KindStream,
		Reader:      reader,
	}
}

// File 文件下载结果
func File(reader io.Reader, fileName string) *Result {
	return &Result{
		StatusCode:  http.StatusOK,
		ContentType: "application/octet-stream",
		Kind:        KindFile,
		Reader:      reader,
		FileName:    fileName,
	}
}

// FromError 业务错误到响应的映射。
// 401一律不带响应体，避免向探测方泄露是哪一步检查失败；
// verbose开启时（调试环境）以纯文本附带原因。
func FromError(err error, verbose bool) *Result {
	status := apperrors.HTTPStatus(err)

	if status == http.StatusUnauthorized {
		if verbose {
			return PlainText(err.Error(), status)
		}
		return Status(status)
	}

	if status == http.StatusInternalServerError {
		// 存储错误不外泄内部细节
		return PlainText("internal server error", status)
	}

	return PlainText(err.Error(), status)
}
