// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// 业务错误的四种类型，调用方通过 errors.Is 判断。
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrUpstreamGeneration = errors.New("upstream generation error")
	ErrStorage            = errors.New("storage error")
)

// Error 携带错误类型、面向调用方的消息以及底层原因。
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func upstreamError(message string, err error) error {
	return &Error{Kind: ErrUpstreamGeneration, Message: message, Err: err}
}

func storageError(message string, err error) error {
	return &Error{Kind: ErrStorage, Message: message, Err: err}
}

// lookupError 把仓库查询错误分类：记录不存在归为 NotFound，其余归为 Storage。
func lookupError(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(entity + " not found")
	}
	return storageError("failed to load "+entity, err)
}

// MapHTTPStatus 将业务错误映射为 HTTP 状态码，未知错误视为 500。
func MapHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstreamGeneration), errors.Is(err, ErrStorage):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 返回可以暴露给调用方的错误消息，不包含底层原因。
func PublicMessage(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "internal server error"
}
