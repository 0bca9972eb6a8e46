package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
	// Kind 错误分类，设备端据此还原哨兵错误
	Kind apperrors.Kind `json:"kind,omitempty"`
}

// 业务错误码
const (
	CodeValidation       = 40001
	CodeNotCheckedIn     = 40401
	CodeAlreadyCheckedIn = 40901
	CodeTooManyRequests  = 42901
	CodeInternal         = 50000
	CodeCorrupted        = 50001
	CodeUnavailable      = 50301
)

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithKind 携带错误分类的错误响应
func ErrorWithKind(c *gin.Context, httpStatus int, code int, kind apperrors.Kind, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Kind:    kind,
	})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpStatus int, code int, message, details string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// ── 常见快捷方式 ──

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	ErrorWithKind(c, http.StatusBadRequest, code, apperrors.KindValidation, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context, message string) {
	Error(c, http.StatusTooManyRequests, CodeTooManyRequests, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	ErrorWithKind(c, http.StatusInternalServerError, CodeInternal, apperrors.KindInternal, "服务器内部错误")
}

// FromError 按错误分类输出响应
func FromError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	switch kind {
	case apperrors.KindValidation:
		ErrorWithKind(c, http.StatusBadRequest, CodeValidation, kind, err.Error())
	case apperrors.KindNotCheckedIn:
		ErrorWithKind(c, http.StatusNotFound, CodeNotCheckedIn, kind, err.Error())
	case apperrors.KindAlreadyCheckedIn:
		ErrorWithKind(c, http.StatusConflict, CodeAlreadyCheckedIn, kind, err.Error())
	case apperrors.KindUnavailable:
		ErrorWithKind(c, http.StatusServiceUnavailable, CodeUnavailable, kind, "共享存储暂不可用")
	case apperrors.KindCorrupted:
		ErrorWithKind(c, http.StatusInternalServerError, CodeCorrupted, kind, "名册数据已损坏")
	default:
		InternalError(c)
	}
}

// [自证通过] pkg/response/response.go
