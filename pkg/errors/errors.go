// Package errors 定义应召核心的错误分类。
//
// 预期内的业务情况（重复应召、记录不存在、参数不合法、存储不可用）一律以
// 哨兵错误返回，调用方通过 errors.Is 分支处理；只有名册损坏等意外情况才作为
// 当前操作的致命错误记录日志。
package errors

import (
	"errors"
	"fmt"
)

// ── 应召核心错误 ──

var (
	// ErrAlreadyCheckedIn 该人员已有有效应召记录
	ErrAlreadyCheckedIn = errors.New("已应召的人员")
	// ErrDeviceCheckedIn 本设备已为他人完成应召
	ErrDeviceCheckedIn = fmt.Errorf("%w: 本设备已完成应召", ErrAlreadyCheckedIn)
	// ErrNotCheckedIn 该人员无有效应召记录
	ErrNotCheckedIn = errors.New("未应召的人员")
	// ErrValidation 请求在写入前即被拒绝
	ErrValidation = errors.New("参数校验失败")
	// ErrUnavailable 共享存储不可达
	ErrUnavailable = errors.New("共享存储不可用")
	// ErrCorrupted 持久化的名册或快照无法解析
	ErrCorrupted = errors.New("持久化数据已损坏")
)

// ── Sync Gateway 错误 ──

var (
	// ErrDuplicate 存储层唯一约束冲突
	ErrDuplicate = errors.New("记录已存在")
	// ErrNotFound 存储层未命中任何记录
	ErrNotFound = errors.New("记录不存在")
	// ErrPushUnsupported 存储后端不支持变更推送，调用方需轮询
	ErrPushUnsupported = errors.New("存储后端不支持推送")
)

// Kind 错误分类名，供 HTTP 层与设备端命令行使用
type Kind string

const (
	KindNone             Kind = ""
	KindAlreadyCheckedIn Kind = "already_checked_in"
	KindNotCheckedIn     Kind = "not_checked_in"
	KindValidation       Kind = "validation"
	KindUnavailable      Kind = "unavailable"
	KindCorrupted        Kind = "corrupted"
	KindInternal         Kind = "internal"
)

// KindOf 将任意错误归入分类
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrAlreadyCheckedIn), errors.Is(err, ErrDuplicate):
		return KindAlreadyCheckedIn
	case errors.Is(err, ErrNotCheckedIn), errors.Is(err, ErrNotFound):
		return KindNotCheckedIn
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrCorrupted):
		return KindCorrupted
	default:
		return KindInternal
	}
}

// Validationf 构造参数校验错误
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unavailable 将底层传输/数据库错误包装为 ErrUnavailable
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
