// Package gateway 共享存储访问抽象。
//
// 会话设置与应召记录的持久化读写只经由 Gateway 完成。
// 实现方约定：
//   - 存储不可达时返回包装了 ErrUnavailable 的错误
//   - employee_id 冲突返回 ErrDuplicate，修改不存在的记录返回 ErrNotFound
//   - 不支持推送的实现在 Subscribe 中返回 ErrPushUnsupported
package gateway

import (
	"context"

	"github.com/mosa54/control-center/internal/model"
)

// Handlers 变更回调，回调中应只触发重新读取
type Handlers struct {
	OnConfigChanged func()
	OnLedgerChanged func()
}

func (h Handlers) config() {
	if h.OnConfigChanged != nil {
		h.OnConfigChanged()
	}
}

func (h Handlers) ledger() {
	if h.OnLedgerChanged != nil {
		h.OnLedgerChanged()
	}
}

// Gateway 共享存储接口
type Gateway interface {
	LoadConfig(ctx context.Context) (model.SessionConfig, error)
	// LoadCatalog 尚未上传名册时返回空名册
	LoadCatalog(ctx context.Context) (*model.Catalog, error)
	LoadLedger(ctx context.Context) ([]model.CheckIn, error)

	// WriteConfig 部分更新，并发写入者按字段后写覆盖
	WriteConfig(ctx context.Context, patch model.ConfigPatch) error

	WriteCheckIn(ctx context.Context, rec model.CheckIn) error
	DeleteCheckIn(ctx context.Context, employeeID string) error
	DeleteAllCheckIns(ctx context.Context) error
	UpdateCheckInDepartment(ctx context.Context, employeeID, dept string) error

	// Subscribe 在 ctx 结束前持续投递变更通知，立即返回
	Subscribe(ctx context.Context, h Handlers) error
}
