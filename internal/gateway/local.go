package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mosa54/control-center/internal/model"
	apperrors "github.com/mosa54/control-center/pkg/errors"
	"github.com/mosa54/control-center/pkg/localdb"
)

const (
	keySessionConfig = "session_config"
	keyCatalog       = "catalog"
)

// Local 单机实现：全部状态保存在本设备的 SQLite 文件中，不支持推送
type Local struct {
	db     *localdb.Store
	logger *zap.Logger
}

// NewLocal 创建单机 Gateway，db 需已完成 InitSchema
func NewLocal(db *localdb.Store, logger *zap.Logger) *Local {
	return &Local{db: db, logger: logger}
}

// ── 读取 ──

func (l *Local) LoadConfig(ctx context.Context) (model.SessionConfig, error) {
	cfg := model.DefaultSessionConfig()
	raw, err := l.db.Get(ctx, keySessionConfig)
	if errors.Is(err, localdb.ErrKeyNotFound) {
		return cfg, nil
	}
	if err != nil {
		return cfg, apperrors.Unavailable("load_config", err)
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		l.logger.Error("本地会话设置已损坏", zap.Error(err))
		return model.DefaultSessionConfig(), fmt.Errorf("%w: 会话设置无法解析: %v", apperrors.ErrCorrupted, err)
	}
	return cfg, nil
}

func (l *Local) LoadCatalog(ctx context.Context) (*model.Catalog, error) {
	raw, err := l.db.Get(ctx, keyCatalog)
	if errors.Is(err, localdb.ErrKeyNotFound) {
		return &model.Catalog{}, nil
	}
	if err != nil {
		return nil, apperrors.Unavailable("load_catalog", err)
	}
	c, err := decodeCatalog([]byte(raw))
	if err != nil {
		l.logger.Error("本地名册已损坏", zap.Error(err))
		return nil, err
	}
	return c, nil
}

func (l *Local) LoadLedger(ctx context.Context) ([]model.CheckIn, error) {
	list, err := l.db.ListCheckIns(ctx)
	if err != nil {
		return nil, apperrors.Unavailable("load_ledger", err)
	}
	return list, nil
}

// ── 写入 ──

func (l *Local) WriteConfig(ctx context.Context, patch model.ConfigPatch) error {
	patch, err := normalizePatch(patch)
	if err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}

	if patch.Mode != nil || patch.Summary != nil {
		// 损坏的设置直接被覆盖
		cfg, err := l.LoadConfig(ctx)
		if err != nil && !errors.Is(err, apperrors.ErrCorrupted) {
			return err
		}
		if patch.Mode != nil {
			cfg.Mode = *patch.Mode
		}
		if patch.Summary != nil {
			cfg.Summary = *patch.Summary
		}
		cfg.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		if err := l.db.Set(ctx, keySessionConfig, string(data)); err != nil {
			return apperrors.Unavailable("write_config", err)
		}
	}

	if patch.Catalog != nil {
		data, err := json.Marshal(patch.Catalog)
		if err != nil {
			return err
		}
		if err := l.db.Set(ctx, keyCatalog, string(data)); err != nil {
			return apperrors.Unavailable("write_catalog", err)
		}
	}
	return nil
}

func (l *Local) WriteCheckIn(ctx context.Context, rec model.CheckIn) error {
	if err := l.db.InsertCheckIn(ctx, rec); err != nil {
		if errors.Is(err, localdb.ErrDuplicateEmployee) {
			return apperrors.ErrDuplicate
		}
		return apperrors.Unavailable("write_checkin", err)
	}
	return nil
}

func (l *Local) DeleteCheckIn(ctx context.Context, employeeID string) error {
	if err := l.db.DeleteCheckIn(ctx, employeeID); err != nil {
		return apperrors.Unavailable("delete_checkin", err)
	}
	return nil
}

func (l *Local) DeleteAllCheckIns(ctx context.Context) error {
	if err := l.db.DeleteAllCheckIns(ctx); err != nil {
		return apperrors.Unavailable("delete_all_checkins", err)
	}
	return nil
}

func (l *Local) UpdateCheckInDepartment(ctx context.Context, employeeID, dept string) error {
	n, err := l.db.UpdateCheckInDept(ctx, employeeID, dept)
	if err != nil {
		return apperrors.Unavailable("update_checkin_department", err)
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Subscribe 单机模式没有其他写入者
func (l *Local) Subscribe(context.Context, Handlers) error {
	return apperrors.ErrPushUnsupported
}
