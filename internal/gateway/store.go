package gateway

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mosa54/control-center/internal/model"
	"github.com/mosa54/control-center/internal/notify"
	"github.com/mosa54/control-center/internal/repository"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// Store 服务端实现：数据库仓储 + 变更推送
type Store struct {
	repo     *repository.Repository
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewStore 创建服务端 Gateway，notifier 为 nil 时不支持推送
func NewStore(repo *repository.Repository, notifier notify.Notifier, logger *zap.Logger) *Store {
	return &Store{repo: repo, notifier: notifier, logger: logger}
}

// ── 读取 ──

func (s *Store) LoadConfig(ctx context.Context) (model.SessionConfig, error) {
	row, err := s.repo.Settings.Get(ctx)
	if err != nil {
		s.logger.Warn("读取会话设置失败", zap.Error(err))
		return model.DefaultSessionConfig(), apperrors.Unavailable("load_config", err)
	}
	return model.SessionConfig{Mode: row.Mode, Summary: row.Summary, UpdatedAt: row.UpdatedAt}, nil
}

func (s *Store) LoadCatalog(ctx context.Context) (*model.Catalog, error) {
	row, err := s.repo.Settings.Get(ctx)
	if err != nil {
		return nil, apperrors.Unavailable("load_catalog", err)
	}
	c, err := decodeCatalog(row.Catalog)
	if err != nil {
		s.logger.Error("共享存储中的名册已损坏", zap.Error(err))
		return nil, err
	}
	return c, nil
}

func (s *Store) LoadLedger(ctx context.Context) ([]model.CheckIn, error) {
	list, err := s.repo.CheckIn.List(ctx)
	if err != nil {
		return nil, apperrors.Unavailable("load_ledger", err)
	}
	return list, nil
}

// ── 写入 ──

func (s *Store) WriteConfig(ctx context.Context, patch model.ConfigPatch) error {
	patch, err := normalizePatch(patch)
	if err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}
	fields, err := patchFields(patch)
	if err != nil {
		return err
	}

	// 确保单行存在
	if _, err := s.repo.Settings.Get(ctx); err != nil {
		return apperrors.Unavailable("write_config", err)
	}
	if err := s.repo.Settings.UpdateFields(ctx, fields); err != nil {
		return apperrors.Unavailable("write_config", err)
	}
	s.publish(ctx, notify.KindConfig)
	return nil
}

func (s *Store) WriteCheckIn(ctx context.Context, rec model.CheckIn) error {
	if err := s.repo.CheckIn.Create(ctx, &rec); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return err
		}
		return apperrors.Unavailable("write_checkin", err)
	}
	s.publish(ctx, notify.KindLedger)
	return nil
}

func (s *Store) DeleteCheckIn(ctx context.Context, employeeID string) error {
	if err := s.repo.CheckIn.DeleteByEmployee(ctx, employeeID); err != nil {
		return apperrors.Unavailable("delete_checkin", err)
	}
	s.publish(ctx, notify.KindLedger)
	return nil
}

func (s *Store) DeleteAllCheckIns(ctx context.Context) error {
	if err := s.repo.CheckIn.DeleteAll(ctx); err != nil {
		return apperrors.Unavailable("delete_all_checkins", err)
	}
	s.publish(ctx, notify.KindLedger)
	return nil
}

func (s *Store) UpdateCheckInDepartment(ctx context.Context, employeeID, dept string) error {
	if err := s.repo.CheckIn.UpdateDept(ctx, employeeID, dept); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return apperrors.Unavailable("update_checkin_department", err)
	}
	s.publish(ctx, notify.KindLedger)
	return nil
}

// ── 推送 ──

func (s *Store) Subscribe(ctx context.Context, h Handlers) error {
	if s.notifier == nil {
		return apperrors.ErrPushUnsupported
	}
	events, err := s.notifier.Subscribe(ctx)
	if err != nil {
		return apperrors.Unavailable("subscribe", err)
	}
	go func() {
		for ev := range events {
			switch ev.Kind {
			case notify.KindConfig:
				h.config()
			case notify.KindLedger:
				h.ledger()
			}
		}
	}()
	return nil
}

// publish 推送失败只记录日志，写入本身已成功
func (s *Store) publish(ctx context.Context, kind notify.Kind) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, notify.NewEvent(kind)); err != nil {
		s.logger.Warn("发布变更事件失败", zap.String("kind", string(kind)), zap.Error(err))
	}
}
