package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mosa54/control-center/internal/dto"
	"github.com/mosa54/control-center/internal/gateway"
	"github.com/mosa54/control-center/internal/model"
	"github.com/mosa54/control-center/internal/roster"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// ── 会话设置模块业务错误 ──

var (
	ErrWorkbookTooLarge = apperrors.Validationf("名册文件超过 %d MB", roster.MaxWorkbookSize>>20)
	ErrEmptyRoster      = apperrors.Validationf("名册中没有有效人员")
)

// SettingsService 会话设置与名册业务接口
type SettingsService interface {
	Get(ctx context.Context) (*dto.SettingsResponse, error)
	Update(ctx context.Context, req *dto.UpdateSettingsRequest) (*dto.SettingsResponse, error)

	GetCatalog(ctx context.Context) (*model.Catalog, error)
	ReplaceCatalog(ctx context.Context, c *model.Catalog) (*dto.ImportRosterResponse, error)
	// ImportRoster 解析上传的 .xlsx 名册并替换
	ImportRoster(ctx context.Context, r io.Reader, size int64) (*dto.ImportRosterResponse, error)
	// EnsureSeed 共享存储中无名册时加载默认名册
	EnsureSeed(ctx context.Context, path string) error
}

type settingsService struct {
	gw     gateway.Gateway
	logger *zap.Logger
	now    func() time.Time
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(gw gateway.Gateway, logger *zap.Logger) SettingsService {
	return &settingsService{gw: gw, logger: logger, now: time.Now}
}

// ────────────────────── Get ──────────────────────

func (s *settingsService) Get(ctx context.Context) (*dto.SettingsResponse, error) {
	cfg, err := s.gw.LoadConfig(ctx)
	if err != nil {
		s.logger.Error("查询会话设置失败", zap.Error(err))
		return nil, err
	}
	resp := dto.ToSettingsResponse(cfg)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *settingsService) Update(ctx context.Context, req *dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	patch := model.ConfigPatch{Mode: req.Mode, Summary: req.Summary}
	if patch.Empty() {
		return s.Get(ctx)
	}

	if err := s.gw.WriteConfig(ctx, patch); err != nil {
		if !errors.Is(err, apperrors.ErrValidation) {
			s.logger.Error("更新会话设置失败", zap.Error(err))
		}
		return nil, err
	}
	s.logger.Info("会话设置已更新", zap.Any("mode", req.Mode), zap.Bool("summary", req.Summary != nil))
	return s.Get(ctx)
}

// ────────────────────── Catalog ──────────────────────

func (s *settingsService) GetCatalog(ctx context.Context) (*model.Catalog, error) {
	c, err := s.gw.LoadCatalog(ctx)
	if err != nil {
		s.logger.Error("查询名册失败", zap.Error(err))
		return nil, err
	}
	return c, nil
}

func (s *settingsService) ReplaceCatalog(ctx context.Context, c *model.Catalog) (*dto.ImportRosterResponse, error) {
	clean, err := roster.Sanitize(c)
	if err != nil {
		return nil, err
	}
	if len(clean.Employees) == 0 {
		return nil, ErrEmptyRoster
	}
	if clean.UploadedAt.IsZero() {
		clean.UploadedAt = s.now()
	}

	if err := s.gw.WriteConfig(ctx, model.ConfigPatch{Catalog: clean}); err != nil {
		s.logger.Error("保存名册失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("名册已更新",
		zap.Int("employees", len(clean.Employees)),
		zap.Int("missions", len(clean.Missions)),
		zap.Int("supplies", len(clean.Supplies)),
	)
	return &dto.ImportRosterResponse{
		Employees:  len(clean.Employees),
		Missions:   len(clean.Missions),
		Supplies:   len(clean.Supplies),
		UploadedAt: dto.FormatTime(clean.UploadedAt),
	}, nil
}

func (s *settingsService) ImportRoster(ctx context.Context, r io.Reader, size int64) (*dto.ImportRosterResponse, error) {
	if size > roster.MaxWorkbookSize {
		return nil, ErrWorkbookTooLarge
	}
	c, err := roster.ParseWorkbook(io.LimitReader(r, roster.MaxWorkbookSize+1), s.now())
	if err != nil {
		s.logger.Warn("名册工作簿解析失败", zap.Error(err))
		return nil, err
	}
	return s.ReplaceCatalog(ctx, c)
}

// ────────────────────── Seed ──────────────────────

func (s *settingsService) EnsureSeed(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	current, err := s.gw.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	if len(current.Employees) > 0 {
		return nil
	}

	c, err := roster.LoadSeedFile(path)
	if err != nil {
		return err
	}
	if _, err := s.ReplaceCatalog(ctx, c); err != nil {
		return err
	}
	s.logger.Info("已加载默认名册", zap.String("path", path))
	return nil
}
