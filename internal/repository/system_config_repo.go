package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mosa54/control-center/internal/model"
)

// SettingsRepository 会话设置（单行）数据访问接口
type SettingsRepository interface {
	// Get 读取设置，不存在时以默认值创建
	Get(ctx context.Context) (*model.SystemSettings, error)
	// UpdateFields 仅更新给定列，未给出的列保持不变
	UpdateFields(ctx context.Context, fields map[string]interface{}) error
}

type settingsRepo struct {
	db *gorm.DB
}

// NewSettingsRepo 创建 SettingsRepository 实例
func NewSettingsRepo(db *gorm.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) Get(ctx context.Context) (*model.SystemSettings, error) {
	var s model.SystemSettings
	err := r.db.WithContext(ctx).
		Where(model.SystemSettings{ID: model.SettingsID}).
		Attrs(model.SystemSettings{Mode: model.SessionModeDrill}).
		FirstOrCreate(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepo) UpdateFields(ctx context.Context, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.SystemSettings{ID: model.SettingsID}).
		Updates(fields).Error
}
