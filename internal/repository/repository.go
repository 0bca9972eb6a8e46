package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Settings SettingsRepository
	CheckIn  CheckInRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Settings: NewSettingsRepo(db),
		CheckIn:  NewCheckInRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
