package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mosa54/control-center/internal/model"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// CheckInRepository 应召记录数据访问接口
type CheckInRepository interface {
	List(ctx context.Context) ([]model.CheckIn, error)
	// Create 插入记录，employee_id 冲突返回 ErrDuplicate
	Create(ctx context.Context, rec *model.CheckIn) error
	// DeleteByEmployee 删除人员的记录，不存在不视为错误
	DeleteByEmployee(ctx context.Context, employeeID string) error
	DeleteAll(ctx context.Context) error
	// UpdateDept 修改部门，无记录返回 ErrNotFound
	UpdateDept(ctx context.Context, employeeID, dept string) error
}

type checkInRepo struct {
	db *gorm.DB
}

// NewCheckInRepo 创建 CheckInRepository 实例
func NewCheckInRepo(db *gorm.DB) CheckInRepository {
	return &checkInRepo{db: db}
}

func (r *checkInRepo) List(ctx context.Context) ([]model.CheckIn, error) {
	var list []model.CheckIn
	err := r.db.WithContext(ctx).
		Order("checked_in_at ASC, employee_id ASC").
		Find(&list).Error
	return list, err
}

func (r *checkInRepo) Create(ctx context.Context, rec *model.CheckIn) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrDuplicate
	}
	return err
}

func (r *checkInRepo) DeleteByEmployee(ctx context.Context, employeeID string) error {
	return r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Delete(&model.CheckIn{}).Error
}

func (r *checkInRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.CheckIn{}).Error
}

func (r *checkInRepo) UpdateDept(ctx context.Context, employeeID, dept string) error {
	result := r.db.WithContext(ctx).
		Model(&model.CheckIn{}).
		Where("employee_id = ?", employeeID).
		Update("dept", dept)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
