package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mosa54/control-center/internal/dto"
	"github.com/mosa54/control-center/internal/gateway"
	"github.com/mosa54/control-center/internal/ledger"
	"github.com/mosa54/control-center/internal/model"
	"github.com/mosa54/control-center/internal/roster"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// CheckInService 服务端应召业务接口
//
// 服务端是共享存储的唯一写入方：应召记录的字段以服务端名册为准，
// employee_id 唯一约束冲突即视为已应召。
type CheckInService interface {
	List(ctx context.Context) ([]model.CheckIn, error)
	CheckIn(ctx context.Context, req *dto.CheckInRequest) (*model.CheckIn, error)
	CheckOut(ctx context.Context, employeeID string) error
	ChangeDepartment(ctx context.Context, employeeID string, req *dto.ChangeDeptRequest) error
	ResetAll(ctx context.Context) error

	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
	Mission(ctx context.Context, employeeID string) (*dto.MissionResponse, error)
	// Snapshot 当前名册与应召记录的派生视图
	Snapshot(ctx context.Context) (ledger.View, error)
}

type checkInService struct {
	gw     gateway.Gateway
	order  []string
	logger *zap.Logger
	now    func() time.Time
}

// NewCheckInService 创建 CheckInService 实例
func NewCheckInService(gw gateway.Gateway, order []string, logger *zap.Logger) CheckInService {
	return &checkInService{gw: gw, order: order, logger: logger, now: time.Now}
}

// ────────────────────── List ──────────────────────

func (s *checkInService) List(ctx context.Context) ([]model.CheckIn, error) {
	list, err := s.gw.LoadLedger(ctx)
	if err != nil {
		s.logger.Error("查询应召记录失败", zap.Error(err))
		return nil, err
	}
	if list == nil {
		list = []model.CheckIn{}
	}
	return list, nil
}

// ────────────────────── CheckIn ──────────────────────

func (s *checkInService) CheckIn(ctx context.Context, req *dto.CheckInRequest) (*model.CheckIn, error) {
	c, err := s.gw.LoadCatalog(ctx)
	if err != nil {
		s.logger.Error("查询名册失败", zap.Error(err))
		return nil, err
	}

	emp, ok := c.Employee(req.EmployeeID)
	if !ok {
		return nil, apperrors.Validationf("名册中不存在该人员: %s", req.EmployeeID)
	}
	if err := roster.ValidateDutyStatus(emp, req.DutyStatus); err != nil {
		return nil, err
	}

	rec := model.NewCheckIn(emp, req.DutyStatus, s.now())
	if err := s.gw.WriteCheckIn(ctx, rec); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAlreadyCheckedIn, req.EmployeeID)
		}
		s.logger.Error("写入应召记录失败", zap.String("employee_id", req.EmployeeID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("应召完成", zap.String("employee_id", rec.EmployeeID), zap.String("dept", rec.Dept))
	return &rec, nil
}

// ────────────────────── CheckOut ──────────────────────

func (s *checkInService) CheckOut(ctx context.Context, employeeID string) error {
	if strings.TrimSpace(employeeID) == "" {
		return apperrors.Validationf("人员 ID 不能为空")
	}
	if err := s.gw.DeleteCheckIn(ctx, employeeID); err != nil {
		s.logger.Error("删除应召记录失败", zap.String("employee_id", employeeID), zap.Error(err))
		return err
	}
	s.logger.Info("取消应召", zap.String("employee_id", employeeID))
	return nil
}

// ────────────────────── ChangeDepartment ──────────────────────

func (s *checkInService) ChangeDepartment(ctx context.Context, employeeID string, req *dto.ChangeDeptRequest) error {
	dept := strings.TrimSpace(req.Dept)
	if dept == "" {
		return apperrors.Validationf("编成部不能为空")
	}

	if err := s.gw.UpdateCheckInDepartment(ctx, employeeID, dept); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: %s", apperrors.ErrNotCheckedIn, employeeID)
		}
		s.logger.Error("调整编成部失败", zap.String("employee_id", employeeID), zap.Error(err))
		return err
	}
	s.logger.Info("编成部调整", zap.String("employee_id", employeeID), zap.String("dept", dept))
	return nil
}

// ────────────────────── ResetAll ──────────────────────

func (s *checkInService) ResetAll(ctx context.Context) error {
	if err := s.gw.DeleteAllCheckIns(ctx); err != nil {
		s.logger.Error("清空应召记录失败", zap.Error(err))
		return err
	}
	s.logger.Warn("已清空全部应召记录")
	return nil
}

// ────────────────────── Dashboard ──────────────────────

func (s *checkInService) Snapshot(ctx context.Context) (ledger.View, error) {
	c, err := s.gw.LoadCatalog(ctx)
	if err != nil {
		s.logger.Error("查询名册失败", zap.Error(err))
		return ledger.View{}, err
	}
	records, err := s.gw.LoadLedger(ctx)
	if err != nil {
		s.logger.Error("查询应召记录失败", zap.Error(err))
		return ledger.View{}, err
	}
	return ledger.NewView(c, records, s.order), nil
}

func (s *checkInService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	cfg, err := s.gw.LoadConfig(ctx)
	if err != nil {
		s.logger.Error("查询会话设置失败", zap.Error(err))
		return nil, err
	}
	v, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	boards := make([]dto.DepartmentBoard, 0)
	for _, sum := range v.DepartmentSummaries() {
		members := v.CheckedInByDepartment(sum.Dept)
		if members == nil {
			members = []model.CheckIn{}
		}
		boards = append(boards, dto.DepartmentBoard{
			Dept:      sum.Dept,
			CheckedIn: sum.CheckedIn,
			Total:     sum.Total,
			Members:   members,
			Missions:  v.MissionsForDepartment(sum.Dept),
		})
	}

	return &dto.DashboardResponse{
		Settings:    dto.ToSettingsResponse(cfg),
		Total:       v.TotalCount(),
		RosterSize:  len(v.Catalog().Employees),
		Departments: boards,
		Unlisted:    v.Unlisted(),
	}, nil
}

// ────────────────────── Mission ──────────────────────

func (s *checkInService) Mission(ctx context.Context, employeeID string) (*dto.MissionResponse, error) {
	v, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	emp, ok := v.Catalog().Employee(employeeID)
	if !ok {
		return nil, apperrors.Validationf("名册中不存在该人员: %s", employeeID)
	}

	resp := &dto.MissionResponse{
		EmployeeID: employeeID,
		Dept:       emp.ControlDept,
	}
	var status *model.DutyStatus
	if rec, ok := v.Record(employeeID); ok {
		resp.CheckedIn = true
		resp.DutyStatus = rec.DutyStatus
		resp.Dept = rec.Dept
		status = rec.DutyStatus
	}
	resp.MissionCode = roster.MissionCode(emp, status)
	if m, ok := v.ResolveMission(emp); ok {
		resp.Mission = m
	}
	resp.Supplies = v.SuppliesFor(resp.Dept)
	return resp, nil
}
