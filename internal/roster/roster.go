// Package roster 名册（Catalog）的边界校验与只读查询。
//
// 名册每次上传后即不可变，这里的函数都不修改入参。
package roster

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mosa54/control-center/internal/model"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// ── 边界校验 ──

// Sanitize 返回清洗后的名册副本：
// 姓名与职位都为空的人员、任务代码为空的任务、部门或物品为空的配备项被丢弃。
// 缺少 ID 的人员按所在行分配 emp-<行号>；人员 ID 或任务代码重复时整个名册被拒绝。
func Sanitize(c *model.Catalog) (*model.Catalog, error) {
	if c == nil {
		return &model.Catalog{}, nil
	}
	out := &model.Catalog{UploadedAt: c.UploadedAt}

	seenEmp := make(map[string]bool, len(c.Employees))
	for i, e := range c.Employees {
		e.ID = strings.TrimSpace(e.ID)
		e.HomeDept = strings.TrimSpace(e.HomeDept)
		e.Rank = strings.TrimSpace(e.Rank)
		e.Name = strings.TrimSpace(e.Name)
		e.Position = strings.TrimSpace(e.Position)
		e.ControlDept = strings.TrimSpace(e.ControlDept)
		e.OnDutyMission = strings.TrimSpace(e.OnDutyMission)
		e.OffDutyMission = strings.TrimSpace(e.OffDutyMission)
		e.DutyType = NormalizeDutyType(string(e.DutyType))
		if e.Name == "" && e.Position == "" {
			continue
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("emp-%d", i+1)
		}
		if seenEmp[e.ID] {
			return nil, apperrors.Validationf("名册中人员 ID 重复: %s", e.ID)
		}
		seenEmp[e.ID] = true
		out.Employees = append(out.Employees, e)
	}

	seenMission := make(map[string]bool, len(c.Missions))
	for _, m := range c.Missions {
		m.Code = strings.TrimSpace(m.Code)
		m.Name = strings.TrimSpace(m.Name)
		if m.Code == "" {
			continue
		}
		if seenMission[m.Code] {
			return nil, apperrors.Validationf("名册中任务代码重复: %s", m.Code)
		}
		seenMission[m.Code] = true
		out.Missions = append(out.Missions, m)
	}

	for _, s := range c.Supplies {
		s.Department = strings.TrimSpace(s.Department)
		s.Items = strings.TrimSpace(s.Items)
		if s.Department == "" || s.Items == "" {
			continue
		}
		out.Supplies = append(out.Supplies, s)
	}

	return out, nil
}

// NormalizeDutyType 근무형태 文本归一化，未知值按일근处理
func NormalizeDutyType(v string) model.DutyType {
	switch strings.TrimSpace(v) {
	case "교대", string(model.DutyTypeShift):
		return model.DutyTypeShift
	default:
		return model.DutyTypeFixed
	}
}

// ValidateDutyStatus 校验应召时的당번/비번 选择
// 교대 必须选择；일근 不得携带
func ValidateDutyStatus(emp *model.Employee, status *model.DutyStatus) error {
	if emp.IsShift() {
		if status == nil {
			return apperrors.Validationf("교대 근무자는 당번/비번을 선택해야 합니다 (%s)", emp.ID)
		}
		if !status.Valid() {
			return apperrors.Validationf("알 수 없는 근무 상태: %q", string(*status))
		}
		return nil
	}
	if status != nil {
		return apperrors.Validationf("일근 근무자는 당번/비번을 선택할 수 없습니다 (%s)", emp.ID)
	}
	return nil
}

// ── 任务解析 ──

// MissionCode 按当班状态选取任务代码：仅비번 时取 OffDutyMission
func MissionCode(emp *model.Employee, status *model.DutyStatus) string {
	if status != nil && *status == model.DutyStatusOff {
		return emp.OffDutyMission
	}
	return emp.OnDutyMission
}

// ResolveMission 查找人员当前应执行的任务，代码为空或未知时返回 false
func ResolveMission(c *model.Catalog, emp *model.Employee, status *model.DutyStatus) (*model.Mission, bool) {
	if emp == nil {
		return nil, false
	}
	return c.Mission(MissionCode(emp, status))
}

// ── 部门 ──

// OrderDepartments 合并多组部门名并去重：
// 出现在 canonical 中的按其顺序排列，其余按发现顺序追加在后
func OrderDepartments(canonical []string, groups ...[]string) []string {
	seen := make(map[string]bool)
	var discovered []string
	for _, g := range groups {
		for _, d := range g {
			if d == "" || seen[d] {
				continue
			}
			seen[d] = true
			discovered = append(discovered, d)
		}
	}

	rank := make(map[string]int, len(canonical))
	for i, d := range canonical {
		if _, ok := rank[d]; !ok {
			rank[d] = i
		}
	}

	sort.SliceStable(discovered, func(i, j int) bool {
		ri, iok := rank[discovered[i]]
		rj, jok := rank[discovered[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
	return discovered
}

// ControlDepartments 名册中出现的编成部（发现顺序）
func ControlDepartments(c *model.Catalog) []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Employees))
	for _, e := range c.Employees {
		out = append(out, e.ControlDept)
	}
	return OrderDepartments(nil, out)
}

// HomeDepartments 名册中出现的소속부서（发现顺序）
func HomeDepartments(c *model.Catalog) []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Employees))
	for _, e := range c.Employees {
		out = append(out, e.HomeDept)
	}
	return OrderDepartments(nil, out)
}

// EmployeesByHomeDept 按소속부서筛选人员
func EmployeesByHomeDept(c *model.Catalog, dept string) []model.Employee {
	if c == nil {
		return nil
	}
	var out []model.Employee
	for _, e := range c.Employees {
		if e.HomeDept == dept {
			out = append(out, e)
		}
	}
	return out
}

// MissionsForDepartment 编成部下所有人员涉及的任务（去重，按出现顺序）
func MissionsForDepartment(c *model.Catalog, dept string) []model.Mission {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []model.Mission
	for _, e := range c.Employees {
		if e.ControlDept != dept {
			continue
		}
		for _, code := range []string{e.OnDutyMission, e.OffDutyMission} {
			if seen[code] {
				continue
			}
			if m, ok := c.Mission(code); ok {
				seen[code] = true
				out = append(out, *m)
			}
		}
	}
	return out
}

// SuppliesFor 部门配备物品
func SuppliesFor(c *model.Catalog, dept string) []model.Supply {
	if c == nil {
		return nil
	}
	var out []model.Supply
	for _, s := range c.Supplies {
		if s.Department == dept {
			out = append(out, s)
		}
	}
	return out
}
