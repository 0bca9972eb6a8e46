package dto

import "github.com/mosa54/control-center/internal/model"

// ── 应召模块 DTO ──

// CheckInRequest 应召请求
type CheckInRequest struct {
	EmployeeID string            `json:"employee_id" binding:"required,max=64"`
	DutyStatus *model.DutyStatus `json:"duty_status" binding:"omitempty,oneof=on_duty off_duty"`
}

// ChangeDeptRequest 部门调动请求
type ChangeDeptRequest struct {
	Dept string `json:"dept" binding:"required,max=100"`
}

// MissionResponse 人员当前任务
type MissionResponse struct {
	EmployeeID  string            `json:"employee_id"`
	CheckedIn   bool              `json:"checked_in"`
	DutyStatus  *model.DutyStatus `json:"duty_status,omitempty"`
	Dept        string            `json:"dept"`
	MissionCode string            `json:"mission_code"`
	Mission     *model.Mission    `json:"mission,omitempty"`
	Supplies    []model.Supply    `json:"supplies,omitempty"`
}

// DepartmentBoard 仪表盘单个编成部
type DepartmentBoard struct {
	Dept      string          `json:"dept"`
	CheckedIn int             `json:"checked_in"`
	Total     int             `json:"total"`
	Members   []model.CheckIn `json:"members"`
	Missions  []model.Mission `json:"missions,omitempty"`
}

// DashboardResponse 仪表盘
type DashboardResponse struct {
	Settings    SettingsResponse  `json:"settings"`
	Total       int               `json:"total"`
	RosterSize  int               `json:"roster_size"`
	Departments []DepartmentBoard `json:"departments"`
	// Unlisted 名册中已不存在的人员的应召记录数
	Unlisted int `json:"unlisted"`
}
