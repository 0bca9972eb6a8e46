package model

import "time"

// CheckIn 应召记录表 — 对应 checkins（employee_id 唯一）
//
// 除 Dept（部门调动）外的字段创建后不再修改。
type CheckIn struct {
	ID          string      `gorm:"type:varchar(36);primaryKey"                                json:"id"`
	EmployeeID  string      `gorm:"type:varchar(64);not null;uniqueIndex:uq_checkins_employee_id" json:"employee_id"`
	Dept        string      `gorm:"type:varchar(100);not null;index"                           json:"dept"`
	Name        string      `gorm:"type:varchar(100);not null"                                 json:"name"`
	Position    string      `gorm:"type:varchar(100);not null"                                 json:"position"`
	DutyStatus  *DutyStatus `gorm:"type:varchar(10)"                                           json:"duty_status,omitempty"`
	CheckedInAt time.Time   `gorm:"not null"                                                   json:"checked_in_at"`
}

// TableName 指定表名
func (CheckIn) TableName() string { return "checkins" }

// NewCheckIn 以名册分配的编成部创建应召记录
func NewCheckIn(emp *Employee, status *DutyStatus, at time.Time) CheckIn {
	rec := CheckIn{
		EmployeeID:  emp.ID,
		Dept:        emp.ControlDept,
		Name:        emp.Name,
		Position:    emp.Position,
		CheckedInAt: at,
	}
	if status != nil {
		s := *status
		rec.DutyStatus = &s
	}
	return rec
}

// OffDuty 是否选择了비번
func (c *CheckIn) OffDuty() bool {
	return c.DutyStatus != nil && *c.DutyStatus == DutyStatusOff
}
