package model

import "time"

// DutyType 근무형태
type DutyType string

const (
	DutyTypeFixed DutyType = "fixed" // 일근
	DutyTypeShift DutyType = "shift" // 교대
)

// DutyStatus 교대근무자의 당번/비번 선택
type DutyStatus string

const (
	DutyStatusOn  DutyStatus = "on_duty"  // 당번
	DutyStatusOff DutyStatus = "off_duty" // 비번
)

// Valid 是否为合法的当班状态
func (s DutyStatus) Valid() bool {
	return s == DutyStatusOn || s == DutyStatusOff
}

// Employee 名册中的人员（职位槽位，Name 为空表示尚未配员）
type Employee struct {
	ID             string   `json:"id"              yaml:"id"`
	Seq            int      `json:"seq"             yaml:"seq"`
	HomeDept       string   `json:"home_dept"       yaml:"home_dept"`
	Rank           string   `json:"rank"            yaml:"rank"`
	Name           string   `json:"name"            yaml:"name"`
	Position       string   `json:"position"        yaml:"position"`
	ControlDept    string   `json:"control_dept"    yaml:"control_dept"`
	DutyType       DutyType `json:"duty_type"       yaml:"duty_type"`
	OnDutyMission  string   `json:"on_duty_mission" yaml:"on_duty_mission"`
	OffDutyMission string   `json:"off_duty_mission" yaml:"off_duty_mission"`
	Note           string   `json:"note,omitempty"  yaml:"note,omitempty"`
}

// IsShift 是否为交替勤务人员
func (e *Employee) IsShift() bool {
	return e.DutyType == DutyTypeShift
}

// Mission 任务定义
type Mission struct {
	Code        string `json:"code"        yaml:"code"`
	Name        string `json:"name"        yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Supply 部门配备物品
type Supply struct {
	Department string `json:"department" yaml:"department"`
	Items      string `json:"items"      yaml:"items"`
}

// Catalog 一次上传产生的名册（只读）
type Catalog struct {
	Employees  []Employee `json:"employees"          yaml:"employees"`
	Missions   []Mission  `json:"missions"           yaml:"missions"`
	Supplies   []Supply   `json:"supplies,omitempty" yaml:"supplies,omitempty"`
	UploadedAt time.Time  `json:"uploaded_at"        yaml:"uploaded_at"`
}

// Employee 按 ID 查找人员
func (c *Catalog) Employee(id string) (*Employee, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Employees {
		if c.Employees[i].ID == id {
			return &c.Employees[i], true
		}
	}
	return nil, false
}

// Mission 按任务代码查找，未知代码返回 false
func (c *Catalog) Mission(code string) (*Mission, bool) {
	if c == nil || code == "" {
		return nil, false
	}
	for i := range c.Missions {
		if c.Missions[i].Code == code {
			return &c.Missions[i], true
		}
	}
	return nil, false
}
