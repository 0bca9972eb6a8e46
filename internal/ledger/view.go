package ledger

import (
	"github.com/mosa54/control-center/internal/model"
	"github.com/mosa54/control-center/internal/roster"
)

// DepartmentSummary 编成部应召人数 / 名册人数
type DepartmentSummary struct {
	Dept      string `json:"dept"`
	CheckedIn int    `json:"checked_in"`
	Total     int    `json:"total"`
}

// View 名册与应召记录的只读派生视图，不持有可变状态
type View struct {
	catalog    *model.Catalog
	records    []model.CheckIn
	byEmployee map[string]int
	order      []string
}

// NewView 基于快照构建视图，调用方不得再修改传入的切片
func NewView(c *model.Catalog, records []model.CheckIn, order []string) View {
	if c == nil {
		c = &model.Catalog{}
	}
	idx := make(map[string]int, len(records))
	for i, r := range records {
		if _, ok := idx[r.EmployeeID]; !ok {
			idx[r.EmployeeID] = i
		}
	}
	return View{catalog: c, records: records, byEmployee: idx, order: order}
}

// Catalog 名册
func (v View) Catalog() *model.Catalog { return v.catalog }

// Records 全部应召记录（副本）
func (v View) Records() []model.CheckIn {
	return append([]model.CheckIn(nil), v.records...)
}

// CountByDepartment 该部门的应召记录数
func (v View) CountByDepartment(dept string) int {
	n := 0
	for _, r := range v.records {
		if r.Dept == dept {
			n++
		}
	}
	return n
}

// TotalCount 应召记录总数
func (v View) TotalCount() int { return len(v.records) }

// IsCheckedIn 是否已应召
func (v View) IsCheckedIn(employeeID string) bool {
	_, ok := v.byEmployee[employeeID]
	return ok
}

// Record 人员的应召记录
func (v View) Record(employeeID string) (model.CheckIn, bool) {
	i, ok := v.byEmployee[employeeID]
	if !ok {
		return model.CheckIn{}, false
	}
	return v.records[i], true
}

// ResolveMission 按应召记录中的당번/비번 选择任务；未应召按당번
func (v View) ResolveMission(emp *model.Employee) (*model.Mission, bool) {
	if emp == nil {
		return nil, false
	}
	var status *model.DutyStatus
	if rec, ok := v.Record(emp.ID); ok {
		status = rec.DutyStatus
	}
	return roster.ResolveMission(v.catalog, emp, status)
}

// CurrentMission 按人员 ID 解析任务
func (v View) CurrentMission(employeeID string) (*model.Mission, bool) {
	emp, ok := v.catalog.Employee(employeeID)
	if !ok {
		return nil, false
	}
	return v.ResolveMission(emp)
}

// OrderedDepartments 名册与应召记录中出现的编成部，按固定顺序排列，未知部门按发现顺序追加
func (v View) OrderedDepartments() []string {
	fromRecords := make([]string, 0, len(v.records))
	for _, r := range v.records {
		fromRecords = append(fromRecords, r.Dept)
	}
	return roster.OrderDepartments(v.order, roster.ControlDepartments(v.catalog), fromRecords)
}

// CheckedInByDepartment 部门内的应召记录（按应召顺序）
func (v View) CheckedInByDepartment(dept string) []model.CheckIn {
	var out []model.CheckIn
	for _, r := range v.records {
		if r.Dept == dept {
			out = append(out, r)
		}
	}
	return out
}

// DepartmentSummaries 各编成部应召人数与名册人数
func (v View) DepartmentSummaries() []DepartmentSummary {
	totals := make(map[string]int)
	for _, e := range v.catalog.Employees {
		totals[e.ControlDept]++
	}
	depts := v.OrderedDepartments()
	out := make([]DepartmentSummary, 0, len(depts))
	for _, d := range depts {
		out = append(out, DepartmentSummary{
			Dept:      d,
			CheckedIn: v.CountByDepartment(d),
			Total:     totals[d],
		})
	}
	return out
}

// HomeDepartments 소속부서 列表
func (v View) HomeDepartments() []string {
	return roster.HomeDepartments(v.catalog)
}

// MissionsForDepartment 编成部涉及的任务
func (v View) MissionsForDepartment(dept string) []model.Mission {
	return roster.MissionsForDepartment(v.catalog, dept)
}

// SuppliesFor 部门配备物品
func (v View) SuppliesFor(dept string) []model.Supply {
	return roster.SuppliesFor(v.catalog, dept)
}

// Unlisted 名册中找不到对应人员的应召记录数
func (v View) Unlisted() int {
	n := 0
	for _, r := range v.records {
		if _, ok := v.catalog.Employee(r.EmployeeID); !ok {
			n++
		}
	}
	return n
}
