package roster

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mosa54/control-center/internal/model"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// ── 名册工作簿解析 ──────────────────────────────────────────
//
// 工作簿结构：
//   - 第 1 张表：직원별 임무（每行一名人员，行号生成 emp-<n>）
//   - 第 2 张表：임무코드
//   - 第 3 张表（可选）：부서별 비치물품
//
// 表头同时接受韩文与英文列名，空行不计入行号。
// ─────────────────────────────────────────────────────────────

// MaxWorkbookSize 上传工作簿大小上限
const MaxWorkbookSize = 5 * 1024 * 1024

var employeeHeaders = map[string]string{
	"순": "seq", "seq": "seq",
	"소속부서": "home_dept", "home_dept": "home_dept",
	"직급": "rank", "rank": "rank",
	"성명": "name", "name": "name",
	"직위": "position", "position": "position",
	"통제단편성부": "control_dept", "control_dept": "control_dept",
	"근무형태": "duty_type", "duty_type": "duty_type",
	"임무코드_당번": "on_duty_mission", "임무코드": "on_duty_mission", "on_duty_mission": "on_duty_mission",
	"임무코드_비번": "off_duty_mission", "off_duty_mission": "off_duty_mission",
	"비고": "note", "note": "note",
}

var missionHeaders = map[string]string{
	"임무코드": "code", "code": "code",
	"임무명": "name", "name": "name",
	"임무내용": "description", "description": "description",
}

var supplyHeaders = map[string]string{
	"부서": "department", "통제단편성부": "department", "department": "department",
	"비치물품": "items", "내용": "items", "물품": "items", "items": "items",
}

// ParseWorkbook 解析名册工作簿并完成边界清洗
func ParseWorkbook(r io.Reader, uploadedAt time.Time) (*model.Catalog, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Validationf("无法读取工作簿: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) < 2 {
		return nil, apperrors.Validationf("工作簿至少需要人员与任务两张表，实际 %d 张", len(sheets))
	}

	empRows, err := sheetRecords(f, sheets[0], employeeHeaders)
	if err != nil {
		return nil, err
	}
	missionRows, err := sheetRecords(f, sheets[1], missionHeaders)
	if err != nil {
		return nil, err
	}
	var supplyRows []map[string]string
	if len(sheets) > 2 {
		if supplyRows, err = sheetRecords(f, sheets[2], supplyHeaders); err != nil {
			return nil, err
		}
	}

	raw := &model.Catalog{UploadedAt: uploadedAt}
	for i, row := range empRows {
		seq, convErr := strconv.Atoi(row["seq"])
		if convErr != nil || seq == 0 {
			seq = i + 1
		}
		raw.Employees = append(raw.Employees, model.Employee{
			ID:             fmt.Sprintf("emp-%d", i+1),
			Seq:            seq,
			HomeDept:       row["home_dept"],
			Rank:           row["rank"],
			Name:           row["name"],
			Position:       row["position"],
			ControlDept:    row["control_dept"],
			DutyType:       NormalizeDutyType(row["duty_type"]),
			OnDutyMission:  row["on_duty_mission"],
			OffDutyMission: row["off_duty_mission"],
			Note:           row["note"],
		})
	}
	for _, row := range missionRows {
		raw.Missions = append(raw.Missions, model.Mission{
			Code:        row["code"],
			Name:        row["name"],
			Description: row["description"],
		})
	}
	for _, row := range supplyRows {
		raw.Supplies = append(raw.Supplies, model.Supply{
			Department: row["department"],
			Items:      row["items"],
		})
	}

	return Sanitize(raw)
}

// sheetRecords 将表格转为 字段名→单元格 的记录，首行为表头
func sheetRecords(f *excelize.File, sheet string, headers map[string]string) ([]map[string]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.Validationf("读取工作表 %s 失败: %v", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	fields := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		fields[i] = headers[strings.TrimSpace(h)]
	}

	var out []map[string]string
	for _, row := range rows[1:] {
		rec := make(map[string]string)
		for i, v := range row {
			if i >= len(fields) || fields[i] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			// 同一字段出现多个别名列时保留第一个非空值
			if _, ok := rec[fields[i]]; !ok {
				rec[fields[i]] = v
			}
		}
		if len(rec) == 0 {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
