package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mosa54/control-center/internal/model"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportCheckIns 导出应召现况为 Excel
	ExportCheckIns(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	checkIn CheckInService
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(checkIn CheckInService, logger *zap.Logger) ExportService {
	return &exportService{checkIn: checkIn, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// ExportCheckIns — 导出应召现况
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "현황"：编成部 | 응소 | 편성 인원
//   - 每个编成部一个 Sheet：순번 | 성명 | 직위 | 당번/비번 | 응소 시각 | 임무
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

var checkInHeader = []interface{}{"순번", "성명", "직위", "당번/비번", "응소 시각", "임무"}

func (s *exportService) ExportCheckIns(ctx context.Context) (*bytes.Buffer, string, error) {
	v, err := s.checkIn.Snapshot(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#C00000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 汇总表
	summarySheet := "현황"
	idx, _ := f.NewSheet(summarySheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	f.SetColWidth(summarySheet, "A", "A", 20)
	f.SetColWidth(summarySheet, "B", "C", 12)

	_ = f.SetSheetRow(summarySheet, "A1", &[]interface{}{"편성부", "응소", "편성 인원"})
	f.SetCellStyle(summarySheet, "A1", "C1", headerStyle)

	row := 2
	for _, sum := range v.DepartmentSummaries() {
		_ = f.SetSheetRow(summarySheet, cell("A", row), &[]interface{}{sum.Dept, sum.CheckedIn, sum.Total})
		row++
	}
	_ = f.SetSheetRow(summarySheet, cell("A", row), &[]interface{}{"합계", v.TotalCount(), len(v.Catalog().Employees)})

	// 各编成部明细
	used := map[string]bool{summarySheet: true}
	for _, dept := range v.OrderedDepartments() {
		members := v.CheckedInByDepartment(dept)
		if len(members) == 0 {
			continue
		}
		name := sheetName(dept, used)
		if _, err := f.NewSheet(name); err != nil {
			s.logger.Error("创建工作表失败", zap.String("dept", dept), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
		f.SetColWidth(name, "A", "A", 8)
		f.SetColWidth(name, "B", "D", 14)
		f.SetColWidth(name, "E", "E", 20)
		f.SetColWidth(name, "F", "F", 24)

		_ = f.SetSheetRow(name, "A1", &checkInHeader)
		f.SetCellStyle(name, "A1", colName(len(checkInHeader)-1)+"1", headerStyle)

		for i, rec := range members {
			missionName := "-"
			if m, ok := v.CurrentMission(rec.EmployeeID); ok {
				missionName = m.Name
			}
			_ = f.SetSheetRow(name, cell("A", i+2), &[]interface{}{
				i + 1,
				rec.Name,
				rec.Position,
				dutyLabel(rec.DutyStatus),
				rec.CheckedInAt.Local().Format("2006-01-02 15:04:05"),
				missionName,
			})
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("응소현황_%s.xlsx", s.now().Format("20060102_1504"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func dutyLabel(s *model.DutyStatus) string {
	if s == nil {
		return "-"
	}
	if *s == model.DutyStatusOff {
		return "비번"
	}
	return "당번"
}

// sheetName Excel 工作表名最多 31 个字符且不得包含 : \ / ? * [ ]
func sheetName(dept string, used map[string]bool) string {
	r := []rune(dept)
	out := make([]rune, 0, len(r))
	for _, c := range r {
		switch c {
		case ':', '\\', '/', '?', '*', '[', ']':
			out = append(out, '_')
		default:
			out = append(out, c)
		}
	}
	if len(out) > 28 {
		out = out[:28]
	}
	base := string(out)
	if base == "" {
		base = "미지정"
	}
	name := base
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("%s(%d)", base, i)
	}
	used[name] = true
	return name
}
