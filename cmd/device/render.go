package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mosa54/control-center/internal/ledger"
	"github.com/mosa54/control-center/internal/model"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	drillStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	emergencyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	deptStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	boundStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
)

func modeLabel(m model.SessionMode) string {
	switch m {
	case model.SessionModeEmergency:
		return "실제 비상소집"
	default:
		return "훈련"
	}
}

func dutyLabel(s *model.DutyStatus) string {
	if s == nil {
		return ""
	}
	if *s == model.DutyStatusOff {
		return "비번"
	}
	return "당번"
}

// renderStatus 会话设置、本机身份与各编成部应召情况
func renderStatus(w io.Writer, cfg model.SessionConfig, view ledger.View, bound string) {
	style := drillStyle
	if cfg.Mode == model.SessionModeEmergency {
		style = emergencyStyle
	}
	fmt.Fprintf(w, "%s  %s\n", titleStyle.Render("긴급구조통제단 응소 현황"), style.Render("["+modeLabel(cfg.Mode)+"]"))
	if cfg.Summary != "" {
		fmt.Fprintf(w, "개요: %s\n", cfg.Summary)
	}

	if bound != "" {
		if rec, ok := view.Record(bound); ok {
			fmt.Fprintf(w, "본 단말: %s\n", boundStyle.Render(fmt.Sprintf("%s %s (%s)", rec.Position, rec.Name, rec.Dept)))
		} else {
			fmt.Fprintf(w, "본 단말: %s\n", mutedStyle.Render(bound+" (확인 중)"))
		}
	} else {
		fmt.Fprintln(w, mutedStyle.Render("본 단말: 미응소"))
	}

	fmt.Fprintf(w, "응소 %d / %d 명\n", view.TotalCount(), len(view.Catalog().Employees))

	for _, s := range view.DepartmentSummaries() {
		fmt.Fprintf(w, "\n%s %s\n", deptStyle.Render(s.Dept), mutedStyle.Render(fmt.Sprintf("%d/%d", s.CheckedIn, s.Total)))
		for _, r := range view.CheckedInByDepartment(s.Dept) {
			line := fmt.Sprintf("  %s %s  %s", r.Position, r.Name, r.CheckedInAt.Local().Format("15:04:05"))
			if d := dutyLabel(r.DutyStatus); d != "" {
				line += "  " + d
			}
			fmt.Fprintln(w, line)
		}
	}

	if n := view.Unlisted(); n > 0 {
		fmt.Fprintf(w, "\n%s\n", mutedStyle.Render(fmt.Sprintf("명단에 없는 응소 기록 %d 건", n)))
	}
}

// renderMission 任务卡
func renderMission(w io.Writer, view ledger.View, employeeID string, m *model.Mission) {
	fmt.Fprintf(w, "\n%s %s\n", titleStyle.Render("임무"), deptStyle.Render(m.Code+" "+m.Name))
	if desc := strings.TrimSpace(m.Description); desc != "" {
		for _, line := range strings.Split(desc, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	rec, ok := view.Record(employeeID)
	if !ok {
		return
	}
	for _, s := range view.SuppliesFor(rec.Dept) {
		fmt.Fprintf(w, "%s %s\n", mutedStyle.Render("휴대품:"), s.Items)
	}
}
