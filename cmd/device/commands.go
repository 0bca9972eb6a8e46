package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mosa54/control-center/internal/ledger"
	"github.com/mosa54/control-center/internal/model"
	"github.com/mosa54/control-center/internal/roster"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// app 命令分发
type app struct {
	ledger       *ledger.Ledger
	out          io.Writer
	pollInterval time.Duration
	now          func() time.Time
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.status()
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "status":
		return a.status()
	case "checkin":
		return a.checkIn(ctx, rest)
	case "checkout":
		if len(rest) != 1 {
			return apperrors.Validationf("用法: checkout <id>")
		}
		if err := a.ledger.CheckOut(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "已取消 %s 的应召\n", rest[0])
		return nil
	case "cancel":
		if err := a.ledger.CancelMine(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "已取消本机应召")
		return nil
	case "transfer":
		if len(rest) < 2 {
			return apperrors.Validationf("用法: transfer <id> <编成部>")
		}
		dept := strings.Join(rest[1:], " ")
		if err := a.ledger.ChangeDepartment(ctx, rest[0], dept); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s 已调整至 %s\n", rest[0], dept)
		return nil
	case "reset":
		if err := a.ledger.ResetAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "已清空全部应召记录")
		return nil
	case "mode":
		if len(rest) != 1 {
			return apperrors.Validationf("用法: mode <drill|emergency>")
		}
		if err := a.ledger.SetMode(ctx, model.SessionMode(rest[0])); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "召集类型: %s\n", modeLabel(model.SessionMode(rest[0])))
		return nil
	case "summary":
		if err := a.ledger.SetSummary(ctx, strings.Join(rest, " ")); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "已更新灾情概要")
		return nil
	case "import":
		return a.importRoster(ctx, rest)
	case "mission":
		return a.mission(rest)
	case "watch":
		return a.watch(ctx)
	default:
		return apperrors.Validationf("未知命令 %q", cmd)
	}
}

// ─── CheckIn ───

func (a *app) checkIn(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return apperrors.Validationf("用法: checkin <id> [on|off]")
	}

	var status *model.DutyStatus
	if len(args) == 2 {
		s, err := parseDutyStatus(args[1])
		if err != nil {
			return err
		}
		status = &s
	}

	rec, err := a.ledger.CheckIn(ctx, args[0], status)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s 应召完成 → %s\n", rec.Position, rec.Name, rec.Dept)
	if m, ok := a.ledger.View().CurrentMission(rec.EmployeeID); ok {
		renderMission(a.out, a.ledger.View(), rec.EmployeeID, m)
	}
	return nil
}

func parseDutyStatus(s string) (model.DutyStatus, error) {
	switch strings.ToLower(s) {
	case "on", "on_duty", "당번":
		return model.DutyStatusOn, nil
	case "off", "off_duty", "비번":
		return model.DutyStatusOff, nil
	default:
		return "", apperrors.Validationf("无效的당번/비번 %q", s)
	}
}

// ─── Import ───

func (a *app) importRoster(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperrors.Validationf("用法: import <文件>")
	}
	path := args[0]

	var (
		c   *model.Catalog
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		c, err = roster.LoadSeedFile(path)
	case ".xlsx":
		c, err = a.parseWorkbook(path)
	default:
		return apperrors.Validationf("仅支持 .xlsx 或 .yaml 名册")
	}
	if err != nil {
		return err
	}

	if err := a.ledger.ReplaceCatalog(ctx, c); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "已导入名册: %d 人, %d 项任务, %d 项物资\n",
		len(c.Employees), len(c.Missions), len(c.Supplies))
	return nil
}

func (a *app) parseWorkbook(path string) (*model.Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > roster.MaxWorkbookSize {
		return nil, apperrors.Validationf("名册文件过大（上限 %d 字节）", roster.MaxWorkbookSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return roster.ParseWorkbook(f, a.clock())
}

// ─── Mission ───

func (a *app) mission(args []string) error {
	view := a.ledger.View()

	var id string
	switch len(args) {
	case 0:
		bound, ok := a.ledger.BoundEmployee()
		if !ok {
			return fmt.Errorf("本机尚未应召: %w", apperrors.ErrNotCheckedIn)
		}
		id = bound
	case 1:
		id = args[0]
	default:
		return apperrors.Validationf("用法: mission [id]")
	}

	m, ok := view.CurrentMission(id)
	if !ok {
		if !view.IsCheckedIn(id) {
			return fmt.Errorf("%s: %w", id, apperrors.ErrNotCheckedIn)
		}
		fmt.Fprintf(a.out, "%s 没有对应的任务卡\n", id)
		return nil
	}
	renderMission(a.out, view, id, m)
	return nil
}

// ─── Status / Watch ───

func (a *app) status() error {
	bound, _ := a.ledger.BoundEmployee()
	renderStatus(a.out, a.ledger.Config(), a.ledger.View(), bound)
	return nil
}

// watch 每次快照变化时重绘，Ctrl+C 退出
func (a *app) watch(ctx context.Context) error {
	changed := make(chan struct{}, 1)
	a.ledger.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	done := make(chan error, 1)
	go func() { done <- a.ledger.Watch(ctx, a.pollInterval) }()

	_ = a.status()
	for {
		select {
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-changed:
			fmt.Fprintln(a.out)
			_ = a.status()
		}
	}
}

func (a *app) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}
