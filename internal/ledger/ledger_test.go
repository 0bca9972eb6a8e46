package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mosa54/control-center/internal/gateway"
	"github.com/mosa54/control-center/internal/model"
	apperrors "github.com/mosa54/control-center/pkg/errors"
	"github.com/mosa54/control-center/pkg/localdb"
)

// ── 内存 Gateway ──

type memGateway struct {
	mu        sync.Mutex
	config    model.SessionConfig
	catalog   *model.Catalog
	records   []model.CheckIn
	loadErr   error
	writeErr  error
	subscribe error
	writes    int
	// stamp 模拟服务端为新记录分配 ID 与时间
	stamp func(*model.CheckIn)
	// reloadErr 在首次写入应召记录后使 LoadLedger 失败
	reloadErr error
}

func newMemGateway(c *model.Catalog) *memGateway {
	return &memGateway{config: model.DefaultSessionConfig(), catalog: c, subscribe: apperrors.ErrPushUnsupported}
}

func (g *memGateway) LoadConfig(context.Context) (model.SessionConfig, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loadErr != nil {
		return model.DefaultSessionConfig(), g.loadErr
	}
	return g.config, nil
}

func (g *memGateway) LoadCatalog(context.Context) (*model.Catalog, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loadErr != nil {
		return nil, g.loadErr
	}
	return g.catalog, nil
}

func (g *memGateway) LoadLedger(context.Context) ([]model.CheckIn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loadErr != nil {
		return nil, g.loadErr
	}
	if g.reloadErr != nil && g.writes > 0 {
		return nil, g.reloadErr
	}
	return append([]model.CheckIn(nil), g.records...), nil
}

func (g *memGateway) WriteConfig(_ context.Context, p model.ConfigPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return g.writeErr
	}
	if p.Mode != nil {
		g.config.Mode = *p.Mode
	}
	if p.Summary != nil {
		g.config.Summary = *p.Summary
	}
	if p.Catalog != nil {
		g.catalog = p.Catalog
	}
	return nil
}

func (g *memGateway) WriteCheckIn(_ context.Context, rec model.CheckIn) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes++
	if g.writeErr != nil {
		return g.writeErr
	}
	for _, r := range g.records {
		if r.EmployeeID == rec.EmployeeID {
			return apperrors.ErrDuplicate
		}
	}
	if g.stamp != nil {
		g.stamp(&rec)
	}
	g.records = append(g.records, rec)
	return nil
}

func (g *memGateway) DeleteCheckIn(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return g.writeErr
	}
	kept := g.records[:0]
	for _, r := range g.records {
		if r.EmployeeID != id {
			kept = append(kept, r)
		}
	}
	g.records = kept
	return nil
}

func (g *memGateway) DeleteAllCheckIns(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return g.writeErr
	}
	g.records = nil
	return nil
}

func (g *memGateway) UpdateCheckInDepartment(_ context.Context, id, dept string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return g.writeErr
	}
	for i := range g.records {
		if g.records[i].EmployeeID == id {
			g.records[i].Dept = dept
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (g *memGateway) Subscribe(context.Context, gateway.Handlers) error {
	return g.subscribe
}

// removeExternally 模拟其他设备删除记录
func (g *memGateway) removeExternally(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.records[:0]
	for _, r := range g.records {
		if r.EmployeeID != id {
			kept = append(kept, r)
		}
	}
	g.records = kept
}

// ── 测试数据 ──

func testCatalog() *model.Catalog {
	return &model.Catalog{
		Employees: []model.Employee{
			{ID: "emp-1", Name: "김소방", Position: "팀장", ControlDept: "현장지휘부", DutyType: model.DutyTypeFixed, OnDutyMission: "M1"},
			{ID: "emp-2", Name: "이구조", Position: "대원", ControlDept: "자원지원부", DutyType: model.DutyTypeShift, OnDutyMission: "M1", OffDutyMission: "M2"},
			{ID: "emp-3", Name: "박구급", Position: "대원", ControlDept: "현장지휘부", DutyType: model.DutyTypeFixed},
		},
		Missions: []model.Mission{
			{Code: "M1", Name: "현장통제"},
			{Code: "M2", Name: "자원관리"},
		},
	}
}

var testOrder = []string{"긴급구조통제단장", "현장지휘부", "자원지원부"}

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func newTestLedger(t *testing.T, gw gateway.Gateway, identity IdentityStore) *Ledger {
	t.Helper()
	if identity == nil {
		identity = &MemoryIdentityStore{}
	}
	l := New(gw, identity, WithDepartmentOrder(testOrder), WithClock(fixedClock()), WithLogger(zap.NewNop()))
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	return l
}

func offDuty() *model.DutyStatus {
	s := model.DutyStatusOff
	return &s
}

// ── 测试 ──

func TestCheckIn_HappyPath(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	ctx := context.Background()

	rec, err := l.CheckIn(ctx, "emp-1", nil)
	if err != nil {
		t.Fatalf("CheckIn 失败: %v", err)
	}
	if rec.Dept != "현장지휘부" || rec.Name != "김소방" {
		t.Errorf("记录应复制名册字段，实际: %+v", rec)
	}

	v := l.View()
	if v.TotalCount() != 1 || v.CountByDepartment("현장지휘부") != 1 {
		t.Errorf("期望总数 1，实际 %d", v.TotalCount())
	}
	if !v.IsCheckedIn("emp-1") {
		t.Error("emp-1 应为已应召")
	}
	cur, ok := l.Current()
	if !ok || cur.EmployeeID != "emp-1" {
		t.Errorf("设备应绑定 emp-1，实际: %+v %v", cur, ok)
	}
}

func TestCheckIn_AdoptsStoredRecord(t *testing.T) {
	gw := newMemGateway(testCatalog())
	serverTime := time.Date(2026, 3, 1, 9, 0, 7, 0, time.UTC)
	gw.stamp = func(rec *model.CheckIn) {
		rec.ID = "srv-" + rec.EmployeeID
		rec.CheckedInAt = serverTime
	}
	l := newTestLedger(t, gw, nil)

	rec, err := l.CheckIn(context.Background(), "emp-1", nil)
	if err != nil {
		t.Fatalf("CheckIn 失败: %v", err)
	}
	if rec.ID != "srv-emp-1" || !rec.CheckedInAt.Equal(serverTime) {
		t.Errorf("应返回存储中的记录，实际: %+v", rec)
	}
	cur, ok := l.Current()
	if !ok || cur.ID != "srv-emp-1" || !cur.CheckedInAt.Equal(serverTime) {
		t.Errorf("绑定记录应为存储中的记录，实际: %+v %v", cur, ok)
	}
	if r, ok := l.View().Record("emp-1"); !ok || r.ID != "srv-emp-1" {
		t.Errorf("快照应为存储中的记录，实际: %+v %v", r, ok)
	}
}

func TestCheckIn_ReloadFailureKeepsLocalRecord(t *testing.T) {
	gw := newMemGateway(testCatalog())
	gw.reloadErr = apperrors.Unavailable("load", errors.New("offline"))
	l := newTestLedger(t, gw, nil)

	rec, err := l.CheckIn(context.Background(), "emp-1", nil)
	if err != nil {
		t.Fatalf("写入已成功，重新读取失败不应报错: %v", err)
	}
	if cur, ok := l.Current(); !ok || cur.EmployeeID != "emp-1" {
		t.Errorf("应绑定本机记录，实际: %+v %v", cur, ok)
	}
	if !l.View().IsCheckedIn(rec.EmployeeID) {
		t.Error("快照应包含本机记录")
	}
}

func TestCheckIn_EmptyID(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)

	for _, id := range []string{"", "   "} {
		if _, err := l.CheckIn(context.Background(), id, nil); !errors.Is(err, apperrors.ErrValidation) {
			t.Errorf("空 ID %q 应返回 ErrValidation，实际: %v", id, err)
		}
	}
	if gw.writes != 0 {
		t.Errorf("空 ID 不应写入，实际写入 %d 次", gw.writes)
	}
	if _, ok := l.BoundEmployee(); ok {
		t.Error("空 ID 不应绑定")
	}
}

func TestCheckIn_UnknownEmployee(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)

	_, err := l.CheckIn(context.Background(), "emp-404", nil)
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}
	if gw.writes != 0 {
		t.Error("校验失败不应写入")
	}
}

func TestCheckIn_DutyStatusRule(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	ctx := context.Background()

	if _, err := l.CheckIn(ctx, "emp-2", nil); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("交替勤务人员未选择당번/비번应被拒绝，实际: %v", err)
	}
	if _, err := l.CheckIn(ctx, "emp-1", offDuty()); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("일근人员携带당번/비번应被拒绝，实际: %v", err)
	}
	bad := model.DutyStatus("maybe")
	if _, err := l.CheckIn(ctx, "emp-2", &bad); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("非法状态应被拒绝，实际: %v", err)
	}
	if l.View().TotalCount() != 0 {
		t.Error("校验失败不应修改快照")
	}

	rec, err := l.CheckIn(ctx, "emp-2", offDuty())
	if err != nil {
		t.Fatalf("CheckIn 失败: %v", err)
	}
	if !rec.OffDuty() {
		t.Error("应记录비번")
	}
}

func TestCheckIn_Duplicate(t *testing.T) {
	gw := newMemGateway(testCatalog())
	a := newTestLedger(t, gw, nil)
	b := newTestLedger(t, gw, nil)
	ctx := context.Background()

	if _, err := a.CheckIn(ctx, "emp-1", nil); err != nil {
		t.Fatalf("CheckIn 失败: %v", err)
	}
	// b 的快照尚未刷新，写入前的重新读取应发现记录
	_, err := b.CheckIn(ctx, "emp-1", nil)
	if !errors.Is(err, apperrors.ErrAlreadyCheckedIn) {
		t.Errorf("期望 ErrAlreadyCheckedIn，实际: %v", err)
	}
	if errors.Is(err, apperrors.ErrDeviceCheckedIn) {
		t.Error("b 未绑定，不应返回 ErrDeviceCheckedIn")
	}
	if _, ok := b.Current(); ok {
		t.Error("失败的应召不应绑定设备")
	}
	if gw.writes != 1 {
		t.Errorf("重复应召不应到达写入，写入次数: %d", gw.writes)
	}
}

func TestCheckIn_StoreDuplicateIsAlreadyCheckedIn(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	gw.writeErr = apperrors.ErrDuplicate

	_, err := l.CheckIn(context.Background(), "emp-1", nil)
	if !errors.Is(err, apperrors.ErrAlreadyCheckedIn) {
		t.Errorf("唯一约束冲突应转换为 ErrAlreadyCheckedIn，实际: %v", err)
	}
	if l.View().TotalCount() != 0 {
		t.Error("写入失败不应修改快照")
	}
}

func TestCheckIn_DeviceAlreadyBound(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	ctx := context.Background()

	if _, err := l.CheckIn(ctx, "emp-1", nil); err != nil {
		t.Fatalf("CheckIn 失败: %v", err)
	}
	_, err := l.CheckIn(ctx, "emp-3", nil)
	if !errors.Is(err, apperrors.ErrDeviceCheckedIn) {
		t.Errorf("期望 ErrDeviceCheckedIn，实际: %v", err)
	}
	if !errors.Is(err, apperrors.ErrAlreadyCheckedIn) {
		t.Error("ErrDeviceCheckedIn 应属于 ErrAlreadyCheckedIn")
	}
}

func TestCheckIn_UnavailableLeavesStateUntouched(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	gw.writeErr = apperrors.Unavailable("write", errors.New("timeout"))

	_, err := l.CheckIn(context.Background(), "emp-1", nil)
	if !errors.Is(err, apperrors.ErrUnavailable) {
		t.Errorf("期望 ErrUnavailable，实际: %v", err)
	}
	if l.View().IsCheckedIn("emp-1") {
		t.Error("写入失败不应加入快照")
	}
	if _, ok := l.BoundEmployee(); ok {
		t.Error("写入失败不应绑定设备")
	}
}

func TestCheckIn_Concurrent(t *testing.T) {
	gw := newMemGateway(testCatalog())
	ctx := context.Background()

	const devices = 8
	ledgers := make([]*Ledger, devices)
	for i := range ledgers {
		ledgers[i] = newTestLedger(t, gw, nil)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0
	for _, l := range ledgers {
		wg.Add(1)
		go func(l *Ledger) {
			defer wg.Done()
			if _, err := l.CheckIn(ctx, "emp-1", nil); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			} else if !errors.Is(err, apperrors.ErrAlreadyCheckedIn) {
				t.Errorf("失败应为 ErrAlreadyCheckedIn，实际: %v", err)
			}
		}(l)
	}
	wg.Wait()

	if success != 1 {
		t.Errorf("同一人员只能应召一次，成功次数: %d", success)
	}
	records, _ := gw.LoadLedger(ctx)
	if len(records) != 1 {
		t.Errorf("共享存储应只有 1 条记录，实际 %d", len(records))
	}
}

func TestCheckOut_Idempotent(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	ctx := context.Background()

	if _, err := l.CheckIn(ctx, "emp-1", nil); err != nil {
		t.Fatalf("CheckIn 失败: %v", err)
	}
	if err := l.CheckOut(ctx, "emp-1"); err != nil {
		t.Fatalf("CheckOut 失败: %v", err)
	}
	if err := l.CheckOut(ctx, "emp-1"); err != nil {
		t.Errorf("重复 CheckOut 应成功，实际: %v", err)
	}
	if l.View().TotalCount() != 0 {
		t.Error("CheckOut 后快照应为空")
	}
	if _, ok := l.BoundEmployee(); ok {
		t.Error("取消本设备绑定人员后应解除绑定")
	}
}

func TestCheckOut_OtherEmployeeKeepsBinding(t *testing.T) {
	gw := newMemGateway(testCatalog())
	a := newTestLedger(t, gw, nil)
	b := newTestLedger(t, gw, nil)
	ctx := context.Background()

	if _, err := a.CheckIn(ctx, "emp-1", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := b.CheckIn(ctx, "emp-3", nil); err != nil {
		t.Fatal(err)
	}
	if err := a.CheckOut(ctx, "emp-3"); err != nil {
		t.Fatal(err)
	}
	if id, ok := a.BoundEmployee(); !ok || id != "emp-1" {
		t.Errorf("取消他人应召不应影响本设备绑定，实际: %q", id)
	}
}

func TestCancelMine(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	ctx := context.Background()

	if err := l.CancelMine(ctx); !errors.Is(err, apperrors.ErrNotCheckedIn) {
		t.Errorf("未绑定时期望 ErrNotCheckedIn，实际: %v", err)
	}
	if _, err := l.CheckIn(ctx, "emp-1", nil); err != nil {
		t.Fatal(err)
	}
	if err := l.CancelMine(ctx); err != nil {
		t.Fatalf("CancelMine 失败: %v", err)
	}
	if l.View().IsCheckedIn("emp-1") {
		t.Error("CancelMine 后应无记录")
	}
	// 取消后可为他人应召
	if _, err := l.CheckIn(ctx, "emp-3", nil); err != nil {
		t.Errorf("解除绑定后应可再次应召，实际: %v", err)
	}
}

func TestReconcile_ExternalRemoval(t *testing.T) {
	gw := newMemGateway(testCatalog())
	identity := &MemoryIdentityStore{}
	l := newTestLedger(t, gw, identity)
	ctx := context.Background()

	if _, err := l.CheckIn(ctx, "emp-1", nil); err != nil {
		t.Fatal(err)
	}
	gw.removeExternally("emp-1")

	if err := l.Refresh(ctx); err != nil {
		t.Fatalf("Refresh 失败: %v", err)
	}
	if _, ok := l.Current(); ok {
		t.Error("记录被外部删除后应解除绑定")
	}
	if id, _ := identity.Load(ctx); id != "" {
		t.Errorf("持久化身份应被清除，实际: %q", id)
	}
	if _, err := l.CheckIn(ctx, "emp-3", nil); err != nil {
		t.Errorf("解除绑定后应可应召，实际: %v", err)
	}
}

func TestReconcile_RefreshFailureKeepsSnapshot(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	ctx := context.Background()

	if _, err := l.CheckIn(ctx, "emp-1", nil); err != nil {
		t.Fatal(err)
	}
	gw.removeExternally("emp-1")
	gw.loadErr = apperrors.Unavailable("load", errors.New("offline"))

	if err := l.Refresh(ctx); !errors.Is(err, apperrors.ErrUnavailable) {
		t.Errorf("期望 ErrUnavailable，实际: %v", err)
	}
	if !l.View().IsCheckedIn("emp-1") {
		t.Error("读取失败应保留旧快照")
	}
	if _, ok := l.Current(); !ok {
		t.Error("读取失败不应解除绑定")
	}
}

func TestRestore_IdentitySurvivesRestart(t *testing.T) {
	gw := newMemGateway(testCatalog())
	identity := &MemoryIdentityStore{}
	first := newTestLedger(t, gw, identity)
	ctx := context.Background()

	if _, err := first.CheckIn(ctx, "emp-2", offDuty()); err != nil {
		t.Fatal(err)
	}

	second := newTestLedger(t, gw, identity)
	cur, ok := second.Current()
	if !ok || cur.EmployeeID != "emp-2" {
		t.Fatalf("重启后应恢复绑定，实际: %+v %v", cur, ok)
	}
	if _, err := second.CheckIn(ctx, "emp-1", nil); !errors.Is(err, apperrors.ErrDeviceCheckedIn) {
		t.Errorf("恢复绑定后期望 ErrDeviceCheckedIn，实际: %v", err)
	}

	// 重启期间记录被删除，身份提示失效
	gw.removeExternally("emp-2")
	third := newTestLedger(t, gw, identity)
	if _, ok := third.BoundEmployee(); ok {
		t.Error("记录不存在时重启不应保持绑定")
	}
}

func TestChangeDepartment(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	ctx := context.Background()

	if err := l.ChangeDepartment(ctx, "emp-1", "자원지원부"); !errors.Is(err, apperrors.ErrNotCheckedIn) {
		t.Errorf("未应召时期望 ErrNotCheckedIn，实际: %v", err)
	}
	if _, err := l.CheckIn(ctx, "emp-1", nil); err != nil {
		t.Fatal(err)
	}
	if err := l.ChangeDepartment(ctx, "emp-1", "  "); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("空部门期望 ErrValidation，实际: %v", err)
	}
	if err := l.ChangeDepartment(ctx, "emp-1", "자원지원부"); err != nil {
		t.Fatalf("ChangeDepartment 失败: %v", err)
	}

	v := l.View()
	if v.CountByDepartment("자원지원부") != 1 || v.CountByDepartment("현장지휘부") != 0 {
		t.Error("部门计数应随调动更新")
	}
	cur, _ := l.Current()
	if cur.Dept != "자원지원부" {
		t.Errorf("绑定记录应同步新部门，实际: %s", cur.Dept)
	}
}

func TestChangeDepartment_RemovedConcurrently(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	ctx := context.Background()

	if _, err := l.CheckIn(ctx, "emp-1", nil); err != nil {
		t.Fatal(err)
	}
	gw.removeExternally("emp-1")

	if err := l.ChangeDepartment(ctx, "emp-1", "자원지원부"); !errors.Is(err, apperrors.ErrNotCheckedIn) {
		t.Errorf("记录已被删除时期望 ErrNotCheckedIn，实际: %v", err)
	}
}

func TestResetAll(t *testing.T) {
	gw := newMemGateway(testCatalog())
	a := newTestLedger(t, gw, nil)
	b := newTestLedger(t, gw, nil)
	ctx := context.Background()

	if _, err := a.CheckIn(ctx, "emp-1", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := b.CheckIn(ctx, "emp-3", nil); err != nil {
		t.Fatal(err)
	}
	if err := a.ResetAll(ctx); err != nil {
		t.Fatalf("ResetAll 失败: %v", err)
	}
	if a.View().TotalCount() != 0 {
		t.Error("ResetAll 后快照应为空")
	}
	if _, ok := a.BoundEmployee(); ok {
		t.Error("执行重置的设备应解除绑定")
	}

	// 其他设备在下次刷新时被动解除绑定
	if _, ok := b.BoundEmployee(); !ok {
		t.Fatal("b 在刷新前仍应保持绑定")
	}
	if err := b.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := b.BoundEmployee(); ok {
		t.Error("b 刷新后应解除绑定")
	}
}

func TestSessionSettings(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	ctx := context.Background()

	if err := l.SetMode(ctx, model.SessionMode("party")); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("非法模式期望 ErrValidation，实际: %v", err)
	}
	if err := l.SetMode(ctx, model.SessionModeEmergency); err != nil {
		t.Fatal(err)
	}
	if err := l.SetSummary(ctx, strings.Repeat("화", 300)); err != nil {
		t.Fatal(err)
	}

	cfg := l.Config()
	if cfg.Mode != model.SessionModeEmergency {
		t.Errorf("期望 emergency，实际 %s", cfg.Mode)
	}
	if n := len([]rune(cfg.Summary)); n != model.SummaryMaxLen {
		t.Errorf("概要应截断到 %d 字，实际 %d", model.SummaryMaxLen, n)
	}
	if gw.config.Summary != cfg.Summary {
		t.Error("共享存储与本地设置应一致")
	}

	gw.writeErr = apperrors.Unavailable("write", errors.New("offline"))
	if err := l.SetMode(ctx, model.SessionModeDrill); err == nil {
		t.Error("写入失败应返回错误")
	}
	if l.Config().Mode != model.SessionModeEmergency {
		t.Error("写入失败不应修改本地设置")
	}
}

func TestReplaceCatalog(t *testing.T) {
	gw := newMemGateway(&model.Catalog{})
	l := newTestLedger(t, gw, nil)

	c := testCatalog()
	c.Employees = append(c.Employees, model.Employee{ID: "emp-9"})
	if err := l.ReplaceCatalog(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	got := l.View().Catalog()
	if len(got.Employees) != 3 {
		t.Errorf("无姓名无职位的人员应被丢弃，实际 %d 人", len(got.Employees))
	}
	if got.UploadedAt.IsZero() {
		t.Error("应记录上传时间")
	}
}

func TestLoad_UnavailableUsesDefaults(t *testing.T) {
	gw := newMemGateway(testCatalog())
	gw.loadErr = apperrors.Unavailable("load", errors.New("offline"))
	l := New(gw, &MemoryIdentityStore{})

	err := l.Load(context.Background())
	if !errors.Is(err, apperrors.ErrUnavailable) {
		t.Errorf("期望 ErrUnavailable，实际: %v", err)
	}
	if l.Config().Mode != model.SessionModeDrill {
		t.Error("不可用时应使用默认设置")
	}
	if l.View().TotalCount() != 0 {
		t.Error("不可用时快照应为空")
	}
}

func TestOnChange_ListenerMayCallBack(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)
	ctx := context.Background()

	var inner atomic.Bool
	var refreshed atomic.Int32
	l.OnChange(func() {
		if !inner.CompareAndSwap(false, true) {
			return
		}
		defer inner.Store(false)
		if err := l.Refresh(ctx); err == nil {
			refreshed.Add(1)
		}
		_ = l.View()
	})

	steps := []struct {
		name string
		run  func() error
	}{
		{"CheckIn", func() error { _, err := l.CheckIn(ctx, "emp-1", nil); return err }},
		{"ChangeDepartment", func() error { return l.ChangeDepartment(ctx, "emp-1", "자원지원부") }},
		{"SetMode", func() error { return l.SetMode(ctx, model.SessionModeEmergency) }},
		{"SetSummary", func() error { return l.SetSummary(ctx, "공장 화재") }},
		{"CheckOut", func() error { return l.CheckOut(ctx, "emp-3") }},
		{"CancelMine", func() error { return l.CancelMine(ctx) }},
		{"ResetAll", func() error { return l.ResetAll(ctx) }},
		{"ReplaceCatalog", func() error { return l.ReplaceCatalog(ctx, testCatalog()) }},
		{"Load", func() error { return l.Load(ctx) }},
	}
	for _, step := range steps {
		done := make(chan error, 1)
		go func() { done <- step.run() }()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("%s 失败: %v", step.name, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s 未返回：回调中调用 Refresh 发生死锁", step.name)
		}
	}
	if got := refreshed.Load(); got != int32(len(steps)) {
		t.Errorf("每次变化回调都应能完成 Refresh，期望 %d 次，实际 %d", len(steps), got)
	}
}

func TestWatch_PollingFallback(t *testing.T) {
	gw := newMemGateway(testCatalog())
	l := newTestLedger(t, gw, nil)

	changed := make(chan struct{}, 8)
	l.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Watch(ctx, 10*time.Millisecond) }()

	gw.mu.Lock()
	gw.records = append(gw.records, model.CheckIn{EmployeeID: "emp-3", Dept: "현장지휘부"})
	gw.mu.Unlock()

	deadline := time.After(2 * time.Second)
	for !l.View().IsCheckedIn("emp-3") {
		select {
		case <-changed:
		case <-deadline:
			t.Fatal("轮询应获取到外部写入")
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled，实际: %v", err)
	}
}

func TestLedger_OverLocalGateway(t *testing.T) {
	db, err := localdb.Open(filepath.Join(t.TempDir(), "device.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	if err := db.InitSchema(ctx); err != nil {
		t.Fatal(err)
	}

	gw := gateway.NewLocal(db, zap.NewNop())
	identity := NewSQLiteIdentityStore(db)
	l := newTestLedger(t, gw, identity)
	if err := l.ReplaceCatalog(ctx, testCatalog()); err != nil {
		t.Fatal(err)
	}
	if _, err := l.CheckIn(ctx, "emp-2", offDuty()); err != nil {
		t.Fatalf("CheckIn 失败: %v", err)
	}

	// 同一数据文件重新打开
	again := newTestLedger(t, gw, NewSQLiteIdentityStore(db))
	cur, ok := again.Current()
	if !ok || cur.EmployeeID != "emp-2" || !cur.OffDuty() {
		t.Errorf("应从本地文件恢复绑定，实际: %+v %v", cur, ok)
	}
	m, ok := again.View().CurrentMission("emp-2")
	if !ok || m.Code != "M2" {
		t.Errorf("비번应解析为 M2，实际: %+v", m)
	}
	if err := again.CancelMine(ctx); err != nil {
		t.Fatal(err)
	}
	if id, _ := identity.Load(ctx); id != "" {
		t.Errorf("取消后持久化身份应清除，实际: %q", id)
	}
}
