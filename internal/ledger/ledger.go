// Package ledger 实现设备端的应召核心：本地快照、设备身份绑定与派生视图。
//
// 所有变更先经 Gateway 写入共享存储，写入成功后才修改本地快照；
// 写入失败时本地状态保持不变。
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mosa54/control-center/internal/gateway"
	"github.com/mosa54/control-center/internal/model"
	"github.com/mosa54/control-center/internal/roster"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// Ledger 应召记录的本地聚合
type Ledger struct {
	gw      gateway.Gateway
	binding *Binding
	order   []string
	logger  *zap.Logger
	now     func() time.Time

	// opMu 串行化本设备的读-判-写序列及快照替换
	opMu sync.Mutex

	mu      sync.RWMutex
	catalog *model.Catalog
	config  model.SessionConfig
	records []model.CheckIn

	listenMu  sync.Mutex
	listeners []func()
}

// Option 可选配置
type Option func(*Ledger)

// WithDepartmentOrder 编成部固定显示顺序
func WithDepartmentOrder(order []string) Option {
	return func(l *Ledger) { l.order = append([]string(nil), order...) }
}

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger 注入日志
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New 创建 Ledger，需调用 Load 后才有数据
func New(gw gateway.Gateway, identity IdentityStore, opts ...Option) *Ledger {
	l := &Ledger{
		gw:      gw,
		binding: NewBinding(identity),
		logger:  zap.NewNop(),
		now:     time.Now,
		catalog: &model.Catalog{},
		config:  model.DefaultSessionConfig(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ───── 加载与同步 ─────

// Load 启动时加载设置、名册与应召记录，并恢复设备身份
//
// 任一部分读取失败时该部分保留默认值，返回首个错误；调用方可记录后继续运行。
func (l *Ledger) Load(ctx context.Context) error {
	l.opMu.Lock()
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := l.binding.Restore(ctx); err != nil {
		l.logger.Error("读取设备身份失败", zap.Error(err))
		keep(err)
	}
	keep(l.refreshConfigLocked(ctx))
	keep(l.refreshLedgerLocked(ctx))
	l.opMu.Unlock()

	l.notifyListeners()
	return firstErr
}

// Refresh 重新读取应召记录并与设备身份对照
func (l *Ledger) Refresh(ctx context.Context) error {
	l.opMu.Lock()
	err := l.refreshLedgerLocked(ctx)
	l.opMu.Unlock()
	if err == nil {
		l.notifyListeners()
	}
	return err
}

// RefreshConfig 重新读取会话设置与名册
func (l *Ledger) RefreshConfig(ctx context.Context) error {
	l.opMu.Lock()
	err := l.refreshConfigLocked(ctx)
	l.opMu.Unlock()
	l.notifyListeners()
	return err
}

// refreshLedgerLocked 读取失败时保留旧快照，且不做身份对照
func (l *Ledger) refreshLedgerLocked(ctx context.Context) error {
	records, err := l.gw.LoadLedger(ctx)
	if err != nil {
		l.logger.Warn("读取应召记录失败，保留旧快照", zap.Error(err))
		return err
	}
	l.installLedger(ctx, records)
	return nil
}

func (l *Ledger) installLedger(ctx context.Context, records []model.CheckIn) {
	l.mu.Lock()
	l.records = records
	l.mu.Unlock()

	unbound, err := l.binding.Reconcile(ctx, records)
	if err != nil {
		l.logger.Error("清除设备身份失败", zap.Error(err))
	}
	if unbound {
		l.logger.Info("绑定人员的应召记录已被移除，设备解除绑定")
	}
}

func (l *Ledger) refreshConfigLocked(ctx context.Context) error {
	var firstErr error

	cfg, err := l.gw.LoadConfig(ctx)
	if err != nil {
		l.logger.Warn("读取会话设置失败", zap.Error(err))
		firstErr = err
	} else {
		l.mu.Lock()
		l.config = cfg
		l.mu.Unlock()
	}

	c, err := l.gw.LoadCatalog(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrCorrupted) {
			l.logger.Error("名册数据损坏", zap.Error(err))
		} else {
			l.logger.Warn("读取名册失败", zap.Error(err))
		}
		if firstErr == nil {
			firstErr = err
		}
	} else {
		l.mu.Lock()
		l.catalog = c
		l.mu.Unlock()
	}
	return firstErr
}

// Watch 保持快照最新：后端支持推送时订阅，否则按 interval 轮询。阻塞至 ctx 结束
func (l *Ledger) Watch(ctx context.Context, interval time.Duration) error {
	err := l.gw.Subscribe(ctx, gateway.Handlers{
		OnConfigChanged: func() { _ = l.RefreshConfig(ctx) },
		OnLedgerChanged: func() { _ = l.Refresh(ctx) },
	})
	if err == nil {
		l.logger.Info("已订阅变更推送")
		<-ctx.Done()
		return ctx.Err()
	}
	if errors.Is(err, apperrors.ErrPushUnsupported) {
		l.logger.Info("后端不支持推送，改为轮询", zap.Duration("interval", interval))
	} else {
		l.logger.Warn("订阅变更推送失败，改为轮询", zap.Error(err))
	}

	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = l.Refresh(ctx)
			_ = l.RefreshConfig(ctx)
		}
	}
}

// OnChange 注册快照变化回调，回调在锁外同步执行
func (l *Ledger) OnChange(fn func()) {
	l.listenMu.Lock()
	defer l.listenMu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *Ledger) notifyListeners() {
	l.listenMu.Lock()
	fns := append([]func(){}, l.listeners...)
	l.listenMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// mutate 在 opMu 内执行写操作，成功后释放锁再通知回调
func (l *Ledger) mutate(fn func() error) error {
	l.opMu.Lock()
	err := fn()
	l.opMu.Unlock()
	if err != nil {
		return err
	}
	l.notifyListeners()
	return nil
}

// ───── 读取 ─────

// View 当前快照的派生视图
func (l *Ledger) View() View {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return NewView(l.catalog, append([]model.CheckIn(nil), l.records...), l.order)
}

// Config 当前会话设置
func (l *Ledger) Config() model.SessionConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// Current 本设备绑定人员的应召记录
func (l *Ledger) Current() (model.CheckIn, bool) {
	return l.binding.Record()
}

// BoundEmployee 本设备绑定的人员 ID（可能尚未与记录对照）
func (l *Ledger) BoundEmployee() (string, bool) {
	return l.binding.EmployeeID()
}

// ───── CheckIn ─────

// CheckIn 为人员应召，返回共享存储中保存的记录
func (l *Ledger) CheckIn(ctx context.Context, employeeID string, status *model.DutyStatus) (model.CheckIn, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return model.CheckIn{}, apperrors.Validationf("人员 ID 不能为空")
	}

	var rec model.CheckIn
	err := l.mutate(func() error {
		var err error
		rec, err = l.checkInLocked(ctx, employeeID, status)
		return err
	})
	if err != nil {
		return model.CheckIn{}, err
	}
	return rec, nil
}

func (l *Ledger) checkInLocked(ctx context.Context, employeeID string, status *model.DutyStatus) (model.CheckIn, error) {
	l.mu.RLock()
	emp, ok := l.catalog.Employee(employeeID)
	var empCopy model.Employee
	if ok {
		empCopy = *emp
	}
	l.mu.RUnlock()
	if !ok {
		return model.CheckIn{}, apperrors.Validationf("名册中不存在该人员: %s", employeeID)
	}
	if err := roster.ValidateDutyStatus(&empCopy, status); err != nil {
		return model.CheckIn{}, err
	}

	// 写入前重新读取最新应召记录
	records, err := l.gw.LoadLedger(ctx)
	if err != nil {
		return model.CheckIn{}, err
	}
	l.installLedger(ctx, records)

	if _, bound := l.binding.Record(); bound {
		return model.CheckIn{}, apperrors.ErrDeviceCheckedIn
	}
	for _, r := range records {
		if r.EmployeeID == employeeID {
			return model.CheckIn{}, apperrors.ErrAlreadyCheckedIn
		}
	}

	rec := model.NewCheckIn(&empCopy, status, l.now())
	if err := l.gw.WriteCheckIn(ctx, rec); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return model.CheckIn{}, fmt.Errorf("%w: %v", apperrors.ErrAlreadyCheckedIn, err)
		}
		return model.CheckIn{}, err
	}

	stored := l.adoptStored(ctx, rec)
	if err := l.binding.Bind(ctx, stored); err != nil {
		l.logger.Error("保存设备身份失败", zap.String("employee_id", employeeID), zap.Error(err))
	}

	l.logger.Info("应召完成", zap.String("employee_id", employeeID), zap.String("dept", stored.Dept))
	return stored, nil
}

// adoptStored 写入后重新读取应召记录，以存储中的行（服务端 ID 与时间）为准；
// 读取失败或该行已不在时退回本机构造的记录
func (l *Ledger) adoptStored(ctx context.Context, rec model.CheckIn) model.CheckIn {
	records, err := l.gw.LoadLedger(ctx)
	if err != nil {
		l.logger.Warn("应召后重新读取失败，使用本机记录", zap.Error(err))
		l.mu.Lock()
		l.records = append(append([]model.CheckIn(nil), l.records...), rec)
		l.mu.Unlock()
		return rec
	}

	for _, r := range records {
		if r.EmployeeID == rec.EmployeeID {
			l.installLedger(ctx, records)
			return r
		}
	}
	l.installLedger(ctx, append(records, rec))
	return rec
}

// ───── CheckOut ─────

// CheckOut 取消人员应召，记录不存在时同样成功
func (l *Ledger) CheckOut(ctx context.Context, employeeID string) error {
	return l.mutate(func() error {
		return l.checkOutLocked(ctx, employeeID)
	})
}

// CancelMine 取消本设备绑定人员的应召
func (l *Ledger) CancelMine(ctx context.Context) error {
	return l.mutate(func() error {
		id, ok := l.binding.EmployeeID()
		if !ok {
			return apperrors.ErrNotCheckedIn
		}
		return l.checkOutLocked(ctx, id)
	})
}

func (l *Ledger) checkOutLocked(ctx context.Context, employeeID string) error {
	if strings.TrimSpace(employeeID) == "" {
		return apperrors.Validationf("人员 ID 不能为空")
	}
	if err := l.gw.DeleteCheckIn(ctx, employeeID); err != nil {
		return err
	}

	l.mu.Lock()
	kept := make([]model.CheckIn, 0, len(l.records))
	for _, r := range l.records {
		if r.EmployeeID != employeeID {
			kept = append(kept, r)
		}
	}
	l.records = kept
	l.mu.Unlock()

	if id, ok := l.binding.EmployeeID(); ok && id == employeeID {
		if err := l.binding.Unbind(ctx); err != nil {
			l.logger.Error("清除设备身份失败", zap.Error(err))
		}
	}
	l.logger.Info("取消应召", zap.String("employee_id", employeeID))
	return nil
}

// ───── ChangeDepartment ─────

// ChangeDepartment 调整应召人员的编成部
func (l *Ledger) ChangeDepartment(ctx context.Context, employeeID, dept string) error {
	dept = strings.TrimSpace(dept)
	if dept == "" {
		return apperrors.Validationf("编成部不能为空")
	}

	return l.mutate(func() error {
		return l.changeDepartmentLocked(ctx, employeeID, dept)
	})
}

func (l *Ledger) changeDepartmentLocked(ctx context.Context, employeeID, dept string) error {
	records, err := l.gw.LoadLedger(ctx)
	if err != nil {
		return err
	}
	l.installLedger(ctx, records)

	found := false
	for _, r := range records {
		if r.EmployeeID == employeeID {
			found = true
			break
		}
	}
	if !found {
		return apperrors.ErrNotCheckedIn
	}

	if err := l.gw.UpdateCheckInDepartment(ctx, employeeID, dept); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: %v", apperrors.ErrNotCheckedIn, err)
		}
		return err
	}

	l.mu.Lock()
	updated := append([]model.CheckIn(nil), l.records...)
	for i := range updated {
		if updated[i].EmployeeID == employeeID {
			updated[i].Dept = dept
		}
	}
	l.records = updated
	l.mu.Unlock()
	if _, err := l.binding.Reconcile(ctx, updated); err != nil {
		l.logger.Error("同步设备身份失败", zap.Error(err))
	}

	l.logger.Info("编成部调整", zap.String("employee_id", employeeID), zap.String("dept", dept))
	return nil
}

// ───── ResetAll ─────

// ResetAll 清空全部应召记录；其他设备在下次对照时被动解除绑定
func (l *Ledger) ResetAll(ctx context.Context) error {
	return l.mutate(func() error {
		if err := l.gw.DeleteAllCheckIns(ctx); err != nil {
			return err
		}

		l.mu.Lock()
		l.records = nil
		l.mu.Unlock()
		if err := l.binding.Unbind(ctx); err != nil {
			l.logger.Error("清除设备身份失败", zap.Error(err))
		}

		l.logger.Warn("已清空全部应召记录")
		return nil
	})
}

// ───── 会话设置 ─────

// SetMode 切换召集类型
func (l *Ledger) SetMode(ctx context.Context, mode model.SessionMode) error {
	if !mode.Valid() {
		return apperrors.Validationf("无效的召集类型: %s", mode)
	}

	return l.mutate(func() error {
		if err := l.gw.WriteConfig(ctx, model.ConfigPatch{Mode: &mode}); err != nil {
			return err
		}
		l.mu.Lock()
		l.config.Mode = mode
		l.config.UpdatedAt = l.now()
		l.mu.Unlock()
		return nil
	})
}

// SetSummary 修改会话概要，超长部分截断
func (l *Ledger) SetSummary(ctx context.Context, summary string) error {
	summary = model.TruncateSummary(summary)

	return l.mutate(func() error {
		if err := l.gw.WriteConfig(ctx, model.ConfigPatch{Summary: &summary}); err != nil {
			return err
		}
		l.mu.Lock()
		l.config.Summary = summary
		l.config.UpdatedAt = l.now()
		l.mu.Unlock()
		return nil
	})
}

// ReplaceCatalog 上传新名册
func (l *Ledger) ReplaceCatalog(ctx context.Context, c *model.Catalog) error {
	clean, err := roster.Sanitize(c)
	if err != nil {
		return err
	}
	if clean.UploadedAt.IsZero() {
		clean.UploadedAt = l.now()
	}

	return l.mutate(func() error {
		if err := l.gw.WriteConfig(ctx, model.ConfigPatch{Catalog: clean}); err != nil {
			return err
		}
		l.mu.Lock()
		l.catalog = clean
		l.mu.Unlock()

		l.logger.Info("名册已更新", zap.Int("employees", len(clean.Employees)), zap.Int("missions", len(clean.Missions)))
		return nil
	})
}
