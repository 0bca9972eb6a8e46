package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/mosa54/control-center/internal/model"
	"github.com/mosa54/control-center/pkg/localdb"
)

// IdentityStore 设备身份指针的持久化
type IdentityStore interface {
	// Load 未绑定时返回空字符串
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, employeeID string) error
	Clear(ctx context.Context) error
}

// ── SQLite ──

const identityKey = "device_identity"

type sqliteIdentityStore struct {
	db *localdb.Store
}

// NewSQLiteIdentityStore 以本地 SQLite 键值表保存身份指针
func NewSQLiteIdentityStore(db *localdb.Store) IdentityStore {
	return &sqliteIdentityStore{db: db}
}

func (s *sqliteIdentityStore) Load(ctx context.Context) (string, error) {
	v, err := s.db.Get(ctx, identityKey)
	if errors.Is(err, localdb.ErrKeyNotFound) {
		return "", nil
	}
	return v, err
}

func (s *sqliteIdentityStore) Save(ctx context.Context, employeeID string) error {
	return s.db.Set(ctx, identityKey, employeeID)
}

func (s *sqliteIdentityStore) Clear(ctx context.Context) error {
	return s.db.Delete(ctx, identityKey)
}

// ── 内存 ──

// MemoryIdentityStore 进程内身份指针，测试与服务端使用
type MemoryIdentityStore struct {
	mu sync.Mutex
	id string
}

func (m *MemoryIdentityStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, nil
}

func (m *MemoryIdentityStore) Save(_ context.Context, employeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = employeeID
	return nil
}

func (m *MemoryIdentityStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = ""
	return nil
}

// ── 绑定状态机 ──

// Binding 设备身份：Unbound → Bound(id) → Unbound
//
// 持久化的 ID 只是查找提示，当前记录始终取自最新一次读取的应召记录。
type Binding struct {
	mu         sync.RWMutex
	store      IdentityStore
	employeeID string
	record     *model.CheckIn
}

// NewBinding 创建未绑定状态
func NewBinding(store IdentityStore) *Binding {
	return &Binding{store: store}
}

// Restore 读取持久化的 ID 作为提示，需随后 Reconcile 才能确认
func (b *Binding) Restore(ctx context.Context) error {
	id, err := b.store.Load(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.employeeID = id
	b.record = nil
	return nil
}

// Bind 本设备应召成功后绑定
func (b *Binding) Bind(ctx context.Context, rec model.CheckIn) error {
	b.mu.Lock()
	b.employeeID = rec.EmployeeID
	b.record = &rec
	b.mu.Unlock()
	return b.store.Save(ctx, rec.EmployeeID)
}

// Unbind 解除绑定并清除持久化指针
func (b *Binding) Unbind(ctx context.Context) error {
	b.mu.Lock()
	b.employeeID = ""
	b.record = nil
	b.mu.Unlock()
	return b.store.Clear(ctx)
}

// EmployeeID 绑定的人员 ID
func (b *Binding) EmployeeID() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.employeeID, b.employeeID != ""
}

// Record 绑定人员的最新应召记录
func (b *Binding) Record() (model.CheckIn, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.record == nil {
		return model.CheckIn{}, false
	}
	return *b.record, true
}

// Reconcile 与最新应召记录对照：
// 记录不存在则解除绑定；存在则以该记录替换本地副本。返回是否解除了绑定
func (b *Binding) Reconcile(ctx context.Context, records []model.CheckIn) (bool, error) {
	b.mu.Lock()
	if b.employeeID == "" {
		b.mu.Unlock()
		return false, nil
	}
	for i := range records {
		if records[i].EmployeeID == b.employeeID {
			rec := records[i]
			b.record = &rec
			b.mu.Unlock()
			return false, nil
		}
	}
	b.employeeID = ""
	b.record = nil
	b.mu.Unlock()
	return true, b.store.Clear(ctx)
}
