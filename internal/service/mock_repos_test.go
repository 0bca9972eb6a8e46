package service

import (
	"context"
	"sync"
	"time"

	"github.com/mosa54/control-center/internal/gateway"
	"github.com/mosa54/control-center/internal/model"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// ── Mock Gateway ──

type mockGateway struct {
	mu      sync.Mutex
	config  model.SessionConfig
	catalog *model.Catalog
	records []model.CheckIn
	fail    error
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		config:  model.DefaultSessionConfig(),
		catalog: &model.Catalog{},
	}
}

func (m *mockGateway) LoadConfig(_ context.Context) (model.SessionConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return model.DefaultSessionConfig(), m.fail
	}
	return m.config, nil
}

func (m *mockGateway) LoadCatalog(_ context.Context) (*model.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	return m.catalog, nil
}

func (m *mockGateway) LoadLedger(_ context.Context) ([]model.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	return append([]model.CheckIn(nil), m.records...), nil
}

func (m *mockGateway) WriteConfig(_ context.Context, p model.ConfigPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if p.Mode != nil {
		if !p.Mode.Valid() {
			return apperrors.Validationf("无效的召集类型: %s", *p.Mode)
		}
		m.config.Mode = *p.Mode
	}
	if p.Summary != nil {
		m.config.Summary = model.TruncateSummary(*p.Summary)
	}
	if p.Catalog != nil {
		m.catalog = p.Catalog
	}
	m.config.UpdatedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return nil
}

func (m *mockGateway) WriteCheckIn(_ context.Context, rec model.CheckIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for _, r := range m.records {
		if r.EmployeeID == rec.EmployeeID {
			return apperrors.ErrDuplicate
		}
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockGateway) DeleteCheckIn(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	kept := m.records[:0]
	for _, r := range m.records {
		if r.EmployeeID != id {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return nil
}

func (m *mockGateway) DeleteAllCheckIns(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.records = nil
	return nil
}

func (m *mockGateway) UpdateCheckInDepartment(_ context.Context, id, dept string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for i := range m.records {
		if m.records[i].EmployeeID == id {
			m.records[i].Dept = dept
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *mockGateway) Subscribe(_ context.Context, _ gateway.Handlers) error {
	return apperrors.ErrPushUnsupported
}

// ── 测试数据 ──

func sampleRoster() *model.Catalog {
	return &model.Catalog{
		Employees: []model.Employee{
			{ID: "emp-1", Seq: 1, HomeDept: "119종합상황실", Name: "김소방", Position: "상황팀장", ControlDept: "대응계획부", DutyType: model.DutyTypeFixed, OnDutyMission: "P1"},
			{ID: "emp-2", Seq: 2, HomeDept: "구조대", Name: "이구조", Position: "구조대원", ControlDept: "현장지휘부", DutyType: model.DutyTypeShift, OnDutyMission: "F1", OffDutyMission: "F2"},
			{ID: "emp-3", Seq: 3, HomeDept: "구조대", Name: "박대원", Position: "구조대원", ControlDept: "현장지휘부", DutyType: model.DutyTypeShift, OnDutyMission: "F1", OffDutyMission: "F2"},
		},
		Missions: []model.Mission{
			{Code: "P1", Name: "상황판단"},
			{Code: "F1", Name: "현장통제"},
			{Code: "F2", Name: "자원대기"},
		},
		Supplies: []model.Supply{
			{Department: "현장지휘부", Items: "무전기, 조끼"},
		},
	}
}

var sampleOrder = []string{"긴급구조통제단장", "대응계획부", "현장지휘부"}

func dutyPtr(s model.DutyStatus) *model.DutyStatus { return &s }
