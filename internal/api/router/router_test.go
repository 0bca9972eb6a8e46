package router_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mosa54/control-center/config"
	"github.com/mosa54/control-center/internal/api/handler"
	"github.com/mosa54/control-center/internal/api/middleware"
	"github.com/mosa54/control-center/internal/api/router"
	"github.com/mosa54/control-center/internal/gateway"
	"github.com/mosa54/control-center/internal/ledger"
	"github.com/mosa54/control-center/internal/model"
	"github.com/mosa54/control-center/internal/notify"
	"github.com/mosa54/control-center/internal/service"
	apperrors "github.com/mosa54/control-center/pkg/errors"
	"github.com/mosa54/control-center/pkg/localdb"
	"github.com/mosa54/control-center/pkg/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	URL string
	Hub *notify.Hub
}

// newTestServer 以临时 SQLite 文件作为服务端共享存储启动完整路由
func newTestServer(t *testing.T, limiter middleware.RateLimiter, rateLimit int, health router.HealthChecker) *testServer {
	t.Helper()
	store, err := localdb.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema(context.Background()))

	cfg := &config.Config{
		Server: config.ServerConfig{
			CORS:             config.CORSConfig{AllowOrigins: []string{"*"}},
			MaxBodyBytes:     1 << 20,
			CheckInRateLimit: rateLimit,
		},
		Roster: config.RosterConfig{DepartmentOrder: config.DefaultDepartmentOrder},
	}

	logger := zap.NewNop()
	hub := notify.NewHub()
	t.Cleanup(func() { hub.Close() })

	svc := service.NewService(cfg, gateway.NewLocal(store, logger), logger)
	h := handler.NewHandler(svc, hub, logger)
	srv := httptest.NewServer(router.Setup(cfg, h, limiter, health, logger))
	t.Cleanup(srv.Close)
	return &testServer{URL: srv.URL, Hub: hub}
}

func newDevice(t *testing.T, url string) *ledger.Ledger {
	t.Helper()
	gw := gateway.NewRemote(url, 5*time.Second, zap.NewNop())
	l := ledger.New(gw, &ledger.MemoryIdentityStore{}, ledger.WithDepartmentOrder(config.DefaultDepartmentOrder))
	require.NoError(t, l.Load(context.Background()))
	return l
}

func routerCatalog() *model.Catalog {
	return &model.Catalog{
		Employees: []model.Employee{
			{ID: "emp-1", Seq: 1, HomeDept: "119종합상황실", Name: "김민수", Position: "상황관리요원", ControlDept: "대응계획부", DutyType: model.DutyTypeFixed, OnDutyMission: "P1"},
			{ID: "emp-2", Seq: 2, HomeDept: "구조대", Name: "이서연", Position: "구조대원", ControlDept: "현장지휘부", DutyType: model.DutyTypeShift, OnDutyMission: "F1", OffDutyMission: "F2"},
		},
		Missions: []model.Mission{
			{Code: "P1", Name: "상황판단"},
			{Code: "F1", Name: "현장지휘"},
			{Code: "F2", Name: "지원대기"},
		},
	}
}

func TestRouter_DevicesShareLedger(t *testing.T) {
	srv := newTestServer(t, nil, 0, nil)
	ctx := context.Background()

	a := newDevice(t, srv.URL)
	require.NoError(t, a.ReplaceCatalog(ctx, routerCatalog()))
	require.NoError(t, a.SetMode(ctx, model.SessionModeEmergency))

	b := newDevice(t, srv.URL)
	assert.Len(t, b.View().Catalog().Employees, 2)
	assert.Equal(t, model.SessionModeEmergency, b.Config().Mode)

	_, err := a.CheckIn(ctx, "emp-1", nil)
	require.NoError(t, err)

	// b 的快照尚未包含 emp-1，写入前重新读取后仍应拒绝
	_, err = b.CheckIn(ctx, "emp-1", nil)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCheckedIn)
	_, bound := b.BoundEmployee()
	assert.False(t, bound)

	off := model.DutyStatusOff
	rec, err := b.CheckIn(ctx, "emp-2", &off)
	require.NoError(t, err)
	assert.Equal(t, "현장지휘부", rec.Dept)
	m, ok := b.View().CurrentMission("emp-2")
	require.True(t, ok)
	assert.Equal(t, "F2", m.Code)

	require.NoError(t, a.Refresh(ctx))
	assert.Equal(t, 2, a.View().TotalCount())

	require.NoError(t, a.ChangeDepartment(ctx, "emp-2", "자원지원부"))
	require.NoError(t, b.Refresh(ctx))
	cur, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "자원지원부", cur.Dept)

	// 管理员清空后 a 被动解除绑定
	require.NoError(t, b.ResetAll(ctx))
	require.NoError(t, a.Refresh(ctx))
	_, bound = a.BoundEmployee()
	assert.False(t, bound)
	assert.Equal(t, 0, a.View().TotalCount())

	assert.ErrorIs(t, a.ChangeDepartment(ctx, "emp-1", "자원지원부"), apperrors.ErrNotCheckedIn)
}

func TestRouter_ServerValidatesCheckIn(t *testing.T) {
	srv := newTestServer(t, nil, 0, nil)
	ctx := context.Background()

	a := newDevice(t, srv.URL)
	require.NoError(t, a.ReplaceCatalog(ctx, routerCatalog()))

	// 直接绕过设备端校验，确认服务端同样拒绝
	gw := gateway.NewRemote(srv.URL, 5*time.Second, zap.NewNop())
	err := gw.WriteCheckIn(ctx, model.CheckIn{EmployeeID: "emp-2"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = gw.WriteCheckIn(ctx, model.CheckIn{EmployeeID: "ghost"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, gw.WriteCheckIn(ctx, model.CheckIn{EmployeeID: "emp-1"}))
	err = gw.WriteCheckIn(ctx, model.CheckIn{EmployeeID: "emp-1"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	err = gw.UpdateCheckInDepartment(ctx, "emp-2", "자원지원부")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// 取消应召幂等
	require.NoError(t, gw.DeleteCheckIn(ctx, "emp-2"))
}

func TestRouter_EventsReachRemote(t *testing.T) {
	srv := newTestServer(t, nil, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledgerChanged := make(chan struct{}, 1)
	gw := gateway.NewRemote(srv.URL, 5*time.Second, zap.NewNop())
	require.NoError(t, gw.Subscribe(ctx, gateway.Handlers{
		OnLedgerChanged: func() {
			select {
			case ledgerChanged <- struct{}{}:
			default:
			}
		},
	}))

	// 订阅建立后再发布
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ledgerChanged:
			return
		case <-tick.C:
			_ = srv.Hub.Publish(ctx, notify.NewEvent(notify.KindLedger))
		case <-deadline:
			t.Fatal("设备端未收到 ledger 变更事件")
		}
	}
}

func TestRouter_CheckInRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := redis.NewClient(&config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	srv := newTestServer(t, rdb, 2, nil)

	post := func() int {
		resp, err := http.Post(srv.URL+"/api/v1/checkins", "application/json", strings.NewReader(`{"employee_id":"ghost"}`))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	// 名册为空，前两次为参数错误，第三次被限流
	assert.Equal(t, http.StatusBadRequest, post())
	assert.Equal(t, http.StatusBadRequest, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	// 读接口不受限
	resp, err := http.Get(srv.URL + "/api/v1/checkins")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_Health(t *testing.T) {
	ok := newTestServer(t, nil, 0, func() error { return nil })
	resp, err := http.Get(ok.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down := newTestServer(t, nil, 0, func() error { return errors.New("db down") })
	resp, err = http.Get(down.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
