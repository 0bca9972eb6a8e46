package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mosa54/control-center/internal/dto"
	"github.com/mosa54/control-center/internal/model"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

const eventsPath = "/api/v1/events"

// envelope 服务端统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Kind    apperrors.Kind  `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

// Remote 设备端实现：经 HTTP 访问服务端，推送走 SSE
type Remote struct {
	client        *resty.Client
	stream        *resty.Client
	logger        *zap.Logger
	reconnectWait time.Duration
}

// NewRemote 创建设备端 Gateway
func NewRemote(baseURL string, timeout time.Duration, logger *zap.Logger) *Remote {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		// 只重试读取；写入重试可能把自己的成功误判为冲突
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	// 长连接不设超时，由 ctx 控制
	stream := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache")

	return &Remote{
		client:        client,
		stream:        stream,
		logger:        logger,
		reconnectWait: 2 * time.Second,
	}
}

// ── 读取 ──

func (r *Remote) LoadConfig(ctx context.Context) (model.SessionConfig, error) {
	var resp dto.SettingsResponse
	if err := r.call(ctx, "load_config", http.MethodGet, "/api/v1/settings", nil, &resp); err != nil {
		return model.DefaultSessionConfig(), err
	}
	return resp.ToSessionConfig(), nil
}

func (r *Remote) LoadCatalog(ctx context.Context) (*model.Catalog, error) {
	var c model.Catalog
	if err := r.call(ctx, "load_catalog", http.MethodGet, "/api/v1/catalog", nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Remote) LoadLedger(ctx context.Context) ([]model.CheckIn, error) {
	var list []model.CheckIn
	if err := r.call(ctx, "load_ledger", http.MethodGet, "/api/v1/checkins", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ── 写入 ──

func (r *Remote) WriteConfig(ctx context.Context, patch model.ConfigPatch) error {
	patch, err := normalizePatch(patch)
	if err != nil {
		return err
	}
	if patch.Mode != nil || patch.Summary != nil {
		body := dto.UpdateSettingsRequest{Mode: patch.Mode, Summary: patch.Summary}
		if err := r.call(ctx, "write_config", http.MethodPatch, "/api/v1/settings", body, nil); err != nil {
			return err
		}
	}
	if patch.Catalog != nil {
		if err := r.call(ctx, "write_catalog", http.MethodPut, "/api/v1/catalog", patch.Catalog, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *Remote) WriteCheckIn(ctx context.Context, rec model.CheckIn) error {
	body := dto.CheckInRequest{EmployeeID: rec.EmployeeID, DutyStatus: rec.DutyStatus}
	return r.call(ctx, "write_checkin", http.MethodPost, "/api/v1/checkins", body, nil)
}

func (r *Remote) DeleteCheckIn(ctx context.Context, employeeID string) error {
	return r.call(ctx, "delete_checkin", http.MethodDelete, "/api/v1/checkins/"+url.PathEscape(employeeID), nil, nil)
}

func (r *Remote) DeleteAllCheckIns(ctx context.Context) error {
	return r.call(ctx, "delete_all_checkins", http.MethodDelete, "/api/v1/checkins", nil, nil)
}

func (r *Remote) UpdateCheckInDepartment(ctx context.Context, employeeID, dept string) error {
	body := dto.ChangeDeptRequest{Dept: dept}
	return r.call(ctx, "update_checkin_department", http.MethodPatch, "/api/v1/checkins/"+url.PathEscape(employeeID), body, nil)
}

// call 发送请求并解包响应，out 为 nil 时忽略 data
func (r *Remote) call(ctx context.Context, op, method, path string, body, out interface{}) error {
	var env envelope
	req := r.client.R().SetContext(ctx).SetResult(&env).SetError(&env)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		r.logger.Warn("请求服务端失败", zap.String("op", op), zap.Error(err))
		return apperrors.Unavailable(op, err)
	}
	if resp.IsError() {
		return r.remoteError(op, resp.StatusCode(), env)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: %s 响应无法解析: %v", apperrors.ErrCorrupted, op, err)
		}
	}
	return nil
}

// remoteError 按服务端错误分类还原为存储层错误
func (r *Remote) remoteError(op string, status int, env envelope) error {
	switch env.Kind {
	case apperrors.KindAlreadyCheckedIn:
		return fmt.Errorf("%w: %s", apperrors.ErrDuplicate, env.Message)
	case apperrors.KindNotCheckedIn:
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, env.Message)
	case apperrors.KindValidation:
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, env.Message)
	case apperrors.KindCorrupted:
		return fmt.Errorf("%w: %s", apperrors.ErrCorrupted, env.Message)
	default:
		r.logger.Warn("服务端返回错误",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("message", env.Message),
		)
		return apperrors.Unavailable(op, fmt.Errorf("HTTP %d: %s", status, env.Message))
	}
}
