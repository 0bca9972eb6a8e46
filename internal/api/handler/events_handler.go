package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mosa54/control-center/internal/notify"
	apperrors "github.com/mosa54/control-center/pkg/errors"
	"github.com/mosa54/control-center/pkg/response"
)

// defaultHeartbeat 代理层空闲超时通常为 60s
const defaultHeartbeat = 20 * time.Second

// EventsHandler 变更事件流（Server-Sent Events）
type EventsHandler struct {
	notifier  notify.Notifier
	logger    *zap.Logger
	heartbeat time.Duration
}

// NewEventsHandler 创建 EventsHandler
func NewEventsHandler(notifier notify.Notifier, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{notifier: notifier, logger: logger, heartbeat: defaultHeartbeat}
}

// Stream 推送 config / ledger 变更事件，事件只提示重新读取
// GET /api/v1/events
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.notifier == nil {
		response.ErrorWithKind(c, http.StatusNotImplemented, response.CodeUnavailable, apperrors.KindUnavailable, "服务端未启用变更推送")
		return
	}

	ctx := c.Request.Context()
	events, err := h.notifier.Subscribe(ctx)
	if err != nil {
		h.logger.Error("订阅变更事件失败", zap.Error(err))
		response.FromError(c, apperrors.Unavailable("subscribe", err))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	// 立即发送响应头，客户端据此确认订阅成功
	_, _ = io.WriteString(c.Writer, ": connected\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), ev)
			return true
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			return true
		}
	})
}
