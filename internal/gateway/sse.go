package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mosa54/control-center/internal/notify"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// Subscribe 建立 SSE 长连接；服务端未提供事件流时返回 ErrPushUnsupported
// 断线后自动重连，重连成功时补发一次全量变更通知
func (r *Remote) Subscribe(ctx context.Context, h Handlers) error {
	body, err := r.openStream(ctx)
	if err != nil {
		return err
	}
	go r.consume(ctx, body, h)
	return nil
}

func (r *Remote) openStream(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.stream.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(eventsPath)
	if err != nil {
		return nil, apperrors.Unavailable("subscribe", err)
	}

	body := resp.RawBody()
	switch resp.StatusCode() {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound, http.StatusNotImplemented:
		body.Close()
		return nil, apperrors.ErrPushUnsupported
	default:
		body.Close()
		return nil, apperrors.Unavailable("subscribe", fmt.Errorf("HTTP %d", resp.StatusCode()))
	}
}

func (r *Remote) consume(ctx context.Context, body io.ReadCloser, h Handlers) {
	for {
		err := readEvents(body, h)
		body.Close()
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("事件流中断，准备重连", zap.Error(err))

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.reconnectWait):
			}
			body, err = r.openStream(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn("事件流重连失败", zap.Error(err))
		}

		r.logger.Info("事件流已重连")
		// 断线期间的变更无法得知，全部重新读取
		h.config()
		h.ledger()
	}
}

// readEvents 解析 text/event-stream，按事件名分发
func readEvents(body io.Reader, h Handlers) error {
	scanner := bufio.NewScanner(body)
	var event, data string

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			dispatch(event, data, h)
			event, data = "", ""
		case strings.HasPrefix(line, ":"):
			// 心跳注释
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

func dispatch(event, data string, h Handlers) {
	kind := notify.Kind(event)
	if kind == "" && data != "" {
		var ev notify.Event
		if err := json.Unmarshal([]byte(data), &ev); err == nil {
			kind = ev.Kind
		}
	}
	switch kind {
	case notify.KindConfig:
		h.config()
	case notify.KindLedger:
		h.ledger()
	}
}
