// Package notify 共享存储变更事件的发布与订阅。
//
// 事件只是"有变化，请重新读取"的信号，不携带数据本身；
// 订阅者处理不过来时允许合并（丢弃）重复事件。
package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Kind 变更类别
type Kind string

const (
	KindConfig Kind = "config" // 会话设置或名册
	KindLedger Kind = "ledger" // 应召记录
)

// Event 变更事件
type Event struct {
	Kind Kind      `json:"kind"`
	At   time.Time `json:"at"`
}

// NewEvent 以当前时间创建事件
func NewEvent(kind Kind) Event {
	return Event{Kind: kind, At: time.Now().UTC()}
}

// Notifier 变更推送
type Notifier interface {
	// Publish 广播事件
	Publish(ctx context.Context, ev Event) error
	// Subscribe 订阅事件，ctx 结束后返回的通道被关闭
	Subscribe(ctx context.Context) (<-chan Event, error)
	// Close 释放底层连接
	Close() error
}

func encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

func decode(data []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(data, &ev)
	return ev, err
}
