package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mosa54/control-center/pkg/mqtt"
)

// MQTTClient MQTT 能力，由 pkg/mqtt.Client 实现
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
	Disconnect()
}

// MQTT 经 Broker 主题广播，本进程内再由 Hub 扇出给各订阅者
type MQTT struct {
	client MQTTClient
	topic  string
	hub    *Hub
	logger *zap.Logger
}

// NewMQTT 订阅主题并创建 MQTT 推送
func NewMQTT(client MQTTClient, topic string, logger *zap.Logger) (*MQTT, error) {
	n := &MQTT{client: client, topic: topic, hub: NewHub(), logger: logger}

	err := client.Subscribe(topic, 1, func(_ string, payload []byte) error {
		ev, err := decode(payload)
		if err != nil {
			return fmt.Errorf("解析变更事件失败: %w", err)
		}
		return n.hub.Publish(context.Background(), ev)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Publish 发布到 Broker，本进程订阅者经 Broker 回流收到
func (n *MQTT) Publish(_ context.Context, ev Event) error {
	payload, err := encode(ev)
	if err != nil {
		return err
	}
	return n.client.Publish(n.topic, 1, false, payload)
}

// Subscribe 订阅本进程扇出
func (n *MQTT) Subscribe(ctx context.Context) (<-chan Event, error) {
	return n.hub.Subscribe(ctx)
}

// Close 取消订阅并断开
func (n *MQTT) Close() error {
	if err := n.client.Unsubscribe(n.topic); err != nil {
		n.logger.Warn("取消 MQTT 订阅失败", zap.Error(err))
	}
	n.client.Disconnect()
	return n.hub.Close()
}
