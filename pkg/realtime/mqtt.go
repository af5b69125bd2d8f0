package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
)

const (
	mqttQoS            = 1
	mqttPublishTimeout = 5 * time.Second
)

// MQTTPublisher 将宾客变更转发到 <prefix>/rooms/<room_id>/guests
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	logger *zap.Logger
}

// NewMQTTPublisher 连接 broker；cfg.Broker 为空时返回 nil
func NewMQTTPublisher(cfg *config.MQTTConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	if cfg == nil || cfg.Broker == "" {
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	// 多实例部署时 client id 需唯一
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT 已连接", zap.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT 连接断开", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttPublishTimeout) {
		return nil, fmt.Errorf("连接 MQTT broker 超时: %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("连接 MQTT broker 失败: %w", err)
	}

	return &MQTTPublisher{client: client, prefix: cfg.TopicPrefix, logger: logger}, nil
}

// Topic 房间对应的 MQTT 主题
func Topic(prefix, roomID string) string {
	return fmt.Sprintf("%s/rooms/%s/guests", prefix, roomID)
}

// Publish 以 QoS 1 发布事件
func (p *MQTTPublisher) Publish(evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	token := p.client.Publish(Topic(p.prefix, evt.RoomID), mqttQoS, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("MQTT 发布超时")
	}
	return token.Error()
}

// Close 断开连接
func (p *MQTTPublisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect(250)
}
