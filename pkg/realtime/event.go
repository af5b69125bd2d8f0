// Package realtime 宾客变更实时推送：PostgreSQL LISTEN/NOTIFY → 按房间扇出 → SSE / MQTT
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Channel guests 表触发器使用的 NOTIFY 通道
const Channel = "guest_changes"

// 变更类型
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

var ErrInvalidEvent = errors.New("无效的变更事件")

// Event 单条宾客变更
type Event struct {
	Event     string          `json:"event"`
	RoomID    string          `json:"room_id"`
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// DecodeEvent 解析触发器发出的 payload
func DecodeEvent(payload string) (Event, error) {
	var evt Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	switch evt.Event {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return Event{}, fmt.Errorf("%w: 未知类型 %q", ErrInvalidEvent, evt.Event)
	}
	if evt.RoomID == "" {
		return Event{}, fmt.Errorf("%w: 缺少 room_id", ErrInvalidEvent)
	}
	// jsonb NULL 反序列化为字面量 null
	if string(evt.Record) == "null" {
		evt.Record = nil
	}
	if string(evt.OldRecord) == "null" {
		evt.OldRecord = nil
	}
	return evt, nil
}
