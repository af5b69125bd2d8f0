package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// subscriberBuffer 单个订阅者的缓冲区，写满后丢弃新事件
const subscriberBuffer = 32

// Publisher 事件的外部转发目标（如 MQTT）
type Publisher interface {
	Publish(evt Event) error
}

// Subscription 某房间的订阅
type Subscription struct {
	RoomID string
	C      <-chan Event

	ch   chan Event
	hub  *Hub
	once sync.Once
}

// Close 取消订阅，可重复调用
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s) })
}

// Hub 按房间维护订阅者并扇出事件
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Subscription]struct{}
	publishers []Publisher
	logger     *zap.Logger
}

// NewHub 创建 Hub
func NewHub(logger *zap.Logger, publishers ...Publisher) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Subscription]struct{}),
		publishers: publishers,
		logger:     logger,
	}
}

// Subscribe 订阅某房间的宾客变更
func (h *Hub) Subscribe(roomID string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{RoomID: roomID, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Subscription]struct{})
	}
	h.rooms[roomID][sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.rooms[sub.RoomID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.rooms, sub.RoomID)
	}
	close(sub.ch)
}

// SubscriberCount 某房间当前订阅者数量
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Broadcast 将事件投递给房间订阅者与所有外部转发目标
func (h *Hub) Broadcast(evt Event) {
	h.mu.RLock()
	for sub := range h.rooms[evt.RoomID] {
		select {
		case sub.ch <- evt:
		default:
			h.logger.Warn("订阅者缓冲区已满，丢弃事件", zap.String("room_id", evt.RoomID))
		}
	}
	h.mu.RUnlock()

	for _, p := range h.publishers {
		if err := p.Publish(evt); err != nil {
			h.logger.Warn("转发实时事件失败", zap.String("room_id", evt.RoomID), zap.Error(err))
		}
	}
}

// ────────────────────── LISTEN ──────────────────────

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// Listen 建立专用连接 LISTEN guest_changes，直到 ctx 取消
// 连接断开后指数退避重连
func (h *Hub) Listen(ctx context.Context, dsn string) {
	backoff := reconnectMin
	for {
		err := h.listenOnce(ctx, dsn)
		if ctx.Err() != nil {
			return
		}
		h.logger.Warn("实时监听中断，准备重连", zap.Duration("backoff", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (h *Hub) listenOnce(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return err
	}
	h.logger.Info("实时监听已启动", zap.String("channel", Channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		evt, err := DecodeEvent(n.Payload)
		if err != nil {
			h.logger.Warn("忽略无法解析的通知", zap.Error(err))
			continue
		}
		h.Broadcast(evt)
	}
}
