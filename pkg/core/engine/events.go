package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// TopicAdvance 推进请求事件主题
const TopicAdvance = "engine.advance"

// EventBus 引擎内部事件总线（对外导出）
// 实例创建和任务完成后发布推进事件，由Processor订阅消费，
// 使队列项在写入后立即得到处理而不必等待周期性兜底排空
type EventBus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter
}

// NewEventBus 创建事件总线（对外导出）
func NewEventBus(debug bool) (*EventBus, error) {
	logger := watermill.NewStdLogger(debug, false)

	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("创建消息路由器失败: %w", err)
	}

	return &EventBus{
		pubsub: pubsub,
		router: router,
		logger: logger,
	}, nil
}

// PublishAdvance 发布一条推进事件，载荷为队列项ID（对外导出）
// 发布失败只记录日志，队列项仍会被周期性排空兜底处理
func (b *EventBus) PublishAdvance(queueID string) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(queueID))
	if err := b.pubsub.Publish(TopicAdvance, msg); err != nil {
		log.Printf("⚠️ [事件总线] 发布推进事件失败: queue_id=%s, err=%v", queueID, err)
	}
}

// OnAdvance 注册推进事件处理器（对外导出）
// handler收到的参数为队列项ID
func (b *EventBus) OnAdvance(handlerName string, handler func(ctx context.Context, queueID string) error) {
	b.router.AddNoPublisherHandler(
		handlerName,
		TopicAdvance,
		b.pubsub,
		func(msg *message.Message) error {
			queueID := string(msg.Payload)
			if err := handler(msg.Context(), queueID); err != nil {
				// 处理失败不重投：队列项自身记录了终态，重放只会触发no-op
				log.Printf("⚠️ [事件总线] 推进事件处理失败: queue_id=%s, err=%v", queueID, err)
			}
			return nil
		},
	)
}

// Run 启动消息路由器，阻塞直到ctx取消（对外导出）
func (b *EventBus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Close 关闭事件总线（对外导出）
func (b *EventBus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubsub.Close()
}
