package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"

	"pointshop/internal/pkg/mq"
	"pointshop/internal/service/order/domain"
)

// OrderEventProducerAdapter 把订单生命周期事件写入 Kafka，
// 实现 domain.OrderEventProducer。以会员 ID 为 key，
// 保证同一会员的事件落在同一分区、保持顺序。
type OrderEventProducerAdapter struct {
	writer *kafka.Writer
}

func NewOrderEventProducerAdapter(writer *kafka.Writer) *OrderEventProducerAdapter {
	return &OrderEventProducerAdapter{writer: writer}
}

func (p *OrderEventProducerAdapter) PublishOrderEvent(ctx context.Context, event *domain.OrderEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := []byte(strconv.FormatInt(event.MemberID, 10))
	return mq.ProduceMessage(ctx, p.writer, key, eventBytes)
}
