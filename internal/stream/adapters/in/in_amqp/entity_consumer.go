package in_amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Franelll/MaaS-sub000/internal/shared/logger"
	"github.com/Franelll/MaaS-sub000/internal/shared/mq"
	"github.com/Franelll/MaaS-sub000/internal/stream/application/usecase"
	"github.com/Franelll/MaaS-sub000/internal/stream/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EntityConsumer читает батчи нормализованных сущностей из очередей
// mobility_topic и отдает их StreamService. Один плохой батч логируется
// и отбрасывается, обработка остальных не останавливается.
type EntityConsumer struct {
	mqConn  *mq.RabbitMQ
	service *usecase.StreamService
	log     *logger.Logger
}

func NewEntityConsumer(mqConn *mq.RabbitMQ, service *usecase.StreamService, log *logger.Logger) *EntityConsumer {
	return &EntityConsumer{
		mqConn:  mqConn,
		service: service,
		log:     log,
	}
}

// Start подписывается на все очереди батчей
func (c *EntityConsumer) Start(ctx context.Context) error {
	for _, queue := range mq.EntityQueues {
		q := queue
		err := c.mqConn.Consume(ctx, q, "stream-service-"+q, func(msg amqp.Delivery) {
			if err := c.handleBatch(ctx, msg); err != nil {
				c.log.Error(logger.Entry{
					Action:     "entity_batch_rejected",
					Message:    err.Error(),
					Error:      &logger.ErrObj{Msg: err.Error()},
					Additional: map[string]any{"queue": q},
				})
				// Малформленный батч не переигрываем
				_ = msg.Nack(false, false)
				return
			}
			_ = msg.Ack(false)
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", q, err)
		}
	}

	c.log.Info(logger.Entry{
		Action:  "entity_consumer_started",
		Message: fmt.Sprintf("consuming %d entity queues", len(mq.EntityQueues)),
	})
	return nil
}

func (c *EntityConsumer) handleBatch(ctx context.Context, msg amqp.Delivery) error {
	var batch domain.Batch
	if err := json.Unmarshal(msg.Body, &batch); err != nil {
		return fmt.Errorf("parse entity batch: %w", err)
	}
	if batch.ProviderID == "" {
		return fmt.Errorf("entity batch without providerId")
	}

	c.service.HandleBatch(ctx, batch)
	return nil
}
