package mq

import (
	"fmt"
)

const (
	// ExchangeMobility — topic exchange, в который коннекторы публикуют
	// нормализованные батчи сущностей
	ExchangeMobility = "mobility_topic"

	QueueVehicleBatches = "entities.vehicles"
	QueueStationBatches = "entities.stations"
	QueueTransitBatches = "entities.transit"
)

// EntityQueues — все очереди батчей в порядке объявления
var EntityQueues = []string{
	QueueVehicleBatches,
	QueueStationBatches,
	QueueTransitBatches,
}

// SetupTopology создает exchanges, queues и bindings (идемпотентно)
func SetupTopology(mq *RabbitMQ) error {
	ch := mq.Channel()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}

	if err := ch.ExchangeDeclare(
		ExchangeMobility, // name
		"topic",          // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // args
	); err != nil {
		return fmt.Errorf("declare %s: %w", ExchangeMobility, err)
	}

	// Очереди батчей: routing key совпадает с именем очереди
	// (entities.vehicles, entities.stations, entities.transit)
	for _, q := range EntityQueues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, q, ExchangeMobility, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}

	return nil
}
