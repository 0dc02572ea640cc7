package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"orders-dashboard/internal/config"
	"orders-dashboard/internal/logger"
	"orders-dashboard/internal/models"

	"github.com/IBM/sarama"
)

// Producer публикует события дашборда в Kafka
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создает синхронного продюсера
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Metadata.Retry.Max = 1
	saramaCfg.Metadata.Retry.Backoff = 100 * time.Millisecond

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.WithField("brokers", cfg.Brokers).Info("Kafka producer created")

	topics := cfg.Topics
	return &Producer{
		producer: producer,
		log:      log,
		topics:   &topics,
	}, nil
}

// PublishOrdersRefreshed сообщает о применении нового снимка заказов
func (p *Producer) PublishOrdersRefreshed(version uint64, count int) error {
	event := models.NewEvent(models.EventTypeOrdersRefreshed, map[string]interface{}{
		"version": version,
		"count":   count,
	})
	return p.publishEvent(p.topics.Dashboard, *event)
}

// PublishOrdersFetchFailed сообщает о неудачной загрузке заказов
func (p *Producer) PublishOrdersFetchFailed(version uint64, message string) error {
	event := models.NewEvent(models.EventTypeOrdersFetchFailed, map[string]interface{}{
		"version": version,
		"message": message,
	})
	return p.publishEvent(p.topics.Dashboard, *event)
}

// PublishOrderChanged публикует событие изменения заказа в топик заказов
func (p *Producer) PublishOrderChanged(orderID int64) error {
	event := models.NewEvent(models.EventTypeOrderChanged, map[string]interface{}{
		"id": orderID,
	})
	return p.publishEvent(p.topics.Orders, *event)
}

func (p *Producer) publishEvent(topic string, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send event %s: %w", event.Type, err)
	}

	p.log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"topic":      topic,
		"partition":  partition,
		"offset":     offset,
	}).Debug("Event published")

	return nil
}

// Close закрывает продюсера
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
