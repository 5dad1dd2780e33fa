package api

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// DomainEvent представляет событие бэк-офиса, публикуемое в Kafka.
// События дублируют записи аудита и позволяют внешним системам
// (сайт салона, BI) реагировать на изменения без опроса API.
type DomainEvent struct {
	Type       string                 `json:"type"`   // vehicle.received, invoice.paid, ...
	Entity     string                 `json:"entity"` // Vehicle, Invoice, SalesOrder
	EntityID   string                 `json:"entity_id"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// KafkaEventPublisher публикует доменные события в Kafka
type KafkaEventPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaEventPublisher создает publisher для доменных событий
func NewKafkaEventPublisher(brokers, topic, username, password, caCert string) *KafkaEventPublisher {
	brokerList := ParseKafkaBrokers(brokers)
	if len(brokerList) == 0 {
		return nil
	}

	dialer := CreateKafkaDialer(username, password, caCert)
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokerList,
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Dialer:   dialer,
	})

	log.Printf("📡 Kafka publisher инициализирован: topic=%s", topic)
	return &KafkaEventPublisher{
		writer: writer,
		topic:  topic,
	}
}

// Publish отправляет событие в Kafka. Ошибка публикации логируется
// и не прерывает бизнес-операцию.
func (p *KafkaEventPublisher) Publish(eventType, entity, entityID string, payload map[string]interface{}) {
	if p == nil {
		return
	}

	event := DomainEvent{
		Type:       eventType,
		Entity:     entity,
		EntityID:   entityID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ Ошибка сериализации события %s: %v", eventType, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entityID),
		Value: data,
	}); err != nil {
		log.Printf("⚠️ Ошибка публикации события %s в Kafka: %v", eventType, err)
	}
}

// Close закрывает writer
func (p *KafkaEventPublisher) Close() {
	if p == nil || p.writer == nil {
		return
	}
	if err := p.writer.Close(); err != nil {
		log.Printf("⚠️ Ошибка закрытия Kafka writer: %v", err)
	}
}
