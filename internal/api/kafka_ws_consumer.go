package api

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaWSConsumer читает доменные события из Kafka и транслирует их
// в WebSocket рабочих мест менеджеров.
type KafkaWSConsumer struct {
	topic     string
	groupID   string
	reader    *kafka.Reader
	ctx       context.Context
	cancel    context.CancelFunc
	processed int64
	lastLog   int64
}

// NewKafkaWSConsumer создает consumer доменных событий
func NewKafkaWSConsumer(brokers, topic, username, password, caCert string) *KafkaWSConsumer {
	brokerList := ParseKafkaBrokers(brokers)
	if len(brokerList) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	dialer := CreateKafkaDialer(username, password, caCert)

	const groupID = "backoffice-ws-group"
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokerList,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset, // Рабочим местам нужны только свежие события
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     1 * time.Second,
		Dialer:      dialer,
	})

	return &KafkaWSConsumer{
		topic:   topic,
		groupID: groupID,
		reader:  reader,
		ctx:     ctx,
		cancel:  cancel,
		lastLog: time.Now().Unix(),
	}
}

// Start запускает чтение из Kafka и отправку в WebSocket
func (kc *KafkaWSConsumer) Start() {
	log.Printf("📡 Kafka WS Consumer запущен: topic=%s, groupID=%s", kc.topic, kc.groupID)

	go func() {
		for {
			select {
			case <-kc.ctx.Done():
				log.Println("🛑 Kafka WS Consumer остановлен")
				return
			default:
				msg, err := kc.reader.ReadMessage(kc.ctx)
				if err != nil {
					if err == context.Canceled {
						return
					}
					log.Printf("⚠️ Kafka WS Consumer ошибка чтения: %v", err)
					time.Sleep(1 * time.Second)
					continue
				}

				var event DomainEvent
				if err := json.Unmarshal(msg.Value, &event); err != nil {
					// Чужие сообщения в топике пропускаем молча
					continue
				}

				BackofficeHub.BroadcastMessage(msg.Value)

				processed := atomic.AddInt64(&kc.processed, 1)
				now := time.Now().Unix()
				if now-atomic.LoadInt64(&kc.lastLog) >= 5 {
					atomic.StoreInt64(&kc.lastLog, now)
					log.Printf("📊 Kafka WS Consumer: обработано %d событий", processed)
				}
			}
		}
	}()
}

// Stop останавливает consumer
func (kc *KafkaWSConsumer) Stop() {
	kc.cancel()
	if kc.reader != nil {
		kc.reader.Close()
	}
	log.Println("🛑 Kafka WS Consumer остановлен")
}
