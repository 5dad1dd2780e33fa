package services

import (
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"showroom/server/internal/models"
)

// EventSink получает записи аудита для трансляции наружу
// (Kafka, WebSocket). Реализация не должна блокировать воркер надолго.
type EventSink interface {
	Publish(eventType, entity, entityID string, payload map[string]interface{})
}

// AuditService пишет журнал изменений. Записи принимаются в буферизованный
// канал ПОСЛЕ коммита бизнес-транзакции и сохраняются фоновым воркером:
// аудит никогда не участвует в основной транзакции и не может её откатить,
// поэтому никакой защиты от рекурсии не требуется.
type AuditService struct {
	db        *gorm.DB
	queue     chan models.AuditLog
	wg        sync.WaitGroup
	stopped   chan struct{}
	closeOnce sync.Once
	sinks     []EventSink
}

// NewAuditService создает сервис аудита и запускает воркер
func NewAuditService(db *gorm.DB) *AuditService {
	s := &AuditService{
		db:      db,
		queue:   make(chan models.AuditLog, 1024),
		stopped: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

// AddSink подключает трансляцию записей аудита во внешние системы.
// Вызывается при старте, до начала обработки запросов.
func (s *AuditService) AddSink(sink EventSink) {
	s.sinks = append(s.sinks, sink)
}

// Record ставит запись аудита в очередь. Вызывается после коммита.
// При переполнении очереди запись отбрасывается с предупреждением —
// бизнес-операция уже зафиксирована и не должна ждать аудит.
func (s *AuditService) Record(entity, entityID, action, oldValue, newValue, actor string) {
	entry := models.AuditLog{
		Entity:     entity,
		EntityID:   entityID,
		Action:     action,
		OldValue:   oldValue,
		NewValue:   newValue,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}

	select {
	case <-s.stopped:
		return
	default:
	}

	select {
	case s.queue <- entry:
	default:
		log.Printf("⚠️ Очередь аудита переполнена, запись отброшена: %s/%s %s", entity, entityID, action)
	}
}

// RecordStatusChange ставит в очередь запись о смене статуса
func (s *AuditService) RecordStatusChange(entity, entityID, oldStatus, newStatus, actor string) {
	s.Record(entity, entityID, "STATUS_CHANGE", oldStatus, newStatus, actor)
}

// Close останавливает воркер, дописав накопленные записи
func (s *AuditService) Close() {
	s.closeOnce.Do(func() {
		close(s.stopped)
		s.wg.Wait()
	})
}

// AuditBatch накапливает записи аудита, сделанные внутри транзакции.
// Flush вызывается после успешного коммита: при откате транзакции
// записи просто не уходят в очередь и журнал не содержит фантомов.
type AuditBatch struct {
	svc     *AuditService
	entries []models.AuditLog
}

// NewBatch создает пустой накопитель записей для одной транзакции.
// Работает и при выключенном аудите: Flush в этом случае ничего не делает.
func (s *AuditService) NewBatch() *AuditBatch {
	return &AuditBatch{svc: s}
}

// Record добавляет запись в накопитель
func (b *AuditBatch) Record(entity, entityID, action, oldValue, newValue, actor string) {
	if b == nil {
		return
	}
	b.entries = append(b.entries, models.AuditLog{
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		OldValue: oldValue,
		NewValue: newValue,
		Actor:    actor,
	})
}

// RecordStatusChange добавляет запись о смене статуса в накопитель
func (b *AuditBatch) RecordStatusChange(entity, entityID, oldStatus, newStatus, actor string) {
	b.Record(entity, entityID, "STATUS_CHANGE", oldStatus, newStatus, actor)
}

// Flush отправляет накопленные записи в очередь аудита.
// Вызывать только после успешного коммита транзакции.
func (b *AuditBatch) Flush() {
	if b == nil || b.svc == nil {
		return
	}
	for _, e := range b.entries {
		b.svc.Record(e.Entity, e.EntityID, e.Action, e.OldValue, e.NewValue, e.Actor)
	}
	b.entries = nil
}

func (s *AuditService) worker() {
	defer s.wg.Done()
	for {
		select {
		case entry := <-s.queue:
			s.persist(entry)
		case <-s.stopped:
			// Дописываем то, что уже в очереди
			for {
				select {
				case entry := <-s.queue:
					s.persist(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *AuditService) persist(entry models.AuditLog) {
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("❌ Не удалось сохранить запись аудита %s/%s: %v", entry.Entity, entry.EntityID, err)
	}
	for _, sink := range s.sinks {
		sink.Publish(strings.ToLower(entry.Entity)+"."+strings.ToLower(entry.Action), entry.Entity, entry.EntityID, map[string]interface{}{
			"old_value": entry.OldValue,
			"new_value": entry.NewValue,
			"actor":     entry.Actor,
		})
	}
}
