package services

import (
	"testing"

	"showroom/server/internal/models"
)

// Сервис без воркера: записи копятся в канале, ничего не пишется в БД
func newQueueOnlyAudit() *AuditService {
	return &AuditService{
		queue:   make(chan models.AuditLog, 16),
		stopped: make(chan struct{}),
	}
}

func TestAuditBatchFlushSendsAfterCommit(t *testing.T) {
	svc := newQueueOnlyAudit()
	batch := svc.NewBatch()

	batch.RecordStatusChange("Vehicle", "v-1", "IN_STOCK", "ALLOCATED", "system")
	batch.Record("Allotment", "a-1", "CREATE", "", "RESERVED", "system")

	if got := len(svc.queue); got != 0 {
		t.Fatalf("до Flush в очереди %d записей, ожидали 0", got)
	}

	batch.Flush()

	if got := len(svc.queue); got != 2 {
		t.Fatalf("после Flush в очереди %d записей, ожидали 2", got)
	}
	first := <-svc.queue
	if first.Entity != "Vehicle" || first.Action != "STATUS_CHANGE" || first.NewValue != "ALLOCATED" {
		t.Errorf("неожиданная первая запись: %+v", first)
	}
	if first.OccurredAt.IsZero() {
		t.Error("время записи должно проставляться при постановке в очередь")
	}
}

func TestAuditBatchDiscardedOnRollback(t *testing.T) {
	svc := newQueueOnlyAudit()
	batch := svc.NewBatch()

	batch.RecordStatusChange("Vehicle", "v-1", "IN_STOCK", "ALLOCATED", "system")
	// Транзакция откатилась: Flush не вызывается, записи пропадают вместе с batch

	if got := len(svc.queue); got != 0 {
		t.Fatalf("в очереди %d записей без Flush, ожидали 0", got)
	}
}

func TestAuditBatchNilServiceSafe(t *testing.T) {
	var svc *AuditService
	batch := svc.NewBatch()

	batch.RecordStatusChange("Vehicle", "v-1", "IN_STOCK", "ALLOCATED", "system")
	batch.Flush()

	var none *AuditBatch
	none.Record("Vehicle", "v-1", "MOVE", "", "", "system")
	none.Flush()
}

func TestAuditBatchFlushIsRepeatable(t *testing.T) {
	svc := newQueueOnlyAudit()
	batch := svc.NewBatch()

	batch.Record("Invoice", "i-1", "CREATE", "", "ISSUED", "system")
	batch.Flush()
	batch.Flush()

	if got := len(svc.queue); got != 1 {
		t.Fatalf("повторный Flush не должен дублировать записи: в очереди %d", got)
	}
}

func TestAuditServiceCloseIdempotent(t *testing.T) {
	svc := NewAuditService(nil)
	svc.Close()
	svc.Close()

	// После остановки записи молча отбрасываются
	svc.Record("Vehicle", "v-1", "MOVE", "", "", "system")
	if got := len(svc.queue); got != 0 {
		t.Fatalf("после Close запись попала в очередь (%d), ожидали отбрасывание", got)
	}
}
