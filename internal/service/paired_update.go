package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
	"github.com/noah-isme/volunteer-roster-api/pkg/middleware/requestid"
)

// PairedUpdate stages one mutation: the primary write followed by the back-reference
// updates that keep the other side of each relationship in step.
type PairedUpdate struct {
	Operation string
	Primary   func(ctx context.Context) error
	Refs      []models.RefOp
}

type repairScheduler interface {
	Schedule(task models.RepairTask)
}

// RelationshipMaintainer commits paired updates in a fixed order. The primary write goes
// first; back-references follow one by one. A failed back-reference does not stop the
// rest. Each failure is logged and persisted as a repair task, and the caller gets
// ErrInconsistentState.
type RelationshipMaintainer struct {
	refs      ReferenceStore
	repairs   RepairStore
	scheduler repairScheduler
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRelationshipMaintainer constructs a maintainer. repairs and scheduler may be nil,
// in which case failures are only logged.
func NewRelationshipMaintainer(refs ReferenceStore, repairs RepairStore, scheduler repairScheduler, metrics *MetricsService, logger *zap.Logger) *RelationshipMaintainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationshipMaintainer{refs: refs, repairs: repairs, scheduler: scheduler, metrics: metrics, logger: logger}
}

// Ref returns a primary step that applies op.
func (m *RelationshipMaintainer) Ref(op models.RefOp) func(context.Context) error {
	return func(ctx context.Context) error {
		return m.refs.Apply(ctx, op)
	}
}

// Commit runs the primary write and, when it succeeds, the back-reference updates. The
// primary error is returned unchanged so callers can map it.
func (m *RelationshipMaintainer) Commit(ctx context.Context, update PairedUpdate) error {
	if update.Primary != nil {
		if err := update.Primary(ctx); err != nil {
			return err
		}
	}
	return m.Apply(ctx, update.Operation, update.Refs...)
}

// Apply runs back-reference updates that have no primary write of their own.
func (m *RelationshipMaintainer) Apply(ctx context.Context, operation string, ops ...models.RefOp) error {
	var (
		failed   int
		firstErr error
	)
	for _, op := range ops {
		err := m.refs.Apply(ctx, op)
		if err == nil {
			continue
		}
		if isNotFound(err) && op.Action == models.RefRemove {
			// the owner is gone, so there is nothing left to detach from
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = err
		}
		m.recordFailure(ctx, operation, op, err)
	}
	if failed == 0 {
		return nil
	}
	return appErrors.Wrap(firstErr, appErrors.ErrInconsistentState.Code, appErrors.ErrInconsistentState.Status,
		fmt.Sprintf("%s: %d related record update(s) failed and were queued for repair", operation, failed))
}

func (m *RelationshipMaintainer) recordFailure(ctx context.Context, operation string, op models.RefOp, cause error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("action", string(op.Action)),
		zap.String("field", string(op.Field)),
		zap.String("owner_id", op.OwnerID),
		zap.String("ref_id", op.RefID),
		zap.Error(cause),
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		fields = append(fields, zap.String("request_id", reqID))
	}
	m.logger.Error("back-reference update failed", fields...)
	m.metrics.RecordInconsistency(operation)

	if isNotFound(cause) {
		// an ADD against a missing owner cannot be replayed; the consistency scan drops the dangling side
		return
	}
	if m.repairs == nil {
		return
	}
	task := models.NewRepairTask(operation, op, cause)
	if err := m.repairs.Create(context.WithoutCancel(ctx), task); err != nil {
		m.logger.Error("persist repair task", append(fields, zap.NamedError("persist_error", err))...)
		return
	}
	if m.scheduler != nil {
		m.scheduler.Schedule(*task)
	}
}
