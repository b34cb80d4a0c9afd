package models

import "time"

// RepairStatus tracks a persisted back-reference repair.
type RepairStatus string

const (
	RepairPending  RepairStatus = "PENDING"
	RepairResolved RepairStatus = "RESOLVED"
	RepairFailed   RepairStatus = "FAILED"
)

// RepairTask records a back-reference update that failed after its primary write
// committed. The reconciler replays Op until it succeeds or attempts run out.
type RepairTask struct {
	ID        string       `db:"id" json:"id" bson:"_id"`
	Operation string       `db:"operation" json:"operation" bson:"operation"`
	Action    RefAction    `db:"action" json:"action" bson:"action"`
	Field     RefField     `db:"field" json:"field" bson:"field"`
	OwnerID   string       `db:"owner_id" json:"owner_id" bson:"owner_id"`
	RefID     string       `db:"ref_id" json:"ref_id" bson:"ref_id"`
	Status    RepairStatus `db:"status" json:"status" bson:"status"`
	Attempts  int          `db:"attempts" json:"attempts" bson:"attempts"`
	LastError string       `db:"last_error" json:"last_error,omitempty" bson:"last_error"`
	CreatedAt time.Time    `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// Op returns the reference update carried by the task.
func (t RepairTask) Op() RefOp {
	return RefOp{Action: t.Action, Field: t.Field, OwnerID: t.OwnerID, RefID: t.RefID}
}

// NewRepairTask builds a pending task for op.
func NewRepairTask(operation string, op RefOp, cause error) *RepairTask {
	task := &RepairTask{
		Operation: operation,
		Action:    op.Action,
		Field:     op.Field,
		OwnerID:   op.OwnerID,
		RefID:     op.RefID,
		Status:    RepairPending,
	}
	if cause != nil {
		task.LastError = cause.Error()
	}
	return task
}
