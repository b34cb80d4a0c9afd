package dto

import (
	"time"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

// ConsistencyIssue is one missing or dangling back-reference and the update that fixes it.
// An assignment whose shift, event or volunteer is gone is fixed by deleting it instead.
type ConsistencyIssue struct {
	Reason           string       `json:"reason"`
	Fix              models.RefOp `json:"fix"`
	DeleteAssignment string       `json:"delete_assignment,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// Action describes the fix in one line.
func (i ConsistencyIssue) Action() string {
	if i.DeleteAssignment != "" {
		return "DELETE assignment " + i.DeleteAssignment
	}
	return i.Fix.String()
}

// ConsistencyReport summarises a full scan of the reference lists.
type ConsistencyReport struct {
	DryRun        bool               `json:"dry_run"`
	Organizations int                `json:"organizations"`
	Volunteers    int                `json:"volunteers"`
	Events        int                `json:"events"`
	Shifts        int                `json:"shifts"`
	Assignments   int                `json:"assignments"`
	Issues        []ConsistencyIssue `json:"issues"`
	Fixed         int                `json:"fixed"`
	GeneratedAt   time.Time          `json:"generated_at"`
}
