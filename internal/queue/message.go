package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/terminal-registry/internal/domain"
)

// BatchCompletedMessage is the broker payload emitted once a batch outcome
// snapshot has been persisted.
type BatchCompletedMessage struct {
	BatchID        string             `json:"batchId"`
	RequestID      string             `json:"requestId,omitempty"`
	Status         domain.BatchStatus `json:"status"`
	TotalRecords   int                `json:"totalRecords"`
	SuccessRecords int                `json:"successRecords"`
	FailedRecords  int                `json:"failedRecords"`
	CompletedAt    time.Time          `json:"completedAt"`
}

func NewBatchCompletedMessage(outcome *domain.BatchOutcome, requestID string, completedAt time.Time) BatchCompletedMessage {
	if outcome == nil {
		return BatchCompletedMessage{RequestID: requestID, CompletedAt: completedAt}
	}

	return BatchCompletedMessage{
		BatchID:        outcome.BatchID,
		RequestID:      requestID,
		Status:         outcome.Status,
		TotalRecords:   outcome.TotalRecords,
		SuccessRecords: outcome.SuccessRecords,
		FailedRecords:  outcome.FailedRecords,
		CompletedAt:    completedAt,
	}
}

func (m BatchCompletedMessage) Validate() error {
	if strings.TrimSpace(m.BatchID) == "" {
		return fmt.Errorf("batchId is required")
	}
	if !m.Status.IsValid() || m.Status == domain.BatchStatusProcessing {
		return fmt.Errorf("invalid final status %q", m.Status)
	}
	if m.SuccessRecords+m.FailedRecords != m.TotalRecords {
		return fmt.Errorf("counts do not add up: %d+%d != %d", m.SuccessRecords, m.FailedRecords, m.TotalRecords)
	}
	return nil
}
