package domain

import (
	"fmt"
	"time"
)

// BatchStatus is the aggregate state of a provisioning batch.
type BatchStatus string

const (
	BatchStatusProcessing     BatchStatus = "PROCESSING"
	BatchStatusCompleted      BatchStatus = "COMPLETED"
	BatchStatusPartialFailure BatchStatus = "PARTIAL_FAILURE"
	BatchStatusFailed         BatchStatus = "FAILED"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusProcessing, BatchStatusCompleted, BatchStatusPartialFailure, BatchStatusFailed:
		return true
	}
	return false
}

// BatchOutcome accumulates per-item results of one batch. It is owned by a
// single goroutine while processing and read-only once completed.
type BatchOutcome struct {
	BatchID        string
	TotalRecords   int
	SuccessRecords int
	FailedRecords  int
	ErrorMessages  []string
	Status         BatchStatus
	CreatedAt      time.Time
}

func NewBatchOutcome(batchID string, totalRecords int) *BatchOutcome {
	return &BatchOutcome{
		BatchID:       batchID,
		TotalRecords:  totalRecords,
		ErrorMessages: []string{},
		Status:        BatchStatusProcessing,
	}
}

func (o *BatchOutcome) RecordSuccess() {
	o.SuccessRecords++
}

func (o *BatchOutcome) RecordFailure(message string) {
	o.FailedRecords++
	o.ErrorMessages = append(o.ErrorMessages, message)
}

// Processed returns the number of items attempted so far.
func (o *BatchOutcome) Processed() int {
	return o.SuccessRecords + o.FailedRecords
}

func (o *BatchOutcome) IsComplete() bool {
	return o.Processed() == o.TotalRecords
}

// Complete derives the final status. Every item must have been recorded.
func (o *BatchOutcome) Complete() error {
	if !o.IsComplete() {
		return fmt.Errorf("batch %s incomplete: %d/%d items recorded", o.BatchID, o.Processed(), o.TotalRecords)
	}
	if len(o.ErrorMessages) != o.FailedRecords {
		return fmt.Errorf("batch %s inconsistent: %d error messages for %d failures", o.BatchID, len(o.ErrorMessages), o.FailedRecords)
	}

	switch {
	case o.FailedRecords == 0:
		o.Status = BatchStatusCompleted
	case o.SuccessRecords == 0:
		o.Status = BatchStatusFailed
	default:
		o.Status = BatchStatusPartialFailure
	}
	return nil
}
