package provider

import (
	"context"
	"time"
)

// Notifier delivers batch completion callbacks to the payment service
// provider that submitted the batch.
type Notifier interface {
	NotifyBatchCompleted(ctx context.Context, callback BatchCallback) (*CallbackResponse, error)
}

// BatchCallback is the JSON body posted to the provider callback endpoint.
type BatchCallback struct {
	BatchID        string    `json:"batchId"`
	RequestID      string    `json:"requestId,omitempty"`
	Status         string    `json:"status"`
	TotalRecords   int       `json:"totalRecords"`
	SuccessRecords int       `json:"successRecords"`
	FailedRecords  int       `json:"failedRecords"`
	CompletedAt    time.Time `json:"completedAt"`
}

// CallbackResponse keeps what the endpoint answered, for logging.
type CallbackResponse struct {
	StatusCode int
	Body       string
	ReceiptID  string
}
