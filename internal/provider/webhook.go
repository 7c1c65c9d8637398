package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultCallbackTimeout = 10 * time.Second

// WebhookNotifier posts batch callbacks as JSON to a fixed endpoint.
type WebhookNotifier struct {
	client   *resty.Client
	endpoint string
}

func NewWebhookNotifier(endpoint string, timeout time.Duration) (*WebhookNotifier, error) {
	if timeout <= 0 {
		timeout = defaultCallbackTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)

	return NewWebhookNotifierWithClient(endpoint, client)
}

func NewWebhookNotifierWithClient(endpoint string, client *resty.Client) (*WebhookNotifier, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("callback endpoint is required")
	}
	parsed, err := url.ParseRequestURI(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid callback endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid callback endpoint scheme %q", parsed.Scheme)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultCallbackTimeout)
	}
	// Redelivery is owned by the broker, not the HTTP client.
	client.SetRetryCount(0)

	return &WebhookNotifier{
		client:   client,
		endpoint: endpoint,
	}, nil
}

func (n *WebhookNotifier) NotifyBatchCompleted(ctx context.Context, callback BatchCallback) (*CallbackResponse, error) {
	if n == nil || n.client == nil {
		return nil, fmt.Errorf("notifier is not initialized")
	}
	if strings.TrimSpace(callback.BatchID) == "" {
		return nil, &CallbackError{Message: "batchId is required"}
	}

	req := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Idempotency-Key", callback.BatchID).
		SetBody(callback)
	if callback.RequestID != "" {
		req.SetHeader("X-Request-ID", callback.RequestID)
	}

	response, err := req.Post(n.endpoint)
	if err != nil {
		return nil, &CallbackError{
			Message:   "callback request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &CallbackError{
			Message:   "callback returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &CallbackResponse{
			StatusCode: statusCode,
			Body:       body,
			ReceiptID:  receiptID(response),
		}, nil
	}

	return nil, &CallbackError{
		StatusCode: statusCode,
		Message:    statusMessage(statusCode, body),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	switch {
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusTooManyRequests:
		return true
	case statusCode >= http.StatusInternalServerError && statusCode <= 599:
		return true
	default:
		return false
	}
}

func statusMessage(statusCode int, body string) string {
	base := fmt.Sprintf("endpoint returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func receiptID(response *resty.Response) string {
	for _, key := range []string{"X-Receipt-ID", "X-Request-ID", "X-Correlation-ID"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}
	return ""
}
