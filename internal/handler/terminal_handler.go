package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/terminal-registry/internal/domain"
	"github.com/kursadbilgin/terminal-registry/internal/observability"
	"github.com/kursadbilgin/terminal-registry/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
)

type TerminalService interface {
	Create(ctx context.Context, desc domain.TerminalDescriptor) (*domain.Terminal, error)
	SubmitBatch(ctx context.Context, descriptors []domain.TerminalDescriptor) (*domain.BatchOutcome, error)
	GetByID(ctx context.Context, id string) (*domain.Terminal, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Terminal, int64, error)
	GetBatchStatus(ctx context.Context, batchID string) (*domain.BatchOutcome, error)
}

type TerminalHandler struct {
	service TerminalService
}

func NewTerminalHandler(service TerminalService) (*TerminalHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("terminal service is required")
	}
	return &TerminalHandler{service: service}, nil
}

func RegisterTerminalRoutes(router fiber.Router, service TerminalService) error {
	h, err := NewTerminalHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/terminals", h.CreateTerminal)
	v1.Post("/terminals/batch", h.SubmitBatch)
	v1.Get("/terminals/:id", h.GetTerminal)
	v1.Get("/terminals", h.ListTerminals)
	v1.Get("/terminal-batches/:batchId", h.GetBatchStatus)

	return nil
}

type terminalRequest struct {
	ProviderID   string   `json:"providerId"`
	TerminalID   string   `json:"terminalId"`
	Enabled      bool     `json:"enabled"`
	PayeeCode    string   `json:"payeeCode"`
	Workstations []string `json:"workstations"`
}

type submitBatchRequest struct {
	Terminals []terminalRequest `json:"terminals"`
}

type terminalResponse struct {
	ID           string    `json:"id"`
	ProviderID   string    `json:"providerId"`
	TerminalID   string    `json:"terminalId"`
	Enabled      bool      `json:"enabled"`
	PayeeCode    string    `json:"payeeCode"`
	Workstations []string  `json:"workstations"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type submitBatchResponse struct {
	BatchID      string `json:"batchId"`
	TotalRecords int    `json:"totalRecords"`
}

type batchStatusResponse struct {
	BatchID        string    `json:"batchId"`
	TotalRecords   int       `json:"totalRecords"`
	SuccessRecords int       `json:"successRecords"`
	FailedRecords  int       `json:"failedRecords"`
	ErrorMessages  []string  `json:"errorMessages"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

type listTerminalsResponse struct {
	Data []terminalResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *TerminalHandler) CreateTerminal(c *fiber.Ctx) error {
	var req terminalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Create(requestContext(c), req.toDescriptor())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toTerminalResponse(created))
}

func (h *TerminalHandler) SubmitBatch(c *fiber.Ctx) error {
	var req submitBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	descriptors := make([]domain.TerminalDescriptor, 0, len(req.Terminals))
	for _, item := range req.Terminals {
		descriptors = append(descriptors, item.toDescriptor())
	}

	outcome, err := h.service.SubmitBatch(requestContext(c), descriptors)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(submitBatchResponse{
		BatchID:      outcome.BatchID,
		TotalRecords: outcome.TotalRecords,
	})
}

func (h *TerminalHandler) GetTerminal(c *fiber.Ctx) error {
	terminal, err := h.service.GetByID(requestContext(c), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTerminalResponse(terminal))
}

func (h *TerminalHandler) ListTerminals(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	terminals, total, err := h.service.List(requestContext(c), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]terminalResponse, 0, len(terminals))
	for i := range terminals {
		data = append(data, toTerminalResponse(&terminals[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listTerminalsResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *TerminalHandler) GetBatchStatus(c *fiber.Ctx) error {
	outcome, err := h.service.GetBatchStatus(requestContext(c), strings.TrimSpace(c.Params("batchId")))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toBatchStatusResponse(outcome))
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if providerID := strings.TrimSpace(c.Query("providerId")); providerID != "" {
		params.ProviderID = &providerID
	}

	if rawEnabled := strings.TrimSpace(c.Query("enabled")); rawEnabled != "" {
		enabled, err := strconv.ParseBool(rawEnabled)
		if err != nil {
			return repository.ListParams{}, fmt.Errorf("%w: enabled must be true or false", domain.ErrValidation)
		}
		params.Enabled = &enabled
	}

	return params, nil
}

func (r terminalRequest) toDescriptor() domain.TerminalDescriptor {
	return domain.TerminalDescriptor{
		ProviderID:   strings.TrimSpace(r.ProviderID),
		TerminalID:   strings.TrimSpace(r.TerminalID),
		Enabled:      r.Enabled,
		PayeeCode:    strings.TrimSpace(r.PayeeCode),
		Workstations: r.Workstations,
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	return observability.WithRequestID(c.UserContext(), requestID(c))
}

func requestID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func toTerminalResponse(t *domain.Terminal) terminalResponse {
	if t == nil {
		return terminalResponse{}
	}

	workstations := t.Workstations
	if workstations == nil {
		workstations = []string{}
	}

	return terminalResponse{
		ID:           t.ID,
		ProviderID:   t.ProviderID,
		TerminalID:   t.TerminalID,
		Enabled:      t.Enabled,
		PayeeCode:    t.PayeeCode,
		Workstations: workstations,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func toBatchStatusResponse(o *domain.BatchOutcome) batchStatusResponse {
	if o == nil {
		return batchStatusResponse{}
	}

	messages := o.ErrorMessages
	if messages == nil {
		messages = []string{}
	}

	return batchStatusResponse{
		BatchID:        o.BatchID,
		TotalRecords:   o.TotalRecords,
		SuccessRecords: o.SuccessRecords,
		FailedRecords:  o.FailedRecords,
		ErrorMessages:  messages,
		Status:         o.Status.String(),
		CreatedAt:      o.CreatedAt,
	}
}

// toHTTPError maps client errors to fiber errors. Anything else, storage
// failures included, is left for the transport error handler.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrEmptyBatch):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
