package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pensionio/backoffice/internal/domain"
	"github.com/pensionio/backoffice/internal/repository"
)

type SubscriptionService interface {
	Register(ctx context.Context, url string, events []domain.EventType, retryCount int, timeoutSeconds int) (*domain.Subscription, error)
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	List(ctx context.Context) ([]domain.Subscription, error)
	Unregister(ctx context.Context, id string) error
}

type DeliveryReader interface {
	ListBySubscription(ctx context.Context, subscriptionID string, params repository.DeliveryListParams) ([]domain.Delivery, int64, error)
}

type WebhookHandler struct {
	subscriptions SubscriptionService
	deliveries    DeliveryReader
}

func NewWebhookHandler(subscriptions SubscriptionService, deliveries DeliveryReader) (*WebhookHandler, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription service is required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery reader is required")
	}
	return &WebhookHandler{subscriptions: subscriptions, deliveries: deliveries}, nil
}

func RegisterWebhookRoutes(router fiber.Router, subscriptions SubscriptionService, deliveries DeliveryReader) error {
	h, err := NewWebhookHandler(subscriptions, deliveries)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/webhooks", h.RegisterWebhook)
	v1.Get("/webhooks", h.ListWebhooks)
	v1.Get("/webhooks/:id", h.GetWebhook)
	v1.Delete("/webhooks/:id", h.UnregisterWebhook)
	v1.Get("/webhooks/:id/deliveries", h.ListDeliveries)

	return nil
}

type registerWebhookRequest struct {
	URL            string   `json:"url"`
	Events         []string `json:"events"`
	RetryCount     int      `json:"retryCount"`
	TimeoutSeconds int      `json:"timeoutSeconds"`
}

// registerWebhookResponse is the only place the signing secret ever
// appears. Reads return webhookResponse, which omits it.
type registerWebhookResponse struct {
	webhookResponse
	Secret string `json:"secret"`
}

type webhookResponse struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Events          []string   `json:"events"`
	Active          bool       `json:"active"`
	RetryCount      int        `json:"retryCount"`
	TimeoutSeconds  int        `json:"timeoutSeconds"`
	FailureCount    int        `json:"failureCount"`
	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type deliveryResponse struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscriptionId"`
	EventType      string     `json:"eventType"`
	Status         string     `json:"status"`
	AttemptCount   int        `json:"attemptCount"`
	ResponseStatus *int       `json:"responseStatus,omitempty"`
	Error          *string    `json:"error,omitempty"`
	DurationMillis int64      `json:"durationMillis"`
	NextRetryAt    *time.Time `json:"nextRetryAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type listDeliveriesResponse struct {
	Data []deliveryResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

func (h *WebhookHandler) RegisterWebhook(c *fiber.Ctx) error {
	var req registerWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	events := make([]domain.EventType, 0, len(req.Events))
	for _, raw := range req.Events {
		event, err := domain.ParseEventTypeFromString(raw)
		if err != nil {
			return toHTTPError(err)
		}
		events = append(events, event)
	}

	sub, err := h.subscriptions.Register(c.Context(), req.URL, events, req.RetryCount, req.TimeoutSeconds)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(registerWebhookResponse{
		webhookResponse: toWebhookResponse(sub),
		Secret:          sub.Secret,
	})
}

func (h *WebhookHandler) GetWebhook(c *fiber.Ctx) error {
	sub, err := h.subscriptions.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toWebhookResponse(sub))
}

func (h *WebhookHandler) ListWebhooks(c *fiber.Ctx) error {
	subs, err := h.subscriptions.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]webhookResponse, 0, len(subs))
	for i := range subs {
		responses = append(responses, toWebhookResponse(&subs[i]))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *WebhookHandler) UnregisterWebhook(c *fiber.Ctx) error {
	if err := h.subscriptions.Unregister(c.Context(), c.Params("id")); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *WebhookHandler) ListDeliveries(c *fiber.Ctx) error {
	subscriptionID := strings.TrimSpace(c.Params("id"))
	if subscriptionID == "" {
		return toHTTPError(fmt.Errorf("%w: subscription id is required", domain.ErrValidation))
	}

	// 404 for unknown subscriptions instead of an empty page.
	if _, err := h.subscriptions.GetByID(c.Context(), subscriptionID); err != nil {
		return toHTTPError(err)
	}

	params := repository.DeliveryListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}
	if params.Page < 1 {
		return toHTTPError(fmt.Errorf("%w: page must be >= 1", domain.ErrValidation))
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return toHTTPError(fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize))
	}
	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseDeliveryStatusFromString(rawStatus)
		if err != nil {
			return toHTTPError(err)
		}
		params.Status = &status
	}

	deliveries, total, err := h.deliveries.ListBySubscription(c.Context(), subscriptionID, params)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]deliveryResponse, 0, len(deliveries))
	for i := range deliveries {
		responses = append(responses, toDeliveryResponse(&deliveries[i]))
	}
	return c.Status(fiber.StatusOK).JSON(listDeliveriesResponse{
		Data: responses,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func toWebhookResponse(sub *domain.Subscription) webhookResponse {
	events := make([]string, 0, len(sub.Events))
	for _, e := range sub.Events {
		events = append(events, e.String())
	}

	return webhookResponse{
		ID:              sub.ID,
		URL:             sub.URL,
		Events:          events,
		Active:          sub.Active,
		RetryCount:      sub.RetryCount,
		TimeoutSeconds:  sub.TimeoutSeconds,
		FailureCount:    sub.FailureCount,
		LastTriggeredAt: sub.LastTriggeredAt,
		CreatedAt:       sub.CreatedAt,
	}
}

func toDeliveryResponse(d *domain.Delivery) deliveryResponse {
	return deliveryResponse{
		ID:             d.ID,
		SubscriptionID: d.SubscriptionID,
		EventType:      d.EventType.String(),
		Status:         d.Status.String(),
		AttemptCount:   d.AttemptCount,
		ResponseStatus: d.ResponseStatus,
		Error:          d.Error,
		DurationMillis: d.DurationMillis,
		NextRetryAt:    d.NextRetryAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}
