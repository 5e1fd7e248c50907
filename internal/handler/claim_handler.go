package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pensionio/backoffice/internal/domain"
	"github.com/pensionio/backoffice/internal/observability"
	"github.com/pensionio/backoffice/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type ClaimService interface {
	Apply(ctx context.Context, memberID string, benefitType domain.BenefitType, payment domain.PaymentDetails) (*domain.Claim, error)
	StartReview(ctx context.Context, claimID string) (*domain.Claim, error)
	Approve(ctx context.Context, claimID string, approver string, approvedAmount *float64) (*domain.Claim, error)
	Reject(ctx context.Context, claimID string, reason string, rejecter string) (*domain.Claim, error)
	Disburse(ctx context.Context, claimID string, disburser string) (*domain.Claim, error)
	Cancel(ctx context.Context, claimID string) (*domain.Claim, error)
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
	List(ctx context.Context, params repository.ClaimListParams) ([]domain.Claim, int64, error)
}

type ClaimHandler struct {
	service ClaimService
	metrics *observability.Metrics
}

func NewClaimHandler(service ClaimService, metrics *observability.Metrics) (*ClaimHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("claim service is required")
	}
	return &ClaimHandler{service: service, metrics: metrics}, nil
}

func RegisterClaimRoutes(router fiber.Router, service ClaimService, metrics *observability.Metrics) error {
	h, err := NewClaimHandler(service, metrics)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/claims", h.ApplyClaim)
	v1.Get("/claims", h.ListClaims)
	v1.Get("/claims/:id", h.GetClaim)
	v1.Post("/claims/:id/review", h.StartReview)
	v1.Post("/claims/:id/approve", h.ApproveClaim)
	v1.Post("/claims/:id/reject", h.RejectClaim)
	v1.Post("/claims/:id/disburse", h.DisburseClaim)
	v1.Post("/claims/:id/cancel", h.CancelClaim)

	return nil
}

type applyClaimRequest struct {
	MemberID    string `json:"memberId"`
	BenefitType string `json:"benefitType"`
	Payment     struct {
		Method        string `json:"method"`
		AccountNumber string `json:"accountNumber"`
		BankName      string `json:"bankName"`
	} `json:"payment"`
}

type approveClaimRequest struct {
	ApprovedBy     string   `json:"approvedBy"`
	ApprovedAmount *float64 `json:"approvedAmount,omitempty"`
}

type rejectClaimRequest struct {
	RejectedBy string `json:"rejectedBy"`
	Reason     string `json:"reason"`
}

type disburseClaimRequest struct {
	DisbursedBy string `json:"disbursedBy"`
}

type claimResponse struct {
	ID              string `json:"id"`
	ReferenceNumber string `json:"referenceNumber"`
	MemberID        string `json:"memberId"`
	BenefitType     string `json:"benefitType"`
	Status          string `json:"status"`

	TotalContributions    float64 `json:"totalContributions"`
	EmployerContributions float64 `json:"employerContributions"`
	InvestmentReturns     float64 `json:"investmentReturns"`
	GrossBenefit          float64 `json:"grossBenefit"`
	TaxEstimate           float64 `json:"taxEstimate"`
	AdminFeeEstimate      float64 `json:"adminFeeEstimate"`
	NetPayable            float64 `json:"netPayable"`

	PaymentMethod        string  `json:"paymentMethod"`
	PaymentAccountNumber string  `json:"paymentAccountNumber"`
	PaymentBankName      string  `json:"paymentBankName,omitempty"`
	RejectionReason      *string `json:"rejectionReason,omitempty"`

	AppliedAt   time.Time  `json:"appliedAt"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	DisbursedAt *time.Time `json:"disbursedAt,omitempty"`
	ApprovedBy  *string    `json:"approvedBy,omitempty"`
	RejectedBy  *string    `json:"rejectedBy,omitempty"`
	DisbursedBy *string    `json:"disbursedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type listClaimsResponse struct {
	Data []claimResponse `json:"data"`
	Meta listMeta        `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// requestContext tags the request context with a correlation id so the
// webhook event trail can be tied back to the request that produced it.
// Callers may supply one; otherwise one is generated.
func requestContext(c *fiber.Ctx) context.Context {
	correlationID := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
	if correlationID == "" {
		correlationID = strings.TrimSpace(c.Get("X-Correlation-Id"))
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return observability.WithCorrelationID(c.Context(), correlationID)
}

func (h *ClaimHandler) ApplyClaim(c *fiber.Ctx) error {
	var req applyClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	benefitType, err := domain.ParseBenefitTypeFromString(req.BenefitType)
	if err != nil {
		return toHTTPError(err)
	}

	claim, err := h.service.Apply(requestContext(c), req.MemberID, benefitType, domain.PaymentDetails{
		Method:        req.Payment.Method,
		AccountNumber: req.Payment.AccountNumber,
		BankName:      req.Payment.BankName,
	})
	if err != nil {
		return toHTTPError(err)
	}

	h.metrics.IncClaimSubmitted(claim.BenefitType.String())
	return c.Status(fiber.StatusCreated).JSON(toClaimResponse(claim))
}

func (h *ClaimHandler) GetClaim(c *fiber.Ctx) error {
	claim, err := h.service.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toClaimResponse(claim))
}

func (h *ClaimHandler) ListClaims(c *fiber.Ctx) error {
	params, err := parseClaimListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	claims, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listClaimsResponse{
		Data: toClaimResponses(claims),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *ClaimHandler) StartReview(c *fiber.Ctx) error {
	claim, err := h.service.StartReview(requestContext(c), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toClaimResponse(claim))
}

func (h *ClaimHandler) ApproveClaim(c *fiber.Ctx) error {
	var req approveClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	claim, err := h.service.Approve(requestContext(c), c.Params("id"), req.ApprovedBy, req.ApprovedAmount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toClaimResponse(claim))
}

func (h *ClaimHandler) RejectClaim(c *fiber.Ctx) error {
	var req rejectClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	claim, err := h.service.Reject(requestContext(c), c.Params("id"), req.Reason, req.RejectedBy)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toClaimResponse(claim))
}

func (h *ClaimHandler) DisburseClaim(c *fiber.Ctx) error {
	var req disburseClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	claim, err := h.service.Disburse(requestContext(c), c.Params("id"), req.DisbursedBy)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toClaimResponse(claim))
}

func (h *ClaimHandler) CancelClaim(c *fiber.Ctx) error {
	claim, err := h.service.Cancel(requestContext(c), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toClaimResponse(claim))
}

func parseClaimListParams(c *fiber.Ctx) (repository.ClaimListParams, error) {
	params := repository.ClaimListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ClaimListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ClaimListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawMember := strings.TrimSpace(c.Query("memberId")); rawMember != "" {
		params.MemberID = &rawMember
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseClaimStatusFromString(rawStatus)
		if err != nil {
			return repository.ClaimListParams{}, err
		}
		params.Status = &status
	}

	if rawType := strings.TrimSpace(c.Query("benefitType")); rawType != "" {
		benefitType, err := domain.ParseBenefitTypeFromString(rawType)
		if err != nil {
			return repository.ClaimListParams{}, err
		}
		params.BenefitType = &benefitType
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ClaimListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ClaimListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func toClaimResponse(claim *domain.Claim) claimResponse {
	return claimResponse{
		ID:              claim.ID,
		ReferenceNumber: claim.ReferenceNumber,
		MemberID:        claim.MemberID,
		BenefitType:     claim.BenefitType.String(),
		Status:          claim.Status.String(),

		TotalContributions:    claim.TotalContributions,
		EmployerContributions: claim.EmployerContributions,
		InvestmentReturns:     claim.InvestmentReturns,
		GrossBenefit:          claim.GrossBenefit,
		TaxEstimate:           claim.TaxEstimate,
		AdminFeeEstimate:      claim.AdminFeeEstimate,
		NetPayable:            claim.NetPayable,

		PaymentMethod:        claim.PaymentMethod,
		PaymentAccountNumber: claim.PaymentAccountNumber,
		PaymentBankName:      claim.PaymentBankName,
		RejectionReason:      claim.RejectionReason,

		AppliedAt:   claim.AppliedAt,
		ApprovedAt:  claim.ApprovedAt,
		DisbursedAt: claim.DisbursedAt,
		ApprovedBy:  claim.ApprovedBy,
		RejectedBy:  claim.RejectedBy,
		DisbursedBy: claim.DisbursedBy,
		CreatedAt:   claim.CreatedAt,
		UpdatedAt:   claim.UpdatedAt,
	}
}

func toClaimResponses(claims []domain.Claim) []claimResponse {
	responses := make([]claimResponse, 0, len(claims))
	for i := range claims {
		responses = append(responses, toClaimResponse(&claims[i]))
	}
	return responses
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateClaim):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidClaim):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return err
	}
}
