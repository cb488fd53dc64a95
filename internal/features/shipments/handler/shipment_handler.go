package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shipledger/internal/features/shipments/domain"
	"shipledger/internal/features/shipments/service"
	walletdomain "shipledger/internal/features/wallet/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentHandler handles HTTP requests for shipment ledger operations.
type ShipmentHandler struct {
	gateway        *service.Gateway
	session        sessionReader
	confirmTimeout time.Duration
}

// sessionReader is the slice of the wallet session the handler needs.
type sessionReader interface {
	Account() (walletdomain.Address, bool)
}

// NewShipmentHandler creates a new ShipmentHandler. confirmTimeout bounds
// the wait for block confirmation on submit endpoints.
func NewShipmentHandler(gateway *service.Gateway, session sessionReader, confirmTimeout time.Duration) *ShipmentHandler {
	return &ShipmentHandler{
		gateway:        gateway,
		session:        session,
		confirmTimeout: confirmTimeout,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// createShipmentRequest is the payload for creating a shipment.
type createShipmentRequest struct {
	// ID is optional; one is assigned when empty.
	ID        string          `json:"id"`
	Recipient string          `json:"recipient"`
	Value     decimal.Decimal `json:"value"`
}

// updateStatusRequest is the payload for a status update.
type updateStatusRequest struct {
	Status string `json:"status"`
}

// confirmedResponse pairs the shipment with the confirming transaction.
type confirmedResponse struct {
	Shipment    domain.Shipment          `json:"shipment"`
	Transaction domain.TransactionRecord `json:"transaction"`
}

// CreateShipment godoc
// @Summary Create a shipment on the ledger
// @Description Validates the shipment, submits a value-bearing create operation and awaits confirmation
// @Tags shipments
// @Accept json
// @Produce json
// @Param shipment body createShipmentRequest true "Shipment to create"
// @Success 201 {object} confirmedResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /shipments [post]
func (h *ShipmentHandler) CreateShipment(c *fiber.Ctx) error {
	var req createShipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	sender, ok := h.session.Account()
	if !ok {
		return h.fail(c, fiber.StatusConflict, service.ErrNotConnected.Error())
	}

	id := req.ID
	if id == "" {
		id = fmt.Sprintf("SH-%s", uuid.NewString())
	}

	sh, err := domain.NewShipment(id, sender, walletdomain.Address(req.Recipient), req.Value)
	if err != nil {
		return h.failErr(c, err)
	}

	pending, err := h.gateway.SubmitCreate(c.Context(), sh)
	if err != nil {
		return h.failErr(c, err)
	}

	record, err := h.await(pending)
	if err != nil {
		return h.failErr(c, err)
	}

	confirmed, _ := h.gateway.Shipment(id)
	return c.Status(fiber.StatusCreated).JSON(confirmedResponse{
		Shipment:    confirmed,
		Transaction: *record,
	})
}

// UpdateStatus godoc
// @Summary Update a shipment's status on the ledger
// @Description Validates the transition locally, submits the status update and awaits confirmation
// @Tags shipments
// @Accept json
// @Produce json
// @Param id path string true "Shipment ID"
// @Param status body updateStatusRequest true "Target status"
// @Success 200 {object} confirmedResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /shipments/{id}/status [post]
func (h *ShipmentHandler) UpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	pending, err := h.gateway.SubmitStatusUpdate(c.Context(), id, domain.Status(req.Status))
	if err != nil {
		return h.failErr(c, err)
	}

	record, err := h.await(pending)
	if err != nil {
		return h.failErr(c, err)
	}

	confirmed, _ := h.gateway.Shipment(id)
	return c.JSON(confirmedResponse{
		Shipment:    confirmed,
		Transaction: *record,
	})
}

// ConfirmDelivery godoc
// @Summary Confirm delivery of a shipment
// @Description Only the recorded recipient may confirm; awaits ledger confirmation
// @Tags shipments
// @Produce json
// @Param id path string true "Shipment ID"
// @Success 200 {object} confirmedResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /shipments/{id}/confirm-delivery [post]
func (h *ShipmentHandler) ConfirmDelivery(c *fiber.Ctx) error {
	id := c.Params("id")

	pending, err := h.gateway.ConfirmDelivery(c.Context(), id)
	if err != nil {
		return h.failErr(c, err)
	}

	record, err := h.await(pending)
	if err != nil {
		return h.failErr(c, err)
	}

	confirmed, _ := h.gateway.Shipment(id)
	return c.JSON(confirmedResponse{
		Shipment:    confirmed,
		Transaction: *record,
	})
}

// GetShipment godoc
// @Summary Get the ledger's view of a shipment
// @Description Reads the confirmed shipment state through the provider
// @Tags shipments
// @Produce json
// @Param id path string true "Shipment ID"
// @Success 200 {object} service.LedgerShipment
// @Failure 404 {object} ErrorResponse
// @Router /shipments/{id} [get]
func (h *ShipmentHandler) GetShipment(c *fiber.Ctx) error {
	ledgerView, err := h.gateway.Query(c.Context(), c.Params("id"))
	if err != nil {
		return h.failErr(c, err)
	}

	return c.JSON(ledgerView)
}

// GetStats godoc
// @Summary Get aggregate shipment counters
// @Description Best-effort display counters; not authoritative
// @Tags shipments
// @Produce json
// @Success 200 {object} ports.Stats
// @Router /shipments/stats [get]
func (h *ShipmentHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.gateway.Stats(c.Context())
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(stats)
}

// await waits for phase-2 confirmation bounded by the configured timeout.
func (h *ShipmentHandler) await(pending *service.PendingOperation) (*domain.TransactionRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.confirmTimeout)
	defer cancel()
	return pending.Await(ctx)
}

// failErr maps a service or domain error to its HTTP status.
func (h *ShipmentHandler) failErr(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidValue),
		errors.Is(err, domain.ErrIllegalTransition):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		status = fiber.StatusForbidden
	case errors.Is(err, service.ErrDuplicatePending),
		errors.Is(err, service.ErrNotConnected),
		errors.Is(err, walletdomain.ErrSessionInvalidated):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrSubmissionRejected):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrConfirmationTimeout):
		status = fiber.StatusGatewayTimeout
	}

	return h.fail(c, status, err.Error())
}

func (h *ShipmentHandler) fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Message: message,
		RayID:   c.Locals("requestid").(string),
	})
}
