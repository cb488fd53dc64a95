package handler

import (
	"errors"

	"shipledger/internal/features/wallet/domain"
	"shipledger/internal/features/wallet/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// WalletHandler handles HTTP requests for wallet session operations.
type WalletHandler struct {
	sessions *service.SessionService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(sessions *service.SessionService) *WalletHandler {
	return &WalletHandler{
		sessions: sessions,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// sessionResponse is the session state plus the account balance.
type sessionResponse struct {
	domain.Session
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

// Connect godoc
// @Summary Connect the wallet
// @Description Requests authorization from the signing provider and binds the first authorized account
// @Tags wallet
// @Produce json
// @Success 200 {object} domain.Session
// @Failure 401 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /wallet/connect [post]
func (h *WalletHandler) Connect(c *fiber.Ctx) error {
	_, err := h.sessions.Connect(c.Context())
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrProviderUnavailable):
			status = fiber.StatusServiceUnavailable
		case errors.Is(err, domain.ErrUserRejected):
			status = fiber.StatusUnauthorized
		case errors.Is(err, domain.ErrNoAccounts):
			status = fiber.StatusUnauthorized
		}
		return c.Status(status).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   c.Locals("requestid").(string),
		})
	}

	return c.JSON(h.sessions.Snapshot())
}

// Disconnect godoc
// @Summary Disconnect the wallet
// @Description Clears the local session state; idempotent
// @Tags wallet
// @Produce json
// @Success 200 {object} domain.Session
// @Router /wallet/disconnect [post]
func (h *WalletHandler) Disconnect(c *fiber.Ctx) error {
	h.sessions.Disconnect()
	return c.JSON(h.sessions.Snapshot())
}

// GetSession godoc
// @Summary Get current session state
// @Description Returns the connected account, network and balance
// @Tags wallet
// @Produce json
// @Success 200 {object} sessionResponse
// @Router /wallet/session [get]
func (h *WalletHandler) GetSession(c *fiber.Ctx) error {
	resp := sessionResponse{Session: h.sessions.Snapshot()}

	if resp.Connected {
		if balance, err := h.sessions.Balance(c.Context()); err == nil {
			resp.Balance = &balance
		}
	}

	return c.JSON(resp)
}
