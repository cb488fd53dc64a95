package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"shipledger/internal/features/wallet/adapters"
	"shipledger/internal/features/wallet/domain"
	"shipledger/internal/features/wallet/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccount = domain.Address("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1")

// newTestApp wires the wallet routes onto a Fiber app with a fixed ray id.
func newTestApp(sessions *service.SessionService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})

	h := NewWalletHandler(sessions)
	app.Post("/wallet/connect", h.Connect)
	app.Post("/wallet/disconnect", h.Disconnect)
	app.Get("/wallet/session", h.GetSession)
	return app
}

// TestWalletHandler_Connect_Success verifies a successful connect returns
// the bound session snapshot.
func TestWalletHandler_Connect_Success(t *testing.T) {
	provider := adapters.NewSimProvider(1337, time.Millisecond, testAccount)
	app := newTestApp(service.NewSessionService(provider))

	resp, err := app.Test(httptest.NewRequest("POST", "/wallet/connect", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var session domain.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	assert.True(t, session.Connected)
	assert.Equal(t, testAccount, session.Account)
	assert.Equal(t, "Local Ganache", session.Network)
}

// TestWalletHandler_Connect_Rejected verifies a declined authorization maps
// to 401 with the ray id attached.
func TestWalletHandler_Connect_Rejected(t *testing.T) {
	provider := adapters.NewSimProvider(1337, time.Millisecond, testAccount)
	provider.DenyNextConnect()
	app := newTestApp(service.NewSessionService(provider))

	resp, err := app.Test(httptest.NewRequest("POST", "/wallet/connect", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Message, "rejected")
	assert.Equal(t, "test-ray-id", body.RayID)
}

// TestWalletHandler_Connect_NoProvider verifies the missing-provider case
// maps to 503.
func TestWalletHandler_Connect_NoProvider(t *testing.T) {
	app := newTestApp(service.NewSessionService(nil))

	resp, err := app.Test(httptest.NewRequest("POST", "/wallet/connect", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

// TestWalletHandler_Disconnect verifies disconnect always returns the
// cleared snapshot.
func TestWalletHandler_Disconnect(t *testing.T) {
	provider := adapters.NewSimProvider(1337, time.Millisecond, testAccount)
	app := newTestApp(service.NewSessionService(provider))

	resp, err := app.Test(httptest.NewRequest("POST", "/wallet/connect", nil))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = app.Test(httptest.NewRequest("POST", "/wallet/disconnect", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var session domain.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	assert.False(t, session.Connected)
	assert.Empty(t, session.Account)
}

// TestWalletHandler_GetSession verifies the session endpoint includes the
// balance when connected and omits it otherwise.
func TestWalletHandler_GetSession(t *testing.T) {
	provider := adapters.NewSimProvider(1337, time.Millisecond, testAccount)
	app := newTestApp(service.NewSessionService(provider))

	resp, err := app.Test(httptest.NewRequest("GET", "/wallet/session", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/wallet/connect", nil))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = app.Test(httptest.NewRequest("GET", "/wallet/session", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Connected bool    `json:"connected"`
		Account   string  `json:"account"`
		Balance   *string `json:"balance"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Connected)
	require.NotNil(t, body.Balance)
	assert.Equal(t, "100", *body.Balance)
}
