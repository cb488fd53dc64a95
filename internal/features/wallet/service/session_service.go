package service

import (
	"context"
	"sync"

	"shipledger/internal/core/logger"
	"shipledger/internal/features/wallet/domain"
	"shipledger/internal/features/wallet/ports"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SessionService manages the connection lifecycle to the external signing
// provider. Each connected period runs under an epoch context; account and
// network changes cancel the epoch so in-flight ledger awaits resolve with
// domain.ErrSessionInvalidated instead of stale confirmations.
type SessionService struct {
	provider ports.Provider
	logger   *zap.Logger

	mu          sync.Mutex
	connected   bool
	account     domain.Address
	chainID     uint64
	epochCtx    context.Context
	epochCancel context.CancelFunc
}

// NewSessionService creates a SessionService bound to the given provider.
// A nil provider is allowed; Connect then fails with ErrProviderUnavailable.
func NewSessionService(provider ports.Provider) *SessionService {
	s := &SessionService{
		provider: provider,
		logger:   logger.Named("session"),
	}

	if provider != nil {
		provider.OnAccountsChanged(s.handleAccountsChanged)
		provider.OnChainChanged(s.handleChainChanged)
	}

	return s
}

// Connect requests authorization from the provider and binds the first
// authorized account under a fresh epoch.
func (s *SessionService) Connect(ctx context.Context) (domain.Address, error) {
	if s.provider == nil {
		return "", domain.ErrProviderUnavailable
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", domain.ErrNoAccounts
	}

	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindLocked(accounts[0], chainID)

	s.logger.Info("Wallet connected",
		zap.String("account", accounts[0].Short()),
		zap.String("network", domain.NetworkName(chainID)),
	)

	return accounts[0], nil
}

// Disconnect clears the session state and cancels the current epoch.
// It is idempotent and always succeeds.
func (s *SessionService) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Account returns the currently authorized signing address.
func (s *SessionService) Account() (domain.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, s.connected
}

// ChainID returns the identifier of the connected network.
func (s *SessionService) ChainID() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chainID, s.connected
}

// Snapshot returns the session state for the presentation layer.
func (s *SessionService) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return domain.Session{}
	}
	return domain.Session{
		Connected: true,
		Account:   s.account,
		ChainID:   s.chainID,
		Network:   domain.NetworkName(s.chainID),
	}
}

// Balance returns the balance of the session account.
func (s *SessionService) Balance(ctx context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	account, connected := s.account, s.connected
	s.mu.Unlock()

	if !connected {
		return decimal.Zero, domain.ErrNoAccounts
	}
	return s.provider.Balance(ctx, account)
}

// Context returns the epoch context for the current connected period.
// Ledger awaits derive from it: when the session is invalidated the
// context is cancelled and pending awaits fail fast.
func (s *SessionService) Context() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, domain.ErrSessionInvalidated
	}
	return s.epochCtx, nil
}

// bindLocked installs a new account/network pair under a fresh epoch.
func (s *SessionService) bindLocked(account domain.Address, chainID uint64) {
	if s.epochCancel != nil {
		s.epochCancel()
	}
	s.epochCtx, s.epochCancel = context.WithCancel(context.Background())
	s.connected = true
	s.account = account
	s.chainID = chainID
}

// resetLocked tears down the session; safe to call when already disconnected.
func (s *SessionService) resetLocked() {
	if s.epochCancel != nil {
		s.epochCancel()
		s.epochCancel = nil
		s.epochCtx = nil
	}
	s.connected = false
	s.account = ""
	s.chainID = 0
}

// handleAccountsChanged reacts to the provider's account-changed
// notification. An empty account set revokes the session; a new account
// rebinds the signing capability under a new epoch.
func (s *SessionService) handleAccountsChanged(accounts []domain.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(accounts) == 0 {
		s.logger.Info("Wallet access revoked")
		s.resetLocked()
		return
	}

	chainID := s.chainID
	s.bindLocked(accounts[0], chainID)
	s.logger.Info("Wallet account changed", zap.String("account", accounts[0].Short()))
}

// handleChainChanged reacts to the provider's network-changed notification.
// A network change is a hard reset: the session disconnects and the caller
// must reinitialize the client. No in-flight operation survives.
func (s *SessionService) handleChainChanged(chainID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Network changed, resetting session",
		zap.String("network", domain.NetworkName(chainID)),
	)
	s.resetLocked()
}
