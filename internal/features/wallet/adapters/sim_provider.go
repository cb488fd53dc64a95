package adapters

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"shipledger/internal/core/logger"
	"shipledger/internal/features/wallet/domain"
	"shipledger/internal/features/wallet/ports"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// simGasUsed is the flat gas cost reported for every simulated operation.
const simGasUsed = 21000

// simShipment is the simulated contract's record of a shipment.
type simShipment struct {
	sender     domain.Address
	recipient  domain.Address
	value      decimal.Decimal
	statusCode uint8
	timestamp  time.Time
}

// simPending is an operation sitting in the simulated pending pool.
type simPending struct {
	op      ports.Operation
	receipt *ports.Receipt
	done    chan struct{}
}

// SimProvider is an in-memory ledger provider. It implements the same
// two-phase pending/confirmed contract as a real provider: Submit accepts
// an operation into a pending pool and a timer confirms it into its own
// block after a fixed latency, emitting contract events to subscribers.
type SimProvider struct {
	confirmLatency time.Duration
	logger         *zap.Logger

	mu          sync.Mutex
	chainID     uint64
	accounts    []domain.Address
	balances    map[domain.Address]decimal.Decimal
	denyConnect bool
	shipments   map[string]*simShipment
	pending     map[string]*simPending
	blockNumber uint64

	subscribers map[int]chan ports.Event
	nextSubID   int

	accountsChangedFns []func([]domain.Address)
	chainChangedFns    []func(uint64)
}

// NewSimProvider creates a simulated provider on the given chain with the
// given authorized accounts, each funded with an initial balance of 100
// base currency units.
func NewSimProvider(chainID uint64, confirmLatency time.Duration, accounts ...domain.Address) *SimProvider {
	balances := make(map[domain.Address]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		balances[a] = decimal.NewFromInt(100)
	}

	return &SimProvider{
		confirmLatency: confirmLatency,
		logger:         logger.Named("simprovider"),
		chainID:        chainID,
		accounts:       accounts,
		balances:       balances,
		shipments:      make(map[string]*simShipment),
		pending:        make(map[string]*simPending),
		subscribers:    make(map[int]chan ports.Event),
	}
}

// Fund sets the balance of an account.
func (p *SimProvider) Fund(account domain.Address, balance decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[account] = balance
}

// DenyNextConnect makes the next RequestAccounts call fail as if the user
// declined the authorization prompt.
func (p *SimProvider) DenyNextConnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.denyConnect = true
}

// RequestAccounts implements ports.Provider.
func (p *SimProvider) RequestAccounts(ctx context.Context) ([]domain.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.denyConnect {
		p.denyConnect = false
		return nil, domain.ErrUserRejected
	}
	out := make([]domain.Address, len(p.accounts))
	copy(out, p.accounts)
	return out, nil
}

// ChainID implements ports.Provider.
func (p *SimProvider) ChainID(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID, nil
}

// Balance implements ports.Provider.
func (p *SimProvider) Balance(ctx context.Context, addr domain.Address) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bal, ok := p.balances[addr]
	if !ok {
		return decimal.Zero, nil
	}
	return bal, nil
}

// Submit implements ports.Provider. The operation is validated against the
// confirmed contract state, placed in the pending pool and assigned a
// transaction hash immediately. Confirmation happens asynchronously after
// the configured latency.
func (p *SimProvider) Submit(ctx context.Context, op ports.Operation) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.validateLocked(op); err != nil {
		return "", err
	}

	txHash, err := randomTxHash()
	if err != nil {
		return "", fmt.Errorf("failed to generate tx hash: %w", err)
	}

	pend := &simPending{op: op, done: make(chan struct{})}
	p.pending[txHash] = pend

	p.logger.Debug("Operation accepted into pending pool",
		zap.String("kind", string(op.Kind)),
		zap.String("shipment_id", op.ShipmentID),
		zap.String("tx_hash", txHash),
	)

	time.AfterFunc(p.confirmLatency, func() { p.confirm(txHash) })

	return txHash, nil
}

// validateLocked applies the simulated contract's acceptance rules.
func (p *SimProvider) validateLocked(op ports.Operation) error {
	switch op.Kind {
	case ports.OpCreateShipment:
		if _, exists := p.shipments[op.ShipmentID]; exists {
			return fmt.Errorf("%w: shipment %s already exists", ports.ErrRejected, op.ShipmentID)
		}
		if p.balances[op.From].LessThan(op.Value) {
			return fmt.Errorf("%w: insufficient funds", ports.ErrRejected)
		}
	case ports.OpUpdateStatus:
		if _, exists := p.shipments[op.ShipmentID]; !exists {
			return fmt.Errorf("%w: shipment %s not on ledger", ports.ErrRejected, op.ShipmentID)
		}
	case ports.OpConfirmDelivery:
		sh, exists := p.shipments[op.ShipmentID]
		if !exists {
			return fmt.Errorf("%w: shipment %s not on ledger", ports.ErrRejected, op.ShipmentID)
		}
		if !sh.recipient.EqualFold(op.From) {
			return fmt.Errorf("%w: only the recipient may confirm delivery", ports.ErrRejected)
		}
	default:
		return fmt.Errorf("%w: unknown operation kind %q", ports.ErrRejected, op.Kind)
	}
	return nil
}

// confirm includes a pending operation in its own block, mutates contract
// state and fans the resulting event out to subscribers.
func (p *SimProvider) confirm(txHash string) {
	p.mu.Lock()

	pend, ok := p.pending[txHash]
	if !ok || pend.receipt != nil {
		p.mu.Unlock()
		return
	}

	p.blockNumber++
	pend.receipt = &ports.Receipt{
		TxHash:      txHash,
		BlockNumber: p.blockNumber,
		GasUsed:     simGasUsed,
	}

	op := pend.op
	ev := ports.Event{
		ShipmentID:  op.ShipmentID,
		TxHash:      txHash,
		BlockNumber: p.blockNumber,
		LogIndex:    0,
	}

	switch op.Kind {
	case ports.OpCreateShipment:
		p.balances[op.From] = p.balances[op.From].Sub(op.Value)
		p.shipments[op.ShipmentID] = &simShipment{
			sender:    op.From,
			recipient: op.To,
			value:     op.Value,
			timestamp: time.Now(),
		}
		ev.Kind = ports.EventShipmentCreated
		ev.Sender = op.From
		ev.Recipient = op.To
		ev.Value = op.Value
	case ports.OpUpdateStatus:
		p.shipments[op.ShipmentID].statusCode = op.StatusCode
		ev.Kind = ports.EventShipmentStatusUpdated
		ev.StatusCode = op.StatusCode
	case ports.OpConfirmDelivery:
		sh := p.shipments[op.ShipmentID]
		sh.statusCode = op.StatusCode
		ev.Kind = ports.EventDeliveryConfirmed
		ev.Recipient = sh.recipient
		ev.StatusCode = op.StatusCode
	}

	subs := make([]chan ports.Event, 0, len(p.subscribers))
	for _, ch := range p.subscribers {
		subs = append(subs, ch)
	}

	close(pend.done)
	p.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			p.logger.Warn("Dropping event for slow subscriber",
				zap.String("shipment_id", ev.ShipmentID),
			)
		}
	}
}

// AwaitReceipt implements ports.Provider.
func (p *SimProvider) AwaitReceipt(ctx context.Context, txHash string) (*ports.Receipt, error) {
	p.mu.Lock()
	pend, ok := p.pending[txHash]
	p.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unknown transaction: %s", txHash)
	}

	select {
	case <-pend.done:
		return pend.receipt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetShipment implements ports.Provider.
func (p *SimProvider) GetShipment(ctx context.Context, shipmentID string) (*ports.ShipmentView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sh, ok := p.shipments[shipmentID]
	if !ok {
		return nil, ports.ErrUnknownShipment
	}
	return &ports.ShipmentView{
		Sender:     sh.sender,
		Recipient:  sh.recipient,
		Value:      sh.value,
		StatusCode: sh.statusCode,
		Timestamp:  sh.timestamp,
	}, nil
}

// SubscribeEvents implements ports.Provider.
func (p *SimProvider) SubscribeEvents() (<-chan ports.Event, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSubID
	p.nextSubID++
	ch := make(chan ports.Event, 64)
	p.subscribers[id] = ch

	release := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subscribers[id]; ok {
			delete(p.subscribers, id)
			close(ch)
		}
	}
	return ch, release, nil
}

// OnAccountsChanged implements ports.Provider.
func (p *SimProvider) OnAccountsChanged(fn func([]domain.Address)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accountsChangedFns = append(p.accountsChangedFns, fn)
}

// OnChainChanged implements ports.Provider.
func (p *SimProvider) OnChainChanged(fn func(uint64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chainChangedFns = append(p.chainChangedFns, fn)
}

// TriggerAccountsChanged simulates the wallet switching (or revoking) the
// authorized account set.
func (p *SimProvider) TriggerAccountsChanged(accounts []domain.Address) {
	p.mu.Lock()
	p.accounts = accounts
	fns := make([]func([]domain.Address), len(p.accountsChangedFns))
	copy(fns, p.accountsChangedFns)
	p.mu.Unlock()

	for _, fn := range fns {
		fn(accounts)
	}
}

// TriggerChainChanged simulates the wallet switching networks.
func (p *SimProvider) TriggerChainChanged(chainID uint64) {
	p.mu.Lock()
	p.chainID = chainID
	fns := make([]func(uint64), len(p.chainChangedFns))
	copy(fns, p.chainChangedFns)
	p.mu.Unlock()

	for _, fn := range fns {
		fn(chainID)
	}
}

// SubscriberCount reports the number of attached event listeners.
func (p *SimProvider) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers)
}

// randomTxHash generates a 32-byte transaction hash.
func randomTxHash() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf[:]), nil
}
