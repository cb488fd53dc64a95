package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"shipledger/internal/features/shipments/domain"
	"shipledger/internal/features/shipments/ports"
	walletdomain "shipledger/internal/features/wallet/domain"
	walletports "shipledger/internal/features/wallet/ports"
	walletservice "shipledger/internal/features/wallet/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	senderAddr    = walletdomain.Address("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1")
	recipientAddr = walletdomain.Address("0xFFcf8FBeE2B67cEb6989997c976E7C2F51D23bD9")
)

// mockLedger implements walletports.Provider with hand-controlled
// confirmations: every Submit parks a receipt channel under a deterministic
// hash and the test decides when (and whether) each one confirms.
type mockLedger struct {
	mu        sync.Mutex
	accounts  []walletdomain.Address
	chainID   uint64
	submitErr error
	nextTx    int
	submitted []walletports.Operation
	receipts  map[string]chan *walletports.Receipt
	views     map[string]*walletports.ShipmentView
	events    chan walletports.Event

	onAccountsChanged func([]walletdomain.Address)
	onChainChanged    func(uint64)
}

func newMockLedger(accounts ...walletdomain.Address) *mockLedger {
	return &mockLedger{
		accounts: accounts,
		chainID:  1337,
		receipts: make(map[string]chan *walletports.Receipt),
		views:    make(map[string]*walletports.ShipmentView),
	}
}

func (m *mockLedger) RequestAccounts(ctx context.Context) ([]walletdomain.Address, error) {
	return m.accounts, nil
}

func (m *mockLedger) ChainID(ctx context.Context) (uint64, error) {
	return m.chainID, nil
}

func (m *mockLedger) Balance(ctx context.Context, addr walletdomain.Address) (decimal.Decimal, error) {
	return decimal.NewFromInt(100), nil
}

func (m *mockLedger) Submit(ctx context.Context, op walletports.Operation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitErr != nil {
		return "", m.submitErr
	}
	m.submitted = append(m.submitted, op)
	m.nextTx++
	txHash := fmt.Sprintf("0xtx%d", m.nextTx)
	m.receipts[txHash] = make(chan *walletports.Receipt, 1)
	return txHash, nil
}

func (m *mockLedger) AwaitReceipt(ctx context.Context, txHash string) (*walletports.Receipt, error) {
	m.mu.Lock()
	ch, ok := m.receipts[txHash]
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unknown transaction: %s", txHash)
	}

	select {
	case receipt := <-ch:
		return receipt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// confirm releases the receipt for a submitted transaction.
func (m *mockLedger) confirm(txHash string, block uint64) {
	m.mu.Lock()
	ch := m.receipts[txHash]
	m.mu.Unlock()

	ch <- &walletports.Receipt{TxHash: txHash, BlockNumber: block, GasUsed: 21000}
}

func (m *mockLedger) GetShipment(ctx context.Context, shipmentID string) (*walletports.ShipmentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	view, ok := m.views[shipmentID]
	if !ok {
		return nil, walletports.ErrUnknownShipment
	}
	return view, nil
}

func (m *mockLedger) SubscribeEvents() (<-chan walletports.Event, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan walletports.Event, 16)
	m.events = ch
	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.events != nil {
			close(m.events)
			m.events = nil
		}
	}
	return ch, release, nil
}

// emit pushes an event to the active subscription.
func (m *mockLedger) emit(ev walletports.Event) {
	m.mu.Lock()
	ch := m.events
	m.mu.Unlock()
	ch <- ev
}

func (m *mockLedger) OnAccountsChanged(fn func(accounts []walletdomain.Address)) {
	m.onAccountsChanged = fn
}

func (m *mockLedger) OnChainChanged(fn func(chainID uint64)) {
	m.onChainChanged = fn
}

// mockStatsRepo implements ports.StatsRepository with in-memory counters.
type mockStatsRepo struct {
	mu        sync.Mutex
	created   int64
	delivered int64
	total     decimal.Decimal
}

func (m *mockStatsRepo) RecordCreated(ctx context.Context, value decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	m.total = m.total.Add(value)
	return nil
}

func (m *mockStatsRepo) RecordDelivered(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered++
	return nil
}

func (m *mockStatsRepo) Stats(ctx context.Context) (*ports.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &ports.Stats{Shipments: m.created, Delivered: m.delivered, TotalValue: m.total}, nil
}

func (m *mockStatsRepo) counts() (int64, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created, m.delivered
}

// newGatewayFixture wires a connected session, a mock ledger and a stats
// repository into a gateway. The session is bound to account.
func newGatewayFixture(t *testing.T, account walletdomain.Address) (*mockLedger, *walletservice.SessionService, *Gateway, *mockStatsRepo) {
	t.Helper()

	ledger := newMockLedger(account)
	session := walletservice.NewSessionService(ledger)
	_, err := session.Connect(context.Background())
	require.NoError(t, err)

	stats := &mockStatsRepo{}
	gw := NewGateway(ledger, session, stats)
	return ledger, session, gw, stats
}

func newShipment(t *testing.T, id string) *domain.Shipment {
	t.Helper()
	sh, err := domain.NewShipment(id, senderAddr, recipientAddr, decimal.NewFromInt(2))
	require.NoError(t, err)
	return sh
}

// runOperation confirms a pending operation at the given block and awaits
// the transaction record.
func runOperation(t *testing.T, ledger *mockLedger, pending *PendingOperation, block uint64) *domain.TransactionRecord {
	t.Helper()

	ledger.confirm(pending.TxHash, block)
	record, err := pending.Await(context.Background())
	require.NoError(t, err)
	return record
}

// TestGateway_SubmitCreate_NotConnected verifies submissions require a bound
// wallet session.
func TestGateway_SubmitCreate_NotConnected(t *testing.T) {
	_, session, gw, _ := newGatewayFixture(t, senderAddr)
	session.Disconnect()

	_, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))

	assert.ErrorIs(t, err, ErrNotConnected)
}

// TestGateway_SubmitCreate_TwoPhase walks a create through both phases:
// phase-1 acceptance leaves the shipment in CREATED without a hash, and only
// the awaited confirmation attaches the transaction.
func TestGateway_SubmitCreate_TwoPhase(t *testing.T) {
	ledger, _, gw, stats := newGatewayFixture(t, senderAddr)

	pending, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	require.NoError(t, err)
	assert.NotEmpty(t, pending.Handle)
	assert.Equal(t, "0xtx1", pending.TxHash)

	// Phase 1: tracked locally, no transaction hash yet.
	sh, ok := gw.Shipment("SH1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusCreated, sh.Status)
	assert.Empty(t, sh.LastTransactionHash)

	record := runOperation(t, ledger, pending, 1)
	assert.Equal(t, "0xtx1", record.TransactionHash)
	assert.Equal(t, uint64(1), record.BlockNumber)

	// Phase 2: hash attached, status unchanged by a create.
	sh, _ = gw.Shipment("SH1")
	assert.Equal(t, domain.StatusCreated, sh.Status)
	assert.Equal(t, "0xtx1", sh.LastTransactionHash)

	created, _ := stats.counts()
	assert.Equal(t, int64(1), created)
}

// TestGateway_SubmitCreate_DuplicatePending verifies at most one outstanding
// operation per shipment id, and that the slot frees after confirmation.
func TestGateway_SubmitCreate_DuplicatePending(t *testing.T) {
	ledger, _, gw, _ := newGatewayFixture(t, senderAddr)

	pending, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	require.NoError(t, err)

	_, err = gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	assert.ErrorIs(t, err, ErrDuplicatePending)

	runOperation(t, ledger, pending, 1)

	// Slot freed: a follow-up operation on the same shipment is accepted.
	_, err = gw.SubmitStatusUpdate(context.Background(), "SH1", domain.StatusPickupScheduled)
	assert.NoError(t, err)
}

// TestGateway_SubmitStatusUpdate_LocalValidation verifies invalid targets
// and illegal transitions are refused before any ledger traffic.
func TestGateway_SubmitStatusUpdate_LocalValidation(t *testing.T) {
	ledger, _, gw, _ := newGatewayFixture(t, senderAddr)

	pending, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	require.NoError(t, err)
	runOperation(t, ledger, pending, 1)
	submittedBefore := len(ledger.submitted)

	_, err = gw.SubmitStatusUpdate(context.Background(), "SH1", domain.Status("TELEPORTED"))
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	// CREATED cannot jump straight to DELIVERED.
	_, err = gw.SubmitStatusUpdate(context.Background(), "SH1", domain.StatusDelivered)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	assert.Equal(t, submittedBefore, len(ledger.submitted), "validation failures must not reach the ledger")
}

// TestGateway_SubmitStatusUpdate_NotFound verifies updates against untracked
// shipments fail locally.
func TestGateway_SubmitStatusUpdate_NotFound(t *testing.T) {
	_, _, gw, _ := newGatewayFixture(t, senderAddr)

	_, err := gw.SubmitStatusUpdate(context.Background(), "SH404", domain.StatusPickupScheduled)

	assert.ErrorIs(t, err, ErrNotFound)
}

// TestGateway_SubmitStatusUpdate_Confirmed verifies the local status changes
// only at confirmation.
func TestGateway_SubmitStatusUpdate_Confirmed(t *testing.T) {
	ledger, _, gw, _ := newGatewayFixture(t, senderAddr)

	pending, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	require.NoError(t, err)
	runOperation(t, ledger, pending, 1)

	pending, err = gw.SubmitStatusUpdate(context.Background(), "SH1", domain.StatusPickupScheduled)
	require.NoError(t, err)

	sh, _ := gw.Shipment("SH1")
	assert.Equal(t, domain.StatusCreated, sh.Status, "status must not change before confirmation")

	runOperation(t, ledger, pending, 2)

	sh, _ = gw.Shipment("SH1")
	assert.Equal(t, domain.StatusPickupScheduled, sh.Status)
	assert.Equal(t, "0xtx2", sh.LastTransactionHash)
}

// TestGateway_SubmitRejected verifies a provider refusal surfaces as
// ErrSubmissionRejected and frees the pending slot.
func TestGateway_SubmitRejected(t *testing.T) {
	ledger, _, gw, _ := newGatewayFixture(t, senderAddr)
	ledger.submitErr = walletports.ErrRejected

	_, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	assert.ErrorIs(t, err, ErrSubmissionRejected)

	ledger.submitErr = nil
	_, err = gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	assert.NoError(t, err)
}

// TestGateway_ConfirmDelivery_Unauthorized verifies only the recorded
// recipient may confirm delivery.
func TestGateway_ConfirmDelivery_Unauthorized(t *testing.T) {
	ledger, _, gw, _ := newGatewayFixture(t, senderAddr)

	pending, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	require.NoError(t, err)
	runOperation(t, ledger, pending, 1)

	_, err = gw.ConfirmDelivery(context.Background(), "SH1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	sh, _ := gw.Shipment("SH1")
	assert.Equal(t, domain.StatusCreated, sh.Status)
}

// TestGateway_ConfirmDelivery_Success drives a shipment to OUT_FOR_DELIVERY
// as the recipient and confirms delivery, checking the delivered counter.
func TestGateway_ConfirmDelivery_Success(t *testing.T) {
	ledger, _, gw, stats := newGatewayFixture(t, recipientAddr)

	pending, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	require.NoError(t, err)
	runOperation(t, ledger, pending, 1)

	block := uint64(1)
	for _, target := range []domain.Status{domain.StatusPickupScheduled, domain.StatusPickedUp, domain.StatusInTransit, domain.StatusOutForDelivery} {
		pending, err = gw.SubmitStatusUpdate(context.Background(), "SH1", target)
		require.NoError(t, err)
		block++
		runOperation(t, ledger, pending, block)
	}

	pending, err = gw.ConfirmDelivery(context.Background(), "SH1")
	require.NoError(t, err)
	runOperation(t, ledger, pending, block+1)

	sh, _ := gw.Shipment("SH1")
	assert.Equal(t, domain.StatusDelivered, sh.Status)

	created, delivered := stats.counts()
	assert.Equal(t, int64(1), created)
	assert.Equal(t, int64(1), delivered)
}

// TestGateway_ConfirmDelivery_NotYetDeliverable verifies confirmation is
// refused while the shipment has not reached OUT_FOR_DELIVERY.
func TestGateway_ConfirmDelivery_NotYetDeliverable(t *testing.T) {
	ledger, _, gw, _ := newGatewayFixture(t, recipientAddr)

	pending, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	require.NoError(t, err)
	runOperation(t, ledger, pending, 1)

	_, err = gw.ConfirmDelivery(context.Background(), "SH1")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

// TestGateway_Await_ConfirmationTimeout verifies an expired deadline
// resolves the await with ErrConfirmationTimeout and frees the slot without
// revoking the submission.
func TestGateway_Await_ConfirmationTimeout(t *testing.T) {
	_, _, gw, _ := newGatewayFixture(t, senderAddr)

	pending, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = pending.Await(ctx)
	assert.ErrorIs(t, err, ErrConfirmationTimeout)

	// The slot is free for a retry.
	_, err = gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	assert.NoError(t, err)
}

// TestGateway_Await_SessionInvalidated verifies a network switch during an
// in-flight await resolves it with ErrSessionInvalidated.
func TestGateway_Await_SessionInvalidated(t *testing.T) {
	ledger, _, gw, _ := newGatewayFixture(t, senderAddr)

	pending, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, awaitErr := pending.Await(context.Background())
		done <- awaitErr
	}()

	time.Sleep(20 * time.Millisecond)
	ledger.onChainChanged(1)

	select {
	case err = <-done:
		assert.ErrorIs(t, err, walletdomain.ErrSessionInvalidated)
	case <-time.After(time.Second):
		t.Fatal("await did not resolve after session invalidation")
	}

	sh, _ := gw.Shipment("SH1")
	assert.Empty(t, sh.LastTransactionHash, "no confirmation may apply after invalidation")
}

// TestGateway_Await_DisconnectedBeforeAwait verifies awaiting with no live
// session fails immediately.
func TestGateway_Await_DisconnectedBeforeAwait(t *testing.T) {
	_, session, gw, _ := newGatewayFixture(t, senderAddr)

	pending, err := gw.SubmitCreate(context.Background(), newShipment(t, "SH1"))
	require.NoError(t, err)

	session.Disconnect()

	_, err = pending.Await(context.Background())
	assert.ErrorIs(t, err, walletdomain.ErrSessionInvalidated)
}

// TestGateway_Query verifies ledger reads map unknown ids to ErrNotFound and
// decode status codes.
func TestGateway_Query(t *testing.T) {
	ledger, _, gw, _ := newGatewayFixture(t, senderAddr)

	_, err := gw.Query(context.Background(), "SH404")
	assert.ErrorIs(t, err, ErrNotFound)

	ledger.views["SH1"] = &walletports.ShipmentView{
		Sender:     senderAddr,
		Recipient:  recipientAddr,
		Value:      decimal.NewFromInt(2),
		StatusCode: domain.StatusInTransit.Code(),
		Timestamp:  time.Now(),
	}

	view, err := gw.Query(context.Background(), "SH1")
	require.NoError(t, err)
	assert.Equal(t, "SH1", view.ShipmentID)
	assert.Equal(t, domain.StatusInTransit, view.Status)
	assert.Equal(t, senderAddr, view.Sender)

	// Unknown status codes are rejected, not coerced.
	ledger.views["SH2"] = &walletports.ShipmentView{StatusCode: 42}
	_, err = gw.Query(context.Background(), "SH2")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

// TestGateway_Stats_NilRepository verifies the gateway degrades to zero
// counters without a repository.
func TestGateway_Stats_NilRepository(t *testing.T) {
	ledger := newMockLedger(senderAddr)
	session := walletservice.NewSessionService(ledger)
	_, err := session.Connect(context.Background())
	require.NoError(t, err)

	gw := NewGateway(ledger, session, nil)

	stats, err := gw.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Shipments)
}
