package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shipledger/internal/core/logger"
	"shipledger/internal/core/metrics"
	"shipledger/internal/features/shipments/domain"
	"shipledger/internal/features/shipments/ports"
	walletdomain "shipledger/internal/features/wallet/domain"
	walletports "shipledger/internal/features/wallet/ports"
	walletservice "shipledger/internal/features/wallet/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrNotConnected is returned when no wallet session is bound.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrSubmissionRejected is returned when the provider refuses an operation.
	ErrSubmissionRejected = errors.New("submission rejected")
	// ErrConfirmationTimeout is returned when no confirmation arrives within
	// the caller's deadline. The submitted operation is not revoked.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	// ErrDuplicatePending is returned when a submission for a shipment id is
	// attempted while another is still outstanding.
	ErrDuplicatePending = errors.New("duplicate pending submission")
	// ErrUnauthorized is returned when the session account is not permitted
	// to perform the operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a shipment id is unknown.
	ErrNotFound = errors.New("shipment not found")
)

// statsTimeout bounds best-effort counter updates so they never stall a
// confirmation path.
const statsTimeout = 2 * time.Second

// eventMark is a position in the ledger's recorded order.
type eventMark struct {
	block    uint64
	logIndex uint32
}

func (m eventMark) before(other eventMark) bool {
	if m.block != other.block {
		return m.block < other.block
	}
	return m.logIndex < other.logIndex
}

// Gateway issues state-changing operations against the external ledger and
// owns the authoritative local copy of each shipment. Submissions are
// two-phase: Submit* returns a PendingOperation at pool acceptance and local
// state mutates only when Await observes block confirmation. One outstanding
// operation is tracked per shipment id.
type Gateway struct {
	provider walletports.Provider
	session  *walletservice.SessionService
	stats    ports.StatsRepository
	logger   *zap.Logger

	mu        sync.Mutex
	shipments map[string]*domain.Shipment
	pending   map[string]string   // shipment id -> handle of the outstanding operation
	applied   map[string]struct{} // tx hashes already reconciled into local state
	marks     map[string]eventMark
}

// NewGateway creates a Gateway. The stats repository may be nil, in which
// case aggregate counters are not maintained.
func NewGateway(provider walletports.Provider, session *walletservice.SessionService, stats ports.StatsRepository) *Gateway {
	return &Gateway{
		provider:  provider,
		session:   session,
		stats:     stats,
		logger:    logger.Named("gateway"),
		shipments: make(map[string]*domain.Shipment),
		pending:   make(map[string]string),
		applied:   make(map[string]struct{}),
		marks:     make(map[string]eventMark),
	}
}

// PendingOperation is the correlation handle returned at phase-1 acceptance.
// Phase-1 acceptance is non-authoritative: callers must Await confirmation
// before trusting any state change.
type PendingOperation struct {
	// Handle uniquely identifies this submission.
	Handle string `json:"handle"`
	// ShipmentID is the shipment the operation concerns.
	ShipmentID string `json:"shipment_id"`
	// TxHash is the provider's pending-pool reference for the operation.
	TxHash string `json:"transaction_hash"`

	gw          *Gateway
	kind        walletports.OpKind
	target      domain.Status
	submittedAt time.Time
}

// SubmitCreate submits a value-bearing create operation for a shipment built
// by the lifecycle model. The shipment becomes locally tracked immediately,
// but keeps no transaction hash until confirmation.
func (g *Gateway) SubmitCreate(ctx context.Context, sh *domain.Shipment) (*PendingOperation, error) {
	account, ok := g.session.Account()
	if !ok {
		return nil, ErrNotConnected
	}

	g.mu.Lock()
	if _, dup := g.pending[sh.ID]; dup {
		g.mu.Unlock()
		return nil, fmt.Errorf("shipment %s: %w", sh.ID, ErrDuplicatePending)
	}
	handle := uuid.NewString()
	g.pending[sh.ID] = handle
	if _, tracked := g.shipments[sh.ID]; !tracked {
		g.shipments[sh.ID] = sh
	}
	g.mu.Unlock()

	op := walletports.Operation{
		Kind:       walletports.OpCreateShipment,
		ShipmentID: sh.ID,
		From:       account,
		To:         sh.Recipient,
		Value:      sh.Value,
	}

	return g.submit(ctx, handle, op, domain.StatusCreated)
}

// SubmitStatusUpdate submits a non-value-bearing status change. Shipment
// existence is established from the local cache rather than a ledger round
// trip; the ledger stays authoritative through event reconciliation.
func (g *Gateway) SubmitStatusUpdate(ctx context.Context, shipmentID string, target domain.Status) (*PendingOperation, error) {
	account, ok := g.session.Account()
	if !ok {
		return nil, ErrNotConnected
	}

	// Validation failures never reach the ledger.
	if !target.IsValid() {
		return nil, fmt.Errorf("shipment %s: target %q: %w", shipmentID, target, domain.ErrIllegalTransition)
	}

	g.mu.Lock()
	sh, tracked := g.shipments[shipmentID]
	if !tracked {
		g.mu.Unlock()
		return nil, fmt.Errorf("shipment %s: %w", shipmentID, ErrNotFound)
	}
	if !sh.Status.CanTransition(target) {
		g.mu.Unlock()
		return nil, fmt.Errorf("shipment %s: %s -> %s: %w", shipmentID, sh.Status, target, domain.ErrIllegalTransition)
	}
	if _, dup := g.pending[shipmentID]; dup {
		g.mu.Unlock()
		return nil, fmt.Errorf("shipment %s: %w", shipmentID, ErrDuplicatePending)
	}
	handle := uuid.NewString()
	g.pending[shipmentID] = handle
	g.mu.Unlock()

	op := walletports.Operation{
		Kind:       walletports.OpUpdateStatus,
		ShipmentID: shipmentID,
		From:       account,
		StatusCode: target.Code(),
	}

	return g.submit(ctx, handle, op, target)
}

// ConfirmDelivery submits the dedicated delivery confirmation. Only the
// shipment's recorded recipient may call it.
func (g *Gateway) ConfirmDelivery(ctx context.Context, shipmentID string) (*PendingOperation, error) {
	account, ok := g.session.Account()
	if !ok {
		return nil, ErrNotConnected
	}

	g.mu.Lock()
	sh, tracked := g.shipments[shipmentID]
	if !tracked {
		g.mu.Unlock()
		return nil, fmt.Errorf("shipment %s: %w", shipmentID, ErrNotFound)
	}
	if !account.EqualFold(sh.Recipient) {
		g.mu.Unlock()
		return nil, fmt.Errorf("shipment %s: account %s is not the recipient: %w", shipmentID, account.Short(), ErrUnauthorized)
	}
	if !sh.Status.CanTransition(domain.StatusDelivered) {
		g.mu.Unlock()
		return nil, fmt.Errorf("shipment %s: %s -> %s: %w", shipmentID, sh.Status, domain.StatusDelivered, domain.ErrIllegalTransition)
	}
	if _, dup := g.pending[shipmentID]; dup {
		g.mu.Unlock()
		return nil, fmt.Errorf("shipment %s: %w", shipmentID, ErrDuplicatePending)
	}
	handle := uuid.NewString()
	g.pending[shipmentID] = handle
	g.mu.Unlock()

	op := walletports.Operation{
		Kind:       walletports.OpConfirmDelivery,
		ShipmentID: shipmentID,
		From:       account,
		StatusCode: domain.StatusDelivered.Code(),
	}

	return g.submit(ctx, handle, op, domain.StatusDelivered)
}

// submit performs the phase-1 handoff to the provider for a reserved slot.
func (g *Gateway) submit(ctx context.Context, handle string, op walletports.Operation, target domain.Status) (*PendingOperation, error) {
	txHash, err := g.provider.Submit(ctx, op)
	if err != nil {
		g.releasePending(op.ShipmentID, handle)
		metrics.SubmissionsTotal.WithLabelValues(string(op.Kind), "rejected").Inc()
		return nil, fmt.Errorf("shipment %s: %w: %v", op.ShipmentID, ErrSubmissionRejected, err)
	}

	metrics.SubmissionsTotal.WithLabelValues(string(op.Kind), "accepted").Inc()
	g.logger.Info("Operation submitted",
		zap.String("shipment_id", op.ShipmentID),
		zap.String("kind", string(op.Kind)),
		zap.String("tx_hash", txHash),
	)

	return &PendingOperation{
		Handle:      handle,
		ShipmentID:  op.ShipmentID,
		TxHash:      txHash,
		gw:          g,
		kind:        op.Kind,
		target:      target,
		submittedAt: time.Now(),
	}, nil
}

// Await blocks until the operation is block-included or ctx is done. The
// wait is additionally bounded by the wallet session epoch: an account or
// network change resolves the await with ErrSessionInvalidated. Abandoning
// the await stops local waiting only; the ledger operation is not cancelled.
func (p *PendingOperation) Await(ctx context.Context) (*domain.TransactionRecord, error) {
	sessCtx, err := p.gw.session.Context()
	if err != nil {
		p.gw.releasePending(p.ShipmentID, p.Handle)
		return nil, fmt.Errorf("shipment %s: %w", p.ShipmentID, walletdomain.ErrSessionInvalidated)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sessCtx, cancel)
	defer stop()

	receipt, err := p.gw.provider.AwaitReceipt(waitCtx, p.TxHash)
	if err != nil {
		p.gw.releasePending(p.ShipmentID, p.Handle)
		if sessCtx.Err() != nil {
			return nil, fmt.Errorf("shipment %s: %w", p.ShipmentID, walletdomain.ErrSessionInvalidated)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("shipment %s: target %s: %w", p.ShipmentID, p.target, ErrConfirmationTimeout)
		}
		return nil, fmt.Errorf("shipment %s: await abandoned: %w", p.ShipmentID, err)
	}

	metrics.ConfirmationDuration.Observe(time.Since(p.submittedAt).Seconds())

	return p.gw.applyConfirmation(p, receipt), nil
}

// applyConfirmation folds a phase-2 receipt into local state. Applications
// are deduplicated by transaction hash so a confirmation and its mirrored
// event count once.
func (g *Gateway) applyConfirmation(p *PendingOperation, receipt *walletports.Receipt) *domain.TransactionRecord {
	record := &domain.TransactionRecord{
		TransactionHash: receipt.TxHash,
		BlockNumber:     receipt.BlockNumber,
		GasUsed:         receipt.GasUsed,
	}

	g.mu.Lock()
	if g.pending[p.ShipmentID] == p.Handle {
		delete(g.pending, p.ShipmentID)
	}

	if _, seen := g.applied[receipt.TxHash]; seen {
		g.mu.Unlock()
		return record
	}
	g.applied[receipt.TxHash] = struct{}{}

	mark := eventMark{block: receipt.BlockNumber}
	stale := !g.marks[p.ShipmentID].before(mark) && g.marks[p.ShipmentID] != (eventMark{})
	if !stale {
		g.marks[p.ShipmentID] = mark
	}

	sh := g.shipments[p.ShipmentID]
	var deliveredNow bool
	if sh != nil && !stale {
		if p.kind != walletports.OpCreateShipment {
			deliveredNow = p.target == domain.StatusDelivered && sh.Status != domain.StatusDelivered
			sh.Status = p.target
		}
		sh.LastTransactionHash = receipt.TxHash
	}
	var createdValue *decimal.Decimal
	if p.kind == walletports.OpCreateShipment && sh != nil {
		v := sh.Value
		createdValue = &v
	}
	g.mu.Unlock()

	g.logger.Info("Operation confirmed",
		zap.String("shipment_id", p.ShipmentID),
		zap.String("tx_hash", receipt.TxHash),
		zap.Uint64("block_number", receipt.BlockNumber),
	)

	g.bumpStats(createdValue, deliveredNow)

	return record
}

// releasePending clears the outstanding-operation slot if it still belongs
// to the given handle.
func (g *Gateway) releasePending(shipmentID, handle string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending[shipmentID] == handle {
		delete(g.pending, shipmentID)
	}
}

// Query reads the ledger's current view of a shipment through the provider.
func (g *Gateway) Query(ctx context.Context, shipmentID string) (*LedgerShipment, error) {
	view, err := g.provider.GetShipment(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, walletports.ErrUnknownShipment) {
			return nil, fmt.Errorf("shipment %s: %w", shipmentID, ErrNotFound)
		}
		return nil, fmt.Errorf("shipment %s: ledger read failed: %w", shipmentID, err)
	}

	status, err := domain.StatusFromCode(view.StatusCode)
	if err != nil {
		return nil, fmt.Errorf("shipment %s: ledger returned unknown status code %d: %w", shipmentID, view.StatusCode, err)
	}

	return &LedgerShipment{
		ShipmentID: shipmentID,
		Sender:     view.Sender,
		Recipient:  view.Recipient,
		Value:      view.Value,
		Status:     status,
		Timestamp:  view.Timestamp,
	}, nil
}

// LedgerShipment is the ledger's confirmed view of a shipment.
type LedgerShipment struct {
	ShipmentID string               `json:"shipment_id"`
	Sender     walletdomain.Address `json:"sender"`
	Recipient  walletdomain.Address `json:"recipient"`
	Value      decimal.Decimal      `json:"value"`
	Status     domain.Status        `json:"status"`
	Timestamp  time.Time            `json:"timestamp"`
}

// Shipment returns a copy of the locally tracked shipment.
func (g *Gateway) Shipment(shipmentID string) (domain.Shipment, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sh, ok := g.shipments[shipmentID]
	if !ok {
		return domain.Shipment{}, false
	}
	return *sh, true
}

// Stats returns the aggregate counters, or zeroes when no repository is
// configured.
func (g *Gateway) Stats(ctx context.Context) (*ports.Stats, error) {
	if g.stats == nil {
		return &ports.Stats{TotalValue: decimal.Zero}, nil
	}
	return g.stats.Stats(ctx)
}

// bumpStats updates the best-effort aggregate counters. Failures are logged
// and never propagate.
func (g *Gateway) bumpStats(createdValue *decimal.Decimal, delivered bool) {
	if g.stats == nil || (createdValue == nil && !delivered) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	if createdValue != nil {
		if err := g.stats.RecordCreated(ctx, *createdValue); err != nil {
			g.logger.Warn("Failed to update shipment counters", zap.Error(err))
		}
	}
	if delivered {
		if err := g.stats.RecordDelivered(ctx); err != nil {
			g.logger.Warn("Failed to update delivered counter", zap.Error(err))
		}
	}
}
