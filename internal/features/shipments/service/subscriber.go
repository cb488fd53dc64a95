package service

import (
	"errors"
	"fmt"
	"sync"

	"shipledger/internal/core/logger"
	"shipledger/internal/core/metrics"
	"shipledger/internal/features/shipments/domain"
	walletports "shipledger/internal/features/wallet/ports"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrAlreadySubscribed is returned when Subscribe is called while a
// subscription is active.
var ErrAlreadySubscribed = errors.New("already subscribed")

// Subscriber receives asynchronous ledger events and reconciles them into
// the gateway's local state. Events are deduplicated by transaction hash
// and applied per shipment in ledger order (block, then log index); events
// for different shipments may interleave freely.
type Subscriber struct {
	gw       *Gateway
	provider walletports.Provider
	logger   *zap.Logger

	mu      sync.Mutex
	release func()
	done    chan struct{}
}

// NewSubscriber creates a Subscriber reconciling into the given gateway.
func NewSubscriber(gw *Gateway, provider walletports.Provider) *Subscriber {
	return &Subscriber{
		gw:       gw,
		provider: provider,
		logger:   logger.Named("subscriber"),
	}
}

// Subscribe attaches to the provider's contract events and dispatches each
// received event to handler after reconciliation. A nil handler is allowed.
func (s *Subscriber) Subscribe(handler func(walletports.Event)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.release != nil {
		return ErrAlreadySubscribed
	}

	events, release, err := s.provider.SubscribeEvents()
	if err != nil {
		return fmt.Errorf("failed to subscribe to ledger events: %w", err)
	}

	s.release = release
	s.done = make(chan struct{})
	go s.run(events, s.done, handler)

	return nil
}

// Unsubscribe detaches the provider-side listener and stops the dispatch
// loop. Idempotent.
func (s *Subscriber) Unsubscribe() {
	s.mu.Lock()
	release, done := s.release, s.done
	s.release = nil
	s.done = nil
	s.mu.Unlock()

	if release != nil {
		release()
	}
	if done != nil {
		<-done
	}
}

// run drains the event channel until the provider closes it on release.
func (s *Subscriber) run(events <-chan walletports.Event, done chan struct{}, handler func(walletports.Event)) {
	defer close(done)

	for ev := range events {
		s.gw.ApplyEvent(ev)
		if handler != nil {
			handler(ev)
		}
	}
}

// ApplyEvent reconciles one ledger event into local state. Returns true if
// the event mutated state, false if it was deduplicated or superseded by a
// later-ordered application.
func (g *Gateway) ApplyEvent(ev walletports.Event) bool {
	metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()

	g.mu.Lock()

	if _, seen := g.applied[ev.TxHash]; seen {
		g.mu.Unlock()
		metrics.EventsDeduplicated.Inc()
		return false
	}
	g.applied[ev.TxHash] = struct{}{}

	mark := eventMark{block: ev.BlockNumber, logIndex: ev.LogIndex}
	if last, ok := g.marks[ev.ShipmentID]; ok && !last.before(mark) {
		// A later-ordered application already holds; the final state is
		// unchanged by replaying an earlier event.
		g.mu.Unlock()
		return false
	}
	g.marks[ev.ShipmentID] = mark

	sh, tracked := g.shipments[ev.ShipmentID]
	if !tracked {
		// Another client instance created this shipment; materialize it
		// from the event.
		sh = &domain.Shipment{
			ID:        ev.ShipmentID,
			Sender:    ev.Sender,
			Recipient: ev.Recipient,
			Value:     ev.Value,
			Status:    domain.StatusCreated,
		}
		g.shipments[ev.ShipmentID] = sh
	}

	var createdValue *decimal.Decimal
	var deliveredNow bool

	switch ev.Kind {
	case walletports.EventShipmentCreated:
		v := ev.Value
		createdValue = &v
	case walletports.EventShipmentStatusUpdated:
		status, err := domain.StatusFromCode(ev.StatusCode)
		if err != nil {
			g.mu.Unlock()
			g.logger.Error("Ledger event carries unknown status code",
				zap.String("shipment_id", ev.ShipmentID),
				zap.Uint8("status_code", ev.StatusCode),
			)
			return false
		}
		deliveredNow = status == domain.StatusDelivered && sh.Status != domain.StatusDelivered
		sh.Status = status
	case walletports.EventDeliveryConfirmed:
		deliveredNow = sh.Status != domain.StatusDelivered
		sh.Status = domain.StatusDelivered
	default:
		g.mu.Unlock()
		g.logger.Warn("Ignoring unknown ledger event kind", zap.String("kind", string(ev.Kind)))
		return false
	}

	sh.LastTransactionHash = ev.TxHash
	g.mu.Unlock()

	g.logger.Debug("Ledger event reconciled",
		zap.String("shipment_id", ev.ShipmentID),
		zap.String("kind", string(ev.Kind)),
		zap.String("tx_hash", ev.TxHash),
	)

	g.bumpStats(createdValue, deliveredNow)

	return true
}
