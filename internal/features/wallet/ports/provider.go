package ports

import (
	"context"
	"errors"
	"time"

	"shipledger/internal/features/wallet/domain"

	"github.com/shopspring/decimal"
)

var (
	// ErrRejected is returned by Submit when the provider refuses the
	// operation (e.g., insufficient funds).
	ErrRejected = errors.New("operation rejected by provider")
	// ErrUnknownShipment is returned by GetShipment when the ledger has no
	// record for the requested id.
	ErrUnknownShipment = errors.New("shipment unknown to ledger")
)

// OpKind identifies a state-changing contract method.
type OpKind string

const (
	OpCreateShipment  OpKind = "createShipment"
	OpUpdateStatus    OpKind = "updateShipmentStatus"
	OpConfirmDelivery OpKind = "confirmDelivery"
)

// Operation is a state-changing request submitted to the ledger.
type Operation struct {
	// Kind selects the contract method to invoke.
	Kind OpKind
	// ShipmentID tags the operation with the shipment it concerns.
	ShipmentID string
	// From is the signing account attributed with the operation.
	From domain.Address
	// To is the counterparty address (recipient for creates).
	To domain.Address
	// Value is the amount carried by the operation in the ledger's base
	// currency unit. Zero for non-value-bearing operations.
	Value decimal.Decimal
	// StatusCode is the encoded target status for status updates.
	StatusCode uint8
}

// Receipt is populated only after the ledger confirms an operation.
type Receipt struct {
	TxHash      string `json:"transaction_hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}

// EventKind identifies a contract event emitted by the ledger.
type EventKind string

const (
	EventShipmentCreated       EventKind = "ShipmentCreated"
	EventShipmentStatusUpdated EventKind = "ShipmentStatusUpdated"
	EventDeliveryConfirmed     EventKind = "DeliveryConfirmed"
)

// Event is an asynchronous notification of a ledger-side state change.
// BlockNumber and LogIndex carry the order in which the ledger recorded
// the event.
type Event struct {
	Kind        EventKind       `json:"kind"`
	ShipmentID  string          `json:"shipment_id"`
	Sender      domain.Address  `json:"sender,omitempty"`
	Recipient   domain.Address  `json:"recipient,omitempty"`
	Value       decimal.Decimal `json:"value"`
	StatusCode  uint8           `json:"status_code"`
	TxHash      string          `json:"transaction_hash"`
	BlockNumber uint64          `json:"block_number"`
	LogIndex    uint32          `json:"log_index"`
}

// ShipmentView is the ledger's current view of a shipment as returned by
// the contract's read method.
type ShipmentView struct {
	Sender     domain.Address
	Recipient  domain.Address
	Value      decimal.Decimal
	StatusCode uint8
	Timestamp  time.Time
}

// Provider is the capability boundary to the external wallet/ledger. It
// covers authorization, operation submission, contract reads, event
// subscription and session change notifications. Signing, key management
// and consensus stay on the provider's side of this boundary.
type Provider interface {
	// RequestAccounts asks the provider to authorize the client. Returns
	// domain.ErrUserRejected if the user declines.
	RequestAccounts(ctx context.Context) ([]domain.Address, error)
	// ChainID returns the identifier of the connected network.
	ChainID(ctx context.Context) (uint64, error)
	// Balance returns the balance of an address in the base currency unit.
	Balance(ctx context.Context, addr domain.Address) (decimal.Decimal, error)

	// Submit places an operation into the provider's pending pool and
	// returns its transaction hash immediately (phase 1). The hash is a
	// correlation handle, not a confirmation.
	Submit(ctx context.Context, op Operation) (string, error)
	// AwaitReceipt blocks until the operation identified by txHash is
	// block-included (phase 2) or ctx is done.
	AwaitReceipt(ctx context.Context, txHash string) (*Receipt, error)
	// GetShipment reads the ledger's current view of a shipment.
	GetShipment(ctx context.Context, shipmentID string) (*ShipmentView, error)

	// SubscribeEvents registers a contract event listener. The returned
	// release function detaches the listener; failing to call it leaks a
	// provider-side resource.
	SubscribeEvents() (<-chan Event, func(), error)

	// OnAccountsChanged registers a callback fired when the authorized
	// account set changes. An empty slice means access was revoked.
	OnAccountsChanged(fn func(accounts []domain.Address))
	// OnChainChanged registers a callback fired when the connected network
	// changes.
	OnChainChanged(fn func(chainID uint64))
}
