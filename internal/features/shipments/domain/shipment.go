package domain

import (
	"errors"
	"time"

	wallet "shipledger/internal/features/wallet/domain"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAddress is returned when a sender or recipient address is malformed.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrInvalidValue is returned when the shipment value is negative.
	ErrInvalidValue = errors.New("invalid shipment value")
	// ErrIllegalTransition is returned when a status transition is not permitted
	// by the lifecycle graph.
	ErrIllegalTransition = errors.New("illegal status transition")
)

// Status represents the lifecycle state of a shipment.
type Status string

const (
	StatusCreated         Status = "CREATED"
	StatusPickupScheduled Status = "PICKUP_SCHEDULED"
	StatusPickedUp        Status = "PICKED_UP"
	StatusInTransit       Status = "IN_TRANSIT"
	StatusOutForDelivery  Status = "OUT_FOR_DELIVERY"
	StatusDelivered       Status = "DELIVERED"
	StatusFailed          Status = "FAILED"
	StatusReturned        Status = "RETURNED"
	StatusCancelled       Status = "CANCELLED"
)

// statusCodes maps each status to its on-ledger uint8 encoding.
var statusCodes = map[Status]uint8{
	StatusCreated:         0,
	StatusPickupScheduled: 1,
	StatusPickedUp:        2,
	StatusInTransit:       3,
	StatusOutForDelivery:  4,
	StatusDelivered:       5,
	StatusFailed:          6,
	StatusReturned:        7,
	StatusCancelled:       8,
}

var codeStatuses = func() map[uint8]Status {
	m := make(map[uint8]Status, len(statusCodes))
	for s, c := range statusCodes {
		m[c] = s
	}
	return m
}()

// forwardNext maps each status to its successor on the main delivery path.
var forwardNext = map[Status]Status{
	StatusCreated:         StatusPickupScheduled,
	StatusPickupScheduled: StatusPickedUp,
	StatusPickedUp:        StatusInTransit,
	StatusInTransit:       StatusOutForDelivery,
	StatusOutForDelivery:  StatusDelivered,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := statusCodes[s]
	return ok
}

// IsTerminal reports whether no further transitions are permitted from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusFailed, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

// Code returns the on-ledger uint8 encoding of the status.
func (s Status) Code() uint8 {
	return statusCodes[s]
}

// StatusFromCode decodes an on-ledger status code. Unknown codes are
// rejected rather than defaulted.
func StatusFromCode(code uint8) (Status, error) {
	s, ok := codeStatuses[code]
	if !ok {
		return "", ErrIllegalTransition
	}
	return s, nil
}

// CanTransition reports whether target is reachable from s in one step.
// The main path advances one stage at a time; FAILED, RETURNED and
// CANCELLED are reachable from any non-terminal state.
func (s Status) CanTransition(target Status) bool {
	if !target.IsValid() || s.IsTerminal() {
		return false
	}
	switch target {
	case StatusFailed, StatusReturned, StatusCancelled:
		return true
	}
	return forwardNext[s] == target
}

// Shipment is the authoritative local copy of a tracked shipment.
// Identity, parties and value are immutable after creation; Status and
// LastTransactionHash mutate only through validated, confirmed transitions.
type Shipment struct {
	ID        string         `json:"id"`
	Sender    wallet.Address `json:"sender"`
	Recipient wallet.Address `json:"recipient"`
	// Value is the amount escrowed for the shipment in the ledger's base
	// currency unit.
	Value     decimal.Decimal `json:"value"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	// LastTransactionHash references the most recent ledger transaction
	// that mutated this shipment. Empty until the first confirmation.
	LastTransactionHash string `json:"last_transaction_hash,omitempty"`
}

// TransactionRecord describes a confirmed ledger transaction. It is
// populated only after block inclusion, never speculatively.
type TransactionRecord struct {
	TransactionHash string `json:"transaction_hash"`
	BlockNumber     uint64 `json:"block_number"`
	GasUsed         uint64 `json:"gas_used"`
}

// NewShipment creates a Shipment in status CREATED and validates its fields.
// No ledger interaction happens here.
func NewShipment(id string, sender, recipient wallet.Address, value decimal.Decimal) (*Shipment, error) {
	if !sender.IsValid() || !recipient.IsValid() {
		return nil, ErrInvalidAddress
	}
	if value.IsNegative() {
		return nil, ErrInvalidValue
	}

	return &Shipment{
		ID:        id,
		Sender:    sender,
		Recipient: recipient,
		Value:     value,
		Status:    StatusCreated,
		CreatedAt: time.Now(),
	}, nil
}

// Transition validates and applies a status change. It is pure with respect
// to the ledger: callers must only invoke it after phase-2 confirmation.
func (s *Shipment) Transition(target Status) error {
	if !s.Status.CanTransition(target) {
		return ErrIllegalTransition
	}
	s.Status = target
	return nil
}
