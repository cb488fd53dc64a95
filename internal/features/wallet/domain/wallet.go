package domain

import (
	"errors"
	"strings"
)

var (
	// ErrProviderUnavailable is returned when no signing provider is configured.
	ErrProviderUnavailable = errors.New("signing provider unavailable")
	// ErrUserRejected is returned when the user declines the authorization request.
	ErrUserRejected = errors.New("authorization rejected by user")
	// ErrNoAccounts is returned when authorization succeeds but yields no accounts.
	ErrNoAccounts = errors.New("no accounts available")
	// ErrSessionInvalidated is returned when an account or network change aborts
	// an in-flight operation.
	ErrSessionInvalidated = errors.New("wallet session invalidated")
)

// Address is a 20-byte identifier in the ledger's address space,
// rendered as a 0x-prefixed hex string.
type Address string

// IsValid reports whether the address is a well-formed 0x-prefixed
// 20-byte hex string.
func (a Address) IsValid() bool {
	s := string(a)
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Short returns the abbreviated display form of the address (0x1234...abcd).
func (a Address) Short() string {
	s := string(a)
	if len(s) < 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

// EqualFold compares two addresses ignoring hex casing.
func (a Address) EqualFold(other Address) bool {
	return strings.EqualFold(string(a), string(other))
}

// networkNames maps known chain identifiers to their display names.
var networkNames = map[uint64]string{
	1:        "Ethereum Mainnet",
	5:        "Goerli Testnet",
	11155111: "Sepolia Testnet",
	137:      "Polygon Mainnet",
	80001:    "Polygon Mumbai",
	1337:     "Local Ganache",
}

// NetworkName returns the display name for a chain identifier, or
// "Unknown Network" if the chain is not recognized.
func NetworkName(chainID uint64) string {
	if name, ok := networkNames[chainID]; ok {
		return name
	}
	return "Unknown Network"
}

// Session is a snapshot of the wallet session state exposed to the
// presentation layer.
type Session struct {
	// Connected indicates whether an account is currently authorized.
	Connected bool `json:"connected"`
	// Account is the authorized signing address, empty when disconnected.
	Account Address `json:"account,omitempty"`
	// ChainID is the identifier of the connected network.
	ChainID uint64 `json:"chain_id,omitempty"`
	// Network is the display name of the connected network.
	Network string `json:"network,omitempty"`
}
