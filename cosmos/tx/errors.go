package tx

import (
	"errors"
	"fmt"

	"github.com/kisa-team/gonka-wallet/crypto"
)

var (
	ErrInvalidAddress      = crypto.ErrInvalidAddress
	ErrInvalidAmount       = errors.New("amount must be greater than 0")
	ErrInvalidVoteOption   = errors.New("invalid vote option")
	ErrInvalidProposal     = errors.New("invalid proposal id")
	ErrUnknownGrantKind    = errors.New("unknown grant kind")
	ErrInvalidGasPrice     = errors.New("invalid gas price")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountNotFound     = errors.New("account not found")
	ErrChainIDUnavailable  = errors.New("chain id unavailable")

	// ErrAddressMismatch is returned when a public key does not derive to the address it claims to sign for.
	ErrAddressMismatch = errors.New("pubkey does not match address")

	ErrTransactionValidation = errors.New("transaction validation failed")
	ErrTransactionRejected   = errors.New("transaction rejected")

	// ErrConfirmationUnknown is returned when the poll budget runs out. The transaction may still land.
	ErrConfirmationUnknown = errors.New("transaction status unknown after multiple attempts")
)

// RejectionError is a transaction the chain refused, either at broadcast or once included in a block.
type RejectionError struct {
	TxHash    string
	Code      uint32
	Codespace string
	Reason    string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

func (e *RejectionError) Unwrap() error {
	return ErrTransactionRejected
}

// MismatchError carries both addresses of a failed address derivation check.
type MismatchError struct {
	Expected string
	Derived  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("pubkey does not match address: expected %s, derived %s", e.Expected, e.Derived)
}

func (e *MismatchError) Unwrap() error {
	return ErrAddressMismatch
}
