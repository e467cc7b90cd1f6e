package pool

import "errors"

var (
	// ErrWrongAmount is returned when the value attached to a deposit is not
	// exactly the deposit amount of the ledger.
	ErrWrongAmount = errors.New("wrong deposit amount")
	// ErrDuplicateCommitment is returned for a commitment which has already
	// been deposited, even when the ledger has been drained since.
	ErrDuplicateCommitment = errors.New("commitment already exists")
	// ErrCustodyCaller is returned when the custody account of the ledger itself
	// tries to deposit, the transfer would not move any value.
	ErrCustodyCaller = errors.New("custody account can not deposit")
	// ErrUnauthorized is returned when someone else than the owner tries to drain.
	ErrUnauthorized = errors.New("only owner")
	// ErrStaleNonce is returned for a drain request whose nonce is not greater
	// than the nonce of the last accepted drain.
	ErrStaleNonce = errors.New("stale drain nonce")

	ErrAlreadyConstructed = errors.New("ledger already constructed")
	ErrNotConstructed     = errors.New("ledger not constructed")
	ErrInvalidState       = errors.New("invalid ledger state")
)
