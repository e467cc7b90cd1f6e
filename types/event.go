package types

import "github.com/holiman/uint256"

/*
DepositEvent is emitted for every accepted deposit. DepositCount is the
ledger's deposit count right after the deposit was recorded and doubles as
the (1-based) sequence number of the event in the event log.
*/
type DepositEvent struct {
	Commitment   Commitment
	Amount       *uint256.Int
	DepositCount uint64
}
