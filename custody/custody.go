/*
Package custody implements the value-transfer substrate of the pool: it moves
the attached value into the ledger's custody account on deposit and back out
on drain.
*/
package custody

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Custody is the capability the ledger uses to hold value. Every method is
// atomic: on error no balance has changed.
type Custody interface {
	// Credit moves amount from account "from" into ledger custody.
	Credit(ctx context.Context, from common.Address, amount *uint256.Int) error
	// DebitTo moves amount out of ledger custody into account "to".
	DebitTo(ctx context.Context, to common.Address, amount *uint256.Int) error
	// Balance returns the value currently held in ledger custody.
	Balance(ctx context.Context) (*uint256.Int, error)
	// Address of the ledger custody account.
	Address() common.Address
}

// Accounts gives access to balances of other accounts, used for devnet
// funding and by tooling.
type Accounts interface {
	BalanceOf(ctx context.Context, addr common.Address) (*uint256.Int, error)
	Fund(ctx context.Context, addr common.Address, amount *uint256.Int) error
}

func checkAmount(amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	return nil
}
