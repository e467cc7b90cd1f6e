package custody

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cosmicpool/cosmicpool/types"
)

var (
	_ Custody  = (*Memory)(nil)
	_ Accounts = (*Memory)(nil)
)

// Memory is a deterministic in-process custody, balances live in a map.
type Memory struct {
	mu       sync.Mutex
	address  common.Address
	balances map[common.Address]*uint256.Int
}

func NewMemory(ledger common.Address) *Memory {
	return &Memory{
		address:  ledger,
		balances: make(map[common.Address]*uint256.Int),
	}
}

func (m *Memory) Address() common.Address {
	return m.address
}

func (m *Memory) Credit(_ context.Context, from common.Address, amount *uint256.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transfer(from, m.address, amount)
}

func (m *Memory) DebitTo(_ context.Context, to common.Address, amount *uint256.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transfer(m.address, to, amount)
}

func (m *Memory) Balance(ctx context.Context) (*uint256.Int, error) {
	return m.BalanceOf(ctx, m.address)
}

func (m *Memory) BalanceOf(_ context.Context, addr common.Address) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(addr).Clone(), nil
}

func (m *Memory) Fund(_ context.Context, addr common.Address, amount *uint256.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sum, overflow := new(uint256.Int).AddOverflow(m.balance(addr), amount)
	if overflow {
		return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	m.balances[addr] = sum
	return nil
}

func (m *Memory) balance(addr common.Address) *uint256.Int {
	if b, ok := m.balances[addr]; ok {
		return b
	}
	return new(uint256.Int)
}

func (m *Memory) transfer(from, to common.Address, amount *uint256.Int) error {
	src := m.balance(from)
	if src.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from, types.FormatWei(src), types.FormatWei(amount))
	}
	if from == to {
		return nil
	}
	dst, overflow := new(uint256.Int).AddOverflow(m.balance(to), amount)
	if overflow {
		return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	m.balances[from] = new(uint256.Int).Sub(src, amount)
	m.balances[to] = dst
	return nil
}
