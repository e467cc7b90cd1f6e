package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/holiman/uint256"

	"github.com/cosmicpool/cosmicpool/logger"
	"github.com/cosmicpool/cosmicpool/types"
)

var (
	_ Custody  = (*EVM)(nil)
	_ Accounts = (*EVM)(nil)

	// key under which the latest committed state root is kept
	headRootKey = []byte("cosmicpool-custody-root")
)

var log = logger.CreateForPackage()

/*
EVM keeps account balances in a go-ethereum state trie. Every operation
commits a new state root and persists it, so balances survive restarts when
the state is backed by a LevelDB directory.
*/
type EVM struct {
	mu      sync.Mutex
	address common.Address
	db      ethdb.Database
	sdb     state.Database
	state   *state.StateDB
	root    common.Hash
}

// NewEVM opens the custody state in dir, an empty dir means in-memory state.
func NewEVM(dir string, ledger common.Address) (*EVM, error) {
	var db ethdb.Database
	var err error
	if dir == "" {
		db = rawdb.NewMemoryDatabase()
	} else {
		db, err = rawdb.NewLevelDBDatabase(dir, 16, 16, "cosmicpool/custody/", false)
		if err != nil {
			return nil, fmt.Errorf("opening custody state %s: %w", dir, err)
		}
	}
	e := &EVM{address: ledger, db: db, sdb: state.NewDatabase(db), root: common.Hash{}}
	ok, err := db.Has(headRootKey)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("reading custody root: %w", err), db.Close())
	}
	if ok {
		b, err := db.Get(headRootKey)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("reading custody root: %w", err), db.Close())
		}
		e.root = common.BytesToHash(b)
	}
	if e.state, err = state.New(e.root, e.sdb, nil); err != nil {
		return nil, errors.Join(fmt.Errorf("loading custody state %s: %w", e.root, err), db.Close())
	}
	log.Debug("custody state loaded, root %s", e.root)
	return e, nil
}

func (e *EVM) Address() common.Address {
	return e.address
}

func (e *EVM) Root() common.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

func (e *EVM) Credit(_ context.Context, from common.Address, amount *uint256.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(func(s *state.StateDB) error {
		return transfer(s, from, e.address, amount)
	})
}

func (e *EVM) DebitTo(_ context.Context, to common.Address, amount *uint256.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(func(s *state.StateDB) error {
		return transfer(s, e.address, to, amount)
	})
}

func (e *EVM) Balance(ctx context.Context) (*uint256.Int, error) {
	return e.BalanceOf(ctx, e.address)
}

func (e *EVM) BalanceOf(_ context.Context, addr common.Address) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, overflow := uint256.FromBig(e.state.GetBalance(addr))
	if overflow {
		return nil, fmt.Errorf("balance of %s does not fit 256 bits", addr)
	}
	return b, nil
}

func (e *EVM) Fund(_ context.Context, addr common.Address, amount *uint256.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(func(s *state.StateDB) error {
		sum, overflow := new(uint256.Int).AddOverflow(balanceOf(s, addr), amount)
		if overflow {
			return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
		}
		s.SetBalance(addr, sum.ToBig())
		return nil
	})
}

func (e *EVM) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db.Close()
}

// apply runs fn on the state and commits the result. When fn or the commit
// fails the state is reloaded from the last persisted root.
func (e *EVM) apply(fn func(s *state.StateDB) error) error {
	snapshot := e.state.Snapshot()
	if err := fn(e.state); err != nil {
		e.state.RevertToSnapshot(snapshot)
		return err
	}
	root, err := e.commit()
	if err != nil {
		return errors.Join(err, e.reload())
	}
	e.root = root
	return nil
}

func (e *EVM) commit() (common.Hash, error) {
	root, err := e.state.Commit(true)
	if err != nil {
		return common.Hash{}, fmt.Errorf("committing custody state: %w", err)
	}
	if err = e.sdb.TrieDB().Commit(root, false, nil); err != nil {
		return common.Hash{}, fmt.Errorf("flushing custody trie: %w", err)
	}
	if err = e.db.Put(headRootKey, root.Bytes()); err != nil {
		return common.Hash{}, fmt.Errorf("storing custody root: %w", err)
	}
	// a committed StateDB must not be reused
	if e.state, err = state.New(root, e.sdb, nil); err != nil {
		return common.Hash{}, fmt.Errorf("reopening custody state: %w", err)
	}
	return root, nil
}

func (e *EVM) reload() error {
	s, err := state.New(e.root, e.sdb, nil)
	if err != nil {
		return fmt.Errorf("reloading custody state %s: %w", e.root, err)
	}
	e.state = s
	return nil
}

func balanceOf(s *state.StateDB, addr common.Address) *uint256.Int {
	b, overflow := uint256.FromBig(s.GetBalance(addr))
	if overflow {
		// balances are only ever set from 256 bit values
		return new(uint256.Int).SetAllOne()
	}
	return b
}

func transfer(s *state.StateDB, from, to common.Address, amount *uint256.Int) error {
	src := balanceOf(s, from)
	if src.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from, types.FormatWei(src), types.FormatWei(amount))
	}
	if from == to || amount.IsZero() {
		return nil
	}
	if _, overflow := new(uint256.Int).AddOverflow(balanceOf(s, to), amount); overflow {
		return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	v := amount.ToBig()
	s.SubBalance(from, v)
	s.AddBalance(to, v)
	return nil
}
