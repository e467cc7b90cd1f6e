package pool

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/cosmicpool/cosmicpool/commitment"
	"github.com/cosmicpool/cosmicpool/custody"
	"github.com/cosmicpool/cosmicpool/keyvaluedb"
	"github.com/cosmicpool/cosmicpool/keyvaluedb/boltdb"
	"github.com/cosmicpool/cosmicpool/keyvaluedb/memorydb"
	"github.com/cosmicpool/cosmicpool/types"
)

var (
	owner  = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	user1  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	user2  = common.HexToAddress("0x0000000000000000000000000000000000000002")
	ledger = common.HexToAddress("0x00000000000000000000000000000000000000cc")

	oneEther = uint256.NewInt(1_000_000_000_000_000_000)
)

type testEnv struct {
	l   *Ledger
	db  keyvaluedb.KeyValueDB
	cus *custody.Memory
}

func newTestLedger(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	db, err := memorydb.New()
	require.NoError(t, err)
	cus := newFundedCustody(t)
	l, err := New(db, cus, owner, opts...)
	require.NoError(t, err)
	return &testEnv{l: l, db: db, cus: cus}
}

func newFundedCustody(t *testing.T) *custody.Memory {
	t.Helper()
	cus := custody.NewMemory(ledger)
	for _, a := range []common.Address{user1, user2} {
		require.NoError(t, cus.Fund(context.Background(), a, oneEther))
	}
	return cus
}

func randomCommitment(t *testing.T) types.Commitment {
	t.Helper()
	secret, err := commitment.NewSecret(commitment.Keccak256)
	require.NoError(t, err)
	c, err := commitment.Compute(commitment.Keccak256, secret)
	require.NoError(t, err)
	return c
}

func balanceOf(t *testing.T, cus custody.Accounts, addr common.Address) *uint256.Int {
	t.Helper()
	b, err := cus.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return b
}

func ledgerBalance(t *testing.T, l *Ledger) *uint256.Int {
	t.Helper()
	b, err := l.Balance(context.Background())
	require.NoError(t, err)
	return b
}

// requireInvariants checks the invariants which hold when no drain has happened.
func requireInvariants(t *testing.T, l *Ledger) {
	t.Helper()
	st := l.State()
	require.EqualValues(t, len(st.Commitments), l.DepositCount())
	require.Equal(t, st.DepositCount, l.DepositCount())
	want := new(uint256.Int).Mul(l.DepositAmount(), uint256.NewInt(l.DepositCount()))
	require.Equal(t, want, ledgerBalance(t, l))
}

func TestNew(t *testing.T) {
	env := newTestLedger(t)
	require.Equal(t, owner, env.l.Owner())
	require.Equal(t, DefaultDepositAmount, env.l.DepositAmount())
	require.Equal(t, "0.0001", types.FormatEther(env.l.DepositAmount()))
	require.Equal(t, ledger, env.l.Address())
	require.Zero(t, env.l.DepositCount())
	require.True(t, ledgerBalance(t, env.l).IsZero())

	t.Run("construct only once", func(t *testing.T) {
		_, err := New(env.db, env.cus, user1)
		require.ErrorIs(t, err, ErrAlreadyConstructed)
	})
	t.Run("zero deposit amount", func(t *testing.T) {
		db, err := memorydb.New()
		require.NoError(t, err)
		_, err = New(db, env.cus, owner, WithDepositAmount(uint256.NewInt(0)))
		require.ErrorIs(t, err, ErrInvalidState)
	})
	t.Run("nil deps", func(t *testing.T) {
		_, err := New(nil, env.cus, owner)
		require.EqualError(t, err, "ledger database is nil")
		_, err = New(env.db, nil, owner)
		require.EqualError(t, err, "custody is nil")
	})
	t.Run("deposit amount is a copy", func(t *testing.T) {
		env.l.DepositAmount().SetUint64(1)
		require.Equal(t, DefaultDepositAmount, env.l.DepositAmount())
	})
}

func TestScenarios(t *testing.T) {
	ctx := context.Background()
	env := newTestLedger(t)
	l := env.l
	amount := DefaultDepositAmount.Clone()
	c1 := randomCommitment(t)

	// A: valid deposit
	count, err := l.Deposit(ctx, user1, c1, amount)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.True(t, l.HasCommitment(c1))
	require.EqualValues(t, 1, l.DepositCount())
	require.Equal(t, amount, ledgerBalance(t, l))
	requireInvariants(t, l)

	// B: same commitment from another caller
	before := l.State()
	_, err = l.Deposit(ctx, user2, c1, amount)
	require.ErrorIs(t, err, ErrDuplicateCommitment)
	require.ErrorContains(t, err, "commitment already exists")
	require.Equal(t, before, l.State())
	require.Equal(t, oneEther, balanceOf(t, env.cus, user2))
	requireInvariants(t, l)

	// C: wrong amount
	c2 := randomCommitment(t)
	_, err = l.Deposit(ctx, user1, c2, uint256.NewInt(200_000_000_000_000))
	require.ErrorIs(t, err, ErrWrongAmount)
	require.ErrorContains(t, err, "must send exactly 0.0001 ETH")
	require.False(t, l.HasCommitment(c2))
	require.EqualValues(t, 1, l.DepositCount())
	requireInvariants(t, l)

	// D: second deposit, then drains
	count, err = l.Deposit(ctx, user2, c2, amount)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	requireInvariants(t, l)
	twice := new(uint256.Int).Mul(amount, uint256.NewInt(2))

	_, err = l.EmergencyDrain(ctx, user1)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, twice, ledgerBalance(t, l))

	drained, err := l.EmergencyDrain(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, twice, drained)
	require.True(t, ledgerBalance(t, l).IsZero())
	require.Equal(t, twice, balanceOf(t, env.cus, owner))
	require.EqualValues(t, 2, l.DepositCount())
	require.True(t, l.HasCommitment(c1))
	require.True(t, l.HasCommitment(c2))

	// drained commitments can not be reused
	_, err = l.Deposit(ctx, user1, c1, amount)
	require.ErrorIs(t, err, ErrDuplicateCommitment)

	// drain again is a no-op on value
	drained, err = l.EmergencyDrain(ctx, owner)
	require.NoError(t, err)
	require.True(t, drained.IsZero())
	require.Equal(t, twice, balanceOf(t, env.cus, owner))
}

func TestDeposit_WrongAmounts(t *testing.T) {
	ctx := context.Background()
	env := newTestLedger(t)
	amount := DefaultDepositAmount
	for name, v := range map[string]*uint256.Int{
		"nil":          nil,
		"zero":         uint256.NewInt(0),
		"one wei less": new(uint256.Int).SubUint64(amount, 1),
		"one wei more": new(uint256.Int).AddUint64(amount, 1),
		"double":       new(uint256.Int).Mul(amount, uint256.NewInt(2)),
	} {
		t.Run(name, func(t *testing.T) {
			c := randomCommitment(t)
			_, err := env.l.Deposit(ctx, user1, c, v)
			require.ErrorIs(t, err, ErrWrongAmount)
			require.False(t, env.l.HasCommitment(c))
			require.Zero(t, env.l.DepositCount())
			require.Equal(t, oneEther, balanceOf(t, env.cus, user1))
			requireInvariants(t, env.l)
		})
	}
}

func TestDeposit_AnyBitPattern(t *testing.T) {
	ctx := context.Background()
	env := newTestLedger(t)
	var zero, ones types.Commitment
	for i := range ones {
		ones[i] = 0xff
	}
	for _, c := range []types.Commitment{zero, ones} {
		_, err := env.l.Deposit(ctx, user1, c, DefaultDepositAmount)
		require.NoError(t, err)
	}
	require.EqualValues(t, 2, env.l.DepositCount())
}

func TestDeposit_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	env := newTestLedger(t)
	poor := common.HexToAddress("0x0000000000000000000000000000000000000bad")
	c := randomCommitment(t)
	_, err := env.l.Deposit(ctx, poor, c, DefaultDepositAmount)
	require.ErrorIs(t, err, custody.ErrInsufficientFunds)
	require.False(t, env.l.HasCommitment(c))
	require.Zero(t, env.l.DepositCount())
	requireInvariants(t, env.l)
}

func TestDeposit_CustodyAccountRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestLedger(t)
	_, err := env.l.Deposit(ctx, user1, randomCommitment(t), DefaultDepositAmount)
	require.NoError(t, err)

	// the custody account holds one deposit worth of value but moving it
	// to itself would not add anything to the balance
	c := randomCommitment(t)
	_, err = env.l.Deposit(ctx, env.l.Address(), c, DefaultDepositAmount)
	require.ErrorIs(t, err, ErrCustodyCaller)
	require.False(t, env.l.HasCommitment(c))
	require.EqualValues(t, 1, env.l.DepositCount())
	require.Equal(t, DefaultDepositAmount, ledgerBalance(t, env.l))
	requireInvariants(t, env.l)
}

func TestDeposit_Concurrent(t *testing.T) {
	const callers = 20
	ctx := context.Background()
	db, err := memorydb.New()
	require.NoError(t, err)
	cus := custody.NewMemory(ledger)
	addrs := make([]common.Address, callers)
	for i := range addrs {
		addrs[i] = common.BigToAddress(uint256.NewInt(uint64(0x1000 + i)).ToBig())
		require.NoError(t, cus.Fund(ctx, addrs[i], oneEther))
	}
	l, err := New(db, cus, owner)
	require.NoError(t, err)

	shared := randomCommitment(t)
	own := make([]types.Commitment, callers)
	for i := range own {
		own[i] = randomCommitment(t)
	}

	var sharedOK, ownOK atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			if _, err := l.Deposit(ctx, addrs[i], shared, DefaultDepositAmount); err == nil {
				sharedOK.Add(1)
			} else if !errors.Is(err, ErrDuplicateCommitment) {
				t.Errorf("unexpected error for shared commitment: %v", err)
			}
			if _, err := l.Deposit(ctx, addrs[i], own[i], DefaultDepositAmount); err == nil {
				ownOK.Add(1)
			} else {
				t.Errorf("deposit of distinct commitment failed: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	require.EqualValues(t, 1, sharedOK.Load())
	require.EqualValues(t, callers, ownOK.Load())
	require.EqualValues(t, callers+1, l.DepositCount())
	require.True(t, l.HasCommitment(shared))
	requireInvariants(t, l)

	events, err := l.Events(1, 0)
	require.NoError(t, err)
	require.Len(t, events, callers+1)
	for i, ev := range events {
		require.EqualValues(t, i+1, ev.DepositCount)
	}
}

func TestDeposit_StorageFailureRefunds(t *testing.T) {
	ctx := context.Background()
	mem, err := memorydb.New()
	require.NoError(t, err)
	db := &failingDB{KeyValueDB: mem}
	cus := newFundedCustody(t)
	l, err := New(db, cus, owner)
	require.NoError(t, err)

	db.commitErr = errors.New("disk full")
	c := randomCommitment(t)
	_, err = l.Deposit(ctx, user1, c, DefaultDepositAmount)
	require.ErrorContains(t, err, "disk full")
	require.False(t, l.HasCommitment(c))
	require.Zero(t, l.DepositCount())
	require.Equal(t, oneEther, balanceOf(t, cus, user1))
	require.True(t, ledgerBalance(t, l).IsZero())
	events, err := l.Events(1, 0)
	require.NoError(t, err)
	require.Empty(t, events)

	// storage recovered
	db.commitErr = nil
	count, err := l.Deposit(ctx, user1, c, DefaultDepositAmount)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	requireInvariants(t, l)
}

func TestEmergencyDrainWithNonce(t *testing.T) {
	ctx := context.Background()
	env := newTestLedger(t)
	_, err := env.l.Deposit(ctx, user1, randomCommitment(t), DefaultDepositAmount)
	require.NoError(t, err)

	_, err = env.l.EmergencyDrainWithNonce(ctx, user1, 1)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Zero(t, env.l.DrainNonce())

	_, err = env.l.EmergencyDrainWithNonce(ctx, owner, 0)
	require.ErrorIs(t, err, ErrStaleNonce)

	drained, err := env.l.EmergencyDrainWithNonce(ctx, owner, 5)
	require.NoError(t, err)
	require.Equal(t, DefaultDepositAmount, drained)
	require.EqualValues(t, 5, env.l.DrainNonce())

	_, err = env.l.EmergencyDrainWithNonce(ctx, owner, 5)
	require.ErrorIs(t, err, ErrStaleNonce)
	_, err = env.l.EmergencyDrainWithNonce(ctx, owner, 6)
	require.NoError(t, err)
}

func TestOpen_Bolt(t *testing.T) {
	ctx := context.Background()
	dbFile := filepath.Join(t.TempDir(), "ledger.db")
	db, err := boltdb.New(dbFile)
	require.NoError(t, err)
	cus := newFundedCustody(t)

	_, err = Open(db, cus)
	require.ErrorIs(t, err, ErrNotConstructed)

	amount := uint256.NewInt(42)
	l, err := New(db, cus, owner, WithDepositAmount(amount))
	require.NoError(t, err)
	c1, c2 := randomCommitment(t), randomCommitment(t)
	_, err = l.Deposit(ctx, user1, c1, amount)
	require.NoError(t, err)
	_, err = l.Deposit(ctx, user2, c2, amount)
	require.NoError(t, err)
	_, err = l.EmergencyDrainWithNonce(ctx, owner, 3)
	require.NoError(t, err)
	state := l.State()
	require.NoError(t, db.Close())

	db, err = boltdb.New(dbFile)
	require.NoError(t, err)
	defer db.Close()
	// deposit amount option is ignored for an existing ledger
	l, err = Open(db, cus, WithDepositAmount(uint256.NewInt(1)))
	require.NoError(t, err)
	require.Equal(t, owner, l.Owner())
	require.Equal(t, amount, l.DepositAmount())
	require.EqualValues(t, 2, l.DepositCount())
	require.True(t, l.HasCommitment(c1))
	require.True(t, l.HasCommitment(c2))
	require.EqualValues(t, 3, l.DrainNonce())
	require.Equal(t, state, l.State())
	require.Equal(t, []types.Commitment{c1, c2}, l.State().Commitments)

	_, err = l.Deposit(ctx, user1, c1, amount)
	require.ErrorIs(t, err, ErrDuplicateCommitment)
}

func TestOpen_CountMismatch(t *testing.T) {
	env := newTestLedger(t)
	_, err := env.l.Deposit(context.Background(), user1, randomCommitment(t), DefaultDepositAmount)
	require.NoError(t, err)
	require.NoError(t, env.db.Write(countKey, uint64(5)))
	_, err = Open(env.db, env.cus)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	env := newTestLedger(t, WithDepositAmount(uint256.NewInt(7)))
	c1, c2 := randomCommitment(t), randomCommitment(t)
	for _, c := range []types.Commitment{c1, c2} {
		_, err := env.l.Deposit(ctx, user1, c, uint256.NewInt(7))
		require.NoError(t, err)
	}
	st := env.l.State()
	require.Equal(t, "7", st.DepositAmount)

	db, err := memorydb.New()
	require.NoError(t, err)
	l, err := Restore(db, custody.NewMemory(ledger), st)
	require.NoError(t, err)
	require.Equal(t, st, l.State())
	require.Equal(t, uint256.NewInt(7), l.DepositAmount())
	events, err := l.Events(0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, c2, events[1].Commitment)
	require.EqualValues(t, 2, events[1].DepositCount)

	t.Run("invalid states", func(t *testing.T) {
		newDB := func() keyvaluedb.KeyValueDB {
			db, err := memorydb.New()
			require.NoError(t, err)
			return db
		}
		cus := custody.NewMemory(ledger)
		_, err := Restore(newDB(), cus, nil)
		require.ErrorIs(t, err, ErrInvalidState)
		_, err = Restore(newDB(), cus, &types.LedgerState{Owner: owner, DepositAmount: "1", DepositCount: 1})
		require.ErrorIs(t, err, ErrInvalidState)
		_, err = Restore(newDB(), cus, &types.LedgerState{Owner: owner, DepositAmount: "x"})
		require.ErrorIs(t, err, ErrInvalidState)
		_, err = Restore(newDB(), cus, &types.LedgerState{Owner: owner, DepositAmount: "1", DepositCount: 2, Commitments: []types.Commitment{c1, c1}})
		require.ErrorIs(t, err, ErrInvalidState)
		_, err = Restore(db, cus, st)
		require.ErrorIs(t, err, ErrAlreadyConstructed)
	})
}

type failingDB struct {
	keyvaluedb.KeyValueDB
	commitErr error
}

func (db *failingDB) StartTx() (keyvaluedb.DBTransaction, error) {
	tx, err := db.KeyValueDB.StartTx()
	if err != nil {
		return nil, err
	}
	return &failingTx{DBTransaction: tx, err: db.commitErr}, nil
}

type failingTx struct {
	keyvaluedb.DBTransaction
	err error
}

func (tx *failingTx) Commit() error {
	if tx.err != nil {
		_ = tx.DBTransaction.Rollback()
		return tx.err
	}
	return tx.DBTransaction.Commit()
}
