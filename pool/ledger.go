/*
Package pool implements the commitment ledger of a fixed denomination pool.

Depositors attach exactly the deposit amount together with a commitment (a
digest of a secret they keep), the ledger records every commitment at most
once and keeps the value in custody. The owner may drain the custody at any
time, used commitments stay marked as used forever.
*/
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cosmicpool/cosmicpool/custody"
	"github.com/cosmicpool/cosmicpool/keyvaluedb"
	"github.com/cosmicpool/cosmicpool/logger"
	"github.com/cosmicpool/cosmicpool/types"
)

/*
Ledger is the commitment ledger. All mutations are serialized by a single
mutex, each of them either completes fully or leaves the ledger unchanged.
*/
type Ledger struct {
	mu sync.Mutex

	owner         common.Address
	depositAmount *uint256.Int
	commitments   map[types.Commitment]struct{}
	order         []types.Commitment
	depositCount  uint64
	drainNonce    uint64

	db      keyvaluedb.KeyValueDB
	custody custody.Custody
	subs    *subscribers
	log     logger.Logger
}

/*
New constructs a new ledger in an empty database. The owner and the deposit
amount are fixed forever.
*/
func New(db keyvaluedb.KeyValueDB, c custody.Custody, owner common.Address, opts ...Option) (*Ledger, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := checkDeps(db, c); err != nil {
		return nil, err
	}
	if !db.Empty() {
		return nil, ErrAlreadyConstructed
	}
	if o.depositAmount.IsZero() {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidState)
	}
	if err := writeMeta(db, owner, o.depositAmount); err != nil {
		return nil, fmt.Errorf("storing ledger meta: %w", err)
	}
	l := newLedger(db, c, owner, o)
	l.log.Info("ledger constructed, owner %s, deposit amount %s ETH", owner, types.FormatEther(l.depositAmount))
	return l, nil
}

// Open loads a previously constructed ledger from the database.
func Open(db keyvaluedb.KeyValueDB, c custody.Custody, opts ...Option) (*Ledger, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := checkDeps(db, c); err != nil {
		return nil, err
	}
	meta, err := readMeta(db)
	if err != nil {
		return nil, err
	}
	owner, err := meta.owner()
	if err != nil {
		return nil, err
	}
	o.depositAmount = new(uint256.Int).SetBytes(meta.DepositAmount)
	l := newLedger(db, c, owner, o)

	count, err := readUint64(db, countKey)
	if err != nil {
		return nil, err
	}
	if l.drainNonce, err = readUint64(db, drainNonceKey); err != nil {
		return nil, err
	}
	events, err := readEvents(db, 1, 0)
	if err != nil {
		return nil, err
	}
	for i, ev := range events {
		if ev.DepositCount != uint64(i+1) {
			return nil, fmt.Errorf("%w: event %d has sequence number %d", ErrInvalidState, i+1, ev.DepositCount)
		}
		if _, ok := l.commitments[ev.Commitment]; ok {
			return nil, fmt.Errorf("%w: duplicate commitment %s", ErrInvalidState, ev.Commitment)
		}
		l.insert(ev.Commitment)
	}
	if count != l.depositCount {
		return nil, fmt.Errorf("%w: deposit count %d but %d commitments", ErrInvalidState, count, l.depositCount)
	}
	l.log.Debug("ledger loaded, owner %s, %d deposits", owner, l.depositCount)
	return l, nil
}

/*
Restore constructs a ledger in an empty database from an exported state. The
custody substrate is not touched, restoring the held value is up to the
substrate.
*/
func Restore(db keyvaluedb.KeyValueDB, c custody.Custody, st *types.LedgerState, opts ...Option) (*Ledger, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: state is nil", ErrInvalidState)
	}
	if st.DepositCount != uint64(len(st.Commitments)) {
		return nil, fmt.Errorf("%w: deposit count %d but %d commitments", ErrInvalidState, st.DepositCount, len(st.Commitments))
	}
	amount, err := types.ParseWei(st.DepositAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: deposit amount: %w", ErrInvalidState, err)
	}
	seen := make(map[types.Commitment]struct{}, len(st.Commitments))
	for _, cm := range st.Commitments {
		if _, ok := seen[cm]; ok {
			return nil, fmt.Errorf("%w: duplicate commitment %s", ErrInvalidState, cm)
		}
		seen[cm] = struct{}{}
	}

	l, err := New(db, c, st.Owner, append(opts, WithDepositAmount(amount))...)
	if err != nil {
		return nil, err
	}
	for _, cm := range st.Commitments {
		ev := &types.DepositEvent{Commitment: cm, Amount: l.depositAmount.Clone(), DepositCount: l.depositCount + 1}
		if err := writeDeposit(l.db, ev); err != nil {
			return nil, fmt.Errorf("restoring commitment %s: %w", cm, err)
		}
		l.insert(cm)
	}
	l.log.Info("ledger restored with %d deposits", l.depositCount)
	return l, nil
}

func checkDeps(db keyvaluedb.KeyValueDB, c custody.Custody) error {
	if db == nil {
		return errors.New("ledger database is nil")
	}
	if c == nil {
		return errors.New("custody is nil")
	}
	return nil
}

func newLedger(db keyvaluedb.KeyValueDB, c custody.Custody, owner common.Address, o *Options) *Ledger {
	return &Ledger{
		owner:         owner,
		depositAmount: o.depositAmount,
		commitments:   make(map[types.Commitment]struct{}),
		db:            db,
		custody:       c,
		subs:          newSubscribers(o.subscriberBuffer),
		log:           o.log,
	}
}

func (l *Ledger) insert(c types.Commitment) {
	l.commitments[c] = struct{}{}
	l.order = append(l.order, c)
	l.depositCount++
}

/*
Deposit records commitment c funded by caller with value. On success the
value has moved into custody, the deposit event is persisted and the new
deposit count is returned.
*/
func (l *Ledger) Deposit(ctx context.Context, caller common.Address, c types.Commitment, value *uint256.Int) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if value == nil || !value.Eq(l.depositAmount) {
		l.log.Debug("deposit of %s rejected, wrong amount %s", c, types.FormatWei(value))
		return 0, fmt.Errorf("%w: must send exactly %s ETH, got %s ETH", ErrWrongAmount, types.FormatEther(l.depositAmount), types.FormatEther(value))
	}
	if _, ok := l.commitments[c]; ok {
		l.log.Debug("deposit of %s rejected, duplicate", c)
		return 0, fmt.Errorf("%w: %s", ErrDuplicateCommitment, c)
	}
	if caller == l.custody.Address() {
		l.log.Debug("deposit of %s rejected, caller is the custody account", c)
		return 0, fmt.Errorf("%w: %s", ErrCustodyCaller, caller)
	}
	amount := l.depositAmount.Clone()
	if err := l.custody.Credit(ctx, caller, amount); err != nil {
		l.log.Debug("deposit of %s rejected, custody: %v", c, err)
		return 0, fmt.Errorf("transferring deposit into custody: %w", err)
	}

	ev := &types.DepositEvent{Commitment: c, Amount: amount, DepositCount: l.depositCount + 1}
	if err := writeDeposit(l.db, ev); err != nil {
		// value already moved, give it back
		if rerr := l.custody.DebitTo(ctx, caller, amount); rerr != nil {
			l.log.Error("refunding %s to %s failed: %v", types.FormatWei(amount), caller, rerr)
			return 0, errors.Join(err, fmt.Errorf("refunding deposit: %w", rerr))
		}
		return 0, err
	}
	l.insert(c)
	l.log.Info("deposit %d: commitment %s from %s", ev.DepositCount, c, caller)
	l.subs.publish(ev)
	return ev.DepositCount, nil
}

// HasCommitment returns true when c has ever been deposited.
func (l *Ledger) HasCommitment(c types.Commitment) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.commitments[c]
	return ok
}

func (l *Ledger) DepositCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.depositCount
}

// Balance returns the custody balance of the ledger as reported by the
// custody substrate.
func (l *Ledger) Balance(ctx context.Context) (*uint256.Int, error) {
	return l.custody.Balance(ctx)
}

func (l *Ledger) DepositAmount() *uint256.Int {
	return l.depositAmount.Clone()
}

func (l *Ledger) Owner() common.Address {
	return l.owner
}

// Address is the custody account of the ledger.
func (l *Ledger) Address() common.Address {
	return l.custody.Address()
}

// DrainNonce returns the nonce of the last accepted drain, 0 when none.
func (l *Ledger) DrainNonce() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.drainNonce
}

/*
EmergencyDrain moves the whole custody balance to the owner and returns the
amount moved. Commitments and the deposit count are left as they are.
*/
func (l *Ledger) EmergencyDrain(ctx context.Context, caller common.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.authorize(caller); err != nil {
		return nil, err
	}
	return l.drain(ctx)
}

/*
EmergencyDrainWithNonce is EmergencyDrain for replayable (signed) requests:
nonce must be greater than the nonce of the last accepted drain.
*/
func (l *Ledger) EmergencyDrainWithNonce(ctx context.Context, caller common.Address, nonce uint64) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.authorize(caller); err != nil {
		return nil, err
	}
	if nonce <= l.drainNonce {
		l.log.Debug("drain rejected, nonce %d, last accepted %d", nonce, l.drainNonce)
		return nil, fmt.Errorf("%w: got %d, last accepted %d", ErrStaleNonce, nonce, l.drainNonce)
	}
	if err := l.db.Write(drainNonceKey, nonce); err != nil {
		return nil, fmt.Errorf("storing drain nonce: %w", err)
	}
	l.drainNonce = nonce
	return l.drain(ctx)
}

func (l *Ledger) authorize(caller common.Address) error {
	if caller != l.owner {
		l.log.Debug("drain by %s rejected, not owner", caller)
		return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, caller)
	}
	return nil
}

// drain must be called with l.mu held. All bookkeeping is done before the
// value leaves custody.
func (l *Ledger) drain(ctx context.Context) (*uint256.Int, error) {
	balance, err := l.custody.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading custody balance: %w", err)
	}
	if balance.IsZero() {
		l.log.Warning("emergency drain by owner, nothing to drain")
		return balance, nil
	}
	if err := l.custody.DebitTo(ctx, l.owner, balance); err != nil {
		return nil, fmt.Errorf("transferring custody to owner: %w", err)
	}
	l.log.Warning("emergency drain: %s ETH moved to owner %s, %d commitments remain used", types.FormatEther(balance), l.owner, l.depositCount)
	return balance, nil
}

// State returns the persisted state layout of the ledger.
func (l *Ledger) State() *types.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &types.LedgerState{
		Owner:         l.owner,
		DepositAmount: types.FormatWei(l.depositAmount),
		Commitments:   append([]types.Commitment{}, l.order...),
		DepositCount:  l.depositCount,
	}
}

// Events returns at most limit events of the event log starting from sequence
// number from (1-based), limit <= 0 returns all.
func (l *Ledger) Events(from uint64, limit int) ([]*types.DepositEvent, error) {
	return readEvents(l.db, from, limit)
}

/*
Subscribe returns a subscription receiving every deposit event accepted after
the call. The ledger never waits for subscribers: when the channel buffer is
full the subscription is dropped and its channel closed, the subscriber may
catch up using Events and subscribe again.
*/
func (l *Ledger) Subscribe() *Subscription {
	return l.subs.add()
}
