package pool

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cosmicpool/cosmicpool/keyvaluedb"
	"github.com/cosmicpool/cosmicpool/types"
)

var (
	metaKey        = []byte("meta")
	countKey       = []byte("count")
	drainNonceKey  = []byte("drainNonce")
	eventKeyPrefix = []byte("e/")
)

type (
	metaRecord struct {
		Owner         []byte
		DepositAmount []byte
	}

	eventRecord struct {
		Commitment   []byte
		Amount       []byte
		DepositCount uint64
	}
)

func eventKey(seq uint64) []byte {
	key := make([]byte, len(eventKeyPrefix)+8)
	copy(key, eventKeyPrefix)
	binary.BigEndian.PutUint64(key[len(eventKeyPrefix):], seq)
	return key
}

func newEventRecord(ev *types.DepositEvent) *eventRecord {
	return &eventRecord{
		Commitment:   ev.Commitment.Bytes(),
		Amount:       ev.Amount.Bytes(),
		DepositCount: ev.DepositCount,
	}
}

func (r *eventRecord) toEvent() (*types.DepositEvent, error) {
	c, err := types.NewCommitment(r.Commitment)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", r.DepositCount, err)
	}
	return &types.DepositEvent{
		Commitment:   c,
		Amount:       new(uint256.Int).SetBytes(r.Amount),
		DepositCount: r.DepositCount,
	}, nil
}

func (r *metaRecord) owner() (common.Address, error) {
	if len(r.Owner) != common.AddressLength {
		return common.Address{}, fmt.Errorf("%w: owner address is %d bytes", ErrInvalidState, len(r.Owner))
	}
	return common.BytesToAddress(r.Owner), nil
}

func writeMeta(w keyvaluedb.Writer, owner common.Address, amount *uint256.Int) error {
	return w.Write(metaKey, &metaRecord{Owner: owner.Bytes(), DepositAmount: amount.Bytes()})
}

func readMeta(r keyvaluedb.Reader) (*metaRecord, error) {
	meta := &metaRecord{}
	found, err := r.Read(metaKey, meta)
	if err != nil {
		return nil, fmt.Errorf("reading ledger meta: %w", err)
	}
	if !found {
		return nil, ErrNotConstructed
	}
	return meta, nil
}

func readUint64(r keyvaluedb.Reader, key []byte) (uint64, error) {
	var v uint64
	if _, err := r.Read(key, &v); err != nil {
		return 0, fmt.Errorf("reading %s: %w", key, err)
	}
	return v, nil
}

// writeDeposit stores the event and the new deposit count in a single
// transaction.
func writeDeposit(db keyvaluedb.DBTx, ev *types.DepositEvent) (err error) {
	tx, err := db.StartTx()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = tx.Write(eventKey(ev.DepositCount), newEventRecord(ev)); err != nil {
		return fmt.Errorf("writing deposit event: %w", err)
	}
	if err = tx.Write(countKey, ev.DepositCount); err != nil {
		return fmt.Errorf("writing deposit count: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing deposit: %w", err)
	}
	return nil
}

// readEvents reads at most limit events starting from sequence number from,
// limit <= 0 means no limit.
func readEvents(db keyvaluedb.Iteratee, from uint64, limit int) ([]*types.DepositEvent, error) {
	if from == 0 {
		from = 1
	}
	it := db.Find(eventKey(from))
	defer func() { _ = it.Close() }()

	var events []*types.DepositEvent
	for ; it.Valid() && bytes.HasPrefix(it.Key(), eventKeyPrefix); it.Next() {
		if limit > 0 && len(events) >= limit {
			break
		}
		rec := &eventRecord{}
		if err := it.Value(rec); err != nil {
			return nil, fmt.Errorf("decoding event %x: %w", it.Key(), err)
		}
		ev, err := rec.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
