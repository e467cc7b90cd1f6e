package memorydb

import (
	"github.com/cosmicpool/cosmicpool/keyvaluedb"
)

// mapTx buffers changes until Commit, writes are applied under the DB lock
// so readers never observe a partially committed transaction.
type mapTx struct {
	db      *MemoryDB
	writes  map[string][]byte
	deletes map[string]struct{}
	closed  bool
}

func newMapTx(db *MemoryDB) *mapTx {
	return &mapTx{
		db:      db,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (t *mapTx) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckReadValue(key, v); err != nil {
		return false, err
	}
	if t.closed {
		return false, keyvaluedb.ErrTxIsClosed
	}
	k := string(key)
	if _, deleted := t.deletes[k]; deleted {
		return false, nil
	}
	if data, ok := t.writes[k]; ok {
		return true, t.db.decoder(data, v)
	}
	return t.db.Read(key, v)
}

func (t *mapTx) Write(key []byte, v any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return err
	}
	if t.closed {
		return keyvaluedb.ErrTxIsClosed
	}
	b, err := t.db.encoder(v)
	if err != nil {
		return err
	}
	k := string(key)
	delete(t.deletes, k)
	t.writes[k] = b
	return nil
}

func (t *mapTx) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	if t.closed {
		return keyvaluedb.ErrTxIsClosed
	}
	k := string(key)
	delete(t.writes, k)
	t.deletes[k] = struct{}{}
	return nil
}

func (t *mapTx) Commit() error {
	if t.closed {
		return keyvaluedb.ErrTxIsClosed
	}
	t.closed = true
	t.db.lock.Lock()
	defer t.db.lock.Unlock()
	for k := range t.deletes {
		delete(t.db.db, k)
	}
	for k, v := range t.writes {
		t.db.db[k] = v
	}
	return nil
}

func (t *mapTx) Rollback() error {
	if t.closed {
		return keyvaluedb.ErrTxIsClosed
	}
	t.closed = true
	t.writes, t.deletes = nil, nil
	return nil
}
