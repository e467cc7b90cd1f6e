package memorydb

import (
	"bytes"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/cosmicpool/cosmicpool/keyvaluedb"
)

type (
	EncodeFn func(v any) ([]byte, error)
	DecodeFn func(data []byte, v any) error

	MemoryDB struct {
		lock    sync.RWMutex
		db      map[string][]byte
		encoder EncodeFn
		decoder DecodeFn
	}
)

// New creates a new mem DB, values are CBOR encoded like in the persistent DB.
func New() (*MemoryDB, error) {
	return &MemoryDB{
		db:      make(map[string][]byte),
		encoder: cbor.Marshal,
		decoder: cbor.Unmarshal,
	}, nil
}

func (db *MemoryDB) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckReadValue(key, v); err != nil {
		return false, err
	}
	db.lock.RLock()
	defer db.lock.RUnlock()
	data, found := db.db[string(key)]
	if !found {
		return false, nil
	}
	return true, db.decoder(data, v)
}

func (db *MemoryDB) Write(key []byte, v any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return err
	}
	b, err := db.encoder(v)
	if err != nil {
		return err
	}
	db.lock.Lock()
	defer db.lock.Unlock()
	db.db[string(key)] = b
	return nil
}

func (db *MemoryDB) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	db.lock.Lock()
	defer db.lock.Unlock()
	delete(db.db, string(key))
	return nil
}

func (db *MemoryDB) Empty() bool {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return len(db.db) == 0
}

func (db *MemoryDB) First() keyvaluedb.Iterator {
	return db.Find(nil)
}

func (db *MemoryDB) Find(key []byte) keyvaluedb.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()
	// snapshot of the sorted key space, later writes are not visible
	keys := make([]string, 0, len(db.db))
	for k := range db.db {
		if bytes.Compare([]byte(k), key) >= 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = db.db[k]
	}
	return &iterator{keys: keys, values: values, decoder: db.decoder}
}

func (db *MemoryDB) StartTx() (keyvaluedb.DBTransaction, error) {
	return newMapTx(db), nil
}

func (db *MemoryDB) Close() error {
	return nil
}

type iterator struct {
	keys    []string
	values  [][]byte
	pos     int
	decoder DecodeFn
}

func (it *iterator) Next() {
	if it.Valid() {
		it.pos++
	}
}

func (it *iterator) Valid() bool {
	return it.pos < len(it.keys)
}

func (it *iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return []byte(it.keys[it.pos])
}

func (it *iterator) Value(v any) error {
	if !it.Valid() {
		return keyvaluedb.ErrIterNotValid
	}
	return it.decoder(it.values[it.pos], v)
}

func (it *iterator) Close() error {
	it.keys, it.values = nil, nil
	return nil
}
