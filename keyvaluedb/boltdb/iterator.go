package boltdb

import (
	"bytes"

	bolt "go.etcd.io/bbolt"

	"github.com/cosmicpool/cosmicpool/keyvaluedb"
)

/*
Iterator holds a read transaction open until Close is called, so iterators
must be closed before writing to the same database from the same goroutine.
*/
type Iterator struct {
	tx      *bolt.Tx
	cursor  *bolt.Cursor
	decoder DecodeFn
	key     []byte
	value   []byte
}

func newIterator(db *bolt.DB, bucket []byte, d DecodeFn) *Iterator {
	it := &Iterator{decoder: d}
	tx, err := db.Begin(false)
	if err != nil {
		return it
	}
	it.tx = tx
	it.cursor = tx.Bucket(bucket).Cursor()
	return it
}

func (it *Iterator) first() {
	if it.cursor == nil {
		return
	}
	it.key, it.value = it.cursor.First()
}

func (it *Iterator) seek(key []byte) {
	if it.cursor == nil {
		return
	}
	it.key, it.value = it.cursor.Seek(key)
}

func (it *Iterator) Next() {
	if !it.Valid() {
		return
	}
	it.key, it.value = it.cursor.Next()
}

func (it *Iterator) Valid() bool {
	return it.cursor != nil && it.key != nil
}

func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return bytes.Clone(it.key)
}

func (it *Iterator) Value(v any) error {
	if !it.Valid() {
		return keyvaluedb.ErrIterNotValid
	}
	return it.decoder(it.value, v)
}

func (it *Iterator) Close() error {
	if it.tx == nil {
		return nil
	}
	tx := it.tx
	it.tx, it.cursor, it.key, it.value = nil, nil, nil, nil
	return tx.Rollback()
}
