package boltdb

import (
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/cosmicpool/cosmicpool/keyvaluedb"
)

type boltTx struct {
	tx      *bolt.Tx
	bucket  []byte
	encoder EncodeFn
	decoder DecodeFn
}

func newBoltTx(db *bolt.DB, bucket []byte, e EncodeFn, d DecodeFn) (*boltTx, error) {
	if db == nil {
		return nil, errors.New("bolt db is nil")
	}
	tx, err := db.Begin(true)
	if err != nil {
		return nil, err
	}
	return &boltTx{tx: tx, bucket: bucket, encoder: e, decoder: d}, nil
}

func (t *boltTx) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckReadValue(key, v); err != nil {
		return false, err
	}
	if t.tx.DB() == nil {
		return false, keyvaluedb.ErrTxIsClosed
	}
	data := t.tx.Bucket(t.bucket).Get(key)
	if data == nil {
		return false, nil
	}
	if err := t.decoder(data, v); err != nil {
		return true, fmt.Errorf("decoding value: %w", err)
	}
	return true, nil
}

func (t *boltTx) Write(key []byte, v any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return err
	}
	if t.tx.DB() == nil {
		return keyvaluedb.ErrTxIsClosed
	}
	b, err := t.encoder(v)
	if err != nil {
		return err
	}
	return t.tx.Bucket(t.bucket).Put(key, b)
}

func (t *boltTx) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	if t.tx.DB() == nil {
		return keyvaluedb.ErrTxIsClosed
	}
	return t.tx.Bucket(t.bucket).Delete(key)
}

func (t *boltTx) Commit() error {
	return t.tx.Commit()
}

func (t *boltTx) Rollback() error {
	return t.tx.Rollback()
}
