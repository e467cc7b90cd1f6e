package keyvaluedb

import (
	"errors"
	"reflect"
)

var (
	ErrInvalidKey   = errors.New("invalid key")
	ErrValueIsNil   = errors.New("value is nil")
	ErrValueNotPtr  = errors.New("value is not a pointer")
	ErrTxIsClosed   = errors.New("tx closed")
	ErrIterNotValid = errors.New("iterator is not valid")
)

type (
	Reader interface {
		// Read reads the value for key stored in the DB into value, returns
		// false (and no error) when key is not found.
		Read(key []byte, value any) (bool, error)
	}

	Writer interface {
		// Write inserts the given value into the DB.
		Write(key []byte, value any) error
		// Delete removes the key from the key-value data store.
		Delete(key []byte) error
	}

	// Iteratee wraps the iterator constructors of a backing data store.
	Iteratee interface {
		// First creates a binary-alphabetical forward iterator starting with first item.
		// If the DB is empty the returned iterator is not valid (it.Valid() == false)
		First() Iterator
		// Find returns forward iterator to the closest binary-alphabetical match.
		// If no match or DB is empty the returned iterator is not valid (it.Valid() == false)
		Find(key []byte) Iterator
	}

	DBTx interface {
		StartTx() (DBTransaction, error)
	}

	// KeyValueDB contains all the methods required by the ledger storage.
	KeyValueDB interface {
		Reader
		Writer
		Iteratee
		DBTx
		// Empty returns true when there are no keys in the DB
		Empty() bool
		Close() error
	}

	// DBTransaction is a key value database transaction, reads within the
	// transaction see the writes of the same transaction.
	DBTransaction interface {
		Reader
		Writer
		// Commit commits all pending changes
		Commit() error
		// Rollback reverts everything and nothing is changed
		Rollback() error
	}

	Iterator interface {
		// Next moves the iterator to the next key value pair
		Next()
		// Valid returns state of the iterator, false when iteration is done
		Valid() bool
		// Key returns the key of the current key/value pair, or nil if not valid.
		Key() []byte
		// Value decodes the value of the current key/value pair.
		Value(value any) error
		// Close releases associated resources. Can be called multiple times.
		Close() error
	}
)

func CheckKey(key []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	return nil
}

func CheckKeyAndValue(key []byte, val any) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	if val == nil {
		return ErrValueIsNil
	}
	return nil
}

// CheckReadValue checks that val can be decoded into.
func CheckReadValue(key []byte, val any) error {
	if err := CheckKeyAndValue(key, val); err != nil {
		return err
	}
	if reflect.ValueOf(val).Kind() != reflect.Ptr {
		return ErrValueNotPtr
	}
	return nil
}
