package memorydb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmicpool/cosmicpool/keyvaluedb"
)

type record struct {
	Count  uint64
	Amount []byte
}

func initMemDB(t *testing.T) *MemoryDB {
	t.Helper()
	db, err := New()
	require.NoError(t, err)
	return db
}

func TestMemDB_InvalidWriteAndRead(t *testing.T) {
	db := initMemDB(t)
	var value uint64 = 1
	require.ErrorIs(t, db.Write(nil, value), keyvaluedb.ErrInvalidKey)
	require.ErrorIs(t, db.Write([]byte("k"), nil), keyvaluedb.ErrValueIsNil)
	found, err := db.Read([]byte{}, &value)
	require.ErrorIs(t, err, keyvaluedb.ErrInvalidKey)
	require.False(t, found)
	found, err = db.Read([]byte("k"), value)
	require.ErrorIs(t, err, keyvaluedb.ErrValueNotPtr)
	require.False(t, found)
	require.True(t, db.Empty())
}

func TestMemDB_WriteReadDelete(t *testing.T) {
	db := initMemDB(t)
	rec := &record{Count: 3, Amount: []byte{1, 2}}
	require.NoError(t, db.Write([]byte("rec"), rec))
	require.False(t, db.Empty())

	var back record
	found, err := db.Read([]byte("rec"), &back)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, rec, &back)

	require.NoError(t, db.Delete([]byte("rec")))
	found, err = db.Read([]byte("rec"), &back)
	require.NoError(t, err)
	require.False(t, found)
	require.True(t, db.Empty())
}

func TestMemDB_Iterator(t *testing.T) {
	db := initMemDB(t)
	require.NoError(t, db.Write([]byte("b2"), uint64(2)))
	require.NoError(t, db.Write([]byte("a1"), uint64(1)))
	require.NoError(t, db.Write([]byte("b3"), uint64(3)))

	t.Run("first", func(t *testing.T) {
		it := db.First()
		defer func() { require.NoError(t, it.Close()) }()
		var keys []string
		for ; it.Valid(); it.Next() {
			keys = append(keys, string(it.Key()))
		}
		require.Equal(t, []string{"a1", "b2", "b3"}, keys)
	})
	t.Run("find", func(t *testing.T) {
		it := db.Find([]byte("b"))
		defer func() { require.NoError(t, it.Close()) }()
		require.True(t, it.Valid())
		require.Equal(t, []byte("b2"), it.Key())
		var v uint64
		require.NoError(t, it.Value(&v))
		require.EqualValues(t, 2, v)
	})
	t.Run("find past end", func(t *testing.T) {
		it := db.Find([]byte("c"))
		defer func() { require.NoError(t, it.Close()) }()
		require.False(t, it.Valid())
		require.Nil(t, it.Key())
		var v uint64
		require.ErrorIs(t, it.Value(&v), keyvaluedb.ErrIterNotValid)
	})
}

func TestMemDB_Tx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		db := initMemDB(t)
		require.NoError(t, db.Write([]byte("gone"), uint64(9)))
		tx, err := db.StartTx()
		require.NoError(t, err)
		require.NoError(t, tx.Write([]byte("k"), uint64(1)))
		require.NoError(t, tx.Delete([]byte("gone")))
		// tx sees its own writes, db does not
		var v uint64
		found, err := tx.Read([]byte("k"), &v)
		require.NoError(t, err)
		require.True(t, found)
		found, err = db.Read([]byte("k"), &v)
		require.NoError(t, err)
		require.False(t, found)
		found, err = tx.Read([]byte("gone"), &v)
		require.NoError(t, err)
		require.False(t, found)

		require.NoError(t, tx.Commit())
		found, err = db.Read([]byte("k"), &v)
		require.NoError(t, err)
		require.True(t, found)
		require.EqualValues(t, 1, v)
		found, err = db.Read([]byte("gone"), &v)
		require.NoError(t, err)
		require.False(t, found)
	})
	t.Run("rollback", func(t *testing.T) {
		db := initMemDB(t)
		tx, err := db.StartTx()
		require.NoError(t, err)
		require.NoError(t, tx.Write([]byte("k"), uint64(1)))
		require.NoError(t, tx.Rollback())
		require.True(t, db.Empty())
	})
	t.Run("use after close", func(t *testing.T) {
		db := initMemDB(t)
		tx, err := db.StartTx()
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		require.ErrorIs(t, tx.Write([]byte("k"), uint64(1)), keyvaluedb.ErrTxIsClosed)
		require.ErrorIs(t, tx.Delete([]byte("k")), keyvaluedb.ErrTxIsClosed)
		require.ErrorIs(t, tx.Commit(), keyvaluedb.ErrTxIsClosed)
		require.ErrorIs(t, tx.Rollback(), keyvaluedb.ErrTxIsClosed)
	})
}
