package store

import (
	"context"
	"errors"
	"testing"

	"github.com/opennft/nfr/registry"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, dir string) *BadgerStore {
	bs, err := OpenBadger(context.Background(), dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })
	return bs
}

func TestUsedBytesAccounting(t *testing.T) {
	bs := openTestStore(t, t.TempDir())
	require.Equal(t, uint64(0), bs.UsedBytes())

	// fresh key: key and value lengths are both counted
	err := bs.Update(func(txn registry.Txn) error {
		return txn.Set([]byte("ab"), []byte("xyz"))
	})
	require.NoError(t, err)
	require.Equal(t, uint64(5), bs.UsedBytes())

	// overwrite replaces the old footprint
	err = bs.Update(func(txn registry.Txn) error {
		return txn.Set([]byte("ab"), []byte("xyzzy"))
	})
	require.NoError(t, err)
	require.Equal(t, uint64(7), bs.UsedBytes())

	// delete releases it entirely
	err = bs.Update(func(txn registry.Txn) error {
		return txn.Delete([]byte("ab"))
	})
	require.NoError(t, err)
	require.Equal(t, uint64(0), bs.UsedBytes())

	// deleting an absent key changes nothing
	err = bs.Update(func(txn registry.Txn) error {
		return txn.Delete([]byte("never"))
	})
	require.NoError(t, err)
	require.Equal(t, uint64(0), bs.UsedBytes())
}

func TestUsedBytesWithinTxn(t *testing.T) {
	bs := openTestStore(t, t.TempDir())

	err := bs.Update(func(txn registry.Txn) error {
		pre, err := txn.UsedBytes()
		require.NoError(t, err)
		require.Equal(t, uint64(0), pre)

		require.NoError(t, txn.Set([]byte("k1"), []byte("vvvv")))
		require.NoError(t, txn.Set([]byte("k2"), []byte("v")))
		require.NoError(t, txn.Delete([]byte("k2")))

		post, err := txn.UsedBytes()
		require.NoError(t, err)
		require.Equal(t, uint64(6), post)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, uint64(6), bs.UsedBytes())
}

func TestUpdateRollback(t *testing.T) {
	bs := openTestStore(t, t.TempDir())
	err := bs.Update(func(txn registry.Txn) error {
		return txn.Set([]byte("keep"), []byte("1"))
	})
	require.NoError(t, err)
	used := bs.UsedBytes()

	boom := errors.New("boom")
	err = bs.Update(func(txn registry.Txn) error {
		require.NoError(t, txn.Set([]byte("gone"), []byte("2")))
		require.NoError(t, txn.Delete([]byte("keep")))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, used, bs.UsedBytes())

	err = bs.View(func(txn registry.Txn) error {
		val, err := txn.Get([]byte("keep"))
		require.NoError(t, err)
		require.Equal(t, []byte("1"), val)
		val, err = txn.Get([]byte("gone"))
		require.NoError(t, err)
		require.Nil(t, val)
		return nil
	})
	require.NoError(t, err)
}

func TestUsedBytesSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	bs, err := OpenBadger(context.Background(), dir, nil)
	require.NoError(t, err)
	err = bs.Update(func(txn registry.Txn) error {
		return txn.Set([]byte("durable"), []byte("value"))
	})
	require.NoError(t, err)
	used := bs.UsedBytes()
	require.NoError(t, bs.Close())

	bs = openTestStore(t, dir)
	require.Equal(t, used, bs.UsedBytes())
}

func TestScan(t *testing.T) {
	bs := openTestStore(t, t.TempDir())
	err := bs.Update(func(txn registry.Txn) error {
		require.NoError(t, txn.Set([]byte("P:c"), []byte{1}))
		require.NoError(t, txn.Set([]byte("P:a"), []byte{1}))
		require.NoError(t, txn.Set([]byte("P:b"), []byte{1}))
		require.NoError(t, txn.Set([]byte("Q:z"), []byte{1}))
		return nil
	})
	require.NoError(t, err)

	var keys []string
	err = bs.View(func(txn registry.Txn) error {
		return txn.Scan([]byte("P:"), func(key []byte) error {
			keys = append(keys, string(key))
			return nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, []string{"P:a", "P:b", "P:c"}, keys)
}

func TestProperties(t *testing.T) {
	bs := openTestStore(t, t.TempDir())

	missing, err := bs.ReadProperty([]byte("nope"))
	require.NoError(t, err)
	require.Nil(t, missing)

	used := bs.UsedBytes()
	err = bs.WriteProperty([]byte("aux"), []byte("journal"))
	require.NoError(t, err)

	val, err := bs.ReadProperty([]byte("aux"))
	require.NoError(t, err)
	require.Equal(t, []byte("journal"), val)

	// property records live outside the accounted keyspace
	require.Equal(t, used, bs.UsedBytes())
}

func TestMetadataStore(t *testing.T) {
	bs := openTestStore(t, t.TempDir())
	ms := NewMetadataStore()

	err := bs.Update(func(txn registry.Txn) error {
		return ms.PutTokenMetadata(txn, "0", []byte("blob"))
	})
	require.NoError(t, err)

	err = bs.View(func(txn registry.Txn) error {
		blob, err := ms.ReadTokenMetadata(txn, "0")
		require.NoError(t, err)
		require.Equal(t, []byte("blob"), blob)
		return nil
	})
	require.NoError(t, err)

	err = bs.Update(func(txn registry.Txn) error {
		return ms.DeleteTokenMetadata(txn, "0")
	})
	require.NoError(t, err)

	err = bs.View(func(txn registry.Txn) error {
		blob, err := ms.ReadTokenMetadata(txn, "0")
		require.NoError(t, err)
		require.Nil(t, blob)
		return nil
	})
	require.NoError(t, err)
}
