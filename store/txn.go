package store

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v3"
	"github.com/opennft/nfr/registry"
	"github.com/opennft/nfr/util"
)

// storeTxn tracks the byte-footprint delta of the writes staged in one
// badger transaction on top of the committed base usage.
type storeTxn struct {
	txn   *badger.Txn
	base  uint64
	delta int64
}

func (st *storeTxn) Get(key []byte) ([]byte, error) {
	item, err := st.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (st *storeTxn) Set(key, val []byte) error {
	old, exists, err := st.footprint(key)
	if err != nil {
		return err
	}
	err = st.txn.Set(key, val)
	if err != nil {
		return err
	}
	st.delta += int64(len(key)) + int64(len(val))
	if exists {
		st.delta -= int64(old)
	}
	return nil
}

func (st *storeTxn) Delete(key []byte) error {
	old, exists, err := st.footprint(key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	err = st.txn.Delete(key)
	if err != nil {
		return err
	}
	st.delta -= int64(old)
	return nil
}

func (st *storeTxn) Scan(prefix []byte, fn func(key []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := st.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.Valid(); it.Next() {
		err := fn(it.Item().KeyCopy(nil))
		if err != nil {
			return err
		}
	}
	return nil
}

func (st *storeTxn) UsedBytes() (uint64, error) {
	if st.delta >= 0 {
		used, ok := util.SafeAdd(st.base, uint64(st.delta))
		if !ok {
			return 0, registry.ErrAmountOverflow
		}
		return used, nil
	}
	used, ok := util.SafeSub(st.base, uint64(-st.delta))
	if !ok {
		return 0, registry.ErrAmountOverflow
	}
	return used, nil
}

func (st *storeTxn) footprint(key []byte) (uint64, bool, error) {
	item, err := st.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	return uint64(len(key)) + uint64(item.ValueSize()), true, nil
}

// flushUsage persists the counter inside the transaction so the committed
// value and the committed writes can never diverge.
func (st *storeTxn) flushUsage() error {
	if st.delta == 0 {
		return nil
	}
	used, err := st.UsedBytes()
	if err != nil {
		return err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, used)
	return st.txn.Set(keyUsedBytes, buf)
}
