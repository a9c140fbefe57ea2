// Package store provides the badger-backed persistent storage collaborator
// of the registry. Every key written through a transaction contributes its
// key and value length to a byte-usage counter, so the registry accountant
// can charge callers for the exact footprint their calls create.
package store

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/opennft/nfr/registry"
	"go.uber.org/zap"
)

// keyUsedBytes persists the usage counter. It is store-internal and its
// own footprint is never counted.
var keyUsedBytes = []byte("STORAGE:USED:BYTES")

type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger

	// wmtx serializes mutating transactions; used is the committed byte
	// usage, read atomically by concurrent views.
	wmtx sync.Mutex
	used uint64
}

func OpenBadger(ctx context.Context, path string, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := badger.DefaultOptions(path)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	bs := &BadgerStore{
		db:     db,
		logger: logger,
	}
	err = bs.loadUsedBytes()
	if err != nil {
		db.Close()
		return nil, err
	}
	go bs.gcLoop(ctx)
	return bs, nil
}

func (bs *BadgerStore) Close() error {
	return bs.db.Close()
}

func (bs *BadgerStore) Badger() *badger.DB {
	return bs.db
}

// UsedBytes reports the committed storage footprint.
func (bs *BadgerStore) UsedBytes() uint64 {
	return atomic.LoadUint64(&bs.used)
}

func (bs *BadgerStore) View(fn func(registry.Txn) error) error {
	return bs.db.View(func(btxn *badger.Txn) error {
		return fn(&storeTxn{txn: btxn, base: atomic.LoadUint64(&bs.used)})
	})
}

func (bs *BadgerStore) Update(fn func(registry.Txn) error) error {
	bs.wmtx.Lock()
	defer bs.wmtx.Unlock()

	st := &storeTxn{base: atomic.LoadUint64(&bs.used)}
	err := bs.db.Update(func(btxn *badger.Txn) error {
		st.txn = btxn
		err := fn(st)
		if err != nil {
			return err
		}
		return st.flushUsage()
	})
	if err != nil {
		return err
	}
	used, err := st.UsedBytes()
	if err != nil {
		return err
	}
	atomic.StoreUint64(&bs.used, used)
	return nil
}

// WriteProperty stores an auxiliary record outside the accounted keyspace.
func (bs *BadgerStore) WriteProperty(key, val []byte) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

func (bs *BadgerStore) ReadProperty(key []byte) ([]byte, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (bs *BadgerStore) loadUsedBytes() error {
	val, err := bs.ReadProperty(keyUsedBytes)
	if err != nil {
		return err
	}
	if val != nil {
		bs.used = binary.BigEndian.Uint64(val)
	}
	return nil
}

func (bs *BadgerStore) gcLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Minute):
		}
		lsm, vlog := bs.db.Size()
		bs.logger.Debug("badger size", zap.Int64("lsm", lsm), zap.Int64("vlog", vlog))
		if lsm > 1024*1024*8 || vlog > 1024*1024*32 {
			err := bs.db.RunValueLogGC(0.5)
			bs.logger.Debug("badger value log gc", zap.Error(err))
		}
	}
}
