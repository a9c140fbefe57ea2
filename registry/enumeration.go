package registry

import (
	"encoding/binary"
	"errors"

	"github.com/opennft/nfr/util"
)

// Enumeration maintains the secondary indices over the ownership ledger:
// the ordered set of all token ids, the per-owner ordered sets, per-owner
// balances and the total supply. The index hooks must be called exactly
// once per corresponding ownership mutation, in the same transaction.
type Enumeration interface {
	OnMint(txn Txn, tokenID, owner string) error
	OnTransfer(txn Txn, tokenID, oldOwner, newOwner string) error
	OnBurn(txn Txn, tokenID, owner string) error
	// Tokens lists token ids in key order, skipping from entries. A
	// non-positive limit means no limit.
	Tokens(txn Txn, from uint64, limit int) ([]string, error)
	TokensForOwner(txn Txn, owner string, from uint64, limit int) ([]string, error)
	TotalSupply(txn Txn) (uint64, error)
	BalanceOf(txn Txn, owner string) (uint64, error)
}

const (
	prefixEnumAllPayload     = "REGISTRY:ENUM:ALL:"
	prefixEnumAccountPayload = "REGISTRY:ENUM:ACCOUNT:"
	prefixBalancePayload     = "REGISTRY:BALANCE:"
	keySupplyPayload         = "REGISTRY:SUPPLY"
)

var errStopScan = errors.New("stop scan")

type kvEnumeration struct{}

// NewEnumeration returns the index maintained in the call-scoped Txn.
func NewEnumeration() Enumeration {
	return kvEnumeration{}
}

func enumAllKey(tokenID string) []byte {
	return append([]byte(prefixEnumAllPayload), tokenID...)
}

// accountPrefix length-prefixes the owner so that one owner's range can
// never shadow another owner whose id is a prefix of it.
func accountPrefix(owner string) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(len(owner)))
	key := append([]byte(prefixEnumAccountPayload), buf...)
	return append(key, owner...)
}

func enumAccountKey(owner, tokenID string) []byte {
	return append(accountPrefix(owner), tokenID...)
}

func balanceKey(owner string) []byte {
	return append([]byte(prefixBalancePayload), owner...)
}

func readCounter(txn Txn, key []byte) (uint64, error) {
	val, err := txn.Get(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint64(val), nil
}

func writeCounter(txn Txn, key []byte, count uint64) error {
	if count == 0 {
		return txn.Delete(key)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, count)
	return txn.Set(key, buf)
}

func updateCounter(txn Txn, key []byte, delta int) error {
	count, err := readCounter(txn, key)
	if err != nil {
		return err
	}
	var ok bool
	if delta > 0 {
		count, ok = util.SafeAdd(count, uint64(delta))
	} else {
		count, ok = util.SafeSub(count, uint64(-delta))
	}
	if !ok {
		return ErrAmountOverflow
	}
	return writeCounter(txn, key, count)
}

func (kvEnumeration) OnMint(txn Txn, tokenID, owner string) error {
	err := txn.Set(enumAllKey(tokenID), []byte{1})
	if err != nil {
		return err
	}
	err = txn.Set(enumAccountKey(owner, tokenID), []byte{1})
	if err != nil {
		return err
	}
	err = updateCounter(txn, balanceKey(owner), +1)
	if err != nil {
		return err
	}
	return updateCounter(txn, []byte(keySupplyPayload), +1)
}

func (kvEnumeration) OnTransfer(txn Txn, tokenID, oldOwner, newOwner string) error {
	err := txn.Delete(enumAccountKey(oldOwner, tokenID))
	if err != nil {
		return err
	}
	err = txn.Set(enumAccountKey(newOwner, tokenID), []byte{1})
	if err != nil {
		return err
	}
	err = updateCounter(txn, balanceKey(oldOwner), -1)
	if err != nil {
		return err
	}
	return updateCounter(txn, balanceKey(newOwner), +1)
}

func (kvEnumeration) OnBurn(txn Txn, tokenID, owner string) error {
	err := txn.Delete(enumAllKey(tokenID))
	if err != nil {
		return err
	}
	err = txn.Delete(enumAccountKey(owner, tokenID))
	if err != nil {
		return err
	}
	err = updateCounter(txn, balanceKey(owner), -1)
	if err != nil {
		return err
	}
	return updateCounter(txn, []byte(keySupplyPayload), -1)
}

func scanSuffixes(txn Txn, prefix []byte, from uint64, limit int) ([]string, error) {
	var ids []string
	var seen uint64
	err := txn.Scan(prefix, func(key []byte) error {
		seen += 1
		if seen <= from {
			return nil
		}
		ids = append(ids, string(key[len(prefix):]))
		if limit > 0 && len(ids) >= limit {
			return errStopScan
		}
		return nil
	})
	if err != nil && err != errStopScan {
		return nil, err
	}
	return ids, nil
}

func (kvEnumeration) Tokens(txn Txn, from uint64, limit int) ([]string, error) {
	return scanSuffixes(txn, []byte(prefixEnumAllPayload), from, limit)
}

func (kvEnumeration) TokensForOwner(txn Txn, owner string, from uint64, limit int) ([]string, error) {
	return scanSuffixes(txn, accountPrefix(owner), from, limit)
}

func (kvEnumeration) TotalSupply(txn Txn) (uint64, error) {
	return readCounter(txn, []byte(keySupplyPayload))
}

func (kvEnumeration) BalanceOf(txn Txn, owner string) (uint64, error) {
	return readCounter(txn, balanceKey(owner))
}
