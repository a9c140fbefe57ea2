package registry

// Ownership is the single source of truth mapping token ids to owning
// accounts. Absence of a token id means the token does not exist.
type Ownership interface {
	// Insert registers a fresh token id. Ids are unique for the registry
	// lifetime: a collision with a live or a burned token fails with
	// ErrTokenAlreadyExists.
	Insert(txn Txn, tokenID, owner string) error
	// Read returns the current owner, or "" when the token does not exist.
	Read(txn Txn, tokenID string) (string, error)
	// SetOwner replaces the owner and returns the previous one.
	SetOwner(txn Txn, tokenID, newOwner string) (string, error)
	// Remove deletes the ownership record, retires the token id forever
	// and returns the last owner.
	Remove(txn Txn, tokenID string) (string, error)
}

const (
	prefixOwnerPayload   = "REGISTRY:OWNER:"
	prefixRetiredPayload = "REGISTRY:RETIRED:"
)

type kvOwnership struct{}

// NewOwnership returns the ownership store backed by the call-scoped Txn.
func NewOwnership() Ownership {
	return kvOwnership{}
}

func ownerKey(tokenID string) []byte {
	return append([]byte(prefixOwnerPayload), tokenID...)
}

func retiredKey(tokenID string) []byte {
	return append([]byte(prefixRetiredPayload), tokenID...)
}

func (kvOwnership) Insert(txn Txn, tokenID, owner string) error {
	old, err := txn.Get(ownerKey(tokenID))
	if err != nil {
		return err
	}
	if old != nil {
		return ErrTokenAlreadyExists
	}
	retired, err := txn.Get(retiredKey(tokenID))
	if err != nil {
		return err
	}
	if retired != nil {
		return ErrTokenAlreadyExists
	}
	return txn.Set(ownerKey(tokenID), []byte(owner))
}

func (kvOwnership) Read(txn Txn, tokenID string) (string, error) {
	val, err := txn.Get(ownerKey(tokenID))
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func (kvOwnership) SetOwner(txn Txn, tokenID, newOwner string) (string, error) {
	val, err := txn.Get(ownerKey(tokenID))
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", ErrTokenNotFound
	}
	err = txn.Set(ownerKey(tokenID), []byte(newOwner))
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func (kvOwnership) Remove(txn Txn, tokenID string) (string, error) {
	val, err := txn.Get(ownerKey(tokenID))
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", ErrTokenNotFound
	}
	err = txn.Delete(ownerKey(tokenID))
	if err != nil {
		return "", err
	}
	err = txn.Set(retiredKey(tokenID), []byte{1})
	if err != nil {
		return "", err
	}
	return string(val), nil
}
