// Package registry implements a non-fungible token registry: an
// authoritative ledger of which account owns which unique token, with
// delegated approvals, per-token metadata and byte-exact storage-cost
// accounting on every mutating call.
package registry

import (
	"errors"
	"fmt"
)

// Config carries the construction-time parameters of a registry.
type Config struct {
	// Owner is the fixed minting authority.
	Owner string
	// CostPerByte is the payment required per byte of storage growth, in
	// the smallest native denomination.
	CostPerByte uint64
}

// Registry orchestrates the ownership ledger, the approval store, the
// enumeration index and the storage accountant. All shared state is owned
// here and mutated only through its operations; every mutating call either
// commits fully or leaves no observable change.
type Registry struct {
	storage   Storage
	meta      MetadataStore
	transfers Transfers
	receiver  ApprovalReceiver

	owner      string
	ownership  Ownership
	approvals  Approvals
	enum       Enumeration
	accountant *Accountant
}

func NewRegistry(conf Config, storage Storage, meta MetadataStore, transfers Transfers) (*Registry, error) {
	if conf.Owner == "" {
		return nil, errors.New("registry owner required")
	}
	if storage == nil || meta == nil || transfers == nil {
		return nil, errors.New("storage, metadata and transfers collaborators required")
	}
	return &Registry{
		storage:    storage,
		meta:       meta,
		transfers:  transfers,
		owner:      conf.Owner,
		ownership:  NewOwnership(),
		approvals:  NewApprovals(),
		enum:       NewEnumeration(),
		accountant: NewAccountant(conf.CostPerByte),
	}, nil
}

// SetApprovalReceiver installs an optional collaborator notified after an
// approval carrying a message has committed.
func (r *Registry) SetApprovalReceiver(receiver ApprovalReceiver) {
	r.receiver = receiver
}

// mutate runs fn in one storage transaction and reconciles the resulting
// byte delta against the attached deposit as the very last step, so the
// accountant always sees the actual footprint. The refund is scheduled
// only after the transaction has committed.
func (r *Registry) mutate(call Call, fn func(txn Txn) error) error {
	var refund uint64
	err := r.storage.Update(func(txn Txn) error {
		preBytes, err := txn.UsedBytes()
		if err != nil {
			return err
		}
		err = fn(txn)
		if err != nil {
			return err
		}
		postBytes, err := txn.UsedBytes()
		if err != nil {
			return err
		}
		refund, err = r.accountant.Measure(preBytes, postBytes, call.Deposit)
		return err
	})
	if err != nil {
		return err
	}
	if refund > 0 {
		r.transfers.ScheduleRefund(call.Caller, refund)
	}
	return nil
}

// Mint registers a fresh token owned by receiver. Only the configured
// minting authority may call it, and the attached deposit must cover the
// storage growth.
func (r *Registry) Mint(call Call, tokenID, receiver string, metadata []byte) (*Token, error) {
	if tokenID == "" {
		return nil, errors.New("empty token id")
	}
	if receiver == "" {
		return nil, errors.New("empty receiver")
	}
	if call.Caller != r.owner {
		return nil, fmt.Errorf("%w: only %s may mint", ErrUnauthorized, r.owner)
	}
	err := r.mutate(call, func(txn Txn) error {
		err := r.ownership.Insert(txn, tokenID, receiver)
		if err != nil {
			return err
		}
		err = r.enum.OnMint(txn, tokenID, receiver)
		if err != nil {
			return err
		}
		if len(metadata) > 0 {
			return r.meta.PutTokenMetadata(txn, tokenID, metadata)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Token{
		TokenID:          tokenID,
		OwnerID:          receiver,
		Metadata:         metadata,
		ApprovedAccounts: map[string]uint64{},
	}, nil
}

// Transfer moves a token to receiver. The caller must be the current owner
// or hold a valid approval; when approvalID is non-nil the held approval
// must carry exactly that id. A non-empty expectedOwner guards against the
// owner having changed since the caller last observed the token. Every
// transfer clears all approvals for the token.
func (r *Registry) Transfer(call Call, receiver, tokenID string, expectedOwner string, approvalID *uint64) error {
	if receiver == "" {
		return errors.New("empty receiver")
	}
	return r.mutate(call, func(txn Txn) error {
		owner, err := r.ownership.Read(txn, tokenID)
		if err != nil {
			return err
		}
		if owner == "" {
			return ErrTokenNotFound
		}
		if expectedOwner != "" && expectedOwner != owner {
			return ErrOwnerMismatch
		}
		if call.Caller != owner {
			valid, err := r.approvals.IsApproved(txn, tokenID, call.Caller, approvalID)
			if err != nil {
				return err
			}
			if !valid {
				held, err := r.approvals.IsApproved(txn, tokenID, call.Caller, nil)
				if err != nil {
					return err
				}
				if held {
					return ErrStaleApproval
				}
				return ErrUnauthorized
			}
		}
		if receiver == owner {
			return ErrSelfTransfer
		}
		_, err = r.ownership.SetOwner(txn, tokenID, receiver)
		if err != nil {
			return err
		}
		err = r.approvals.RevokeAll(txn, tokenID)
		if err != nil {
			return err
		}
		return r.enum.OnTransfer(txn, tokenID, owner, receiver)
	})
}

// Approve grants account a delegation over the token and returns the
// issued approval id. Owner only. A non-empty msg is forwarded to the
// approval receiver after commit.
func (r *Registry) Approve(call Call, tokenID, account, msg string) (uint64, error) {
	if account == "" {
		return 0, errors.New("empty account")
	}
	var id uint64
	err := r.mutate(call, func(txn Txn) error {
		err := r.requireOwner(txn, tokenID, call.Caller)
		if err != nil {
			return err
		}
		id, err = r.approvals.Approve(txn, tokenID, account)
		return err
	})
	if err != nil {
		return 0, err
	}
	if msg != "" && r.receiver != nil {
		r.receiver.OnApproval(tokenID, call.Caller, account, id, msg)
	}
	return id, nil
}

// Revoke removes account's approval. Owner only.
func (r *Registry) Revoke(call Call, tokenID, account string) error {
	return r.mutate(call, func(txn Txn) error {
		err := r.requireOwner(txn, tokenID, call.Caller)
		if err != nil {
			return err
		}
		return r.approvals.Revoke(txn, tokenID, account)
	})
}

// RevokeAll clears every approval for the token. Owner only, no-op when
// the token has none.
func (r *Registry) RevokeAll(call Call, tokenID string) error {
	return r.mutate(call, func(txn Txn) error {
		err := r.requireOwner(txn, tokenID, call.Caller)
		if err != nil {
			return err
		}
		return r.approvals.RevokeAll(txn, tokenID)
	})
}

// Burn removes the token from the ownership ledger, the approval store,
// the enumeration index and the metadata store atomically and retires the
// token id forever. Owner only. The freed storage is refunded.
func (r *Registry) Burn(call Call, tokenID string) error {
	return r.mutate(call, func(txn Txn) error {
		owner, err := r.ownership.Read(txn, tokenID)
		if err != nil {
			return err
		}
		if owner == "" {
			return ErrTokenNotFound
		}
		if call.Caller != owner {
			return ErrUnauthorized
		}
		_, err = r.ownership.Remove(txn, tokenID)
		if err != nil {
			return err
		}
		err = r.approvals.Purge(txn, tokenID)
		if err != nil {
			return err
		}
		err = r.meta.DeleteTokenMetadata(txn, tokenID)
		if err != nil {
			return err
		}
		return r.enum.OnBurn(txn, tokenID, owner)
	})
}

// IsApproved reports whether account holds a valid approval over the
// token, with exact id fencing when approvalID is non-nil. Read-only.
func (r *Registry) IsApproved(tokenID, account string, approvalID *uint64) (bool, error) {
	var approved bool
	err := r.storage.View(func(txn Txn) error {
		owner, err := r.ownership.Read(txn, tokenID)
		if err != nil {
			return err
		}
		if owner == "" {
			return ErrTokenNotFound
		}
		approved, err = r.approvals.IsApproved(txn, tokenID, account, approvalID)
		return err
	})
	if err != nil {
		return false, err
	}
	return approved, nil
}

// Get returns the token view, or nil when the token does not exist.
func (r *Registry) Get(tokenID string) (*Token, error) {
	var token *Token
	err := r.storage.View(func(txn Txn) error {
		t, err := r.readToken(txn, tokenID)
		if err != nil {
			return err
		}
		token = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Tokens lists all registered tokens in id order, skipping from entries.
// A non-positive limit means no limit.
func (r *Registry) Tokens(from uint64, limit int) ([]*Token, error) {
	var tokens []*Token
	err := r.storage.View(func(txn Txn) error {
		ids, err := r.enum.Tokens(txn, from, limit)
		if err != nil {
			return err
		}
		tokens, err = r.readTokens(txn, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// TokensForOwner lists the tokens held by owner, restartable via from.
func (r *Registry) TokensForOwner(owner string, from uint64, limit int) ([]*Token, error) {
	var tokens []*Token
	err := r.storage.View(func(txn Txn) error {
		ids, err := r.enum.TokensForOwner(txn, owner, from, limit)
		if err != nil {
			return err
		}
		tokens, err = r.readTokens(txn, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// TotalSupply returns the number of existing tokens.
func (r *Registry) TotalSupply() (uint64, error) {
	var supply uint64
	err := r.storage.View(func(txn Txn) error {
		s, err := r.enum.TotalSupply(txn)
		if err != nil {
			return err
		}
		supply = s
		return nil
	})
	if err != nil {
		return 0, err
	}
	return supply, nil
}

// BalanceOf returns the number of tokens held by owner.
func (r *Registry) BalanceOf(owner string) (uint64, error) {
	var balance uint64
	err := r.storage.View(func(txn Txn) error {
		b, err := r.enum.BalanceOf(txn, owner)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *Registry) requireOwner(txn Txn, tokenID, caller string) error {
	owner, err := r.ownership.Read(txn, tokenID)
	if err != nil {
		return err
	}
	if owner == "" {
		return ErrTokenNotFound
	}
	if caller != owner {
		return ErrUnauthorized
	}
	return nil
}

func (r *Registry) readToken(txn Txn, tokenID string) (*Token, error) {
	owner, err := r.ownership.Read(txn, tokenID)
	if err != nil {
		return nil, err
	}
	if owner == "" {
		return nil, nil
	}
	metadata, err := r.meta.ReadTokenMetadata(txn, tokenID)
	if err != nil {
		return nil, err
	}
	grants, err := r.approvals.List(txn, tokenID)
	if err != nil {
		return nil, err
	}
	if grants == nil {
		grants = map[string]uint64{}
	}
	return &Token{
		TokenID:          tokenID,
		OwnerID:          owner,
		Metadata:         metadata,
		ApprovedAccounts: grants,
	}, nil
}

func (r *Registry) readTokens(txn Txn, ids []string) ([]*Token, error) {
	tokens := make([]*Token, 0, len(ids))
	for _, id := range ids {
		token, err := r.readToken(txn, id)
		if err != nil {
			return nil, err
		}
		if token == nil {
			panic(id)
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}
