package registry

import "github.com/opennft/nfr/util"

// Approvals tracks per-token delegations, fenced by a strictly increasing
// approval id. The id counter is never reset while the token exists, so
// any id issued before an ownership change is provably invalid after the
// approval map has been cleared.
type Approvals interface {
	// Approve grants or supersedes a delegation and returns the issued id.
	Approve(txn Txn, tokenID, grantee string) (uint64, error)
	// IsApproved reports whether account currently holds an approval. When
	// expected is non-nil the stored id must match it exactly; a mismatch
	// means the approval is stale and reports false, not an error.
	IsApproved(txn Txn, tokenID, account string, expected *uint64) (bool, error)
	Revoke(txn Txn, tokenID, account string) error
	RevokeAll(txn Txn, tokenID string) error
	// Purge drops the whole record including the id counter. Only burn may
	// call this.
	Purge(txn Txn, tokenID string) error
	List(txn Txn, tokenID string) (map[string]uint64, error)
}

const prefixApprovalPayload = "REGISTRY:APPROVAL:"

type approvalRecord struct {
	NextID uint64            `msgpack:"n"`
	Grants map[string]uint64 `msgpack:"g"`
}

type kvApprovals struct{}

// NewApprovals returns the approval store backed by the call-scoped Txn.
func NewApprovals() Approvals {
	return kvApprovals{}
}

func approvalKey(tokenID string) []byte {
	return append([]byte(prefixApprovalPayload), tokenID...)
}

func readApprovalRecord(txn Txn, tokenID string) (*approvalRecord, error) {
	val, err := txn.Get(approvalKey(tokenID))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	var rec approvalRecord
	err = msgpackUnmarshal(val, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func writeApprovalRecord(txn Txn, tokenID string, rec *approvalRecord) error {
	return txn.Set(approvalKey(tokenID), msgpackMarshalPanic(rec))
}

func (kvApprovals) Approve(txn Txn, tokenID, grantee string) (uint64, error) {
	rec, err := readApprovalRecord(txn, tokenID)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		rec = &approvalRecord{NextID: 1}
	}
	if rec.Grants == nil {
		rec.Grants = make(map[string]uint64)
	}
	id := rec.NextID
	next, ok := util.SafeAdd(id, 1)
	if !ok {
		return 0, ErrAmountOverflow
	}
	rec.NextID = next
	rec.Grants[grantee] = id
	err = writeApprovalRecord(txn, tokenID, rec)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (kvApprovals) IsApproved(txn Txn, tokenID, account string, expected *uint64) (bool, error) {
	rec, err := readApprovalRecord(txn, tokenID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	id, found := rec.Grants[account]
	if !found {
		return false, nil
	}
	if expected != nil && *expected != id {
		return false, nil
	}
	return true, nil
}

func (kvApprovals) Revoke(txn Txn, tokenID, account string) error {
	rec, err := readApprovalRecord(txn, tokenID)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrApprovalNotFound
	}
	if _, found := rec.Grants[account]; !found {
		return ErrApprovalNotFound
	}
	delete(rec.Grants, account)
	return writeApprovalRecord(txn, tokenID, rec)
}

func (kvApprovals) RevokeAll(txn Txn, tokenID string) error {
	rec, err := readApprovalRecord(txn, tokenID)
	if err != nil {
		return err
	}
	if rec == nil || len(rec.Grants) == 0 {
		return nil
	}
	rec.Grants = nil
	return writeApprovalRecord(txn, tokenID, rec)
}

func (kvApprovals) Purge(txn Txn, tokenID string) error {
	return txn.Delete(approvalKey(tokenID))
}

func (kvApprovals) List(txn Txn, tokenID string) (map[string]uint64, error) {
	rec, err := readApprovalRecord(txn, tokenID)
	if err != nil {
		return nil, err
	}
	if rec == nil || len(rec.Grants) == 0 {
		return nil, nil
	}
	grants := make(map[string]uint64, len(rec.Grants))
	for account, id := range rec.Grants {
		grants[account] = id
	}
	return grants, nil
}
