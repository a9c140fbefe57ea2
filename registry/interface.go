package registry

// Txn is a single consistent view of the persistent store. Writes staged
// through a Txn become visible only when the surrounding Update commits.
type Txn interface {
	// Get returns the value for key, or nil when the key is absent.
	Get(key []byte) ([]byte, error)
	Set(key, val []byte) error
	// Delete is a no-op when the key is absent.
	Delete(key []byte) error
	// Scan calls fn for every key under prefix in ascending key order.
	Scan(prefix []byte, fn func(key []byte) error) error
	// UsedBytes reports the total storage bytes consumed by the registry,
	// including writes already staged in this Txn.
	UsedBytes() (uint64, error)
}

// Storage is the persistent key-value collaborator. Update runs fn in a
// read-write transaction and commits only when fn returns nil; any error
// rolls every staged write back. Mutating transactions are serialized.
type Storage interface {
	View(fn func(Txn) error) error
	Update(fn func(Txn) error) error
}

// MetadataStore keeps the opaque per-token metadata blob. The registry
// writes it exactly once at mint and deletes it at burn.
type MetadataStore interface {
	PutTokenMetadata(txn Txn, tokenID string, blob []byte) error
	ReadTokenMetadata(txn Txn, tokenID string) ([]byte, error)
	DeleteTokenMetadata(txn Txn, tokenID string) error
}

// Transfers accepts scheduled refunds and executes them asynchronously.
// The registry never observes their success or failure.
type Transfers interface {
	ScheduleRefund(account string, amount uint64)
}

// ApprovalReceiver is notified after an approval carrying a message has
// been committed.
type ApprovalReceiver interface {
	OnApproval(tokenID, owner, grantee string, approvalID uint64, msg string)
}

// Call carries the authenticated caller identity and the payment attached
// to the current call, as supplied by the host. Both are trusted.
type Call struct {
	Caller  string
	Deposit uint64
}

// Token is the external view of one registered token.
type Token struct {
	TokenID          string            `json:"token_id"`
	OwnerID          string            `json:"owner_id"`
	Metadata         []byte            `json:"metadata,omitempty"`
	ApprovedAccounts map[string]uint64 `json:"approved_accounts"`
}
