package store

import "github.com/opennft/nfr/registry"

const prefixMetadataPayload = "REGISTRY:METADATA:"

// MetadataStore keeps opaque per-token metadata blobs in the accounted
// keyspace, so minting a token with metadata pays for its bytes.
type MetadataStore struct{}

func NewMetadataStore() *MetadataStore {
	return &MetadataStore{}
}

func metadataKey(tokenID string) []byte {
	return append([]byte(prefixMetadataPayload), tokenID...)
}

func (ms *MetadataStore) PutTokenMetadata(txn registry.Txn, tokenID string, blob []byte) error {
	return txn.Set(metadataKey(tokenID), blob)
}

func (ms *MetadataStore) ReadTokenMetadata(txn registry.Txn, tokenID string) ([]byte, error) {
	return txn.Get(metadataKey(tokenID))
}

func (ms *MetadataStore) DeleteTokenMetadata(txn registry.Txn, tokenID string) error {
	return txn.Delete(metadataKey(tokenID))
}
