package dns

import "context"

// Provider is the capability surface spec.md §4.5.3 requires of every DNS
// provider adapter. Provider-specific auth and quirks are confined to each
// implementation (internal/dns/provider/dnspod, .../huawei); the reconciler
// never branches on provider identity.
type Provider interface {
	// ListRelevantRecords returns every record the provider currently holds
	// under managedSubDomain.
	ListRelevantRecords(ctx context.Context, managedSubDomain string) ([]Record, error)

	// AddRecords creates new records. Records passed in have no ID.
	AddRecords(ctx context.Context, records []Record) error

	// RemoveRecords deletes records by provider-assigned id.
	RemoveRecords(ctx context.Context, ids []string) error

	// GetDomain returns the zone this provider manages records under.
	GetDomain() string
}

// BatchUpdater is an optional capability: providers that can update a
// record's value/ttl in place without a remove+add round trip implement it.
// The reconciler type-asserts for it and falls back to remove-then-add
// otherwise, per spec.md §4.5.3.
type BatchUpdater interface {
	UpdateRecordsBatch(ctx context.Context, records []Record) error
}
