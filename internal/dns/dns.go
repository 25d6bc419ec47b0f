// Package dns implements the DNS/Router Reconciler from spec.md §4.5: given
// the live set of instances and their game ports plus a configured set of
// addresses, it computes the target DNS record set and mc-router route set,
// diffs each against the provider's observed state, and converges via
// minimal add/update/remove operations. Grounded on the teacher's
// manmanv2/host/session reconciliation style (compute target, diff against
// observed, apply the delta) generalized from container sessions to DNS
// records.
package dns

import "fmt"

// RecordType enumerates the DNS record kinds this reconciler manages.
type RecordType string

const (
	RecordA     RecordType = "A"
	RecordAAAA  RecordType = "AAAA"
	RecordCNAME RecordType = "CNAME"
	RecordSRV   RecordType = "SRV"
)

// Record is one managed DNS record, keyed by (SubDomain, RecordType) per
// spec.md §4.5.3. ID is the provider's opaque record identifier; it is
// empty for a Record computed as target state (not yet created).
type Record struct {
	ID         string
	SubDomain  string // relative to Domain, e.g. "*.mc" or "_minecraft._tcp.survival.mc"
	RecordType RecordType
	Value      string
	TTL        int
}

// key identifies a record for diffing purposes: (subDomain, recordType).
func (r Record) key() recordKey { return recordKey{r.SubDomain, r.RecordType} }

type recordKey struct {
	subDomain  string
	recordType RecordType
}

// Route is one mc-router route: a Minecraft server hostname mapped to a
// backend address.
type Route struct {
	ServerAddress string
	Backend       string
}

// InstanceSet is the subset of information the reconciler needs about the
// live instance fleet: each entry's game port.
type InstanceSet map[string]int // instance id -> game port

// Diff describes what update() would do (or did), used both by Update and
// by the read-only GetCurrentDiff status API.
type Diff struct {
	ToAdd    []Record
	ToRemove []Record
	ToUpdate []Record
}

// Empty reports whether this diff requires no changes — the idempotence
// property spec.md §8 requires of back-to-back update() calls.
func (d Diff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

func (d Diff) String() string {
	return fmt.Sprintf("add=%d remove=%d update=%d", len(d.ToAdd), len(d.ToRemove), len(d.ToUpdate))
}
