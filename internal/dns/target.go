package dns

import (
	"fmt"
	"sort"

	"github.com/xyqyear/mcadmin/internal/dynamicconfig"
)

// baseFor returns an address's sub-domain base, per spec.md §4.5.2: "*"
// collapses to the bare managed sub-domain, anything else is namespaced
// under it.
func baseFor(addr dynamicconfig.AddressConfig, managedSubDomain string) string {
	if addr.Name == "*" || addr.Name == "" {
		return managedSubDomain
	}
	return addr.Name + "." + managedSubDomain
}

// TargetRecords computes the full target DNS record set for the configured
// addresses and the live instance set, per spec.md §4.5.2: address bases are
// namespaced under managedSubDomain (the "mc" in "*.mc.example.com").
func TargetRecords(addresses []dynamicconfig.AddressConfig, instances InstanceSet, managedSubDomain, domain string, ttl int) []Record {
	var out []Record
	for _, addr := range addresses {
		base := baseFor(addr, managedSubDomain)
		out = append(out, Record{
			SubDomain:  "*." + base,
			RecordType: RecordType(addr.RecordType),
			Value:      addr.Value,
			TTL:        ttl,
		})

		for _, id := range sortedInstanceIDs(instances) {
			target := fmt.Sprintf("%s.%s.%s.", id, base, domain)
			out = append(out, Record{
				SubDomain:  fmt.Sprintf("_minecraft._tcp.%s.%s", id, base),
				RecordType: RecordSRV,
				Value:      fmt.Sprintf("0 5 %d %s", addr.Port, target),
				TTL:        ttl,
			})
		}
	}
	return out
}

// TargetRoutes computes the full target mc-router route set, per
// spec.md §4.5.2: for each (address, instance) pair, a route from the
// instance's fully-qualified hostname to its local game port.
func TargetRoutes(addresses []dynamicconfig.AddressConfig, instances InstanceSet, managedSubDomain, domain string) []Route {
	var out []Route
	for _, addr := range addresses {
		base := baseFor(addr, managedSubDomain)
		for _, id := range sortedInstanceIDs(instances) {
			key := fmt.Sprintf("%s.%s.%s", id, base, domain)
			out = append(out, Route{
				ServerAddress: key,
				Backend:       fmt.Sprintf("localhost:%d", instances[id]),
			})
		}
	}
	return out
}

func sortedInstanceIDs(instances InstanceSet) []string {
	ids := make([]string, 0, len(instances))
	for id := range instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
