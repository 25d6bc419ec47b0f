package dns

import (
	"context"
	"log/slog"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xyqyear/mcadmin/internal/dynamicconfig"
)

type fakeProvider struct {
	domain  string
	records map[string]Record // by id
	nextID  int
}

func newFakeProvider(domain string) *fakeProvider {
	return &fakeProvider{domain: domain, records: map[string]Record{}}
}

func (f *fakeProvider) GetDomain() string { return f.domain }

func (f *fakeProvider) ListRelevantRecords(ctx context.Context, managedSubDomain string) ([]Record, error) {
	var out []Record
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeProvider) AddRecords(ctx context.Context, records []Record) error {
	for _, rec := range records {
		f.nextID++
		rec.ID = string(rune('a' + f.nextID))
		f.records[rec.ID] = rec
	}
	return nil
}

func (f *fakeProvider) RemoveRecords(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.records, id)
	}
	return nil
}

type fakeLister struct {
	ports map[string]int
}

func (f *fakeLister) List() ([]string, error) {
	var ids []string
	for id := range f.ports {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeLister) GamePort(id string) (int, error) { return f.ports[id], nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconcilerUpdateIsIdempotent(t *testing.T) {
	fp := newFakeProvider("ex.com")
	lister := &fakeLister{ports: map[string]int{"survival": 25565}}
	cfg := dynamicconfig.NewStore[dynamicconfig.DNSConfig]("dns", nil)
	require.NoError(t, cfg.Set(dynamicconfig.DNSConfig{
		Enabled:          true,
		Domain:           "ex.com",
		ManagedSubDomain: "mc",
		TTL:              15,
		MCRouterBaseURL:  "http://router.invalid",
		Addresses: []dynamicconfig.AddressConfig{
			{Name: "*", RecordType: "A", Value: "1.2.3.4", Port: 25565},
		},
	}))

	r := New(testLogger(), cfg, lister, func(dynamicconfig.DNSConfig) (Provider, error) { return fp, nil })

	diff, err := r.computeDiffPublic(context.Background())
	require.NoError(t, err)
	assert.Len(t, diff.ToAdd, 2) // wildcard A + SRV
	assert.Empty(t, diff.ToRemove)
	assert.Empty(t, diff.ToUpdate)

	require.NoError(t, r.applyDiff(context.Background(), diff))

	diff2, err := r.computeDiffPublic(context.Background())
	require.NoError(t, err)
	assert.True(t, diff2.Empty(), "second diff should be empty: %s", diff2)
}

// computeDiffPublic exposes computeDiff for the test without a router call,
// since the fake router base URL is intentionally unreachable.
func (r *Reconciler) computeDiffPublic(ctx context.Context) (Diff, error) {
	cfg := r.cfg.Snapshot()
	if err := r.ensureClients(cfg); err != nil {
		return Diff{}, err
	}
	diff, _, err := r.computeDiff(ctx, cfg)
	return diff, err
}

func TestTargetRecordsWildcardAndSRV(t *testing.T) {
	addrs := []dynamicconfig.AddressConfig{{Name: "*", RecordType: "A", Value: "1.2.3.4", Port: 25565}}
	instances := InstanceSet{"survival": 25565}
	records := TargetRecords(addrs, instances, "mc", "ex.com", 15)
	require.Len(t, records, 2)
	assert.Equal(t, "*.mc", records[0].SubDomain)
	assert.Equal(t, RecordA, records[0].RecordType)
	assert.Equal(t, "_minecraft._tcp.survival.mc", records[1].SubDomain)
	assert.Equal(t, "0 5 25565 survival.mc.ex.com.", records[1].Value)
}

func TestTargetRoutes(t *testing.T) {
	addrs := []dynamicconfig.AddressConfig{{Name: "*", RecordType: "A", Value: "1.2.3.4", Port: 25565}}
	instances := InstanceSet{"survival": 25565}
	routes := TargetRoutes(addrs, instances, "mc", "ex.com")
	require.Len(t, routes, 1)
	assert.Equal(t, "survival.mc.ex.com", routes[0].ServerAddress)
	assert.Equal(t, "localhost:25565", routes[0].Backend)
}
