package dns

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/xyqyear/mcadmin/internal/dns/router"
	"github.com/xyqyear/mcadmin/internal/dynamicconfig"
)

// InstanceLister is the subset of the Instance Supervisor the reconciler
// needs: the live instance id set and each one's game port. Kept as an
// interface so this package has no import-time dependency on supervisor,
// matching the cron jobs package's InstanceResolver precedent.
type InstanceLister interface {
	List() ([]string, error)
	GamePort(id string) (int, error)
}

// ProviderFactory builds a Provider from a validated DNSConfig. Supplied by
// cmd/mcadmin so this package has no direct dependency on the concrete
// dnspod/huawei client packages (those live under internal/dns/provider/*
// and are chosen by config at wiring time).
type ProviderFactory func(cfg dynamicconfig.DNSConfig) (Provider, error)

// Reconciler is the DNS/Router Reconciler's single entry point, spec.md
// §4.5: update() recomputes target state, diffs it against the provider,
// and converges. A mutex serializes concurrent triggers end-to-end.
type Reconciler struct {
	logger   *slog.Logger
	cfg      *dynamicconfig.Store[dynamicconfig.DNSConfig]
	lister   InstanceLister
	newClient ProviderFactory

	mu          sync.Mutex
	clientHash  string
	provider    Provider
	routerClient *router.Client
}

func New(logger *slog.Logger, cfg *dynamicconfig.Store[dynamicconfig.DNSConfig], lister InstanceLister, newClient ProviderFactory) *Reconciler {
	return &Reconciler{logger: logger, cfg: cfg, lister: lister, newClient: newClient}
}

// clientHash hashes the fields that affect client construction (provider,
// credentials, region, domain, router base URL), per spec.md §4.5.1's "hash
// of the fields that affect client construction" rule.
func clientHash(cfg dynamicconfig.DNSConfig) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s", cfg.Provider, cfg.SecretID, cfg.SecretKey, cfg.Region, cfg.Domain, cfg.MCRouterBaseURL)
	return hex.EncodeToString(h.Sum(nil))
}

// ensureClients re-initializes the provider/router clients if the
// config-affecting fields have changed since the last call, transparently
// to the caller.
func (r *Reconciler) ensureClients(cfg dynamicconfig.DNSConfig) error {
	hash := clientHash(cfg)
	if hash == r.clientHash && r.provider != nil {
		return nil
	}

	provider, err := r.newClient(cfg)
	if err != nil {
		return fmt.Errorf("build dns provider: %w", err)
	}
	r.provider = provider
	r.routerClient = router.New(cfg.MCRouterBaseURL)
	r.clientHash = hash
	return nil
}

// instanceSet reads the live instance id -> game port map. Instances that
// error reading their compose file (e.g. mid-remove) are skipped and
// logged, rather than aborting the whole reconcile.
func (r *Reconciler) instanceSet(ctx context.Context) (InstanceSet, error) {
	ids, err := r.lister.List()
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	out := make(InstanceSet, len(ids))
	for _, id := range ids {
		port, err := r.lister.GamePort(id)
		if err != nil {
			r.logger.Warn("dns reconcile: skip instance, cannot read game port", "instance", id, "error", err)
			continue
		}
		out[id] = port
	}
	return out, nil
}

// computeDiff builds target state and diffs it against the provider's
// current records restricted to managedSubDomain, per spec.md §4.5.3.
func (r *Reconciler) computeDiff(ctx context.Context, cfg dynamicconfig.DNSConfig) (Diff, []router.Route, error) {
	instances, err := r.instanceSet(ctx)
	if err != nil {
		return Diff{}, nil, err
	}

	target := TargetRecords(cfg.Addresses, instances, cfg.ManagedSubDomain, cfg.Domain, cfg.TTL)
	targetRoutes := TargetRoutes(cfg.Addresses, instances, cfg.ManagedSubDomain, cfg.Domain)

	current, err := r.provider.ListRelevantRecords(ctx, cfg.ManagedSubDomain)
	if err != nil {
		return Diff{}, nil, fmt.Errorf("list provider records: %w", err)
	}

	diff := diffRecords(current, target)

	routes := make([]router.Route, 0, len(targetRoutes))
	for _, t := range targetRoutes {
		routes = append(routes, router.Route{ServerAddress: t.ServerAddress, Backend: t.Backend})
	}
	return diff, routes, nil
}

// diffRecords computes add/remove/update sets keyed by (subDomain,
// recordType), per spec.md §4.5.3.
func diffRecords(current, target []Record) Diff {
	currentByKey := make(map[recordKey]Record, len(current))
	for _, rec := range current {
		currentByKey[rec.key()] = rec
	}
	targetByKey := make(map[recordKey]Record, len(target))
	for _, rec := range target {
		targetByKey[rec.key()] = rec
	}

	var diff Diff
	for key, rec := range currentByKey {
		if _, ok := targetByKey[key]; !ok {
			diff.ToRemove = append(diff.ToRemove, rec)
		}
	}
	for key, want := range targetByKey {
		have, ok := currentByKey[key]
		if !ok {
			diff.ToAdd = append(diff.ToAdd, want)
			continue
		}
		if have.Value != want.Value || have.TTL != want.TTL {
			merged := want
			merged.ID = have.ID
			diff.ToUpdate = append(diff.ToUpdate, merged)
		}
	}

	sortRecords(diff.ToAdd)
	sortRecords(diff.ToRemove)
	sortRecords(diff.ToUpdate)
	return diff
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].SubDomain != recs[j].SubDomain {
			return recs[i].SubDomain < recs[j].SubDomain
		}
		return recs[i].RecordType < recs[j].RecordType
	})
}

// Update computes the target DNS/router state and converges the provider
// and mc-router to match it. Concurrent callers serialize on the mutex, per
// spec.md §5's "DNS reconciliation is serialized end-to-end by a mutex."
func (r *Reconciler) Update(ctx context.Context) (Diff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.cfg.Snapshot()
	if !cfg.Enabled {
		return Diff{}, nil
	}
	if err := r.ensureClients(cfg); err != nil {
		return Diff{}, err
	}

	diff, routes, err := r.computeDiff(ctx, cfg)
	if err != nil {
		return Diff{}, err
	}

	if err := r.applyDiff(ctx, diff); err != nil {
		return diff, err
	}

	if err := r.routerClient.ReplaceAll(ctx, routes); err != nil {
		return diff, fmt.Errorf("push router routes: %w", err)
	}

	r.logger.Info("dns reconcile converged", "diff", diff.String())
	return diff, nil
}

// applyDiff applies remove -> add -> update, in that order, so a record
// key never transiently exists twice, per spec.md §4.5.3.
func (r *Reconciler) applyDiff(ctx context.Context, diff Diff) error {
	if len(diff.ToRemove) > 0 {
		ids := make([]string, len(diff.ToRemove))
		for i, rec := range diff.ToRemove {
			ids[i] = rec.ID
		}
		if err := r.provider.RemoveRecords(ctx, ids); err != nil {
			return fmt.Errorf("remove records: %w", err)
		}
	}
	if len(diff.ToAdd) > 0 {
		if err := r.provider.AddRecords(ctx, diff.ToAdd); err != nil {
			return fmt.Errorf("add records: %w", err)
		}
	}
	if len(diff.ToUpdate) > 0 {
		if updater, ok := r.provider.(BatchUpdater); ok {
			if err := updater.UpdateRecordsBatch(ctx, diff.ToUpdate); err != nil {
				return fmt.Errorf("batch update records: %w", err)
			}
		} else {
			ids := make([]string, len(diff.ToUpdate))
			for i, rec := range diff.ToUpdate {
				ids[i] = rec.ID
			}
			if err := r.provider.RemoveRecords(ctx, ids); err != nil {
				return fmt.Errorf("remove-before-update records: %w", err)
			}
			if err := r.provider.AddRecords(ctx, diff.ToUpdate); err != nil {
				return fmt.Errorf("add-after-update records: %w", err)
			}
		}
	}
	return nil
}

// GetCurrentDiff is the read-only status API from spec.md §4.5.4: it
// returns what Update would do, without mutating anything.
func (r *Reconciler) GetCurrentDiff(ctx context.Context) (Diff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.cfg.Snapshot()
	if !cfg.Enabled {
		return Diff{}, nil
	}
	if err := r.ensureClients(cfg); err != nil {
		return Diff{}, err
	}
	diff, _, err := r.computeDiff(ctx, cfg)
	return diff, err
}
