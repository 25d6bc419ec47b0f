// Package dynamicconfig holds the hot-reloadable, per-module configuration
// rows (log_parser, dns, players, cron.backup, cron.restart) described by
// the DynamicConfig table. Each module's settings are held behind an
// atomic.Pointer so readers get a consistent snapshot per operation with no
// torn reads, and writers swap in a fully-validated replacement rather than
// mutating fields in place.
package dynamicconfig

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"reflect"
	"sort"
	"sync/atomic"
)

// Store holds one named, versioned, hot-swappable config value.
type Store[T any] struct {
	module  string
	current atomic.Pointer[T]
	persist func(module string, schemaVersion uint64, raw json.RawMessage) error
}

// NewStore creates a Store seeded with the zero value of T until Load or Set
// is called. persist is invoked on every successful Set so the caller can
// write the row back to Postgres.
func NewStore[T any](module string, persist func(module string, schemaVersion uint64, raw json.RawMessage) error) *Store[T] {
	s := &Store[T]{module: module, persist: persist}
	var zero T
	s.current.Store(&zero)
	return s
}

// Snapshot returns the currently active config value. Callers should call
// this once per operation and use the returned value throughout, rather than
// calling it repeatedly, so that a concurrent Set cannot produce an
// inconsistent view within a single operation.
func (s *Store[T]) Snapshot() T {
	return *s.current.Load()
}

// Load installs raw JSON as the active config after validating its schema
// version. If the stored schemaVersion does not match the current struct's
// computed hash, the value is still loaded (best effort field-by-field via
// json.Unmarshal zero-filling missing fields) and re-persisted at the new
// version, mirroring the original system's re-validate-and-resave-on-drift
// behavior.
func (s *Store[T]) Load(storedVersion uint64, raw json.RawMessage) error {
	var value T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("unmarshal %s config: %w", s.module, err)
		}
	}

	s.current.Store(&value)

	if currentVersion := SchemaVersion(value); currentVersion != storedVersion {
		return s.Set(value)
	}
	return nil
}

// Set validates (via json round-trip, which is as much structural validation
// as a plain struct offers) and installs a new config value, persisting it.
func (s *Store[T]) Set(value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s config: %w", s.module, err)
	}
	s.current.Store(&value)
	if s.persist == nil {
		return nil
	}
	return s.persist(s.module, SchemaVersion(value), raw)
}

// SchemaVersion computes an FNV-1a hash over the sorted field name+type
// tuples of T, so that a struct shape change invalidates rows stored under
// the old shape without needing a hand-maintained version constant.
func SchemaVersion[T any](value T) uint64 {
	t := reflect.TypeOf(value)
	var fields []string
	collectFields(t, &fields)
	sort.Strings(fields)

	h := fnv.New64a()
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func collectFields(t reflect.Type, out *[]string) {
	if t == nil {
		return
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		*out = append(*out, f.Name+":"+f.Type.String())
		if f.Type.Kind() == reflect.Struct {
			collectFields(f.Type, out)
		}
	}
}
