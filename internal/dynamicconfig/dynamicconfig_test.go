package dynamicconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct {
	Enabled bool
	Limit   int
}

func TestNewStoreSnapshotsZeroValueBeforeLoad(t *testing.T) {
	s := NewStore[fakeConfig]("players", nil)
	assert.Equal(t, fakeConfig{}, s.Snapshot())
}

func TestSetInstallsValueAndPersists(t *testing.T) {
	var gotModule string
	var gotRaw json.RawMessage
	s := NewStore[fakeConfig]("players", func(module string, version uint64, raw json.RawMessage) error {
		gotModule = module
		gotRaw = raw
		return nil
	})

	require.NoError(t, s.Set(fakeConfig{Enabled: true, Limit: 5}))

	assert.Equal(t, fakeConfig{Enabled: true, Limit: 5}, s.Snapshot())
	assert.Equal(t, "players", gotModule)
	assert.JSONEq(t, `{"Enabled":true,"Limit":5}`, string(gotRaw))
}

func TestLoadInstallsMatchingSchemaVersionWithoutRepersisting(t *testing.T) {
	persistCalls := 0
	s := NewStore[fakeConfig]("players", func(module string, version uint64, raw json.RawMessage) error {
		persistCalls++
		return nil
	})

	version := SchemaVersion(fakeConfig{})
	raw, err := json.Marshal(fakeConfig{Enabled: true, Limit: 3})
	require.NoError(t, err)

	require.NoError(t, s.Load(version, raw))
	assert.Equal(t, fakeConfig{Enabled: true, Limit: 3}, s.Snapshot())
	assert.Equal(t, 0, persistCalls)
}

func TestLoadWithStaleSchemaVersionRepersists(t *testing.T) {
	persistCalls := 0
	s := NewStore[fakeConfig]("players", func(module string, version uint64, raw json.RawMessage) error {
		persistCalls++
		return nil
	})

	raw, err := json.Marshal(fakeConfig{Enabled: true, Limit: 3})
	require.NoError(t, err)

	require.NoError(t, s.Load(0, raw))
	assert.Equal(t, 1, persistCalls)
}

func TestSchemaVersionIsStableAcrossFieldReordering(t *testing.T) {
	type a struct {
		X int
		Y string
	}
	type b struct {
		Y string
		X int
	}
	assert.Equal(t, SchemaVersion(a{}), SchemaVersion(b{}))
}

func TestSchemaVersionChangesWithFieldSet(t *testing.T) {
	type v1 struct{ X int }
	type v2 struct {
		X int
		Z int
	}
	assert.NotEqual(t, SchemaVersion(v1{}), SchemaVersion(v2{}))
}
