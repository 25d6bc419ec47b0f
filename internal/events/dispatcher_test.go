package events

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatchPlayerJoinedRunsAllHandlers(t *testing.T) {
	d := NewDispatcher(nil)

	var calls int32
	d.OnPlayerJoined(func(e PlayerJoined) { atomic.AddInt32(&calls, 1) })
	d.OnPlayerJoined(func(e PlayerJoined) { atomic.AddInt32(&calls, 1) })

	d.DispatchPlayerJoined(PlayerJoined{ServerID: "survival", PlayerName: "Alice", Timestamp: time.Now()})

	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestDispatchWithNoHandlersDoesNotPanic(t *testing.T) {
	d := NewDispatcher(nil)
	assert.NotPanics(t, func() {
		d.DispatchServerStopping(ServerStopping{ServerID: "survival"})
	})
}

func TestHandlerPanicDoesNotPreventOthers(t *testing.T) {
	d := NewDispatcher(nil)

	var ran int32
	d.OnPlayerLeft(func(e PlayerLeft) { panic("boom") })
	d.OnPlayerLeft(func(e PlayerLeft) { atomic.AddInt32(&ran, 1) })

	assert.NotPanics(t, func() {
		d.DispatchPlayerLeft(PlayerLeft{ServerID: "survival", PlayerName: "Alice"})
	})
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
}
