package jobqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
)

func resetManager() {
	globalManager = nil
	managerOnce = sync.Once{}
}

func TestGetManagerIsShared(t *testing.T) {
	resetManager()
	t.Cleanup(resetManager)

	manager := GetManager()
	assert.Same(t, manager, GetManager())
	assert.Same(t, manager.queue, manager.GetQueue())
	assert.False(t, manager.IsRunning())

	assert.Len(t, manager.tasks, 1)
	assert.True(t, manager.tasks[0].final)
	assert.Equal(t, env.GetEnvDuration("COUNTER_FLUSH_INTERVAL", defaultCounterFlushInterval), manager.tasks[0].interval)
}

func TestNewManagerDefaultsInterval(t *testing.T) {
	m := newManager(&Queue{}, periodicTask{name: "noop", run: func(context.Context) error { return nil }})
	assert.Equal(t, defaultCounterFlushInterval, m.tasks[0].interval)
}

func TestManager_Configure(t *testing.T) {
	m := newManager(&Queue{})
	sup := newFakeSupervisor()
	health := &fakeHealth{}

	m.Configure(Dependencies{Supervisor: sup, Health: health})

	assert.Same(t, sup, m.queue.deps.Supervisor)
	assert.Same(t, health, m.queue.deps.Health)
	assert.Nil(t, m.queue.deps.Repos)
}

func TestManager_StopWithoutStart(t *testing.T) {
	var runs int32
	m := newManager(&Queue{}, periodicTask{name: "flush", run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, final: true})

	m.Stop()
	assert.False(t, m.IsRunning())
	assert.Zero(t, atomic.LoadInt32(&runs), "final tasks only run after a start")
}

func TestManager_RunsTasksAndFinalFlush(t *testing.T) {
	var ticks, finals int32
	m := newManager(newTestQueue(t),
		periodicTask{name: "tick", interval: 10 * time.Millisecond, run: func(context.Context) error {
			atomic.AddInt32(&ticks, 1)
			return errors.New("logged and ignored")
		}},
		periodicTask{name: "flush", interval: time.Hour, run: func(context.Context) error {
			atomic.AddInt32(&finals, 1)
			return nil
		}, final: true},
	)

	m.Start()
	m.Start()
	assert.True(t, m.IsRunning())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&ticks) >= 2 }, time.Second, 5*time.Millisecond)

	m.Stop()
	assert.False(t, m.IsRunning())
	assert.Equal(t, int32(1), atomic.LoadInt32(&finals))

	stopped := atomic.LoadInt32(&ticks)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&ticks))
}
