package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
	"github.com/ManuelReschke/BlockFox/internal/pkg/metrics/counter"
)

const defaultCounterFlushInterval = 5 * time.Second

// periodicTask runs next to the workers. final is set for tasks that must
// run once more after the workers stopped.
type periodicTask struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
	final    bool
}

// Manager owns the process wide queue and the periodic tasks around it.
type Manager struct {
	queue  *Queue
	tasks  []periodicTask
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = newManager(
			NewQueue(env.GetEnvInt("JOB_WORKERS", 5)),
			periodicTask{
				name:     "usage flush",
				interval: env.GetEnvDuration("COUNTER_FLUSH_INTERVAL", defaultCounterFlushInterval),
				run:      func(context.Context) error { return counter.FlushAll() },
				final:    true,
			},
		)
	})
	return globalManager
}

func newManager(queue *Queue, tasks ...periodicTask) *Manager {
	for i := range tasks {
		if tasks[i].interval <= 0 {
			tasks[i].interval = defaultCounterFlushInterval
		}
	}
	return &Manager{queue: queue, tasks: tasks}
}

func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Configure hands the processor dependencies to the queue
func (m *Manager) Configure(deps Dependencies) {
	m.queue.SetDependencies(deps)
}

// Start launches the workers and one goroutine per periodic task. Calling it
// on a running manager does nothing.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	log.Info("[JobQueue Manager] Starting job queue and background tasks")
	m.queue.Start()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	for _, task := range m.tasks {
		m.wg.Add(1)
		go m.loop(ctx, task)
	}
}

// Stop cancels the periodic tasks, drains the workers and runs the final
// tasks once so nothing collected since the last tick is lost.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")
	m.cancel()
	m.cancel = nil
	m.wg.Wait()
	m.queue.Stop()

	for _, task := range m.tasks {
		if !task.final {
			continue
		}
		if err := task.run(context.Background()); err != nil {
			log.Errorf("[JobQueue Manager] Final %s failed: %v", task.name, err)
		}
	}
	log.Info("[JobQueue Manager] Stopped successfully")
}

func (m *Manager) loop(ctx context.Context, task periodicTask) {
	defer m.wg.Done()
	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := task.run(ctx); err != nil {
				log.Errorf("[JobQueue Manager] %s failed: %v", task.name, err)
			}
		}
	}
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}
