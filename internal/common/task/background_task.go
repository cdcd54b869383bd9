package task

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type task struct {
	function    func()
	interval    time.Duration
	name        string
	stopChannel chan struct{}
}

// BackgroundTaskManager runs functions periodically until stopped.
// It is not threadsafe, it should only be accessed from a single goroutine.
type BackgroundTaskManager struct {
	tasks   []*task
	latency *prometheus.HistogramVec
	wg      *sync.WaitGroup
}

// NewBackgroundTaskManager returns a manager that records the latency of every task invocation
// in latency, labelled with the task name. latency may be nil.
func NewBackgroundTaskManager(latency *prometheus.HistogramVec) *BackgroundTaskManager {
	return &BackgroundTaskManager{
		tasks:   []*task{},
		latency: latency,
		wg:      &sync.WaitGroup{},
	}
}

// Register starts backgroundTask straight away and then runs it every interval.
func (m *BackgroundTaskManager) Register(backgroundTask func(), interval time.Duration, name string) {
	task := &task{
		function:    backgroundTask,
		interval:    interval,
		name:        name,
		stopChannel: make(chan struct{}),
	}
	m.startBackgroundTask(task)
	m.tasks = append(m.tasks, task)
}

// StopAll signals every task to stop and waits up to timeout for them to return.
// Returns true if the wait timed out.
func (m *BackgroundTaskManager) StopAll(timeout time.Duration) bool {
	m.stopTasks()
	return !waitWithTimeout(m.wg, timeout)
}

func (m *BackgroundTaskManager) startBackgroundTask(task *task) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.invoke(task)

		ticker := time.NewTicker(task.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-task.stopChannel:
				return
			}
			m.invoke(task)
		}
	}()
}

func (m *BackgroundTaskManager) invoke(task *task) {
	start := time.Now()
	task.function()
	if m.latency != nil {
		m.latency.WithLabelValues(task.name).Observe(time.Since(start).Seconds())
	}
}

func (m *BackgroundTaskManager) stopTasks() {
	for _, task := range m.tasks {
		close(task.stopChannel)
	}
	m.tasks = nil
}

// waitWithTimeout returns true if wg completed before the timeout.
func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()
	select {
	case <-c:
		return true
	case <-time.After(timeout):
		return false
	}
}
