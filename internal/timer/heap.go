package timer

import (
	"container/heap"
	"sync"
	"time"
)

// deadline is a callback due at a given instant
type deadline struct {
	key   string
	at    time.Time
	fire  func()
	index int // position in the heap
}

// deadlineHeap is a min-heap ordered by due time
type deadlineHeap []*deadline

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool {
	return h[i].at.Before(h[j].at)
}

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap) Push(x interface{}) {
	d := x.(*deadline)
	d.index = len(*h)
	*h = append(*h, d)
}

func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	d.index = -1
	*h = old[:n-1]
	return d
}

// Manager fires keyed deadlines from a single scheduler goroutine.
// Report jobs use it to fail requests that never finish.
type Manager struct {
	mu      sync.Mutex
	heap    deadlineHeap
	byKey   map[string]*deadline
	wakeup  chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
	stopped bool
	now     func() time.Time
}

// NewManager creates a manager and starts its scheduler loop
func NewManager() *Manager {
	m := &Manager{
		byKey:  make(map[string]*deadline),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		now:    time.Now,
	}
	heap.Init(&m.heap)
	go m.run()
	return m
}

// Schedule registers fire to run at the given time, replacing any deadline with the same key
func (m *Manager) Schedule(key string, at time.Time, fire func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrManagerStopped
	}

	if existing, ok := m.byKey[key]; ok {
		heap.Remove(&m.heap, existing.index)
	}

	d := &deadline{key: key, at: at, fire: fire}
	heap.Push(&m.heap, d)
	m.byKey[key] = d

	if m.heap[0] == d {
		select {
		case m.wakeup <- struct{}{}:
		default:
		}
	}
	return nil
}

// Cancel drops a pending deadline; it reports whether one was registered
func (m *Manager) Cancel(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(&m.heap, d.index)
	delete(m.byKey, key)
	return true
}

// Pending returns the number of registered deadlines
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byKey)
}

// Stop ends the scheduler loop; pending deadlines are dropped
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.stopCh)
	m.mu.Unlock()

	<-m.done
}

func (m *Manager) run() {
	defer close(m.done)

	for {
		m.mu.Lock()
		wait := 24 * time.Hour
		if m.heap.Len() > 0 {
			next := m.heap[0]
			wait = next.at.Sub(m.now())
			if wait <= 0 {
				heap.Pop(&m.heap)
				delete(m.byKey, next.key)
				m.mu.Unlock()

				go next.fire()
				continue
			}
		}
		m.mu.Unlock()

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-m.wakeup:
			t.Stop()
		case <-m.stopCh:
			t.Stop()
			return
		}
	}
}

var ErrManagerStopped = &TimerError{"timer manager is stopped"}

// TimerError represents a timer error
type TimerError struct {
	msg string
}

func (e *TimerError) Error() string {
	return e.msg
}
