// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Task 一个延迟或周期任务
type Task struct {
	ID       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*Task)
	task.index = n
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// Manager 到期任务不再各自起 goroutine 执行，而是投递到 C，
// 由持有者在自己的循环里串行消费。这保证了回调之间不会并发，
// 持有者的共享状态只有单一写者。
type Manager struct {
	queue  taskQueue
	mutex  sync.Mutex
	nextID int64
	C      chan func()
	quit   chan struct{}
}

func NewManager() *Manager {
	manager := &Manager{
		queue:  make(taskQueue, 0),
		C:      make(chan func(), 256),
		quit:   make(chan struct{}),
		nextID: 1,
	}
	heap.Init(&manager.queue)
	go manager.process()
	return manager
}

// Schedule 注册一个 delay 后触发的任务；interval > 0 时周期重复。
func (m *Manager) Schedule(delay time.Duration, interval time.Duration, callback func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task := &Task{
		ID:       m.nextID,
		Execute:  time.Now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	m.nextID++

	heap.Push(&m.queue, task)
	return task.ID
}

// Cancel 取消一个尚未触发的任务。周期任务取消后不再重复。
func (m *Manager) Cancel(taskID int64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, task := range m.queue {
		if task.ID == taskID {
			heap.Remove(&m.queue, i)
			return true
		}
	}
	return false
}

// Stop 停止调度循环。已投递到 C 的回调仍可被消费。
func (m *Manager) Stop() {
	close(m.quit)
}

func (m *Manager) process() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.dispatchDue(time.Now())
		}
	}
}

func (m *Manager) dispatchDue(now time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for m.queue.Len() > 0 {
		task := m.queue[0]
		if task.Execute.After(now) {
			break
		}

		heap.Pop(&m.queue)

		select {
		case m.C <- task.Callback:
		default:
			// 消费者落后时丢弃本次触发，周期任务下个周期还会再来
		}

		if task.Interval > 0 {
			task.Execute = now.Add(task.Interval)
			heap.Push(&m.queue, task)
		}
	}
}
