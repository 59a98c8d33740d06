package stream

import "sync"

// Sink is the display surface a session writes into.
type Sink interface {
	AppendAndTrim(text string)
	ScrollToEnd()
}

// SinkFinder resolves the sink at delivery time. It reports false when the
// sink is not available, e.g. the panel is closed.
type SinkFinder func() (Sink, bool)

// Scheduler runs a task on the UI thread. Tasks handed to one scheduler must
// run in the order they were scheduled.
type Scheduler func(task func())

// Immediate runs every task inline on the calling goroutine.
func Immediate(task func()) { task() }

// TaskQueue is an ordered hand-off of tasks to an event loop that owns the
// display. The loop receives from Tasks and runs each task itself.
type TaskQueue struct {
	tasks  chan func()
	closed chan struct{}
	once   sync.Once
}

// NewTaskQueue creates a task queue with the given buffer size.
func NewTaskQueue(size int) *TaskQueue {
	if size < 0 {
		size = 0
	}
	return &TaskQueue{
		tasks:  make(chan func(), size),
		closed: make(chan struct{}),
	}
}

// Schedule hands task to the event loop. It blocks while the buffer is full
// and drops the task once the queue is closed.
func (q *TaskQueue) Schedule(task func()) {
	select {
	case <-q.closed:
		return
	default:
	}
	select {
	case q.tasks <- task:
	case <-q.closed:
	}
}

// Tasks is the channel the event loop reads from.
func (q *TaskQueue) Tasks() <-chan func() { return q.tasks }

// Closed is closed once Close has been called.
func (q *TaskQueue) Closed() <-chan struct{} { return q.closed }

// Close stops accepting tasks. Pending tasks stay readable from Tasks.
func (q *TaskQueue) Close() {
	q.once.Do(func() { close(q.closed) })
}
