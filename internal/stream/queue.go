package stream

import "sync"

// Message is one entry of the message queue. A sentinel message carries no
// text and tells the consumer the session is over.
type Message struct {
	Text     string
	Sentinel bool
}

// Queue is an unbounded FIFO shared by one producer, any number of pushers
// and one draining consumer.
type Queue struct {
	mu    sync.Mutex
	items []Message
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends m. It never blocks on the consumer.
func (q *Queue) Push(m Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
}

// PushText appends a plain text message.
func (q *Queue) PushText(text string) {
	q.Push(Message{Text: text})
}

// Drain removes and returns everything currently queued, oldest first.
func (q *Queue) Drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Len reports how many messages are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
