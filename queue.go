package marinelog

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned when pushing to or popping from a closed and drained queue.
var ErrQueueClosed = errors.New("queue closed")

// DefaultQueueSize is used when queue is created with non-positive capacity
const DefaultQueueSize = 1024

// Queue is bounded multi-producer/multi-consumer message queue. Pushing a message transfers its ownership to the
// queue and from there to whoever pops it.
type Queue struct {
	items chan Message

	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates queue that holds up to capacity messages before Push starts to block.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &Queue{
		items: make(chan Message, capacity),
		done:  make(chan struct{}),
	}
}

// Push adds message to queue, blocking while queue is full. Returns ErrQueueClosed when queue is closed or context
// error when context is cancelled before message could be added.
func (q *Queue) Push(ctx context.Context, msg Message) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.items <- msg:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop removes and returns the oldest message, blocking until a message is available. Messages already in a closed
// queue are still returned and only after the queue has been drained Pop returns ErrQueueClosed.
func (q *Queue) Pop(ctx context.Context) (Message, error) {
	select {
	case msg := <-q.items:
		return msg, nil
	default:
	}

	select {
	case msg := <-q.items:
		return msg, nil
	case <-q.done:
		select {
		case msg := <-q.items:
			return msg, nil
		default:
		}
		return Message{}, ErrQueueClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Len returns number of messages waiting in queue
func (q *Queue) Len() int {
	return len(q.items)
}

// Close closes queue. Blocked Push and Pop calls are woken up. Close is safe to call multiple times.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}
