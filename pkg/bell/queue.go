package bell

import (
	"log/slog"
	"sync"
	"time"

	"zsembells/pkg/model"
)

// Request is a ring waiting in the queue.
type Request struct {
	Kind   model.BellKind
	Source model.RingSource
	Queued time.Time

	priority bool
}

// Queue holds pending rings.
type Queue struct {
	mu    sync.RWMutex
	queue []*Request
	limit int
}

// NewQueue creates a queue holding at most limit non-priority requests.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 1
	}
	return &Queue{
		queue: make([]*Request, 0, limit),
		limit: limit,
	}
}

// Enqueue adds a request. Priority requests are never dropped and go ahead of
// every normal request, behind priority requests already waiting.
// It returns false if the request was dropped.
func (q *Queue) Enqueue(req *Request, priority bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !priority {
		if len(q.queue) >= q.limit {
			slog.Info("BellQueue: Queue full, dropping ring", "kind", req.Kind, "source", req.Source)
			return false
		}
		for _, r := range q.queue {
			if r.Kind == req.Kind && r.Source == req.Source {
				slog.Info("BellQueue: Same ring already pending", "kind", req.Kind, "source", req.Source)
				return false
			}
		}
		q.queue = append(q.queue, req)
	} else {
		req.priority = true
		at := 0
		for at < len(q.queue) && q.queue[at].priority {
			at++
		}
		q.queue = append(q.queue, nil)
		copy(q.queue[at+1:], q.queue[at:])
		q.queue[at] = req
	}
	slog.Debug("BellQueue: Enqueued ring", "kind", req.Kind, "source", req.Source, "priority", priority, "queue_len", len(q.queue))
	return true
}

// Pop retrieves and removes the next request.
func (q *Queue) Pop() *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return nil
	}
	r := q.queue[0]
	q.queue = q.queue[1:]
	return r
}

// Peek returns the head of the queue without removing it.
func (q *Queue) Peek() *Request {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.queue) == 0 {
		return nil
	}
	return q.queue[0]
}

// Count returns the number of pending requests.
func (q *Queue) Count() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.queue)
}

// Clear drops all pending requests.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = make([]*Request, 0, q.limit)
}
