package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the queue is at capacity
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueEmpty is returned when there is no item to take
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrQueueClosed is returned when operations are attempted on a closed queue
	ErrQueueClosed = errors.New("queue is closed")
)

// ItemQueue orders the item keys a session will show. Jumps requested by
// the user (priority items) come before the regular sequence. After every
// change the first few keys are handed to the preload function.
type ItemQueue struct {
	// Priority queue for user jumps
	priorityQueue *priorityQueue

	// Regular items in presentation order
	regularQueue []string

	// Configuration
	maxSize   int
	lookahead int
	preload   func(key string)

	// Synchronization
	mu       sync.Mutex
	notEmpty *sync.Cond
	pushed   uint64 // insertion counter, keeps jumps FIFO among themselves

	// State
	closed    bool
	preloaded map[string]bool
	stats     Stats

	preloadRequests chan string
	done            chan struct{}
}

// Stats tracks queue metrics
type Stats struct {
	TotalEnqueued int64
	TotalDequeued int64
	TotalDropped  int64
	JumpCount     int64
	Preloads      int64
	CurrentSize   int
	PeakSize      int
	LastEnqueue   time.Time
	LastDequeue   time.Time
}

// NewItemQueue creates a queue holding at most maxSize keys. preload may be
// nil; otherwise it is called from a background goroutine for each of the
// next lookahead keys, once per key.
func NewItemQueue(maxSize, lookahead int, preload func(key string)) *ItemQueue {
	if lookahead < 0 {
		lookahead = 0
	}
	q := &ItemQueue{
		priorityQueue:   &priorityQueue{},
		regularQueue:    make([]string, 0, maxSize),
		maxSize:         maxSize,
		lookahead:       lookahead,
		preload:         preload,
		preloaded:       make(map[string]bool),
		preloadRequests: make(chan string, lookahead+1),
		done:            make(chan struct{}),
	}
	heap.Init(q.priorityQueue)
	q.notEmpty = sync.NewCond(&q.mu)

	go q.processLookahead()

	return q
}

// Enqueue adds a key. Priority keys are taken before every regular key.
func (q *ItemQueue) Enqueue(key string, priority bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.sizeLocked() >= q.maxSize {
		q.stats.TotalDropped++
		return ErrQueueFull
	}

	q.pushLocked(key, priority)
	q.afterEnqueueLocked()
	return nil
}

// EnqueueBatch adds regular keys in order. It stops at capacity and returns
// how many were added.
func (q *ItemQueue) EnqueueBatch(keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, ErrQueueClosed
	}

	added := 0
	for _, key := range keys {
		if q.sizeLocked() >= q.maxSize {
			break
		}
		q.pushLocked(key, false)
		added++
	}
	q.stats.TotalDropped += int64(len(keys) - added)
	if added == 0 {
		return 0, ErrQueueFull
	}

	q.afterEnqueueLocked()
	return added, nil
}

func (q *ItemQueue) pushLocked(key string, priority bool) {
	if priority {
		q.pushed++
		heap.Push(q.priorityQueue, &queueItem{key: key, order: q.pushed})
		q.stats.JumpCount++
	} else {
		q.regularQueue = append(q.regularQueue, key)
	}
	q.stats.TotalEnqueued++
}

func (q *ItemQueue) afterEnqueueLocked() {
	q.stats.LastEnqueue = time.Now()
	size := q.sizeLocked()
	if size > q.stats.PeakSize {
		q.stats.PeakSize = size
	}
	q.stats.CurrentSize = size

	q.notEmpty.Broadcast()
	q.requestLookaheadLocked()
}

// Dequeue removes and returns the next key without waiting.
func (q *ItemQueue) Dequeue() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", ErrQueueClosed
	}
	return q.takeLocked()
}

// Wait blocks until a key is available, the queue is closed or ctx is done.
func (q *ItemQueue) Wait(ctx context.Context) (string, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.sizeLocked() == 0 && !q.closed {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		q.notEmpty.Wait()
	}
	if q.closed {
		return "", ErrQueueClosed
	}
	return q.takeLocked()
}

func (q *ItemQueue) takeLocked() (string, error) {
	var key string
	switch {
	case q.priorityQueue.Len() > 0:
		key = heap.Pop(q.priorityQueue).(*queueItem).key
	case len(q.regularQueue) > 0:
		key = q.regularQueue[0]
		q.regularQueue = q.regularQueue[1:]
	default:
		return "", ErrQueueEmpty
	}
	delete(q.preloaded, key)

	q.stats.TotalDequeued++
	q.stats.LastDequeue = time.Now()
	q.stats.CurrentSize = q.sizeLocked()

	q.requestLookaheadLocked()
	return key, nil
}

// Peek returns the next key without removing it.
func (q *ItemQueue) Peek() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", ErrQueueClosed
	}
	if q.priorityQueue.Len() > 0 {
		return q.priorityQueue.peek().key, nil
	}
	if len(q.regularQueue) > 0 {
		return q.regularQueue[0], nil
	}
	return "", ErrQueueEmpty
}

// Size returns the number of queued keys.
func (q *ItemQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sizeLocked()
}

func (q *ItemQueue) sizeLocked() int {
	return q.priorityQueue.Len() + len(q.regularQueue)
}

// Clear removes every queued key.
func (q *ItemQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.priorityQueue = &priorityQueue{}
	heap.Init(q.priorityQueue)
	q.regularQueue = q.regularQueue[:0]
	q.stats.CurrentSize = 0
}

// Lookahead returns the next keys in the order they will be taken, without
// removing them.
func (q *ItemQueue) Lookahead() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lookaheadLocked()
}

func (q *ItemQueue) lookaheadLocked() []string {
	out := make([]string, 0, q.lookahead)

	// Jumps in the order they will pop
	jumps := make(priorityQueue, len(*q.priorityQueue))
	copy(jumps, *q.priorityQueue)
	for len(jumps) > 0 && len(out) < q.lookahead {
		out = append(out, heap.Pop(&jumps).(*queueItem).key)
	}

	for _, key := range q.regularQueue {
		if len(out) >= q.lookahead {
			break
		}
		out = append(out, key)
	}
	return out
}

// requestLookaheadLocked hands keys that were never preloaded to the
// preload goroutine. When it is busy the key is retried on the next change.
func (q *ItemQueue) requestLookaheadLocked() {
	if q.preload == nil || q.lookahead == 0 {
		return
	}
	for _, key := range q.lookaheadLocked() {
		if q.preloaded[key] {
			continue
		}
		select {
		case q.preloadRequests <- key:
			q.preloaded[key] = true
		default:
			return
		}
	}
}

// Stats returns the current queue statistics.
func (q *ItemQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := q.stats
	stats.CurrentSize = q.sizeLocked()
	return stats
}

// Close shuts the queue down and wakes every waiter.
func (q *ItemQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	q.notEmpty.Broadcast()
	return nil
}

// processLookahead runs preloads in the background.
func (q *ItemQueue) processLookahead() {
	for {
		select {
		case <-q.done:
			return
		case key := <-q.preloadRequests:
			q.preload(key)
			q.mu.Lock()
			q.stats.Preloads++
			q.mu.Unlock()
		}
	}
}

// Priority queue of jumps, oldest first
type queueItem struct {
	key   string
	order uint64
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].order < pq[j].order
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(*queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // Avoid memory leak
	*pq = old[0 : n-1]
	return item
}

func (pq priorityQueue) peek() *queueItem {
	return pq[0]
}
