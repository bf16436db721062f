package pipeline

import (
	"log"
	"sync"

	"github.com/projectlend/lend/internal/vision"
)

// SortFunc performs one full pick-and-place cycle for a category.
type SortFunc func(category vision.Category) error

// SortQueue decouples actuation from the tick loop: the machine enqueues a
// sort request and continues immediately; a single worker drains the queue
// strictly in order, so at most one arm sequence is ever in flight.
// Completion and failure surface only in the logs.
type SortQueue struct {
	requests chan vision.Category
	quit     chan struct{}
	sortFn   SortFunc
	wg       sync.WaitGroup
	once     sync.Once
}

func NewSortQueue(sortFn SortFunc) *SortQueue {
	q := &SortQueue{
		requests: make(chan vision.Category, 8),
		quit:     make(chan struct{}),
		sortFn:   sortFn,
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

func (q *SortQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.quit:
			// Abandon anything queued but not started.
			for {
				select {
				case category := <-q.requests:
					log.Printf("Abandoning queued sort for %s (shutdown)", category)
				default:
					return
				}
			}
		case category := <-q.requests:
			if err := q.sortFn(category); err != nil {
				log.Printf("Arm sort error: %v", err)
			} else {
				log.Printf("Sort complete: %s", category)
			}
		}
	}
}

// Enqueue adds a sort request. Returns false when the queue is full or shut
// down; the request is dropped rather than blocking the tick path.
func (q *SortQueue) Enqueue(category vision.Category) bool {
	select {
	case <-q.quit:
		return false
	default:
	}
	select {
	case q.requests <- category:
		return true
	default:
		log.Printf("[WARN] Sort queue full, dropping request for %s", category)
		return false
	}
}

// Close stops the worker, waiting for an in-flight sort to finish. A running
// arm sequence is never cancelled mid-motion; queued requests that have not
// started are abandoned.
func (q *SortQueue) Close() {
	q.once.Do(func() { close(q.quit) })
	q.wg.Wait()
}
