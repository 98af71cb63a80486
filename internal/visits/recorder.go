package visits

import (
	"context"
	"sync"
	"time"

	"chasopis/internal/logger"
	"chasopis/internal/models"
)

// logTimeout bounds the geo lookup and insert of one queued visit.
const logTimeout = 10 * time.Second

// Recorder moves visit logging off the request path. Visits are queued
// without blocking and written by a fixed number of workers.
type Recorder struct {
	visits  *Logger
	queue   chan models.VisitInput
	closed  chan struct{}
	once    sync.Once
	workers int
	wg      sync.WaitGroup
	metrics *Metrics
	log     logger.Logger
}

func NewRecorder(visits *Logger, queueSize, workers int, metrics *Metrics, log logger.Logger) *Recorder {
	if workers < 1 {
		workers = 1
	}
	return &Recorder{
		visits:  visits,
		queue:   make(chan models.VisitInput, queueSize),
		closed:  make(chan struct{}),
		workers: workers,
		metrics: metrics,
		log:     log,
	}
}

// Enqueue queues a visit. It returns false and drops the visit when the
// queue is full.
func (r *Recorder) Enqueue(in models.VisitInput) bool {
	select {
	case <-r.closed:
		r.metrics.dropped()
		return false
	default:
	}

	select {
	case r.queue <- in:
		return true
	default:
		r.metrics.dropped()
		r.log.Warn("Visit queue full, dropping visit", logger.String("path", in.Path))
		return false
	}
}

// Len returns the number of queued visits.
func (r *Recorder) Len() int {
	return len(r.queue)
}

// Start launches the workers.
func (r *Recorder) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
}

// Stop stops accepting visits and waits until the queued ones are written.
func (r *Recorder) Stop() {
	r.once.Do(func() {
		close(r.closed)
	})
	r.wg.Wait()
}

func (r *Recorder) work() {
	defer r.wg.Done()
	for {
		select {
		case in := <-r.queue:
			r.record(in)
		case <-r.closed:
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case in := <-r.queue:
			r.record(in)
		default:
			return
		}
	}
}

func (r *Recorder) record(in models.VisitInput) {
	ctx, cancel := context.WithTimeout(context.Background(), logTimeout)
	defer cancel()
	r.visits.Log(ctx, in)
}
