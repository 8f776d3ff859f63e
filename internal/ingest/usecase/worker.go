package usecase

import (
	"context"
	"errors"
	"log"
	"sync"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	historydomain "github.com/Alok-Gaur/mail-management-agent/internal/history/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/ingest/domain"
	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"
)

// BatchJob is one queued change notification.
type BatchJob struct {
	Notification maildomain.ChangeNotification
	Source       historydomain.Source
}

// BatchHandler processes one queued notification.
type BatchHandler interface {
	HandleChange(ctx context.Context, n maildomain.ChangeNotification, source historydomain.Source) (*domain.BatchSummary, error)
}

// BatchWorker runs queued batches on a fixed pool of goroutines.
type BatchWorker struct {
	handler     BatchHandler
	jobQueue    chan BatchJob
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	stopped     bool
	mu          sync.Mutex
}

func NewBatchWorker(handler BatchHandler, workerCount, queueSize int) *BatchWorker {
	if workerCount <= 0 {
		workerCount = 2
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &BatchWorker{
		handler:     handler,
		jobQueue:    make(chan BatchJob, queueSize),
		workerCount: workerCount,
	}
}

// Start starts the workers. Jobs run under ctx.
func (w *BatchWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return
	}
	for i := 0; i < w.workerCount; i++ {
		w.workerWg.Add(1)
		go w.worker(ctx, i)
	}
	w.started = true
	log.Printf("[BatchWorker] Started %d workers", w.workerCount)
}

// Stop drains the queue and waits for running batches.
func (w *BatchWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.jobQueue)
	w.mu.Unlock()

	w.workerWg.Wait()
	log.Println("[BatchWorker] All workers stopped")
}

func (w *BatchWorker) worker(ctx context.Context, id int) {
	defer w.workerWg.Done()

	for job := range w.jobQueue {
		w.processJob(ctx, job)
	}
	log.Printf("[BatchWorker] Worker %d stopped", id)
}

func (w *BatchWorker) processJob(ctx context.Context, job BatchJob) {
	n := job.Notification
	_, err := w.handler.HandleChange(ctx, n, job.Source)
	switch {
	case err == nil:
	case errors.Is(err, accountdomain.ErrAccountNotFound):
		log.Printf("[BatchWorker] account %s disappeared before its batch ran", n.AccountIdentifier)
	default:
		log.Printf("[BatchWorker] batch for %s cursor %d failed: %v", n.AccountIdentifier, n.ChangeCursor, err)
	}
}

// Enqueue adds a job without blocking. It reports false when the queue is full or stopped.
func (w *BatchWorker) Enqueue(job BatchJob) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return false
	}
	select {
	case w.jobQueue <- job:
		return true
	default:
		return false
	}
}
