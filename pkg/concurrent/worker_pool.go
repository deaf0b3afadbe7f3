package concurrent

import (
	"sync"
)

type JobFunc[T any, G any] func(job T) G

type Job[T any] struct {
	ID      int
	Payload T
}

type JobResult[G any] struct {
	ID     int
	Result G
}

// WorkerPool runs jobFunc over queued jobs with numWorkers goroutines.
// results carry the job id so callers can put them back in submission order.
type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan Job[T]
	results    chan JobResult[G]
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job[T], jobQueueSize),
		results:    make(chan JobResult[G], jobQueueSize),
	}
}

func (wp *WorkerPool[T, G]) worker(jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		wp.results <- JobResult[G]{ID: job.ID, Result: jobFunc(job.Payload)}
	}
}

func (wp *WorkerPool[T, G]) Start(jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(jobFunc)
	}
}

func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) AddJob(id int, payload T) {
	wp.jobQueue <- Job[T]{ID: id, Payload: payload}
}

func (wp *WorkerPool[T, G]) CollectResults() chan JobResult[G] {
	return wp.results
}

func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobQueue)
}

// Map applies fn to every job on numWorkers goroutines and returns the results in job order.
func Map[T any, G any](numWorkers int, jobs []T, fn JobFunc[T, G]) []G {
	out := make([]G, len(jobs))
	if len(jobs) == 0 {
		return out
	}

	// both channels hold every job, so AddJob never blocks before Start
	wp := NewWorkerPool[T, G](numWorkers, len(jobs))
	for id, job := range jobs {
		wp.AddJob(id, job)
	}
	wp.Close()
	wp.Start(fn)
	wp.Wait()

	for res := range wp.CollectResults() {
		out[res.ID] = res.Result
	}
	return out
}
