// Package workerpool runs independent jobs on a bounded set of goroutines.
package workerpool

import (
	"context"
	"runtime"
	"sync"
)

// maxWorkers is the default worker count.
var maxWorkers = runtime.NumCPU()

// WorkerPool distributes jobs across workers and collects their results.
// Results arrive in completion order.
type WorkerPool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// New creates a pool. If numWorkers is 0 or negative it defaults to the
// number of CPUs; if numJobs is positive and smaller, the pool shrinks to it.
func New[Job any, Result any](numWorkers, numJobs int) *WorkerPool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = maxWorkers
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}
	if numJobs < 0 {
		numJobs = 0
	}

	return &WorkerPool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numJobs),
		results:    make(chan Result, numJobs),
	}
}

// Workers returns the number of goroutines Start launches.
func (p *WorkerPool[Job, Result]) Workers() int {
	return p.numWorkers
}

// Start launches the workers. workerFn is called once per job.
func (p *WorkerPool[Job, Result]) Start(workerFn func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- workerFn(job)
			}
		}()
	}
}

// Submit queues a job.
func (p *WorkerPool[Job, Result]) Submit(job Job) {
	p.jobs <- job
}

// Close stops accepting jobs. The results channel is closed once every
// worker has finished.
func (p *WorkerPool[Job, Result]) Close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Results returns the channel of worker outputs.
func (p *WorkerPool[Job, Result]) Results() <-chan Result {
	return p.results
}

// indexed pairs a result with the position of its job.
type indexed[Result any] struct {
	i int
	r Result
}

// Map runs fn over jobs with at most numWorkers in flight and returns the
// results in job order. Jobs not yet started when ctx is cancelled are passed
// to fn anyway so it can report the cancellation in its own result type.
func Map[Job any, Result any](ctx context.Context, numWorkers int, jobs []Job, fn func(context.Context, Job) Result) []Result {
	out := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return out
	}

	pool := New[int, indexed[Result]](numWorkers, len(jobs))
	pool.Start(func(i int) indexed[Result] {
		return indexed[Result]{i: i, r: fn(ctx, jobs[i])}
	})
	for i := range jobs {
		pool.Submit(i)
	}
	pool.Close()

	for res := range pool.Results() {
		out[res.i] = res.r
	}
	return out
}
