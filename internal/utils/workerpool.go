// Package utils holds small concurrency helpers shared by the ingress
// and coordinator components: a fixed-size worker pool and a retry
// backoff schedule.
//
// WorkerPool is adapted from the teacher's internal/worker.go draft — an
// earlier, unwired sketch of the pool internal/net/server.go imports as
// "fenrir/internal/utils" but never shipped in the reference pack. It is
// repurposed here (AddTask added, tasks channel unexported) to actually
// back the Ingress Dispatcher's worker pool (spec §4.5).
package utils

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultTaskChanSize = 100

// WorkerFunction is the unit of work a pool worker repeatedly invokes.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool runs a fixed number of goroutines pulling tasks off a shared
// channel, supervised by a tomb.Tomb so the whole pool shuts down
// together when any member dies or the parent context is cancelled.
type WorkerPool struct {
	n     int
	tasks chan any
	work  WorkerFunction
}

// NewWorkerPool creates a pool of the given size with a bounded task
// queue.
func NewWorkerPool(size int) WorkerPool {
	return WorkerPool{
		tasks: make(chan any, defaultTaskChanSize),
		n:     size,
	}
}

// AddTask enqueues a task for the next free worker.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Setup launches the pool's workers under the given tomb and blocks
// until the tomb is dying. A worker logs a task's error and keeps going;
// workers return only once the tomb is dying, and none is restarted.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	pool.work = work
	log.Info().Int("workers", pool.n).Msg("worker pool starting")
	for i := 0; i < pool.n; i++ {
		t.Go(func() error {
			return pool.runWorker(t)
		})
	}
	<-t.Dying()
}

func (pool *WorkerPool) runWorker(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-pool.tasks:
			if err := pool.work(t, task); err != nil {
				log.Error().Err(err).Msg("worker pool task failed")
			}
		}
	}
}
