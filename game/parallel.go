package game

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/swarm/systems"
)

// Swarms smaller than this update on the calling goroutine.
const parallelThreshold = 64

// span is a contiguous particle range handed to one worker.
type span struct {
	lo, hi int
	env    *systems.Env
	prev   []systems.Particle // pre-step copy
}

// workerPool runs synchronous steps on persistent goroutines. Particles
// read only prev and write only themselves, so spans may finish in any
// order and the result matches a single pass bit for bit.
type workerPool struct {
	size    int
	scratch [][]int // grid query buffer per worker

	jobs    chan span
	results chan int // neighbor count per span
	quit    chan struct{}
	wg      sync.WaitGroup
	live    bool
}

func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scratch := make([][]int, workers)
	for i := range scratch {
		scratch[i] = make([]int, 0, 64)
	}
	return &workerPool{size: workers, scratch: scratch}
}

func (wp *workerPool) start(s *Simulation) {
	if wp.live {
		return
	}
	wp.jobs = make(chan span, wp.size)
	wp.results = make(chan int, wp.size)
	wp.quit = make(chan struct{})
	wp.live = true

	wp.wg.Add(wp.size)
	for id := range wp.size {
		go wp.run(s, id)
	}
}

// stop ends every worker and waits for them. start may be called again.
func (wp *workerPool) stop() {
	if !wp.live {
		return
	}
	close(wp.quit)
	wp.wg.Wait()
	wp.live = false
}

func (wp *workerPool) run(s *Simulation, id int) {
	defer wp.wg.Done()
	for {
		select {
		case <-wp.quit:
			return
		case job := <-wp.jobs:
			wp.results <- s.updateSpan(job, &wp.scratch[id])
		}
	}
}

// dispatch splits [0, n) into at most size spans and sums their results.
func (wp *workerPool) dispatch(n int, env *systems.Env, prev []systems.Particle) int {
	per := (n + wp.size - 1) / wp.size
	sent := 0
	for lo := 0; lo < n; lo += per {
		wp.jobs <- span{lo: lo, hi: min(lo+per, n), env: env, prev: prev}
		sent++
	}

	total := 0
	for range sent {
		total += <-wp.results
	}
	return total
}

// updateSynchronousParallel advances every particle against prev and
// returns the total neighbor count.
func (s *Simulation) updateSynchronousParallel(env *systems.Env, prev []systems.Particle) int {
	n := len(s.particles)
	if n < parallelThreshold || s.parallel.size < 2 {
		return s.updateSpan(span{lo: 0, hi: n, env: env, prev: prev}, &s.candidates)
	}
	s.parallel.start(s)
	return s.parallel.dispatch(n, env, prev)
}

// updateSpan updates particles [lo, hi). With the grid enabled it must
// already hold the positions in prev.
func (s *Simulation) updateSpan(job span, scratch *[]int) int {
	radius := s.params.InteractionRadius
	total := 0
	for i := job.lo; i < job.hi; i++ {
		var near []int
		if s.useGrid {
			*scratch = s.grid.QueryRadiusInto((*scratch)[:0], job.prev[i].Pos, radius)
			near = *scratch
		}
		total += s.particles[i].Update(job.env, job.prev, i, near)
	}
	return total
}

// Close stops the worker pool, if one was started. The simulation remains
// usable; a later synchronous step restarts the pool.
func (s *Simulation) Close() {
	if s.parallel != nil {
		s.parallel.stop()
	}
}
