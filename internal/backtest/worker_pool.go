package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// dayJob is one trading day queued for evaluation.
type dayJob struct {
	index int
	date  time.Time
}

// dayOutcome carries a finished day back with its submission index so the
// collector can restore date order deterministically.
type dayOutcome struct {
	index  int
	result DayResult
}

// dayPool evaluates trading days in parallel. Day evaluation is
// read-after-write independent (normalized balances), so ordering only
// matters at collection time.
type dayPool struct {
	workerCount int
	jobQueue    chan dayJob
	resultQueue chan dayOutcome
	wg          sync.WaitGroup
	evaluate    func(time.Time) DayResult
}

func newDayPool(workerCount int, evaluate func(time.Time) DayResult) *dayPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &dayPool{
		workerCount: workerCount,
		jobQueue:    make(chan dayJob, workerCount*2),
		resultQueue: make(chan dayOutcome, workerCount*2),
		evaluate:    evaluate,
	}
}

func (p *dayPool) start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *dayPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			outcome := dayOutcome{index: job.index, result: p.evaluate(job.date)}
			select {
			case p.resultQueue <- outcome:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// evaluateDaysParallel fans the days out over the pool and collects results
// back into submission order. Cancellation drains cleanly.
func (e *Engine) evaluateDaysParallel(ctx context.Context, days []time.Time) ([]DayResult, error) {
	pool := newDayPool(e.cfg.Workers, e.evaluateDay)
	pool.start(ctx)

	go func() {
		defer close(pool.jobQueue)
		for i, day := range days {
			select {
			case pool.jobQueue <- dayJob{index: i, date: day}:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := make([]DayResult, len(days))
	for collected := 0; collected < len(days); collected++ {
		select {
		case outcome := <-pool.resultQueue:
			results[outcome.index] = outcome.result
		case <-ctx.Done():
			pool.wg.Wait()
			return nil, ctx.Err()
		}
	}
	pool.wg.Wait()
	return results, nil
}
