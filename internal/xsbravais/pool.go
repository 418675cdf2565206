// Public domain.

package xsbravais

import (
	"log/slog"

	"github.com/xtalsym/xtalsym/internal/xsbin"
)

type result struct {
	s   *Setting
	err error
}

// task is a setting to refine with the channel its result goes back on.
type task struct {
	s   *Setting
	rch chan result
}

// refineAll refines settings on up to params.NProc workers.  Results are
// collected in submission order so the returned slice is in the order of
// settings.  After an error no further settings are started and the first
// error in submission order is returned.
func refineAll(settings []*Setting, table *xsbin.Table, expts xsbin.ExperimentList, params Params, engine Engine, log *slog.Logger) ([]*Setting, error) {
	maxWorkers := params.NProc
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	taskCh := make(chan *task)
	// prCh holds result channels in submission order.  It is buffered so
	// that the dispatcher can run ahead of a slow worker.
	prCh := make(chan chan result, maxWorkers*2)
	quit := make(chan struct{})

	// dispatcher.  for each setting create a return channel, wait for a
	// worker to take the task, then queue the channel for collection.
	go func() {
		defer close(prCh)
		defer close(taskCh)
		for _, s := range settings {
			rch := make(chan result, 1)
			select {
			case taskCh <- &task{s, rch}:
			case <-quit:
				return
			}
			select {
			case prCh <- rch:
			case <-quit:
				return
			}
		}
	}()

	// workers are started only as tasks are waiting, up to maxWorkers.
	go func() {
		for n := 0; n < maxWorkers; n++ {
			t, ok := <-taskCh
			if !ok {
				return
			}
			go worker(t, taskCh, table, expts, params, engine, log)
		}
	}()

	refined := make([]*Setting, 0, len(settings))
	for rch := range prCh {
		r := <-rch
		if r.err != nil {
			close(quit)
			return nil, r.err
		}
		refined = append(refined, r.s)
	}
	return refined, nil
}

// worker refines the setting of t, then takes further tasks until taskCh
// is closed.  Each refinement works on its own copies of table and expts.
func worker(t *task, taskCh chan *task, table *xsbin.Table, expts xsbin.ExperimentList, params Params, engine Engine, log *slog.Logger) {
	for ; t != nil; t = <-taskCh {
		s, err := RefineSubgroup(t.s, table, expts, params, engine, log)
		t.rch <- result{s, err}
	}
}
