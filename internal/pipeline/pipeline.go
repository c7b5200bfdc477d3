// Package pipeline orchestrates file processing: it owns a bounded worker
// pool, submits one task per candidate path, collects results as they
// complete and folds them into the output data model.
//
// # Concurrency Model
//
//  1. WORKER GOROUTINES: one short-lived goroutine per candidate path,
//     concurrency limited by a semaphore acquired at dispatch time.
//     Each worker runs the file processor and sends its result to the
//     fan-in channel.
//  2. COLLECTOR GOROUTINE: the single consumer of the fan-in channel.
//     It alone mutates the DirectoryTree (or emits stream events), so
//     tree assembly is never contended across workers.
//  3. ORCHESTRATOR (caller goroutine): dispatches tasks, waits for
//     workers, closes the channel, waits for the collector.
//
// Results arrive in completion order, not submission order; the tree is
// insensitive to it. Cancellation is cooperative: the interrupt flag is
// checked between dispatches and between collected results, never inside
// a single file's read.
package pipeline

import (
	"fmt"
	"path"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scandog/scandog/internal/interrupt"
	"github.com/scandog/scandog/internal/logger"
	"github.com/scandog/scandog/internal/progress"
	"github.com/scandog/scandog/internal/record"
)

// FileProcessor turns one candidate path into a named record. A nil
// record marks a file skipped entirely; it is counted as excluded and
// contributes nothing to the output.
type FileProcessor interface {
	Process(path string) (name string, rec *record.FileRecord)
}

// State tracks the orchestrator's progress through a run.
type State int32

const (
	StateIdle State = iota
	StateDispatching
	StateCollecting
	StateFinalizing
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateCollecting:
		return "collecting"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Event is one item of the streaming output mode: either a processed
// record or the final summary sentinel. The summary event, followed by
// channel close, is the unambiguous end-of-stream marker.
type Event struct {
	Parent   string             `json:"parent,omitempty"`
	Filename string             `json:"filename,omitempty"`
	Record   *record.FileRecord `json:"record,omitempty"`
	Summary  *record.RunSummary `json:"summary,omitempty"`
}

// Counts carries the traversal counters into summary finalization.
type Counts struct {
	Included int
	Excluded int
}

// Orchestrator is designed for single use: create with New, call Run or
// Stream once.
type Orchestrator struct {
	proc         FileProcessor
	workers      int
	algorithm    string
	showProgress bool
	state        atomic.Int32
}

// New creates an Orchestrator. workers <= 0 derives the pool size from
// available parallelism. algorithm is recorded in the summary; pass ""
// when hashing is disabled.
func New(proc FileProcessor, workers int, algorithm string, showProgress bool) *Orchestrator {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	return &Orchestrator{
		proc:         proc,
		workers:      workers,
		algorithm:    algorithm,
		showProgress: showProgress,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// taskResult is one worker completion, routed to the collector.
type taskResult struct {
	parent string
	name   string
	rec    *record.FileRecord
}

// stats tracks processing progress with atomic counters so the progress
// bar can render consistent-enough snapshots without locks.
type stats struct {
	processed atomic.Int64
	excluded  atomic.Int64
	failed    atomic.Int64
	total     int64
	start     time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Processed %d/%d files (%d excluded, %d failed) in %.1fs",
		s.processed.Load(), s.total, s.excluded.Load(), s.failed.Load(),
		time.Since(s.start).Seconds())
}

// Run executes in materialized mode: it waits for full completion and
// returns the assembled DirectoryTree plus the run summary. On graceful
// interrupt the tree holds exactly the completed entries.
func (o *Orchestrator) Run(root string, paths []string, counts Counts, intr *interrupt.Flag) (record.DirectoryTree, *record.RunSummary) {
	tree := record.DirectoryTree{}
	summary := o.run(root, paths, counts, intr, func(r taskResult) {
		if r.rec == nil {
			return
		}
		tree.Insert(record.SplitRel(root, r.parent), r.name, r.rec)
	})
	return tree, summary
}

// Stream executes in streaming mode: a lazy, single-pass sequence of one
// event per processed path (no duplicates), terminated by a summary
// sentinel event and channel close.
func (o *Orchestrator) Stream(root string, paths []string, counts Counts, intr *interrupt.Flag) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		summary := o.run(root, paths, counts, intr, func(r taskResult) {
			if r.rec == nil {
				return
			}
			out <- Event{
				Parent:   path.Join(record.SplitRel(root, r.parent)...),
				Filename: r.name,
				Record:   r.rec,
			}
		})
		out <- Event{Summary: summary}
	}()
	return out
}

// run is the state machine shared by both output modes. emit is invoked
// once per completed task, always from the collector goroutine.
func (o *Orchestrator) run(root string, paths []string, counts Counts, intr *interrupt.Flag, emit func(taskResult)) *record.RunSummary {
	st := &stats{total: int64(len(paths)), start: time.Now()}
	bar := progress.New(o.showProgress, int64(len(paths)))
	bar.Describe(st)

	resultCh := make(chan taskResult, 1000) // buffer smooths worker/collector rates
	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup

	// Written only by the collector goroutine; read after collectorDone.
	var (
		failed       []record.FailedFile
		processed    int
		procExcluded int
		aborted      bool
	)

	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for r := range resultCh {
			if intr != nil && intr.Forced() {
				aborted = true
				// Abandon folding but keep draining so no worker
				// ever blocks on the fan-in channel.
				for range resultCh {
				}
				return
			}
			if r.rec == nil || r.rec.Type == record.TypeExcluded {
				procExcluded++
				st.excluded.Add(1)
			} else {
				processed++
				if r.rec.Type == record.TypeError {
					failed = append(failed, record.FailedFile{
						Path:  filepath.Join(r.parent, r.name),
						Error: r.rec.Error,
					})
					st.failed.Add(1)
				}
			}
			emit(r)
			st.processed.Add(1)
			bar.Add(1)
			bar.Describe(st)
		}
	}()

	o.state.Store(int32(StateDispatching))
	dispatched := 0
	for _, p := range paths {
		if intr != nil && intr.Stopped() {
			logger.Warnf("shutdown requested, stopping dispatch after %d of %d tasks", dispatched, len(paths))
			break
		}
		// Acquire before spawning so dispatch blocks at the pool bound
		// and the interrupt check above gates work not yet started.
		sem <- struct{}{}
		dispatched++
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			defer func() { <-sem }()
			resultCh <- o.runTask(p)
		}(p)
	}

	o.state.Store(int32(StateCollecting))
	wg.Wait()
	close(resultCh)
	<-collectorDone

	o.state.Store(int32(StateFinalizing))

	total := counts.Included + counts.Excluded
	excluded := counts.Excluded + procExcluded
	pct := 0.0
	if total > 0 {
		pct = float64(excluded) / float64(total) * 100
	}
	if failed == nil {
		failed = []record.FailedFile{}
	}
	summary := &record.RunSummary{
		Total:              total,
		Included:           processed,
		Excluded:           excluded,
		ExcludedPercentage: pct,
		Failed:             failed,
		Algorithm:          o.algorithm,
	}

	bar.Finish(st)

	if aborted || (intr != nil && intr.Forced()) {
		o.state.Store(int32(StateAborted))
	} else {
		o.state.Store(int32(StateDone))
	}
	return summary
}

// runTask runs the processor for one path, converting a worker panic
// into an error record instead of tearing down the pool.
func (o *Orchestrator) runTask(p string) (res taskResult) {
	res.parent = filepath.Dir(p)
	res.name = filepath.Base(p)
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("worker panic on %s: %v", p, r)
			res.rec = &record.FileRecord{
				Type:  record.TypeError,
				Error: fmt.Sprintf("unexpected failure: %v", r),
			}
		}
	}()

	name, rec := o.proc.Process(p)
	res.name = name
	res.rec = rec
	return res
}
