// Package dispatch implements a single-producer/N-worker fan-out: a
// producer drains a Tree's file leaves and hands each one to the shortest
// (least-loaded) worker inbox, falling back to round-robin on ties, while
// tracking which paths remain unacknowledged.
//
// The shape follows the enumerate-then-dispatch pattern used by parallel
// tree crawlers elsewhere (Azure azcopy's TreeCrawler, media-viewer's
// ParallelWalker jobs/results channels), generalized here from one result
// sink to N independent output workers.
package dispatch

import (
	"context"
	"sync"

	"github.com/JBlaschke/parallel-tar/internal/logger"
)

// WorkItem is the unit handed from the producer to a worker.
type WorkItem struct {
	RelPath      string
	ExpectedSize int64
	ExpectedHash [32]byte
	HasHash      bool
	// IsDir marks a directory-only entry (an empty directory with no file
	// descendants) that carries no content to stream, only a header to
	// emit. Always routed to worker 0 regardless of load: there is no
	// content to balance, and a fixed shard keeps the routing decision
	// trivial to reason about.
	IsDir bool
}

// Worker consumes WorkItems for one shard. WriteEntry reports ok=true only
// once the entry's bytes are durably part of the shard.
type Worker interface {
	WriteEntry(item WorkItem) (ok bool, err error)
	Close() error
}

// Dispatcher fans WorkItems out across Workers shard workers.
type Dispatcher struct {
	// Workers is the number of output shards/worker goroutines.
	Workers int
	// Queue is the per-worker inbox channel capacity.
	Queue int
}

// Result is the outcome of one Run.
type Result struct {
	// Acknowledged lists every relative path a worker confirmed it wrote,
	// in no particular cross-shard order.
	Acknowledged []string
	// Missing lists every dispatched path that was never acknowledged:
	// vanished files, write failures, or truncation by cancellation.
	Missing []string
	// NotSubmitted lists items the producer never handed to a worker
	// because Run's context was cancelled before enumeration finished.
	NotSubmitted []string
	// WorkerErrors collects each worker's terminal error, if any, indexed
	// by worker id. A worker error aborts only that shard; the dispatcher
	// itself keeps running the others.
	WorkerErrors map[int]error
}

// NewWorkerFunc constructs the Worker for shard id. Returning an error
// aborts only that shard.
type NewWorkerFunc func(id int) (Worker, error)

// Run dispatches every item in items across d.Workers workers created by
// newWorker, and returns once every worker has drained its inbox and
// closed its shard (or the run was cancelled).
func (d *Dispatcher) Run(ctx context.Context, items []WorkItem, newWorker NewWorkerFunc) Result {
	workers := d.Workers
	if workers < 1 {
		workers = 1
	}
	queue := d.Queue
	if queue < 1 {
		queue = 1
	}

	inboxes := make([]chan WorkItem, workers)
	for i := range inboxes {
		inboxes[i] = make(chan WorkItem, queue)
	}
	// Buffered large enough that a worker's ack send never blocks on the
	// producer; the producer drains it opportunistically, not eagerly.
	acks := make(chan string, len(items)+workers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	workerErrors := make(map[int]error)

	for id := 0; id < workers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, id, inboxes[id], acks, newWorker, &mu, workerErrors)
		}(id)
	}

	outstanding := make(map[string]struct{}, len(items))
	var notSubmitted []string

	cursor := 0
	pending := make([]int, workers)

submit:
	for i, item := range items {
		drainAcks(acks, pending, outstanding, false)

		idx := 0
		if !item.IsDir {
			idx = leastLoaded(pending, &cursor)
		}
		select {
		case inboxes[idx] <- item:
			pending[idx]++
			outstanding[item.RelPath] = struct{}{}
		case <-ctx.Done():
			logger.Warn("dispatch: cancelled before all items submitted", "submitted", i, "total", len(items))
			for _, remaining := range items[i:] {
				notSubmitted = append(notSubmitted, remaining.RelPath)
			}
			break submit
		}
	}

	for _, ch := range inboxes {
		close(ch)
	}
	wg.Wait()
	close(acks)

	drainAcks(acks, pending, outstanding, true)

	missing := make([]string, 0, len(outstanding))
	for path := range outstanding {
		missing = append(missing, path)
	}

	acknowledged := make([]string, 0, len(items)-len(outstanding)-len(notSubmitted))
	for _, item := range items[:len(items)-len(notSubmitted)] {
		if _, still := outstanding[item.RelPath]; !still {
			acknowledged = append(acknowledged, item.RelPath)
		}
	}

	return Result{
		Acknowledged: acknowledged,
		Missing:      missing,
		NotSubmitted: notSubmitted,
		WorkerErrors: workerErrors,
	}
}

func runWorker(ctx context.Context, id int, inbox <-chan WorkItem, acks chan<- string, newWorker NewWorkerFunc, mu *sync.Mutex, errs map[int]error) {
	shard, err := newWorker(id)
	if err != nil {
		mu.Lock()
		errs[id] = err
		mu.Unlock()
		// Drain (without processing) so the producer's closes don't block;
		// this shard contributes nothing to Acknowledged.
		for range inbox {
		}
		return
	}

	for item := range inbox {
		// Once cancelled, drain the rest of the inbox without writing it;
		// those items stay unacknowledged and are reported as Missing.
		if ctx.Err() != nil {
			continue
		}
		ok, werr := shard.WriteEntry(item)
		if werr != nil {
			logger.Warn("dispatch: worker entry error", "worker", id, "path", item.RelPath, "error", werr)
		}
		if ok {
			acks <- item.RelPath
		}
	}

	if err := shard.Close(); err != nil {
		mu.Lock()
		errs[id] = err
		mu.Unlock()
	}
}

// drainAcks consumes ready acks, removing each path from outstanding and
// decrementing a pending counter. Dispatch does not know which worker a
// given ack came from, so pending counts are decremented using a
// best-effort heuristic: any ack reduces the most-loaded worker's pending
// count by one. This keeps the shortest-queue heuristic self-correcting
// without requiring acks to carry a worker id.
//
// With untilClosed == false it drains only what is immediately ready
// (non-blocking), used between submissions to keep pending counts fresh.
// With untilClosed == true it blocks until acks is closed and drained,
// used once at shutdown after every worker has stopped sending.
func drainAcks(acks <-chan string, pending []int, outstanding map[string]struct{}, untilClosed bool) {
	apply := func(path string) {
		delete(outstanding, path)
		if i := mostLoaded(pending); i >= 0 {
			pending[i]--
		}
	}

	if untilClosed {
		for path := range acks {
			apply(path)
		}
		return
	}

	for {
		select {
		case path, ok := <-acks:
			if !ok {
				return
			}
			apply(path)
		default:
			return
		}
	}
}

func leastLoaded(pending []int, cursor *int) int {
	best := 0
	bestLoad := pending[0]
	for i := 1; i < len(pending); i++ {
		if pending[i] < bestLoad {
			best = i
			bestLoad = pending[i]
		}
	}
	// Round-robin tiebreak: if the cursor position is tied for least-loaded,
	// prefer it and advance, spreading equal-load assignments evenly.
	if pending[*cursor] == bestLoad {
		best = *cursor
	}
	*cursor = (*cursor + 1) % len(pending)
	return best
}

func mostLoaded(pending []int) int {
	best := -1
	bestLoad := 0
	for i, p := range pending {
		if p > bestLoad {
			best = i
			bestLoad = p
		}
	}
	return best
}
