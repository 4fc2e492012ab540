package build

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/asthra-lang/ampu/internal/cache"
	"github.com/asthra-lang/ampu/internal/trace"
)

// Scheduler drives the bounded-parallel compile phase (spec.md §4.8 step 6,
// §5), ported from distri's internal/batch/batch.go scheduler: the same
// work/done channel pair, the same errgroup-managed worker pool, and the
// same "walk dependents, enqueue when all predecessors are Done"
// propagation, generalised to the compiler-invocation contract (spec.md
// §4.8) and to a state machine of Pending/Ready/Running/Done/Failed per
// package instead of distri's package-name worklist.
type Scheduler struct {
	Jobs  int
	Cfg   Config
	Cache *cache.Cache
	Log   *log.Logger
}

type schedResult struct {
	name     string
	warnings []string
	err      error
}

// Run compiles every package in rebuild, respecting plan's dependency
// order, and returns a BuildResult. Packages not in rebuild are treated as
// cache hits and considered immediately Done (spec.md §4.8 step 5,
// "Incremental filter").
func (s *Scheduler) Run(ctx context.Context, plan *Plan, rebuild map[string]bool) (*BuildResult, error) {
	start := time.Now()
	g := simple.NewDirectedGraph()
	nodes := make(map[string]*planNode, len(plan.Order))
	var id int64
	for _, p := range plan.Order {
		n := &planNode{id: id, name: p.Name}
		id++
		nodes[p.Name] = n
		g.AddNode(n)
	}
	for _, p := range plan.Order {
		for dep := range p.Dependencies {
			if target, ok := nodes[dep]; ok {
				g.SetEdge(g.NewEdge(nodes[p.Name], target))
			}
		}
	}

	numNodes := len(plan.Order)
	work := make(chan *planNode, numNodes)
	done := make(chan schedResult)
	eg, ctx := errgroup.WithContext(ctx)

	jobs := s.Jobs
	if jobs < 1 {
		jobs = 1
	}

	var mu sync.Mutex
	completed := make(map[string]bool, numNodes)
	enqueued := make(map[string]bool, numNodes)
	failed := make(map[string]error)
	var compiledOrder []string
	var skipped []string
	warnings := make(map[string][]string)
	var firstFailure error

	canBuildLocked := func(name string) bool {
		for from := g.From(nodes[name].ID()); from.Next(); {
			if !completed[from.Node().(*planNode).name] {
				return false
			}
		}
		return true
	}

	// markFailedLocked propagates a failure to every transitive dependent
	// of name, so the scheduler still terminates (a dependent whose
	// dependency failed can never become Ready). Ported from distri's
	// batch.go markFailed.
	var markFailedLocked func(name string)
	markFailedLocked = func(name string) {
		for to := g.To(nodes[name].ID()); to.Next(); {
			depName := to.Node().(*planNode).name
			if completed[depName] {
				continue
			}
			if _, already := failed[depName]; already {
				continue
			}
			failed[depName] = fmt.Errorf("dependency %s failed", name)
			markFailedLocked(depName)
		}
	}

	// cancelRemainingLocked marks every rebuild-set node that has neither
	// completed, failed, nor been dispatched to a worker as cancelled, once
	// a failure has occurred elsewhere in the graph. Without this, a node
	// independent of the failed one (not a transitive dependent, and not
	// yet Ready because one of ITS OWN dependencies is still compiling)
	// would never be enqueued (enqueueing new dependents stops once
	// firstFailure is set) and never marked failed by markFailedLocked
	// (which only walks dependents of the failed node) — so
	// completed+failed would never reach numNodes and Run would hang.
	// Spec.md §4.8/§5 requires cancellation to still let the scheduler
	// return once in-flight work drains.
	cancelRemainingLocked := func() {
		for _, p := range plan.Order {
			name := p.Name
			if !rebuild[name] || completed[name] || enqueued[name] {
				continue
			}
			if _, already := failed[name]; already {
				continue
			}
			failed[name] = fmt.Errorf("cancelled: %w", firstFailure)
		}
	}

	// Phase 1: hits are immediately Done.
	for _, p := range plan.Order {
		if !rebuild[p.Name] {
			completed[p.Name] = true
			skipped = append(skipped, p.Name)
		}
	}
	// Phase 2: seed every rebuild-set node whose dependencies are already
	// satisfied (zero tracked dependencies, or all of them cache hits).
	var seed []*planNode
	for _, p := range plan.Order {
		if !rebuild[p.Name] {
			continue
		}
		if canBuildLocked(p.Name) {
			enqueued[p.Name] = true
			seed = append(seed, nodes[p.Name])
		}
	}

	for i := 0; i < jobs; i++ {
		workerSlot := i
		eg.Go(func() error {
			for n := range work {
				if err := ctx.Err(); err != nil {
					return err
				}
				p := plan.ByName[n.name]
				ev := trace.Event(n.name, workerSlot)
				w, err := Invoke(ctx, p, plan, s.Cfg)
				ev.Done()
				select {
				case done <- schedResult{name: n.name, warnings: w, err: err}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	for _, n := range seed {
		work <- n
	}

	settler := make(chan struct{})
	go func() {
		defer close(settler)
		defer close(work)
		for len(completed)+len(failed) < numNodes {
			select {
			case r := <-done:
				mu.Lock()
				var toEnqueue []*planNode
				if r.err != nil {
					failed[r.name] = r.err
					if firstFailure == nil {
						firstFailure = r.err
					}
					markFailedLocked(r.name)
					cancelRemainingLocked()
				} else {
					completed[r.name] = true
					compiledOrder = append(compiledOrder, r.name)
					if len(r.warnings) > 0 {
						warnings[r.name] = r.warnings
					}
					if s.Cache != nil {
						p := plan.ByName[r.name]
						depHash := TransitiveDepHash(r.name, plan)
						if err := s.Cache.Record(r.name, p.OutputPath, p.Checksum, depHash); err != nil && s.Log != nil {
							s.Log.Printf("cache record %s: %v", r.name, err)
						}
					}
				}
				if firstFailure == nil {
					for to := g.To(nodes[r.name].ID()); to.Next(); {
						depName := to.Node().(*planNode).name
						if completed[depName] || enqueued[depName] || !rebuild[depName] {
							continue
						}
						if canBuildLocked(depName) {
							enqueued[depName] = true
							toEnqueue = append(toEnqueue, nodes[depName])
						}
					}
				}
				settled := len(completed) + len(failed)
				mu.Unlock()
				for _, n := range toEnqueue {
					work <- n
				}
				if settled >= numNodes {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-settler
	if err := eg.Wait(); err != nil && firstFailure == nil {
		firstFailure = err
	}

	result := &BuildResult{
		Compiled: compiledOrder,
		Skipped:  skipped,
		Warnings: warnings,
		Duration: time.Since(start),
	}
	return result, firstFailure
}
