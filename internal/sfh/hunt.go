package sfh

import (
	"context"
	"fmt"
	"sync"
)

// Hunter enumerates one source kind. Implementations walk their target
// and push every discovered entry onto the queue, blocking when it is
// full. Protocol-level permission errors on single files or
// directories are recoverable (log and continue with siblings);
// authentication or connection failures abort the walk with an error.
type Hunter interface {
	// Target identifies the service this hunter scans.
	Target() Target

	// Enumerate walks the source. It returns after the last entry has
	// been enqueued.
	Enumerate(ctx context.Context, q *WorkQueue) error
}

// HuntStats summarizes one service scan.
type HuntStats struct {
	Skipped   bool // Service was already complete, nothing enumerated
	Processed int
	Failed    int
}

// HuntService orchestrates one service scan: it registers the target
// and the configured rules, consults the service completion flag,
// runs the enumerator against a pool of analyzers, waits for the
// queue to drain and finally marks the service complete.
type HuntService struct {
	db       Database
	rules    *RuleSet
	expander *ArchiveExpander
	logger   Logger
	workers  int
	queueCap int
}

// NewHuntService creates a hunt service. workers below one falls back
// to a single analyzer.
func NewHuntService(db Database, rules *RuleSet, expander *ArchiveExpander, logger Logger, workers, queueCap int) *HuntService {
	if workers < 1 {
		workers = 1
	}
	return &HuntService{
		db:       db,
		rules:    rules,
		expander: expander,
		logger:   logger,
		workers:  workers,
		queueCap: queueCap,
	}
}

// Run scans one service. When the service was already analyzed and
// reanalyze is false, the scan is skipped entirely: no queue traffic,
// zero additional writes. The completion flag is only set after the
// enumerator finished its walk and every enqueued entry has been
// acknowledged.
func (s *HuntService) Run(ctx context.Context, hunter Hunter, reanalyze bool) (*HuntStats, error) {
	target := hunter.Target()

	service, err := s.db.RegisterService(target.Workspace, target.Address, target.Port, target.Kind)
	if err != nil {
		return nil, fmt.Errorf("registering service %s: %w", target, err)
	}

	if err := s.db.RegisterRules(s.rules.All()); err != nil {
		return nil, fmt.Errorf("registering match rules: %w", err)
	}

	if service.Complete && !reanalyze {
		s.logger.Info("skipping service as it was already analyzed", "service", target.String())
		return &HuntStats{Skipped: true}, nil
	}

	queue := NewWorkQueue(s.queueCap)
	analyzers := make([]*Analyzer, s.workers)

	var wg sync.WaitGroup
	for i := range analyzers {
		analyzers[i] = NewAnalyzer(i+1, s.db, s.rules, s.expander, s.logger)
		wg.Add(1)
		go func(a *Analyzer) {
			defer wg.Done()
			a.Run(queue)
		}(analyzers[i])
	}

	enumErr := hunter.Enumerate(ctx, queue)

	// Wait until every put has been acknowledged, then release the
	// workers. Entries already enqueued are always drained, even when
	// the walk failed partway.
	queue.Join()
	queue.Close()
	wg.Wait()

	stats := &HuntStats{}
	for _, a := range analyzers {
		processed, failed := a.Stats()
		stats.Processed += processed
		stats.Failed += failed
		s.logger.Info("analyzer finished", "worker", a.id, "processed", processed, "failed", failed)
	}

	if enumErr != nil {
		return stats, fmt.Errorf("enumerating %s: %w", target, enumErr)
	}

	if err := s.db.MarkServiceComplete(service.ID); err != nil {
		return stats, fmt.Errorf("marking service complete: %w", err)
	}
	s.logger.Info("service scan complete", "service", target.String(),
		"processed", stats.Processed, "failed", stats.Failed)
	return stats, nil
}
