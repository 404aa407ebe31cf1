// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package resolver runs WHOIS resolution for a batch of targets on a bounded worker pool.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/ipowners/pkg/model"
	"github.com/wingedpig/ipowners/pkg/sources/whois"
	"github.com/wingedpig/ipowners/pkg/util/workers"
	"github.com/wingedpig/ipowners/pkg/whoisparse"
)

// DefaultThreads is the worker count when none is given
const DefaultThreads = 4

// RowWriter accepts finished records. Implementations must be safe for concurrent use.
type RowWriter interface {
	Write(ctx context.Context, rec model.OwnershipRecord) error
}

// Resolver resolves targets to ownership records
type Resolver struct {
	querier  whois.Querier
	threads  int
	progress *log.Logger
	verbose  bool
	now      func() time.Time
}

// New creates a resolver. Progress lines go to progress; nil discards them.
func New(querier whois.Querier, threads int, progress *log.Logger) *Resolver {
	if threads <= 0 {
		threads = DefaultThreads
	}
	if progress == nil {
		progress = log.New(io.Discard, "", 0)
	}
	return &Resolver{
		querier:  querier,
		threads:  threads,
		progress: progress,
		now:      time.Now,
	}
}

// SetVerbose enables per-target logging of the selected block
func (r *Resolver) SetVerbose(v bool) {
	r.verbose = v
}

// outcome is what one resolution reports back for the summary
type outcome struct {
	status  model.QueryStatus
	noRange bool
	written bool
}

// Run resolves every target and hands one record per target to out.
// Targets start in input order with at most threads in flight. A failing
// target never stops the others. The returned error reports output failures only.
func (r *Resolver) Run(ctx context.Context, targets []model.Target, out RowWriter) (*model.Summary, error) {
	summary := &model.Summary{
		Total:     len(targets),
		ByStatus:  make(map[model.QueryStatus]int),
		StartedAt: r.now(),
	}

	outcomes := make(chan outcome, r.threads)
	pool := workers.NewPool(ctx, workers.Config{Workers: r.threads})

	var g errgroup.Group
	var runErr error

	// Dispatcher
	g.Go(func() error {
		defer close(outcomes)

		for _, t := range targets {
			target := t
			if err := pool.Submit(target.Index, func(ctx context.Context) error {
				o, err := r.resolve(ctx, target, len(targets), out)
				outcomes <- o
				return err
			}); err != nil {
				break
			}
		}

		var errs []error
		for _, res := range pool.Wait() {
			if res.Error != nil {
				errs = append(errs, fmt.Errorf("target %d: %w", res.Index+1, res.Error))
			}
		}
		runErr = errors.Join(errs...)
		return nil
	})

	// Collector
	g.Go(func() error {
		for o := range outcomes {
			if o.status != "" {
				summary.ByStatus[o.status]++
			}
			if o.noRange {
				summary.NoRange++
			}
			if o.written {
				summary.Written++
			}
		}
		return nil
	})

	g.Wait()
	summary.FinishedAt = r.now()

	return summary, runErr
}

// resolve runs query, interpretation and hand-off for one target
func (r *Resolver) resolve(ctx context.Context, target model.Target, total int, out RowWriter) (outcome, error) {
	r.progress.Printf("[%d/%d] %s START %s", target.Index+1, total, target.Value, r.timestamp())

	resp := r.querier.Query(ctx, target)
	if resp.Err != nil {
		log.Printf("WARN: %s: %v", target.Value, resp.Err)
	}

	result := whoisparse.Interpret(target, resp.Text)
	if r.verbose {
		r.logSelection(target, result)
	}

	o := outcome{
		status:  resp.Status,
		noRange: result.Record.NetRange == "",
	}

	err := out.Write(ctx, result.Record)
	o.written = err == nil

	r.progress.Printf("[%d/%d] %s DONE %s", target.Index+1, total, target.Value, r.timestamp())
	return o, err
}

func (r *Resolver) logSelection(target model.Target, result whoisparse.Result) {
	sel := result.Selection
	if sel.Block == nil {
		log.Printf("INFO: %s: %d blocks, no declaration, using %s", target.Value, len(result.Blocks), sel.Tier)
		return
	}

	rng := "unparsed"
	if sel.Block.Range != nil {
		rng = sel.Block.Range.String()
	}
	log.Printf("INFO: %s: %d blocks, %s block %d (%s)", target.Value, len(result.Blocks), sel.Tier, sel.Index+1, rng)
}

func (r *Resolver) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}
