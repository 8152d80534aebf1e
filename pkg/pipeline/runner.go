// Package pipeline builds edge files for batches of unit files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-flow-graph/internal/log"
	"github.com/l3aro/go-flow-graph/pkg/cfg"
	"github.com/l3aro/go-flow-graph/pkg/dirty"
	"github.com/l3aro/go-flow-graph/pkg/gir"
	"github.com/l3aro/go-flow-graph/pkg/registry"
	"github.com/l3aro/go-flow-graph/pkg/store"
)

// ErrAborted is returned by Run when a failure stopped the batch.
var ErrAborted = errors.New("batch aborted")

// Options configures a Runner.
type Options struct {
	Layout store.Layout

	// Workers bounds the number of units processed at once.
	Workers int

	// AbortOnError stops the batch at the first unit with a failure.
	AbortOnError bool

	Analysis cfg.Options

	// Tracker, when set, skips units unchanged since their last build.
	Tracker *dirty.Tracker
}

func (o Options) fingerprint() string {
	return dirty.Fingerprint(o.Layout.GIRDir, o.Layout.SemanticDir, o.Layout.Ext,
		o.Analysis.MaxDepth, o.Analysis.DoWhileSelfLoop, o.Analysis.ForConditionSelfLoop)
}

// UnitReport describes the outcome for a single unit file.
type UnitReport struct {
	UnitPath string
	UnitID   int64
	CFGPath  string
	Methods  int
	Edges    int
	Failures []*cfg.MethodError
	// Skipped is set when the unit was unchanged and not rebuilt.
	Skipped bool
	// Err is set when the unit could not be loaded, analyzed or stored.
	Err      error
	Duration time.Duration
}

// Failed reports whether anything went wrong for the unit.
func (u *UnitReport) Failed() bool {
	return u.Err != nil || len(u.Failures) > 0
}

// Report summarizes a batch.
type Report struct {
	RunID    string
	Units    []UnitReport
	Started  time.Time
	Finished time.Time
}

// Skipped returns the number of units left untouched.
func (r *Report) Skipped() int {
	n := 0
	for i := range r.Units {
		if r.Units[i].Skipped {
			n++
		}
	}
	return n
}

// Totals returns the number of methods, edges and failed units.
func (r *Report) Totals() (methods, edges, failed int) {
	for i := range r.Units {
		u := &r.Units[i]
		methods += u.Methods
		edges += u.Edges
		if u.Failed() {
			failed++
		}
	}
	return methods, edges, failed
}

// Runner analyzes unit files and writes their edge rows.
type Runner struct {
	opts        Options
	fingerprint string
	registry    registry.Registry
	metrics     *Metrics
	logger      log.Logger
}

// NewRunner creates a Runner. reg may be nil to skip registration.
func NewRunner(opts Options, reg registry.Registry, logger log.Logger) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Runner{
		opts:        opts,
		fingerprint: opts.fingerprint(),
		registry:    reg,
		metrics:     NewMetrics(),
		logger:      logger,
	}
}

// Metrics returns the runner's metrics.
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}

// Run processes every unit path. Reports keep the order of paths. With
// AbortOnError the first failure cancels units not yet started and Run
// returns an error wrapping ErrAborted; units never processed are left
// with a context error.
func (r *Runner) Run(ctx context.Context, paths []string) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Units:   make([]UnitReport, len(paths)),
		Started: time.Now(),
	}
	logger := r.logger.With("run_id", report.RunID)
	logger.Info("build started", "units", len(paths), "workers", r.opts.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i, path := range paths {
		report.Units[i].UnitPath = path
		g.Go(func() error {
			u := &report.Units[i]
			if err := gctx.Err(); err != nil {
				u.Err = err
				return nil
			}

			r.processUnit(gctx, report.RunID, u)
			r.metrics.observe(u)
			r.logUnit(logger, u)

			if r.opts.AbortOnError && u.Failed() {
				return fmt.Errorf("%w: %s", ErrAborted, path)
			}
			return nil
		})
	}

	err := g.Wait()
	report.Finished = time.Now()

	methods, edges, failed := report.Totals()
	logger.Info("build finished",
		"units", len(paths), "methods", methods, "edges", edges, "failed", failed,
		"skipped", report.Skipped(), "elapsed", report.Finished.Sub(report.Started).Round(time.Millisecond))

	if err == nil {
		err = ctx.Err()
	}
	return report, err
}

// ProcessUnit runs a single unit outside of a batch.
func (r *Runner) ProcessUnit(ctx context.Context, path string) UnitReport {
	u := UnitReport{UnitPath: path}
	r.processUnit(ctx, uuid.NewString(), &u)
	r.metrics.observe(&u)
	return u
}

func (r *Runner) processUnit(ctx context.Context, runID string, u *UnitReport) {
	start := time.Now()
	defer func() { u.Duration = time.Since(start) }()

	var hash string
	if r.opts.Tracker != nil {
		changed, h, err := r.opts.Tracker.Check(ctx, u.UnitPath, r.fingerprint)
		if err != nil {
			u.Err = err
			return
		}
		if !changed {
			u.Skipped = true
			u.CFGPath = r.opts.Layout.PathFor(u.UnitPath)
			return
		}
		hash = h
	}

	unit, err := gir.LoadUnit(u.UnitPath)
	if err != nil {
		u.Err = err
		return
	}
	u.UnitID = unit.ID

	res, err := cfg.AnalyzeUnit(unit, r.opts.Analysis)
	if err != nil {
		u.Err = fmt.Errorf("analyzing %s: %w", u.UnitPath, err)
		return
	}
	u.Failures = res.Failures

	rows := res.Rows()
	u.Methods = len(res.Methods)
	u.Edges = len(rows)
	u.CFGPath = r.opts.Layout.PathFor(u.UnitPath)

	if err := store.Save(u.CFGPath, rows); err != nil {
		u.Err = err
		return
	}
	defer func() {
		if r.opts.Tracker == nil {
			return
		}
		// Partial units are rebuilt next time so their failures resurface.
		if u.Failed() {
			r.opts.Tracker.Forget(u.UnitPath)
		} else {
			r.opts.Tracker.Record(u.UnitPath, hash, r.fingerprint, u.CFGPath)
		}
	}()

	if r.registry == nil {
		return
	}
	err = r.registry.Put(ctx, registry.Entry{
		UnitPath:  u.UnitPath,
		UnitID:    u.UnitID,
		CFGPath:   u.CFGPath,
		RunID:     runID,
		Methods:   u.Methods,
		Edges:     u.Edges,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		u.Err = fmt.Errorf("registering %s: %w", u.UnitPath, err)
	}
}

func (r *Runner) logUnit(logger log.Logger, u *UnitReport) {
	if u.Skipped {
		logger.Debug("unit unchanged", "unit", u.UnitPath)
		return
	}
	if u.Err != nil {
		logger.Error("unit failed", "unit", u.UnitPath, "error", u.Err)
		return
	}
	for _, f := range u.Failures {
		logger.Warn("method skipped", "unit", u.UnitPath, "method", f.Name, "method_id", f.MethodID, "error", f.Err)
	}
	logger.Debug("unit built", "unit", u.UnitPath, "cfg", u.CFGPath, "methods", u.Methods, "edges", u.Edges)
}
