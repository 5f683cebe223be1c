// Package pipeline runs verification stages for one vendor and streams
// their flags into the flag store as each stage finishes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"quickfi/internal/screening/checks"
	"quickfi/internal/screening/metrics"
	"quickfi/internal/screening/models"
	"quickfi/internal/screening/sources"
	"quickfi/internal/screening/tracer"
	"quickfi/internal/sentinel"
	vmodels "quickfi/internal/vendors/models"
	id "quickfi/pkg/domain"
	dErrors "quickfi/pkg/domain-errors"
)

const (
	DefaultMaxConcurrency = 3
	DefaultStageTimeout   = 30 * time.Second
	DefaultRunTimeout     = 2 * time.Minute

	reasonStageTimeout  = "stage timed out"
	reasonRunBudget     = "run budget exhausted"
	reasonNotConfigured = "stage not configured"
)

// VendorReader loads the records a run inspects.
type VendorReader interface {
	Vendor(ctx context.Context, vendorID id.VendorID) (*vmodels.Vendor, error)
	Account(ctx context.Context, accountID id.AccountID) (*vmodels.Account, error)
}

// FlagStore is the append-only flag log plus the scan timestamp.
type FlagStore interface {
	AppendFlag(ctx context.Context, vendorID id.VendorID, flag vmodels.FlagRecord) (bool, error)
	Flags(ctx context.Context, vendorID id.VendorID) (vmodels.FlagSummary, error)
	MarkScanned(ctx context.Context, vendorID id.VendorID, at time.Time) (bool, error)
}

type Config struct {
	MaxConcurrency int
	StageTimeout   time.Duration
	RunTimeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = DefaultStageTimeout
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = DefaultRunTimeout
	}
	return c
}

// Runner executes checks for a vendor. It never retries a stage and never
// lets one stage's failure cancel another.
type Runner struct {
	vendors VendorReader
	flags   FlagStore
	checks  map[models.StageID]checks.Check
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	now     func() time.Time
}

type Option func(*Runner)

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New registers the given checks by stage; a later check replaces an earlier one.
func New(vendors VendorReader, flags FlagStore, cfg Config, list []checks.Check, opts ...Option) *Runner {
	r := &Runner{
		vendors: vendors,
		flags:   flags,
		checks:  make(map[models.StageID]checks.Check, len(list)),
		cfg:     cfg.withDefaults(),
		logger:  slog.Default(),
		tracer:  tracer.NewNoop(),
		now:     time.Now,
	}
	for _, c := range list {
		r.checks[c.Stage()] = c
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stages lists the configured stages in canonical order.
func (r *Runner) Stages() []models.StageID {
	var out []models.StageID
	for _, s := range models.AllStages {
		if _, ok := r.checks[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// run is the shared state of one Run call.
type run struct {
	report *models.RunReport
	span   tracer.Span
	mu     sync.Mutex

	lastScan time.Time

	// registryDone is closed once the registry stage has a result; nil when
	// registry is not part of the run.
	registryDone  chan struct{}
	registryMatch *models.RegistryMatch
}

func (rn *run) record(idx int, sr models.StageReport, appended int, finishedAt time.Time, errs ...string) {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	rn.report.Stages[idx] = sr
	rn.report.FlagsAppended += appended
	rn.report.Errors = append(rn.report.Errors, errs...)
	if (sr.Outcome == models.OutcomePass || sr.Outcome == models.OutcomeFlagged) && finishedAt.After(rn.lastScan) {
		rn.lastScan = finishedAt
	}
}

// Run screens a vendor with the requested stages, or every configured stage
// when stages is empty. A nil report is returned only with an error raised
// before any stage started.
func (r *Runner) Run(ctx context.Context, vendorID id.VendorID, accountID *id.AccountID, stages []models.StageID) (*models.RunReport, error) {
	stages, err := r.plan(stages)
	if err != nil {
		return nil, err
	}

	vendor, err := r.vendors.Vendor(ctx, vendorID)
	if err != nil {
		return nil, lookupError(err, "vendor")
	}
	in := checks.Input{Vendor: vendor}
	if slices.Contains(stages, models.StageIdentity) {
		if accountID == nil {
			return nil, dErrors.New(dErrors.CodeNotFound, "account is required for the identity stage")
		}
		account, err := r.vendors.Account(ctx, *accountID)
		if err != nil {
			return nil, lookupError(err, "account")
		}
		in.Account = account
	}

	started := r.now()
	rn := &run{report: &models.RunReport{
		RunID:     id.NewRunID(),
		VendorID:  vendorID,
		StartedAt: started,
		Stages:    make([]models.StageReport, len(stages)),
	}}
	if slices.Contains(stages, models.StageRegistry) {
		rn.registryDone = make(chan struct{})
	}

	ctx, span := r.tracer.Start(ctx, tracer.SpanRun,
		tracer.String(tracer.AttrVendorID, vendorID.String()),
		tracer.String(tracer.AttrRunID, rn.report.RunID.String()),
		tracer.Int(tracer.AttrStageCount, len(stages)),
	)
	rn.span = span
	runCtx, cancel := context.WithTimeout(ctx, r.cfg.RunTimeout)
	defer cancel()

	g := new(errgroup.Group)
	g.SetLimit(r.cfg.MaxConcurrency)
	for idx, stage := range stages {
		// Stages are launched in canonical order, so registry always holds
		// a slot before state_registry can start waiting on it.
		g.Go(func() error {
			r.runStage(ctx, runCtx, rn, idx, stage, in)
			return nil
		})
	}
	_ = g.Wait()

	report := rn.report
	if !rn.lastScan.IsZero() {
		if _, err := r.flags.MarkScanned(ctx, vendorID, rn.lastScan); err != nil {
			r.logger.WarnContext(ctx, "failed to mark vendor scanned", "vendor_id", vendorID.String(), "error", err)
		}
	}
	if summary, err := r.flags.Flags(ctx, vendorID); err == nil {
		report.TotalFlags = summary.Count
	} else {
		r.logger.WarnContext(ctx, "failed to read vendor flags", "vendor_id", vendorID.String(), "error", err)
	}
	report.CompletedAt = r.now()

	elapsed := report.CompletedAt.Sub(started)
	r.metrics.RecordRun(elapsed)
	span.SetAttributes(tracer.Int(tracer.AttrFlagCount, report.FlagsAppended))
	span.End(nil)
	r.logger.InfoContext(ctx, "vendor screening completed",
		"vendor_id", vendorID.String(),
		"run_id", report.RunID.String(),
		"stages", len(stages),
		"flags_appended", report.FlagsAppended,
		"total_flags", report.TotalFlags,
		"errors", len(report.Errors),
		"duration_ms", elapsed.Milliseconds(),
	)
	return report, nil
}

// plan validates and orders the requested stages.
func (r *Runner) plan(requested []models.StageID) ([]models.StageID, error) {
	if len(requested) == 0 {
		stages := r.Stages()
		if len(stages) == 0 {
			return nil, dErrors.New(dErrors.CodeNotConfigured, "no screening stages configured")
		}
		return stages, nil
	}
	for _, s := range requested {
		if !s.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown stage %q", s))
		}
		if _, ok := r.checks[s]; !ok {
			return nil, dErrors.New(dErrors.CodeNotConfigured, fmt.Sprintf("stage %q is not configured", s))
		}
	}
	var out []models.StageID
	for _, s := range models.AllStages {
		if slices.Contains(requested, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *Runner) runStage(ctx, runCtx context.Context, rn *run, idx int, stage models.StageID, in checks.Input) {
	if stage == models.StageRegistry {
		defer close(rn.registryDone)
	}
	if stage == models.StageStateRegistry && rn.registryDone != nil {
		select {
		case <-rn.registryDone:
			rn.mu.Lock()
			in.Registry = rn.registryMatch
			rn.mu.Unlock()
		case <-runCtx.Done():
		}
	}

	if runCtx.Err() != nil {
		r.skip(ctx, rn, idx, stage)
		return
	}

	start := r.now()
	stageCtx, span := r.tracer.Start(runCtx, tracer.SpanStage, tracer.String(tracer.AttrStage, stage.String()))
	res, surfaced := r.execute(stageCtx, runCtx, stage, in)
	if stage == models.StageRegistry && res.Registry != nil {
		rn.mu.Lock()
		rn.registryMatch = res.Registry
		rn.mu.Unlock()
	}

	var errs []string
	if surfaced != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", stage, surfaced))
	}
	appended := 0
	if res.Persistable() {
		// Appends use the caller's context so an expiring run budget never
		// drops flags a stage already produced.
		var err error
		appended, err = r.persist(ctx, in.Vendor.ID, stage, res.Flags)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: append flags: %v", stage, err))
		}
		if appended > 0 {
			span.AddEvent(tracer.EventFlagAppended, tracer.Int(tracer.AttrFlagCount, appended))
		}
	}

	finished := r.now()
	duration := finished.Sub(start)
	rn.record(idx, models.NewStageReport(res, duration), appended, finished, errs...)

	r.metrics.RecordStage(stage.String(), string(res.Outcome), duration)
	r.metrics.RecordFlagsAppended(stage.String(), appended)
	span.SetAttributes(
		tracer.String(tracer.AttrOutcome, string(res.Outcome)),
		tracer.Int(tracer.AttrFlagCount, len(res.Flags)),
	)
	span.End(res.Err)

	attrs := []any{
		"vendor_id", in.Vendor.ID.String(),
		"stage", stage.String(),
		"outcome", string(res.Outcome),
		"flags", len(res.Flags),
		"duration_ms", duration.Milliseconds(),
	}
	if res.Err != nil {
		attrs = append(attrs, "error", res.Err.Error(), "retryable", sources.IsRetryable(res.Err))
	}
	if res.Outcome == models.OutcomeError {
		r.logger.WarnContext(ctx, "screening stage failed", append(attrs, "reason", res.Reason)...)
	} else {
		r.logger.InfoContext(ctx, "screening stage completed", attrs...)
	}
}

// execute runs the check under the stage timeout. A check that overruns is
// abandoned and its late result discarded; checks implementing
// checks.OverrunPolicy decide the result, everything else is ERROR. The
// second return value is an error to surface in the run report.
func (r *Runner) execute(stageCtx, runCtx context.Context, stage models.StageID, in checks.Input) (models.CheckResult, error) {
	check, ok := r.checks[stage]
	if !ok {
		return models.Failed(stage, reasonNotConfigured, nil), nil
	}

	ctx, cancel := context.WithTimeout(stageCtx, r.cfg.StageTimeout)
	defer cancel()

	type outcome struct {
		res models.CheckResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := check.Run(ctx, in)
		done <- outcome{res: res, err: err}
	}()

	timedOut := func() (models.CheckResult, error) {
		reason := reasonStageTimeout
		if runCtx.Err() != nil {
			reason = reasonRunBudget
		}
		policy, ok := check.(checks.OverrunPolicy)
		if !ok {
			return models.Failed(stage, reason, ctx.Err()), nil
		}
		res, err := policy.TimeoutResult(context.WithoutCancel(stageCtx), in, fmt.Errorf("%s: %w", reason, ctx.Err()))
		res.Stage = stage
		return res, err
	}

	select {
	case out := <-done:
		// A check that noticed the deadline and returned anyway still timed out.
		if ctx.Err() != nil {
			return timedOut()
		}
		if out.err != nil {
			return models.Failed(stage, out.err.Error(), out.err), out.err
		}
		out.res.Stage = stage
		return out.res, nil
	case <-ctx.Done():
		return timedOut()
	}
}

// persist appends flags in order. It stops at the first failure or when the
// vendor has disappeared, returning how many were stored.
func (r *Runner) persist(ctx context.Context, vendorID id.VendorID, stage models.StageID, flags []string) (int, error) {
	n := 0
	for _, text := range flags {
		ok, err := r.flags.AppendFlag(ctx, vendorID, vmodels.FlagRecord{Text: text, Stage: stage.String()})
		if err != nil {
			return n, err
		}
		if !ok {
			return n, fmt.Errorf("vendor %s no longer exists", vendorID)
		}
		n++
	}
	return n, nil
}

func (r *Runner) skip(ctx context.Context, rn *run, idx int, stage models.StageID) {
	rn.record(idx, models.StageReport{Stage: stage, Outcome: models.OutcomeSkipped, Reason: reasonRunBudget}, 0, time.Time{})
	rn.span.AddEvent(tracer.EventStageSkipped, tracer.String(tracer.AttrStage, stage.String()))
	r.metrics.RecordStage(stage.String(), string(models.OutcomeSkipped), 0)
	r.logger.InfoContext(ctx, "screening stage skipped", "stage", stage.String(), "reason", reasonRunBudget)
}

func lookupError(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+what)
}
