package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/straye-as/renovation-api/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Policy decides what a failing item does to the rest of a batch
type Policy string

const (
	// PolicyBestEffort runs every item; failures never undo successes
	PolicyBestEffort Policy = "best-effort"
	// PolicyAtomic runs all items in one transaction; the first failure undoes all
	PolicyAtomic Policy = "atomic"
)

const defaultConcurrency = 4

// Action is one entry of a bulk action catalog
type Action[K comparable] struct {
	ID                   string
	Label                string
	RequiresConfirmation bool
	ConfirmationMessage  string
	Apply                func(ctx context.Context, id K) error
}

// Recorder receives the outcome of every executed batch
type Recorder interface {
	ObserveBatch(entity, action string, policy Policy, succeeded, failed int, elapsed time.Duration)
}

// Config configures an Orchestrator
type Config struct {
	// Entity names the records acted on, used in logs and metrics
	Entity      string
	Policy      Policy
	Concurrency int
	// RunInTx runs fn in a single transaction. Required for PolicyAtomic.
	RunInTx  func(ctx context.Context, fn func(ctx context.Context) error) error
	Logger   *zap.Logger
	Recorder Recorder
}

// Result is the outcome of an action applied to one id
type Result[K comparable] struct {
	ID  K
	Err error
}

// OK reports whether the item succeeded
func (r Result[K]) OK() bool {
	return r.Err == nil
}

// Report describes an executed batch. Results follow selection order.
type Report[K comparable] struct {
	ActionID  string
	Policy    Policy
	Results   []Result[K]
	Succeeded []K
	Failed    []K
}

// Pending describes an action staged for confirmation
type Pending struct {
	ActionID string
	Label    string
	Message  string
	Count    int
}

// Orchestrator runs catalog actions against a Selection
type Orchestrator[K comparable] struct {
	cfg       Config
	catalog   []Action[K]
	byID      map[string]Action[K]
	selection *Selection[K]

	mu      sync.Mutex
	pending *Pending
}

// NewOrchestrator creates an Orchestrator over selection with the given catalog
func NewOrchestrator[K comparable](cfg Config, selection *Selection[K], actions ...Action[K]) *Orchestrator[K] {
	if cfg.Policy == "" {
		cfg.Policy = PolicyBestEffort
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	byID := make(map[string]Action[K], len(actions))
	for _, a := range actions {
		byID[a.ID] = a
	}
	return &Orchestrator[K]{
		cfg:       cfg,
		catalog:   actions,
		byID:      byID,
		selection: selection,
	}
}

// Catalog returns the available actions in registration order
func (o *Orchestrator[K]) Catalog() []Action[K] {
	out := make([]Action[K], len(o.catalog))
	copy(out, o.catalog)
	return out
}

// Selection returns the selection the orchestrator acts on
func (o *Orchestrator[K]) Selection() *Selection[K] {
	return o.selection
}

// Pending returns the staged action, or nil
func (o *Orchestrator[K]) Pending() *Pending {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending == nil {
		return nil
	}
	p := *o.pending
	return &p
}

// Run executes actionID on the selected ids. Actions requiring confirmation
// are staged instead and a *ConfirmationRequiredError is returned.
func (o *Orchestrator[K]) Run(ctx context.Context, actionID string) (*Report[K], error) {
	action, ok := o.byID[actionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
	}
	ids := o.selection.SelectedIDs()
	if len(ids) == 0 {
		return nil, ErrNothingSelected
	}

	if action.RequiresConfirmation {
		p := &Pending{
			ActionID: action.ID,
			Label:    action.Label,
			Message:  action.ConfirmationMessage,
			Count:    len(ids),
		}
		o.mu.Lock()
		o.pending = p
		o.mu.Unlock()

		return nil, &ConfirmationRequiredError{
			ActionID: p.ActionID,
			Label:    p.Label,
			Message:  p.Message,
			Count:    p.Count,
		}
	}

	return o.execute(ctx, action, ids)
}

// Confirm executes the staged action on the current selection
func (o *Orchestrator[K]) Confirm(ctx context.Context) (*Report[K], error) {
	o.mu.Lock()
	p := o.pending
	o.pending = nil
	o.mu.Unlock()

	if p == nil {
		return nil, ErrNothingPending
	}
	ids := o.selection.SelectedIDs()
	if len(ids) == 0 {
		return nil, ErrNothingSelected
	}
	return o.execute(ctx, o.byID[p.ActionID], ids)
}

// Cancel drops the staged action. The selection is left untouched.
func (o *Orchestrator[K]) Cancel() {
	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()
}

func (o *Orchestrator[K]) execute(ctx context.Context, action Action[K], ids []K) (*Report[K], error) {
	start := time.Now()
	log := logger.WithAction(o.cfg.Logger, o.cfg.Entity, action.ID, len(ids)).
		With(zap.String("policy", string(o.cfg.Policy)))

	var (
		report *Report[K]
		err    error
	)
	switch o.cfg.Policy {
	case PolicyAtomic:
		report, err = o.runAtomic(ctx, action, ids)
	default:
		report = o.runBestEffort(ctx, action, ids)
	}
	if report == nil {
		return nil, err
	}

	if o.cfg.Recorder != nil {
		o.cfg.Recorder.ObserveBatch(o.cfg.Entity, action.ID, o.cfg.Policy, len(report.Succeeded), len(report.Failed), time.Since(start))
	}

	o.selection.Remove(report.Succeeded...)

	if len(report.Failed) == 0 {
		log.Info("Bulk action completed", zap.Duration("duration", time.Since(start)))
		return report, nil
	}

	failed := make([]Result[K], 0, len(report.Failed))
	for _, r := range report.Results {
		if !r.OK() {
			failed = append(failed, r)
			log.Warn("Bulk action item failed", zap.Any("id", r.ID), zap.Error(r.Err))
		}
	}
	log.Warn("Bulk action finished with failures",
		zap.Int("succeeded", len(report.Succeeded)),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("duration", time.Since(start)),
	)

	return report, &BatchPartialFailureError[K]{
		ActionID:   action.ID,
		Succeeded:  report.Succeeded,
		Failed:     failed,
		RolledBack: o.cfg.Policy == PolicyAtomic,
	}
}

func (o *Orchestrator[K]) runBestEffort(ctx context.Context, action Action[K], ids []K) *Report[K] {
	results := make([]Result[K], len(ids))

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			results[i] = Result[K]{ID: id, Err: err}
			continue
		}
		i, id := i, id
		g.Go(func() error {
			results[i] = Result[K]{ID: id, Err: applyOne(ctx, action, id)}
			return nil
		})
	}
	_ = g.Wait()

	return newReport(action.ID, PolicyBestEffort, results)
}

func (o *Orchestrator[K]) runAtomic(ctx context.Context, action Action[K], ids []K) (*Report[K], error) {
	if o.cfg.RunInTx == nil {
		return nil, errors.New("atomic bulk policy requires a transaction runner")
	}

	results := make([]Result[K], len(ids))
	failedAt := -1
	txErr := o.cfg.RunInTx(ctx, func(ctx context.Context) error {
		for i, id := range ids {
			if err := applyOne(ctx, action, id); err != nil {
				results[i] = Result[K]{ID: id, Err: err}
				failedAt = i
				return err
			}
			results[i] = Result[K]{ID: id}
		}
		return nil
	})

	if txErr != nil {
		for i, id := range ids {
			if i == failedAt {
				continue
			}
			results[i] = Result[K]{ID: id, Err: ErrRolledBack}
		}
		if failedAt < 0 {
			// the commit itself failed
			results[0] = Result[K]{ID: ids[0], Err: txErr}
		}
	}

	return newReport(action.ID, PolicyAtomic, results), nil
}

func applyOne[K comparable](ctx context.Context, action Action[K], id K) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", action.ID, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return action.Apply(ctx, id)
}

func newReport[K comparable](actionID string, policy Policy, results []Result[K]) *Report[K] {
	report := &Report[K]{
		ActionID:  actionID,
		Policy:    policy,
		Results:   results,
		Succeeded: make([]K, 0, len(results)),
		Failed:    make([]K, 0),
	}
	for _, r := range results {
		if r.OK() {
			report.Succeeded = append(report.Succeeded, r.ID)
		} else {
			report.Failed = append(report.Failed, r.ID)
		}
	}
	return report
}
