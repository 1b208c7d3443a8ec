package bulk_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/straye-as/renovation-api/internal/bulk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSelection_Toggle(t *testing.T) {
	s := bulk.NewSelection([]int{1, 2, 3})

	assert.True(t, s.Toggle(2))
	assert.True(t, s.Contains(2))
	assert.False(t, s.Toggle(2))
	assert.False(t, s.Contains(2))

	t.Run("ids out of view are ignored", func(t *testing.T) {
		assert.False(t, s.Toggle(42))
		assert.Equal(t, 0, s.Count())
	})
}

func TestSelection_ScopedToVisible(t *testing.T) {
	s := bulk.NewSelection([]int{1, 2, 3, 4})
	s.Select(1, 3, 4)

	s.SetVisible([]int{3, 4, 5})
	assert.Equal(t, []int{3, 4}, s.SelectedIDs())

	s.Select(1)
	assert.Equal(t, []int{3, 4}, s.SelectedIDs())
}

func TestSelection_ToggleAll(t *testing.T) {
	s := bulk.NewSelection([]string{"a", "b", "c", "d", "e"})
	s.SetVisible([]string{"b", "d"})

	s.ToggleAll()
	assert.Equal(t, []string{"b", "d"}, s.SelectedIDs())
	assert.True(t, s.IsAllSelected())
	assert.False(t, s.IsIndeterminate())

	s.ToggleAll()
	assert.Equal(t, 0, s.Count())
	assert.False(t, s.IsAllSelected())
}

func TestSelection_States(t *testing.T) {
	t.Run("empty view is never all selected", func(t *testing.T) {
		s := bulk.NewSelection[int](nil)
		assert.False(t, s.IsAllSelected())
		assert.False(t, s.IsIndeterminate())
	})

	t.Run("partial selection is indeterminate", func(t *testing.T) {
		s := bulk.NewSelection([]int{1, 2, 3})
		s.Select(1)
		assert.True(t, s.IsIndeterminate())
		assert.False(t, s.IsAllSelected())
	})

	t.Run("selected ids follow visible order", func(t *testing.T) {
		s := bulk.NewSelection([]int{5, 3, 9, 1})
		s.Select(1, 9, 5)
		assert.Equal(t, []int{5, 9, 1}, s.SelectedIDs())
	})
}

func newTestOrchestrator(policy bulk.Policy, ids []int, actions ...bulk.Action[int]) *bulk.Orchestrator[int] {
	sel := bulk.NewSelection(ids)
	sel.Select(ids...)
	cfg := bulk.Config{
		Entity:      "test",
		Policy:      policy,
		Concurrency: 2,
		RunInTx:     fakeTx,
	}
	return bulk.NewOrchestrator(cfg, sel, actions...)
}

// fakeTx stands in for a database transaction by buffering writes in the context
type txKey struct{}

type txBuffer struct {
	mu     sync.Mutex
	writes []int
}

var committed = struct {
	sync.Mutex
	ids []int
}{}

func fakeTx(ctx context.Context, fn func(ctx context.Context) error) error {
	buf := &txBuffer{}
	if err := fn(context.WithValue(ctx, txKey{}, buf)); err != nil {
		return err
	}
	committed.Lock()
	committed.ids = append(committed.ids, buf.writes...)
	committed.Unlock()
	return nil
}

func TestOrchestrator_AllSucceed(t *testing.T) {
	var applied atomic.Int32
	o := newTestOrchestrator(bulk.PolicyBestEffort, []int{1, 2, 3}, bulk.Action[int]{
		ID: "touch",
		Apply: func(ctx context.Context, id int) error {
			applied.Add(1)
			return nil
		},
	})

	report, err := o.Run(context.Background(), "touch")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Equal(t, int32(3), applied.Load())
	assert.Equal(t, 0, o.Selection().Count())
}

func TestOrchestrator_PartialFailure(t *testing.T) {
	boom := errors.New("boom")
	o := newTestOrchestrator(bulk.PolicyBestEffort, []int{1, 2, 3, 4, 5}, bulk.Action[int]{
		ID: "complete",
		Apply: func(ctx context.Context, id int) error {
			if id == 2 || id == 4 {
				return boom
			}
			return nil
		},
	})

	report, err := o.Run(context.Background(), "complete")
	require.Error(t, err)
	assert.ErrorIs(t, err, bulk.ErrPartialFailure)

	var partial *bulk.BatchPartialFailureError[int]
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, []int{1, 3, 5}, partial.Succeeded)
	assert.Equal(t, []int{2, 4}, partial.FailedIDs())
	assert.False(t, partial.RolledBack)

	require.NotNil(t, report)
	require.Len(t, report.Results, 5)
	assert.True(t, report.Results[0].OK())
	assert.ErrorIs(t, report.Results[1].Err, boom)

	// only the failed ids stay selected
	assert.Equal(t, []int{2, 4}, o.Selection().SelectedIDs())
}

func TestOrchestrator_PanicIsReportedAsFailure(t *testing.T) {
	o := newTestOrchestrator(bulk.PolicyBestEffort, []int{1, 2}, bulk.Action[int]{
		ID: "explode",
		Apply: func(ctx context.Context, id int) error {
			if id == 1 {
				panic("kaboom")
			}
			return nil
		},
	})

	report, err := o.Run(context.Background(), "explode")
	assert.ErrorIs(t, err, bulk.ErrPartialFailure)
	assert.Equal(t, []int{2}, report.Succeeded)
	assert.Equal(t, []int{1}, report.Failed)
}

func TestOrchestrator_Confirmation(t *testing.T) {
	var applied atomic.Int32
	o := newTestOrchestrator(bulk.PolicyBestEffort, []int{1, 2}, bulk.Action[int]{
		ID:                   "delete",
		Label:                "Delete",
		RequiresConfirmation: true,
		ConfirmationMessage:  "Delete the selected records?",
		Apply: func(ctx context.Context, id int) error {
			applied.Add(1)
			return nil
		},
	})

	report, err := o.Run(context.Background(), "delete")
	assert.Nil(t, report)
	assert.ErrorIs(t, err, bulk.ErrConfirmationRequired)

	var confirm *bulk.ConfirmationRequiredError
	require.True(t, errors.As(err, &confirm))
	assert.Equal(t, "Delete the selected records?", confirm.Message)
	assert.Equal(t, 2, confirm.Count)
	assert.Equal(t, int32(0), applied.Load())

	t.Run("cancel drops the staged action", func(t *testing.T) {
		o.Cancel()
		assert.Nil(t, o.Pending())
		_, err := o.Confirm(context.Background())
		assert.ErrorIs(t, err, bulk.ErrNothingPending)
		assert.Equal(t, 2, o.Selection().Count())
	})

	t.Run("confirm runs the staged action", func(t *testing.T) {
		_, err := o.Run(context.Background(), "delete")
		require.ErrorIs(t, err, bulk.ErrConfirmationRequired)
		require.NotNil(t, o.Pending())

		report, err := o.Confirm(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, report.Succeeded)
		assert.Equal(t, int32(2), applied.Load())
		assert.Nil(t, o.Pending())
	})
}

func TestOrchestrator_Errors(t *testing.T) {
	o := newTestOrchestrator(bulk.PolicyBestEffort, []int{1}, bulk.Action[int]{
		ID:    "noop",
		Apply: func(ctx context.Context, id int) error { return nil },
	})

	_, err := o.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, bulk.ErrUnknownAction)

	o.Selection().Clear()
	_, err = o.Run(context.Background(), "noop")
	assert.ErrorIs(t, err, bulk.ErrNothingSelected)
}

func TestOrchestrator_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator(bulk.PolicyBestEffort, []int{1, 2, 3}, bulk.Action[int]{
		ID:    "slow",
		Apply: func(ctx context.Context, id int) error { return nil },
	})

	report, err := o.Run(ctx, "slow")
	assert.ErrorIs(t, err, bulk.ErrPartialFailure)
	assert.Empty(t, report.Succeeded)
	for _, r := range report.Results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Equal(t, 3, o.Selection().Count())
}

func TestOrchestrator_Atomic(t *testing.T) {
	record := func(ctx context.Context, id int) {
		buf := ctx.Value(txKey{}).(*txBuffer)
		buf.mu.Lock()
		buf.writes = append(buf.writes, id)
		buf.mu.Unlock()
	}

	t.Run("failure rolls back every item", func(t *testing.T) {
		o := newTestOrchestrator(bulk.PolicyAtomic, []int{101, 102, 103}, bulk.Action[int]{
			ID: "write",
			Apply: func(ctx context.Context, id int) error {
				if id == 102 {
					return errors.New("constraint violated")
				}
				record(ctx, id)
				return nil
			},
		})

		report, err := o.Run(context.Background(), "write")
		require.ErrorIs(t, err, bulk.ErrPartialFailure)

		var partial *bulk.BatchPartialFailureError[int]
		require.True(t, errors.As(err, &partial))
		assert.True(t, partial.RolledBack)
		assert.Empty(t, report.Succeeded)
		assert.ErrorIs(t, report.Results[0].Err, bulk.ErrRolledBack)
		assert.ErrorIs(t, report.Results[2].Err, bulk.ErrRolledBack)
		assert.Contains(t, err.Error(), "constraint violated")

		committed.Lock()
		assert.NotContains(t, committed.ids, 101)
		committed.Unlock()

		assert.Equal(t, []int{101, 102, 103}, o.Selection().SelectedIDs())
	})

	t.Run("success commits every item", func(t *testing.T) {
		o := newTestOrchestrator(bulk.PolicyAtomic, []int{201, 202}, bulk.Action[int]{
			ID: "write",
			Apply: func(ctx context.Context, id int) error {
				record(ctx, id)
				return nil
			},
		})

		report, err := o.Run(context.Background(), "write")
		require.NoError(t, err)
		assert.Equal(t, []int{201, 202}, report.Succeeded)

		committed.Lock()
		assert.Contains(t, committed.ids, 201)
		assert.Contains(t, committed.ids, 202)
		committed.Unlock()
	})
}

type recorderStub struct {
	entity    string
	action    string
	succeeded int
	failed    int
}

func (r *recorderStub) ObserveBatch(entity, action string, policy bulk.Policy, succeeded, failed int, elapsed time.Duration) {
	r.entity, r.action, r.succeeded, r.failed = entity, action, succeeded, failed
}

func TestOrchestrator_Recorder(t *testing.T) {
	rec := &recorderStub{}
	sel := bulk.NewSelection([]int{1, 2, 3})
	sel.ToggleAll()
	o := bulk.NewOrchestrator(bulk.Config{Entity: "projects", Recorder: rec}, sel, bulk.Action[int]{
		ID: "odd",
		Apply: func(ctx context.Context, id int) error {
			if id%2 == 0 {
				return errors.New("even")
			}
			return nil
		},
	})

	_, err := o.Run(context.Background(), "odd")
	require.Error(t, err)
	assert.Equal(t, "projects", rec.entity)
	assert.Equal(t, "odd", rec.action)
	assert.Equal(t, 2, rec.succeeded)
	assert.Equal(t, 1, rec.failed)
}

func TestOrchestrator_Catalog(t *testing.T) {
	noop := func(ctx context.Context, id int) error { return nil }
	o := newTestOrchestrator(bulk.PolicyBestEffort, nil,
		bulk.Action[int]{ID: "archive", Apply: noop},
		bulk.Action[int]{ID: "delete", RequiresConfirmation: true, Apply: noop},
	)

	catalog := o.Catalog()
	require.Len(t, catalog, 2)
	assert.Equal(t, "archive", catalog[0].ID)
	assert.True(t, catalog[1].RequiresConfirmation)

	catalog[0].ID = "changed"
	assert.Equal(t, "archive", o.Catalog()[0].ID, "callers get a copy")
}

func TestOrchestrator_LogsActionContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sel := bulk.NewSelection([]int{1, 2})
	sel.ToggleAll()
	o := bulk.NewOrchestrator(bulk.Config{Entity: "deals", Logger: zap.New(core)}, sel, bulk.Action[int]{
		ID:    "touch",
		Apply: func(ctx context.Context, id int) error { return nil },
	})

	_, err := o.Run(context.Background(), "touch")
	require.NoError(t, err)

	entries := logs.FilterMessage("Bulk action completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "deals", fields["entity"])
	assert.Equal(t, "touch", fields["action"])
	assert.EqualValues(t, 2, fields["selected"])
	assert.Equal(t, string(bulk.PolicyBestEffort), fields["policy"])
}
