package batch

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/limaJavier/campus-timetabling/internal/metrics"
	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/limaJavier/campus-timetabling/pkg/scheduler"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scope is one (department, semester) pair scheduled on its own grid.
type Scope struct {
	Department string `json:"department"`
	Semester   int    `json:"semester"`
}

func (scope Scope) String() string {
	return fmt.Sprintf("%v/%d", scope.Department, scope.Semester)
}

// Outcome of one scope. Err holds scheduling errors such as model.SchedulingInputError.
type Outcome struct {
	Scope    Scope
	Result   scheduler.Result
	Err      error
	Duration time.Duration
}

// Scopes lists every (department, semester) pair with at least one subject and one batch.
func Scopes(snapshot model.Snapshot) []Scope {
	withSubjects := lo.SliceToMap(snapshot.Subjects, func(subject model.Subject) (Scope, bool) {
		return Scope{subject.Department, subject.Semester}, true
	})
	scopes := lo.Uniq(lo.FilterMap(snapshot.Batches, func(batch model.Batch, _ int) (Scope, bool) {
		scope := Scope{batch.Department, batch.Semester}
		return scope, withSubjects[scope]
	}))
	slices.SortFunc(scopes, func(a, b Scope) int {
		return cmp.Or(strings.Compare(a.Department, b.Department), cmp.Compare(a.Semester, b.Semester))
	})
	return scopes
}

// Runner generates independent scopes concurrently over one read-only snapshot.
type Runner struct {
	options scheduler.Options
	workers int
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewRunner(options scheduler.Options, workers int, m *metrics.Metrics) *Runner {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{options: options, workers: max(workers, 1), metrics: m, logger: logger}
}

// Run returns one outcome per scope, in scope order. Only cancellation fails the whole run.
func (runner *Runner) Run(ctx context.Context, snapshot model.Snapshot, scopes []Scope) ([]Outcome, error) {
	timetabler, err := scheduler.New(runner.options)
	if err != nil {
		return nil, err
	}
	strategy := cmp.Or(runner.options.Strategy, scheduler.StrategyGreedy)

	outcomes := make([]Outcome, len(scopes))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runner.workers)
	for i, scope := range scopes {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			result, err := timetabler.Build(scope.Department, scope.Semester, snapshot)
			elapsed := time.Since(start)

			runner.metrics.ObserveGeneration(strategy, result, err, elapsed)
			outcomes[i] = Outcome{Scope: scope, Result: result, Err: err, Duration: elapsed}
			if err != nil {
				runner.logger.Warn("scope failed", zap.Stringer("scope", scope), zap.Error(err))
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
