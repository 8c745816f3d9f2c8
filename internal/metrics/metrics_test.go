package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/limaJavier/campus-timetabling/pkg/analyzer"
	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/limaJavier/campus-timetabling/pkg/scheduler"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGeneration(t *testing.T) {
	//** Arrange
	m := New()
	incomplete := scheduler.Result{
		Unplaced: []model.DemandItem{{SubjectCode: "CS101"}, {SubjectCode: "CS101"}},
		Stats:    scheduler.Stats{Backtracks: 3},
	}

	//** Act
	m.ObserveGeneration(scheduler.StrategyGreedy, scheduler.Result{}, nil, time.Second)
	m.ObserveGeneration(scheduler.StrategyGreedy, incomplete, nil, time.Second)
	m.ObserveGeneration(scheduler.StrategyExact, scheduler.Result{}, errors.New("solver crashed"), time.Second)

	//** Assert
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues(scheduler.StrategyGreedy, OutcomeComplete)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues(scheduler.StrategyGreedy, OutcomeIncomplete)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues(scheduler.StrategyExact, OutcomeFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.unplaced))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.backtracks))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestObserveReport(t *testing.T) {
	m := New()
	m.ObserveReport(analyzer.ConflictReport{Conflicts: []analyzer.Issue{
		{Type: analyzer.FacultyConflict}, {Type: analyzer.FacultyConflict}, {Type: analyzer.RoomConflict},
	}})
	m.ObserveReport(analyzer.ConflictReport{Conflicts: []analyzer.Issue{{Type: analyzer.LunchConflict}}})

	assert.Equal(t, 1, testutil.CollectAndCount(m.conflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts.WithLabelValues(analyzer.LunchConflict)))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveGeneration(scheduler.StrategyGreedy, scheduler.Result{}, nil, time.Millisecond)
	path := filepath.Join(t.TempDir(), "timetable.prom")

	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), `timetable_generations_total{outcome="complete",strategy="greedy"} 1`))
}

func TestNilMetricsIgnoresObservations(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveGeneration(scheduler.StrategyGreedy, scheduler.Result{}, nil, time.Second)
		m.ObserveReport(analyzer.ConflictReport{})
	})
}
