package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/limaJavier/campus-timetabling/internal/batch"
	"github.com/limaJavier/campus-timetabling/internal/config"
	"github.com/limaJavier/campus-timetabling/internal/logger"
	"github.com/limaJavier/campus-timetabling/internal/metrics"
	"github.com/limaJavier/campus-timetabling/pkg/analyzer"
	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	exitComplete   = 10
	exitIncomplete = 20 // Some scope failed or left sessions unplaced
	resultsFile    = "batch_results.csv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(ctx context.Context, args []string) (int, error) {
	flags := flag.NewFlagSet("batch", flag.ContinueOnError)
	configPath := flags.String("config", "", "Path to the configuration file")
	filePath := flags.String("file", "", "Path to the snapshot file")
	department := flags.String("department", "", "Only schedule the scopes of this department")
	outDir := flags.String("out", ".", "Directory where timetables and "+resultsFile+" are written")
	workers := flags.Int("workers", 0, "Overrides batch.workers")
	if err := flags.Parse(args); err != nil {
		return 2, nil
	}
	if *filePath == "" {
		return 0, errors.New("a snapshot file must be specified")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return 0, err
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return 0, fmt.Errorf("cannot build logger: %w", err)
	}
	defer log.Sync()
	m := metrics.New()

	snapshot, err := model.InputFromJson(*filePath)
	if err != nil {
		return 0, fmt.Errorf("cannot parse snapshot file: %w", err)
	}
	scopes := batch.Scopes(snapshot)
	if *department != "" {
		scopes = lo.Filter(scopes, func(scope batch.Scope, _ int) bool { return scope.Department == *department })
	}
	if len(scopes) == 0 {
		return 0, errors.New("the snapshot has no schedulable department and semester")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return 0, err
	}

	runner := batch.NewRunner(cfg.SchedulerOptions(log), cfg.Batch.Workers, m)
	outcomes, err := runner.Run(ctx, snapshot, scopes)
	if err != nil {
		return 0, err
	}

	rows := make([]row, 0, len(outcomes))
	for _, outcome := range outcomes {
		r := row{Outcome: outcome}
		if outcome.Err == nil {
			r.Report = analyzer.AnalyzeWith(outcome.Result.Timetable, snapshot, cfg.Analyzer)
			m.ObserveReport(r.Report)
			r.File = filepath.Join(*outDir, fmt.Sprintf("%v-%d.json", outcome.Scope.Department, outcome.Scope.Semester))
			if err := writeTimetable(r.File, outcome.Result.Timetable); err != nil {
				return 0, err
			}
		}
		rows = append(rows, r)
		log.Info("scope finished",
			zap.Stringer("scope", outcome.Scope),
			zap.String("status", r.status()),
			zap.Duration("duration", outcome.Duration),
		)
	}

	if err := toCsv(filepath.Join(*outDir, resultsFile), rows); err != nil {
		return 0, err
	}
	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Error("cannot write metrics", zap.Error(err))
		}
	}

	if lo.EveryBy(rows, func(r row) bool { return r.status() == "complete" }) {
		return exitComplete, nil
	}
	return exitIncomplete, nil
}

type row struct {
	batch.Outcome
	Report analyzer.ConflictReport
	File   string
}

func (r row) status() string {
	switch {
	case r.Err != nil:
		return "failed"
	case r.Report.HasConflicts():
		return "conflicts"
	case len(r.Result.Unplaced) > 0:
		return "incomplete"
	}
	return "complete"
}

func writeTimetable(path string, timetable model.Timetable) error {
	content, err := json.MarshalIndent(timetable, "", "  ")
	if err != nil {
		return fmt.Errorf("an error occurred while building output json: %w", err)
	}
	return os.WriteFile(path, content, 0o666)
}

func toCsv(path string, rows []row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"Department", "Semester", "Status", "Strategy", "Demand", "Placed", "Unplaced", "Backtracks", "Conflicts", "Warnings", "Duration(ms)", "File", "Error"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("cannot write CSV header: %w", err)
	}

	for _, r := range rows {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		record := []string{
			r.Scope.Department,
			strconv.Itoa(r.Scope.Semester),
			r.status(),
			r.Result.Stats.Strategy,
			strconv.Itoa(r.Result.Stats.Demand),
			strconv.Itoa(r.Result.Stats.Placed),
			strconv.Itoa(len(r.Result.Unplaced)),
			strconv.Itoa(r.Result.Stats.Backtracks),
			strconv.Itoa(len(r.Report.Conflicts)),
			strconv.Itoa(len(r.Report.Warnings)),
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			r.File,
			errText,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("cannot write CSV record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
