package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/limaJavier/campus-timetabling/pkg/analyzer"
	"github.com/limaJavier/campus-timetabling/pkg/export"
	"github.com/limaJavier/campus-timetabling/pkg/model"
	"github.com/limaJavier/campus-timetabling/pkg/report"
	"github.com/limaJavier/campus-timetabling/pkg/scheduler"
	"go.uber.org/zap"
)

var (
	validFormats = []string{"csv", "pdf", "xlsx", "ics"}
	validKinds   = []string{"all", "rooms", "faculty", "bands", "subjects"}
	validActions = []string{"approve", "reject"}
)

func runGenerate(args []string) (int, error) {
	flags, configPath := newFlagSet("generate")
	filePath := flags.String("file", "", "Path to the snapshot file")
	department := flags.String("department", "", "Department to schedule")
	semester := flags.Int("semester", 0, "Semester to schedule (1-8)")
	strategy := flags.String("strategy", "", `Overrides scheduler.strategy: "greedy" or "exact"`)
	outPath := flags.String("out", "", "Path to the file where the timetable will be written; if empty, it'll be written into the Standard Output")
	if err := flags.Parse(args); err != nil {
		return exitUsage, nil
	}
	if *filePath == "" {
		return 0, errors.New("a snapshot file must be specified")
	} else if *department == "" || *semester <= 0 {
		return 0, errors.New("a department and a positive semester must be specified")
	}

	env, err := setup(*configPath)
	if err != nil {
		return 0, err
	}
	defer env.close()

	snapshot, err := model.InputFromJson(*filePath)
	if err != nil {
		return 0, fmt.Errorf("cannot parse snapshot file: %w", err)
	}
	options := env.cfg.SchedulerOptions(env.logger)
	if *strategy != "" {
		options.Strategy = strings.ToLower(*strategy)
	}
	timetabler, err := scheduler.New(options)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	result, err := timetabler.Build(*department, *semester, snapshot)
	env.metrics.ObserveGeneration(options.Strategy, result, err, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("an error occurred during timetable construction: %w", err)
	}

	if !timetabler.Verify(result.Timetable, snapshot) {
		env.logger.Error("generated timetable failed verification", zap.String("timetable", result.Timetable.ID))
		return exitConflicts, nil
	}
	conflicts := analyzer.AnalyzeWith(result.Timetable, snapshot, env.cfg.Analyzer)
	env.metrics.ObserveReport(conflicts)

	if err := writeJSON(*outPath, result.Timetable); err != nil {
		return 0, err
	}
	env.logger.Info("timetable written",
		zap.String("timetable", result.Timetable.ID),
		zap.Any("stats", result.Stats),
		zap.Int("warnings", len(conflicts.Warnings)),
	)
	return generationCode(result, conflicts), nil
}

// generationCode maps a run to the exit codes 10, 20 and 15.
func generationCode(result scheduler.Result, conflicts analyzer.ConflictReport) int {
	if conflicts.HasConflicts() {
		return exitConflicts
	}
	if _, incomplete := result.Incomplete(); incomplete {
		return exitIncomplete
	}
	return exitComplete
}

func runAnalyze(args []string) (int, error) {
	flags, configPath := newFlagSet("analyze")
	timetablePath := flags.String("timetable", "", "Path to the timetable file")
	filePath := flags.String("file", "", "Optional snapshot file; enables capacity, reference and constraint checks")
	outPath := flags.String("out", "", "Path to the report file; if empty, it'll be written into the Standard Output")
	if err := flags.Parse(args); err != nil {
		return exitUsage, nil
	}
	if *timetablePath == "" {
		return 0, errors.New("a timetable file must be specified")
	}

	env, err := setup(*configPath)
	if err != nil {
		return 0, err
	}
	defer env.close()

	timetable, err := readTimetable(*timetablePath)
	if err != nil {
		return 0, err
	}
	var conflicts analyzer.ConflictReport
	if *filePath == "" {
		conflicts = analyzer.AnalyzeWithOptions(timetable, env.cfg.Analyzer)
	} else {
		snapshot, err := model.InputFromJson(*filePath)
		if err != nil {
			return 0, fmt.Errorf("cannot parse snapshot file: %w", err)
		}
		conflicts = analyzer.AnalyzeWith(timetable, snapshot, env.cfg.Analyzer)
	}
	env.metrics.ObserveReport(conflicts)

	if err := writeJSON(*outPath, conflicts); err != nil {
		return 0, err
	}
	if conflicts.HasConflicts() {
		return exitConflicts, nil
	}
	return exitComplete, nil
}

func runReview(args []string) (int, error) {
	flags, configPath := newFlagSet("review")
	timetablePath := flags.String("timetable", "", "Path to the timetable file")
	action := flags.String("action", "", `"approve" or "reject"`)
	comments := flags.String("comments", "", "Review comments; required when rejecting")
	outPath := flags.String("out", "", "Path to the reviewed timetable; if empty, the input file is overwritten")
	if err := flags.Parse(args); err != nil {
		return exitUsage, nil
	}
	if *timetablePath == "" {
		return 0, errors.New("a timetable file must be specified")
	} else if !slices.Contains(validActions, strings.ToLower(*action)) {
		return 0, fmt.Errorf("%v is not a valid action", *action)
	}

	env, err := setup(*configPath)
	if err != nil {
		return 0, err
	}
	defer env.close()

	timetable, err := readTimetable(*timetablePath)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	if strings.ToLower(*action) == "approve" {
		err = timetable.Approve(*comments, now)
	} else {
		err = timetable.Reject(*comments, now)
	}
	if err != nil {
		return 0, err
	}

	target := *outPath
	if target == "" {
		target = *timetablePath
	}
	if err := writeJSON(target, timetable); err != nil {
		return 0, err
	}
	env.logger.Info("timetable reviewed", zap.String("timetable", timetable.ID), zap.String("status", string(timetable.Status)))
	return exitComplete, nil
}

func runExport(args []string) (int, error) {
	flags, configPath := newFlagSet("export")
	timetablePath := flags.String("timetable", "", "Path to the timetable file")
	filePath := flags.String("file", "", "Path to the snapshot file used to resolve names")
	format := flags.String("format", "csv", `One of "csv", "pdf", "xlsx" or "ics"`)
	batchID := flags.String("batch", "", "Batch to export (csv and ics); defaults to the first batch of the timetable")
	outPath := flags.String("out", "", "Path to the output file; if empty, it'll be written into the Standard Output")
	if err := flags.Parse(args); err != nil {
		return exitUsage, nil
	}
	*format = strings.ToLower(*format)
	if *timetablePath == "" || *filePath == "" {
		return 0, errors.New("a timetable file and a snapshot file must be specified")
	} else if !slices.Contains(validFormats, *format) {
		return 0, fmt.Errorf("%v is not a valid format", *format)
	}

	env, err := setup(*configPath)
	if err != nil {
		return 0, err
	}
	defer env.close()

	timetable, err := readTimetable(*timetablePath)
	if err != nil {
		return 0, err
	}
	snapshot, err := model.InputFromJson(*filePath)
	if err != nil {
		return 0, fmt.Errorf("cannot parse snapshot file: %w", err)
	}

	content, err := render(env, timetable, snapshot.Lookup(), *format, *batchID)
	if err != nil {
		return 0, err
	}
	if err := writeBytes(*outPath, content); err != nil {
		return 0, err
	}
	return exitComplete, nil
}

func render(env *environment, timetable model.Timetable, lookup model.Lookup, format, batchID string) ([]byte, error) {
	batches := export.Batches(timetable, lookup)
	if len(batches) == 0 {
		return nil, errors.New("the timetable has no batch to export")
	}
	if batchID == "" {
		batchID = batches[0]
	} else if !slices.Contains(batches, batchID) {
		return nil, fmt.Errorf("batch %v is not part of the timetable", batchID)
	}
	title := func(id string) string {
		if batch, ok := lookup.Batches[id]; ok {
			return fmt.Sprintf("%v - %v semester %d", batch.Name, timetable.Department, timetable.Semester)
		}
		return id
	}

	switch format {
	case "csv":
		return export.NewCSVExporter().Render(export.Grid(timetable, batchID, lookup))
	case "pdf":
		pages := make([]export.Page, 0, len(batches))
		for _, id := range batches {
			pages = append(pages, export.Page{Title: title(id), Data: export.Grid(timetable, id, lookup)})
		}
		return export.NewPDFExporter().Render(pages...)
	case "xlsx":
		sheets := make([]export.Sheet, 0, len(batches))
		for _, id := range batches {
			name := id
			if batch, ok := lookup.Batches[id]; ok {
				name = batch.Name
			}
			sheets = append(sheets, export.Sheet{Name: name, Data: export.Grid(timetable, id, lookup)})
		}
		return export.NewXLSXExporter().Render(sheets...)
	case "ics":
		exporter, err := export.NewICSExporter(env.cfg.Export.WeekStart, env.cfg.Export.Timezone, time.Now())
		if err != nil {
			return nil, err
		}
		return exporter.Render(timetable, lookup, batchID)
	}
	return nil, fmt.Errorf("%v is not a valid format", format)
}

func runReport(args []string) (int, error) {
	flags, configPath := newFlagSet("report")
	timetablePath := flags.String("timetable", "", "Path to the timetable file")
	filePath := flags.String("file", "", "Path to the snapshot file")
	kind := flags.String("kind", "all", `One of "all", "rooms", "faculty", "bands" or "subjects"`)
	outPath := flags.String("out", "", "Path to the report file; if empty, it'll be written into the Standard Output")
	if err := flags.Parse(args); err != nil {
		return exitUsage, nil
	}
	*kind = strings.ToLower(*kind)
	if *timetablePath == "" || *filePath == "" {
		return 0, errors.New("a timetable file and a snapshot file must be specified")
	} else if !slices.Contains(validKinds, *kind) {
		return 0, fmt.Errorf("%v is not a valid report", *kind)
	}

	env, err := setup(*configPath)
	if err != nil {
		return 0, err
	}
	defer env.close()

	timetable, err := readTimetable(*timetablePath)
	if err != nil {
		return 0, err
	}
	snapshot, err := model.InputFromJson(*filePath)
	if err != nil {
		return 0, fmt.Errorf("cannot parse snapshot file: %w", err)
	}

	if err := writeJSON(*outPath, reports(timetable, snapshot, *kind)); err != nil {
		return 0, err
	}
	return exitComplete, nil
}

func reports(timetable model.Timetable, snapshot model.Snapshot, kind string) map[string]any {
	all := map[string]func() any{
		"rooms":    func() any { return report.RoomUtilization(timetable, snapshot) },
		"faculty":  func() any { return report.FacultyWorkload(timetable, snapshot) },
		"bands":    func() any { return report.BandDistribution(timetable) },
		"subjects": func() any { return report.SubjectDistribution(timetable, snapshot) },
	}
	out := make(map[string]any)
	for name, build := range all {
		if kind == "all" || kind == name {
			out[name] = build()
		}
	}
	return out
}

func readTimetable(path string) (model.Timetable, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return model.Timetable{}, err
	}
	var timetable model.Timetable
	if err := json.Unmarshal(bytes, &timetable); err != nil {
		return model.Timetable{}, fmt.Errorf("cannot parse timetable file: %w", err)
	}
	return timetable, nil
}

func writeJSON(path string, value any) error {
	content, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("an error occurred while building output json: %w", err)
	}
	return writeBytes(path, append(content, '\n'))
}

// writeBytes writes to path, or to the Standard Output when path is empty.
func writeBytes(path string, content []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(content)
		return err
	}
	if err := os.WriteFile(path, content, 0o666); err != nil {
		return fmt.Errorf("an error occurred while writing to the output file: %w", err)
	}
	return nil
}
