package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/limaJavier/campus-timetabling/internal/config"
	"github.com/limaJavier/campus-timetabling/internal/logger"
	"github.com/limaJavier/campus-timetabling/internal/metrics"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Exit codes
const (
	exitComplete   = 10
	exitIncomplete = 20
	exitConflicts  = 15
	exitUsage      = 2
)

// environment is what every command shares once its flags are parsed.
type environment struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type command struct {
	summary string
	run     func(args []string) (int, error)
}

var commands = map[string]command{
	"generate": {"Build the timetable of one department and semester", runGenerate},
	"analyze":  {"Report conflicts and warnings of a timetable", runAnalyze},
	"review":   {"Approve or reject a pending timetable", runReview},
	"export":   {"Render a timetable as csv, pdf, xlsx or ics", runExport},
	"report":   {"Compute utilization and distribution reports", runReport},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsage)
	}
	cmd, ok := commands[strings.ToLower(os.Args[1])]
	if !ok {
		fmt.Fprintf(os.Stderr, "%v is not a valid command\n", os.Args[1])
		usage()
		os.Exit(exitUsage)
	}

	code, err := cmd.run(os.Args[2:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: timetable <command> [flags]")
	names := lo.Keys(commands)
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10v %v\n", name, commands[name].summary)
	}
}

// newFlagSet registers the -config flag shared by every command.
func newFlagSet(name string) (*flag.FlagSet, *string) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := flags.String("config", "", "Path to the configuration file; if empty, config.yaml is looked up in ./config and the working directory")
	return flags, configPath
}

func setup(configPath string) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("cannot build logger: %w", err)
	}
	return &environment{cfg: cfg, logger: log, metrics: metrics.New()}, nil
}

// close flushes the logger and writes the metrics textfile when configured.
func (env *environment) close() {
	if env.cfg.Metrics.Textfile != "" {
		if err := env.metrics.WriteTextfile(env.cfg.Metrics.Textfile); err != nil {
			env.logger.Error("cannot write metrics", zap.Error(err))
		}
	}
	_ = env.logger.Sync()
}
